// Package llm implements the LLM categorizer port on top of the Google
// GenAI client. One call per transaction; the model may self-revise once
// within the round trip and report the revision in the revised_* fields.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/core/ports"
	"google.golang.org/genai"
)

type GenAICategorizer struct {
	client *genai.Client
	logger *slog.Logger
}

var _ ports.LLMCategorizer = (*GenAICategorizer)(nil)

// NewGenAICategorizer builds the client from ambient credentials
// (GOOGLE_API_KEY or application default credentials).
func NewGenAICategorizer(ctx context.Context, logger *slog.Logger) (*GenAICategorizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAICategorizer{client: client, logger: logger}, nil
}

func (g *GenAICategorizer) CategorizeTransaction(ctx context.Context, req ports.CategorizeRequest) (*domain.Categorization, error) {
	prompt, err := buildCategorizePrompt(req)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("llm generate content: %v: %w", err, apperrors.ErrTransport)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("llm returned empty response: %w", apperrors.ErrTransport)
	}

	cat, err := parseCategorization(raw)
	if err != nil {
		g.logger.Warn("unparseable llm response", "external_id", req.Transaction.ExternalID, "error", err)
		return nil, err
	}
	if cat.ModelUsed == "" {
		cat.ModelUsed = req.Model
	}
	return cat, nil
}

// parseCategorization decodes the model's JSON object, stripping Markdown
// fences the model sometimes adds despite instructions.
func parseCategorization(raw string) (*domain.Categorization, error) {
	clean := cleanModelJSON(raw)

	var cat domain.Categorization
	if err := json.Unmarshal([]byte(clean), &cat); err != nil {
		return nil, fmt.Errorf("failed to decode llm response: %v: %w", err, apperrors.ErrTransport)
	}
	if cat.CategoryKey == "" {
		return nil, fmt.Errorf("llm response missing category_key: %w", apperrors.ErrTransport)
	}
	return &cat, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost object if the model wrapped it in prose.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
