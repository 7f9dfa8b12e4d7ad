package ports

import (
	"context"

	"github.com/finagent/finagent/internal/core/domain"
)

// CategorizeRequest is one LLM categorization round trip. The taxonomy comes
// pre-rendered so the LLM adapter stays free of taxonomy logic.
type CategorizeRequest struct {
	Model         string
	PromptVersion string
	Taxonomy      []domain.PromptNode
	Transaction   domain.NormalizedTransaction
}

// LLMCategorizer issues a single categorization call. The provider may
// self-revise once within the round trip; the result carries the revised_*
// fields when it did. Implementations surface transport failures as
// apperrors.ErrTransport.
type LLMCategorizer interface {
	CategorizeTransaction(ctx context.Context, req CategorizeRequest) (*domain.Categorization, error)
}
