package llm

import (
	"testing"
	"time"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategorizationPlainJSON(t *testing.T) {
	cat, err := parseCategorization(`{"category_key": "food.coffee", "confidence": 0.92, "rationale": "coffee chain", "model_used": "gemini-2.5-flash"}`)
	require.NoError(t, err)
	assert.Equal(t, "food.coffee", cat.CategoryKey)
	assert.Equal(t, "gemini-2.5-flash", cat.ModelUsed)
	assert.Nil(t, cat.RevisedCategoryKey)
	assert.Equal(t, "food.coffee", cat.EffectiveKey())
}

func TestParseCategorizationStripsFences(t *testing.T) {
	raw := "```json\n{\"category_key\": \"transport.rideshare\", \"confidence\": 0.8, \"rationale\": \"uber trip\"}\n```"
	cat, err := parseCategorization(raw)
	require.NoError(t, err)
	assert.Equal(t, "transport.rideshare", cat.CategoryKey)
}

func TestParseCategorizationRevision(t *testing.T) {
	raw := `Here is my answer:
{"category_key": "shopping.general", "confidence": 0.4, "rationale": "unclear",
 "revised_category_key": "food.groceries", "revised_confidence": 0.9,
 "revised_rationale": "trader joes is a grocery store", "used_web_search": true,
 "merchant_summary": "Trader Joe's, US grocery chain"}`
	cat, err := parseCategorization(raw)
	require.NoError(t, err)
	assert.Equal(t, "food.groceries", cat.EffectiveKey())
	assert.Equal(t, "trader joes is a grocery store", cat.EffectiveRationale())
	assert.True(t, cat.UsedWebSearch)
	require.NotNil(t, cat.MerchantSummary)
}

func TestParseCategorizationRejectsGarbage(t *testing.T) {
	_, err := parseCategorization("sorry, I cannot help with that")
	assert.ErrorIs(t, err, apperrors.ErrTransport)

	_, err = parseCategorization(`{"confidence": 0.5}`)
	assert.ErrorIs(t, err, apperrors.ErrTransport)
}

func TestBuildCategorizePromptContainsTaxonomyAndTxn(t *testing.T) {
	prompt, err := buildCategorizePrompt(ports.CategorizeRequest{
		Model:         "gemini-2.5-flash",
		PromptVersion: "v3",
		Taxonomy: []domain.PromptNode{
			{Key: "food", Name: "Food", Children: []domain.PromptNode{{Key: "food.coffee", Name: "Coffee"}}},
		},
		Transaction: domain.NormalizedTransaction{
			ExternalID:  "ext-1",
			Source:      domain.SourceAggregatorBanking,
			PostedAt:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			AmountCents: 1250,
			Currency:    "USD",
			Descriptor:  "STARBUCKS #123",
			Institution: "Chase",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "food.coffee")
	assert.Contains(t, prompt, `"STARBUCKS #123"`)
	assert.Contains(t, prompt, "12.50 USD")
	assert.Contains(t, prompt, "prompt v3")
}
