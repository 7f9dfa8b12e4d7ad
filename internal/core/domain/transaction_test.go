package domain_test

import (
	"testing"
	"time"

	"github.com/finagent/finagent/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func sampleIncoming() domain.CategorizedTransaction {
	return domain.CategorizedTransaction{
		NormalizedTransaction: domain.NormalizedTransaction{
			ExternalID:  "t1",
			Source:      domain.SourceAggregatorBanking,
			AccountID:   "acc1",
			PostedAt:    time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			AmountCents: -2500,
			Currency:    "USD",
			Descriptor:  "STARBUCKS #123",
			Institution: "Chase",
		},
		Categorization: domain.Categorization{
			CategoryKey: "FOOD.COFFEE_SHOPS",
			Confidence:  0.93,
			ModelUsed:   "M-X",
		},
	}
}

func sampleExisting(incoming domain.CategorizedTransaction) (*domain.Transaction, *domain.DerivedTransaction) {
	txn := &domain.Transaction{
		TransactionID:      "row1",
		ExternalID:         incoming.ExternalID,
		Source:             incoming.Source,
		AccountID:          incoming.AccountID,
		PostedAt:           incoming.PostedAt,
		AmountCents:        incoming.AmountCents,
		Currency:           incoming.Currency,
		MerchantDescriptor: incoming.Descriptor,
		Institution:        incoming.Institution,
	}
	derived := &domain.DerivedTransaction{
		TransactionID: "row1",
		CategoryKey:   incoming.EffectiveKey(),
	}
	return txn, derived
}

func TestPlanUpsert(t *testing.T) {
	incoming := sampleIncoming()

	t.Run("missing row inserts", func(t *testing.T) {
		assert.Equal(t, domain.ActionInsert, domain.PlanUpsert(nil, nil, incoming))
	})

	t.Run("verified row is skipped even when amount changed", func(t *testing.T) {
		existing, derived := sampleExisting(incoming)
		existing.IsVerified = true
		mutated := incoming
		mutated.AmountCents = -9999
		assert.Equal(t, domain.ActionSkipVerified, domain.PlanUpsert(existing, derived, mutated))
	})

	t.Run("identical row is a duplicate", func(t *testing.T) {
		existing, derived := sampleExisting(incoming)
		assert.Equal(t, domain.ActionSkipDuplicate, domain.PlanUpsert(existing, derived, incoming))
	})

	t.Run("amount change updates", func(t *testing.T) {
		existing, derived := sampleExisting(incoming)
		mutated := incoming
		mutated.AmountCents = -2600
		assert.Equal(t, domain.ActionUpdate, domain.PlanUpsert(existing, derived, mutated))
	})

	t.Run("category change updates", func(t *testing.T) {
		existing, derived := sampleExisting(incoming)
		mutated := incoming
		mutated.Categorization.CategoryKey = "FOOD.SNACKS"
		assert.Equal(t, domain.ActionUpdate, domain.PlanUpsert(existing, derived, mutated))
	})

	t.Run("missing derived row updates", func(t *testing.T) {
		existing, _ := sampleExisting(incoming)
		assert.Equal(t, domain.ActionUpdate, domain.PlanUpsert(existing, nil, incoming))
	})
}

func TestEffectiveKeySelection(t *testing.T) {
	revised := "FOOD.GROCERIES"
	revisedRationale := "actually groceries"

	c := domain.Categorization{
		CategoryKey: "FOOD.COFFEE_SHOPS",
		Rationale:   "coffee",
	}
	assert.Equal(t, "FOOD.COFFEE_SHOPS", c.EffectiveKey())
	assert.Equal(t, "coffee", c.EffectiveRationale())

	c.RevisedCategoryKey = &revised
	c.RevisedRationale = &revisedRationale
	assert.Equal(t, "FOOD.GROCERIES", c.EffectiveKey())
	assert.Equal(t, "actually groceries", c.EffectiveRationale())

	empty := ""
	c.RevisedCategoryKey = &empty
	assert.Equal(t, "FOOD.COFFEE_SHOPS", c.EffectiveKey())
}
