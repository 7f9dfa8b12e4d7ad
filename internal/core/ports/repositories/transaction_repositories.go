package repositories

import (
	"context"

	"github.com/finagent/finagent/internal/core/domain"
)

// CategoryLookup resolves a taxonomy key to its store category id. It closes
// over the store and a taxonomy instance; persistence consumes it so the
// taxonomy itself never references the store.
type CategoryLookup func(key string) (string, bool)

// TransactionReader defines read operations for transaction data.
type TransactionReader interface {
	// FindTransactionByExternalID retrieves a row by its dedupe identity.
	FindTransactionByExternalID(ctx context.Context, source domain.Source, externalID string) (*domain.Transaction, error)

	// FindDerivedByTransactionID retrieves the analytics projection for a row.
	FindDerivedByTransactionID(ctx context.Context, transactionID string) (*domain.DerivedTransaction, error)

	// ListEventsByTransactionID retrieves the append-only category audit trail
	// for a row, oldest first.
	ListEventsByTransactionID(ctx context.Context, transactionID string) ([]domain.CategoryEvent, error)
}

// TransactionWriter is the single write authority over source transactions,
// derived transactions, merchants, tags and category events.
type TransactionWriter interface {
	// SaveTransactions upserts a batch of categorized transactions and
	// hard-deletes the removed refs in one serializable store transaction.
	// The whole batch aborts when any row resolves to an invalid category.
	SaveTransactions(ctx context.Context, lookup CategoryLookup, txns []domain.CategorizedTransaction, removed []domain.RemovedTransaction) (domain.SaveResult, error)

	// BulkRecategorizeByMerchant moves every unverified row of a merchant to a
	// new category, appending one event per affected row. category_model from
	// a previous LLM run is preserved.
	BulkRecategorizeByMerchant(ctx context.Context, merchantID, newKey string, lookup CategoryLookup) (int, error)

	// ApplyTags idempotently upserts tags and link rows; returns the number of
	// new links. Tagging is permitted on verified rows.
	ApplyTags(ctx context.Context, transactionIDs []string, tagNames []string) (int, error)

	// DeleteByExternalIDs hard-deletes rows whose source matches; returns the
	// number removed.
	DeleteByExternalIDs(ctx context.Context, source domain.Source, externalIDs []string) (int, error)
}

// TransactionRepositoryFacade combines all transaction repository interfaces.
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
}
