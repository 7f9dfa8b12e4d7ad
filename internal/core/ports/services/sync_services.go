package services

import (
	"context"

	"github.com/finagent/finagent/internal/core/domain"
)

// SyncSvcFacade drives incremental ingestion. SyncItem serializes with itself
// per item; SyncAll fans out across items with a bounded worker pool.
type SyncSvcFacade interface {
	SyncItem(ctx context.Context, itemID string) (domain.SyncSummary, error)
	SyncAll(ctx context.Context) ([]domain.SyncSummary, error)
}

// RecategorizeSvcFacade exposes bulk recategorization and tagging to the
// admin surface.
type RecategorizeSvcFacade interface {
	RecategorizeMerchant(ctx context.Context, merchantID, newCategoryKey string) (int, error)
	TagTransactions(ctx context.Context, transactionIDs, tagNames []string) (int, error)
}
