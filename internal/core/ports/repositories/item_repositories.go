package repositories

import (
	"context"
	"time"

	"github.com/finagent/finagent/internal/core/domain"
)

// ItemReader defines read operations for aggregator items.
type ItemReader interface {
	FindItemByID(ctx context.Context, itemID string) (*domain.AggregatorItem, error)
	ListItems(ctx context.Context) ([]domain.AggregatorItem, error)
}

// ItemWriter defines write operations for aggregator items and their
// accounts. Cursor and watermark are single-writer per item; per-item
// serialization is the caller's responsibility.
type ItemWriter interface {
	SaveItem(ctx context.Context, item domain.AggregatorItem) error

	// UpdateSyncCursor stores the banking cursor. Called only after the batch
	// behind it has committed.
	UpdateSyncCursor(ctx context.Context, itemID, cursor string) error

	// UpdateInvestmentsSyncedThrough advances the investments watermark.
	UpdateInvestmentsSyncedThrough(ctx context.Context, itemID string, through time.Time) error

	// MigrateItemIdentity reassigns all child rows from a rotated item id to
	// the canonical one. Idempotent.
	MigrateItemIdentity(ctx context.Context, oldItemID, newItemID string) (int, error)

	// UpsertAccounts dedupes accounts by (institution_id, mask) at link time;
	// returns the number of newly inserted accounts.
	UpsertAccounts(ctx context.Context, accounts []domain.AggregatorAccount) (int, error)
}

// ItemRepositoryFacade combines item reader and writer.
type ItemRepositoryFacade interface {
	ItemReader
	ItemWriter
}
