package repositories

import (
	"context"

	"github.com/finagent/finagent/internal/core/domain"
)

// CategoryReader defines read operations for taxonomy rows. The taxonomy
// loader builds an in-memory tree from these; nothing writes categories here
// (taxonomy nodes are replaced atomically by an external generator).
type CategoryReader interface {
	// ListCategories returns every taxonomy node with its parent key joined in.
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// FindCategoryByKey retrieves a single node by its dotted key.
	FindCategoryByKey(ctx context.Context, key string) (*domain.Category, error)
}

// MerchantReader defines read operations for merchant data. Merchant creation
// happens inside SaveTransactions; merchants are never deleted.
type MerchantReader interface {
	FindMerchantByID(ctx context.Context, merchantID string) (*domain.Merchant, error)
	FindMerchantByNormalizedName(ctx context.Context, normalizedName string) (*domain.Merchant, error)
	ListMerchants(ctx context.Context) ([]domain.Merchant, error)
}

// TagReader defines read operations for tags.
type TagReader interface {
	ListTagsForTransaction(ctx context.Context, transactionID string) ([]domain.Tag, error)
}
