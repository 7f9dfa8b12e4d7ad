package services

import (
	"context"

	"github.com/finagent/finagent/internal/core/domain"
)

// CategorizerSvcFacade transforms normalized transactions into categorized
// ones, order preserving. Batch-only: single-transaction callers wrap in a
// one-element slice.
type CategorizerSvcFacade interface {
	Categorize(ctx context.Context, txns []domain.NormalizedTransaction) ([]domain.CategorizedTransaction, error)
}
