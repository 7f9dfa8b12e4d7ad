package services

import (
	"context"

	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/core/ports/repositories"
)

// TaxonomySvcFacade loads an immutable taxonomy snapshot together with a
// store-backed category lookup. Callers hold both for the duration of one
// run; the tree itself never references the store.
type TaxonomySvcFacade interface {
	Load(ctx context.Context) (*domain.Taxonomy, repositories.CategoryLookup, error)
}
