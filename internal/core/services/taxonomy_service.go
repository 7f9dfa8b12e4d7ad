package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finagent/finagent/internal/core/domain"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
)

type taxonomyService struct {
	categories portsrepo.CategoryReader
	logger     *slog.Logger
}

// NewTaxonomyService builds the loader over the category reader.
func NewTaxonomyService(categories portsrepo.CategoryReader, logger *slog.Logger) portssvc.TaxonomySvcFacade {
	return &taxonomyService{categories: categories, logger: logger}
}

var _ portssvc.TaxonomySvcFacade = (*taxonomyService)(nil)

// Load reads every category row and freezes it into an immutable tree plus a
// key-to-id lookup closure. One call per sync run keeps the snapshot stable
// across a batch.
func (s *taxonomyService) Load(ctx context.Context) (*domain.Taxonomy, portsrepo.CategoryLookup, error) {
	rows, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load taxonomy rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("taxonomy is empty; refusing to categorize against nothing")
	}

	tax := domain.NewTaxonomy(rows)

	ids := make(map[string]string, len(rows))
	for _, row := range rows {
		ids[row.Key] = row.CategoryID
	}
	lookup := func(key string) (string, bool) {
		id, ok := ids[key]
		return id, ok
	}

	s.logger.Debug("taxonomy loaded", "nodes", tax.Len(), "digest", tax.Digest())
	return tax, lookup, nil
}
