package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finagent/finagent/internal/apperrors"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
)

type recategorizeService struct {
	repos      portsrepo.RepositoryProvider
	taxonomies portssvc.TaxonomySvcFacade
	logger     *slog.Logger
}

// NewRecategorizeService wires bulk recategorization and tagging.
func NewRecategorizeService(repos portsrepo.RepositoryProvider, taxonomies portssvc.TaxonomySvcFacade, logger *slog.Logger) portssvc.RecategorizeSvcFacade {
	return &recategorizeService{repos: repos, taxonomies: taxonomies, logger: logger}
}

var _ portssvc.RecategorizeSvcFacade = (*recategorizeService)(nil)

// RecategorizeMerchant moves every unverified transaction of a merchant to
// newCategoryKey. Returns the number of rows affected.
func (s *recategorizeService) RecategorizeMerchant(ctx context.Context, merchantID, newCategoryKey string) (int, error) {
	tax, lookup, err := s.taxonomies.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !tax.IsValidKey(newCategoryKey) {
		return 0, fmt.Errorf("category %q: %w", newCategoryKey, apperrors.ErrInvalidCategory)
	}
	if _, err := s.repos.Merchants().FindMerchantByID(ctx, merchantID); err != nil {
		return 0, fmt.Errorf("merchant %s: %w", merchantID, err)
	}

	n, err := s.repos.Transactions().BulkRecategorizeByMerchant(ctx, merchantID, newCategoryKey, lookup)
	if err != nil {
		return 0, fmt.Errorf("failed to recategorize merchant %s: %w", merchantID, err)
	}
	s.logger.Info("bulk recategorized merchant", "merchant_id", merchantID, "category", newCategoryKey, "rows", n)
	return n, nil
}

// TagTransactions applies the named tags to the given transactions,
// idempotently. Returns the number of new tag links.
func (s *recategorizeService) TagTransactions(ctx context.Context, transactionIDs, tagNames []string) (int, error) {
	if len(transactionIDs) == 0 || len(tagNames) == 0 {
		return 0, fmt.Errorf("transaction ids and tag names are both required: %w", apperrors.ErrValidation)
	}
	n, err := s.repos.Transactions().ApplyTags(ctx, transactionIDs, tagNames)
	if err != nil {
		return 0, fmt.Errorf("failed to apply tags: %w", err)
	}
	return n, nil
}
