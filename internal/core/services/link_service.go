package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/core/ports"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
)

type linkService struct {
	repos      portsrepo.RepositoryProvider
	aggregator ports.AggregatorClient
	logger     *slog.Logger
}

// NewLinkService wires item bootstrap: link tokens, public token exchange and
// account discovery.
func NewLinkService(repos portsrepo.RepositoryProvider, aggregator ports.AggregatorClient, logger *slog.Logger) portssvc.LinkSvcFacade {
	return &linkService{repos: repos, aggregator: aggregator, logger: logger}
}

var _ portssvc.LinkSvcFacade = (*linkService)(nil)

func (s *linkService) CreateLinkToken(ctx context.Context, req ports.LinkTokenRequest) (*ports.LinkTokenResponse, error) {
	if req.UserID == "" {
		req.UserID = "finagent-owner"
	}
	if len(req.Products) == 0 && req.AccessToken == "" {
		req.Products = []string{"transactions"}
		req.RequiredIfSupportedProducts = []string{"investments"}
	}
	resp, err := s.aggregator.CreateLinkToken(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create link token: %w", err)
	}
	return resp, nil
}

// LinkItem exchanges a public token, discovers accounts, and persists the
// item. When the aggregator rotated the item id for an institution we
// already know, child rows are migrated to the new canonical id.
func (s *linkService) LinkItem(ctx context.Context, publicToken, institutionID, institutionName string) (*domain.AggregatorItem, error) {
	ex, err := s.aggregator.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange public token: %w", err)
	}

	// An existing item for the same institution under a different id means
	// the id rotated on a consent update.
	if existing, err := s.findByInstitution(ctx, institutionID); err != nil {
		return nil, err
	} else if existing != nil && existing.ItemID != ex.ItemID {
		moved, err := s.repos.Items().MigrateItemIdentity(ctx, existing.ItemID, ex.ItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to migrate item %s to %s: %w", existing.ItemID, ex.ItemID, err)
		}
		s.logger.Info("migrated rotated item id", "old", existing.ItemID, "new", ex.ItemID, "rows", moved)
	}

	item := domain.AggregatorItem{
		ItemID:          ex.ItemID,
		AccessToken:     ex.AccessToken,
		InstitutionID:   institutionID,
		InstitutionName: institutionName,
	}
	if err := s.repos.Items().SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save item %s: %w", ex.ItemID, err)
	}

	infos, err := s.aggregator.GetAccounts(ctx, ex.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for item %s: %w", ex.ItemID, err)
	}
	accounts := make([]domain.AggregatorAccount, 0, len(infos))
	for _, a := range infos {
		accounts = append(accounts, domain.AggregatorAccount{
			AccountID:     a.AccountID,
			ItemID:        ex.ItemID,
			Mask:          a.Mask,
			Type:          a.Type,
			Subtype:       a.Subtype,
			InstitutionID: a.InstitutionID,
		})
	}
	inserted, err := s.repos.Items().UpsertAccounts(ctx, accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert accounts for item %s: %w", ex.ItemID, err)
	}
	s.logger.Info("item linked", "item_id", ex.ItemID, "institution", institutionName, "accounts", len(accounts), "new_accounts", inserted)

	saved, err := s.repos.Items().FindItemByID(ctx, ex.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload item %s: %w", ex.ItemID, err)
	}
	return saved, nil
}

func (s *linkService) findByInstitution(ctx context.Context, institutionID string) (*domain.AggregatorItem, error) {
	items, err := s.repos.Items().ListItems(ctx)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	for i := range items {
		if items[i].InstitutionID == institutionID {
			return &items[i], nil
		}
	}
	return nil, nil
}
