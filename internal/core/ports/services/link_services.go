package services

import (
	"context"

	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/core/ports"
)

// LinkSvcFacade bootstraps aggregator items: link token creation, public
// token exchange, and account discovery with (institution_id, mask) dedupe.
type LinkSvcFacade interface {
	CreateLinkToken(ctx context.Context, req ports.LinkTokenRequest) (*ports.LinkTokenResponse, error)
	LinkItem(ctx context.Context, publicToken, institutionID, institutionName string) (*domain.AggregatorItem, error)
}
