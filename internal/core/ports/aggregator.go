package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SyncTransactionsRequest is one page request against the incremental
// transaction stream. Cursor is empty for the first page of a new item.
type SyncTransactionsRequest struct {
	AccessToken string
	Cursor      string
	Count       int
}

// AggregatorTransaction is one banking transaction on the wire. Amount is in
// major units with the aggregator's sign convention, which is preserved
// end to end.
type AggregatorTransaction struct {
	TransactionID string
	AccountID     string
	PostedAt      time.Time
	Amount        decimal.Decimal
	Currency      string
	Name          string
	Pending       bool
}

// SyncTransactionsResponse is one page of the incremental stream.
type SyncTransactionsResponse struct {
	Added      []AggregatorTransaction
	Modified   []AggregatorTransaction
	Removed    []string // transaction ids
	NextCursor string
	HasMore    bool
}

// InvestmentTransaction is one investment activity row on the wire.
type InvestmentTransaction struct {
	InvestmentTransactionID string
	AccountID               string
	Date                    time.Time
	Name                    string
	Amount                  decimal.Decimal
	Currency                string
	Subtype                 string
	Quantity                decimal.Decimal
	Price                   decimal.Decimal
}

// LinkTokenRequest creates a link token; update mode when AccessToken is set.
type LinkTokenRequest struct {
	UserID                      string
	RedirectURI                 string
	Products                    []string
	RequiredIfSupportedProducts []string
	AccessToken                 string
}

// LinkTokenResponse carries the short-lived link token.
type LinkTokenResponse struct {
	LinkToken  string
	Expiration time.Time
}

// ExchangeTokenResponse is the result of exchanging a public token.
type ExchangeTokenResponse struct {
	AccessToken string
	ItemID      string
}

// AccountInfo is one account as reported by the aggregator at link time.
type AccountInfo struct {
	AccountID     string
	Mask          string
	Type          string
	Subtype       string
	InstitutionID string
}

// AggregatorClient is a stateless wrapper over the aggregator wire. Errors
// are mapped into the closed apperrors set (rate_limited, consent_required,
// pagination_mutated, auth_invalid, transport). Retries are caller-owned.
type AggregatorClient interface {
	SyncTransactions(ctx context.Context, req SyncTransactionsRequest) (*SyncTransactionsResponse, error)
	GetInvestmentTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]InvestmentTransaction, error)
	CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeTokenResponse, error)
	GetAccounts(ctx context.Context, accessToken string) ([]AccountInfo, error)
}
