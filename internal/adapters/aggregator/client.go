// Package aggregator implements the stateless HTTP client for the bank
// aggregator wire. It maps the documented error codes into the closed
// apperrors set and performs no retries of its own.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/ports"
	"github.com/shopspring/decimal"
)

// Client talks JSON over HTTP to the aggregator. Credentials ride in the
// request body the way the aggregator expects, never in headers.
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.AggregatorClient = (*Client)(nil)

// NewClient builds a client against baseURL with a per-call timeout.
func NewClient(baseURL, clientID, secret string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		clientID:   clientID,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type wireError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// mapped returns the typed error for a wire error code. Everything not in
// the documented set is a transport failure as far as callers care.
func (e wireError) mapped(status int) error {
	var sentinel error
	switch e.ErrorCode {
	case "RATE_LIMIT_EXCEEDED":
		sentinel = apperrors.ErrRateLimited
	case "ADDITIONAL_CONSENT_REQUIRED":
		sentinel = apperrors.ErrConsentRequired
	case "TRANSACTIONS_SYNC_MUTATION_DURING_PAGINATION":
		sentinel = apperrors.ErrPaginationMutated
	case "INVALID_ACCESS_TOKEN", "ITEM_LOGIN_REQUIRED", "INVALID_API_KEYS":
		sentinel = apperrors.ErrAuthInvalid
	default:
		sentinel = apperrors.ErrTransport
	}
	return fmt.Errorf("aggregator %s (%s, http %d): %s: %w", e.ErrorCode, e.ErrorType, status, e.ErrorMessage, sentinel)
}

// post sends one JSON request and decodes the response into out. Body maps
// always get client credentials merged in.
func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	body["client_id"] = c.clientID
	body["secret"] = c.secret

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("aggregator %s: %v: %w", path, err, apperrors.ErrTransport)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("aggregator %s: read body: %v: %w", path, err, apperrors.ErrTransport)
	}

	if resp.StatusCode != http.StatusOK {
		var we wireError
		if err := json.Unmarshal(raw, &we); err != nil || we.ErrorCode == "" {
			return fmt.Errorf("aggregator %s: http %d: %w", path, resp.StatusCode, apperrors.ErrTransport)
		}
		c.logger.Warn("aggregator error response", "path", path, "error_code", we.ErrorCode, "status", resp.StatusCode)
		return we.mapped(resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("aggregator %s: decode response: %v: %w", path, err, apperrors.ErrTransport)
	}
	return nil
}

type wireTransaction struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	ISOCurrency   string          `json:"iso_currency_code"`
	Name          string          `json:"name"`
	Pending       bool            `json:"pending"`
}

func (w wireTransaction) toPort() (ports.AggregatorTransaction, error) {
	posted, err := time.Parse("2006-01-02", w.Date)
	if err != nil {
		return ports.AggregatorTransaction{}, fmt.Errorf("transaction %s: bad date %q: %w", w.TransactionID, w.Date, apperrors.ErrTransport)
	}
	return ports.AggregatorTransaction{
		TransactionID: w.TransactionID,
		AccountID:     w.AccountID,
		PostedAt:      posted,
		Amount:        w.Amount,
		Currency:      w.ISOCurrency,
		Name:          w.Name,
		Pending:       w.Pending,
	}, nil
}

func (c *Client) SyncTransactions(ctx context.Context, req ports.SyncTransactionsRequest) (*ports.SyncTransactionsResponse, error) {
	body := map[string]any{
		"access_token": req.AccessToken,
		"count":        req.Count,
	}
	if req.Cursor != "" {
		body["cursor"] = req.Cursor
	}

	var wire struct {
		Added    []wireTransaction `json:"added"`
		Modified []wireTransaction `json:"modified"`
		Removed  []struct {
			TransactionID string `json:"transaction_id"`
		} `json:"removed"`
		NextCursor string `json:"next_cursor"`
		HasMore    bool   `json:"has_more"`
	}
	if err := c.post(ctx, "/transactions/sync", body, &wire); err != nil {
		return nil, err
	}

	out := &ports.SyncTransactionsResponse{
		NextCursor: wire.NextCursor,
		HasMore:    wire.HasMore,
	}
	for _, w := range wire.Added {
		t, err := w.toPort()
		if err != nil {
			return nil, err
		}
		out.Added = append(out.Added, t)
	}
	for _, w := range wire.Modified {
		t, err := w.toPort()
		if err != nil {
			return nil, err
		}
		out.Modified = append(out.Modified, t)
	}
	for _, w := range wire.Removed {
		out.Removed = append(out.Removed, w.TransactionID)
	}
	return out, nil
}

func (c *Client) GetInvestmentTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]ports.InvestmentTransaction, error) {
	const pageSize = 500

	var all []ports.InvestmentTransaction
	offset := 0
	for {
		body := map[string]any{
			"access_token": accessToken,
			"start_date":   start.UTC().Format("2006-01-02"),
			"end_date":     end.UTC().Format("2006-01-02"),
			"options": map[string]any{
				"count":  pageSize,
				"offset": offset,
			},
		}
		var wire struct {
			InvestmentTransactions []struct {
				InvestmentTransactionID string          `json:"investment_transaction_id"`
				AccountID               string          `json:"account_id"`
				Date                    string          `json:"date"`
				Name                    string          `json:"name"`
				Amount                  decimal.Decimal `json:"amount"`
				ISOCurrency             string          `json:"iso_currency_code"`
				Subtype                 string          `json:"subtype"`
				Quantity                decimal.Decimal `json:"quantity"`
				Price                   decimal.Decimal `json:"price"`
			} `json:"investment_transactions"`
			Total int `json:"total_investment_transactions"`
		}
		if err := c.post(ctx, "/investments/transactions/get", body, &wire); err != nil {
			return nil, err
		}
		for _, w := range wire.InvestmentTransactions {
			date, err := time.Parse("2006-01-02", w.Date)
			if err != nil {
				return nil, fmt.Errorf("investment transaction %s: bad date %q: %w", w.InvestmentTransactionID, w.Date, apperrors.ErrTransport)
			}
			all = append(all, ports.InvestmentTransaction{
				InvestmentTransactionID: w.InvestmentTransactionID,
				AccountID:               w.AccountID,
				Date:                    date,
				Name:                    w.Name,
				Amount:                  w.Amount,
				Currency:                w.ISOCurrency,
				Subtype:                 w.Subtype,
				Quantity:                w.Quantity,
				Price:                   w.Price,
			})
		}
		offset += len(wire.InvestmentTransactions)
		if offset >= wire.Total || len(wire.InvestmentTransactions) == 0 {
			return all, nil
		}
	}
}

func (c *Client) CreateLinkToken(ctx context.Context, req ports.LinkTokenRequest) (*ports.LinkTokenResponse, error) {
	body := map[string]any{
		"user":          map[string]any{"client_user_id": req.UserID},
		"client_name":   "finagent",
		"language":      "en",
		"country_codes": []string{"US"},
	}
	if req.RedirectURI != "" {
		body["redirect_uri"] = req.RedirectURI
	}
	if len(req.Products) > 0 {
		body["products"] = req.Products
	}
	if len(req.RequiredIfSupportedProducts) > 0 {
		body["required_if_supported_products"] = req.RequiredIfSupportedProducts
	}
	// Update mode reuses the existing access token instead of products.
	if req.AccessToken != "" {
		body["access_token"] = req.AccessToken
		delete(body, "products")
	}

	var wire struct {
		LinkToken  string    `json:"link_token"`
		Expiration time.Time `json:"expiration"`
	}
	if err := c.post(ctx, "/link/token/create", body, &wire); err != nil {
		return nil, err
	}
	return &ports.LinkTokenResponse{LinkToken: wire.LinkToken, Expiration: wire.Expiration}, nil
}

func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ports.ExchangeTokenResponse, error) {
	var wire struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	if err := c.post(ctx, "/item/public_token/exchange", map[string]any{"public_token": publicToken}, &wire); err != nil {
		return nil, err
	}
	return &ports.ExchangeTokenResponse{AccessToken: wire.AccessToken, ItemID: wire.ItemID}, nil
}

func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]ports.AccountInfo, error) {
	var wire struct {
		Accounts []struct {
			AccountID string `json:"account_id"`
			Mask      string `json:"mask"`
			Type      string `json:"type"`
			Subtype   string `json:"subtype"`
		} `json:"accounts"`
		Item struct {
			InstitutionID string `json:"institution_id"`
		} `json:"item"`
	}
	if err := c.post(ctx, "/accounts/get", map[string]any{"access_token": accessToken}, &wire); err != nil {
		return nil, err
	}
	out := make([]ports.AccountInfo, 0, len(wire.Accounts))
	for _, a := range wire.Accounts {
		out = append(out, ports.AccountInfo{
			AccountID:     a.AccountID,
			Mask:          a.Mask,
			Type:          a.Type,
			Subtype:       a.Subtype,
			InstitutionID: wire.Item.InstitutionID,
		})
	}
	return out, nil
}
