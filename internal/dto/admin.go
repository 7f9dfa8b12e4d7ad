package dto

import (
	"time"

	"github.com/finagent/finagent/internal/core/domain"
)

// CreateLinkTokenRequest starts a link flow; AccessToken switches to update
// mode for an existing item.
type CreateLinkTokenRequest struct {
	RedirectURI string   `json:"redirectUri"`
	Products    []string `json:"products"`
	AccessToken string   `json:"accessToken"`
}

type CreateLinkTokenResponse struct {
	LinkToken  string    `json:"linkToken"`
	Expiration time.Time `json:"expiration"`
}

// LinkItemRequest completes a link flow with the public token handed back by
// the aggregator widget.
type LinkItemRequest struct {
	PublicToken     string `json:"publicToken" binding:"required"`
	InstitutionID   string `json:"institutionId" binding:"required"`
	InstitutionName string `json:"institutionName" binding:"required"`
}

type LinkItemResponse struct {
	ItemID          string `json:"itemId"`
	InstitutionID   string `json:"institutionId"`
	InstitutionName string `json:"institutionName"`
}

// RecategorizeMerchantRequest moves every unverified transaction of a
// merchant to a new category.
type RecategorizeMerchantRequest struct {
	CategoryKey string `json:"categoryKey" binding:"required"`
}

type RecategorizeMerchantResponse struct {
	RowsAffected int `json:"rowsAffected"`
}

// TagTransactionsRequest applies tags to transactions.
type TagTransactionsRequest struct {
	TransactionIDs []string `json:"transactionIds" binding:"required"`
	TagNames       []string `json:"tagNames" binding:"required"`
}

type TagTransactionsResponse struct {
	NewLinks int `json:"newLinks"`
}

// TransactionDetailResponse bundles a transaction with its derived projection
// and audit trail for the admin surface.
type TransactionDetailResponse struct {
	Transaction domain.Transaction         `json:"transaction"`
	Derived     *domain.DerivedTransaction `json:"derived,omitempty"`
	Events      []domain.CategoryEvent     `json:"events"`
	Tags        []domain.Tag               `json:"tags"`
}

type MerchantResponse struct {
	MerchantID     string  `json:"merchantId"`
	NormalizedName string  `json:"normalizedName"`
	DisplayName    *string `json:"displayName,omitempty"`
}

func ToMerchantResponse(m domain.Merchant) MerchantResponse {
	return MerchantResponse{
		MerchantID:     m.MerchantID,
		NormalizedName: m.NormalizedName,
		DisplayName:    m.DisplayName,
	}
}
