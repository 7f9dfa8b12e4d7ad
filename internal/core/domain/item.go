package domain

import "time"

// AggregatorItem is one linked institution connection at the aggregator. The
// item id may rotate on consent updates; MigrateItemIdentity reassigns child
// rows to the canonical id.
type AggregatorItem struct {
	ItemID                   string     `json:"itemID"`
	AccessToken              string     `json:"-"`
	SyncCursor               *string    `json:"syncCursor,omitempty"`
	InvestmentsSyncedThrough *time.Time `json:"investmentsSyncedThrough,omitempty"`
	InstitutionID            string     `json:"institutionID"`
	InstitutionName          string     `json:"institutionName"`
	AuditFields
}

// AggregatorAccount is an account under an item. (InstitutionID, Mask) is the
// dedupe key at link time.
type AggregatorAccount struct {
	AccountID     string `json:"accountID"`
	ItemID        string `json:"itemID"`
	Mask          string `json:"mask"`
	Type          string `json:"type"`
	Subtype       string `json:"subtype"`
	InstitutionID string `json:"institutionID"`
}
