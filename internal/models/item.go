package models

import "time"

// AggregatorItem is the database shape of an aggregator item row.
type AggregatorItem struct {
	ItemID                   string     `db:"item_id"`
	AccessToken              string     `db:"access_token"`
	SyncCursor               *string    `db:"sync_cursor"`
	InvestmentsSyncedThrough *time.Time `db:"investments_synced_through"`
	InstitutionID            string     `db:"institution_id"`
	InstitutionName          string     `db:"institution_name"`
	CreatedAt                time.Time  `db:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at"`
}

// AggregatorAccount is the database shape of an account row under an item.
type AggregatorAccount struct {
	AccountID     string `db:"account_id"`
	ItemID        string `db:"item_id"`
	Mask          string `db:"mask"`
	Type          string `db:"type"`
	Subtype       string `db:"subtype"`
	InstitutionID string `db:"institution_id"`
}
