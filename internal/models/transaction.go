package models

import "time"

// Transaction is the database shape of a source transaction row.
type Transaction struct {
	TransactionID      string    `db:"transaction_id"`
	ExternalID         string    `db:"external_id"`
	Source             string    `db:"source"`
	AccountID          string    `db:"account_id"`
	PostedAt           time.Time `db:"posted_at"`
	AmountCents        int64     `db:"amount_cents"`
	Currency           string    `db:"currency"`
	MerchantDescriptor string    `db:"merchant_descriptor"`
	MerchantID         *string   `db:"merchant_id"`
	CategoryID         *string   `db:"category_id"`
	Institution        string    `db:"institution"`
	IsVerified         bool      `db:"is_verified"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// DerivedTransaction is the database shape of the analytics projection.
type DerivedTransaction struct {
	TransactionID      string    `db:"transaction_id"`
	CategoryKey        string    `db:"category_key"`
	CategoryModel      *string   `db:"category_model"`
	CategoryMethod     string    `db:"category_method"`
	CategoryAssignedAt time.Time `db:"category_assigned_at"`
	ReportingMode      *string   `db:"reporting_mode"`
	MerchantSummary    *string   `db:"merchant_summary"`
}

// CategoryEvent is the database shape of one append-only audit row.
type CategoryEvent struct {
	EventID       string    `db:"event_id"`
	TransactionID string    `db:"transaction_id"`
	CategoryKey   string    `db:"category_key"`
	Method        string    `db:"method"`
	Model         *string   `db:"model"`
	Rationale     string    `db:"rationale"`
	AssignedAt    time.Time `db:"assigned_at"`
}
