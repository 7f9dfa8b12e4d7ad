package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies where a transaction row was ingested from.
type Source string

const (
	SourceAggregatorBanking    Source = "AGGREGATOR_BANKING"
	SourceAggregatorInvestment Source = "AGGREGATOR_INVESTMENT"
)

// CategoryMethod records how a category was assigned to a transaction.
type CategoryMethod string

const (
	MethodLLM       CategoryMethod = "LLM"
	MethodManual    CategoryMethod = "MANUAL"
	MethodMigration CategoryMethod = "MIGRATION"
)

// ReportingMode controls whether an investment activity row participates in
// default spending analytics.
type ReportingMode string

const (
	ReportingIncludeDefault ReportingMode = "INCLUDE_DEFAULT"
	ReportingExcludeDefault ReportingMode = "EXCLUDE_DEFAULT"
)

// Transaction is a source transaction row. Identity is (ExternalID, Source).
// Once IsVerified is true the row is frozen for category, merchant and amount;
// only tagging remains permitted.
type Transaction struct {
	TransactionID      string    `json:"transactionID"`
	ExternalID         string    `json:"externalID"`
	Source             Source    `json:"source"`
	AccountID          string    `json:"accountID"`
	PostedAt           time.Time `json:"postedAt"`
	AmountCents        int64     `json:"amountCents"` // signed, minor units, aggregator sign convention preserved
	Currency           string    `json:"currency"`    // ISO-4217
	MerchantDescriptor string    `json:"merchantDescriptor"`
	MerchantID         *string   `json:"merchantID,omitempty"`
	CategoryID         *string   `json:"categoryID,omitempty"`
	Institution        string    `json:"institution"`
	IsVerified         bool      `json:"isVerified"`
	AuditFields
}

// DerivedTransaction is the 1:1 analytics projection of a Transaction.
type DerivedTransaction struct {
	TransactionID      string         `json:"transactionID"`
	CategoryKey        string         `json:"categoryKey"`
	CategoryModel      *string        `json:"categoryModel,omitempty"` // literal LLM model id; nil for manual/migration rows that never saw a model
	CategoryMethod     CategoryMethod `json:"categoryMethod"`
	CategoryAssignedAt time.Time      `json:"categoryAssignedAt"`
	ReportingMode      *ReportingMode `json:"reportingMode,omitempty"` // nil means INCLUDE_DEFAULT
	MerchantSummary    *string        `json:"merchantSummary,omitempty"`
}

// CategoryEvent is an append-only audit row. Exactly one event is written in
// the same store transaction as every category mutation.
type CategoryEvent struct {
	EventID       string         `json:"eventID"`
	TransactionID string         `json:"transactionID"`
	CategoryKey   string         `json:"categoryKey"`
	Method        CategoryMethod `json:"method"`
	Model         *string        `json:"model,omitempty"`
	Rationale     string         `json:"rationale"`
	AssignedAt    time.Time      `json:"assignedAt"`
}

// NormalizedTransaction is an aggregator transaction after normalization,
// ready for categorization. Quantity and Price are only populated for
// investment activity and are not persisted.
type NormalizedTransaction struct {
	ExternalID  string          `json:"externalID"`
	Source      Source          `json:"source"`
	AccountID   string          `json:"accountID"`
	PostedAt    time.Time       `json:"postedAt"`
	AmountCents int64           `json:"amountCents"`
	Currency    string          `json:"currency"`
	Descriptor  string          `json:"descriptor"`
	Institution string          `json:"institution"`
	Subtype     string          `json:"subtype,omitempty"`
	Quantity    decimal.Decimal `json:"quantity,omitempty"`
	Price       decimal.Decimal `json:"price,omitempty"`
}

// Categorization is the closed record an LLM round trip produces for one
// transaction. The revised_* fields are populated when the model self-revised
// within the single round trip.
type Categorization struct {
	CategoryKey        string   `json:"category_key"`
	Confidence         float64  `json:"confidence"`
	Rationale          string   `json:"rationale"`
	ModelUsed          string   `json:"model_used"`
	RevisedCategoryKey *string  `json:"revised_category_key,omitempty"`
	RevisedConfidence  *float64 `json:"revised_confidence,omitempty"`
	RevisedRationale   *string  `json:"revised_rationale,omitempty"`
	UsedWebSearch      bool     `json:"used_web_search,omitempty"`
	MerchantSummary    *string  `json:"merchant_summary,omitempty"`
}

// EffectiveKey returns the revised category key when present, else the
// original key.
func (c Categorization) EffectiveKey() string {
	if c.RevisedCategoryKey != nil && *c.RevisedCategoryKey != "" {
		return *c.RevisedCategoryKey
	}
	return c.CategoryKey
}

// EffectiveRationale returns the rationale matching EffectiveKey.
func (c Categorization) EffectiveRationale() string {
	if c.RevisedCategoryKey != nil && *c.RevisedCategoryKey != "" && c.RevisedRationale != nil {
		return *c.RevisedRationale
	}
	return c.Rationale
}

// CategorizedTransaction pairs a normalized transaction with its LLM
// categorization; this is the unit the persistence facade consumes.
type CategorizedTransaction struct {
	NormalizedTransaction
	Categorization
}

// UpsertAction is the decision the upsert engine takes for one incoming row.
type UpsertAction int

const (
	ActionInsert UpsertAction = iota
	ActionUpdate
	ActionSkipVerified
	ActionSkipDuplicate
)

// PlanUpsert decides what to do with an incoming categorized transaction given
// the current stored row (nil when absent) and its derived projection.
// Verified rows are never touched regardless of what changed upstream.
func PlanUpsert(existing *Transaction, derived *DerivedTransaction, incoming CategorizedTransaction) UpsertAction {
	if existing == nil {
		return ActionInsert
	}
	if existing.IsVerified {
		return ActionSkipVerified
	}
	if existing.AmountCents != incoming.AmountCents ||
		!existing.PostedAt.Equal(incoming.PostedAt) ||
		existing.Currency != incoming.Currency ||
		existing.MerchantDescriptor != incoming.Descriptor ||
		existing.AccountID != incoming.AccountID ||
		existing.Institution != incoming.Institution {
		return ActionUpdate
	}
	if derived == nil || derived.CategoryKey != incoming.EffectiveKey() {
		return ActionUpdate
	}
	return ActionSkipDuplicate
}

// RowOutcomeKind classifies what happened to one row during SaveTransactions.
type RowOutcomeKind string

const (
	OutcomeInserted        RowOutcomeKind = "inserted"
	OutcomeUpdated         RowOutcomeKind = "updated"
	OutcomeSkippedVerified RowOutcomeKind = "skipped_verified"
	OutcomeSkippedDup      RowOutcomeKind = "skipped_duplicate"
	OutcomeError           RowOutcomeKind = "error"
)

// RowOutcome reports the fate of a single row in a saved batch.
type RowOutcome struct {
	ExternalID string         `json:"externalID"`
	Source     Source         `json:"source"`
	Kind       RowOutcomeKind `json:"kind"`
	Err        error          `json:"-"`
}

// SaveCounts aggregates per-row outcomes for one committed batch.
type SaveCounts struct {
	Inserted         int `json:"inserted"`
	Updated          int `json:"updated"`
	SkippedVerified  int `json:"skippedVerified"`
	SkippedDuplicate int `json:"skippedDuplicate"`
	Removed          int `json:"removed"`
}

// RemovedTransaction identifies a row the aggregator signalled as removed.
// Hard deletion is permitted only through this signal.
type RemovedTransaction struct {
	ExternalID string `json:"externalID"`
	Source     Source `json:"source"`
}

// SaveResult is the return of SaveTransactions.
type SaveResult struct {
	Counts   SaveCounts   `json:"counts"`
	Outcomes []RowOutcome `json:"outcomes"`
}

// SyncSummary is returned by a per-item sync run.
type SyncSummary struct {
	ItemID                    string `json:"itemID"`
	Added                     int    `json:"added"`
	Modified                  int    `json:"modified"`
	Removed                   int    `json:"removed"`
	InvestmentAdded           int    `json:"investmentAdded"`
	InvestmentExcludedDefault int    `json:"investmentExcludedDefault"`
	ConsentRequired           bool   `json:"consentRequired"`
	PagesFetched              int    `json:"pagesFetched"`
}
