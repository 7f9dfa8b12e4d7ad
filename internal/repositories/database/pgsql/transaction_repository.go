package pgsql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/domain"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	"github.com/finagent/finagent/internal/models"
	"github.com/finagent/finagent/internal/utils/mapping"
	"github.com/finagent/finagent/internal/utils/merchantnorm"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxTransactionRepository is the persistence facade: the single write
// authority over source transactions, derived transactions, merchants, tags
// and category events.
type PgxTransactionRepository struct {
	BaseRepository
	logger *slog.Logger
}

func newPgxTransactionRepository(pool *pgxpool.Pool, logger *slog.Logger) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
		logger:         logger,
	}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

const transactionColumns = `transaction_id, external_id, source, account_id, posted_at, amount_cents, currency, merchant_descriptor, merchant_id, category_id, institution, is_verified, created_at, updated_at`

// SaveTransactions upserts a batch of categorized transactions and
// hard-deletes the removed refs within one serializable transaction. The
// batch commits or fails as a unit: an invalid category aborts the whole
// batch so the sync cursor never advances past it.
func (r *PgxTransactionRepository) SaveTransactions(ctx context.Context, lookup portsrepo.CategoryLookup, txns []domain.CategorizedTransaction, removed []domain.RemovedTransaction) (domain.SaveResult, error) {
	if lookup == nil {
		return domain.SaveResult{}, fmt.Errorf("category lookup is required: %w", apperrors.ErrValidation)
	}

	tx, err := r.BeginSerializable(ctx)
	if err != nil {
		return domain.SaveResult{}, err
	}
	defer r.Rollback(ctx, tx)

	now := time.Now().UTC()
	var result domain.SaveResult

	for _, in := range txns {
		key := in.EffectiveKey()
		categoryID, ok := lookup(key)
		if !ok {
			return domain.SaveResult{}, fmt.Errorf("transaction %s/%s: category %q: %w", in.Source, in.ExternalID, key, apperrors.ErrInvalidCategory)
		}

		outcome, err := r.upsertOne(ctx, tx, in, categoryID, now)
		if err != nil {
			return domain.SaveResult{}, err
		}
		result.Outcomes = append(result.Outcomes, outcome)
		switch outcome.Kind {
		case domain.OutcomeInserted:
			result.Counts.Inserted++
		case domain.OutcomeUpdated:
			result.Counts.Updated++
		case domain.OutcomeSkippedVerified:
			result.Counts.SkippedVerified++
		case domain.OutcomeSkippedDup:
			result.Counts.SkippedDuplicate++
		}
	}

	for _, rm := range removed {
		tag, err := tx.Exec(ctx, `DELETE FROM transactions WHERE external_id = $1 AND source = $2`, rm.ExternalID, string(rm.Source))
		if err != nil {
			return domain.SaveResult{}, fmt.Errorf("failed to delete removed transaction %s/%s: %w", rm.Source, rm.ExternalID, err)
		}
		result.Counts.Removed += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.SaveResult{}, fmt.Errorf("%w: %v", apperrors.ErrStoreCommitFailed, err)
	}
	return result, nil
}

// upsertOne dispatches one incoming row. A unique violation from a concurrent
// writer rolls back to a savepoint, re-reads, and re-dispatches via the found
// branch; the race is never surfaced.
func (r *PgxTransactionRepository) upsertOne(ctx context.Context, tx pgx.Tx, in domain.CategorizedTransaction, categoryID string, now time.Time) (domain.RowOutcome, error) {
	outcome := domain.RowOutcome{ExternalID: in.ExternalID, Source: in.Source}

	for attempt := 0; ; attempt++ {
		existing, derived, err := r.lockExisting(ctx, tx, in.Source, in.ExternalID)
		if err != nil {
			return outcome, err
		}

		switch domain.PlanUpsert(existing, derived, in) {
		case domain.ActionInsert:
			err := r.insertRow(ctx, tx, in, categoryID, now)
			if err != nil && isUniqueViolation(err) && attempt == 0 {
				continue // concurrent writer inserted first; re-read and re-dispatch
			}
			if err != nil {
				return outcome, err
			}
			outcome.Kind = domain.OutcomeInserted
			return outcome, nil

		case domain.ActionSkipVerified:
			outcome.Kind = domain.OutcomeSkippedVerified
			return outcome, nil

		case domain.ActionSkipDuplicate:
			outcome.Kind = domain.OutcomeSkippedDup
			return outcome, nil

		case domain.ActionUpdate:
			if err := r.updateRow(ctx, tx, *existing, derived, in, categoryID, now); err != nil {
				return outcome, err
			}
			outcome.Kind = domain.OutcomeUpdated
			return outcome, nil
		}
	}
}

// lockExisting reads the current row (and its derived projection) under FOR
// UPDATE so the rest of the dispatch sees a stable snapshot.
func (r *PgxTransactionRepository) lockExisting(ctx context.Context, tx pgx.Tx, source domain.Source, externalID string) (*domain.Transaction, *domain.DerivedTransaction, error) {
	var m models.Transaction
	err := tx.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE external_id = $1 AND source = $2
		FOR UPDATE`, externalID, string(source)).Scan(
		&m.TransactionID, &m.ExternalID, &m.Source, &m.AccountID, &m.PostedAt,
		&m.AmountCents, &m.Currency, &m.MerchantDescriptor, &m.MerchantID,
		&m.CategoryID, &m.Institution, &m.IsVerified, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read transaction %s/%s: %w", source, externalID, err)
	}

	txn := mapping.ToDomainTransaction(m)

	var dm models.DerivedTransaction
	err = tx.QueryRow(ctx, `
		SELECT transaction_id, category_key, category_model, category_method, category_assigned_at, reporting_mode, merchant_summary
		FROM derived_transactions
		WHERE transaction_id = $1`, m.TransactionID).Scan(
		&dm.TransactionID, &dm.CategoryKey, &dm.CategoryModel, &dm.CategoryMethod,
		&dm.CategoryAssignedAt, &dm.ReportingMode, &dm.MerchantSummary,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &txn, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read derived transaction %s: %w", m.TransactionID, err)
	}
	derived := mapping.ToDomainDerivedTransaction(dm)
	return &txn, &derived, nil
}

func (r *PgxTransactionRepository) insertRow(ctx context.Context, tx pgx.Tx, in domain.CategorizedTransaction, categoryID string, now time.Time) error {
	// Savepoint so a unique-violation race only rolls back this row, not the
	// whole batch.
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}
	defer func() { _ = sp.Rollback(ctx) }()

	merchantID, err := r.findOrCreateMerchant(ctx, sp, in.Descriptor, now)
	if err != nil {
		return err
	}

	transactionID := uuid.NewString()
	_, err = sp.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		transactionID, in.ExternalID, string(in.Source), in.AccountID, in.PostedAt,
		in.AmountCents, in.Currency, in.Descriptor, merchantID, categoryID,
		in.Institution, false, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s/%s: %w", in.Source, in.ExternalID, err)
	}

	if err := r.writeDerived(ctx, sp, transactionID, in, now, true); err != nil {
		return err
	}
	if err := r.appendEvent(ctx, sp, transactionID, in, now); err != nil {
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint for %s/%s: %w", in.Source, in.ExternalID, err)
	}
	return nil
}

func (r *PgxTransactionRepository) updateRow(ctx context.Context, tx pgx.Tx, existing domain.Transaction, derived *domain.DerivedTransaction, in domain.CategorizedTransaction, categoryID string, now time.Time) error {
	merchantID, err := r.findOrCreateMerchant(ctx, tx, in.Descriptor, now)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE transactions
		SET account_id = $1, posted_at = $2, amount_cents = $3, currency = $4,
		    merchant_descriptor = $5, merchant_id = $6, category_id = $7,
		    institution = $8, updated_at = $9
		WHERE transaction_id = $10`,
		in.AccountID, in.PostedAt, in.AmountCents, in.Currency,
		in.Descriptor, merchantID, categoryID, in.Institution, now,
		existing.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", existing.TransactionID, err)
	}

	categoryChanged := derived == nil || derived.CategoryKey != in.EffectiveKey()
	if err := r.writeDerived(ctx, tx, existing.TransactionID, in, now, categoryChanged); err != nil {
		return err
	}
	if categoryChanged {
		if err := r.appendEvent(ctx, tx, existing.TransactionID, in, now); err != nil {
			return err
		}
	}
	return nil
}

// writeDerived upserts the analytics projection. When the effective category
// changed, the category columns move to the fresh LLM result; reporting mode
// and merchant summary are always refreshed (a fresh run without web search
// is authoritative over a previous summary).
func (r *PgxTransactionRepository) writeDerived(ctx context.Context, tx pgx.Tx, transactionID string, in domain.CategorizedTransaction, now time.Time, categoryChanged bool) error {
	mode := reportingModeFor(in)
	summary := merchantSummaryFor(in)

	if categoryChanged {
		_, err := tx.Exec(ctx, `
			INSERT INTO derived_transactions (transaction_id, category_key, category_model, category_method, category_assigned_at, reporting_mode, merchant_summary)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (transaction_id) DO UPDATE
			SET category_key = EXCLUDED.category_key,
			    category_model = EXCLUDED.category_model,
			    category_method = EXCLUDED.category_method,
			    category_assigned_at = EXCLUDED.category_assigned_at,
			    reporting_mode = EXCLUDED.reporting_mode,
			    merchant_summary = EXCLUDED.merchant_summary`,
			transactionID, in.EffectiveKey(), in.ModelUsed, string(domain.MethodLLM), now, mode, summary,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert derived transaction %s: %w", transactionID, err)
		}
		return nil
	}

	_, err := tx.Exec(ctx, `
		UPDATE derived_transactions
		SET reporting_mode = $1, merchant_summary = $2
		WHERE transaction_id = $3`,
		mode, summary, transactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to refresh derived transaction %s: %w", transactionID, err)
	}
	return nil
}

func (r *PgxTransactionRepository) appendEvent(ctx context.Context, tx pgx.Tx, transactionID string, in domain.CategorizedTransaction, now time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transaction_category_events (event_id, transaction_id, category_key, method, model, rationale, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), transactionID, in.EffectiveKey(), string(domain.MethodLLM), in.ModelUsed, in.EffectiveRationale(), now,
	)
	if err != nil {
		return fmt.Errorf("failed to append category event for %s: %w", transactionID, err)
	}
	return nil
}

// findOrCreateMerchant resolves a merchant by the normalized descriptor.
// Creation never overwrites display names.
func (r *PgxTransactionRepository) findOrCreateMerchant(ctx context.Context, tx pgx.Tx, descriptor string, now time.Time) (string, error) {
	normalized := merchantnorm.Normalize(descriptor)

	var merchantID string
	err := tx.QueryRow(ctx, `
		INSERT INTO merchants (merchant_id, normalized_name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (normalized_name) DO NOTHING
		RETURNING merchant_id`,
		uuid.NewString(), normalized, now,
	).Scan(&merchantID)
	if err == nil {
		return merchantID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to create merchant %q: %w", normalized, err)
	}

	err = tx.QueryRow(ctx, `SELECT merchant_id FROM merchants WHERE normalized_name = $1`, normalized).Scan(&merchantID)
	if err != nil {
		return "", fmt.Errorf("failed to find merchant %q: %w", normalized, err)
	}
	return merchantID, nil
}

func reportingModeFor(in domain.CategorizedTransaction) *string {
	if in.Source != domain.SourceAggregatorInvestment {
		return nil
	}
	mode := string(domain.ClassifyReportingMode(in.Descriptor, in.Subtype))
	return &mode
}

func merchantSummaryFor(in domain.CategorizedTransaction) *string {
	if in.UsedWebSearch && in.MerchantSummary != nil {
		return in.MerchantSummary
	}
	return nil
}

// recategorizeDerivedSQL flips the manual override columns on every
// unverified row of a merchant. category_model is deliberately not in the
// SET list: the prior LLM attribution survives a manual recategorization.
const recategorizeDerivedSQL = `
	UPDATE derived_transactions dt
	SET category_key = $1, category_method = $2, category_assigned_at = $3
	FROM transactions t
	WHERE t.transaction_id = dt.transaction_id
	  AND t.merchant_id = $4
	  AND t.is_verified = FALSE
	RETURNING dt.transaction_id`

const manualEventSQL = `
	INSERT INTO transaction_category_events (event_id, transaction_id, category_key, method, model, rationale, assigned_at)
	VALUES ($1, $2, $3, $4, NULL, $5, $6)`

// queueManualEvents queues one MANUAL event per affected row. The statement
// pins model to NULL; a manual override carries no model attribution.
func queueManualEvents(batch *pgx.Batch, transactionIDs []string, key, rationale string, at time.Time) {
	for _, id := range transactionIDs {
		batch.Queue(manualEventSQL, uuid.NewString(), id, key, string(domain.MethodManual), rationale, at)
	}
}

// BulkRecategorizeByMerchant moves every unverified row of a merchant to the
// new category in a single pass, appending one MANUAL event per affected row.
func (r *PgxTransactionRepository) BulkRecategorizeByMerchant(ctx context.Context, merchantID, newKey string, lookup portsrepo.CategoryLookup) (int, error) {
	categoryID, ok := lookup(newKey)
	if !ok {
		return 0, fmt.Errorf("category %q: %w", newKey, apperrors.ErrInvalidCategory)
	}

	tx, err := r.BeginSerializable(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	now := time.Now().UTC()

	rows, err := tx.Query(ctx, recategorizeDerivedSQL,
		newKey, string(domain.MethodManual), now, merchantID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk recategorize merchant %s: %w", merchantID, err)
	}
	var transactionIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan recategorized row: %w", err)
		}
		transactionIDs = append(transactionIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating recategorized rows: %w", err)
	}

	if len(transactionIDs) == 0 {
		if err := tx.Commit(ctx); err != nil {
			return 0, fmt.Errorf("%w: %v", apperrors.ErrStoreCommitFailed, err)
		}
		return 0, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE transactions
		SET category_id = $1, updated_at = $2
		WHERE transaction_id = ANY($3)`,
		categoryID, now, transactionIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update source rows for merchant %s: %w", merchantID, err)
	}

	batch := &pgx.Batch{}
	queueManualEvents(batch, transactionIDs, newKey, "bulk recategorize by merchant", now)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to append recategorize events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrStoreCommitFailed, err)
	}
	return len(transactionIDs), nil
}

// ApplyTags idempotently upserts tags and link rows. Verified rows accept
// tags; the link insert is a no-op when the pair already exists.
func (r *PgxTransactionRepository) ApplyTags(ctx context.Context, transactionIDs []string, tagNames []string) (int, error) {
	if len(transactionIDs) == 0 || len(tagNames) == 0 {
		return 0, nil
	}

	tx, err := r.BeginSerializable(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	tagIDs := make([]string, 0, len(tagNames))
	for _, name := range tagNames {
		var tagID string
		err := tx.QueryRow(ctx, `
			INSERT INTO tags (tag_id, name)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING tag_id`,
			uuid.NewString(), name,
		).Scan(&tagID)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert tag %q: %w", name, err)
		}
		tagIDs = append(tagIDs, tagID)
	}

	newLinks := 0
	for _, txnID := range transactionIDs {
		for _, tagID := range tagIDs {
			tag, err := tx.Exec(ctx, `
				INSERT INTO transaction_tags (transaction_id, tag_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING`,
				txnID, tagID,
			)
			if err != nil {
				return 0, fmt.Errorf("failed to link tag %s to transaction %s: %w", tagID, txnID, err)
			}
			newLinks += int(tag.RowsAffected())
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrStoreCommitFailed, err)
	}
	return newLinks, nil
}

// DeleteByExternalIDs hard-deletes rows whose source matches. Derived rows
// and events follow by cascade.
func (r *PgxTransactionRepository) DeleteByExternalIDs(ctx context.Context, source domain.Source, externalIDs []string) (int, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}
	tag, err := r.Pool.Exec(ctx, `
		DELETE FROM transactions
		WHERE source = $1 AND external_id = ANY($2)`,
		string(source), externalIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions for source %s: %w", source, err)
	}
	return int(tag.RowsAffected()), nil
}

// FindTransactionByExternalID retrieves a row by its dedupe identity.
func (r *PgxTransactionRepository) FindTransactionByExternalID(ctx context.Context, source domain.Source, externalID string) (*domain.Transaction, error) {
	var m models.Transaction
	err := r.Pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE external_id = $1 AND source = $2`,
		externalID, string(source),
	).Scan(
		&m.TransactionID, &m.ExternalID, &m.Source, &m.AccountID, &m.PostedAt,
		&m.AmountCents, &m.Currency, &m.MerchantDescriptor, &m.MerchantID,
		&m.CategoryID, &m.Institution, &m.IsVerified, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err, fmt.Sprintf("transaction %s/%s", source, externalID))
	}
	txn := mapping.ToDomainTransaction(m)
	return &txn, nil
}

// FindDerivedByTransactionID retrieves the analytics projection for a row.
func (r *PgxTransactionRepository) FindDerivedByTransactionID(ctx context.Context, transactionID string) (*domain.DerivedTransaction, error) {
	var m models.DerivedTransaction
	err := r.Pool.QueryRow(ctx, `
		SELECT transaction_id, category_key, category_model, category_method, category_assigned_at, reporting_mode, merchant_summary
		FROM derived_transactions
		WHERE transaction_id = $1`,
		transactionID,
	).Scan(
		&m.TransactionID, &m.CategoryKey, &m.CategoryModel, &m.CategoryMethod,
		&m.CategoryAssignedAt, &m.ReportingMode, &m.MerchantSummary,
	)
	if err != nil {
		return nil, mapNoRows(err, fmt.Sprintf("derived transaction %s", transactionID))
	}
	derived := mapping.ToDomainDerivedTransaction(m)
	return &derived, nil
}

// ListEventsByTransactionID returns the audit trail oldest first.
func (r *PgxTransactionRepository) ListEventsByTransactionID(ctx context.Context, transactionID string) ([]domain.CategoryEvent, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT event_id, transaction_id, category_key, method, model, rationale, assigned_at
		FROM transaction_category_events
		WHERE transaction_id = $1
		ORDER BY assigned_at, event_id`,
		transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s: %w", transactionID, err)
	}
	defer rows.Close()

	var events []domain.CategoryEvent
	for rows.Next() {
		var m models.CategoryEvent
		if err := rows.Scan(&m.EventID, &m.TransactionID, &m.CategoryKey, &m.Method, &m.Model, &m.Rationale, &m.AssignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, mapping.ToDomainCategoryEvent(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}
