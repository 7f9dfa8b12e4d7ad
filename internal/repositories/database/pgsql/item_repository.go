package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/domain"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	"github.com/finagent/finagent/internal/models"
	"github.com/finagent/finagent/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxItemRepository persists aggregator items, their sync cursors and
// watermarks, and the accounts discovered under them.
type PgxItemRepository struct {
	BaseRepository
}

func newPgxItemRepository(pool *pgxpool.Pool) portsrepo.ItemRepositoryFacade {
	return &PgxItemRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ItemRepositoryFacade = (*PgxItemRepository)(nil)

const itemColumns = `item_id, access_token, sync_cursor, investments_synced_through, institution_id, institution_name, created_at, updated_at`

func (r *PgxItemRepository) FindItemByID(ctx context.Context, itemID string) (*domain.AggregatorItem, error) {
	var m models.AggregatorItem
	err := r.Pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM aggregator_items WHERE item_id = $1`, itemID).Scan(
		&m.ItemID, &m.AccessToken, &m.SyncCursor, &m.InvestmentsSyncedThrough,
		&m.InstitutionID, &m.InstitutionName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err, fmt.Sprintf("aggregator item %s", itemID))
	}
	item := mapping.ToDomainAggregatorItem(m)
	return &item, nil
}

func (r *PgxItemRepository) ListItems(ctx context.Context) ([]domain.AggregatorItem, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+itemColumns+` FROM aggregator_items ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregator items: %w", err)
	}
	defer rows.Close()

	var items []domain.AggregatorItem
	for rows.Next() {
		var m models.AggregatorItem
		if err := rows.Scan(
			&m.ItemID, &m.AccessToken, &m.SyncCursor, &m.InvestmentsSyncedThrough,
			&m.InstitutionID, &m.InstitutionName, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, mapping.ToDomainAggregatorItem(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}
	return items, nil
}

// SaveItem inserts or refreshes an item. The cursor and watermark are not
// touched here; they advance only through their dedicated updates.
func (r *PgxItemRepository) SaveItem(ctx context.Context, item domain.AggregatorItem) error {
	m := mapping.ToModelAggregatorItem(item)
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO aggregator_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (item_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    institution_id = EXCLUDED.institution_id,
		    institution_name = EXCLUDED.institution_name,
		    updated_at = EXCLUDED.updated_at`,
		m.ItemID, m.AccessToken, m.SyncCursor, m.InvestmentsSyncedThrough,
		m.InstitutionID, m.InstitutionName, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save aggregator item %s: %w", m.ItemID, err)
	}
	return nil
}

func (r *PgxItemRepository) UpdateSyncCursor(ctx context.Context, itemID, cursor string) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE aggregator_items SET sync_cursor = $1, updated_at = $2 WHERE item_id = $3`,
		cursor, time.Now().UTC(), itemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync cursor for item %s: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("aggregator item %s: %w", itemID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *PgxItemRepository) UpdateInvestmentsSyncedThrough(ctx context.Context, itemID string, through time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE aggregator_items SET investments_synced_through = $1, updated_at = $2 WHERE item_id = $3`,
		through, time.Now().UTC(), itemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update investments watermark for item %s: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("aggregator item %s: %w", itemID, apperrors.ErrNotFound)
	}
	return nil
}

// MigrateItemIdentity reassigns child accounts (and through them all
// transactions) from a rotated item id to the canonical one. Safe to re-run:
// once nothing references the old id it is a no-op.
func (r *PgxItemRepository) MigrateItemIdentity(ctx context.Context, oldItemID, newItemID string) (int, error) {
	if oldItemID == newItemID {
		return 0, nil
	}

	tx, err := r.BeginSerializable(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	// Carry item state over when the canonical row doesn't exist yet.
	var newExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM aggregator_items WHERE item_id = $1)`, newItemID).Scan(&newExists); err != nil {
		return 0, fmt.Errorf("failed to check canonical item %s: %w", newItemID, err)
	}
	if newExists {
		if _, err := tx.Exec(ctx, `DELETE FROM aggregator_items WHERE item_id = $1`, oldItemID); err != nil {
			return 0, fmt.Errorf("failed to drop rotated item %s: %w", oldItemID, err)
		}
	} else {
		if _, err := tx.Exec(ctx, `UPDATE aggregator_items SET item_id = $1, updated_at = $2 WHERE item_id = $3`,
			newItemID, time.Now().UTC(), oldItemID); err != nil {
			return 0, fmt.Errorf("failed to rename item %s to %s: %w", oldItemID, newItemID, err)
		}
	}

	tag, err := tx.Exec(ctx, `UPDATE aggregator_accounts SET item_id = $1 WHERE item_id = $2`, newItemID, oldItemID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign accounts from %s to %s: %w", oldItemID, newItemID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrStoreCommitFailed, err)
	}
	return int(tag.RowsAffected()), nil
}

// UpsertAccounts inserts newly discovered accounts, deduping by
// (institution_id, mask). Existing accounts keep their row; type and subtype
// refresh in place.
func (r *PgxItemRepository) UpsertAccounts(ctx context.Context, accounts []domain.AggregatorAccount) (int, error) {
	if len(accounts) == 0 {
		return 0, nil
	}

	tx, err := r.BeginSerializable(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	inserted := 0
	for _, a := range accounts {
		m := mapping.ToModelAggregatorAccount(a)

		var existingID string
		err := tx.QueryRow(ctx, `
			SELECT account_id FROM aggregator_accounts
			WHERE institution_id = $1 AND mask = $2`,
			m.InstitutionID, m.Mask,
		).Scan(&existingID)
		if errors.Is(err, pgx.ErrNoRows) {
			if _, err := tx.Exec(ctx, `
				INSERT INTO aggregator_accounts (account_id, item_id, mask, type, subtype, institution_id)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				m.AccountID, m.ItemID, m.Mask, m.Type, m.Subtype, m.InstitutionID,
			); err != nil {
				return 0, fmt.Errorf("failed to insert account %s: %w", m.AccountID, err)
			}
			inserted++
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to check account (%s, %s): %w", m.InstitutionID, m.Mask, err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE aggregator_accounts SET item_id = $1, type = $2, subtype = $3 WHERE account_id = $4`,
			m.ItemID, m.Type, m.Subtype, existingID,
		); err != nil {
			return 0, fmt.Errorf("failed to refresh account %s: %w", existingID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrStoreCommitFailed, err)
	}
	return inserted, nil
}
