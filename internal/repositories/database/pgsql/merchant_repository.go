package pgsql

import (
	"context"
	"fmt"

	"github.com/finagent/finagent/internal/core/domain"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	"github.com/finagent/finagent/internal/models"
	"github.com/finagent/finagent/internal/utils/mapping"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxMerchantRepository reads merchant rows. Creation happens inside the
// transaction upsert; merchants are never deleted.
type PgxMerchantRepository struct {
	BaseRepository
}

func newPgxMerchantRepository(pool *pgxpool.Pool) portsrepo.MerchantReader {
	return &PgxMerchantRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.MerchantReader = (*PgxMerchantRepository)(nil)

const merchantColumns = `merchant_id, normalized_name, display_name, created_at, updated_at`

func (r *PgxMerchantRepository) FindMerchantByID(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	var m models.Merchant
	err := r.Pool.QueryRow(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE merchant_id = $1`, merchantID).Scan(
		&m.MerchantID, &m.NormalizedName, &m.DisplayName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err, fmt.Sprintf("merchant %s", merchantID))
	}
	merchant := mapping.ToDomainMerchant(m)
	return &merchant, nil
}

func (r *PgxMerchantRepository) FindMerchantByNormalizedName(ctx context.Context, normalizedName string) (*domain.Merchant, error) {
	var m models.Merchant
	err := r.Pool.QueryRow(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE normalized_name = $1`, normalizedName).Scan(
		&m.MerchantID, &m.NormalizedName, &m.DisplayName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err, fmt.Sprintf("merchant %q", normalizedName))
	}
	merchant := mapping.ToDomainMerchant(m)
	return &merchant, nil
}

func (r *PgxMerchantRepository) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+merchantColumns+` FROM merchants ORDER BY normalized_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchants: %w", err)
	}
	defer rows.Close()

	var merchants []domain.Merchant
	for rows.Next() {
		var m models.Merchant
		if err := rows.Scan(&m.MerchantID, &m.NormalizedName, &m.DisplayName, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan merchant row: %w", err)
		}
		merchants = append(merchants, mapping.ToDomainMerchant(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merchant rows: %w", err)
	}
	return merchants, nil
}
