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

// PgxTagRepository reads tag rows; tag writes go through ApplyTags on the
// transaction repository so links stay transactional with their tags.
type PgxTagRepository struct {
	BaseRepository
}

func newPgxTagRepository(pool *pgxpool.Pool) portsrepo.TagReader {
	return &PgxTagRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TagReader = (*PgxTagRepository)(nil)

func (r *PgxTagRepository) ListTagsForTransaction(ctx context.Context, transactionID string) ([]domain.Tag, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT t.tag_id, t.name
		FROM tags t
		JOIN transaction_tags tt ON tt.tag_id = t.tag_id
		WHERE tt.transaction_id = $1
		ORDER BY t.name`,
		transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags for transaction %s: %w", transactionID, err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var m models.Tag
		if err := rows.Scan(&m.TagID, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, mapping.ToDomainTag(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}
	return tags, nil
}
