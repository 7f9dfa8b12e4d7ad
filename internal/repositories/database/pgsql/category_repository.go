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

// PgxCategoryRepository reads taxonomy rows. Categories are written only by
// the external taxonomy generator, so this repository is read-only.
type PgxCategoryRepository struct {
	BaseRepository
}

func newPgxCategoryRepository(pool *pgxpool.Pool) portsrepo.CategoryReader {
	return &PgxCategoryRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CategoryReader = (*PgxCategoryRepository)(nil)

const categorySelect = `
	SELECT c.category_id, c.parent_id, c.key, c.name, c.description, c.rules, p.key AS parent_key
	FROM categories c
	LEFT JOIN categories p ON p.category_id = c.parent_id`

// ListCategories returns every taxonomy node with its parent key joined in,
// ordered by key for loader stability.
func (r *PgxCategoryRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.Pool.Query(ctx, categorySelect+` ORDER BY c.key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Category
	for rows.Next() {
		var m models.Category
		if err := rows.Scan(&m.CategoryID, &m.ParentID, &m.Key, &m.Name, &m.Description, &m.Rules, &m.ParentKey); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		nodes = append(nodes, mapping.ToDomainCategory(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}
	return nodes, nil
}

// FindCategoryByKey retrieves a single node by its dotted key.
func (r *PgxCategoryRepository) FindCategoryByKey(ctx context.Context, key string) (*domain.Category, error) {
	var m models.Category
	err := r.Pool.QueryRow(ctx, categorySelect+` WHERE c.key = $1`, key).Scan(
		&m.CategoryID, &m.ParentID, &m.Key, &m.Name, &m.Description, &m.Rules, &m.ParentKey,
	)
	if err != nil {
		return nil, mapNoRows(err, fmt.Sprintf("category %q", key))
	}
	node := mapping.ToDomainCategory(m)
	return &node, nil
}
