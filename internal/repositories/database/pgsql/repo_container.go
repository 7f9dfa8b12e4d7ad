package pgsql

import (
	"log/slog"

	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryContainer bundles the pgx-backed repositories behind the
// RepositoryProvider port so services depend on one constructor.
type RepositoryContainer struct {
	transactions portsrepo.TransactionRepositoryFacade
	categories   portsrepo.CategoryReader
	merchants    portsrepo.MerchantReader
	tags         portsrepo.TagReader
	items        portsrepo.ItemRepositoryFacade
}

var _ portsrepo.RepositoryProvider = (*RepositoryContainer)(nil)

// NewRepositoryProvider wires every repository onto the shared pool.
func NewRepositoryProvider(pool *pgxpool.Pool, logger *slog.Logger) *RepositoryContainer {
	return &RepositoryContainer{
		transactions: newPgxTransactionRepository(pool, logger),
		categories:   newPgxCategoryRepository(pool),
		merchants:    newPgxMerchantRepository(pool),
		tags:         newPgxTagRepository(pool),
		items:        newPgxItemRepository(pool),
	}
}

func (c *RepositoryContainer) Transactions() portsrepo.TransactionRepositoryFacade {
	return c.transactions
}

func (c *RepositoryContainer) Categories() portsrepo.CategoryReader { return c.categories }
func (c *RepositoryContainer) Merchants() portsrepo.MerchantReader  { return c.merchants }
func (c *RepositoryContainer) Tags() portsrepo.TagReader            { return c.tags }
func (c *RepositoryContainer) Items() portsrepo.ItemRepositoryFacade {
	return c.items
}
