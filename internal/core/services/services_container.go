package services

import (
	"log/slog"

	"github.com/finagent/finagent/internal/core/ports"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
	"github.com/finagent/finagent/internal/metrics"
	"github.com/finagent/finagent/pkg/cache"
	"github.com/finagent/finagent/pkg/config"
)

// NewServiceContainer creates the service container with properly initialized
// dependencies.
func NewServiceContainer(
	cfg *config.Config,
	repos portsrepo.RepositoryProvider,
	aggregator ports.AggregatorClient,
	llm ports.LLMCategorizer,
	c *cache.Cache,
	m *metrics.Metrics,
	logger *slog.Logger,
) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Taxonomy first; the categorizer and sync loops depend on it.
	container.Taxonomy = NewTaxonomyService(repos.Categories(), logger)

	container.Categorizer = NewCategorizerService(
		llm,
		container.Taxonomy,
		c,
		m,
		logger,
		cfg.LLMModel,
		cfg.PromptVersion,
		cfg.CategorizerPool,
		cfg.LLMTimeout,
	)

	container.Sync = NewSyncService(
		repos,
		aggregator,
		container.Categorizer,
		container.Taxonomy,
		m,
		logger,
		SyncConfig{
			PageSize:           cfg.SyncPageSize,
			MaxPageRetries:     cfg.SyncMaxPageRetries,
			Workers:            cfg.SyncWorkers,
			InvestmentBackfill: cfg.InvestmentBackfill,
			InvestmentOverlap:  cfg.InvestmentOverlap,
		},
	)

	container.Recategorize = NewRecategorizeService(repos, container.Taxonomy, logger)
	container.Link = NewLinkService(repos, aggregator, logger)

	return container
}
