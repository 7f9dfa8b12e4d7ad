package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/core/ports"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
	"github.com/finagent/finagent/internal/metrics"
	"github.com/finagent/finagent/internal/utils/merchantnorm"
)

// SyncConfig tunes the sync loops. Zero values are replaced with sane
// defaults by NewSyncService.
type SyncConfig struct {
	PageSize           int
	MaxPageRetries     int
	Workers            int
	InvestmentBackfill time.Duration
	InvestmentOverlap  time.Duration
}

type syncService struct {
	repos       portsrepo.RepositoryProvider
	aggregator  ports.AggregatorClient
	categorizer portssvc.CategorizerSvcFacade
	taxonomies  portssvc.TaxonomySvcFacade
	metrics     *metrics.Metrics
	logger      *slog.Logger
	cfg         SyncConfig

	// itemLocks serializes sync per item id. Cursor and watermark are
	// single-writer per item.
	itemLocks sync.Map
}

// NewSyncService wires the incremental sync orchestrator.
func NewSyncService(
	repos portsrepo.RepositoryProvider,
	aggregator ports.AggregatorClient,
	categorizer portssvc.CategorizerSvcFacade,
	taxonomies portssvc.TaxonomySvcFacade,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg SyncConfig,
) portssvc.SyncSvcFacade {
	if cfg.PageSize < 1 {
		cfg.PageSize = 200
	}
	if cfg.MaxPageRetries < 1 {
		cfg.MaxPageRetries = 3
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.InvestmentBackfill <= 0 {
		cfg.InvestmentBackfill = 730 * 24 * time.Hour
	}
	if cfg.InvestmentOverlap <= 0 {
		cfg.InvestmentOverlap = 7 * 24 * time.Hour
	}
	return &syncService{
		repos:       repos,
		aggregator:  aggregator,
		categorizer: categorizer,
		taxonomies:  taxonomies,
		metrics:     m,
		logger:      logger,
		cfg:         cfg,
	}
}

var _ portssvc.SyncSvcFacade = (*syncService)(nil)

func (s *syncService) lockFor(itemID string) *sync.Mutex {
	v, _ := s.itemLocks.LoadOrStore(itemID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// SyncItem runs one full incremental sync for an item: the banking cursor
// stream first, then the investments window. The cursor or watermark advances
// only after the batch behind it has committed.
func (s *syncService) SyncItem(ctx context.Context, itemID string) (domain.SyncSummary, error) {
	lock := s.lockFor(itemID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	summary := domain.SyncSummary{ItemID: itemID}

	item, err := s.repos.Items().FindItemByID(ctx, itemID)
	if err != nil {
		s.metrics.SyncRuns.WithLabelValues("error").Inc()
		return summary, fmt.Errorf("failed to load item %s: %w", itemID, err)
	}

	_, lookup, err := s.taxonomies.Load(ctx)
	if err != nil {
		s.metrics.SyncRuns.WithLabelValues("error").Inc()
		return summary, err
	}

	if err := s.syncBanking(ctx, item, lookup, &summary); err != nil {
		s.metrics.SyncRuns.WithLabelValues("error").Inc()
		return summary, err
	}
	if err := s.syncInvestments(ctx, item, lookup, &summary); err != nil {
		s.metrics.SyncRuns.WithLabelValues("error").Inc()
		return summary, err
	}

	s.metrics.SyncRuns.WithLabelValues("ok").Inc()
	s.metrics.SyncDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("item sync complete",
		"item_id", itemID,
		"added", summary.Added,
		"modified", summary.Modified,
		"removed", summary.Removed,
		"investment_added", summary.InvestmentAdded,
		"consent_required", summary.ConsentRequired,
		"pages", summary.PagesFetched,
	)
	return summary, nil
}

// syncBanking drains the incremental transaction stream. Each page is one
// categorize-then-persist batch; a pagination mutation resets to the last
// committed cursor with bounded retries.
func (s *syncService) syncBanking(ctx context.Context, item *domain.AggregatorItem, lookup portsrepo.CategoryLookup, summary *domain.SyncSummary) error {
	committedCursor := ""
	if item.SyncCursor != nil {
		committedCursor = *item.SyncCursor
	}

	cursor := committedCursor
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.aggregator.SyncTransactions(ctx, ports.SyncTransactionsRequest{
			AccessToken: item.AccessToken,
			Cursor:      cursor,
			Count:       s.cfg.PageSize,
		})
		if errors.Is(err, apperrors.ErrPaginationMutated) {
			retries++
			if retries > s.cfg.MaxPageRetries {
				return fmt.Errorf("item %s: pagination kept mutating after %d attempts: %w", item.ItemID, retries-1, err)
			}
			s.logger.Warn("pagination mutated, restarting from committed cursor", "item_id", item.ItemID, "attempt", retries)
			cursor = committedCursor
			continue
		}
		if err != nil {
			return fmt.Errorf("item %s: sync page failed: %w", item.ItemID, err)
		}
		summary.PagesFetched++
		s.metrics.PagesFetched.WithLabelValues("banking").Inc()

		normalized := make([]domain.NormalizedTransaction, 0, len(page.Added)+len(page.Modified))
		for _, t := range page.Added {
			normalized = append(normalized, s.normalizeBanking(item, t))
		}
		for _, t := range page.Modified {
			normalized = append(normalized, s.normalizeBanking(item, t))
		}
		removed := make([]domain.RemovedTransaction, 0, len(page.Removed))
		for _, id := range page.Removed {
			removed = append(removed, domain.RemovedTransaction{ExternalID: id, Source: domain.SourceAggregatorBanking})
		}

		// An empty page still advances the cursor.
		if len(normalized) > 0 || len(removed) > 0 {
			categorized, err := s.categorizer.Categorize(ctx, normalized)
			if err != nil {
				return fmt.Errorf("item %s: categorization failed: %w", item.ItemID, err)
			}

			res, err := s.repos.Transactions().SaveTransactions(ctx, lookup, categorized, removed)
			if err != nil {
				return fmt.Errorf("item %s: persist batch failed: %w", item.ItemID, err)
			}
			s.countOutcomes(res)
			summary.Added += res.Counts.Inserted
			summary.Modified += res.Counts.Updated
			summary.Removed += res.Counts.Removed
		}

		if err := s.repos.Items().UpdateSyncCursor(ctx, item.ItemID, page.NextCursor); err != nil {
			return fmt.Errorf("item %s: cursor advance failed: %w", item.ItemID, err)
		}
		committedCursor = page.NextCursor
		cursor = page.NextCursor
		retries = 0

		if !page.HasMore {
			return nil
		}
	}
}

// syncInvestments pulls the watermark window and persists it as one batch. A
// consent_required response is non-fatal; banking results committed earlier
// in the run stay committed.
func (s *syncService) syncInvestments(ctx context.Context, item *domain.AggregatorItem, lookup portsrepo.CategoryLookup, summary *domain.SyncSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now().UTC()
	earliest := now.Add(-s.cfg.InvestmentBackfill)
	start := earliest
	if item.InvestmentsSyncedThrough != nil {
		start = item.InvestmentsSyncedThrough.Add(-s.cfg.InvestmentOverlap)
		// A stale watermark must not widen the window past the backfill bound.
		if start.Before(earliest) {
			start = earliest
		}
	}

	invs, err := s.aggregator.GetInvestmentTransactions(ctx, item.AccessToken, start, now)
	if errors.Is(err, apperrors.ErrConsentRequired) {
		summary.ConsentRequired = true
		s.logger.Warn("investments need additional consent", "item_id", item.ItemID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("item %s: investments fetch failed: %w", item.ItemID, err)
	}
	s.metrics.PagesFetched.WithLabelValues("investments").Inc()

	if len(invs) == 0 {
		if err := s.repos.Items().UpdateInvestmentsSyncedThrough(ctx, item.ItemID, now); err != nil {
			return fmt.Errorf("item %s: watermark advance failed: %w", item.ItemID, err)
		}
		return nil
	}

	normalized := make([]domain.NormalizedTransaction, 0, len(invs))
	for _, inv := range invs {
		n := s.normalizeInvestment(item, inv)
		if domain.ClassifyReportingMode(n.Descriptor, n.Subtype) == domain.ReportingExcludeDefault {
			summary.InvestmentExcludedDefault++
		}
		normalized = append(normalized, n)
	}

	categorized, err := s.categorizer.Categorize(ctx, normalized)
	if err != nil {
		return fmt.Errorf("item %s: investment categorization failed: %w", item.ItemID, err)
	}

	res, err := s.repos.Transactions().SaveTransactions(ctx, lookup, categorized, nil)
	if err != nil {
		return fmt.Errorf("item %s: investment persist failed: %w", item.ItemID, err)
	}
	s.countOutcomes(res)
	summary.InvestmentAdded += res.Counts.Inserted

	if err := s.repos.Items().UpdateInvestmentsSyncedThrough(ctx, item.ItemID, now); err != nil {
		return fmt.Errorf("item %s: watermark advance failed: %w", item.ItemID, err)
	}
	return nil
}

func (s *syncService) countOutcomes(res domain.SaveResult) {
	s.metrics.RowsUpserted.WithLabelValues("inserted").Add(float64(res.Counts.Inserted))
	s.metrics.RowsUpserted.WithLabelValues("updated").Add(float64(res.Counts.Updated))
	s.metrics.RowsUpserted.WithLabelValues("skipped_verified").Add(float64(res.Counts.SkippedVerified))
	s.metrics.RowsUpserted.WithLabelValues("skipped_duplicate").Add(float64(res.Counts.SkippedDuplicate))
	s.metrics.RowsUpserted.WithLabelValues("removed").Add(float64(res.Counts.Removed))
}

// normalizeBanking converts a wire banking transaction into the normalized
// form. The aggregator's sign convention rides through unchanged; amounts
// become integer cents.
func (s *syncService) normalizeBanking(item *domain.AggregatorItem, t ports.AggregatorTransaction) domain.NormalizedTransaction {
	n := domain.NormalizedTransaction{
		ExternalID:  t.TransactionID,
		Source:      domain.SourceAggregatorBanking,
		AccountID:   t.AccountID,
		PostedAt:    t.PostedAt,
		AmountCents: t.Amount.Shift(2).Round(0).IntPart(),
		Currency:    t.Currency,
		Descriptor:  t.Name,
		Institution: item.InstitutionName,
	}
	if n.ExternalID == "" {
		n.ExternalID = domain.CanonicalExternalID(n.PostedAt, n.AmountCents, n.Currency,
			merchantnorm.Normalize(n.Descriptor), n.AccountID, n.Institution, n.Source)
	}
	return n
}

func (s *syncService) normalizeInvestment(item *domain.AggregatorItem, inv ports.InvestmentTransaction) domain.NormalizedTransaction {
	n := domain.NormalizedTransaction{
		ExternalID:  inv.InvestmentTransactionID,
		Source:      domain.SourceAggregatorInvestment,
		AccountID:   inv.AccountID,
		PostedAt:    inv.Date,
		AmountCents: inv.Amount.Shift(2).Round(0).IntPart(),
		Currency:    inv.Currency,
		Descriptor:  inv.Name,
		Institution: item.InstitutionName,
		Subtype:     inv.Subtype,
		Quantity:    inv.Quantity,
		Price:       inv.Price,
	}
	if n.ExternalID == "" {
		n.ExternalID = domain.CanonicalExternalID(n.PostedAt, n.AmountCents, n.Currency,
			merchantnorm.Normalize(n.Descriptor), n.AccountID, n.Institution, n.Source)
	}
	return n
}

// SyncAll fans SyncItem out over every known item with a bounded worker
// pool. A failing item does not stop the others; its error rides back in the
// log and the run continues.
func (s *syncService) SyncAll(ctx context.Context) ([]domain.SyncSummary, error) {
	items, err := s.repos.Items().ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		summaries []domain.SyncSummary
		sem       = make(chan struct{}, s.cfg.Workers)
	)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(itemID string) {
			defer wg.Done()
			defer func() { <-sem }()

			summary, err := s.SyncItem(ctx, itemID)
			if err != nil {
				s.logger.Error("item sync failed", "item_id", itemID, "error", err)
			}
			mu.Lock()
			summaries = append(summaries, summary)
			mu.Unlock()
		}(item.ItemID)
	}
	wg.Wait()

	return summaries, ctx.Err()
}
