package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/core/ports"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
	"github.com/finagent/finagent/internal/metrics"
	"github.com/finagent/finagent/pkg/cache"
)

// cacheNamespace is the flat cache namespace for categorization results.
const cacheNamespace = "categorize-transactions"

type categorizerService struct {
	llm        ports.LLMCategorizer
	taxonomies portssvc.TaxonomySvcFacade
	cache      *cache.Cache
	metrics    *metrics.Metrics
	logger     *slog.Logger

	model         string
	promptVersion string
	poolSize      int
	llmTimeout    time.Duration
}

// NewCategorizerService wires the LLM categorizer behind the content-addressed
// cache. poolSize bounds concurrent LLM calls within one batch.
func NewCategorizerService(
	llm ports.LLMCategorizer,
	taxonomies portssvc.TaxonomySvcFacade,
	c *cache.Cache,
	m *metrics.Metrics,
	logger *slog.Logger,
	model, promptVersion string,
	poolSize int,
	llmTimeout time.Duration,
) portssvc.CategorizerSvcFacade {
	if poolSize < 1 {
		poolSize = 1
	}
	return &categorizerService{
		llm:           llm,
		taxonomies:    taxonomies,
		cache:         c,
		metrics:       m,
		logger:        logger,
		model:         model,
		promptVersion: promptVersion,
		poolSize:      poolSize,
		llmTimeout:    llmTimeout,
	}
}

var _ portssvc.CategorizerSvcFacade = (*categorizerService)(nil)

// cacheKeyPayload is everything that makes a categorization result reusable.
// A change to any field produces a different cache key. The aggregator's
// transaction id is deliberately absent: byte-identical transactions under
// different ids share one entry.
type cacheKeyPayload struct {
	Model          string `json:"model"`
	PromptVersion  string `json:"prompt_version"`
	TaxonomyDigest string `json:"taxonomy_digest"`
	Transaction    struct {
		Source      string `json:"source"`
		AccountID   string `json:"account_id"`
		PostedAt    string `json:"posted_at"`
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
		Descriptor  string `json:"descriptor"`
		Institution string `json:"institution"`
		Subtype     string `json:"subtype,omitempty"`
	} `json:"transaction"`
}

func (s *categorizerService) cacheKey(digest string, txn domain.NormalizedTransaction) (string, error) {
	p := cacheKeyPayload{
		Model:          s.model,
		PromptVersion:  s.promptVersion,
		TaxonomyDigest: digest,
	}
	p.Transaction.Source = string(txn.Source)
	p.Transaction.AccountID = txn.AccountID
	p.Transaction.PostedAt = txn.PostedAt.UTC().Format("2006-01-02")
	p.Transaction.AmountCents = txn.AmountCents
	p.Transaction.Currency = txn.Currency
	p.Transaction.Descriptor = txn.Descriptor
	p.Transaction.Institution = txn.Institution
	p.Transaction.Subtype = txn.Subtype
	return cache.StableKey(p)
}

// Categorize resolves a categorization for every transaction, order
// preserving. Cache hits never touch the LLM; misses are dispatched with at
// most poolSize calls in flight. Any invalid category or transport failure
// fails the whole batch.
func (s *categorizerService) Categorize(ctx context.Context, txns []domain.NormalizedTransaction) ([]domain.CategorizedTransaction, error) {
	if len(txns) == 0 {
		return nil, nil
	}
	start := time.Now()
	defer func() { s.metrics.CategorizeTiming.Observe(time.Since(start).Seconds()) }()

	tax, _, err := s.taxonomies.Load(ctx)
	if err != nil {
		return nil, err
	}
	rendered := tax.RenderForPrompt(nil, true)

	out := make([]domain.CategorizedTransaction, len(txns))
	keys := make([]string, len(txns))
	var misses []int

	for i, txn := range txns {
		key, err := s.cacheKey(tax.Digest(), txn)
		if err != nil {
			return nil, fmt.Errorf("failed to derive cache key for %s: %w", txn.ExternalID, err)
		}
		keys[i] = key

		var cat domain.Categorization
		if s.cache.Get(cacheNamespace, key, &cat) {
			if err := s.validate(tax, cat); err != nil {
				// A stale entry against an older taxonomy digest can't reach
				// here (the digest is part of the key); a bad entry can.
				s.logger.Warn("discarding invalid cached categorization", "external_id", txn.ExternalID, "key", cat.EffectiveKey())
				misses = append(misses, i)
				s.metrics.CacheMisses.Inc()
				continue
			}
			out[i] = domain.CategorizedTransaction{NormalizedTransaction: txn, Categorization: cat}
			s.metrics.CacheHits.Inc()
			continue
		}
		misses = append(misses, i)
		s.metrics.CacheMisses.Inc()
	}

	if len(misses) == 0 {
		return out, nil
	}

	// Bounded fan-out over the misses; join before returning so persistence
	// always sees a complete batch.
	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, s.poolSize)
		mu       sync.Mutex
		firstErr error
	)
	for _, idx := range misses {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			cat, err := s.categorizeOne(ctx, rendered, txns[i])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if err := s.validate(tax, *cat); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("transaction %s: %w", txns[i].ExternalID, err)
				}
				return
			}
			out[i] = domain.CategorizedTransaction{NormalizedTransaction: txns[i], Categorization: *cat}
			s.cache.Set(cacheNamespace, keys[i], *cat)
		}(idx)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (s *categorizerService) categorizeOne(ctx context.Context, rendered []domain.PromptNode, txn domain.NormalizedTransaction) (*domain.Categorization, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	s.metrics.LLMCalls.Inc()
	cat, err := s.llm.CategorizeTransaction(callCtx, ports.CategorizeRequest{
		Model:         s.model,
		PromptVersion: s.promptVersion,
		Taxonomy:      rendered,
		Transaction:   txn,
	})
	if err != nil {
		s.metrics.LLMFailures.Inc()
		return nil, fmt.Errorf("failed to categorize %s: %w", txn.ExternalID, err)
	}
	return cat, nil
}

// validate checks both the original and the effective key against the
// taxonomy snapshot.
func (s *categorizerService) validate(tax *domain.Taxonomy, cat domain.Categorization) error {
	if !tax.IsValidKey(cat.CategoryKey) {
		return fmt.Errorf("category %q: %w", cat.CategoryKey, apperrors.ErrInvalidCategory)
	}
	if eff := cat.EffectiveKey(); eff != cat.CategoryKey && !tax.IsValidKey(eff) {
		return fmt.Errorf("revised category %q: %w", eff, apperrors.ErrInvalidCategory)
	}
	return nil
}
