// Package retrieval runs the catalog search cascade.
package retrieval

import (
	"context"
	"errors"
	"time"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

// Catalog is the product store the engine reads from.
type Catalog interface {
	QueryProducts(ctx context.Context, filter storage.Predicate, order []storage.Sort, limit int) ([]storage.Product, error)
	GetProduct(ctx context.Context, id string) (*storage.Product, error)
}

// Result is the outcome of a search. Strategy is empty when nothing matched.
// Degraded is set when a store call failed; Items is then empty and callers
// should answer as if nothing was found.
type Result struct {
	Items    []storage.Product `json:"items"`
	Strategy Strategy          `json:"strategy,omitempty"`
	Degraded bool              `json:"degraded,omitempty"`
	Cached   bool              `json:"-"`
}

// Config configures the engine.
type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{DefaultLimit: 12, MaxLimit: 30}
}

// Engine tries progressively looser strategies until one returns products.
type Engine struct {
	catalog Catalog
	cache   *ResultCache
	logger  *observability.Logger
	config  Config
}

// NewEngine creates a search engine. cache may be nil.
func NewEngine(catalog Catalog, cache *ResultCache, logger *observability.Logger, cfg Config) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 12
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 30
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Engine{
		catalog: catalog,
		cache:   cache,
		logger:  logger.WithComponent("retrieval"),
		config:  cfg,
	}
}

// Limit resolves the effective result count for criteria.
func (e *Engine) Limit(c nlu.SearchCriteria) int {
	switch {
	case c.Limit <= 0:
		return e.config.DefaultLimit
	case c.Limit > e.config.MaxLimit:
		return e.config.MaxLimit
	default:
		return c.Limit
	}
}

// Search runs the cascade and returns the first non-empty strategy result.
// Results from different strategies are never combined. Store failures are
// logged and reported through Result.Degraded, never returned.
func (e *Engine) Search(ctx context.Context, criteria nlu.SearchCriteria) Result {
	criteria.Limit = e.Limit(criteria)

	if res, ok := e.cache.Get(ctx, criteria); ok {
		return res
	}

	log := e.logger.WithContext(ctx)
	for _, s := range plan(criteria) {
		start := time.Now()
		items, err := e.catalog.QueryProducts(ctx, s.filter, storage.ByStockThenName, criteria.Limit)
		if err != nil {
			event := log.Error()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				event = log.Warn()
			}
			event.Err(err).
				Str("operation", "search").
				Str("strategy", string(s.strategy)).
				Msg("Catalog query failed")
			return Result{Degraded: true}
		}

		log.Debug().
			Str("strategy", string(s.strategy)).
			Int("results", len(items)).
			Dur("latency", time.Since(start)).
			Msg("Search strategy executed")

		if len(items) == 0 {
			continue
		}

		if len(items) > criteria.Limit {
			items = items[:criteria.Limit]
		}
		res := Result{Items: items, Strategy: s.strategy}
		if err := e.cache.Set(ctx, criteria, res); err != nil {
			log.Warn().Err(err).Msg("Failed to cache search result")
		}
		return res
	}

	return Result{}
}

// Product looks a product up for its rating summary. Missing products and
// store failures both come back as not found; failures are logged.
func (e *Engine) Product(ctx context.Context, id string) (*storage.Product, bool) {
	p, err := e.catalog.GetProduct(ctx, id)
	if err == nil {
		return p, true
	}
	if !errors.Is(err, storage.ErrNotFound) {
		e.logger.WithContext(ctx).Error().
			Err(err).
			Str("operation", "product.rating").
			Str("product_id", id).
			Msg("Product lookup failed")
	}
	return nil, false
}
