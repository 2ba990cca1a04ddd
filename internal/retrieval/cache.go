package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/cache"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
)

// ResultCache stores successful cascade results keyed by criteria.
type ResultCache struct {
	client cache.Client
	logger *observability.Logger
	ttl    time.Duration
}

// NewResultCache creates a result cache. A nil client disables caching.
func NewResultCache(client cache.Client, logger *observability.Logger, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ResultCache{client: client, logger: logger, ttl: ttl}
}

// cachedResult is the stored form of a Result.
type cachedResult struct {
	Result   Result    `json:"result"`
	CachedAt time.Time `json:"cached_at"`
}

// Key derives a deterministic key from criteria. Token order is part of the
// key because it is part of what the classifier produced.
func (c *ResultCache) Key(criteria nlu.SearchCriteria) string {
	data, _ := json.Marshal(criteria)
	hash := sha256.Sum256(data)
	return cache.SearchKey(hex.EncodeToString(hash[:16]))
}

// Get returns a cached result if present.
func (c *ResultCache) Get(ctx context.Context, criteria nlu.SearchCriteria) (Result, bool) {
	if c == nil || c.client == nil {
		return Result{}, false
	}

	key := c.Key(criteria)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Result cache get failed")
		}
		return Result{}, false
	}

	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached result")
		return Result{}, false
	}

	c.logger.Debug().Str("key", key).Msg("Result cache hit")
	res := cached.Result
	res.Cached = true
	return res, true
}

// Set stores a result. Empty and degraded results are never cached.
func (c *ResultCache) Set(ctx context.Context, criteria nlu.SearchCriteria, res Result) error {
	if c == nil || c.client == nil || res.Degraded || len(res.Items) == 0 {
		return nil
	}

	data, err := json.Marshal(cachedResult{Result: res, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	key := c.Key(criteria)
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		return fmt.Errorf("cache result: %w", err)
	}
	return nil
}

// Invalidate drops every cached search result, for use after catalog writes.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.DeleteByPrefix(ctx, cache.SearchKey(""))
}
