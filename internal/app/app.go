// Package app builds the assistant's object graph from configuration. Both
// the HTTP server and the CLI go through Build.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/cache"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/chat"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/config"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/monitoring"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/orders"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/ratelimit"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/retrieval"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

// App holds the wired components.
type App struct {
	Config     *config.Config
	DB         *sql.DB
	Store      *storage.SQLStore
	Classifier *nlu.Classifier
	Engine     *retrieval.Engine
	// SearchCache is nil when result caching is off.
	SearchCache *retrieval.ResultCache
	Orders      *orders.Service
	Assistant   *chat.Assistant
	Audit       *monitoring.AuditLogger
	// Limiter is nil when rate limiting is disabled.
	Limiter ratelimit.Limiter

	logger  *observability.Logger
	closers []func() error
}

// Options tune Build for callers that need less than the full server.
type Options struct {
	// SkipRateLimit leaves Limiter nil regardless of configuration.
	SkipRateLimit bool
}

// Build opens the database and every backing service named by cfg. On error
// anything already opened is closed.
func Build(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	a := &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openDatabase(ctx); err != nil {
		return nil, err
	}

	lex := nlu.DefaultLexicon()
	if cfg.Lexicon.Path != "" {
		if lex, err = nlu.LoadLexicon(cfg.Lexicon.Path); err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.Lexicon.Path).Msg("Loaded lexicon override")
	}
	a.Classifier = nlu.NewClassifier(lex)

	var rdb *redis.Client
	needRedis := (cfg.Search.CacheResults && cfg.Cache.Driver == "redis") ||
		(!opts.SkipRateLimit && cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis")
	if needRedis {
		if rdb, err = cache.Dial(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	if cfg.Search.CacheResults {
		a.SearchCache = retrieval.NewResultCache(a.cacheClient(rdb), logger, cfg.Cache.TTL)
	}
	a.Engine = retrieval.NewEngine(a.Store, a.SearchCache, logger, retrieval.Config{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	})

	a.Orders = orders.NewService(a.Store, logger, orders.Config{
		RecentLimit:  cfg.Orders.RecentLimit,
		MaxRecent:    cfg.Orders.MaxRecent,
		ByEmailLimit: cfg.Orders.ByEmailLimit,
	})

	if a.Audit, err = a.buildAudit(); err != nil {
		return nil, err
	}

	if !opts.SkipRateLimit && cfg.RateLimit.Enabled {
		a.Limiter = a.buildLimiter(rdb)
	}

	a.Assistant = chat.NewAssistant(a.Classifier, a.Engine, a.Orders, a.Audit, logger)
	return a, nil
}

func (a *App) openDatabase(ctx context.Context) error {
	cfg := a.Config
	opts := storage.OpenOptions{Driver: cfg.Database.Driver, DSN: cfg.DatabaseDSN()}
	if cfg.Database.Driver == "postgres" {
		opts.MaxOpenConns = cfg.Database.Postgres.MaxOpenConns
		opts.MaxIdleConns = cfg.Database.Postgres.MaxIdleConns
		opts.ConnMaxLifetime = cfg.Database.Postgres.ConnMaxLifetime
	} else {
		opts.MaxOpenConns = cfg.Database.SQLite.MaxOpenConns
	}

	db, dialect, err := storage.Open(ctx, opts)
	if err != nil {
		return err
	}
	a.DB = db
	a.Store = storage.NewSQLStore(db, dialect)
	a.closers = append(a.closers, db.Close)

	a.logger.Info().Str("driver", cfg.Database.Driver).Msg("Connected to database")
	return nil
}

func (a *App) cacheClient(rdb *redis.Client) cache.Client {
	cfg := a.Config.Cache
	if cfg.Driver == "redis" && rdb != nil {
		return cache.NewRedisClientFrom(rdb, cfg.Prefix)
	}
	mem := cache.NewMemoryClient(cfg.MaxEntries, cfg.TTL)
	a.closers = append(a.closers, mem.Close)
	return mem
}

func (a *App) buildAudit() (*monitoring.AuditLogger, error) {
	cfg := a.Config.Audit
	if !cfg.Enabled {
		return monitoring.NewAuditLogger(a.logger), nil
	}

	var sink monitoring.Sink
	switch cfg.Sink {
	case "kafka":
		k, err := monitoring.NewKafkaSink(monitoring.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Async:   cfg.Kafka.Async,
		})
		if err != nil {
			return nil, err
		}
		sink = k
	case "db":
		sink = monitoring.NewDBSink(a.logger, a.Store, monitoring.DBSinkConfig{
			BufferSize:    cfg.DB.BufferSize,
			BatchSize:     cfg.DB.BatchSize,
			FlushInterval: cfg.DB.FlushInterval,
		})
	default:
		sink = monitoring.NewLogSink(a.logger)
	}

	audit := monitoring.NewAuditLogger(a.logger, sink)
	a.closers = append(a.closers, audit.Close)
	return audit, nil
}

func (a *App) buildLimiter(rdb *redis.Client) ratelimit.Limiter {
	cfg := a.Config.RateLimit
	lc := ratelimit.Config{Window: cfg.Window, Max: cfg.Max, SweepInterval: cfg.SweepInterval}
	if cfg.Backend == "redis" && rdb != nil {
		return ratelimit.NewRedisLimiter(rdb, lc, cfg.Prefix)
	}
	mem := ratelimit.NewMemoryLimiter(lc)
	a.closers = append(a.closers, mem.Close)
	return mem
}

// Migrate applies the schema.
func (a *App) Migrate(ctx context.Context) error {
	return storage.Migrate(ctx, a.DB)
}

// Seed writes fixtures into the store. onRecord, when set, runs after each
// record is written.
func (a *App) Seed(ctx context.Context, fx *storage.Fixtures, onRecord func()) error {
	if err := storage.Seed(ctx, storage.ProgressWriter{Writer: a.Store, OnRecord: onRecord}, fx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := a.SearchCache.Invalidate(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to invalidate search cache after seed")
	}
	a.logger.Info().Int("records", fx.Len()).Msg("Seeded fixtures")
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
