package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalog/internal/cache"
	"github.com/utafrali/catalog/internal/config"
	"github.com/utafrali/catalog/internal/engine"
	esengine "github.com/utafrali/catalog/internal/engine/elasticsearch"
	memengine "github.com/utafrali/catalog/internal/engine/memory"
	"github.com/utafrali/catalog/internal/event"
	handler "github.com/utafrali/catalog/internal/handler/http"
	"github.com/utafrali/catalog/internal/repository"
	"github.com/utafrali/catalog/internal/repository/memory"
	"github.com/utafrali/catalog/internal/repository/postgres"
	"github.com/utafrali/catalog/internal/service"
	"github.com/utafrali/catalog/pkg/database"
	"github.com/utafrali/catalog/pkg/health"
	pkgkafka "github.com/utafrali/catalog/pkg/kafka"
	"github.com/utafrali/catalog/pkg/middleware"
	"github.com/utafrali/catalog/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	kafka      *pkgkafka.Producer
	indexer    *service.IndexSynchronizer
	httpServer *http.Server

	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Connections opened before a failure are closed again.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.closeClients()
		}
	}()

	a.shutdownTracer, err = tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	healthHandler := health.NewHandler()

	store, err := a.openStore(ctx, reg, healthHandler)
	if err != nil {
		return nil, err
	}

	eng, err := a.openEngine(reg, healthHandler)
	if err != nil {
		return nil, err
	}

	var productCache service.Cache
	if cfg.RedisURL != "" {
		a.redis, err = database.NewRedisClient(ctx, database.RedisConfig{URL: cfg.RedisURL})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		c := cache.New(a.redis)
		productCache = c
		healthHandler.RegisterNonCritical("redis", c.Ping)
		logger.Info("product cache enabled", slog.Duration("ttl", cfg.CacheTTL))
	} else {
		logger.Warn("REDIS_URL not set, product cache disabled")
	}

	var events service.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		a.kafka = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.kafka, logger)
		healthHandler.RegisterNonCritical("kafka", a.kafka.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the service layer.
	metrics := service.NewMetrics(reg)
	indexerCfg := service.DefaultIndexerConfig()
	indexerCfg.BatchSize = cfg.ReindexBatchSize
	a.indexer = service.NewIndexSynchronizer(eng, store, indexerCfg, metrics, logger)
	invalidator := service.NewCacheInvalidator(productCache, metrics, logger)

	services := handler.Services{
		Products: service.NewProductService(service.ProductDeps{
			Store:        store,
			Associations: service.NewAssociationManager(cfg.AssociationsStrict, logger),
			Indexer:      a.indexer,
			Invalidator:  invalidator,
			Cache:        productCache,
			CacheTTL:     cfg.CacheTTL,
			Events:       events,
		}, logger),
		Categories: service.NewCategoryService(store, invalidator, logger),
		Search:     service.NewSearchService(eng, store, a.indexer, cfg.SearchMaxHits, logger),
		Indexer:    a.indexer,
	}

	router := handler.NewRouter(services, healthHandler, handler.RouterConfig{
		CORS:              middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins...),
		AdminAllowedCIDRs: cfg.AdminAllowedCIDRs,
		SearchRateLimit:   middleware.RateLimitConfig{RPS: cfg.SearchRateLimitRPS, Burst: cfg.SearchRateLimitBurst},
		ReindexRateLimit:  middleware.RateLimitConfig{RPS: cfg.ReindexRateLimitRPS, Burst: cfg.ReindexRateLimitBurst},
		Metrics:           middleware.NewHTTPMetrics(reg),
		MetricsHandler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// openStore connects the system of record and applies pending migrations.
func (a *App) openStore(ctx context.Context, reg prometheus.Registerer, h *health.Handler) (repository.Store, error) {
	if a.cfg.StoreDriver == config.DriverMemory {
		a.logger.Warn("using in-memory store, data is not persisted")
		return memory.NewStore(), nil
	}

	pgCfg := a.cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := database.RegisterPoolMetrics(reg, pool); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	database.SetSlowQueryLogging(a.cfg.SlowQueryThreshold(), a.logger)

	store := postgres.NewStore(pool)
	h.RegisterCritical("postgres", store.Ping)
	a.logger.Info("postgres store initialized", slog.String("database", pgCfg.DBName))
	return store, nil
}

// openEngine builds the search engine behind its circuit breaker.
func (a *App) openEngine(reg prometheus.Registerer, h *health.Handler) (engine.SearchEngine, error) {
	var eng engine.SearchEngine
	switch a.cfg.SearchEngine {
	case config.EngineElasticsearch:
		es, err := esengine.New(esengine.Config{
			Addresses: a.cfg.ElasticsearchURLs,
			Username:  a.cfg.ElasticsearchUser,
			Password:  a.cfg.ElasticsearchPassword,
			Index:     a.cfg.ElasticsearchIndex,
			Refresh:   a.cfg.ElasticsearchRefresh,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		eng = es
		h.RegisterNonCritical("elasticsearch", es.Ping)
		a.logger.Info("elasticsearch search engine initialized",
			slog.Any("addresses", a.cfg.ElasticsearchURLs),
			slog.String("index", a.cfg.ElasticsearchIndex),
		)
	default:
		eng = memengine.New()
		a.logger.Info("in-memory search engine initialized")
	}

	breaker, err := engine.NewBreaker(eng, a.cfg.Breaker(), reg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init search breaker: %w", err)
	}
	return breaker, nil
}

// Run starts the HTTP server and the search index bootstrap, blocking until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	// The index is populated in the background; search answers 503 until
	// it is ready.
	go func() {
		if err := a.indexer.Bootstrap(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("search index bootstrap failed", slog.String("error", err.Error()))
		}
	}()

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	errs = append(errs, a.closeClients())
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeClients() error {
	var errs []error
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
