// Command searcher serves search, document indexing and the rewrite
// settings admin API over HTTP.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/rewrite"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/settings"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "num_shards", cfg.Indexer.NumShards)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	query.SetMaxClauseCount(cfg.Search.MaxClauseCount)
	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	router, err := shard.NewRouter(cfg.Indexer, cfg.Indexer.NumShards)
	if err != nil {
		slog.Error("failed to create shard router", "error", err)
		os.Exit(1)
	}
	defer router.Close()
	m.ActiveShards.Set(float64(router.NumShards()))

	checker := health.NewChecker(2 * time.Second)
	checker.Register("index_engine", func(context.Context) error {
		if router.NumShards() == 0 {
			return fmt.Errorf("no shards")
		}
		return nil
	})

	var store settings.Store
	if cfg.Postgres.Host != "" {
		db, err := connectPostgres(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pgStore := settings.NewPostgresStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare settings schema", "error", err)
			os.Exit(1)
		}
		store = pgStore
		checker.Register("postgres", db.Ping)
		slog.Info("rewrite settings persisted in postgres", "host", cfg.Postgres.Host)
	} else {
		slog.Warn("postgres not configured, rewrite settings are not persisted")
	}

	mgr, err := settings.NewManager(settings.FromConfig(cfg.Rewrite), store)
	if err != nil {
		slog.Error("invalid rewrite settings", "error", err)
		os.Exit(1)
	}
	if err := mgr.Restore(ctx); err != nil {
		slog.Error("failed to restore rewrite settings", "error", err)
		os.Exit(1)
	}

	recorder := rewrite.NewMetricsRecorder(m)
	exec := executor.NewSharded(router.GetAllEngines(), mgr,
		executor.WithRewriteCache(rewrite.NewCache(cfg.Rewrite.CacheSize, recorder)),
		executor.WithRecorder(recorder),
	)

	opts := []handler.Option{
		handler.WithMetrics(m),
		handler.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxResults),
	}

	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := cache.NewBreakerStore(redisClient, resilience.CircuitBreakerConfig{})
			opts = append(opts, handler.WithCache(cache.New(breaker, cfg.Redis.CacheTTL)))
			checker.RegisterOptional("redis", func(ctx context.Context) error {
				if breaker.State() == resilience.StateOpen {
					return resilience.ErrCircuitOpen
				}
				return redisClient.Ping(ctx)
			})
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topics.AnalyticsEvents != "" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		opts = append(opts, handler.WithCollector(collector))
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	startShardMaintenance(ctx, router, m, cfg.Indexer.FlushInterval)

	h := handler.New(exec, router, mgr, parser.New(cfg.Search.DefaultField, nil), opts...)
	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "strategy", mgr.StrategyKey())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

func connectPostgres(ctx context.Context, cfg config.PostgresConfig) (*postgres.Client, error) {
	var db *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 500 * time.Millisecond}, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		c, err := postgres.New(ctx, cfg)
		if err != nil {
			return err
		}
		db = c
		return nil
	})
	return db, err
}

// startShardMaintenance flushes memory indexes, picks up segments written
// by the indexer service and refreshes the per-shard gauges.
func startShardMaintenance(ctx context.Context, router *shard.Router, m *metrics.Metrics, interval time.Duration) {
	for _, engine := range router.GetAllEngines() {
		engine.StartFlushLoop(ctx)
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := router.ReloadAll(); n > 0 {
					slog.Info("picked up new segments", "segments", n)
				}
				for id, engine := range router.GetAllEngines() {
					m.ShardDocCount.WithLabelValues(strconv.Itoa(id)).Set(float64(engine.Snapshot().MaxDoc()))
				}
			}
		}
	}()
}
