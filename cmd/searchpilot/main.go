package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/xxng1/searchpilot/internal/catalog"
	"github.com/xxng1/searchpilot/internal/indexer"
	"github.com/xxng1/searchpilot/internal/ingest"
	"github.com/xxng1/searchpilot/internal/searcher"
	"github.com/xxng1/searchpilot/internal/searcher/cache"
	"github.com/xxng1/searchpilot/internal/server"
	"github.com/xxng1/searchpilot/internal/stats"
	"github.com/xxng1/searchpilot/pkg/config"
	"github.com/xxng1/searchpilot/pkg/health"
	"github.com/xxng1/searchpilot/pkg/kafka"
	"github.com/xxng1/searchpilot/pkg/logger"
	"github.com/xxng1/searchpilot/pkg/metrics"
	"github.com/xxng1/searchpilot/pkg/middleware"
	"github.com/xxng1/searchpilot/pkg/postgres"
	pkgredis "github.com/xxng1/searchpilot/pkg/redis"
	"github.com/xxng1/searchpilot/pkg/resilience"
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
	slog.Info("starting search service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := indexer.New()

	var repo *catalog.Repository
	var pgClient *postgres.Client
	if cfg.Postgres.Enabled {
		err = resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5}, func() error {
			var connErr error
			pgClient, connErr = postgres.New(cfg.Postgres)
			return connErr
		})
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgClient.Close()

		repo, err = catalog.NewRepository(ctx, pgClient)
		if err != nil {
			slog.Error("failed to prepare item catalog", "error", err)
			os.Exit(1)
		}
		loaded := 0
		err = repo.LoadAll(ctx, func(item *catalog.Item) error {
			if err := engine.Put(item); err != nil {
				slog.Warn("skipping invalid item from catalog", "id", item.ID, "error", err)
				return nil
			}
			loaded++
			return nil
		})
		if err != nil {
			slog.Error("failed to load item catalog", "error", err)
			os.Exit(1)
		}
		slog.Info("item catalog loaded", "items", loaded)
	} else {
		slog.Info("postgres disabled, starting with an empty index")
	}

	var resultCache *cache.ResultCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		resultCache = cache.New(redisClient, cfg.Redis)
		slog.Info("search cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	var exporter *stats.Exporter
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		exporter = stats.NewExporter(producer, cfg.Stats.EventBuffer)
		exporter.Start(ctx)
		defer exporter.Close()
		slog.Info("search event export enabled", "topic", cfg.Kafka.Topics.SearchEvents)
	}
	collector := stats.NewCollector(cfg.Stats.MaxQueries, cfg.Stats.TopN, exporter)

	if cfg.Kafka.Enabled {
		var sink ingest.Sink
		if repo != nil {
			sink = func(ctx context.Context, item *catalog.Item) {
				if err := repo.Save(ctx, item); err != nil {
					slog.Warn("item write-through failed", "id", item.ID, "error", err)
				}
			}
		}
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ItemIngest, ingest.Handler(engine, sink))
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("item ingest consumer error", "error", err)
			}
		}()
		slog.Info("item ingest enabled", "topic", cfg.Kafka.Topics.ItemIngest)
	}

	checker := health.NewChecker()
	checker.Register("index_engine", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d items indexed", engine.Len()),
		}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if pgClient != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pgClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	var writer server.ItemWriter
	if repo != nil {
		writer = repo
	}
	h := server.New(
		engine,
		searcher.New(engine),
		resultCache,
		collector,
		writer,
		checker,
		m,
		cfg.Search,
	)

	var chain http.Handler = h.Routes()
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		chain = middleware.RateLimit(limiter, m)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	chain = middleware.RequestID(chain)

	srv := &http.Server{
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
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
