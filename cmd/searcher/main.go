package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion/catalog"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion/loader"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/tracing"
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

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	noise, err := loader.LoadNoiseWords(cfg.Corpus.NoiseWordsFile)
	if err != nil {
		return err
	}
	engine := indexer.NewEngine(cfg.Indexer, tokenizer.New(noise), m)

	if cfg.Corpus.DocsFile != "" {
		report, err := loader.Build(ctx, engine, cfg.Corpus.DocsFile, cfg.Corpus.ReadConcurrency)
		if err != nil {
			return fmt.Errorf("preloading corpus: %w", err)
		}
		slog.Info("corpus preloaded",
			"documents", report.Documents,
			"keywords", report.Keywords,
			"duration", report.Duration,
		)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d keywords", engine.DocCount(), engine.Index().Len()),
		}
	})

	var statuses consumer.StatusUpdater
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		statuses = catalog.New(db)
		checker.Register("catalog", health.PingCheck(db.Ping))
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis, m)
			checker.RegisterOptional("redis", health.PingCheck(redisClient.Ping))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	var batches analytics.BatchPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, kafka.WithBatching(100, time.Second))
		defer producer.Close()
		batches = producer
	}
	aggregator := analytics.NewAggregator()
	collector := analytics.NewCollector(batches, aggregator, 10000, 100, 5*time.Second)
	collector.Start(gctx)
	defer collector.Close()

	if cfg.Kafka.Enabled {
		ingest := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest,
			consumer.HandleMessage(engine, statuses, consumer.WithTracker(collector)),
			kafka.FromBeginning())
		defer ingest.Close()
		indexConsumer := consumer.New(ingest)
		g.Go(func() error {
			return indexConsumer.Start(gctx)
		})
		slog.Info("index consumer started", "topic", cfg.Kafka.Topics.DocumentIngest)
	}

	h := handler.New(engine, handler.Options{
		Cache:     queryCache,
		Collector: collector,
		Tracer:    tracing.New(cfg.Tracing),
		Metrics:   m,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	analytics.NewHandler(aggregator).RegisterRoutes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.Metrics(m),
			middleware.Timeout(cfg.Server.WriteTimeout),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
