// Command ingestion starts the document ingestion HTTP service.
//
// The service accepts new documents via POST /api/v1/documents, validates
// them, records them in the PostgreSQL catalog, and publishes them to the
// document-ingest topic for the search service to index.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion/catalog"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/resilience"
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
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	if !cfg.Postgres.Enabled || !cfg.Kafka.Enabled {
		slog.Error("ingestion service requires postgres and kafka to be enabled")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := catalog.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare catalog schema", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to postgres")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.DocumentIngest)

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	pub := publisher.New(store, producer, resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
	})
	h := handler.New(pub, cfg.Indexer.MaxDocumentBytes)

	checker := health.NewChecker()
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		if err := db.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d connections in use", db.InUse()),
		}
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
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

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
