// Package main is the entry point for the medstock background worker.
// It redrives pending invoices left behind by crashes between the invoice
// write and the stock decrement, and cleans up expired idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"medstock/internal/domain/documents/invoice"
	"medstock/internal/infrastructure/numerator"
	"medstock/internal/infrastructure/storage/postgres"
	"medstock/internal/infrastructure/storage/postgres/catalog_repo"
	"medstock/internal/infrastructure/storage/postgres/document_repo"
	"medstock/internal/infrastructure/storage/postgres/stock_repo"
	"medstock/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting medstock worker")

	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	numeratorService := numerator.New(pool.Unwrap())

	invoiceService := invoice.NewService(
		document_repo.NewInvoiceRepo(txManager),
		catalog_repo.NewProductRepo(txManager),
		stock_repo.NewStockRepo(txManager),
		catalog_repo.NewCustomerRepo(txManager),
		numeratorService,
		txManager,
	)

	idempotencyTTL := getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute)
	idempotencyStore := postgres.NewIdempotencyStore(pool, txManager, idempotencyTTL)

	worker := NewWorker(invoiceService, idempotencyStore, log, WorkerConfig{
		PollInterval: getEnvDuration("REDRIVE_POLL_INTERVAL", 30*time.Second),
		Grace:        getEnvDuration("REDRIVE_GRACE", 1*time.Minute),
		BatchLimit:   getEnvInt("REDRIVE_BATCH_LIMIT", 50),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// WorkerConfig tunes the redrive loop.
type WorkerConfig struct {
	// PollInterval is how often pending invoices are scanned
	PollInterval time.Duration

	// Grace leaves freshly committed invoices alone so the worker does not
	// race the request that is still applying them
	Grace time.Duration

	// BatchLimit bounds one redrive pass
	BatchLimit int
}

// Worker runs the recovery loops.
type Worker struct {
	invoices    *invoice.Service
	idempotency *postgres.IdempotencyStore
	log         *logger.Logger
	cfg         WorkerConfig
}

func NewWorker(invoices *invoice.Service, idempotency *postgres.IdempotencyStore, log *logger.Logger, cfg WorkerConfig) *Worker {
	return &Worker{
		invoices:    invoices,
		idempotency: idempotency,
		log:         log.WithComponent("worker"),
		cfg:         cfg,
	}
}

// Run processes redrive and cleanup ticks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	// One pass at startup picks up invoices stranded by a crash.
	w.redrivePending(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.redrivePending(ctx)
		case <-cleanupTicker.C:
			w.cleanupIdempotency(ctx)
		}
	}
}

func (w *Worker) redrivePending(ctx context.Context) {
	applied, err := w.invoices.RedrivePending(ctx, w.cfg.Grace, w.cfg.BatchLimit)
	if err != nil {
		w.log.Errorw("redrive pass failed", "error", err)
		return
	}

	if applied > 0 {
		w.log.Infow("redrove pending invoices", "applied", applied)
	}
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	removed, err := w.idempotency.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
		return
	}

	if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
