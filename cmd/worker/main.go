package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/cache"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/config"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/database"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/metrics"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/monitoring"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/queue"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/storage"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/tracing"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config(cfg.Logging))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	logger = logger.WithField("component", "worker")

	_, closer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer closer.Close()

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db, logger)

	// Initialize cache for record locks
	locks, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer locks.Close()

	// Initialize storage
	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize queue
	q, err := queue.New(cfg.Queue, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	if err := q.SetupDeadLetterQueue(); err != nil {
		logger.Fatalf("Failed to set up dead letter queue: %v", err)
	}

	publisher := NewPublisher(repo, stor, locks, cfg.Engine.WorkerConcurrency, logger)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port, logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	monitor := monitoring.NewMonitor(q, 10*time.Second, logger)
	monitor.Start(ctx)

	// Start consuming events
	logger.Info("Worker started, waiting for saved records...")
	if err := q.ConsumeRecordSaved(ctx, queue.Handler(monitor.Track(publisher.Handle))); err != nil {
		logger.Fatalf("Failed to consume events: %v", err)
	}

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("Worker stopped")
}
