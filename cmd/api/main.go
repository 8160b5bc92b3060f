package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/cache"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/cms"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/config"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/database"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/metrics"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/middleware"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/queue"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/storage"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/tracing"
)

// HealthFunc reports whether a dependency is reachable
type HealthFunc func(ctx context.Context) error

// ObjectStore holds published artefacts
type ObjectStore interface {
	GetURL(ctx context.Context, objectName string) (string, error)
	BatchDelete(ctx context.Context, keys []string) error
}

type API struct {
	records *cms.Service
	objects ObjectStore
	checks  map[string]HealthFunc
	logger  *logging.Logger
}

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

	// Initialize tracing
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

	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	repo := database.NewRepository(db, logger)
	checks := map[string]HealthFunc{"database": repo.Health}

	// Initialize cache
	redisCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()
	checks["redis"] = redisCache.Ping

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

	var recordCache cms.Cache
	if cfg.Cache.Enabled {
		recordCache = redisCache
	}

	api := &API{
		records: cms.NewService(repo, recordCache, q, cms.Options{
			DefaultDuration: cfg.Engine.DefaultDuration,
			RecordTTL:       cfg.Cache.RecordTTL,
			MuteStore:       redisCache,
			Locks:           redisCache,
		}, logger),
		objects: stor,
		checks:  checks,
		logger:  logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go limiter.Cleanup(ctx, 10*time.Minute)
	}

	// Setup router
	router := setupRouter(api, limiter)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.WarnWithErr("Metrics server forced to shutdown", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(api.logger))

	// Health check
	router.GET("/health", api.healthCheck)

	// API routes
	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(middleware.RateLimit(limiter))
	}
	{
		// Records
		v1.POST("/records", api.createRecord)
		v1.GET("/records", api.listRecords)
		v1.GET("/records/:id", api.getRecord)
		v1.PUT("/records/:id", api.updateRecord)
		v1.DELETE("/records/:id", api.deleteRecord)

		// Regions
		v1.GET("/records/:id/regions", api.listRegions)
		v1.POST("/records/:id/regions", api.insertRegion)
		v1.PATCH("/records/:id/regions/:regionId", api.patchRegion)
		v1.DELETE("/records/:id/regions/:regionId", api.removeRegion)

		// Playback
		v1.GET("/records/:id/resolve", api.resolve)
		v1.GET("/records/:id/map", api.mapProgress)

		// Embeds
		v1.GET("/records/:id/embed", api.getEmbed)
		v1.GET("/records/:id/embed/url", api.getEmbedURL)

		// Audio sessions
		v1.GET("/sessions/:id/muted", api.getMuted)
		v1.PUT("/sessions/:id/muted", api.setMuted)
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	for name, check := range api.checks {
		if err := check(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "unhealthy",
				"dependency": name,
				"error":      err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}
