package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appdeduction "github.com/stockpool/backend/internal/application/deduction"
	deddomain "github.com/stockpool/backend/internal/domain/deduction"
	"github.com/stockpool/backend/internal/infrastructure/audit"
	"github.com/stockpool/backend/internal/infrastructure/cache"
	"github.com/stockpool/backend/internal/infrastructure/config"
	"github.com/stockpool/backend/internal/infrastructure/logger"
	"github.com/stockpool/backend/internal/infrastructure/persistence"
	"github.com/stockpool/backend/internal/infrastructure/telemetry"
	"github.com/stockpool/backend/internal/interfaces/http/handler"
	"github.com/stockpool/backend/internal/interfaces/http/middleware"
	"github.com/stockpool/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting StockPool Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing is a no-op unless telemetry is enabled in config
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Repositories and stores
	catalogRepo := persistence.NewGormCatalogRepository(db.DB)
	inventoryStore := persistence.NewGormInventoryStore(db.DB)

	// Error classification pipeline
	auditSink := audit.NewZapSink(log)
	history := deddomain.NewErrorHistory(cfg.Deduction.ErrorHistoryLimit)
	classifier := deddomain.NewClassifier(history, auditSink, log)

	// Domain calculator and application services
	calculator := deddomain.NewCalculator(catalogRepo, log)
	previewService := appdeduction.NewPreviewService(calculator, log)
	executorService := appdeduction.NewExecutorService(calculator, inventoryStore, classifier, auditSink, log)
	chainService := appdeduction.NewChainService(catalogRepo, log)

	recoveryManager := appdeduction.NewRecoveryManager(inventoryStore, log)
	recoveryManager.SetRetryPolicy(cfg.Deduction.MaxRetryAttempts, cfg.Deduction.RetryDelay)
	rollbackCoordinator := appdeduction.NewRollbackCoordinator(inventoryStore, classifier, log)

	// Idempotency guard: Redis when configured, in-process otherwise
	if cfg.Redis.Enabled() {
		idempotencyStore, err := cache.NewRedisIdempotencyStore(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := idempotencyStore.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		executorService.SetIdempotencyStore(idempotencyStore, cfg.Deduction.IdempotencyTTL)
		log.Info("Redis idempotency guard enabled", zap.String("addr", cfg.Redis.Addr()))
	} else {
		executorService.SetIdempotencyStore(cache.NewInMemoryIdempotencyStore(), cfg.Deduction.IdempotencyTTL)
		log.Info("Redis not configured, using in-process duplicate order detection")
	}

	// Gin engine
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.GinMiddleware(log))

	if err := handler.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	// Routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewDeductionHandler(previewService, executorService, recoveryManager, rollbackCoordinator, history)).
		Register(handler.NewChainHandler(chainService))
	r.Setup()

	engine.GET("/healthz", healthHandler(db))

	// HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for the health check endpoint
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
