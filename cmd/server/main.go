package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/academy/backend/internal/application/billing"
	memberapp "github.com/academy/backend/internal/application/member"
	"github.com/academy/backend/internal/domain/billing"
	"github.com/academy/backend/internal/infrastructure/cache"
	"github.com/academy/backend/internal/infrastructure/config"
	"github.com/academy/backend/internal/infrastructure/logger"
	"github.com/academy/backend/internal/infrastructure/persistence"
	"github.com/academy/backend/internal/infrastructure/scheduler"
	"github.com/academy/backend/internal/infrastructure/telemetry"
	"github.com/academy/backend/internal/interfaces/http/handler"
	"github.com/academy/backend/internal/interfaces/http/middleware"
	"github.com/academy/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
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

	log.Info("Starting academy billing server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize OpenTelemetry tracing
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	// Initialize database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	log.Info("Database connection established")

	// Register database query tracing when telemetry is enabled
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
		log.Info("Database tracing enabled")
	}

	// Initialize due-status cache (redis with in-memory fallback outside production)
	cacheFactory := cache.NewDueStatusCacheFactory(cfg.Redis, cfg.Cache.TTL,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	dueCache, err := cacheFactory.CreateCache(cfg.Cache.Backend)
	if err != nil {
		log.Fatal("Failed to initialize due-status cache", zap.Error(err))
	}
	defer func() {
		if err := dueCache.Close(); err != nil {
			log.Warn("Failed to close due-status cache", zap.Error(err))
		}
	}()

	// Initialize repositories
	memberRepo := persistence.NewGormMemberRepository(db.DB)
	scheduleRepo := persistence.NewGormFeeScheduleRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	coverageRepo := persistence.NewGormCoverageRecordRepository(db.DB)
	escalationRepo := persistence.NewGormEscalationRepository(db.DB)
	tx := persistence.NewGormTransactionManager(db.DB)

	// Initialize application services
	reconcileService := billingapp.NewPaymentReconcileService(
		paymentRepo, coverageRepo, memberRepo, scheduleRepo, tx, dueCache, log)
	dueStatusService := billingapp.NewDueStatusService(
		memberRepo, scheduleRepo, coverageRepo, dueCache, cfg.Cache.TTL, log)

	reminder, warning, blocked := cfg.Billing.Thresholds()
	thresholds := billing.TierThresholds{
		ReminderDays: reminder,
		WarningDays:  warning,
		BlockedDays:  blocked,
	}
	escalationService, err := billingapp.NewEscalationService(
		memberRepo, escalationRepo, coverageRepo, dueStatusService,
		thresholds, cfg.Billing.FreezeOnBlock, tx, dueCache, log)
	if err != nil {
		log.Fatal("Failed to initialize escalation service", zap.Error(err))
	}
	memberService := memberapp.NewMemberService(
		memberRepo, scheduleRepo, coverageRepo, reconcileService, tx, dueCache, log)

	// Start the periodic escalation sweep
	if cfg.Scheduler.Enabled {
		sweeper, err := scheduler.NewSweeper(scheduler.SweeperConfig{
			Interval: cfg.Scheduler.SweepInterval,
			Timeout:  cfg.Scheduler.SweepTimeout,
		}, escalationService.RunSweep, log)
		if err != nil {
			log.Fatal("Failed to initialize escalation sweeper", zap.Error(err))
		}
		if err := sweeper.Start(ctx); err != nil {
			log.Fatal("Failed to start escalation sweeper", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.SweepTimeout)
			defer cancel()
			if err := sweeper.Stop(stopCtx); err != nil {
				log.Warn("Failed to stop escalation sweeper", zap.Error(err))
			}
		}()
		log.Info("Escalation sweeper started",
			zap.Duration("interval", cfg.Scheduler.SweepInterval))
	}

	// Initialize handlers
	memberHandler := handler.NewMemberHandler(memberService)
	paymentHandler := handler.NewPaymentHandler(reconcileService)
	billingHandler := handler.NewBillingHandler(dueStatusService, escalationService)
	systemHandler := handler.NewSystemHandler()

	// Setup Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	// Middleware stack
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanErrorMarker())
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitMax, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	// Health check (outside the API version prefix for load balancers)
	engine.GET("/health", healthHandler(db, log))

	// Domain routes
	memberGroup := router.NewDomainGroup("member", "/members").
		POST("", memberHandler.Create).
		GET("", memberHandler.List).
		GET("/:id", memberHandler.Get).
		PUT("/:id", memberHandler.Update).
		DELETE("/:id", memberHandler.Delete).
		PUT("/:id/status", memberHandler.UpdateStatus).
		PUT("/:id/registration-date", memberHandler.CorrectRegistrationDate).
		PUT("/:id/fee-schedule", memberHandler.SetFeeSchedule).
		GET("/:id/fee-schedule", memberHandler.GetFeeSchedule).
		GET("/:id/due-status", billingHandler.GetDueStatus).
		GET("/:id/billing-info", billingHandler.GetBillingInfo).
		GET("/:id/coverage", billingHandler.GetCoverage).
		GET("/:id/escalations", billingHandler.GetEscalations).
		POST("/:id/coverage/rebuild", paymentHandler.RebuildMember)

	paymentGroup := router.NewDomainGroup("payment", "/payments").
		POST("", paymentHandler.Record).
		GET("", paymentHandler.List).
		GET("/:id", paymentHandler.Get).
		PUT("/:id", paymentHandler.Update).
		DELETE("/:id", paymentHandler.Delete)

	billingGroup := router.NewDomainGroup("billing", "").
		POST("/coverage/rebuild", paymentHandler.RebuildAll).
		GET("/dashboard/due-status", billingHandler.Dashboard).
		POST("/escalations/sweep", billingHandler.Sweep)

	systemGroup := router.NewDomainGroup("system", "/system").
		GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(memberGroup).
		Register(paymentGroup).
		Register(billingGroup).
		Register(systemGroup).
		Setup()

	// Build the HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

// healthHandler reports liveness including database connectivity.
func healthHandler(db *persistence.Database, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			log.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
