package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/infrastructure/cache"
	"github.com/induservicios/backend/internal/infrastructure/config"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/persistence"
	"github.com/induservicios/backend/internal/infrastructure/telemetry"
	"github.com/induservicios/backend/internal/interfaces/http/middleware"
	"github.com/induservicios/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting store backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tp, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), 200*time.Millisecond)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	dbSystem := "postgresql"
	if db.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: !cfg.App.IsProduction(),
		DBSystem:   dbSystem,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		log.Info("Database schema migrated from models")
	}

	// Redis is optional outside production
	stores, err := cache.NewStores(cfg.Redis, !cfg.App.IsProduction(), log)
	if err != nil {
		log.Fatal("Failed to initialize cache stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing cache stores", zap.Error(err))
		}
	}()

	app, err := buildApp(cfg, db, stores, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}

	if err := app.bus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	app.hub.Start()
	app.scheduler.Start(context.Background())

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: request ID first so every later log line carries it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		SkipPaths:   []string{"/health"},
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(logger.GinMiddleware(log, "/health"))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.SecureWithConfig(securityConfig(cfg)))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = append(cfg.HTTP.CORSAllowHeaders, "Last-Event-ID", "Stripe-Signature")
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		MaxBytes:       cfg.HTTP.MaxBodySize,
		UploadMaxBytes: cfg.HTTP.MaxUploadSize,
	}))

	var limiters []*middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		global := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		lookupLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests/4+1, cfg.HTTP.RateLimitWindow)
		limiters = append(limiters, global, authLimiter, lookupLimiter)

		engine.Use(middleware.RateLimit(global))
		app.handlers.AuthLimit = []gin.HandlerFunc{middleware.RateLimit(authLimiter)}
		app.handlers.LookupLimit = []gin.HandlerFunc{middleware.RateLimit(lookupLimiter)}
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
			zap.Int("auth_requests", cfg.HTTP.AuthRateLimitRequests),
		)
	}

	router.NewRouter(engine, app.jwt, app.blacklist,
		router.WithAPIVersion("v1"),
		router.WithLogger(log),
	).Register(app.handlers).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   0, // SSE streams stay open; handlers bound their own work
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Close SSE streams first so Shutdown does not wait on them
	app.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := app.scheduler.Stop(ctx); err != nil {
		log.Error("Error stopping scheduler", zap.Error(err))
	}
	if err := app.notifier.Wait(ctx); err != nil {
		log.Warn("Pending notifications not sent before shutdown", zap.Error(err))
	}
	if err := app.bus.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	for _, l := range limiters {
		l.Stop()
	}
	if err := app.renderer.Close(); err != nil {
		log.Warn("Error closing PDF renderer", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func securityConfig(cfg *config.Config) middleware.SecurityConfig {
	sc := middleware.DefaultSecurityConfig()
	sc.HSTSEnabled = cfg.App.IsProduction()
	return sc
}
