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
	appevent "github.com/itam/backend/internal/application/event"
	identityapp "github.com/itam/backend/internal/application/identity"
	transitionapp "github.com/itam/backend/internal/application/transition"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/infrastructure/auth"
	"github.com/itam/backend/internal/infrastructure/cache"
	"github.com/itam/backend/internal/infrastructure/config"
	"github.com/itam/backend/internal/infrastructure/event"
	"github.com/itam/backend/internal/infrastructure/logger"
	"github.com/itam/backend/internal/infrastructure/persistence"
	"github.com/itam/backend/internal/infrastructure/printing"
	"github.com/itam/backend/internal/infrastructure/storage"
	"github.com/itam/backend/internal/infrastructure/telemetry"
	"github.com/itam/backend/internal/interfaces/http/handler"
	"github.com/itam/backend/internal/interfaces/http/middleware"
	"github.com/itam/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/itam/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			ITAM Backend API
//	@version		1.0
//	@description	IT asset management: asset transitions, their history and handover reports

//	@contact.name	API Support

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
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

	ctx := context.Background()

	// Telemetry: traces, metrics, exported logs and profiles
	tel, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = tel.logs.Bridge(log, logger.ParseLevel(cfg.Telemetry.LogsLevel))

	log.Info("Starting ITAM Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.Bool("transitions_enabled", cfg.Transitions.Enabled),
	)

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        telemetry.DefaultDBTracingConfig().DBSystem,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Caches: transition registry and submit idempotency keys
	stores, err := cache.NewStoresFactory(&cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
		cache.WithRegistryTTL(cfg.Transitions.CacheTTL),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize caches", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing caches", zap.Error(err))
		}
	}()

	// Initialize repositories
	assetRepo := persistence.NewGormAssetRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	historyRepo := persistence.NewGormHistoryRepository(db.DB)
	transitionRepo := cache.NewCachedTransitionRepository(
		persistence.NewGormTransitionRepository(db.DB), stores.Registry, log)
	templateRepo := cache.NewCachedReportTemplateRepository(
		persistence.NewGormReportTemplateRepository(db.DB), stores.Registry, log)

	// Transition events: written to the outbox inside the dispatch transaction,
	// delivered to the in-process bus by the outbox processor
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	bus := event.NewInMemoryEventBus(log)
	handlerIdempotency := event.WithIdempotencyConfig(shared.IdempotencyConfig{
		Enabled: true,
		TTL:     cfg.Event.IdempotencyTTL,
	})
	bus.Subscribe(event.NewIdempotentHandler("transition-audit",
		transitionapp.NewTransitionAuditHandler(log), stores.Idempotency, log, handlerIdempotency))
	if !cfg.Reports.KeepArchivedTemp {
		bus.Subscribe(event.NewIdempotentHandler("archived-report-cleanup",
			transitionapp.NewArchivedReportCleanupHandler(log), stores.Idempotency, log, handlerIdempotency))
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		var processorOpts []event.ProcessorOption
		if tel.outboxMetrics != nil {
			processorOpts = append(processorOpts, event.WithProcessorMetrics(tel.outboxMetrics))
		}
		outboxProcessor = event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  cfg.Event.CleanupInterval,
		}, log, processorOpts...)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", cfg.Event.BatchSize),
			zap.Duration("poll_interval", cfg.Event.PollInterval),
			zap.Any("subscriptions", bus.Subscriptions()))
	} else {
		log.Warn("Outbox processor disabled, transition events accumulate until it is enabled")
	}

	// Report rendering: HTML template to PDF through headless Chrome
	chrome, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		DefaultTimeout: cfg.Renderer.Timeout,
		RemoteURL:      cfg.Renderer.RemoteURL,
		NoSandbox:      cfg.Renderer.NoSandbox,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
	}
	defer func() {
		if err := chrome.Close(); err != nil {
			log.Error("Error closing PDF renderer", zap.Error(err))
		}
	}()
	reportRenderer := printing.NewPDFReportRenderer(printing.NewTemplateEngine(), chrome, log)

	// Report archive: object storage, a local directory, or none
	dispatcherOpts := []transitionapp.DispatcherOption{
		transitionapp.WithDispatcherLogger(log),
		transitionapp.WithMetrics(tel.transitionMetrics),
	}
	var handlerOpts []handler.TransitionHandlerOption
	switch {
	case cfg.Storage.Enabled:
		archive, err := storage.NewS3ReportArchive(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration))
		if err != nil {
			log.Fatal("Failed to initialize report archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Fatal("Report archive bucket is not available", zap.Error(err))
		}
		dispatcherOpts = append(dispatcherOpts, transitionapp.WithReportArchive(archive))
		handlerOpts = append(handlerOpts, handler.WithReportPresigner(archive))
		log.Info("Archiving reports to object storage", zap.String("bucket", archive.GetBucket()))
	case cfg.Reports.ArchiveDir != "":
		archive, err := storage.NewLocalReportArchive(cfg.Reports.ArchiveDir)
		if err != nil {
			log.Fatal("Failed to initialize report archive", zap.Error(err))
		}
		dispatcherOpts = append(dispatcherOpts, transitionapp.WithReportArchive(archive))
		handlerOpts = append(handlerOpts, handler.WithLocalReportArchive(archive))
		log.Info("Archiving reports to local directory", zap.String("dir", cfg.Reports.ArchiveDir))
	default:
		log.Info("Report archive disabled, reports stay in temporary storage",
			zap.String("path", cfg.Reports.TempStoragePath))
	}

	// Initialize application services
	settings := transitionapp.Settings{
		Enabled:         cfg.Transitions.Enabled,
		TransitionSlugs: cfg.Transitions.Slugs,
		ReportSlugs:     cfg.Reports.Slugs,
		TempStoragePath: cfg.Reports.TempStoragePath,
	}
	transitionService := transitionapp.NewRequestHandler(settings, transitionapp.Repositories{
		Assets:      assetRepo,
		Warehouses:  warehouseRepo,
		Users:       userRepo,
		Transitions: transitionRepo,
		Templates:   templateRepo,
	}, transitionapp.NewDispatcherFactory(
		persistence.NewGormTransitionScope(db.DB, persistence.WithOutbox(event.NewOutboxPublisher(serializer))),
		reportRenderer,
		cfg.Reports.TempStoragePath,
		dispatcherOpts...,
	), log)
	historyService := transitionapp.NewHistoryService(historyRepo, log)

	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if client := stores.Redis(); client != nil {
		blacklist = auth.NewRedisTokenBlacklist(client)
	}
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	transitionHandler := handler.NewTransitionHandler(transitionService, historyService, handlerOpts...)
	outboxHandler := handler.NewOutboxHandler(appevent.NewOutboxService(outboxRepo, log))
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version,
		handler.HealthCheck{Name: "database", Check: func(context.Context) error { return db.Ping() }},
		handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			if client := stores.Redis(); client != nil {
				return client.Ping(ctx).Err()
			}
			return nil
		}},
	)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. Tracing - Start the request span
	// 2. RequestID - Generate/propagate request ID
	// 3. Recovery - Catch panics
	// 4. Logger - Log requests
	// 5. Metrics and profiling labels
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	// 9. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: tel.meters,
		Enabled:       cfg.Telemetry.MetricsEnabled,
	}))
	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = tel.profiler.IsEnabled()
	engine.Use(middleware.Profiling(profilingCfg))

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.HSTSEnabled = cfg.App.Env == "production"
	engine.Use(middleware.Secure(securityCfg))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = append(cfg.HTTP.CORSAllowHeaders, middleware.IdempotencyKeyHeader)
	engine.Use(middleware.CORS(corsCfg))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health endpoints (outside API versioning)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.TokenBlacklist = blacklist
	jwtCfg.SkipPaths = append(jwtCfg.SkipPaths, "/api/v1/system/ping")
	jwtCfg.Logger = log
	jwtAuth := middleware.JWTAuth(jwtCfg)

	// Swagger documentation endpoint. The API middleware skips /swagger,
	// so the docs get their own token check.
	swaggerAuth := middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		Logger:         log,
	})
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, swaggerAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(jwtAuth, middleware.SpanEnricher())

	authRoutes := router.NewDomainGroup("auth", "/auth")
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/logout", authHandler.Logout)
	authRoutes.GET("/me", authHandler.GetCurrentUser)

	idempotency := middleware.Idempotency(middleware.IdempotencyMiddlewareConfig{
		Store:  stores.Idempotency,
		Logger: log,
	})
	assetRoutes := router.NewDomainGroup("assets", "/assets")
	transitionRoutes := assetRoutes.Group("transitions", "/transitions")
	transitionRoutes.GET("", transitionHandler.Prepare)
	transitionRoutes.POST("", idempotency, transitionHandler.Submit)
	transitionRoutes.GET("/history", transitionHandler.ListHistory)
	transitionRoutes.GET("/history/:id", transitionHandler.GetHistory)
	transitionRoutes.GET("/history/:id/report", transitionHandler.DownloadReport)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	outboxRoutes := systemRoutes.Group("outbox", "/outbox")
	outboxRoutes.GET("/stats", outboxHandler.GetStats)
	outboxRoutes.GET("/dead", outboxHandler.GetDeadLetterEntries)
	outboxRoutes.GET("/:id", outboxHandler.GetEntry)
	outboxRoutes.POST("/dead/:id/retry", outboxHandler.RetryDeadEntry)
	outboxRoutes.POST("/dead/retry-all", outboxHandler.RetryAllDeadEntries)

	r.Register(authRoutes).
		Register(assetRoutes).
		Register(systemRoutes)
	r.Setup()

	for _, route := range r.Routes() {
		log.Debug("Route registered",
			zap.String("method", route.Method),
			zap.String("path", r.BasePath()+route.Path))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	tel.shutdown(shutdownCtx, log)

	log.Info("Server exited gracefully")
}

// telemetryProviders holds the OpenTelemetry providers and the profiler
type telemetryProviders struct {
	tracer            *telemetry.TracerProvider
	meters            *telemetry.MeterProvider
	logs              *telemetry.LoggerProvider
	profiler          *telemetry.Profiler
	transitionMetrics *telemetry.TransitionMetrics
	outboxMetrics     *telemetry.OutboxMetrics
}

// setupTelemetry starts every provider. Disabled providers are no-ops.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryProviders, error) {
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
	}, log)
	if err != nil {
		return nil, err
	}

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		SpanProfiles:      cfg.Profiling.SpanProfiles && profiler.IsEnabled(),
	}, log)
	if err != nil {
		return nil, err
	}

	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}

	p := &telemetryProviders{tracer: tracer, meters: meters, logs: logs, profiler: profiler}
	if meters.IsEnabled() {
		p.transitionMetrics, err = telemetry.NewTransitionMetrics(meters.Meter("itam.transitions"))
		if err != nil {
			return nil, err
		}
		p.outboxMetrics, err = telemetry.NewOutboxMetrics(meters.Meter("itam.outbox"))
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// shutdown flushes the providers in reverse start order
func (p *telemetryProviders) shutdown(ctx context.Context, log *zap.Logger) {
	if err := p.logs.Shutdown(ctx); err != nil {
		log.Warn("Failed to shut down log exporter", zap.Error(err))
	}
	if err := p.meters.Shutdown(ctx); err != nil {
		log.Warn("Failed to shut down meter provider", zap.Error(err))
	}
	if err := p.tracer.Shutdown(ctx); err != nil {
		log.Warn("Failed to shut down tracer provider", zap.Error(err))
	}
	if err := p.profiler.Stop(); err != nil {
		log.Warn("Failed to stop profiler", zap.Error(err))
	}
}
