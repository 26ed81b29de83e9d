package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/event"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/migration"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/erp/settlement/internal/infrastructure/scheduler"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/erp/settlement/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Fiscal Settlement API
//	@version		1.0
//	@description	Draft documents, invoice finalization with fiscal numbering, and customer receivables.
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	TenantHeader
//	@in							header
//	@name						X-Tenant-ID

func main() {
	migrateOnStart := flag.Bool("migrate", false, "Apply the embedded schema before serving")
	flag.Parse()

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
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	tel, log := setupTelemetry(ctx, cfg, log)

	log.Info("Starting settlement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
	)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log, persistence.Options{
		LogLevel:      logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		Tracing: telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		},
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get underlying sql.DB", zap.Error(err))
	}

	if *migrateOnStart {
		m, err := migration.New(sqlDB, "", log)
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		if err := m.Up(); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
		// Closing the migrator would close sqlDB, which the server still needs.
	}

	// Redis-backed request keys and draft locks, in process when Redis is off
	backends, err := cache.NewBackends(ctx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	)
	if err != nil {
		log.Fatal("Failed to initialize cache backends", zap.Error(err))
	}

	// Event bus with audit logging; redelivered events are dropped by key
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewIdempotentHandler(
		event.NewAuditLogHandler(log),
		backends.Store,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Settlement.IdempotencyTTL,
			Enabled: true,
		}),
	))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	txScope := persistence.NewGormTransactionScope(db.DB)
	catalog := persistence.NewGormProductCatalog(db.DB)
	credit := persistence.NewGormCustomerCreditDirectory(db.DB)

	var metrics settlement.Metrics
	if m, err := telemetry.NewSettlementMetrics(tel.meter.Meter("settlement")); err != nil {
		log.Warn("Settlement metrics unavailable", zap.Error(err))
	} else {
		metrics = m
	}

	allocator := settlement.NewFiscalSequenceAllocator(settlement.AllocatorConfig{
		MaxAttempts:     cfg.Settlement.AllocationMaxAttempts,
		InitialInterval: cfg.Settlement.AllocationInitialInterval,
		MaxInterval:     cfg.Settlement.AllocationMaxInterval,
	}, log, metrics)
	ledger := settlement.NewReceivablesLedger(log)

	coordinatorOpts := []settlement.CoordinatorOption{
		settlement.WithDocumentLocker(backends.Locker, cfg.Settlement.DraftLockTTL),
	}
	if metrics != nil {
		coordinatorOpts = append(coordinatorOpts, settlement.WithMetrics(metrics))
	}
	coordinator := settlement.NewSettlementCoordinator(txScope, allocator, ledger, credit, bus, log, coordinatorOpts...)
	draftService := settlement.NewDraftService(txScope, catalog, bus, log)
	blockService := settlement.NewSequenceBlockService(txScope, bus, log)

	var sweeper *scheduler.ExpirySweeper
	if !cfg.Settlement.ExpirySweepDisabled {
		sweepCfg := scheduler.DefaultExpirySweeperConfig()
		sweepCfg.Interval = cfg.Settlement.ExpirySweepInterval
		sweepCfg.BatchSize = cfg.Settlement.ExpirySweepBatchSize
		sweeper, err = scheduler.NewExpirySweeper(sweepCfg, blockService, log)
		if err != nil {
			log.Fatal("Invalid expiry sweeper configuration", zap.Error(err))
		}
		if err := sweeper.Start(ctx); err != nil {
			log.Fatal("Failed to start expiry sweeper", zap.Error(err))
		}
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	var limiter *middleware.RateLimiter
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORS(cfg.HTTP),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
		engine.Use(limiter.Middleware())
	}
	engine.Use(
		middleware.Tenant(middleware.DefaultTenantConfig()),
		middleware.SpanAttributes(),
	)

	health := handler.NewHealthHandler(cfg.App.Version).
		Require("database", handler.PingFunc(sqlDB.PingContext))
	if backends.Redis != nil {
		health.Optional("redis", handler.PingFunc(func(ctx context.Context) error {
			return backends.Redis.Ping(ctx).Err()
		}))
	}
	engine.GET("/health", health.Check)

	router.NewRouter(engine).
		Register(router.SettlementGroups(router.SettlementHandlers{
			Drafts:          handler.NewDraftHandler(draftService),
			Settlement:      handler.NewSettlementHandler(coordinator),
			FiscalSequences: handler.NewFiscalSequenceHandler(blockService),
		}, middleware.Idempotency(backends.Store, cfg.Settlement.IdempotencyTTL))...).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if limiter != nil {
		limiter.Stop()
	}
	if sweeper != nil {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping expiry sweeper", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := backends.Close(); err != nil {
		log.Error("Error closing cache backends", zap.Error(err))
	}
	tel.shutdown(shutdownCtx, log)

	log.Info("Server exited")
}

type telemetryStack struct {
	tracer   *telemetry.TracerProvider
	meter    *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

// setupTelemetry starts tracing, metrics, the OTLP log bridge and profiling.
// Each part degrades to a no-op when it fails to start; the returned logger
// tees into the OTLP pipeline when logs are enabled.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryStack, *zap.Logger) {
	tc := cfg.Telemetry
	serviceName := tc.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	tel := &telemetryStack{}

	var err error
	tel.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       serviceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Tracing unavailable, continuing without it", zap.Error(err))
		tel.tracer, _ = telemetry.NewTracerProvider(ctx, telemetry.Config{}, log)
	}

	tel.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled && tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsExportInterval,
		ServiceName:       serviceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Metrics unavailable, continuing without them", zap.Error(err))
		tel.meter, _ = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, log)
	}

	tel.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled && tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       serviceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("OTEL logs unavailable, continuing without them", zap.Error(err))
		tel.logs, _ = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{}, log)
	}
	if tel.logs.IsEnabled() {
		log = telemetry.NewBridgedLogger(log, telemetry.NewZapOTELCore(serviceName, tel.logs, zapcore.InfoLevel))
	}

	tel.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           tc.ProfilingEnabled,
		ServerAddress:     tc.PyroscopeAddress,
		ApplicationName:   serviceName,
		BasicAuthUser:     tc.PyroscopeBasicAuthUser,
		BasicAuthPassword: tc.PyroscopeBasicAuthPass,
		ProfileMutex:      tc.ProfileMutex,
		ProfileBlock:      tc.ProfileBlock,
	}, log)
	if err != nil {
		log.Warn("Profiling unavailable, continuing without it", zap.Error(err))
		tel.profiler, _ = telemetry.NewProfiler(telemetry.ProfilerConfig{}, log)
	} else if tc.ProfilingEnabled && tel.tracer.IsEnabled() {
		tel.tracer.EnableSpanProfiles()
	}

	return tel, log
}

func (t *telemetryStack) shutdown(ctx context.Context, log *zap.Logger) {
	if err := t.profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := t.tracer.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := t.meter.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := t.logs.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}
