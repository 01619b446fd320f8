package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"qajalicense/internal/backup"
	"qajalicense/internal/config"
	apierrors "qajalicense/internal/errors"
	"qajalicense/internal/exporter"
	"qajalicense/internal/infrastructure"
	"qajalicense/internal/license"
	customMiddleware "qajalicense/internal/middleware"
	"qajalicense/internal/services"
	handlers "qajalicense/internal/transport/http"
	ws "qajalicense/internal/websocket"
)

// BuildTime is set at compile time
var BuildTime = "unknown"

// Application represents the main application container
type Application struct {
	Config          *config.Config
	Paths           *config.Paths
	Router          *chi.Mux
	Server          *http.Server
	Logger          *slog.Logger
	Services        *ServiceContainer
	OTelProviders   *infrastructure.OTelProviders
	BusinessMetrics *infrastructure.BusinessMetrics

	errorHandler *apierrors.ErrorHandler
	redis        *redis.Client
	cache        *license.DocumentCache
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Store     *license.Store
	Manager   *license.Manager
	Guard     *license.AttemptGuard
	License   services.LicenseService
	Backups   services.BackupService
	Health    *services.HealthService
	Scheduler *backup.Scheduler
	WebSocket *ws.Hub
}

// NewApplication loads configuration from the environment and builds the
// application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(context.Background(), cfg, logger)
}

// New wires every component for cfg. Nothing is started until Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("storage", cfg.Storage.Driver))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	businessMetrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:          cfg,
		Paths:           paths,
		Logger:          logger,
		OTelProviders:   otelProviders,
		BusinessMetrics: businessMetrics,
		errorHandler:    apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
	}

	if err := app.initializeServices(ctx); err != nil {
		app.release()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		app.release()
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	app.createServer()

	return app, nil
}

// initializeServices builds the store, the license core and the services on top
func (a *Application) initializeServices(ctx context.Context) error {
	licenseMetrics, err := license.InitializeLicenseMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to initialize license metrics: %w", err)
	}

	backend, err := a.newBackend(ctx)
	if err != nil {
		return err
	}

	storeOpts := []license.StoreOption{
		license.WithStoreLogger(a.Logger),
		license.WithStoreMetrics(licenseMetrics),
	}
	if a.Config.Cache.SnapshotTTL > 0 {
		a.cache = license.NewDocumentCache(a.Config.Cache.SnapshotTTL, config.SnapshotCacheSize)
		storeOpts = append(storeOpts, license.WithDocumentCache(a.cache))
	}
	store := license.NewStore(backend, storeOpts...)

	seeded, err := store.SeedFromEnvironment(ctx, a.Config.Storage.EnvSeed)
	switch {
	case err != nil:
		a.Logger.WarnContext(ctx, "ignoring environment seed",
			slog.String("variable", config.EnvSeedVariable),
			slog.String("error", err.Error()))
	case seeded:
		a.Logger.InfoContext(ctx, "license document restored from environment",
			slog.String("variable", config.EnvSeedVariable))
	}

	wsMetrics, err := ws.NewOTelMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to initialize websocket metrics: %w", err)
	}
	hub := ws.NewHub(a.Logger, ws.WithOTelMetrics(wsMetrics))

	manager := license.NewManager(store,
		license.WithLogger(a.Logger),
		license.WithMetrics(licenseMetrics),
		license.WithEventPublisher(hub),
	)

	guard := license.NewAttemptGuard(a.Config.Security.KeyGuard, a.Logger)

	serviceOpts := []services.LicenseServiceOption{services.WithAttemptGuard(guard)}
	sheets, err := exporter.NewSheetsPublisher(ctx, a.Config.Export)
	switch {
	case err == nil:
		serviceOpts = append(serviceOpts, services.WithSheetsPublisher(sheets))
	case !errors.Is(err, exporter.ErrSheetsNotConfigured):
		a.Logger.WarnContext(ctx, "Google Sheets export disabled", slog.String("error", err.Error()))
	}
	licenseService := services.NewLicenseService(manager, a.Logger, serviceOpts...)

	scheduler, err := a.newScheduler(ctx, store)
	if err != nil {
		guard.Stop()
		hub.Stop()
		return err
	}
	var driver services.BackupScheduler
	if scheduler != nil {
		driver = scheduler
	}
	backupService := services.NewBackupService(driver, a.Logger)

	healthService := services.NewHealthService(config.AppVersion, BuildTime, store, hub, backupService, a.Logger)

	a.Services = &ServiceContainer{
		Store:     store,
		Manager:   manager,
		Guard:     guard,
		License:   licenseService,
		Backups:   backupService,
		Health:    healthService,
		Scheduler: scheduler,
		WebSocket: hub,
	}
	return nil
}

// newBackend opens the configured document backend
func (a *Application) newBackend(ctx context.Context) (license.Backend, error) {
	switch a.Config.Storage.Driver {
	case config.StorageDriverRedis:
		client, err := license.NewRedisClient(ctx,
			a.Config.Storage.RedisAddr,
			a.Config.Storage.RedisPassword,
			a.Config.Storage.RedisDB)
		if err != nil {
			return nil, err
		}
		a.redis = client
		return license.NewRedisBackend(client, a.Config.Storage.RedisKey), nil
	case config.StorageDriverFile, "":
		return license.NewFileBackend(a.Paths.DatabaseFile, a.Paths.EmergencyBackupFile), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", a.Config.Storage.Driver)
	}
}

// newScheduler builds the backup scheduler, or returns nil when scheduled
// backups are disabled
func (a *Application) newScheduler(ctx context.Context, store *license.Store) (*backup.Scheduler, error) {
	cfg := a.Config.Backup
	if !cfg.Enabled {
		return nil, nil
	}

	sinks := []backup.Sink{backup.NewFileSink(a.Paths.BackupDir, cfg.Retention, a.Logger)}
	if cfg.S3.Enabled {
		client, err := backup.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		sinks = append(sinks, backup.NewS3Sink(client, cfg.S3.Bucket, cfg.S3.Prefix))
	}

	scheduler, err := backup.NewScheduler(store, cfg.Schedule, cfg.TimeZone, sinks,
		backup.WithLogger(a.Logger),
		backup.WithMetrics(a.BusinessMetrics),
		backup.WithServerURL(fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup scheduler: %w", err)
	}
	return scheduler, nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	eh := a.errorHandler

	validator, err := customMiddleware.NewValidator(a.Config.Server.MaxBodyBytes)
	if err != nil {
		return err
	}

	// RequestID → RealIP → OTel → Logger → Recoverer → headers → limits
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.BusinessMetrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(eh))
	r.Use(customMiddleware.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}
	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
			eh,
		).Handler)
	}
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

	r.NotFound(eh.NotFound)
	r.MethodNotAllowed(eh.MethodNotAllowed)

	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/health/ready", healthHandler.ReadinessCheck)
	r.Get("/health/live", healthHandler.LivenessCheck)
	r.Get("/version", healthHandler.Version)
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))

	auth := customMiddleware.NewAdminKeyAuth(a.Config.Security.AdminKeyHashes, a.Logger, eh)
	if !auth.Enabled() {
		a.Logger.Warn("admin routes are not protected, configure admin key hashes")
	}

	adminHandler := handlers.NewAdminHandler(
		a.Services.License,
		a.Services.Backups,
		validator,
		eh,
		a.Logger,
		handlers.WithEventStream(ws.Handler(a.Services.WebSocket, a.Config.WebSocket, a.Config.Security.AllowedOrigins)),
	)
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.Handler)
		r.Use(customMiddleware.AuditLog(a.Logger))
		r.Use(customMiddleware.ContentTypeValidator(eh, "application/json"))
		r.Mount("/", adminHandler.Routes())
	})

	r.Mount("/", handlers.NewLicenseHandler(a.Services.License, eh, a.Logger).Routes())

	a.Router = r
	return nil
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", customMiddleware.APIKeyHeader, "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the background services and the HTTP server. cancel is
// called when the server stops unexpectedly.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Services.WebSocket.Start()
	if a.Services.Scheduler != nil {
		a.Services.Scheduler.Start(ctx)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application. The HTTP server drains first so
// no request observes a stopped dependency.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.Services.Scheduler != nil {
		if err := a.Services.Scheduler.Stop(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error stopping backup scheduler", slog.String("error", err.Error()))
		}
	}
	a.Services.WebSocket.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.release()
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// release frees the resources that are not tied to the server lifecycle
func (a *Application) release() {
	if a.Services != nil {
		a.Services.Guard.Stop()
	}
	if a.cache != nil {
		a.cache.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Error("Error closing redis client", slog.String("error", err.Error()))
		}
	}
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck checks that the data directories are writable
// and that the license document is readable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Data":    a.Paths.DataDir,
		"Backups": a.Paths.BackupDir,
		"Logs":    a.Paths.LogsDir,
	}
	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
			continue
		}
		_ = os.Remove(testFile)
	}

	report, err := a.Services.Store.VerifyIntegrity(ctx)
	switch {
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("license document unreadable: %v", err))
	case !report.Healthy:
		warnings = append(warnings, fmt.Sprintf("license document has issues: %s", strings.Join(report.Checks.Issues, ", ")))
	default:
		a.Logger.InfoContext(ctx, "License document verified",
			slog.String("backend", report.Checks.Backend),
			slog.Int("licenses", report.Checks.TotalLicenses))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
