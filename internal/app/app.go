package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"braindock/internal/config"
	apierrors "braindock/internal/errors"
	"braindock/internal/infrastructure"
	"braindock/internal/license"
	custommw "braindock/internal/middleware"
	"braindock/internal/services"
	handlers "braindock/internal/transport/http"
)

const (
	// Version is overridden at build time via -ldflags.
	Version = "1.0.0"
	AppName = "BrainDock Entitlement Service"
)

// Application is the main dependency container.
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	LicenseManager *license.Manager
	LicenseService services.LicenseService
}

// NewApplication creates a new application instance with dependency injection.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	if !config.FileExists(paths.KeysFile) {
		logger.Warn("license key list not found, key activation will reject all keys",
			slog.String("path", paths.KeysFile))
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the entitlement engine and the service layer.
func (a *Application) initializeServices(ctx context.Context) error {
	engineLogger := infrastructure.WithComponent(a.Logger, "license")

	store := license.NewStore(a.Paths.EntitlementFile, engineLogger)
	keys := license.NewKeyValidator(a.Paths.KeysFile, engineLogger)

	manager := license.NewManager(ctx, store, keys, engineLogger)

	metrics, err := license.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		a.Logger.Warn("license metrics unavailable", slog.String("error", err.Error()))
	} else {
		manager.SetMetrics(metrics)
	}
	a.LicenseManager = manager

	a.LicenseService = services.NewLicenseService(manager, engineLogger)
	return nil
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	httpLogger := infrastructure.WithComponent(a.Logger, "http")

	// Ordering: RequestID, RealIP, StripSlashes, Logger, Recoverer,
	// SecurityHeaders, RateLimiter.
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StripSlashes)
	r.Use(custommw.StructuredLogger(httpLogger))
	r.Use(custommw.Recoverer(httpLogger))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.NewRateLimiter(
		a.Config.Limits.RequestsPerSecond,
		a.Config.Limits.Burst,
		httpLogger,
	).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, apierrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, apierrors.ErrMethodNotAllowed)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		licenseHandler := handlers.NewLicenseHandler(a.LicenseService, httpLogger)
		r.Mount("/license", licenseHandler.Routes())
	})

	r.Get("/healthz", a.handleHealthz)

	// Prometheus scrape endpoint, outside the rate-limited API surface.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) handleHealthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"version":  Version,
		"licensed": a.LicenseManager.IsLicensed(),
	})
}

// createServer creates the HTTP server from configuration.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *Application) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the server and flushes telemetry.
func (a *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error("server shutdown failed", slog.String("error", err.Error()))
		return err
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		return err
	}

	a.Logger.Info("shutdown complete")
	return nil
}
