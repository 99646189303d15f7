package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"costcompare/internal/comparison"
	"costcompare/internal/config"
	"costcompare/internal/dataprocessing"
	apierrors "costcompare/internal/errors"
	"costcompare/internal/infrastructure"
	customMiddleware "costcompare/internal/middleware"
	"costcompare/internal/store"
	handlers "costcompare/internal/transport/http"
	"costcompare/internal/validation"
)

// AppName identifies the service in logs.
const AppName = "costcompare"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Runtime       *infrastructure.RuntimeMetrics
	Store         *store.Store
	Service       *comparison.Service
	ErrorHandler  *apierrors.ErrorHandler
}

// NewApplication loads the configuration and logger, then builds the
// application with New.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(ctx, cfg, logger)
}

// New wires telemetry, the load history store and the reference dataset
// into an HTTP server. The dataset is fully loaded before New returns.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", AppName),
		slog.String("version", infrastructure.ServiceVersion),
		slog.String("data_dir", cfg.Data.Dir))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.IncludeStackTraces()),
	}

	if err := a.initializeServices(ctx); err != nil {
		a.release(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices builds metrics, the store and the comparison service
func (a *Application) initializeServices(ctx context.Context) error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	runtimeMetrics, err := infrastructure.RegisterRuntimeMetrics(a.OTelProviders.Meter, time.Now())
	if err != nil {
		return fmt.Errorf("failed to register runtime metrics: %w", err)
	}
	a.Runtime = runtimeMetrics

	loadTracer, err := dataprocessing.NewLoadTracer(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create load tracer: %w", err)
	}

	settings := comparison.SettingsFrom(a.Config.Data)
	settings.Logger = a.Logger
	settings.Tracer = loadTracer

	if a.Config.Store.Enabled {
		st, err := store.Open(ctx, a.Config.Store.Path)
		if err != nil {
			return apierrors.NewStorageError("failed to open load history", err)
		}
		a.Store = st
		settings.Recorder = st
		a.Logger.InfoContext(ctx, "Load history store opened", slog.String("path", st.Path()))
	}

	if err := validation.NewFileValidator(a.Logger).ValidateDataFiles(a.Config.Data); err != nil {
		return fmt.Errorf("invalid reference data: %w", err)
	}

	dataset, err := comparison.LoadDataset(ctx, a.Config.Data, settings)
	if err != nil {
		return apierrors.NewParsingError("failed to load reference data", err)
	}

	a.Service = comparison.NewService(dataset, metrics, a.Logger)
	return nil
}

// setupRouter configures middleware and routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → OTel → Logger → Recoverer → Timeout
	r.Use(customMiddleware.RequestID)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
			a.ErrorHandler,
		).Handler)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	r.Get("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP).GetMetrics)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	comparisonHandler := handlers.NewComparisonHandler(a.Service, a.Logger, a.ErrorHandler)
	healthHandler := handlers.NewHealthHandler(a.Service, a.Logger)

	var history handlers.LoadLister
	if a.Store != nil {
		history = a.Store
	}
	loadsHandler := handlers.NewLoadsHandler(history, a.Logger, a.ErrorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger, a.ErrorHandler))

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/loads", loadsHandler.ListLoads)

		r.Mount("/", comparisonHandler.Routes())
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts serving in the background. A listener failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting HTTP server",
		slog.String("name", AppName),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level),
		slog.Int("states", len(a.Service.States())),
		slog.Int("countries", len(a.Service.Countries())))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := a.release(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// release closes the store and flushes telemetry.
func (a *Application) release(ctx context.Context) error {
	var errs []error
	if err := a.Runtime.Unregister(); err != nil {
		errs = append(errs, err)
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing load history", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run runs the application until interrupted or the server fails
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}
