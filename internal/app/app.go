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

	"dpt/internal/config"
	apperrors "dpt/internal/errors"
	"dpt/internal/infrastructure"
	customMiddleware "dpt/internal/middleware"
	"dpt/internal/operations"
	"dpt/internal/st"
	"dpt/internal/storage"
	handlers "dpt/internal/transport/http"
	"dpt/internal/websocket"
)

// AppName is logged at startup.
const AppName = "dpt web"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Store         *storage.Store
	Errors        *apperrors.ErrorHandler
	Pipeline      *operations.Manager
	Hub           *websocket.Hub

	options    st.Options
	operations *handlers.OperationsHandler
	cancelRuns context.CancelFunc
}

// NewApplication wires every component from cfg. paths may be nil, in which
// case they are derived from the executable location.
func NewApplication(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*Application, error) {
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", AppName),
		slog.String("version", infrastructure.ServiceVersion))

	if paths == nil {
		base, err := config.GetPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get paths: %w", err)
		}
		paths = base.Resolve(cfg.Paths)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	opts, err := st.NewOptions(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid aggregation config: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		Errors:        apperrors.NewErrorHandler(logger, cfg.Logging.Development),
		options:       opts,
	}

	if cfg.Database.DSN != "" {
		store, err := storage.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.Store = store
	} else {
		logger.InfoContext(ctx, "database.dsn not set, runs will not be persisted")
	}

	pipeline, err := operations.NewPipeline(cfg, paths, a.sink(), metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	a.Hub = websocket.NewHub(logger)
	a.Hub.Start()
	pipeline.SetObserver(a.Hub)
	a.Pipeline = pipeline

	// Background runs outlive the request that started them.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	a.cancelRuns = cancelRuns
	a.operations = handlers.NewOperationsHandler(runCtx, pipeline, paths.DownloadsDir, a.Errors, logger)

	a.setupRouter()
	a.createServer()
	return a, nil
}

// sink returns the store as a RunSink, or nil without a database.
func (a *Application) sink() operations.RunSink {
	if a.Store == nil {
		return nil
	}
	return a.Store
}

func (a *Application) pinger() handlers.Pinger {
	if a.Store == nil {
		return nil
	}
	return a.Store
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID -> RealIP -> OTel -> Logger -> Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Errors))
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(a.Errors.NotFound)
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))
	r.Handle("/ws", websocket.NewHandler(a.Hub, a.Logger))

	health := handlers.NewHealthHandler(infrastructure.ServiceVersion, a.pinger(), a.Logger)
	stHandler := handlers.NewSTHandler(a.options, a.sink(), a.Config.Server.MaxUploadBytes,
		a.Errors, a.Metrics, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", health.HealthCheck)
		r.Get("/health/ready", health.ReadinessCheck)

		r.Group(func(r chi.Router) {
			if rl := a.Config.Security.RateLimit; rl.Enabled {
				r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Errors, a.Logger).Handler)
			}
			r.Mount("/v1/st", stHandler.Routes())
			r.Mount("/v1/operations", a.operations.Routes())
		})
	})

	a.Router = r
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

// Start serves in the background. A listener failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.Int("port", a.Config.Server.Port),
		slog.Bool("persist", a.Store != nil),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := a.operations.Wait(shutdownCtx); err != nil {
		a.Logger.WarnContext(ctx, "Cancelling unfinished operations", slog.String("error", err.Error()))
	}
	a.cancelRuns()
	a.Hub.Stop()

	if a.Store != nil {
		a.Store.Close()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
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
	}

	// ctx may already be cancelled by a listener failure.
	return a.Stop(context.Background())
}
