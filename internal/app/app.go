// Package app assembles the HTTP application: configuration, logging,
// observability, services, middleware chain and routes.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"icahtcli/internal/config"
	apierrors "icahtcli/internal/errors"
	"icahtcli/internal/infrastructure"
	customMiddleware "icahtcli/internal/middleware"
	"icahtcli/internal/services"
	transport "icahtcli/internal/transport/http"
	"icahtcli/pkg/contracts"
)

// Application holds the wired components of the grading server.
type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Router   chi.Router
	OTel     *infrastructure.OTelProviders
	Metrics  *infrastructure.GradingMetrics
	Grading  *services.GradingService
	Health   *services.HealthService
	server   *http.Server
	errorHdl *apierrors.ErrorHandler
}

// NewApplication builds the application from configuration.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	logger := infrastructure.InitializeLogger(cfg.Logging)

	otelProviders, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize observability: %w", err)
	}

	var metrics *infrastructure.GradingMetrics
	if otelProviders.Meter != nil {
		metrics, err = infrastructure.CreateGradingMetrics(otelProviders.Meter)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
	}

	store := services.NewMemoryJobStore()
	gradingService := services.NewGradingService(store, cfg.Grading, cfg.Limits.MaxConcurrency, logger, metrics)
	healthService := services.NewHealthService(contracts.Version, store, cfg.Grading)

	a := &Application{
		Config:   cfg,
		Logger:   logger,
		OTel:     otelProviders,
		Metrics:  metrics,
		Grading:  gradingService,
		Health:   healthService,
		errorHdl: apierrors.NewErrorHandler(logger, false),
	}
	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(a.errorHdl.Recoverer)
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.Compress(5))

	r.NotFound(a.errorHdl.NotFound)
	r.MethodNotAllowed(a.errorHdl.MethodNotAllowed)

	gradingHandler := transport.NewGradingHandler(a.Grading, a.Logger, a.errorHdl)
	healthHandler := transport.NewHealthHandler(a.Health)

	uploadLimiter := customMiddleware.NewRateLimiter(
		a.Config.Limits.UploadRPS,
		a.Config.Limits.UploadBurst,
		a.Logger,
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(uploadLimiter.Handler)
			r.Mount("/", gradingHandler.Routes())
		})

		r.Mount("/health", healthHandler.Routes())
	})

	if a.OTel != nil && a.OTel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTel.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) createServer() {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start runs the HTTP server until the context is cancelled, then shuts
// down gracefully.
func (a *Application) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening",
			slog.Int("port", a.Config.Server.Port),
			slog.String("version", contracts.Version))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	return a.Stop(shutdownCtx)
}

// Stop shuts down the server and flushes observability providers.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.Info("shutting down server")

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if a.OTel != nil {
		if err := a.OTel.Shutdown(ctx); err != nil {
			a.Logger.Warn("observability shutdown failed", slog.String("error", err.Error()))
		}
	}

	a.Logger.Info("server stopped")
	return nil
}
