package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphttp "gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/http"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/middleware"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/application"
	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/safego"
)

// NOTE: The App struct and NewApp function are defined in providers.go for Wire.
// This file should only contain methods for the App struct, like Run().

// chain applies middlewares right to left, so the first listed wraps outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (a *App) registerRoutes(ctx context.Context) {
	requestID := middleware.RequestIDMiddleware
	secure := (func(http.Handler) http.Handler)(a.securityHeaders)
	publicLimit := middleware.RateLimit(a.publicLimiter, a.logger)
	adminLimit := middleware.RateLimit(a.adminLimiter, a.logger)
	contactLimit := middleware.RateLimit(a.contactLimiter, a.logger)
	adminAuth := (func(http.Handler) http.Handler)(a.adminAuthMiddleware)
	csrfGuard := (func(http.Handler) http.Handler)(a.csrfGuardMiddleware)

	public := func(h http.HandlerFunc) http.Handler {
		return chain(h, requestID, secure, publicLimit)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return chain(h, requestID, secure, adminLimit, adminAuth, csrfGuard)
	}

	ch := a.contentHandlers

	// Public reads
	a.httpServeMux.Handle("GET /api/stylists", public(ch.ListStylists))
	a.httpServeMux.Handle("GET /api/styles", public(ch.ListStyles))
	a.httpServeMux.Handle("GET /api/menu", public(ch.ListMenu))
	a.httpServeMux.Handle("GET /api/news", public(ch.ListNews))
	a.httpServeMux.Handle("GET /api/salon", public(ch.GetSalonInfo))

	// Admin mutations
	a.httpServeMux.Handle("POST /api/stylists", admin(ch.CreateStylist))
	a.httpServeMux.Handle("PATCH /api/stylists/{id}", admin(ch.UpdateStylist))
	a.httpServeMux.Handle("DELETE /api/stylists/{id}", admin(ch.DeleteStylist))
	a.httpServeMux.Handle("POST /api/styles", admin(ch.CreateStyle))
	a.httpServeMux.Handle("PATCH /api/styles/{id}", admin(ch.UpdateStyle))
	a.httpServeMux.Handle("DELETE /api/styles/{id}", admin(ch.DeleteStyle))
	a.httpServeMux.Handle("POST /api/menu", admin(ch.CreateMenuItem))
	a.httpServeMux.Handle("PATCH /api/menu/{id}", admin(ch.UpdateMenuItem))
	a.httpServeMux.Handle("DELETE /api/menu/{id}", admin(ch.DeleteMenuItem))
	a.httpServeMux.Handle("POST /api/news", admin(ch.CreateNewsItem))
	a.httpServeMux.Handle("PATCH /api/news/{id}", admin(ch.UpdateNewsItem))
	a.httpServeMux.Handle("DELETE /api/news/{id}", admin(ch.DeleteNewsItem))
	a.httpServeMux.Handle("PUT /api/salon", admin(ch.ReplaceSalonInfo))

	// Contact submissions: CSRF gated but open to anonymous visitors.
	a.httpServeMux.Handle("POST /api/contact", chain(http.HandlerFunc(ch.SubmitContact), requestID, secure, contactLimit, csrfGuard))

	// CSRF token issuance
	csrfHandler := apphttp.CSRFTokenHandler(a.csrfService, a.logger)
	a.httpServeMux.Handle("GET /api/csrf-token", chain(csrfHandler, requestID, secure, publicLimit))

	// Admin token minting, API-key gated
	adminTokenHandler := apphttp.GenerateAdminTokenHandler(a.configProvider, a.logger)
	a.httpServeMux.Handle("POST /admin/generate-token", chain(
		adminTokenHandler,
		requestID, secure, (func(http.Handler) http.Handler)(a.tokenGenerationMiddleware),
	))

	a.logger.Info(ctx, "Content API routes registered")
}

// Run starts the application, listens for HTTP requests, and handles graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	version := "unknown"
	serviceName := "salon-cms-service"
	if a.configProvider != nil && a.configProvider.Get() != nil {
		configApp := a.configProvider.Get().App
		if configApp.Version != "" {
			version = configApp.Version
		}
		if configApp.ServiceName != "" {
			serviceName = configApp.ServiceName
		}
	}
	a.logger.Info(ctx, "Starting application", "service_name", serviceName, "version", version)

	healthHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"OK"}`)
	})
	a.httpServeMux.Handle("GET /health", middleware.RequestIDMiddleware(healthHandler))

	readyHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ready := true
		dependenciesStatus := make(map[string]string)

		if a.redisClient != nil {
			if err := a.redisClient.Ping(r.Context()).Err(); err == nil {
				dependenciesStatus["redis"] = "connected"
			} else {
				dependenciesStatus["redis"] = "disconnected"
				ready = false
				a.logger.Warn(r.Context(), "Readiness check failed: Redis ping failed", "error", err.Error())
			}
		} else {
			dependenciesStatus["redis"] = "not_configured"
			ready = false
		}

		// NATS is optional; an unconfigured publisher does not fail readiness.
		if a.natsPublisher == nil {
			dependenciesStatus["nats"] = "not_configured"
		} else if a.natsPublisher.IsConnected() {
			dependenciesStatus["nats"] = "connected"
		} else {
			dependenciesStatus["nats"] = "disconnected"
			a.logger.Warn(r.Context(), "NATS disconnected; events are not being published")
		}

		response := struct {
			Status       string            `json:"status"`
			Dependencies map[string]string `json:"dependencies"`
		}{
			Dependencies: dependenciesStatus,
		}

		if ready {
			response.Status = "READY"
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = "NOT_READY"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			a.logger.Error(r.Context(), "Failed to encode readiness response", "error", err)
		}
	})
	a.httpServeMux.Handle("GET /ready", middleware.RequestIDMiddleware(readyHandler))

	a.httpServeMux.Handle("GET /metrics", middleware.RequestIDMiddleware(promhttp.Handler()))
	a.logger.Info(ctx, "Prometheus metrics endpoint registered at /metrics")

	a.registerRoutes(ctx)

	// Cross-replica cache invalidation listener.
	if a.invalidationSub != nil && a.documentStore != nil {
		safego.Execute(ctx, a.logger, "DocumentCacheInvalidationSubscriber", func() {
			if err := a.invalidationSub.SubscribeToInvalidations(ctx, a.documentStore.HandleInvalidation); err != nil {
				a.logger.Error(ctx, "Invalidation subscriber terminated", "error", err.Error())
			}
		})
	} else {
		a.logger.Warn(ctx, "Invalidation subscriber not initialized. Cross-replica cache coherence is impaired.")
	}

	// Periodic rate bucket sweepers.
	sweepInterval := time.Hour
	if cfg := a.configProvider.Get(); cfg.RateLimit.SweepIntervalSeconds > 0 {
		sweepInterval = time.Duration(cfg.RateLimit.SweepIntervalSeconds) * time.Second
	}
	for name, limiter := range map[string]*application.RateLimiter{
		"PublicRateLimiterSweeper":  a.publicLimiter,
		"AdminRateLimiterSweeper":   a.adminLimiter,
		"ContactRateLimiterSweeper": a.contactLimiter,
	} {
		l := limiter
		safego.Execute(ctx, a.logger, name, func() {
			l.StartSweeper(ctx, sweepInterval)
		})
	}

	safego.Execute(ctx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}

		shutdownTimeout := 30 * time.Second
		if a.configProvider != nil && a.configProvider.Get() != nil {
			configApp := a.configProvider.Get().App
			if configApp.ShutdownTimeoutSeconds > 0 {
				shutdownTimeout = time.Duration(configApp.ShutdownTimeoutSeconds) * time.Second
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(context.Background(), "HTTP server shut down.")
	})

	a.logger.Info(ctx, fmt.Sprintf("HTTP server listening on port %d", a.configProvider.Get().Server.HTTPPort))
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.logger.Info(ctx, "Application shut down gracefully or server closed.")
	return nil
}
