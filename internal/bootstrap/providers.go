package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/config"
	apphttp "gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/http"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/logger"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/middleware"
	appnats "gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/nats"
	appredis "gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/redis"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/application"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

// Distinct types so Wire can tell the identically-shaped components apart.
type (
	TokenGenerationMiddleware func(http.Handler) http.Handler
	AdminAuthMiddleware       func(http.Handler) http.Handler
	CSRFGuardMiddleware       func(http.Handler) http.Handler
	SecurityHeadersMiddleware func(http.Handler) http.Handler

	PublicRateLimiter  *application.RateLimiter
	AdminRateLimiter   *application.RateLimiter
	ContactRateLimiter *application.RateLimiter
)

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for
// config initialization before the domain logger exists.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger, err = zap.NewDevelopment()
		if err != nil {
			zapLogger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger (production and development failed, falling back to example): %v\n", err)
		}
	}

	cleanup := func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return zapLogger, cleanup, nil
}

// App aggregates everything Run needs. Wire builds it through NewApp.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	httpServeMux   *http.ServeMux
	httpServer     *http.Server
	redisClient    *redis.Client

	documentStore   *application.DocumentStore
	csrfService     *application.CSRFService
	contentHandlers *apphttp.ContentHandlers
	natsPublisher   *appnats.PublisherAdapter
	invalidationSub *appredis.InvalidationPubSubAdapter

	publicLimiter  *application.RateLimiter
	adminLimiter   *application.RateLimiter
	contactLimiter *application.RateLimiter

	tokenGenerationMiddleware TokenGenerationMiddleware
	adminAuthMiddleware       AdminAuthMiddleware
	csrfGuardMiddleware       CSRFGuardMiddleware
	securityHeaders           SecurityHeadersMiddleware
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	redisClient *redis.Client,
	documentStore *application.DocumentStore,
	csrfService *application.CSRFService,
	contentHandlers *apphttp.ContentHandlers,
	natsPublisher *appnats.PublisherAdapter,
	invalidationSub *appredis.InvalidationPubSubAdapter,
	publicLimiter PublicRateLimiter,
	adminLimiter AdminRateLimiter,
	contactLimiter ContactRateLimiter,
	tokenGenMiddleware TokenGenerationMiddleware,
	adminAuthMid AdminAuthMiddleware,
	csrfGuardMid CSRFGuardMiddleware,
	securityHeadersMid SecurityHeadersMiddleware,
) (*App, func(), error) {
	app := &App{
		configProvider:            cfgProvider,
		logger:                    appLogger,
		httpServeMux:              mux,
		httpServer:                server,
		redisClient:               redisClient,
		documentStore:             documentStore,
		csrfService:               csrfService,
		contentHandlers:           contentHandlers,
		natsPublisher:             natsPublisher,
		invalidationSub:           invalidationSub,
		publicLimiter:             (*application.RateLimiter)(publicLimiter),
		adminLimiter:              (*application.RateLimiter)(adminLimiter),
		contactLimiter:            (*application.RateLimiter)(contactLimiter),
		tokenGenerationMiddleware: tokenGenMiddleware,
		adminAuthMiddleware:       adminAuthMid,
		csrfGuardMiddleware:       csrfGuardMid,
		securityHeaders:           securityHeadersMid,
	}

	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		if app.invalidationSub != nil {
			if err := app.invalidationSub.Close(); err != nil {
				app.logger.Error(context.Background(), "Error closing invalidation subscription", "error", err.Error())
			}
		}
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration.
func ConfigProvider(appCtx context.Context, zapLogger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, zapLogger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	appCfg := cfgProvider.Get()
	return logger.NewZapAdapter(cfgProvider, appCfg.App.ServiceName)
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides a new HTTP server configured for graceful shutdown.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()

	readTimeout := 10 * time.Second
	writeTimeout := 10 * time.Second
	idleTimeout := 60 * time.Second

	if appCfg.App.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(appCfg.App.WriteTimeoutSeconds) * time.Second
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// RedisClientProvider provides a Redis client and a cleanup function.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", appCfg.Redis.Address)
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", appCfg.Redis.Address, err)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", appCfg.Redis.Address)
	return client, cleanup, nil
}

// ObjectStorageProvider provides the versioned object storage backend.
func ObjectStorageProvider(redisClient *redis.Client, appLogger domain.Logger) domain.ObjectStorage {
	return appredis.NewObjectStorageAdapter(redisClient, appLogger)
}

// InvalidationPubSubProvider provides the cross-replica cache invalidation adapter.
func InvalidationPubSubProvider(redisClient *redis.Client, appLogger domain.Logger) *appredis.InvalidationPubSubAdapter {
	return appredis.NewInvalidationPubSubAdapter(redisClient, appLogger)
}

// DocumentStoreProvider provides the cached document store.
func DocumentStoreProvider(appLogger domain.Logger, cfgProvider config.Provider, storage domain.ObjectStorage, invalidations *appredis.InvalidationPubSubAdapter) *application.DocumentStore {
	return application.NewDocumentStore(appLogger, cfgProvider, storage, invalidations)
}

// CSRFTokenStoreProvider provides the Redis-backed CSRF token store.
func CSRFTokenStoreProvider(redisClient *redis.Client, appLogger domain.Logger) domain.CSRFTokenStore {
	return appredis.NewCSRFStoreAdapter(redisClient, appLogger)
}

// CSRFServiceProvider provides the CSRF token service.
func CSRFServiceProvider(appLogger domain.Logger, cfgProvider config.Provider, store domain.CSRFTokenStore) *application.CSRFService {
	return application.NewCSRFService(appLogger, cfgProvider, store)
}

// AdminTokenCacheStoreProvider provides the admin token cache store.
func AdminTokenCacheStoreProvider(redisClient *redis.Client, appLogger domain.Logger) domain.AdminTokenCacheStore {
	return appredis.NewAdminTokenCacheAdapter(redisClient, appLogger)
}

// AdminAuthServiceProvider provides the admin token service.
func AdminAuthServiceProvider(appLogger domain.Logger, cfgProvider config.Provider, cache domain.AdminTokenCacheStore) *application.AdminAuthService {
	return application.NewAdminAuthService(appLogger, cfgProvider, cache)
}

// NatsPublisherProvider provides the NATS event publisher. May be nil when NATS
// is not configured.
func NatsPublisherProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*appnats.PublisherAdapter, func(), error) {
	return appnats.NewPublisherAdapter(ctx, cfgProvider, appLogger)
}

// EventPublisherProvider narrows the NATS adapter to the domain interface. A nil
// adapter must become a nil interface so callers can test against nil.
func EventPublisherProvider(publisher *appnats.PublisherAdapter) domain.EventPublisher {
	if publisher == nil {
		return nil
	}
	return publisher
}

// ContentServiceProvider provides the content CRUD service.
func ContentServiceProvider(appLogger domain.Logger, store *application.DocumentStore, events domain.EventPublisher) *application.ContentService {
	return application.NewContentService(appLogger, store, events)
}

// ContentHandlersProvider provides the content HTTP handlers.
func ContentHandlersProvider(service *application.ContentService, appLogger domain.Logger) *apphttp.ContentHandlers {
	return apphttp.NewContentHandlers(service, appLogger)
}

func limiterConfig(tier config.RateLimitTier) application.RateLimiterConfig {
	return application.RateLimiterConfig{
		Window:  time.Duration(tier.WindowSeconds) * time.Second,
		Max:     tier.Max,
		Message: tier.Message,
	}
}

// PublicRateLimiterProvider provides the limiter guarding public read routes.
func PublicRateLimiterProvider(cfgProvider config.Provider, appLogger domain.Logger) PublicRateLimiter {
	return application.NewRateLimiter("public", limiterConfig(cfgProvider.Get().RateLimit.Public), appLogger)
}

// AdminRateLimiterProvider provides the limiter guarding admin mutation routes.
func AdminRateLimiterProvider(cfgProvider config.Provider, appLogger domain.Logger) AdminRateLimiter {
	return application.NewRateLimiter("admin", limiterConfig(cfgProvider.Get().RateLimit.Admin), appLogger)
}

// ContactRateLimiterProvider provides the limiter guarding contact submissions.
func ContactRateLimiterProvider(cfgProvider config.Provider, appLogger domain.Logger) ContactRateLimiter {
	return application.NewRateLimiter("contact", limiterConfig(cfgProvider.Get().RateLimit.Contact), appLogger)
}

// TokenGenerationAuthMiddlewareProvider provides the API-key gate for /admin/generate-token.
func TokenGenerationAuthMiddlewareProvider(cfgProvider config.Provider, appLogger domain.Logger) TokenGenerationMiddleware {
	return middleware.APIKeyAuthMiddleware(cfgProvider, appLogger)
}

// AdminAuthMiddlewareProvider provides the admin token gate for mutating routes.
func AdminAuthMiddlewareProvider(authService *application.AdminAuthService, appLogger domain.Logger) AdminAuthMiddleware {
	return middleware.AdminAuthMiddleware(authService, appLogger)
}

// CSRFGuardMiddlewareProvider provides the CSRF gate for mutating routes.
func CSRFGuardMiddlewareProvider(csrfService *application.CSRFService, appLogger domain.Logger) CSRFGuardMiddleware {
	return middleware.CSRFGuard(csrfService, appLogger)
}

// SecurityHeadersMiddlewareProvider provides the response hardening middleware.
func SecurityHeadersMiddlewareProvider(cfgProvider config.Provider) SecurityHeadersMiddleware {
	return middleware.SecurityHeaders(cfgProvider)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,
	InitialZapLoggerProvider,

	// Infrastructure adapters
	RedisClientProvider,
	ObjectStorageProvider,
	InvalidationPubSubProvider,
	CSRFTokenStoreProvider,
	AdminTokenCacheStoreProvider,
	NatsPublisherProvider,
	EventPublisherProvider,

	// Application services
	DocumentStoreProvider,
	CSRFServiceProvider,
	AdminAuthServiceProvider,
	ContentServiceProvider,
	PublicRateLimiterProvider,
	AdminRateLimiterProvider,
	ContactRateLimiterProvider,

	// HTTP handlers and middleware
	ContentHandlersProvider,
	TokenGenerationAuthMiddlewareProvider,
	AdminAuthMiddlewareProvider,
	CSRFGuardMiddlewareProvider,
	SecurityHeadersMiddlewareProvider,

	NewApp,
)
