package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "SALON_CMS"

// ServerConfig holds server-related configurations.
// Note: Fields should be exported (start with uppercase) to be unmarshalled by Viper.
type ServerConfig struct {
	HTTPPort int    `mapstructure:"http_port"`
	PodID    string `mapstructure:"pod_id"` // Identifies this replica in invalidation messages, expected from ENV (e.g., POD_IP via Downward API)
}

// RedisConfig holds Redis-related configurations.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"` // Optional
	DB       int    `mapstructure:"db"`       // Optional
}

// NATSConfig holds NATS-related configurations. An empty URL disables event publishing.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// LogConfig holds logging-related configurations.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AuthConfig holds admin authentication configurations.
type AuthConfig struct {
	AdminTokenAESKey          string `mapstructure:"admin_token_aes_key"`          // Should primarily come from ENV
	AdminTokenCacheTTLSeconds int    `mapstructure:"admin_token_cache_ttl_seconds"`
	TokenGenerationAdminKey   string `mapstructure:"token_generation_admin_key"` // Key for /admin/generate-token endpoint, from ENV
}

// CSRFConfig holds CSRF token service configurations.
type CSRFConfig struct {
	TokenTTLSeconds int `mapstructure:"token_ttl_seconds"`
}

// StoreConfig holds document store configurations.
type StoreConfig struct {
	CacheTTLSeconds      int `mapstructure:"cache_ttl_seconds"`
	UpdateMaxAttempts    int `mapstructure:"update_max_attempts"`
	UpdateRetryBaseMs    int `mapstructure:"update_retry_base_ms"`
	OperationTimeoutSecs int `mapstructure:"operation_timeout_seconds"`
}

// RateLimitTier configures one named limiter instance.
type RateLimitTier struct {
	WindowSeconds int    `mapstructure:"window_seconds"`
	Max           int    `mapstructure:"max"`
	Message       string `mapstructure:"message"`
}

// RateLimitConfig holds the limiter tiers and housekeeping cadence.
type RateLimitConfig struct {
	Public               RateLimitTier `mapstructure:"public"`
	Admin                RateLimitTier `mapstructure:"admin"`
	Contact              RateLimitTier `mapstructure:"contact"`
	SweepIntervalSeconds int           `mapstructure:"sweep_interval_seconds"`
}

// AppConfig holds application-specific configurations.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	Environment            string `mapstructure:"environment"` // "production" hardens cookies with the Secure attribute
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds"`
}

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CSRF      CSRFConfig      `mapstructure:"csrf"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	App       AppConfig       `mapstructure:"app"`
}

// Provider defines an interface for accessing application configuration.
// This allows for easy mocking in tests and decouples the app from Viper.
type Provider interface {
	Get() *Config
}

// viperProvider implements the Provider interface using Viper.
type viperProvider struct {
	config *Config
	logger *zap.Logger // Using zap.Logger directly for config internal logging, not domain.Logger to avoid circular deps
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("app.service_name", "salon-cms-service")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.shutdown_timeout_seconds", 30)
	v.SetDefault("nats.subject_prefix", "salon")
	v.SetDefault("csrf.token_ttl_seconds", 7200)
	v.SetDefault("auth.admin_token_cache_ttl_seconds", 60)
	v.SetDefault("store.cache_ttl_seconds", 30)
	v.SetDefault("store.update_max_attempts", 5)
	v.SetDefault("store.update_retry_base_ms", 25)
	v.SetDefault("store.operation_timeout_seconds", 10)
	v.SetDefault("rate_limit.public.window_seconds", 60)
	v.SetDefault("rate_limit.public.max", 300)
	v.SetDefault("rate_limit.public.message", "Too many requests. Please slow down.")
	v.SetDefault("rate_limit.admin.window_seconds", 300)
	v.SetDefault("rate_limit.admin.max", 60)
	v.SetDefault("rate_limit.admin.message", "Too many admin requests from this address.")
	v.SetDefault("rate_limit.contact.window_seconds", 3600)
	v.SetDefault("rate_limit.contact.max", 5)
	v.SetDefault("rate_limit.contact.message", "Too many contact submissions. Please try again later.")
	v.SetDefault("rate_limit.sweep_interval_seconds", 3600)
}

// NewViperProvider creates and initializes a new configuration provider using Viper.
// It loads configuration from file and environment variables, and sets up hot-reloading.
// A basic logger (e.g., zap.NewProduction()) should be passed for internal logging during setup.
// appCtx is the application lifecycle context used for graceful shutdown of background tasks.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	cfg := &Config{}
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(getEnv("VIPER_CONFIG_NAME", "config"))
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("VIPER_CONFIG_PATH", "/app/config"))
	v.AddConfigPath(".") // Also look in current directory for local dev

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // e.g., server.http_port becomes SERVER_HTTP_PORT

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	p := &viperProvider{
		config: cfg,
		logger: logger,
	}

	// Set up SIGHUP for hot-reloading configuration
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, attempting to reload configuration...", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
				} else {
					newCfg := &Config{}
					if err := v.Unmarshal(newCfg); err != nil {
						p.logger.Error("Failed to unmarshal re-read config on SIGHUP", zap.Error(err))
					} else {
						p.config = newCfg
						p.logger.Info("Configuration reloaded successfully via SIGHUP")
					}
				}
			case <-appCtx.Done():
				p.logger.Info("SIGHUPConfigReloader goroutine shutting down due to context cancellation.")
				return
			}
		}
	}()

	// Watch for config file changes (useful for local dev, less so in containers usually)
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in OnConfigChange callback",
					zap.String("event_name", e.Name),
					zap.String("event_op", e.Op.String()),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			p.logger.Error("Failed to unmarshal config on file change event", zap.Error(err))
		} else {
			p.config = newCfg
			p.logger.Info("Configuration reloaded successfully via file change event")
		}
	})

	p.logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))

	return p, nil
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	return p.config
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
