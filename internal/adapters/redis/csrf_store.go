package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/application" // For application.ErrCacheMiss
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/storagekeys"
)

// CSRFStoreAdapter implements the domain.CSRFTokenStore interface using Redis.
// Tokens live under a hashed session-id key with a TTL matching their expiry.
type CSRFStoreAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewCSRFStoreAdapter creates a new instance of CSRFStoreAdapter.
func NewCSRFStoreAdapter(redisClient *redis.Client, logger domain.Logger) *CSRFStoreAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewCSRFStoreAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewCSRFStoreAdapter")
	}
	return &CSRFStoreAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Get retrieves the CSRF token bound to a session id.
func (a *CSRFStoreAdapter) Get(ctx context.Context, sessionID string) (*domain.CSRFToken, error) {
	key := storagekeys.CSRFTokenKey(sessionID)

	val, err := a.redisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		a.logger.Debug(ctx, "CSRF token store miss", "key", key)
		return nil, application.ErrCacheMiss
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get CSRF token from Redis", "key", key, "error", err.Error())
		return nil, fmt.Errorf("redis GET for CSRF token key '%s' failed: %w", key, err)
	}

	var token domain.CSRFToken
	if err = json.Unmarshal([]byte(val), &token); err != nil {
		a.logger.Error(ctx, "Failed to unmarshal stored CSRF token", "key", key, "error", err.Error())
		return nil, fmt.Errorf("failed to unmarshal CSRF token for key '%s': %w", key, err)
	}

	a.logger.Debug(ctx, "CSRF token store hit", "key", key)
	return &token, nil
}

// Set stores the CSRF token for a session id with the given TTL.
func (a *CSRFStoreAdapter) Set(ctx context.Context, sessionID string, token *domain.CSRFToken, ttl time.Duration) error {
	key := storagekeys.CSRFTokenKey(sessionID)

	payloadBytes, err := json.Marshal(token)
	if err != nil {
		a.logger.Error(ctx, "Failed to marshal CSRF token for storage", "key", key, "error", err.Error())
		return fmt.Errorf("failed to marshal CSRF token for key '%s': %w", key, err)
	}

	if err = a.redisClient.Set(ctx, key, string(payloadBytes), ttl).Err(); err != nil {
		a.logger.Error(ctx, "Failed to set CSRF token in Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis SET for CSRF token key '%s' failed: %w", key, err)
	}

	a.logger.Debug(ctx, "CSRF token stored", "key", key, "ttl", ttl.String())
	return nil
}

// Delete removes the CSRF token for a session id.
func (a *CSRFStoreAdapter) Delete(ctx context.Context, sessionID string) error {
	key := storagekeys.CSRFTokenKey(sessionID)
	if err := a.redisClient.Del(ctx, key).Err(); err != nil {
		a.logger.Error(ctx, "Failed to delete CSRF token from Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis DEL for CSRF token key '%s' failed: %w", key, err)
	}
	return nil
}
