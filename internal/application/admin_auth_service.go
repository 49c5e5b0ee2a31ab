package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/config"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/crypto"
	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/storagekeys"
)

var (
	ErrTokenPayloadInvalid = errors.New("token payload is invalid")
	ErrTokenExpired        = errors.New("token has expired")
	ErrCacheMiss           = errors.New("item not found in cache")
)

// AdminAuthService handles admin token decryption, validation, and caching.
type AdminAuthService struct {
	logger domain.Logger
	config config.Provider
	cache  domain.AdminTokenCacheStore
}

// NewAdminAuthService creates a new AdminAuthService.
func NewAdminAuthService(logger domain.Logger, cfgProvider config.Provider, cache domain.AdminTokenCacheStore) *AdminAuthService {
	if logger == nil {
		panic("logger is nil in NewAdminAuthService")
	}
	if cfgProvider == nil {
		panic("config provider is nil in NewAdminAuthService")
	}
	if cache == nil {
		panic("cache store is nil in NewAdminAuthService")
	}
	return &AdminAuthService{
		logger: logger,
		config: cfgProvider,
		cache:  cache,
	}
}

// parseAndValidateDecryptedToken parses the decrypted token payload, validates
// it, and populates an AdminUserContext. rawToken is the original encrypted
// token, kept for cache key generation.
func (s *AdminAuthService) parseAndValidateDecryptedToken(decryptedPayload []byte, rawToken string) (*domain.AdminUserContext, error) {
	var adminCtx domain.AdminUserContext
	if err := json.Unmarshal(decryptedPayload, &adminCtx); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal token JSON: %v", ErrTokenPayloadInvalid, err)
	}

	if adminCtx.AdminID == "" || adminCtx.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("%w: missing essential fields (admin_id, expires_at)", ErrTokenPayloadInvalid)
	}

	if time.Now().After(adminCtx.ExpiresAt) {
		return nil, fmt.Errorf("%w: token expired at %v", ErrTokenExpired, adminCtx.ExpiresAt)
	}

	adminCtx.Token = rawToken
	return &adminCtx, nil
}

// ProcessToken attempts to retrieve a validated admin context from cache.
// If not found, it decrypts, validates, and then caches the token.
func (s *AdminAuthService) ProcessToken(reqCtx context.Context, tokenB64 string) (*domain.AdminUserContext, error) {
	cacheKey := storagekeys.AdminTokenCacheKey(tokenB64)

	cachedCtx, err := s.cache.Get(reqCtx, cacheKey)
	if err == nil && cachedCtx != nil {
		// Redis TTL should have evicted expired entries, defensive check anyway.
		if time.Now().After(cachedCtx.ExpiresAt) {
			s.logger.Warn(reqCtx, "Cached admin token found but was expired", "cache_key", cacheKey, "expires_at", cachedCtx.ExpiresAt)
		} else {
			s.logger.Debug(reqCtx, "Admin token found in cache and is valid", "cache_key", cacheKey)
			return cachedCtx, nil
		}
	} else if err != nil && !errors.Is(err, ErrCacheMiss) {
		s.logger.Error(reqCtx, "Error retrieving admin token from cache", "cache_key", cacheKey, "error", err.Error())
		// Proceed to decrypt, as the cache is unreliable or errored.
	}

	aesKeyHex := s.config.Get().Auth.AdminTokenAESKey
	if aesKeyHex == "" {
		s.logger.Error(reqCtx, "ADMIN_TOKEN_AES_KEY not configured", "config_key", "auth.admin_token_aes_key")
		return nil, errors.New("application not configured for token decryption")
	}

	decryptedPayload, err := crypto.DecryptAESGCM(aesKeyHex, tokenB64)
	if err != nil {
		s.logger.Warn(reqCtx, "Admin token decryption failed", "error", err.Error())
		return nil, err
	}

	validatedCtx, err := s.parseAndValidateDecryptedToken(decryptedPayload, tokenB64)
	if err != nil {
		s.logger.Warn(reqCtx, "Decrypted admin token failed validation", "error", err.Error())
		return nil, err
	}

	cacheTTL := time.Duration(s.config.Get().Auth.AdminTokenCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}

	if err := s.cache.Set(reqCtx, cacheKey, validatedCtx, cacheTTL); err != nil {
		s.logger.Error(reqCtx, "Failed to cache validated admin token", "cache_key", cacheKey, "error", err.Error())
		// Non-fatal for caching, proceed with the validated context.
	}
	s.logger.Info(reqCtx, "Admin token decrypted, validated, and cached successfully", "cache_key", cacheKey, "admin_id", validatedCtx.AdminID)
	return validatedCtx, nil
}
