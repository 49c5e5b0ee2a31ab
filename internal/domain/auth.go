package domain

import (
	"context"
	"time"
)

// AdminUserContext is the decrypted payload of an admin token: the identity that
// mutating content routes attribute their changes to.
type AdminUserContext struct {
	AdminID   string    `json:"admin_id"`
	ExpiresAt time.Time `json:"expires_at"`

	// Token is the raw encrypted token, kept for cache key generation. Never serialized.
	Token string `json:"-"`
}

// AdminTokenCacheStore defines the interface for caching validated admin contexts,
// so each request does not pay the AES-GCM decryption cost.
type AdminTokenCacheStore interface {
	Get(ctx context.Context, key string) (*AdminUserContext, error)
	Set(ctx context.Context, key string, value *AdminUserContext, ttl time.Duration) error
}
