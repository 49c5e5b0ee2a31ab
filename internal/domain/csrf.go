package domain

import (
	"context"
	"time"
)

// CSRFToken is the per-session secret a client must echo back on mutating requests.
// It is bound 1:1 to a session id and expires independently of use.
type CSRFToken struct {
	Value     string    `json:"value"`
	SessionID string    `json:"session_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CSRFTokenStore persists issued tokens keyed by session id.
type CSRFTokenStore interface {
	// Get retrieves the token bound to a session id.
	// A miss is reported via the application's cache-miss sentinel, not (nil, nil).
	Get(ctx context.Context, sessionID string) (*CSRFToken, error)

	// Set stores the token for a session id with a TTL matching its expiry.
	Set(ctx context.Context, sessionID string, token *CSRFToken, ttl time.Duration) error

	// Delete removes the token for a session id.
	Delete(ctx context.Context, sessionID string) error
}
