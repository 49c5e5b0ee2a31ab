package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/config"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

// SessionCookieName is the cookie persisting the CSRF session id. The security
// middleware recognizes it by name and hardens its attributes.
const SessionCookieName = "salon_csrf_session"

const (
	csrfTokenBytes = 32
	defaultCSRFTTL = 2 * time.Hour
)

// CSRFService issues per-session anti-forgery tokens and verifies them on
// state-changing requests. A token never validates against any session other
// than the one it was issued to.
type CSRFService struct {
	logger domain.Logger
	config config.Provider
	store  domain.CSRFTokenStore

	now func() time.Time // overridable for tests
}

// NewCSRFService creates a new CSRFService.
func NewCSRFService(logger domain.Logger, cfgProvider config.Provider, store domain.CSRFTokenStore) *CSRFService {
	if logger == nil {
		panic("logger is nil in NewCSRFService")
	}
	if cfgProvider == nil {
		panic("config provider is nil in NewCSRFService")
	}
	if store == nil {
		panic("token store is nil in NewCSRFService")
	}
	return &CSRFService{
		logger: logger,
		config: cfgProvider,
		store:  store,
		now:    time.Now,
	}
}

func (s *CSRFService) tokenTTL() time.Duration {
	if ttlSeconds := s.config.Get().CSRF.TokenTTLSeconds; ttlSeconds > 0 {
		return time.Duration(ttlSeconds) * time.Second
	}
	return defaultCSRFTTL
}

// Issue binds a fresh token to the supplied session id, minting a new session id
// when none is given. The token is high-entropy random data, not derived from
// the session id. Returns the token for the client to echo back and the cookie
// directive persisting the session id.
func (s *CSRFService) Issue(ctx context.Context, existingSessionID string) (token string, sessionID string, cookie *http.Cookie, err error) {
	sessionID = existingSessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	raw := make([]byte, csrfTokenBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", nil, fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(raw)

	ttl := s.tokenTTL()
	now := s.now()
	record := &domain.CSRFToken{
		Value:     token,
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	if err = s.store.Set(ctx, sessionID, record, ttl); err != nil {
		return "", "", nil, fmt.Errorf("failed to persist CSRF token: %w", err)
	}

	cookie = &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}

	s.logger.Debug(ctx, "CSRF token issued", "reused_session", existingSessionID != "", "ttl", ttl.String())
	return token, sessionID, cookie, nil
}

// Verify reports whether submitted is the live token issued for sessionID.
// An unknown session, a mismatched value, or an expired token is (false, nil);
// only transport failures return an error, so the caller can distinguish
// "forbidden" from "internal error".
func (s *CSRFService) Verify(ctx context.Context, sessionID string, submitted string) (bool, error) {
	if sessionID == "" || submitted == "" {
		return false, nil
	}

	record, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, ErrCacheMiss) || (err == nil && record == nil) {
		s.logger.Debug(ctx, "CSRF verification failed: no token for session")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load CSRF token: %w", err)
	}

	if s.now().After(record.ExpiresAt) {
		s.logger.Debug(ctx, "CSRF verification failed: token expired", "expired_at", record.ExpiresAt)
		return false, nil
	}
	if record.SessionID != sessionID {
		s.logger.Warn(ctx, "CSRF verification failed: session binding mismatch")
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(record.Value), []byte(submitted)) != 1 {
		s.logger.Debug(ctx, "CSRF verification failed: token mismatch")
		return false, nil
	}
	return true, nil
}
