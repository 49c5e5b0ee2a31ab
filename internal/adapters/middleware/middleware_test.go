package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/config"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/application"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (l nopLogger) With(fields ...any) domain.Logger                   { return l }

type staticConfigProvider struct {
	cfg *config.Config
}

func (p *staticConfigProvider) Get() *config.Config { return p.cfg }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestClientIdentity(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"forwarded single", "10.0.0.1:1234", "203.0.113.9", "203.0.113.9"},
		{"forwarded chain uses first", "10.0.0.1:1234", "203.0.113.9, 10.0.0.2", "203.0.113.9"},
		{"no forwarded", "198.51.100.7:5555", "", "198.51.100.7"},
		{"bare remote addr", "198.51.100.7", "", "198.51.100.7"},
		{"nothing", "", "", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := ClientIdentity(r); got != tc.want {
				t.Errorf("ClientIdentity = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := application.NewRateLimiter("test", application.RateLimiterConfig{
		Window:  time.Minute,
		Max:     2,
		Message: "too many",
	}, nopLogger{})
	handler := RateLimit(limiter, nopLogger{})(okHandler())

	doReq := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
		r.RemoteAddr = "192.0.2.1:1000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := doReq(); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i+1, w.Code)
		}
	}

	w := doReq()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After")
	}
	if w.Header().Get("X-RateLimit-Limit") != "2" || w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("rate limit headers wrong: limit=%q remaining=%q",
			w.Header().Get("X-RateLimit-Limit"), w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestSecurityHeadersBaseline(t *testing.T) {
	mw := SecurityHeaders(&staticConfigProvider{cfg: &config.Config{
		App: config.AppConfig{Environment: "production"},
	}})
	handler := mw(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if h.Get("X-Frame-Options") != "DENY" {
		t.Error("missing frame deny")
	}
	if h.Get("Strict-Transport-Security") == "" {
		t.Error("missing HSTS in production")
	}
	if h.Get("Content-Security-Policy") == "" {
		t.Error("missing CSP")
	}
	if h.Get("Cache-Control") == "no-store" {
		t.Error("no-store applied outside admin paths")
	}
}

func TestSecurityHeadersAdminPath(t *testing.T) {
	mw := SecurityHeaders(&staticConfigProvider{cfg: &config.Config{
		App: config.AppConfig{Environment: "development"},
	}})
	handler := mw(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/admin/generate-token", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	h := w.Header()
	if h.Get("Cache-Control") != "no-store" {
		t.Error("admin responses must not be cacheable")
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set outside production")
	}
}

func TestSecurityHeadersCookieRewrite(t *testing.T) {
	mw := SecurityHeaders(&staticConfigProvider{cfg: &config.Config{
		App: config.AppConfig{Environment: "production"},
	}})

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A handler that tries to set a lax, script-readable session cookie.
		http.SetCookie(w, &http.Cookie{Name: "salon_csrf_session", Value: "abc", Path: "/", MaxAge: 86400 * 30})
		http.SetCookie(w, &http.Cookie{Name: "theme", Value: "dark", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})

	t.Run("admin path", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin/generate-token", nil)
		w := httptest.NewRecorder()
		mw(inner).ServeHTTP(w, r)

		cookies := w.Result().Cookies()
		var session *http.Cookie
		for _, c := range cookies {
			if c.Name == "salon_csrf_session" {
				session = c
			}
		}
		if session == nil {
			t.Fatal("session cookie missing from response")
		}
		if !session.HttpOnly {
			t.Error("session cookie not HttpOnly")
		}
		if !session.Secure {
			t.Error("session cookie not Secure in production")
		}
		if session.SameSite != http.SameSiteStrictMode {
			t.Errorf("session cookie SameSite = %v, want Strict", session.SameSite)
		}
		if session.MaxAge > 8*3600 {
			t.Errorf("admin session cookie MaxAge = %d, want at most 8h", session.MaxAge)
		}
	})

	t.Run("public path caps at 24h", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
		w := httptest.NewRecorder()
		mw(inner).ServeHTTP(w, r)

		for _, c := range w.Result().Cookies() {
			switch c.Name {
			case "salon_csrf_session":
				if c.MaxAge > 24*3600 {
					t.Errorf("public session cookie MaxAge = %d, want at most 24h", c.MaxAge)
				}
			case "theme":
				if c.HttpOnly {
					t.Error("non-sensitive cookie should pass through untouched")
				}
			}
		}
	})
}

func TestCSRFGuard(t *testing.T) {
	store := newMemCSRFStore()
	svc := application.NewCSRFService(nopLogger{}, &staticConfigProvider{cfg: &config.Config{
		CSRF: config.CSRFConfig{TokenTTLSeconds: 3600},
	}}, store)
	handler := CSRFGuard(svc, nopLogger{})(okHandler())

	token, _, cookie, err := svc.Issue(context.Background(), "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	t.Run("valid token admitted", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		r.AddCookie(cookie)
		r.Header.Set(CSRFTokenHeader, token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("status %d, want 200", w.Code)
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		r.AddCookie(cookie)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusForbidden {
			t.Errorf("status %d, want 403", w.Code)
		}
	})

	t.Run("missing session rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		r.Header.Set(CSRFTokenHeader, token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusForbidden {
			t.Errorf("status %d, want 403", w.Code)
		}
	})

	t.Run("forged token rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		r.AddCookie(cookie)
		r.Header.Set(CSRFTokenHeader, "forged")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusForbidden {
			t.Errorf("status %d, want 403", w.Code)
		}
	})

	t.Run("form token admitted and form stays readable", func(t *testing.T) {
		var innerName string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The guard already parsed the body; form fields must still be
			// reachable through the parsed form.
			innerName = r.PostFormValue("name")
			w.WriteHeader(http.StatusOK)
		})
		formHandler := CSRFGuard(svc, nopLogger{})(inner)

		form := url.Values{"csrf_token": {token}, "name": {"Aiko"}}
		r := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.AddCookie(cookie)
		w := httptest.NewRecorder()
		formHandler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("status %d, want 200", w.Code)
		}
		if innerName != "Aiko" {
			t.Errorf("form field after guard = %q, want %q", innerName, "Aiko")
		}
	})
}

// memCSRFStore is a minimal in-memory CSRFTokenStore for middleware tests.
type memCSRFStore struct {
	tokens map[string]*domain.CSRFToken
}

func newMemCSRFStore() *memCSRFStore {
	return &memCSRFStore{tokens: make(map[string]*domain.CSRFToken)}
}

func (m *memCSRFStore) Get(ctx context.Context, sessionID string) (*domain.CSRFToken, error) {
	token, ok := m.tokens[sessionID]
	if !ok {
		return nil, application.ErrCacheMiss
	}
	return token, nil
}

func (m *memCSRFStore) Set(ctx context.Context, sessionID string, token *domain.CSRFToken, ttl time.Duration) error {
	m.tokens[sessionID] = token
	return nil
}

func (m *memCSRFStore) Delete(ctx context.Context, sessionID string) error {
	delete(m.tokens, sessionID)
	return nil
}
