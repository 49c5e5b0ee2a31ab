package middleware

import (
	"net/http"
	"strings"
	"time"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/config"
)

const (
	adminCookieMaxAge  = 8 * time.Hour
	publicCookieMaxAge = 24 * time.Hour
)

// SecurityHeaders creates a middleware applying the baseline response headers
// to every request and hardening any Set-Cookie the wrapped handler emits.
// Cookie attributes are rewritten at header flush time so inner handlers
// cannot opt out of them.
func SecurityHeaders(cfgProvider config.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := cfgProvider.Get()
			production := cfg.App.Environment == "production"
			admin := strings.HasPrefix(r.URL.Path, "/admin")

			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if production {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			if admin {
				h.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
				h.Set("Cache-Control", "no-store")
			} else {
				h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'")
			}

			sw := &securedWriter{ResponseWriter: w, production: production, admin: admin}
			next.ServeHTTP(sw, r)
		})
	}
}

// securedWriter rewrites sensitive Set-Cookie headers just before the header
// block is flushed to the client.
type securedWriter struct {
	http.ResponseWriter
	production bool
	admin      bool
	rewritten  bool
}

func (sw *securedWriter) WriteHeader(statusCode int) {
	sw.rewriteCookies()
	sw.ResponseWriter.WriteHeader(statusCode)
}

func (sw *securedWriter) Write(b []byte) (int, error) {
	sw.rewriteCookies()
	return sw.ResponseWriter.Write(b)
}

func (sw *securedWriter) rewriteCookies() {
	if sw.rewritten {
		return
	}
	sw.rewritten = true

	h := sw.Header()
	raw := h.Values("Set-Cookie")
	if len(raw) == 0 {
		return
	}

	out := make([]string, 0, len(raw))
	for _, line := range raw {
		cookie, err := http.ParseSetCookie(line)
		if err != nil {
			// Unparseable lines pass through untouched.
			out = append(out, line)
			continue
		}
		if isSensitiveCookie(cookie.Name) {
			cookie.HttpOnly = true
			cookie.SameSite = http.SameSiteStrictMode
			if sw.production {
				cookie.Secure = true
			}
			maxAge := publicCookieMaxAge
			if sw.admin {
				maxAge = adminCookieMaxAge
			}
			if cookie.MaxAge <= 0 || time.Duration(cookie.MaxAge)*time.Second > maxAge {
				cookie.MaxAge = int(maxAge.Seconds())
				cookie.Expires = time.Time{}
			}
		}
		out = append(out, cookie.String())
	}

	h.Del("Set-Cookie")
	for _, line := range out {
		h.Add("Set-Cookie", line)
	}
}

func isSensitiveCookie(name string) bool {
	lowered := strings.ToLower(name)
	return strings.Contains(lowered, "session") || strings.Contains(lowered, "auth") || strings.Contains(lowered, "csrf")
}
