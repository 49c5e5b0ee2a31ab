package middleware

import (
	"context"
	"net/http"
	"strings"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/metrics"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/application"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/contextkeys"
)

// CSRFTokenHeader is where mutating requests echo the issued token.
const CSRFTokenHeader = "X-CSRF-Token"

// CSRFGuard creates a middleware requiring a valid session-bound CSRF token on
// every request it wraps. The session id comes from the session cookie; the
// token from the X-CSRF-Token header, or the csrf_token form field for
// form-encoded bodies. Reading the form field parses the request body, so
// handlers behind the guard must take form-encoded input from r.PostForm (or
// PostFormValue), never from r.Body. Verification failures answer HTTP 403;
// token store transport failures answer HTTP 500 so they are not mistaken for
// forgery.
func CSRFGuard(csrfService *application.CSRFService, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(application.SessionCookieName); err == nil {
				sessionID = cookie.Value
			}

			submitted := r.Header.Get(CSRFTokenHeader)
			if submitted == "" && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
				submitted = r.PostFormValue("csrf_token")
			}

			valid, err := csrfService.Verify(r.Context(), sessionID, submitted)
			if err != nil {
				logger.Error(r.Context(), "CSRF verification errored", "path", r.URL.Path, "error", err.Error())
				errResp := domain.NewErrorResponse(domain.ErrInternal, "Could not verify request", "Internal error during CSRF verification.")
				errResp.WriteJSON(w, http.StatusInternalServerError)
				return
			}
			if !valid {
				metrics.IncrementCSRFFailure()
				logger.Warn(r.Context(), "CSRF verification failed", "path", r.URL.Path, "has_session", sessionID != "", "has_token", submitted != "")
				errResp := domain.NewErrorResponse(domain.ErrCSRFInvalid, "CSRF token missing or invalid", "Request a fresh token from /api/csrf-token and echo it in the X-CSRF-Token header.")
				errResp.WriteJSON(w, http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
