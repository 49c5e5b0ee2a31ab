package http

import (
	"encoding/json"
	"net/http"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/application"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

// CSRFTokenResponse is the response from the /api/csrf-token endpoint.
type CSRFTokenResponse struct {
	Token string `json:"token"`
}

// CSRFTokenHandler issues a fresh CSRF token bound to the caller's session.
// If the request carries no session cookie a new session is minted and set
// alongside the token.
func CSRFTokenHandler(csrfService *application.CSRFService, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existingSessionID := ""
		if cookie, err := r.Cookie(application.SessionCookieName); err == nil {
			existingSessionID = cookie.Value
		}

		token, _, sessionCookie, err := csrfService.Issue(r.Context(), existingSessionID)
		if err != nil {
			logger.Error(r.Context(), "Failed to issue CSRF token", "error", err.Error())
			domain.NewErrorResponse(domain.ErrInternal, "Failed to issue CSRF token", "Internal error during token issuance.").WriteJSON(w, http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, sessionCookie)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(CSRFTokenResponse{Token: token}); err != nil {
			logger.Error(r.Context(), "Failed to encode /api/csrf-token response", "error", err.Error())
		}
	}
}
