package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/config"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/application"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/contextkeys"
	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/crypto"
)

const (
	apiKeyHeaderName     = "X-API-Key"
	adminTokenHeaderName = "X-Admin-Token"
	bearerPrefix         = "Bearer "
)

// APIKeyAuthMiddleware creates a middleware for API key authentication on the
// token generation endpoint. The key is taken from the X-API-Key header and
// compared against the configured admin key.
func APIKeyAuthMiddleware(cfgProvider config.Provider, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(apiKeyHeaderName)

			cfg := cfgProvider.Get()
			if cfg == nil || cfg.Auth.TokenGenerationAdminKey == "" {
				logger.Error(r.Context(), "API key authentication failed: TokenGenerationAdminKey not configured", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.ErrInternal, "Server configuration error", "API authentication cannot be performed.")
				errResp.WriteJSON(w, http.StatusInternalServerError)
				return
			}

			if apiKey == "" {
				logger.Warn(r.Context(), "API key authentication failed: Key missing", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.ErrInvalidAPIKey, "API key is required", "Provide API key in X-API-Key header.")
				errResp.WriteJSON(w, http.StatusUnauthorized)
				return
			}

			if apiKey != cfg.Auth.TokenGenerationAdminKey {
				logger.Warn(r.Context(), "API key authentication failed: Invalid key", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.ErrInvalidAPIKey, "Invalid API key", "The provided API key is not valid.")
				errResp.WriteJSON(w, http.StatusUnauthorized)
				return
			}

			logger.Debug(r.Context(), "API key authentication successful", "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}

// AdminAuthMiddleware creates a middleware for admin token authentication.
// The token is taken from the Authorization header (Bearer scheme) or the
// X-Admin-Token header, decrypted and validated by AdminAuthService, and the
// resulting AdminUserContext is injected into the request context.
func AdminAuthMiddleware(authService *application.AdminAuthService, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenValue := ""
			if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, bearerPrefix) {
				tokenValue = strings.TrimPrefix(authz, bearerPrefix)
			}
			if tokenValue == "" {
				tokenValue = r.Header.Get(adminTokenHeaderName)
			}

			if tokenValue == "" {
				logger.Warn(r.Context(), "Admin token authentication failed: token missing", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.ErrInvalidToken, "Admin token is required", "Provide the token in the Authorization header using the Bearer scheme.")
				errResp.WriteJSON(w, http.StatusForbidden)
				return
			}

			adminCtx, err := authService.ProcessToken(r.Context(), tokenValue)
			if err != nil {
				logger.Warn(r.Context(), "Admin token processing failed", "path", r.URL.Path, "error", err.Error())

				var errCode domain.ErrorCode
				var errMsg string
				errDetails := "Token format or content error."
				httpStatus := http.StatusForbidden

				switch {
				case errors.Is(err, application.ErrTokenExpired):
					errCode = domain.ErrInvalidToken
					errMsg = "Admin token has expired."
				case errors.Is(err, crypto.ErrTokenDecryptionFailed),
					errors.Is(err, application.ErrTokenPayloadInvalid),
					errors.Is(err, crypto.ErrInvalidTokenFormat),
					errors.Is(err, crypto.ErrCiphertextTooShort):
					errCode = domain.ErrInvalidToken
					errMsg = "Admin token is invalid or malformed."
				case errors.Is(err, crypto.ErrInvalidAESKeySize):
					errCode = domain.ErrInternal
					errMsg = "Server configuration error processing token."
					httpStatus = http.StatusInternalServerError
					errDetails = "Internal server error."
				default:
					logger.Error(r.Context(), "Unexpected internal error during token processing", "path", r.URL.Path, "detailed_error", err.Error())
					errCode = domain.ErrInternal
					errMsg = "An unexpected error occurred."
					httpStatus = http.StatusInternalServerError
					errDetails = "Internal server error."
				}

				errResp := domain.NewErrorResponse(errCode, errMsg, errDetails)
				errResp.WriteJSON(w, httpStatus)
				return
			}

			newReqCtx := context.WithValue(r.Context(), contextkeys.AdminContextKey, adminCtx)
			newReqCtx = context.WithValue(newReqCtx, contextkeys.AdminIDKey, adminCtx.AdminID)

			logger.Debug(r.Context(), "Admin token authentication successful",
				"path", r.URL.Path,
				"admin_id", adminCtx.AdminID)
			next.ServeHTTP(w, r.WithContext(newReqCtx))
		})
	}
}
