package middleware

import (
	"math"
	"net/http"
	"strconv"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/application"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

// RateLimit creates a middleware gating requests through the given limiter.
// Every response carries the X-RateLimit-* headers; rejections answer HTTP 429
// with a Retry-After header and a structured error body.
func RateLimit(limiter *application.RateLimiter, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := ClientIdentity(r)
			decision := limiter.Check(identity)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				retryAfterSeconds := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfterSeconds < 1 {
					retryAfterSeconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))

				logger.Warn(r.Context(), "Request rejected by rate limiter", "path", r.URL.Path, "retry_after_seconds", retryAfterSeconds)
				errResp := domain.NewErrorResponse(domain.ErrRateLimitExceeded, decision.Message, "")
				errResp.WriteJSON(w, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
