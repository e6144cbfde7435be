package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/vidgen-api/internal/api/shared"
	"github.com/phrazzld/vidgen-api/internal/platform/logger"
	"github.com/phrazzld/vidgen-api/internal/platform/ratelimit"
	"github.com/phrazzld/vidgen-api/internal/redact"
)

// RateLimit caps requests per authenticated user, falling back to the
// client address for anonymous callers. Limiter errors fail open.
func RateLimit(limiter ratelimit.Limiter, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + r.RemoteAddr
			if userID, ok := shared.UserID(r.Context()); ok {
				key = "user:" + userID.String()
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.FromContext(r.Context()).Warn("rate limiter unavailable",
					"error", redact.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				shared.RespondWithError(w, r, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
