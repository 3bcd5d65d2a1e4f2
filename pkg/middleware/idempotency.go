package middleware

import (
	"net/http"
	"time"

	"tour-booking/pkg/cache"
	"tour-booking/pkg/utils"

	"go.uber.org/zap"
)

const IdempotencyHeader = "Idempotency-Key"

// Idempotency claims the caller's Idempotency-Key before the handler runs, so
// a retried request with the same key is answered 409 instead of being
// applied twice. A failed request releases its claim so the client may retry.
// Requests without the header pass through.
func Idempotency(c cache.Cache, ttl time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.With(zap.String("component", "idempotency"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" || c == nil {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > 128 {
				utils.ResponseBadRequest(w, "Idempotency-Key too long", nil)
				return
			}

			scope := "anonymous"
			if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
				scope = userID.String()
			}
			cacheKey := "idempotency:" + scope + ":" + r.Method + ":" + r.URL.Path + ":" + key

			claimed, err := c.SetNX(r.Context(), cacheKey, ttl)
			if err != nil {
				logger.Error("Failed to claim idempotency key", zap.Error(err))
				utils.ResponseServiceUnavailable(w, "Service temporarily unavailable, please retry")
				return
			}
			if !claimed {
				logger.Warn("Duplicate request", zap.String("key", key), zap.String("path", r.URL.Path))
				utils.ResponseConflict(w, "Request with this Idempotency-Key was already processed")
				return
			}

			rw := wrap(w)
			next.ServeHTTP(rw, r)

			if rw.statusCode >= http.StatusBadRequest {
				if err := c.Delete(r.Context(), cacheKey); err != nil {
					logger.Warn("Failed to release idempotency key", zap.Error(err))
				}
			}
		})
	}
}
