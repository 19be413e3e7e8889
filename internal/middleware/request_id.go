package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"pollgate/pkg/logger"
)

type contextKey string

// RequestIDContextKey is the context key for request IDs
const RequestIDContextKey contextKey = "request_id"

// RequestID tags each request with an ID for log correlation
func RequestID(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-ID", requestID)

			log.WithFields(map[string]interface{}{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
			}).Debug("request received")

			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDFromContext returns the request ID, or "" when absent
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}
