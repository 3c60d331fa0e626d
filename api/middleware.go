package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type requestIDContextKey struct{}

type loggerContextKey struct{}

// RequestIDMiddleware reuses the caller's X-Request-ID or generates one,
// echoes it on the response and stores a request-scoped logger in context.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), requestIDContextKey{}, requestID)
			ctx = context.WithValue(ctx, loggerContextKey{}, logger.With("request_id", requestID))

			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// LoggerFromContext returns the request-scoped logger, or fallback.
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok {
		return logger
	}
	return fallback
}
