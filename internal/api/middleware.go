package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"cutagent/internal/logging"
	"cutagent/internal/services"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware stamps every request with a uuid, honouring one
// supplied by the client.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)
			ctx := services.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs one line per request at info level.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logging.WithContext(r.Context(), logger).Info("http request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", wrapped.status),
				logging.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

// RecoveryMiddleware turns handler panics into a 500 UNEXPECTED_ERROR.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logging.WithContext(r.Context(), logger).Error("panic recovered",
						logging.String(logging.FieldEventType, "http_panic"),
						logging.Any("panic", rec))
					writeJSON(w, http.StatusInternalServerError, services.New(services.CodeUnexpected,
						"internal server error", map[string]any{"path": r.URL.Path}))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
