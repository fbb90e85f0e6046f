// Package middleware holds the HTTP middleware shared by every
// HTTP-facing service: correlation IDs, request logging, and the
// per-user rate limiter.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// HeaderCorrelationID is the header callers use to thread their own
// correlation id through a request chain.
const HeaderCorrelationID = "X-Correlation-ID"

// CorrelationID ensures every request carries a correlation id: the
// caller's, when the header is present, or a freshly generated one. The id
// is stored on the request context for log lines and echoed back in the
// response so the caller can quote it when reporting a problem.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderCorrelationID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, id)
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), correlationIDKey, id)))
	})
}

// GetCorrelationID returns the request's correlation id, or an empty
// string when the middleware was not applied.
func GetCorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}
