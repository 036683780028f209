package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// Client supplied ids longer than this are replaced.
const maxRequestIDLength = 128

type requestIDKey struct{}

// RequestIDFromContext returns the id stored by RequestIDGeneration.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// validRequestID accepts printable ASCII without spaces so the id is safe to echo in headers and logs.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// RequestIDGeneration keeps a well-formed client X-Request-ID or generates a UUID,
// and stores it in the request context for downstream handlers.
func RequestIDGeneration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDPropagation echoes the request ID in the response header and attaches it
// to the request log and the active span.
func RequestIDPropagation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID, ok := RequestIDFromContext(r.Context()); ok {
			// Set before the handler runs so recovered panics still carry it
			w.Header().Set(HeaderRequestID, requestID)

			SetLogAttrs(r.Context(), slog.String("request_id", requestID))
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("http.request.id", requestID))
		}

		next.ServeHTTP(w, r)
	})
}
