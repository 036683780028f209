package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantKeep bool
	}{
		{"client id kept", "req-123", true},
		{"missing id generated", "", false},
		{"id with spaces replaced", "req 123", false},
		{"oversized id replaced", strings.Repeat("a", maxRequestIDLength+1), false},
		{"control characters replaced", "req\n123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestIDGeneration(RequestIDPropagation(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = RequestIDFromContext(r.Context())
			})))

			req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
			if tt.header != "" {
				req.Header.Set(HeaderRequestID, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get(HeaderRequestID); got != seen {
				t.Errorf("response header = %q, handler saw %q", got, seen)
			}
			if tt.wantKeep {
				if seen != tt.header {
					t.Errorf("request id = %q, want %q", seen, tt.header)
				}
				return
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Errorf("request id = %q, want generated UUID", seen)
			}
		})
	}
}

func TestRequestIDFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id, ok := RequestIDFromContext(req.Context()); ok {
		t.Errorf("RequestIDFromContext() = %q, true; want false", id)
	}
}

func TestTraceContextJoinsCallerTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	var got trace.SpanContext
	h := TraceContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = trace.SpanContextFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/stream", nil)
	req.Header.Set("Traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !got.IsValid() {
		t.Fatal("handler context carries no span context")
	}
	if got.TraceID().String() != traceID {
		t.Errorf("trace id = %s, want %s", got.TraceID(), traceID)
	}
}
