package middleware

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/florianilch/claudine-vertex/internal/observability/middleware"

// TraceContext joins the caller's W3C trace (Traceparent/Tracestate headers) and
// starts a server span for the request. Spans created by handlers, such as the
// Vertex AI client span, become its children.
//
// trace_id/span_id are added to the request log. Without a configured tracer
// provider the span is non-recording and the caller's ids are logged instead.
func TraceContext(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			// SetLogAttrs is no-op if Logging middleware does not exist.
			SetLogAttrs(ctx,
				slog.String("trace_id", spanCtx.TraceID().String()),
				slog.String("span_id", spanCtx.SpanID().String()),
			)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
