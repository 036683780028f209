package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/florianilch/claudine-vertex/internal/llm"
	"github.com/florianilch/claudine-vertex/internal/observability/middleware"
	"github.com/florianilch/claudine-vertex/internal/vertexclaude"
)

// ReadinessChecker reports whether the application can serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Proxy serves the normalized event stream of an llm.Provider over HTTP.
type Proxy struct {
	handler http.Handler
	server  *http.Server
}

// Compile-time check that Proxy implements http.Handler
var _ http.Handler = (*Proxy)(nil)

type proxyOptions struct {
	maxRequestBytes int64
	models          []llm.Model
	defaultModel    string
	defaults        llm.StreamOptions
}

// Option configures a Proxy.
type Option func(*proxyOptions)

// WithMaxRequestBytes limits request body size.
func WithMaxRequestBytes(n int64) Option {
	return func(o *proxyOptions) {
		if n > 0 {
			o.maxRequestBytes = n
		}
	}
}

// WithModels replaces the served model table (defaults to the Vertex AI Claude models).
func WithModels(models []llm.Model) Option {
	return func(o *proxyOptions) {
		o.models = models
	}
}

// WithDefaults sets the model and stream options used when a request omits them.
func WithDefaults(model string, opts llm.StreamOptions) Option {
	return func(o *proxyOptions) {
		o.defaultModel = model
		o.defaults = opts
	}
}

// New creates a Proxy streaming from provider.
func New(provider llm.Provider, health ReadinessChecker, opts ...Option) (*Proxy, error) {
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	if health == nil {
		return nil, errors.New("readiness checker is required")
	}

	o := &proxyOptions{
		maxRequestBytes: 32 << 20,
		models:          vertexclaude.Models(),
	}
	for _, opt := range opts {
		opt(o)
	}

	catalog := newModelCatalog(o.models)
	if o.defaultModel != "" {
		if _, ok := catalog.lookup(o.defaultModel); !ok {
			return nil, fmt.Errorf("default model %q is not a known model", o.defaultModel)
		}
	}

	stream := &streamHandler{
		provider:     provider,
		catalog:      catalog,
		defaultModel: o.defaultModel,
		defaults:     o.defaults,
	}

	api := http.NewServeMux()
	api.Handle("POST /v1/stream", stream)
	api.Handle("GET /v1/models", modelsHandler(catalog))

	apiHandler := applyMiddlewares(api,
		middleware.RequestIDGeneration,
		middleware.Logging(slog.Default()),
		middleware.TraceContext,
		middleware.RequestIDPropagation,
		Recovery,
		RequestSizeLimit(o.maxRequestBytes),
	)

	// Probes bypass request logging
	mux := http.NewServeMux()
	mux.Handle("GET /health/live", livenessHandler())
	mux.Handle("GET /health/ready", readinessHandler(health))
	mux.Handle("/", apiHandler)

	return &Proxy{handler: mux}, nil
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Start listens on addr and serves in the background. Listen errors are returned
// directly; later serve errors are sent on the returned channel.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	p.server = &http.Server{
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout stays 0: streams last as long as the model generates
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		slog.InfoContext(ctx, "proxy listening", "addr", ln.Addr().String())
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return errCh, nil
}

// Shutdown gracefully stops the server, waiting for in-flight streams until ctx expires.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("proxy shutdown: %w", err)
	}
	return nil
}
