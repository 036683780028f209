package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"

	"github.com/florianilch/claudine-vertex/internal/proxy"
	"github.com/florianilch/claudine-vertex/internal/vertexclaude"
)

// App orchestrates the lifecycle of the HTTP host and related services.
type App struct {
	proxy  *proxy.Proxy
	health *Health
	addr   string
}

type appOptions struct {
	transport   http.RoundTripper
	credentials *google.Credentials
}

// Option configures an App.
type Option func(*appOptions)

// WithTransport sets the base HTTP transport for Vertex AI requests.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *appOptions) {
		o.transport = transport
	}
}

// WithCredentials skips credential resolution and uses creds.
func WithCredentials(creds *google.Credentials) Option {
	return func(o *appOptions) {
		o.credentials = creds
	}
}

// NewProvider resolves credentials and creates the Vertex AI provider.
// Missing region, credentials or project are reported in that order.
func NewProvider(ctx context.Context, cfg VertexConfig, opts ...Option) (*vertexclaude.Provider, error) {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if cfg.Region == "" {
		return nil, vertexclaude.ErrMissingRegion
	}

	creds := o.credentials
	if creds == nil {
		var err error
		creds, err = cfg.Credentials.Resolve(ctx)
		if err != nil {
			return nil, err
		}
	}

	project := cfg.Project
	if project == "" {
		// service account keys and ADC usually carry their project
		project = creds.ProjectID
	}

	provider, err := vertexclaude.New(ctx, vertexclaude.Config{
		ProjectID:   project,
		Region:      cfg.Region,
		Credentials: creds,
		BaseURL:     cfg.BaseURL,
	}, vertexclaude.WithTransport(o.transport))
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "vertex ai provider ready", "project", project, "region", cfg.Region)
	return provider, nil
}

// New creates a new App instance.
func New(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	provider, err := NewProvider(ctx, cfg.Vertex, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	health := NewHealth()

	proxyServer, err := proxy.New(provider, health,
		proxy.WithMaxRequestBytes(cfg.Server.MaxRequestBytes),
		proxy.WithDefaults(cfg.Defaults.Model, cfg.Defaults.StreamOptions()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	return &App{
		proxy:  proxyServer,
		health: health,
		addr:   cfg.Server.Addr,
	}, nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting proxy server", "addr", a.addr)
	proxyErrCh, err := a.proxy.Start(gCtx, a.addr)
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)

	a.health.SetReady(true)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-proxyErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()

	// Stop advertising readiness before draining connections
	a.health.SetReady(false)
	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
