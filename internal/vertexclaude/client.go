package vertexclaude

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Config locates the Vertex AI endpoint and authenticates against it.
type Config struct {
	ProjectID   string
	Region      string
	Credentials *google.Credentials

	// BaseURL overrides the regional Vertex AI endpoint.
	BaseURL string
}

// Validate reports the first missing precondition.
func (c Config) Validate() error {
	switch {
	case c.ProjectID == "":
		return ErrMissingProject
	case c.Region == "":
		return ErrMissingRegion
	case c.Credentials == nil || c.Credentials.TokenSource == nil:
		return ErrMissingCredentials
	}
	return nil
}

// newClient creates an Anthropic client that routes Messages calls to Vertex AI.
// A non-nil transport replaces the default Google transport; requests are still
// authorized with the configured credentials.
func newClient(ctx context.Context, cfg Config, transport http.RoundTripper) (client anthropic.Client, err error) {
	// vertex.WithCredentials panics when it cannot build its HTTP client
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("configure vertex ai transport: %v", r)
		}
	}()

	opts := []option.RequestOption{
		vertex.WithCredentials(ctx, cfg.Region, cfg.ProjectID, cfg.Credentials),
		// Failures are surfaced once to the caller, never retried here
		option.WithMaxRetries(0),
		// Generous RequestTimeout bypasses SDK maxTokens checks - streams are bounded by the caller's context
		option.WithRequestTimeout(1 * time.Hour),
	}

	if transport != nil {
		opts = append(opts, option.WithHTTPClient(&http.Client{
			Transport: &oauth2.Transport{
				Source: cfg.Credentials.TokenSource,
				Base:   transport,
			},
			// Client.Timeout = 0 allows long-running SSE streams
		}))
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return anthropic.NewClient(opts...), nil
}
