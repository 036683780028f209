package vertexclaude

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/florianilch/claudine-vertex/internal/llm"
)

const (
	// API identifies the wire protocol in produced messages.
	API = "anthropic-messages"
	// ProviderName identifies this provider in produced messages and model descriptors.
	ProviderName = "google-vertex-anthropic"

	tracerName = "github.com/florianilch/claudine-vertex/internal/vertexclaude"
)

// Provider streams Claude responses from Vertex AI as normalized events.
// It is safe for concurrent use; calls share only the underlying client.
type Provider struct {
	client anthropic.Client
	tracer trace.Tracer
}

// Compile-time check that Provider implements llm.Provider
var _ llm.Provider = (*Provider)(nil)

type providerOptions struct {
	transport http.RoundTripper
}

// Option configures a Provider.
type Option func(*providerOptions)

// WithTransport sets the base HTTP transport for Vertex AI requests (e.g., for proxies
// or tests). Requests are authorized on top of it.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *providerOptions) {
		o.transport = transport
	}
}

// New validates cfg and creates a Provider. Missing project, region or credentials are
// reported here, before any streaming attempt.
func New(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &providerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	client, err := newClient(ctx, cfg, o.transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}

	return &Provider{
		client: client,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Stream starts a streaming request and returns immediately. The response is consumed
// in a separate goroutine; cancelling ctx aborts the request and ends the stream with
// an aborted error event.
func (p *Provider) Stream(ctx context.Context, model llm.Model, conv llm.Context, opts llm.StreamOptions) *llm.EventStream {
	stream := llm.NewEventStream()
	go p.run(ctx, stream, model, conv, opts)
	return stream
}

// buildParams converts the conversation and options into an Anthropic request.
func buildParams(model llm.Model, conv llm.Context, opts llm.StreamOptions) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:    anthropic.Model(model.ID),
		Messages: convertMessages(conv.Messages, model),
		Tools:    fromTools(conv.Tools),
	}

	if conv.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text:         sanitizeSurrogates(conv.SystemPrompt),
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		}}
	}

	thinking, maxTokens, err := buildThinking(model, opts, resolveMaxTokens(model, opts))
	if err != nil {
		return params, err
	}
	params.Thinking = thinking
	params.MaxTokens = maxTokens

	// Sampling temperature is rejected together with extended thinking
	if opts.Temperature != nil && thinking.OfEnabled == nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}

	toolChoice, err := fromToolChoice(opts.ToolChoice)
	if err != nil {
		return params, err
	}
	params.ToolChoice = toolChoice

	return params, nil
}
