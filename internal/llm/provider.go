package llm

import "context"

// Provider defines the contract for streaming a model response.
//
// Stream must return immediately and never block on network activity. Failures after
// the call are reported as the terminal error event of the returned stream.
// Implementations must remain stateless across calls.
type Provider interface {
	Stream(ctx context.Context, model Model, conv Context, opts StreamOptions) *EventStream
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, model Model, conv Context, opts StreamOptions) *EventStream

func (f ProviderFunc) Stream(ctx context.Context, model Model, conv Context, opts StreamOptions) *EventStream {
	return f(ctx, model, conv, opts)
}

var _ Provider = ProviderFunc(nil)
