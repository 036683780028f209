package proxy

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/florianilch/claudine-vertex/internal/llm"
	"github.com/florianilch/claudine-vertex/internal/observability/middleware"
)

// streamRequest is the body of POST /v1/stream.
type streamRequest struct {
	Model   string            `json:"model"`
	Context llm.Context       `json:"context"`
	Options llm.StreamOptions `json:"options"`
}

// streamHandler relays the normalized event stream as server-sent events,
// one SSE event per normalized event named after its type.
type streamHandler struct {
	provider     llm.Provider
	catalog      *modelCatalog
	defaultModel string
	defaults     llm.StreamOptions
}

// Compile-time check to ensure streamHandler implements http.Handler
var _ http.Handler = (*streamHandler)(nil)

func (h *streamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSONError(ctx, w, errorTypeRequestTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
			return
		}
		slog.WarnContext(ctx, "failed to decode request", "error", err)
		writeJSONError(ctx, w, errorTypeInvalidRequest, "invalid request body")
		return
	}

	modelID := cmp.Or(req.Model, h.defaultModel)
	if modelID == "" {
		writeJSONError(ctx, w, errorTypeInvalidRequest, "model is required")
		return
	}
	model, ok := h.catalog.lookup(modelID)
	if !ok {
		writeJSONError(ctx, w, errorTypeInvalidRequest, fmt.Sprintf("unknown model %q", modelID))
		return
	}
	if len(req.Context.Messages) == 0 {
		writeJSONError(ctx, w, errorTypeInvalidRequest, "context.messages must not be empty")
		return
	}
	opts, err := h.resolveOptions(req.Options)
	if err != nil {
		writeJSONError(ctx, w, errorTypeInvalidRequest, err.Error())
		return
	}

	middleware.SetLogAttrs(ctx, slog.String("model", model.ID))

	stream := h.provider.Stream(ctx, model, req.Context, opts)
	// Abandons the stream on early return
	defer stream.Close()

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeJSONError(ctx, w, errorTypeAPI, http.StatusText(http.StatusInternalServerError))
		return
	}

	for ev := range stream.All() {
		if err := sse.WriteEvent(string(ev.Type)); err != nil {
			slog.DebugContext(ctx, "client disconnected during stream", "error", err)
			return
		}
		if err := sse.WriteData(ev); err != nil {
			slog.DebugContext(ctx, "client disconnected during stream", "error", err)
			return
		}

		if ev.Terminal() {
			usage := ev.Message.Usage
			middleware.SetLogAttrs(ctx,
				slog.String("stop_reason", string(ev.Reason)),
				slog.Int64("input_tokens", usage.Input),
				slog.Int64("output_tokens", usage.Output),
				slog.Int64("cache_read_tokens", usage.CacheRead),
				slog.Int64("cache_write_tokens", usage.CacheWrite),
				slog.Float64("cost_usd", usage.Cost.Total),
			)
		}
	}
}

// resolveOptions validates request options and fills unset ones from the server defaults.
func (h *streamHandler) resolveOptions(opts llm.StreamOptions) (llm.StreamOptions, error) {
	if opts.MaxTokens < 0 {
		return opts, errors.New("options.maxTokens must not be negative")
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = h.defaults.MaxTokens
	}

	if t := opts.Temperature; t != nil && (*t < 0 || *t > 1) {
		return opts, errors.New("options.temperature must be between 0 and 1")
	}

	// Unset reasoning takes the default; an explicit "off" overrides it
	if opts.Reasoning == llm.ThinkingOff {
		opts.Reasoning = h.defaults.Reasoning
	} else {
		level, err := llm.ParseThinkingLevel(string(opts.Reasoning))
		if err != nil {
			return opts, fmt.Errorf("options.reasoning: %w", err)
		}
		opts.Reasoning = level
	}

	if opts.ThinkingBudgets == nil {
		opts.ThinkingBudgets = h.defaults.ThinkingBudgets
	}

	if tc := opts.ToolChoice; tc != nil {
		switch tc.Mode {
		case llm.ToolChoiceAuto, llm.ToolChoiceAny, llm.ToolChoiceNone:
		case llm.ToolChoiceTool:
			if tc.Name == "" {
				return opts, errors.New("options.toolChoice: name is required for mode tool")
			}
		default:
			return opts, fmt.Errorf("options.toolChoice: unknown mode %q", tc.Mode)
		}
	}

	return opts, nil
}
