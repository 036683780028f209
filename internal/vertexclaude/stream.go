package vertexclaude

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/florianilch/claudine-vertex/internal/llm"
	"github.com/florianilch/claudine-vertex/internal/partialjson"
)

// errUnexpectedStop ends streams whose stop reason is itself an error (e.g. refusals).
var errUnexpectedStop = errors.New("an unknown error occurred")

// openBlock correlates an Anthropic content block index with its output position
// while the block is streaming.
type openBlock struct {
	pos         int
	partialJSON string
}

// translator turns Anthropic stream events into normalized events.
//
// It exclusively owns the output message; consumers only receive clones. Anthropic
// addresses blocks by its own index, which need not match the output position since
// unsupported block kinds are skipped.
type translator struct {
	model  llm.Model
	out    *llm.AssistantMessage
	open   map[int64]*openBlock
	stream *llm.EventStream

	// abandoned is set once the consumer stops reading
	abandoned bool
	// err is the failure that ended the stream, if any
	err error
}

func newTranslator(model llm.Model, stream *llm.EventStream) *translator {
	return &translator{
		model: model,
		out: &llm.AssistantMessage{
			Content:    []llm.ContentBlock{},
			API:        API,
			Provider:   ProviderName,
			Model:      model.ID,
			StopReason: llm.StopReasonStop,
			Timestamp:  time.Now(),
		},
		open:   make(map[int64]*openBlock),
		stream: stream,
	}
}

// run performs one streaming call. It always finishes the event stream.
func (p *Provider) run(ctx context.Context, stream *llm.EventStream, model llm.Model, conv llm.Context, opts llm.StreamOptions) {
	ctx, span := p.tracer.Start(ctx, "vertexclaude.Stream",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", model.ID)),
	)
	defer span.End()

	t := newTranslator(model, stream)
	defer t.record(span)

	params, err := buildParams(model, conv, opts)
	if err != nil {
		t.fail(ctx, err)
		return
	}

	events := p.client.Messages.NewStreaming(ctx, params)
	defer events.Close()

	for events.Next() {
		if err := t.handle(ctx, events.Current()); err != nil {
			t.fail(ctx, err)
			return
		}
		if t.abandoned {
			slog.DebugContext(ctx, "stream abandoned by consumer", "model", model.ID)
			t.stream.Finish(t.out.Clone(), context.Canceled)
			return
		}
	}
	if err := events.Err(); err != nil {
		t.fail(ctx, err)
		return
	}

	t.finish(ctx)
}

// handle applies one Anthropic event to the output and emits the matching normalized events.
func (t *translator) handle(ctx context.Context, event anthropic.MessageStreamEventUnion) error {
	switch ev := event.AsAny().(type) {
	case anthropic.MessageStartEvent:
		t.out.ResponseID = ev.Message.ID
		applyStartUsage(&t.out.Usage, ev.Message.Usage, t.model)
		t.emit(llm.Event{Type: llm.EventStart})

	case anthropic.ContentBlockStartEvent:
		t.startBlock(ctx, ev)

	case anthropic.ContentBlockDeltaEvent:
		t.applyDelta(ctx, ev)

	case anthropic.ContentBlockStopEvent:
		t.stopBlock(ev.Index)

	case anthropic.MessageDeltaEvent:
		if ev.Delta.StopReason != "" {
			reason, err := mapStopReason(ev.Delta.StopReason)
			if err != nil {
				return err
			}
			t.out.StopReason = reason
		}
		applyDeltaUsage(&t.out.Usage, ev.Usage, t.model)

	case anthropic.MessageStopEvent:
		// end of stream is detected by the event loop
	}
	return nil
}

func (t *translator) startBlock(ctx context.Context, ev anthropic.ContentBlockStartEvent) {
	var (
		block     llm.ContentBlock
		eventType llm.EventType
	)
	switch cb := ev.ContentBlock; cb.Type {
	case "text":
		block, eventType = llm.Text(""), llm.EventTextStart
	case "thinking":
		block, eventType = llm.Thinking("", ""), llm.EventThinkingStart
	case "tool_use":
		id := cb.ID
		if id == "" {
			id = newToolCallID()
		}
		block, eventType = llm.ToolCall(id, cb.Name, map[string]any{}), llm.EventToolCallStart
	default:
		// redacted_thinking, server_tool_use, web_search_tool_result have no host representation
		slog.DebugContext(ctx, "ignoring unsupported content block", "type", cb.Type, "index", ev.Index)
		return
	}

	pos := len(t.out.Content)
	t.out.Content = append(t.out.Content, block)
	t.open[ev.Index] = &openBlock{pos: pos}
	t.emit(llm.Event{Type: eventType, ContentIndex: pos})
}

func (t *translator) applyDelta(ctx context.Context, ev anthropic.ContentBlockDeltaEvent) {
	ob, ok := t.open[ev.Index]
	if !ok {
		slog.DebugContext(ctx, "ignoring delta for unknown content block", "index", ev.Index, "type", ev.Delta.Type)
		return
	}
	block := &t.out.Content[ob.pos]

	switch delta := ev.Delta.AsAny().(type) {
	case anthropic.TextDelta:
		if block.Type != llm.ContentText {
			return
		}
		block.Text += delta.Text
		t.emit(llm.Event{Type: llm.EventTextDelta, ContentIndex: ob.pos, Delta: delta.Text})

	case anthropic.ThinkingDelta:
		if block.Type != llm.ContentThinking {
			return
		}
		block.Thinking += delta.Thinking
		t.emit(llm.Event{Type: llm.EventThinkingDelta, ContentIndex: ob.pos, Delta: delta.Thinking})

	case anthropic.InputJSONDelta:
		if block.Type != llm.ContentToolCall {
			return
		}
		ob.partialJSON += delta.PartialJSON
		block.Arguments = partialjson.Parse(ob.partialJSON)
		t.emit(llm.Event{Type: llm.EventToolCallDelta, ContentIndex: ob.pos, Delta: delta.PartialJSON})

	case anthropic.SignatureDelta:
		if block.Type != llm.ContentThinking {
			return
		}
		block.ThinkingSignature += delta.Signature
	}
}

func (t *translator) stopBlock(index int64) {
	ob, ok := t.open[index]
	if !ok {
		return
	}
	delete(t.open, index)
	block := &t.out.Content[ob.pos]

	switch block.Type {
	case llm.ContentText:
		t.emit(llm.Event{Type: llm.EventTextEnd, ContentIndex: ob.pos, Content: block.Text})
	case llm.ContentThinking:
		t.emit(llm.Event{Type: llm.EventThinkingEnd, ContentIndex: ob.pos, Content: block.Thinking})
	case llm.ContentToolCall:
		block.Arguments = partialjson.Parse(ob.partialJSON)
		toolCall := *block
		t.emit(llm.Event{Type: llm.EventToolCallEnd, ContentIndex: ob.pos, ToolCall: &toolCall})
	}
}

// finish emits the terminal event once the Anthropic stream has ended.
func (t *translator) finish(ctx context.Context) {
	if ctx.Err() != nil {
		t.fail(ctx, ctx.Err())
		return
	}
	if t.out.StopReason == llm.StopReasonAborted || t.out.StopReason == llm.StopReasonError {
		t.fail(ctx, errUnexpectedStop)
		return
	}

	t.emit(llm.Event{Type: llm.EventDone, Reason: t.out.StopReason})
	t.stream.Finish(t.out.Clone(), nil)
}

// fail ends the stream with a single error event carrying the partial output.
// Cancellation of ctx takes precedence over err when classifying the failure.
func (t *translator) fail(ctx context.Context, err error) {
	clear(t.open)
	t.err = err

	if ctx.Err() != nil {
		t.out.StopReason = llm.StopReasonAborted
		t.out.ErrorMessage = abortedMessage
		slog.InfoContext(ctx, "stream aborted", "model", t.model.ID)
	} else {
		t.out.StopReason = llm.StopReasonError
		t.out.ErrorMessage = errorMessage(err)
		slog.ErrorContext(ctx, "stream failed", "model", t.model.ID, "error", err)
	}

	t.emit(llm.Event{Type: llm.EventError, Reason: t.out.StopReason})
	t.stream.Finish(t.out.Clone(), &llm.StreamError{Reason: t.out.StopReason, Message: t.out.ErrorMessage})
}

// emit attaches an output snapshot and pushes the event, blocking until the consumer
// takes it or abandons the stream.
func (t *translator) emit(ev llm.Event) {
	if t.abandoned {
		return
	}
	ev.Message = t.out.Clone()
	if !t.stream.Push(ev) {
		t.abandoned = true
	}
}

// record annotates the span with the outcome of the call.
func (t *translator) record(span trace.Span) {
	span.SetAttributes(
		attribute.String("llm.stop_reason", string(t.out.StopReason)),
		attribute.Int64("llm.usage.input_tokens", t.out.Usage.Input),
		attribute.Int64("llm.usage.output_tokens", t.out.Usage.Output),
		attribute.Int64("llm.usage.cache_read_tokens", t.out.Usage.CacheRead),
		attribute.Int64("llm.usage.cache_write_tokens", t.out.Usage.CacheWrite),
		attribute.Float64("llm.usage.cost", t.out.Usage.Cost.Total),
	)
	if t.err != nil {
		span.RecordError(t.err)
		span.SetStatus(codes.Error, t.out.ErrorMessage)
	}
}
