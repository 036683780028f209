package llm

// StopReason is the normalized classification of why a response ended.
type StopReason string

const (
	StopReasonStop    StopReason = "stop"
	StopReasonLength  StopReason = "length"
	StopReasonToolUse StopReason = "toolUse"
	StopReasonError   StopReason = "error"
	StopReasonAborted StopReason = "aborted"
)

// EventType names a normalized lifecycle event.
type EventType string

const (
	EventStart         EventType = "start"
	EventTextStart     EventType = "text_start"
	EventTextDelta     EventType = "text_delta"
	EventTextEnd       EventType = "text_end"
	EventThinkingStart EventType = "thinking_start"
	EventThinkingDelta EventType = "thinking_delta"
	EventThinkingEnd   EventType = "thinking_end"
	EventToolCallStart EventType = "toolcall_start"
	EventToolCallDelta EventType = "toolcall_delta"
	EventToolCallEnd   EventType = "toolcall_end"
	EventDone          EventType = "done"
	EventError         EventType = "error"
)

// Event is one normalized stream event.
//
// Message is always set and holds a snapshot of the output at the time the event
// was produced. Block events carry the block's output position in ContentIndex.
type Event struct {
	Type         EventType `json:"type"`
	ContentIndex int       `json:"contentIndex"`

	// Delta is the incremental text, reasoning or raw argument fragment of a *_delta event.
	Delta string `json:"delta,omitempty"`
	// Content is the finished text of a text_end or thinking_end event.
	Content string `json:"content,omitempty"`
	// ToolCall is the finished block of a toolcall_end event.
	ToolCall *ContentBlock `json:"toolCall,omitempty"`
	// Reason is set on done and error events.
	Reason StopReason `json:"reason,omitempty"`

	Message *AssistantMessage `json:"message"`
}

// Terminal reports whether e ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}
