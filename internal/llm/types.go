package llm

import (
	"maps"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "toolResult"
)

// ContentType tags the variant held by a ContentBlock.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentThinking ContentType = "thinking"
	ContentImage    ContentType = "image"
	ContentToolCall ContentType = "toolCall"
)

// ContentBlock is a tagged variant over text, thinking, image and tool-call content.
// Only the fields belonging to Type are meaningful.
type ContentBlock struct {
	Type ContentType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// thinking
	Thinking          string `json:"thinking,omitempty"`
	ThinkingSignature string `json:"thinkingSignature,omitempty"`

	// image
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	// toolCall
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Text returns a text content block.
func Text(text string) ContentBlock {
	return ContentBlock{Type: ContentText, Text: text}
}

// Thinking returns a thinking content block carrying its replay signature.
func Thinking(thinking, signature string) ContentBlock {
	return ContentBlock{Type: ContentThinking, Thinking: thinking, ThinkingSignature: signature}
}

// Image returns an image content block from base64 data.
func Image(data, mimeType string) ContentBlock {
	return ContentBlock{Type: ContentImage, Data: data, MimeType: mimeType}
}

// ToolCall returns a tool-call content block.
func ToolCall(id, name string, arguments map[string]any) ContentBlock {
	return ContentBlock{Type: ContentToolCall, ID: id, Name: name, Arguments: arguments}
}

// Message is one turn of the host conversation.
//
// User and assistant turns carry either plain Text (used when Content is nil) or an
// ordered Content list. Tool-result turns reference the originating call by ToolCallID.
type Message struct {
	Role    Role           `json:"role"`
	Text    string         `json:"text,omitempty"`
	Content []ContentBlock `json:"content,omitempty"`

	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	IsError    bool   `json:"isError,omitempty"`

	Timestamp time.Time `json:"timestamp,omitzero"`
}

// IsPlain reports whether the message content is a plain string.
func (m Message) IsPlain() bool {
	return m.Content == nil
}

// UserText returns a plain-string user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Text: text, Timestamp: time.Now()}
}

// User returns a multi-part user message.
func User(parts ...ContentBlock) Message {
	return Message{Role: RoleUser, Content: parts, Timestamp: time.Now()}
}

// Assistant returns an assistant message built from content blocks.
func Assistant(parts ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: parts, Timestamp: time.Now()}
}

// ToolResult returns a tool-result message answering the call with the given id.
func ToolResult(toolCallID, toolName string, isError bool, parts ...ContentBlock) Message {
	return Message{
		Role:       RoleToolResult,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Content:    parts,
		IsError:    isError,
		Timestamp:  time.Now(),
	}
}

// Tool describes a function the model may call. Parameters is a JSON schema object.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Context is everything sent to the model for one request.
type Context struct {
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	Messages     []Message `json:"messages"`
	Tools        []Tool    `json:"tools,omitempty"`
}

// AssistantMessage is the output of one streamed response.
// It is owned by the producing stream; consumers receive snapshots via Clone.
type AssistantMessage struct {
	Content      []ContentBlock `json:"content"`
	API          string         `json:"api"`
	Provider     string         `json:"provider"`
	Model        string         `json:"model"`
	ResponseID   string         `json:"responseId,omitempty"`
	Usage        Usage          `json:"usage"`
	StopReason   StopReason     `json:"stopReason"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Clone returns a snapshot that shares no mutable state with m.
// Tool-call argument maps are copied one level deep; the producer replaces them
// wholesale rather than mutating nested values.
func (m *AssistantMessage) Clone() *AssistantMessage {
	if m == nil {
		return nil
	}
	c := *m
	c.Content = make([]ContentBlock, len(m.Content))
	for i, block := range m.Content {
		if block.Arguments != nil {
			block.Arguments = maps.Clone(block.Arguments)
		}
		c.Content[i] = block
	}
	return &c
}

// AsMessage converts the output into a conversation turn for the next request.
func (m *AssistantMessage) AsMessage() Message {
	content := make([]ContentBlock, len(m.Content))
	copy(content, m.Content)
	return Message{Role: RoleAssistant, Content: content, Timestamp: m.Timestamp}
}
