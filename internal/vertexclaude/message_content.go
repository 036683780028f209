package vertexclaude

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/florianilch/claudine-vertex/internal/llm"
)

// imagePlaceholder accompanies tool-result images that arrive without any text.
const imagePlaceholder = "(see attached image)"

// convertMessages converts the host conversation to Anthropic request messages.
//
// Consecutive tool results are merged into one user message, as Anthropic expects all
// outputs of a tool-use turn together. The last content block of a trailing user message
// is marked for ephemeral prompt caching.
func convertMessages(messages []llm.Message, model llm.Model) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	// plain string user turns are never cache-annotated
	lastIsPlain := false

	for i := 0; i < len(messages); i++ {
		msg := messages[i]

		switch msg.Role {
		case llm.RoleUser:
			if msg.IsPlain() {
				if strings.TrimSpace(msg.Text) == "" {
					continue
				}
				params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(sanitizeSurrogates(msg.Text))))
				lastIsPlain = true
				continue
			}
			blocks := fromUserContent(msg.Content, model)
			if len(blocks) == 0 {
				continue
			}
			params = append(params, anthropic.NewUserMessage(blocks...))
			lastIsPlain = false

		case llm.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.IsPlain() {
				if strings.TrimSpace(msg.Text) != "" {
					blocks = append(blocks, anthropic.NewTextBlock(sanitizeSurrogates(msg.Text)))
				}
			} else {
				blocks = fromAssistantContent(msg.Content)
			}
			if len(blocks) == 0 {
				continue
			}
			params = append(params, anthropic.NewAssistantMessage(blocks...))
			lastIsPlain = false

		case llm.RoleToolResult:
			var blocks []anthropic.ContentBlockParamUnion
			for ; i < len(messages) && messages[i].Role == llm.RoleToolResult; i++ {
				blocks = append(blocks, fromToolResult(messages[i]))
			}
			i--
			params = append(params, anthropic.NewUserMessage(blocks...))
			lastIsPlain = false
		}
	}

	if !lastIsPlain {
		markLastForCaching(params)
	}
	return params
}

// fromUserContent converts user text and image parts. Images are dropped for models
// without image input, and blank text parts are dropped after that.
func fromUserContent(parts []llm.ContentBlock, model llm.Model) []anthropic.ContentBlockParamUnion {
	acceptsImages := model.Accepts(llm.ModalityImage)

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case llm.ContentText:
			if strings.TrimSpace(part.Text) == "" {
				continue
			}
			blocks = append(blocks, anthropic.NewTextBlock(sanitizeSurrogates(part.Text)))
		case llm.ContentImage:
			if !acceptsImages {
				continue
			}
			blocks = append(blocks, anthropic.NewImageBlockBase64(part.MimeType, part.Data))
		}
	}
	return blocks
}

// fromAssistantContent converts assistant output for replay.
// Thinking without a signature cannot be replayed as thinking and is sent as text.
func fromAssistantContent(parts []llm.ContentBlock) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case llm.ContentText:
			if strings.TrimSpace(part.Text) == "" {
				continue
			}
			blocks = append(blocks, anthropic.NewTextBlock(sanitizeSurrogates(part.Text)))

		case llm.ContentThinking:
			if strings.TrimSpace(part.Thinking) == "" {
				continue
			}
			if part.ThinkingSignature == "" {
				blocks = append(blocks, anthropic.NewTextBlock(sanitizeSurrogates(part.Thinking)))
				continue
			}
			blocks = append(blocks, anthropic.NewThinkingBlock(part.ThinkingSignature, sanitizeSurrogates(part.Thinking)))

		case llm.ContentToolCall:
			args := part.Arguments
			if args == nil {
				args = map[string]any{}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(normalizeToolCallID(part.ID), args, part.Name))
		}
	}
	return blocks
}

// fromToolResult converts one tool result into a tool_result block.
func fromToolResult(msg llm.Message) anthropic.ContentBlockParamUnion {
	block := anthropic.ToolResultBlockParam{
		ToolUseID: normalizeToolCallID(msg.ToolCallID),
		IsError:   anthropic.Bool(msg.IsError),
		Content:   fromToolResultContent(msg),
	}
	return anthropic.ContentBlockParamUnion{OfToolResult: &block}
}

// fromToolResultContent collapses text-only results into a single newline-joined text
// block. Results with images keep their structure and get a placeholder when no text is present.
func fromToolResultContent(msg llm.Message) []anthropic.ToolResultBlockParamContentUnion {
	parts := msg.Content
	if msg.IsPlain() && msg.Text != "" {
		parts = []llm.ContentBlock{llm.Text(msg.Text)}
	}

	hasImage := false
	for _, part := range parts {
		if part.Type == llm.ContentImage {
			hasImage = true
			break
		}
	}

	if !hasImage {
		texts := make([]string, 0, len(parts))
		for _, part := range parts {
			if part.Type == llm.ContentText {
				texts = append(texts, part.Text)
			}
		}
		text := sanitizeSurrogates(strings.Join(texts, "\n"))
		if text == "" {
			// Anthropic rejects empty text blocks; an omitted content is an empty result.
			return nil
		}
		return []anthropic.ToolResultBlockParamContentUnion{
			{OfText: &anthropic.TextBlockParam{Text: text}},
		}
	}

	content := make([]anthropic.ToolResultBlockParamContentUnion, 0, len(parts)+1)
	hasText := false
	for _, part := range parts {
		switch part.Type {
		case llm.ContentText:
			hasText = true
			content = append(content, anthropic.ToolResultBlockParamContentUnion{
				OfText: &anthropic.TextBlockParam{Text: sanitizeSurrogates(part.Text)},
			})
		case llm.ContentImage:
			content = append(content, anthropic.ToolResultBlockParamContentUnion{
				OfImage: &anthropic.ImageBlockParam{
					Source: anthropic.ImageBlockParamSourceUnion{
						OfBase64: &anthropic.Base64ImageSourceParam{
							Data:      part.Data,
							MediaType: anthropic.Base64ImageSourceMediaType(part.MimeType),
						},
					},
				},
			})
		}
	}
	if !hasText {
		placeholder := anthropic.ToolResultBlockParamContentUnion{
			OfText: &anthropic.TextBlockParam{Text: imagePlaceholder},
		}
		content = append([]anthropic.ToolResultBlockParamContentUnion{placeholder}, content...)
	}
	return content
}

// markLastForCaching sets an ephemeral cache breakpoint on the last block of a
// trailing user message, provided it is text, an image or a tool result.
func markLastForCaching(params []anthropic.MessageParam) {
	if len(params) == 0 {
		return
	}
	last := &params[len(params)-1]
	if last.Role != anthropic.MessageParamRoleUser || len(last.Content) == 0 {
		return
	}

	block := last.Content[len(last.Content)-1]
	switch {
	case block.OfText != nil:
		block.OfText.CacheControl = anthropic.NewCacheControlEphemeralParam()
	case block.OfImage != nil:
		block.OfImage.CacheControl = anthropic.NewCacheControlEphemeralParam()
	case block.OfToolResult != nil:
		block.OfToolResult.CacheControl = anthropic.NewCacheControlEphemeralParam()
	}
}
