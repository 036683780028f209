package vertexclaude

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/florianilch/claudine-vertex/internal/llm"
)

// maxToolCallIDLength is the longest tool_use id Anthropic accepts.
const maxToolCallIDLength = 64

// fromTools converts host tool definitions to Anthropic tools.
func fromTools(tools []llm.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	anthropicTools := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		toolParam := anthropic.ToolParam{
			Name:        tool.Name,
			InputSchema: anthropic.ToolInputSchemaParam{},
		}
		if tool.Description != "" {
			toolParam.Description = anthropic.String(tool.Description)
		}

		// Anthropic splits the JSON schema into properties/required with everything else
		// in ExtraFields.
		if params := tool.Parameters; params != nil {
			if props, ok := params["properties"]; ok {
				toolParam.InputSchema.Properties = props
			}

			switch req := params["required"].(type) {
			case []string:
				toolParam.InputSchema.Required = req
			case []any:
				var required []string
				for _, r := range req {
					if s, ok := r.(string); ok {
						required = append(required, s)
					}
				}
				toolParam.InputSchema.Required = required
			}

			var extraFields map[string]any
			for key, value := range params {
				if key != "type" && key != "properties" && key != "required" {
					if extraFields == nil {
						extraFields = make(map[string]any)
					}
					extraFields[key] = value
				}
			}
			toolParam.InputSchema.ExtraFields = extraFields
		}

		anthropicTools = append(anthropicTools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return anthropicTools
}

// fromToolChoice converts the host tool choice. A nil choice leaves the Anthropic default (auto).
func fromToolChoice(choice *llm.ToolChoice) (anthropic.ToolChoiceUnionParam, error) {
	if choice == nil {
		return anthropic.ToolChoiceUnionParam{}, nil
	}

	switch choice.Mode {
	case llm.ToolChoiceAuto:
		return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}, nil
	case llm.ToolChoiceAny:
		return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}, nil
	case llm.ToolChoiceNone:
		return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}, nil
	case llm.ToolChoiceTool:
		if choice.Name == "" {
			return anthropic.ToolChoiceUnionParam{}, fmt.Errorf("tool choice %q requires a tool name", choice.Mode)
		}
		return anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: choice.Name}}, nil
	default:
		return anthropic.ToolChoiceUnionParam{}, fmt.Errorf("unsupported tool choice: %s", choice.Mode)
	}
}

// normalizeToolCallID maps ids from other providers onto Anthropic's id charset
// ([A-Za-z0-9_-], at most 64 bytes). The mapping is deterministic so a tool_use and
// its tool_result stay paired.
func normalizeToolCallID(id string) string {
	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
	if len(normalized) > maxToolCallIDLength {
		normalized = normalized[:maxToolCallIDLength]
	}
	return normalized
}

// newToolCallID generates an Anthropic-style tool call id (format: toolu_<uuid hex>).
// Used as fallback when a streamed tool_use block arrives without an id.
func newToolCallID() string {
	return "toolu_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
