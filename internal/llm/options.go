package llm

import (
	"fmt"
	"strings"
)

// ThinkingLevel is a requested reasoning effort.
type ThinkingLevel string

const (
	ThinkingOff     ThinkingLevel = ""
	ThinkingMinimal ThinkingLevel = "minimal"
	ThinkingLow     ThinkingLevel = "low"
	ThinkingMedium  ThinkingLevel = "medium"
	ThinkingHigh    ThinkingLevel = "high"
	ThinkingXHigh   ThinkingLevel = "xhigh"
)

// DefaultThinkingBudgets maps effort levels to token budgets.
// ThinkingXHigh is absent on purpose and falls back to the high budget.
var DefaultThinkingBudgets = map[ThinkingLevel]int64{
	ThinkingMinimal: 1024,
	ThinkingLow:     4096,
	ThinkingMedium:  10240,
	ThinkingHigh:    20480,
}

// ParseThinkingLevel validates a user supplied effort level. "off" and "" disable reasoning.
func ParseThinkingLevel(s string) (ThinkingLevel, error) {
	switch l := ThinkingLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case ThinkingMinimal, ThinkingLow, ThinkingMedium, ThinkingHigh, ThinkingXHigh:
		return l, nil
	case ThinkingOff, "off", "none":
		return ThinkingOff, nil
	default:
		return ThinkingOff, fmt.Errorf("unknown thinking level %q", s)
	}
}

// ThinkingBudget resolves the token budget for level. Entries in overrides take
// precedence over the defaults.
func ThinkingBudget(level ThinkingLevel, overrides map[ThinkingLevel]int64) int64 {
	if b, ok := overrides[level]; ok && b > 0 {
		return b
	}
	if level == ThinkingXHigh {
		return ThinkingBudget(ThinkingHigh, overrides)
	}
	return DefaultThinkingBudgets[level]
}

// ToolChoiceMode constrains how the model may use tools.
type ToolChoiceMode string

const (
	ToolChoiceAuto ToolChoiceMode = "auto"
	ToolChoiceAny  ToolChoiceMode = "any"
	ToolChoiceNone ToolChoiceMode = "none"
	ToolChoiceTool ToolChoiceMode = "tool"
)

// ToolChoice selects a tool-use policy. Name is required for ToolChoiceTool.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode"`
	Name string         `json:"name,omitempty"`
}

// ParseToolChoice accepts "auto", "any", "none" or "tool:<name>".
func ParseToolChoice(s string) (*ToolChoice, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if name, ok := strings.CutPrefix(s, "tool:"); ok {
		if name == "" {
			return nil, fmt.Errorf("tool choice %q: missing tool name", s)
		}
		return &ToolChoice{Mode: ToolChoiceTool, Name: name}, nil
	}
	switch m := ToolChoiceMode(s); m {
	case ToolChoiceAuto, ToolChoiceAny, ToolChoiceNone:
		return &ToolChoice{Mode: m}, nil
	default:
		return nil, fmt.Errorf("unknown tool choice %q", s)
	}
}

// StreamOptions tune a single streaming call.
type StreamOptions struct {
	// MaxTokens caps output tokens. Zero selects a provider default.
	MaxTokens   int64    `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	Reasoning       ThinkingLevel           `json:"reasoning,omitempty"`
	ThinkingBudgets map[ThinkingLevel]int64 `json:"thinkingBudgets,omitempty"`

	ToolChoice *ToolChoice `json:"toolChoice,omitempty"`
}
