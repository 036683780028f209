package vertexclaude

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/florianilch/claudine-vertex/internal/llm"
)

const (
	// defaultMaxTokens applies when neither the caller nor the model sets an output cap.
	defaultMaxTokens int64 = 4096
	// thinkingHeadroom is the minimum output space left above the thinking budget.
	thinkingHeadroom int64 = 1024
)

// resolveMaxTokens picks the output cap: the caller's value, else a third of the
// model's maximum output.
func resolveMaxTokens(model llm.Model, opts llm.StreamOptions) int64 {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	if model.MaxTokens > 0 {
		return max(model.MaxTokens/3, 1)
	}
	return defaultMaxTokens
}

// buildThinking maps the requested effort level to an extended thinking budget and
// adjusts maxTokens so the budget fits below it.
//
// Budgets: minimal 1,024, low 4,096, medium 10,240, high 20,480. xhigh uses the high
// budget unless opts.ThinkingBudgets overrides it.
func buildThinking(model llm.Model, opts llm.StreamOptions, maxTokens int64) (anthropic.ThinkingConfigParamUnion, int64, error) {
	var thinking anthropic.ThinkingConfigParamUnion
	if opts.Reasoning == llm.ThinkingOff || !model.Reasoning {
		return thinking, maxTokens, nil
	}

	budget := llm.ThinkingBudget(opts.Reasoning, opts.ThinkingBudgets)
	if budget <= 0 {
		return thinking, maxTokens, fmt.Errorf("unsupported reasoning level: %s", opts.Reasoning)
	}

	// Anthropic requires max_tokens > budget_tokens
	if maxTokens <= budget {
		maxTokens = budget + thinkingHeadroom
	}

	return anthropic.ThinkingConfigParamOfEnabled(budget), maxTokens, nil
}
