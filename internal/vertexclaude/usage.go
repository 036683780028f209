package vertexclaude

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/florianilch/claudine-vertex/internal/llm"
)

// applyStartUsage overwrites all counters with the message_start snapshot.
func applyStartUsage(u *llm.Usage, usage anthropic.Usage, model llm.Model) {
	u.Input = usage.InputTokens
	u.Output = usage.OutputTokens
	u.CacheRead = usage.CacheReadInputTokens
	u.CacheWrite = usage.CacheCreationInputTokens
	u.Recompute(model)
}

// applyDeltaUsage overwrites the counters present in a message_delta snapshot.
// Anthropic reports cumulative totals, so values replace rather than add.
func applyDeltaUsage(u *llm.Usage, usage anthropic.MessageDeltaUsage, model llm.Model) {
	if usage.JSON.InputTokens.Valid() {
		u.Input = usage.InputTokens
	}
	if usage.JSON.OutputTokens.Valid() {
		u.Output = usage.OutputTokens
	}
	if usage.JSON.CacheReadInputTokens.Valid() {
		u.CacheRead = usage.CacheReadInputTokens
	}
	if usage.JSON.CacheCreationInputTokens.Valid() {
		u.CacheWrite = usage.CacheCreationInputTokens
	}
	u.Recompute(model)
}
