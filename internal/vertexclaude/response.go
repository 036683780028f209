package vertexclaude

import (
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/florianilch/claudine-vertex/internal/llm"
)

// ErrUnhandledStopReason reports a stop reason this adapter does not know.
// It indicates a compatibility gap with the API, not a runtime condition.
var ErrUnhandledStopReason = errors.New("unhandled stop reason")

// mapStopReason maps Anthropic stop reasons to normalized stop reasons.
//
// pause_turn has no resume equivalent on the host side and is treated as a regular stop.
// Refusals end the turn as an error.
func mapStopReason(stopReason anthropic.StopReason) (llm.StopReason, error) {
	switch stopReason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonPauseTurn, anthropic.StopReasonStopSequence:
		return llm.StopReasonStop, nil
	case anthropic.StopReasonMaxTokens:
		return llm.StopReasonLength, nil
	case anthropic.StopReasonToolUse:
		return llm.StopReasonToolUse, nil
	case anthropic.StopReasonRefusal:
		return llm.StopReasonError, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnhandledStopReason, stopReason)
	}
}
