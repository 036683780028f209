package vertexclaude

import (
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/florianilch/claudine-vertex/internal/llm"
)

func TestMapStopReason(t *testing.T) {
	tests := []struct {
		in   anthropic.StopReason
		want llm.StopReason
	}{
		{anthropic.StopReasonEndTurn, llm.StopReasonStop},
		{anthropic.StopReasonPauseTurn, llm.StopReasonStop},
		{anthropic.StopReasonStopSequence, llm.StopReasonStop},
		{anthropic.StopReasonMaxTokens, llm.StopReasonLength},
		{anthropic.StopReasonToolUse, llm.StopReasonToolUse},
		{anthropic.StopReasonRefusal, llm.StopReasonError},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, err := mapStopReason(tt.in)
			if err != nil {
				t.Fatalf("mapStopReason(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("mapStopReason(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapStopReasonUnknown(t *testing.T) {
	for _, in := range []anthropic.StopReason{"", "model_context_window_exceeded", "END_TURN"} {
		_, err := mapStopReason(in)
		if !errors.Is(err, ErrUnhandledStopReason) {
			t.Errorf("mapStopReason(%q) error = %v, want ErrUnhandledStopReason", in, err)
			continue
		}
		if want := "unhandled stop reason: " + string(in); err.Error() != want {
			t.Errorf("error message = %q, want %q", err.Error(), want)
		}
	}
}
