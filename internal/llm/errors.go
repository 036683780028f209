package llm

import (
	"errors"
	"fmt"
)

// ErrAborted is matched by stream errors caused by caller cancellation.
var ErrAborted = errors.New("request was aborted")

// StreamError is the terminal failure of a stream.
type StreamError struct {
	Reason  StopReason
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %s", e.Reason, e.Message)
}

// Is makes errors.Is(err, ErrAborted) hold for cancelled streams.
func (e *StreamError) Is(target error) bool {
	return target == ErrAborted && e.Reason == StopReasonAborted
}
