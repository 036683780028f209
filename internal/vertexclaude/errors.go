package vertexclaude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// Precondition errors reported by New before any request is made.
var (
	ErrMissingProject     = errors.New("google cloud project is not configured")
	ErrMissingRegion      = errors.New("vertex ai region is not configured")
	ErrMissingCredentials = errors.New("google cloud credentials are not available")
)

// abortedMessage is the error message of streams ended by caller cancellation.
const abortedMessage = "Request was aborted"

// streamingErrorPrefix is the prefix used by the Anthropic SDK when wrapping streaming errors.
const streamingErrorPrefix = "received error while streaming: "

// errorMessage renders err as a readable message for the terminal error event.
//
// The Anthropic SDK returns different error shapes for HTTP and in-stream failures,
// both carrying an Anthropic error object that is rendered as "<type>: <message>".
// Other errors (network, timeouts) use their own message.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return abortedMessage
	}

	// HTTP errors: *anthropic.Error provides the body via RawJSON()
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if errorResp, parseErr := parseErrorResponseJSON(apiErr.RawJSON()); parseErr == nil && errorResp.Error.Message != "" {
			return fmt.Sprintf("%s: %s", errorResp.Error.Type, errorResp.Error.Message)
		}
		return apiErr.Error()
	}

	// Streaming: SDK embeds JSON in error string with known prefix
	if jsonStr, ok := strings.CutPrefix(err.Error(), streamingErrorPrefix); ok {
		if errorResp, parseErr := parseErrorResponseJSON(jsonStr); parseErr == nil && errorResp.Error.Message != "" {
			return fmt.Sprintf("%s: %s", errorResp.Error.Type, errorResp.Error.Message)
		}
	}

	return err.Error()
}

// parseErrorResponseJSON parses Anthropic error JSON into structured ErrorResponse.
// Shared by both HTTP (RawJSON) and streaming (error string) error paths.
func parseErrorResponseJSON(jsonStr string) (*anthropic.ErrorResponse, error) {
	var errorResp anthropic.ErrorResponse
	if err := json.Unmarshal([]byte(jsonStr), &errorResp); err != nil {
		return nil, fmt.Errorf("failed to parse Anthropic error JSON: %w", err)
	}
	return &errorResp, nil
}
