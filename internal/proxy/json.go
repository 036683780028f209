package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error types of JSON error responses.
const (
	errorTypeInvalidRequest  = "invalid_request_error"
	errorTypeRequestTooLarge = "request_too_large"
	errorTypeAPI             = "api_error"
)

// errorResponse is the JSON body of non-streaming failures.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONError writes an error response. The status code is derived from the error type.
func writeJSONError(ctx context.Context, w http.ResponseWriter, errType, message string) {
	var status int
	switch errType {
	case errorTypeInvalidRequest:
		status = http.StatusBadRequest
	case errorTypeRequestTooLarge:
		status = http.StatusRequestEntityTooLarge
	default:
		status = http.StatusInternalServerError
	}

	writeJSON(ctx, w, errorResponse{Error: errorDetail{Type: errType, Message: message}}, status)
}
