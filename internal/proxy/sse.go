package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// SSEWriter writes server-sent events and flushes after each complete event.
type SSEWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewSSEWriter sets the event-stream headers and commits the response status.
// It fails if the underlying writer cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	if !canFlush(w) {
		return nil, errors.New("streaming not supported by response writer")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // disable proxy buffering (nginx)

	rc := http.NewResponseController(w)
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush headers: %w", err)
	}

	return &SSEWriter{w: w, rc: rc}, nil
}

// WriteEvent writes the event name line of the next event.
func (s *SSEWriter) WriteEvent(name string) error {
	_, err := fmt.Fprintf(s.w, "event: %s\n", name)
	return err
}

// WriteData encodes v as JSON, terminates the event and flushes.
func (s *SSEWriter) WriteData(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}
	return s.WriteRaw(string(data))
}

// WriteRaw writes a pre-encoded single-line data field, terminates the event and flushes.
func (s *SSEWriter) WriteRaw(data string) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return s.rc.Flush()
}

// canFlush reports whether w, or a writer it wraps, supports flushing.
// Middleware wrappers expose the original writer through Unwrap.
func canFlush(w http.ResponseWriter) bool {
	for {
		if _, ok := w.(http.Flusher); ok {
			return true
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return false
		}
		w = u.Unwrap()
	}
}
