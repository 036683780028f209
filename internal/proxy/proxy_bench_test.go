package proxy

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/florianilch/claudine-vertex/internal/vertexclaude"
)

// mockVertexTransport returns pre-recorded responses without network calls.
type mockVertexTransport struct {
	responseBody   string
	responseStatus int
	isStreaming    bool
}

func (m *mockVertexTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	contentType := "application/json"
	if m.isStreaming {
		contentType = "text/event-stream"
	}

	return &http.Response{
		StatusCode: m.responseStatus,
		Body:       io.NopCloser(strings.NewReader(m.responseBody)),
		Header:     http.Header{"Content-Type": []string{contentType}},
		Request:    req,
	}, nil
}

// mockReadinessChecker always reports ready status for benchmarks.
type mockReadinessChecker struct{}

func (mockReadinessChecker) IsReady() bool {
	return true
}

const benchRequest = `{
	"model": "claude-sonnet-4-5@20250929",
	"context": {
		"systemPrompt": "You are a helpful assistant.",
		"messages": [{"role": "user", "text": "Hello"}],
		"tools": [{"name": "get_weather", "description": "Current weather", "parameters": {"type": "object", "properties": {"location": {"type": "string"}}, "required": ["location"]}}]
	},
	"options": {"reasoning": "low"}
}`

// loadSSEFixture reads a recorded Vertex AI streamRawPredict response.
func loadSSEFixture(tb testing.TB, name string) string {
	tb.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		tb.Fatalf("Failed to read fixture %s: %v", name, err)
	}
	return string(data)
}

// setupProxyWithMockTransport creates a Proxy with full middleware stack and the Vertex AI
// provider, but mocked upstream. Suppresses logging to isolate measurements from I/O overhead.
func setupProxyWithMockTransport(tb testing.TB, transport http.RoundTripper) *Proxy {
	tb.Helper()

	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	provider, err := vertexclaude.New(context.Background(), vertexclaude.Config{
		ProjectID: "test-project",
		Region:    "us-east5",
		Credentials: &google.Credentials{
			ProjectID:   "test-project",
			TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
		},
	}, vertexclaude.WithTransport(transport))
	if err != nil {
		tb.Fatalf("Failed to create provider: %v", err)
	}

	proxy, err := New(provider, mockReadinessChecker{})
	if err != nil {
		tb.Fatalf("Failed to create proxy: %v", err)
	}

	return proxy
}

// consumeSSEStream drains the response body to measure proxy throughput.
// Uses raw byte copy instead of SSE parsing to isolate proxy performance from client overhead.
func consumeSSEStream(tb testing.TB, body io.Reader) {
	tb.Helper()

	_, err := io.Copy(io.Discard, body)
	if err != nil {
		tb.Fatalf("Stream read error: %v", err)
	}
}

func TestProxyEndToEnd(t *testing.T) {
	tests := []struct {
		fixture    string
		wantEvents []string
		wantReason string
	}{
		{
			fixture:    "text_stream.sse",
			wantEvents: []string{"start", "text_start", "text_delta", "text_delta", "text_delta", "text_end", "done"},
			wantReason: `"reason":"stop"`,
		},
		{
			fixture: "tool_use_stream.sse",
			wantEvents: []string{
				"start", "text_start", "text_delta", "text_end",
				"toolcall_start", "toolcall_delta", "toolcall_delta", "toolcall_delta", "toolcall_delta", "toolcall_end",
				"done",
			},
			wantReason: `"reason":"toolUse"`,
		},
		{
			fixture: "thinking_stream.sse",
			wantEvents: []string{
				"start", "thinking_start", "thinking_delta", "thinking_delta", "thinking_end",
				"text_start", "text_delta", "text_end", "done",
			},
			wantReason: `"reason":"stop"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			proxy := setupProxyWithMockTransport(t, &mockVertexTransport{
				responseBody:   loadSSEFixture(t, tt.fixture),
				responseStatus: http.StatusOK,
				isStreaming:    true,
			})
			server := httptest.NewServer(proxy)
			defer server.Close()

			resp := postStream(t, server, benchRequest)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}

			events := readSSE(t, resp.Body)
			var names []string
			for _, ev := range events {
				names = append(names, ev.name)
			}
			if strings.Join(names, ",") != strings.Join(tt.wantEvents, ",") {
				t.Fatalf("events = %v, want %v", names, tt.wantEvents)
			}
			if last := events[len(events)-1].data; !strings.Contains(last, tt.wantReason) {
				t.Errorf("done event %s missing %s", last, tt.wantReason)
			}
		})
	}
}

func TestProxyEndToEndVendorError(t *testing.T) {
	proxy := setupProxyWithMockTransport(t, &mockVertexTransport{
		responseBody:   `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
		responseStatus: 529,
	})
	server := httptest.NewServer(proxy)
	defer server.Close()

	resp := postStream(t, server, benchRequest)
	// The stream is committed before the vendor call fails
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	events := readSSE(t, resp.Body)
	if len(events) != 1 || events[0].name != "error" {
		t.Fatalf("events = %+v, want a single error event", events)
	}
	if !strings.Contains(events[0].data, `"reason":"error"`) || !strings.Contains(events[0].data, "Overloaded") {
		t.Errorf("error event = %s", events[0].data)
	}
}

// BenchmarkProxyStreaming measures end-to-end streaming latency through
// the normalized event layer with multiple scenarios.
// Includes routing, middleware, handler, translator, and SSE encoding.
// Excludes network latency (mocked transport) and token refresh overhead.
func BenchmarkProxyStreaming(b *testing.B) {
	scenarios := []struct {
		name        string
		fixtureName string
	}{
		{name: "text", fixtureName: "text_stream.sse"},
		{name: "tool_use", fixtureName: "tool_use_stream.sse"},
		{name: "thinking", fixtureName: "thinking_stream.sse"},
	}

	for _, s := range scenarios {
		vertexSSE := loadSSEFixture(b, s.fixtureName)

		b.Run(s.name, func(b *testing.B) {
			mockTransport := &mockVertexTransport{
				responseBody:   vertexSSE,
				responseStatus: http.StatusOK,
				isStreaming:    true,
			}

			proxy := setupProxyWithMockTransport(b, mockTransport)
			server := httptest.NewServer(proxy)
			defer server.Close()

			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				resp, err := http.Post(server.URL+"/v1/stream", "application/json", strings.NewReader(benchRequest))
				if err != nil {
					b.Fatalf("Request failed: %v", err)
				}

				if resp.StatusCode != http.StatusOK {
					b.Fatalf("Unexpected status code: %d", resp.StatusCode)
				}

				consumeSSEStream(b, resp.Body)
				_ = resp.Body.Close()
			}
		})
	}
}

// BenchmarkProxyStreaming_TTFB measures Time-To-First-Byte for streaming responses.
// TTFB is the most critical latency metric for streaming UX - lower values mean
// better perceived responsiveness as the first event arrives faster.
func BenchmarkProxyStreaming_TTFB(b *testing.B) {
	mockTransport := &mockVertexTransport{
		responseBody:   loadSSEFixture(b, "text_stream.sse"),
		responseStatus: http.StatusOK,
		isStreaming:    true,
	}

	proxy := setupProxyWithMockTransport(b, mockTransport)
	server := httptest.NewServer(proxy)
	defer server.Close()

	b.ReportAllocs()
	b.ResetTimer()

	var totalTTFB time.Duration
	var iterations int
	buf := make([]byte, 1)

	for b.Loop() {
		start := time.Now()

		resp, err := http.Post(server.URL+"/v1/stream", "application/json", strings.NewReader(benchRequest))
		if err != nil {
			b.Fatalf("Request failed: %v", err)
		}

		// Read first byte to measure TTFB
		_, err = resp.Body.Read(buf)
		if err != nil {
			b.Fatalf("Failed to read first byte: %v", err)
		}

		ttfb := time.Since(start)
		totalTTFB += ttfb
		iterations++

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	avgTTFB := totalTTFB / time.Duration(iterations)
	b.ReportMetric(float64(avgTTFB.Microseconds()), "µs/ttfb")
}

// BenchmarkProxyConcurrentThroughput_Streaming measures concurrent streaming throughput
// using b.RunParallel to simulate realistic concurrent load. Reports ops/sec and memory
// allocations per request under concurrent execution.
func BenchmarkProxyConcurrentThroughput_Streaming(b *testing.B) {
	mockTransport := &mockVertexTransport{
		responseBody:   loadSSEFixture(b, "tool_use_stream.sse"),
		responseStatus: http.StatusOK,
		isStreaming:    true,
	}

	proxy := setupProxyWithMockTransport(b, mockTransport)
	server := httptest.NewServer(proxy)
	defer server.Close()

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			resp, err := http.Post(server.URL+"/v1/stream", "application/json", strings.NewReader(benchRequest))
			if err != nil {
				b.Fatalf("Request failed: %v", err)
			}

			if resp.StatusCode != http.StatusOK {
				b.Fatalf("Unexpected status code: %d", resp.StatusCode)
			}

			consumeSSEStream(b, resp.Body)
			_ = resp.Body.Close()
		}
	})
}
