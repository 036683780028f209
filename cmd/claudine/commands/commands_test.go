package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/claudine-vertex/internal/llm"
	"github.com/florianilch/claudine-vertex/internal/vertexclaude"
)

func TestStreamPrinter(t *testing.T) {
	tests := []struct {
		name    string
		styled  bool
		wantOut string
	}{
		{"plain", false, "hmm\nHello world\n-> get_weather({\"city\":\"Berlin\"})\n"},
		{"styled", true, ansiDim + "hmm" + ansiReset + "\nHello world\n-> get_weather({\"city\":\"Berlin\"})\n"},
	}

	events := []llm.Event{
		{Type: llm.EventStart},
		{Type: llm.EventThinkingStart},
		{Type: llm.EventThinkingDelta, Delta: "hmm"},
		{Type: llm.EventThinkingEnd, Content: "hmm"},
		{Type: llm.EventTextStart, ContentIndex: 1},
		{Type: llm.EventTextDelta, ContentIndex: 1, Delta: "Hello "},
		{Type: llm.EventTextDelta, ContentIndex: 1, Delta: "world"},
		{Type: llm.EventTextEnd, ContentIndex: 1, Content: "Hello world"},
		{Type: llm.EventToolCallStart, ContentIndex: 2},
		{Type: llm.EventToolCallDelta, ContentIndex: 2, Delta: `{"city":`},
		{Type: llm.EventToolCallEnd, ContentIndex: 2, ToolCall: &llm.ContentBlock{
			Type: llm.ContentToolCall, ID: "toolu_1", Name: "get_weather",
			Arguments: map[string]any{"city": "Berlin"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			p := newStreamPrinter(&out, &errOut, tt.styled)
			for _, ev := range events {
				p.print(ev)
			}
			if out.String() != tt.wantOut {
				t.Errorf("stdout = %q, want %q", out.String(), tt.wantOut)
			}

			p.printUsage(&llm.AssistantMessage{
				Model:      "claude-sonnet-4-5@20250929",
				StopReason: llm.StopReasonToolUse,
				Usage:      llm.Usage{Input: 10, Output: 5, TotalTokens: 15, Cost: llm.Cost{Total: 0.000105}},
			})
			for _, want := range []string{"stop=toolUse", "input=10", "output=5", "total=15", "cost=$0.000105"} {
				if !strings.Contains(errOut.String(), want) {
					t.Errorf("usage %q missing %q", errOut.String(), want)
				}
			}
		})
	}
}

func TestPrintModels(t *testing.T) {
	var buf bytes.Buffer
	if err := printModels(&buf, vertexclaude.Models()); err != nil {
		t.Fatalf("printModels() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if got, want := len(lines), len(vertexclaude.Models())+1; got != want {
		t.Fatalf("printed %d lines, want %d", got, want)
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(buf.String(), "claude-sonnet-4-5@20250929") {
		t.Error("model table is missing claude-sonnet-4-5@20250929")
	}
}

func TestReadPromptFromArgs(t *testing.T) {
	got, err := readPrompt([]string{"hello", "there"}, nil)
	if err != nil {
		t.Fatalf("readPrompt() error = %v", err)
	}
	if got != "hello there" {
		t.Errorf("readPrompt() = %q, want %q", got, "hello there")
	}
}

// runStreamOptions parses args with the stream flags and returns the resolved options.
func runStreamOptions(t *testing.T, defaults llm.StreamOptions, args ...string) (llm.StreamOptions, error) {
	t.Helper()
	var (
		got    llm.StreamOptions
		optErr error
	)
	cmd := streamCommand()
	cmd.Action = func(_ context.Context, cmd *cli.Command) error {
		got, optErr = streamOptions(cmd, defaults)
		return nil
	}
	if err := cmd.Run(context.Background(), append([]string{"stream"}, args...)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return got, optErr
}

func TestStreamOptions(t *testing.T) {
	defaults := llm.StreamOptions{MaxTokens: 2048, Reasoning: llm.ThinkingLow}

	got, err := runStreamOptions(t, defaults)
	if err != nil {
		t.Fatalf("streamOptions() error = %v", err)
	}
	if got.MaxTokens != 2048 || got.Reasoning != llm.ThinkingLow || got.Temperature != nil {
		t.Errorf("defaults not kept: %+v", got)
	}

	got, err = runStreamOptions(t, defaults, "--max-tokens", "512", "--reasoning", "off", "--temperature", "0.5")
	if err != nil {
		t.Fatalf("streamOptions() error = %v", err)
	}
	if got.MaxTokens != 512 || got.Reasoning != llm.ThinkingOff || got.Temperature == nil || *got.Temperature != 0.5 {
		t.Errorf("flags not applied: %+v", got)
	}

	for _, args := range [][]string{
		{"--temperature", "1.5"},
		{"--max-tokens=-1"},
		{"--reasoning", "maximum"},
	} {
		if _, err := runStreamOptions(t, defaults, args...); err == nil {
			t.Errorf("streamOptions(%v) error = nil, want error", args)
		}
	}
}
