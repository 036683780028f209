package commands

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/claudine-vertex/internal/app"
	"github.com/florianilch/claudine-vertex/internal/llm"
	"github.com/florianilch/claudine-vertex/internal/vertexclaude"
)

const (
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

func streamCommand() *cli.Command {
	return &cli.Command{
		Name:      "stream",
		Usage:     "Streams a single response for a prompt",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "model",
				Usage: "model id (defaults to defaults.model)",
			},
			&cli.StringFlag{
				Name:  "system",
				Usage: "system prompt",
			},
			&cli.StringFlag{
				Name:  "reasoning",
				Usage: "thinking level (off|minimal|low|medium|high|xhigh)",
			},
			&cli.Int64Flag{
				Name:  "max-tokens",
				Usage: "output token limit (0 uses the model default)",
			},
			&cli.Float64Flag{
				Name:  "temperature",
				Usage: "sampling temperature between 0 and 1",
			},
			&cli.StringFlag{
				Name:  "project",
				Usage: "Google Cloud project (overrides vertex.project)",
			},
			&cli.StringFlag{
				Name:  "region",
				Usage: "Vertex AI region (overrides vertex.region)",
			},
		},
		Action: streamAction,
	}
}

func streamAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdown, err := setupObservability(ctx, cfg, cmd.Root().Version, os.Stderr)
	if err != nil {
		return err
	}
	defer flushObservability(ctx, shutdown)

	prompt, err := readPrompt(cmd.Args().Slice(), os.Stdin)
	if err != nil {
		return err
	}

	modelID := cmp.Or(cmd.String("model"), cfg.Defaults.Model)
	if modelID == "" {
		return errors.New("no model selected: pass --model or set defaults.model")
	}
	model, ok := vertexclaude.LookupModel(modelID)
	if !ok {
		return fmt.Errorf("unknown model %q, see 'claudine models'", modelID)
	}

	opts, err := streamOptions(cmd, cfg.Defaults.StreamOptions())
	if err != nil {
		return err
	}

	provider, err := app.NewProvider(ctx, cfg.Vertex)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	conv := llm.Context{
		SystemPrompt: cmd.String("system"),
		Messages:     []llm.Message{llm.UserText(prompt)},
	}

	stream := provider.Stream(ctx, model, conv, opts)
	defer stream.Close()

	p := newStreamPrinter(os.Stdout, os.Stderr, term.IsTerminal(int(os.Stdout.Fd())))
	for ev := range stream.All() {
		p.print(ev)
	}

	// the channel is drained; an aborted stream still reports its partial output
	final, err := stream.Result(context.WithoutCancel(ctx))
	if final != nil {
		p.printUsage(final)
	}
	return err
}

// readPrompt joins the positional arguments, falling back to piped stdin.
func readPrompt(args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if term.IsTerminal(int(stdin.Fd())) {
		return "", errors.New("prompt is required")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("prompt is required")
	}
	return prompt, nil
}

// streamOptions applies command-line flags on top of the configured defaults.
func streamOptions(cmd *cli.Command, opts llm.StreamOptions) (llm.StreamOptions, error) {
	if cmd.IsSet("max-tokens") {
		if n := cmd.Int64("max-tokens"); n < 0 {
			return opts, fmt.Errorf("max-tokens must not be negative, got %d", n)
		}
		opts.MaxTokens = cmd.Int64("max-tokens")
	}
	if cmd.IsSet("temperature") {
		t := cmd.Float64("temperature")
		if t < 0 || t > 1 {
			return opts, fmt.Errorf("temperature must be between 0 and 1, got %g", t)
		}
		opts.Temperature = &t
	}
	if cmd.IsSet("reasoning") {
		level, err := llm.ParseThinkingLevel(cmd.String("reasoning"))
		if err != nil {
			return opts, err
		}
		opts.Reasoning = level
	}
	return opts, nil
}

// streamPrinter renders normalized events for a terminal or a pipe.
type streamPrinter struct {
	out, errOut io.Writer
	styled      bool
}

func newStreamPrinter(out, errOut io.Writer, styled bool) *streamPrinter {
	return &streamPrinter{out: out, errOut: errOut, styled: styled}
}

func (p *streamPrinter) print(ev llm.Event) {
	switch ev.Type {
	case llm.EventThinkingStart:
		if p.styled {
			fmt.Fprint(p.out, ansiDim)
		}
	case llm.EventThinkingDelta, llm.EventTextDelta:
		fmt.Fprint(p.out, ev.Delta)
	case llm.EventThinkingEnd:
		if p.styled {
			fmt.Fprint(p.out, ansiReset)
		}
		fmt.Fprintln(p.out)
	case llm.EventTextEnd:
		fmt.Fprintln(p.out)
	case llm.EventToolCallEnd:
		if ev.ToolCall == nil {
			return
		}
		args, _ := json.Marshal(ev.ToolCall.Arguments)
		fmt.Fprintf(p.out, "-> %s(%s)\n", ev.ToolCall.Name, args)
	}
}

func (p *streamPrinter) printUsage(m *llm.AssistantMessage) {
	u := m.Usage
	fmt.Fprintf(p.errOut, "\n[%s] stop=%s input=%d output=%d cache_read=%d cache_write=%d total=%d cost=$%.6f\n",
		m.Model, m.StopReason, u.Input, u.Output, u.CacheRead, u.CacheWrite, u.TotalTokens, u.Cost.Total)
}
