package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/claudine-vertex/internal/app"
	"github.com/florianilch/claudine-vertex/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	cmd := &cli.Command{
		Name:    "claudine",
		Usage:   "Claude on Vertex AI as a normalized event stream",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars("CLAUDINE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "dotenv file merged under the process environment",
				Value:   ".env",
				Sources: cli.EnvVars("CLAUDINE_ENV_FILE"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(version),
			streamCommand(),
			modelsCommand(),
			authCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// loadConfig loads the layered configuration, letting explicitly set flags win.
func loadConfig(cmd *cli.Command, environ func() []string) (*app.Config, error) {
	overrides := map[string]any{}
	for flag, key := range map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
		"addr":       "server.addr",
		"project":    "vertex.project",
		"region":     "vertex.region",
	} {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}

	return app.LoadConfig(app.LoadOptions{
		ConfigFile: cmd.String("config"),
		EnvFile:    cmd.String("env-file"),
		Environ:    environ,
		Overrides:  overrides,
	})
}

// setupObservability installs logging for a command. Commands that print results on
// stdout pass os.Stderr so logs never mix with their output.
func setupObservability(ctx context.Context, cfg *app.Config, version string, out io.Writer) (observability.ShutdownFunc, error) {
	obsCfg, err := cfg.Log.Observability(version)
	if err != nil {
		return nil, err
	}
	obsCfg.Output = out

	shutdown, err := observability.Instrument(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}
	return shutdown, nil
}

func flushObservability(ctx context.Context, shutdown observability.ShutdownFunc) {
	if err := shutdown(context.WithoutCancel(ctx)); err != nil {
		slog.ErrorContext(ctx, "failed to flush telemetry", "error", err)
	}
}

func serveCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serves the streaming API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (overrides server.addr)",
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
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return serveAction(ctx, cmd, version)
		},
	}
}

func serveAction(ctx context.Context, cmd *cli.Command, version string) error {
	cfg, err := loadConfig(cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	shutdown, err := setupObservability(ctx, cfg, version, os.Stdout)
	if err != nil {
		return err
	}
	defer flushObservability(ctx, shutdown)

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting", "version", version)

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
