package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/florianilch/claudine-vertex/internal/app"
	"github.com/florianilch/claudine-vertex/internal/observability"
)

var version = "dev"

func main() {
	// Enable graceful shutdown via OS signals; context cancellation propagates to all commands.
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,    // SIGINT: Ctrl+C (cross-platform)
		syscall.SIGTERM, // SIGTERM: Docker/k8s termination (Unix-only)
	)
	defer stop()

	if err := run(ctx); err != nil {
		slog.ErrorContext(ctx, "Application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := app.LoadConfig(app.LoadOptions{
		ConfigFile: os.Getenv("CLAUDINE_CONFIG"),
		EnvFile:    os.Getenv("CLAUDINE_ENV_FILE"),
		Environ:    os.Environ,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	obsCfg, err := cfg.Log.Observability(version)
	if err != nil {
		return err
	}

	// Set up observability before creating app
	shutdown, err := observability.Instrument(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.ErrorContext(ctx, "failed to flush telemetry", "error", err)
		}
	}()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting")

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
