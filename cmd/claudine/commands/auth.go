package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/claudine-vertex/internal/app"
)

// authCommand returns the 'auth' subcommand for managing Google Cloud credentials.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Google Cloud credentials",
		Commands: []*cli.Command{
			authImportCommand(),
			authClearCommand(),
			authStatusCommand(),
		},
	}
}

// authImportCommand returns the 'auth import' subcommand.
func authImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a service account key into the configured storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "path to the key JSON (prompts for a pasted key when omitted)",
			},
		},
		Action: authImportAction,
	}
}

// authClearCommand returns the 'auth clear' subcommand.
func authClearCommand() *cli.Command {
	return &cli.Command{
		Name:   "clear",
		Usage:  "Remove stored credentials",
		Action: authClearAction,
	}
}

// authStatusCommand returns the 'auth status' subcommand.
func authStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show where credentials come from and whether they resolve",
		Action: authStatusAction,
	}
}

// authImportAction validates a key and stores it.
func authImportAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := cfg.Vertex.Credentials.NewCredentialStore()
	if errors.Is(err, app.ErrReadOnlyStorage) {
		return fmt.Errorf("cannot import with %s storage (read-only). Configure file or keyring storage", cfg.Vertex.Credentials.Storage)
	}
	if err != nil {
		return fmt.Errorf("failed to create credential store: %w", err)
	}

	var data []byte
	if path := cmd.String("file"); path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read key file: %w", err)
		}
	} else {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("--file is required when stdin is not a terminal")
		}
		input, err := readSecureInput(ctx, "Paste the key JSON on a single line: ")
		if err != nil {
			return err
		}
		data = []byte(input)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("key cannot be empty")
	}

	creds, err := app.ParseCredentials(ctx, data)
	if err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}

	if err := store.Write(ctx, data); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Import Successful ===")
	fmt.Printf("Credentials saved to %s storage\n", cfg.Vertex.Credentials.Storage)
	if creds.ProjectID != "" && cfg.Vertex.Project == "" {
		fmt.Printf("Project %s will be used unless vertex.project is set\n", creds.ProjectID)
	}

	return nil
}

// authClearAction removes stored credentials.
func authClearAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := cfg.Vertex.Credentials.NewCredentialStore()
	if errors.Is(err, app.ErrReadOnlyStorage) {
		return fmt.Errorf("cannot clear %s storage (read-only). Use 'gcloud auth application-default revoke'", cfg.Vertex.Credentials.Storage)
	}
	if err != nil {
		return fmt.Errorf("failed to create credential store: %w", err)
	}

	// Clear via empty write to maintain storage abstraction
	if err := store.Write(ctx, nil); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Credentials Cleared ===")
	fmt.Printf("Credentials removed from %s storage\n", cfg.Vertex.Credentials.Storage)

	return nil
}

// authStatusAction resolves credentials without contacting Vertex AI.
func authStatusAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	c := cfg.Vertex.Credentials
	fmt.Printf("Storage:  %s\n", c.Storage)
	switch c.Storage {
	case app.CredentialStorageFile:
		fmt.Printf("File:     %s\n", c.File)
	case app.CredentialStorageKeyring:
		fmt.Printf("Keyring:  %s/%s\n", c.KeyringService, c.KeyringUser)
	}
	fmt.Printf("Region:   %s\n", cfg.Vertex.Region)

	creds, err := c.Resolve(ctx)
	if err != nil {
		fmt.Println("Status:   unavailable")
		return err
	}

	project := cfg.Vertex.Project
	if project == "" {
		project = creds.ProjectID
	}
	if project == "" {
		project = "(not set)"
	}
	fmt.Printf("Project:  %s\n", project)
	fmt.Println("Status:   ok")

	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
