package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/florianilch/claudine-vertex/internal/vertexclaude"
)

func staticCredentials(project string) *google.Credentials {
	return &google.Credentials{
		ProjectID:   project,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
	}
}

func TestNewProviderPreconditions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     VertexConfig
		opts    []Option
		wantErr error
	}{
		{
			name:    "missing region is reported first",
			cfg:     VertexConfig{Project: "p", Credentials: CredentialsConfig{Storage: CredentialStorageFile, File: "/nonexistent/key.json"}},
			wantErr: vertexclaude.ErrMissingRegion,
		},
		{
			name:    "missing credentials",
			cfg:     VertexConfig{Project: "p", Region: "us-east5", Credentials: CredentialsConfig{Storage: CredentialStorageFile, File: "/nonexistent/key.json"}},
			wantErr: vertexclaude.ErrMissingCredentials,
		},
		{
			name:    "missing project",
			cfg:     VertexConfig{Region: "us-east5"},
			opts:    []Option{WithCredentials(staticCredentials(""))},
			wantErr: vertexclaude.ErrMissingProject,
		},
		{
			name: "project from credentials",
			cfg:  VertexConfig{Region: "us-east5"},
			opts: []Option{WithCredentials(staticCredentials("creds-project"))},
		},
		{
			name: "complete",
			cfg:  VertexConfig{Project: "p", Region: "us-east5"},
			opts: []Option{WithCredentials(staticCredentials(""))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(ctx, tt.cfg, tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewProvider() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || provider == nil {
				t.Fatalf("NewProvider() = %v, %v", provider, err)
			}
		})
	}
}

func TestAppLifecycle(t *testing.T) {
	cfg, err := LoadConfig(LoadOptions{Environ: environ(
		"GOOGLE_CLOUD_PROJECT=test-project",
		"CLAUDINE_SERVER__ADDR=127.0.0.1:0",
	)})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	application, err := New(context.Background(), cfg, WithCredentials(staticCredentials("")))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if application.health.IsReady() {
		t.Fatal("app must not be ready before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for !application.health.IsReady() {
		select {
		case <-deadline:
			t.Fatal("app did not become ready")
		case err := <-done:
			t.Fatalf("Start() returned early: %v", err)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil after cancellation", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	if application.health.IsReady() {
		t.Error("app still ready after shutdown")
	}
}

func TestAppRejectsUnknownDefaultModel(t *testing.T) {
	cfg, err := LoadConfig(LoadOptions{Environ: environ(
		"GOOGLE_CLOUD_PROJECT=test-project",
		"CLAUDINE_DEFAULTS__MODEL=claude-unknown@1",
	)})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if _, err := New(context.Background(), cfg, WithCredentials(staticCredentials(""))); err == nil {
		t.Error("New() error = nil, want error for unknown default model")
	}
}

func TestHealth(t *testing.T) {
	h := NewHealth()
	if h.IsReady() {
		t.Error("new Health must start not ready")
	}
	h.SetReady(true)
	if !h.IsReady() {
		t.Error("SetReady(true) not observed")
	}
}
