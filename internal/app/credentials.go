package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2/google"

	"github.com/florianilch/claudine-vertex/internal/vertexclaude"
)

// CredentialStorageType selects where Google credentials come from.
type CredentialStorageType string

const (
	// CredentialStorageADC uses Application Default Credentials (gcloud login,
	// GOOGLE_APPLICATION_CREDENTIALS, metadata server). Read-only.
	CredentialStorageADC CredentialStorageType = "adc"
	// CredentialStorageFile reads a credentials JSON file.
	CredentialStorageFile CredentialStorageType = "file"
	// CredentialStorageKeyring keeps the credentials JSON in the OS keyring.
	CredentialStorageKeyring CredentialStorageType = "keyring"
)

// cloudPlatformScope is the OAuth scope required by Vertex AI.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ErrReadOnlyStorage is returned when writing to a storage type that cannot be written.
var ErrReadOnlyStorage = errors.New("credential storage is read-only")

// CredentialsConfig configures credential resolution.
type CredentialsConfig struct {
	Storage        CredentialStorageType `koanf:"storage" validate:"oneof=adc file keyring"`
	File           string                `koanf:"file" validate:"required_if=Storage file"`
	KeyringService string                `koanf:"keyring_service" validate:"required_if=Storage keyring"`
	KeyringUser    string                `koanf:"keyring_user" validate:"required_if=Storage keyring"`
}

// CredentialStore persists a Google credentials JSON document.
// Writing empty data clears the stored credentials.
type CredentialStore interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// NewCredentialStore returns the writable store for the configured storage type.
func (c CredentialsConfig) NewCredentialStore() (CredentialStore, error) {
	switch c.Storage {
	case CredentialStorageFile:
		return &FileCredentialStore{Path: c.File}, nil
	case CredentialStorageKeyring:
		return &KeyringCredentialStore{Service: c.KeyringService, User: c.KeyringUser}, nil
	case CredentialStorageADC:
		return nil, fmt.Errorf("%w: application default credentials are managed by gcloud", ErrReadOnlyStorage)
	default:
		return nil, fmt.Errorf("unknown credential storage %q", c.Storage)
	}
}

// Resolve loads Google credentials scoped for Vertex AI.
// Failures wrap vertexclaude.ErrMissingCredentials.
func (c CredentialsConfig) Resolve(ctx context.Context) (*google.Credentials, error) {
	if c.Storage == CredentialStorageADC {
		creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", vertexclaude.ErrMissingCredentials, err)
		}
		return creds, nil
	}

	store, err := c.NewCredentialStore()
	if err != nil {
		return nil, err
	}

	data, err := store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vertexclaude.ErrMissingCredentials, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no credentials stored in %s storage", vertexclaude.ErrMissingCredentials, c.Storage)
	}

	return ParseCredentials(ctx, data)
}

// ParseCredentials parses a service account or authorized user key scoped for Vertex AI.
// Failures wrap vertexclaude.ErrMissingCredentials.
func ParseCredentials(ctx context.Context, data []byte) (*google.Credentials, error) {
	// Only key types that cannot point at external token sources are accepted
	switch t := gjson.GetBytes(data, "type").String(); t {
	case "service_account", "authorized_user":
	default:
		return nil, fmt.Errorf("%w: unsupported credential type %q", vertexclaude.ErrMissingCredentials, t)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vertexclaude.ErrMissingCredentials, err)
	}
	return creds, nil
}

// FileCredentialStore keeps credentials in a file readable only by the owner.
type FileCredentialStore struct {
	Path string
}

// Compile-time check that FileCredentialStore implements CredentialStore interface
var _ CredentialStore = (*FileCredentialStore)(nil)

// Read returns the file content. A missing file reads as empty.
func (s *FileCredentialStore) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return data, nil
}

// Write replaces the file atomically; empty data removes it.
func (s *FileCredentialStore) Write(_ context.Context, data []byte) error {
	if len(data) == 0 {
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove credentials file: %w", err)
		}
		return nil
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

// KeyringCredentialStore keeps credentials in the OS keyring.
type KeyringCredentialStore struct {
	Service string
	User    string
}

// Compile-time check that KeyringCredentialStore implements CredentialStore interface
var _ CredentialStore = (*KeyringCredentialStore)(nil)

// Read returns the stored secret. A missing entry reads as empty.
func (s *KeyringCredentialStore) Read(_ context.Context) ([]byte, error) {
	secret, err := keyring.Get(s.Service, s.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	return []byte(secret), nil
}

// Write stores data; empty data deletes the entry.
func (s *KeyringCredentialStore) Write(_ context.Context, data []byte) error {
	if len(data) == 0 {
		if err := keyring.Delete(s.Service, s.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete keyring entry: %w", err)
		}
		return nil
	}
	if err := keyring.Set(s.Service, s.User, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}
