package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/florianilch/claudine-vertex/internal/llm"
	"github.com/florianilch/claudine-vertex/internal/observability"
)

// Config is the complete application configuration.
type Config struct {
	Vertex   VertexConfig   `koanf:"vertex"`
	Server   ServerConfig   `koanf:"server"`
	Defaults DefaultsConfig `koanf:"defaults"`
	Log      LogConfig      `koanf:"log"`
}

// VertexConfig locates the Vertex AI endpoint.
// Project and region are checked when the provider is created, so commands that
// never call Vertex AI (e.g. listing models) work without them.
type VertexConfig struct {
	Project     string            `koanf:"project"`
	Region      string            `koanf:"region"`
	BaseURL     string            `koanf:"base_url" validate:"omitempty,url"`
	Credentials CredentialsConfig `koanf:"credentials"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Addr            string `koanf:"addr" validate:"required,hostname_port"`
	MaxRequestBytes int64  `koanf:"max_request_bytes" validate:"gt=0"`
}

// DefaultsConfig holds stream options applied when a request leaves them unset.
type DefaultsConfig struct {
	Model           string           `koanf:"model"`
	MaxTokens       int64            `koanf:"max_tokens" validate:"gte=0"`
	Reasoning       string           `koanf:"reasoning" validate:"omitempty,oneof=off none minimal low medium high xhigh"`
	ThinkingBudgets map[string]int64 `koanf:"thinking_budgets" validate:"dive,keys,oneof=minimal low medium high xhigh,endkeys,gt=0"`
}

// StreamOptions converts the defaults into stream options.
func (d DefaultsConfig) StreamOptions() llm.StreamOptions {
	// validated by LoadConfig
	level, _ := llm.ParseThinkingLevel(d.Reasoning)

	var budgets map[llm.ThinkingLevel]int64
	if len(d.ThinkingBudgets) > 0 {
		budgets = make(map[llm.ThinkingLevel]int64, len(d.ThinkingBudgets))
		for k, v := range d.ThinkingBudgets {
			budgets[llm.ThinkingLevel(k)] = v
		}
	}

	return llm.StreamOptions{
		MaxTokens:       d.MaxTokens,
		Reasoning:       level,
		ThinkingBudgets: budgets,
	}
}

// LogConfig configures logging and telemetry export.
type LogConfig struct {
	Level         string `koanf:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format        string `koanf:"format" validate:"oneof=text json"`
	Exporter      string `koanf:"exporter" validate:"oneof=none stdout otlp-grpc otlp-http"`
	TraceExporter string `koanf:"trace_exporter" validate:"oneof=none stdout otlp-grpc"`
}

// Observability converts the log settings for observability.Instrument.
func (l LogConfig) Observability(version string) (observability.Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return observability.Config{}, fmt.Errorf("invalid log level: %w", err)
	}
	return observability.Config{
		Level:          level,
		Format:         l.Format,
		LogExporter:    observability.Exporter(l.Exporter),
		TraceExporter:  observability.Exporter(l.TraceExporter),
		ServiceName:    "claudine",
		ServiceVersion: version,
	}, nil
}

const (
	envPrefix = "CLAUDINE_"
	// envNestingSeparator splits sections in prefixed variables: CLAUDINE_SERVER__ADDR -> server.addr
	envNestingSeparator = "__"

	defaultRegion = "us-east5"
)

// envAliases binds well-known Google Cloud variables to config keys.
// Within a key, earlier names take precedence.
var envAliases = []struct {
	key   string
	names []string
}{
	{"vertex.project", []string{"CLAUDINE_VERTEX_PROJECT", "GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "CLOUDSDK_CORE_PROJECT"}},
	{"vertex.region", []string{"CLAUDINE_VERTEX_REGION", "GOOGLE_CLOUD_LOCATION", "CLOUD_ML_REGION"}},
	{"vertex.credentials.file", []string{"GOOGLE_APPLICATION_CREDENTIALS"}},
}

func defaults() map[string]any {
	return map[string]any{
		"vertex.region":                      defaultRegion,
		"vertex.credentials.storage":         string(CredentialStorageADC),
		"vertex.credentials.keyring_service": "claudine-vertex",
		"vertex.credentials.keyring_user":    "service-account",
		"server.addr":                        "127.0.0.1:4000",
		"server.max_request_bytes":           32 << 20,
		"log.level":                          "info",
		"log.format":                         "text",
		"log.exporter":                       "none",
		"log.trace_exporter":                 "none",
	}
}

// LoadOptions selects the configuration sources.
type LoadOptions struct {
	// ConfigFile is an optional TOML file. An empty path skips the file layer.
	ConfigFile string
	// EnvFile is an optional dotenv file. A missing file is ignored.
	EnvFile string
	// Environ provides the process environment; os.Environ in production.
	Environ func() []string
	// Overrides are applied last, typically from command-line flags. Keys use dot notation.
	Overrides map[string]any
}

// LoadConfig layers defaults, the TOML file, the dotenv file, the environment and
// overrides, in increasing precedence, and validates the result.
func LoadConfig(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if opts.ConfigFile != "" {
		if err := k.Load(file.Provider(opts.ConfigFile), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", opts.ConfigFile, err)
		}
	}

	environ, err := mergeDotenv(opts.EnvFile, opts.Environ)
	if err != nil {
		return nil, err
	}
	if err := loadEnv(k, environ); err != nil {
		return nil, err
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// mergeDotenv returns an environ function whose entries override the dotenv file.
func mergeDotenv(path string, environ func() []string) (func() []string, error) {
	if environ == nil {
		environ = func() []string { return nil }
	}
	if path == "" {
		return environ, nil
	}

	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return environ, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	return func() []string {
		merged := make([]string, 0, len(vars))
		for k, v := range vars {
			merged = append(merged, k+"="+v)
		}
		// process environment last so it wins
		return append(merged, environ()...)
	}, nil
}

// loadEnv applies alias variables first, then the more specific CLAUDINE_ variables.
func loadEnv(k *koanf.Koanf, environ func() []string) error {
	for _, alias := range envAliases {
		for i := len(alias.names) - 1; i >= 0; i-- {
			name, key := alias.names[i], alias.key
			p := env.Provider(".", env.Opt{
				EnvironFunc: environ,
				TransformFunc: func(envKey, v string) (string, any) {
					if envKey != name || v == "" {
						return "", nil
					}
					return key, v
				},
			})
			if err := k.Load(p, nil); err != nil {
				return fmt.Errorf("failed to load %s: %w", name, err)
			}
		}
	}

	p := env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		EnvironFunc:   environ,
		TransformFunc: transformEnvKey,
	})
	if err := k.Load(p, nil); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}
	return nil
}

// transformEnvKey maps CLAUDINE_SECTION__KEY to section.key. Variables without a
// section separator are aliases handled elsewhere and are skipped.
func transformEnvKey(envKey, v string) (string, any) {
	envKey = strings.TrimPrefix(envKey, envPrefix)
	if !strings.Contains(envKey, envNestingSeparator) {
		return "", nil
	}
	return strings.ToLower(strings.ReplaceAll(envKey, envNestingSeparator, ".")), v
}
