// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.healthbridge/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: embedding provider and model selection
//   - Storage: PostgreSQL connection (see storage.go)
//   - RAG: guidelines directory, chunking and retrieval parameters
//   - Observability: OTLP trace export (off by default)
//
// Security: Sensitive data (passwords) are never logged; config directory uses 0750 permissions.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the embedding provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidConfidenceThreshold indicates the critic threshold is out of range.
	ErrInvalidConfidenceThreshold = errors.New("invalid confidence threshold")

	// ErrInvalidMaxRetries indicates the corrective retry cap is out of range.
	ErrInvalidMaxRetries = errors.New("invalid max retries")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default, but supports
	// truncation to 768 via OutputDimensionality (Matryoshka Representation
	// Learning). Our pgvector schema uses 768 dimensions; see evidence.Dimension.
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// DefaultChunkSize is the default maximum chunk size in characters.
	// Well under the embedding model's token limit so no chunk is truncated
	// during embedding.
	DefaultChunkSize = 1200

	// DefaultTopK is the default number of evidence passages per retrieval.
	DefaultTopK = 4

	// DefaultConfidenceThreshold is the critic's minimum acceptable confidence.
	DefaultConfidenceThreshold = 0.6

	// DefaultMaxRetries caps corrective re-retrieval attempts.
	DefaultMaxRetries = 2
)

// Embedding provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// TracingConfig configures OTLP trace export.
// Traces go to a local collector agent over OTLP/HTTP.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// Embedding provider configuration
	Provider      string `mapstructure:"provider" json:"provider"` // "gemini" (default) or "ollama"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"`

	// Guideline corpus configuration
	GuidelinesDir string `mapstructure:"guidelines_dir" json:"guidelines_dir"`

	// RAG tuning
	ChunkSize           int     `mapstructure:"chunk_size" json:"chunk_size"`
	RetrievalTopK       int     `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" json:"confidence_threshold"`
	MaxRetries          int     `mapstructure:"max_retries" json:"max_retries"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Observability configuration
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.healthbridge/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".healthbridge")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	// Configure Viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Embedding defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Guideline corpus defaults
	viper.SetDefault("guidelines_dir", "./data/guidelines")

	// RAG defaults
	viper.SetDefault("chunk_size", DefaultChunkSize)
	viper.SetDefault("retrieval_top_k", DefaultTopK)
	viper.SetDefault("confidence_threshold", DefaultConfidenceThreshold)
	viper.SetDefault("max_retries", DefaultMaxRetries)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "healthbridge")
	viper.SetDefault("postgres_password", "healthbridge_dev_password")
	viper.SetDefault("postgres_db_name", "healthbridge")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.agent_host", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "healthbridge")
}

// bindEnvVariables binds sensitive environment variables explicitly.
// Secrets never live in the config file.
func bindEnvVariables() {
	// GEMINI_API_KEY is read directly by the genkit googlegenai plugin.
	// POSTGRES_PASSWORD overrides the config-file password.
	_ = viper.BindEnv("postgres_password", "POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres_host", "POSTGRES_HOST")
	_ = viper.BindEnv("guidelines_dir", "HEALTHBRIDGE_GUIDELINES_DIR")
}

// MarshalJSON masks sensitive fields when the config is serialized
// (e.g. for debug dumps).
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "********"
	}
	return json.Marshal(masked)
}
