package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// validSSLModes are the PostgreSQL sslmode values accepted by pgx.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider validation
	switch c.Provider {
	case ProviderGemini:
		// API key required for all embedding operations
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty for ollama provider", ErrInvalidProvider)
		}
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGemini, ProviderOllama)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// 2. RAG configuration validation
	// Chunk size must fit the embedding model's input budget; see evidence.Dimension docs.
	if c.ChunkSize < 100 || c.ChunkSize > 8000 {
		return fmt.Errorf("%w: must be between 100 and 8000, got %d", ErrInvalidChunkSize, c.ChunkSize)
	}

	if c.RetrievalTopK <= 0 || c.RetrievalTopK > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidTopK, c.RetrievalTopK)
	}

	if c.ConfidenceThreshold < 0.0 || c.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.2f",
			ErrInvalidConfidenceThreshold, c.ConfidenceThreshold)
	}

	// Retry cap is a hard invariant: 0 disables corrective retries, 5 is
	// already generous for a synchronous path.
	if c.MaxRetries < 0 || c.MaxRetries > 5 {
		return fmt.Errorf("%w: must be between 0 and 5, got %d", ErrInvalidMaxRetries, c.MaxRetries)
	}

	// 3. PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set in config.yaml or POSTGRES_PASSWORD",
			ErrInvalidPostgresPassword)
	}

	// Warn if using default dev password (but don't block - user might be in dev)
	if c.PostgresPassword == "healthbridge_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q (must be one of %v)",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
