// Package cmd implements the healthbridge command line interface.
//
// The CLI is an operator surface over the RAG pipeline: indexing the
// guideline corpus, querying it, and inspecting per-user memories. The
// conversational agent itself runs elsewhere and only consumes the
// packages this CLI exercises.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/healthbridge/healthbridge/internal/app"
	"github.com/healthbridge/healthbridge/internal/config"
	"github.com/healthbridge/healthbridge/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "healthbridge",
	Short: "HealthBridge guideline retrieval pipeline",
	Long: `HealthBridge indexes clinical guideline documents into PostgreSQL
(pgvector) and serves evidence-grounded retrieval for the health coach.

Common workflows:
  healthbridge reindex            rebuild the whole evidence collection
  healthbridge retrieve "query"   search indexed guidelines
  healthbridge memory recall ...  inspect a user's stored memories`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the CLI logger. DEBUG in the environment lowers the
// level; logs go to stderr so stdout stays clean for command output.
func newLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}

// newApp loads configuration and assembles the full application.
// Callers must Close the returned app.
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.Setup(ctx, cfg, newLogger())
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}
