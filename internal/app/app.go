// Package app provides application initialization and dependency injection.
//
// App is the container that wires the retrieval pipeline together: Genkit
// and the embedding provider, the PostgreSQL pool, the evidence and memory
// stores, the retriever, indexer, corrective loop, and the agent-facing
// tool kit. Setup builds everything once; Close releases it.
package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthbridge/healthbridge/internal/config"
	"github.com/healthbridge/healthbridge/internal/evidence"
	"github.com/healthbridge/healthbridge/internal/log"
	"github.com/healthbridge/healthbridge/internal/memory"
	"github.com/healthbridge/healthbridge/internal/rag"
	"github.com/healthbridge/healthbridge/internal/tools"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder *evidence.Embedder
	DBPool   *pgxpool.Pool

	// Pipeline components
	Evidence  *evidence.Store
	Memories  *memory.Store
	Retriever *rag.Retriever
	Indexer   *rag.Indexer
	Loop      *rag.CorrectiveLoop

	// Agent surface
	Kit   *tools.Kit
	Tools []ai.Tool

	// Lifecycle
	otelCleanup func()
	dbCleanup   func()
	cancel      context.CancelFunc
}

// Close gracefully shuts down all resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
