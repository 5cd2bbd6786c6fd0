// Package tools exposes the retrieval and memory pipeline to the agent
// layer as Genkit tools. These are the only entry points the orchestration
// layer calls: retrieve_guidelines, recall_memory, and save_constraint. All
// three degrade to explanatory text when the underlying stores are down;
// the model gets a clearly labeled "unavailable" answer, never a raw error,
// because a silent crash is worse than a labeled gap in a health context.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/healthbridge/healthbridge/internal/memory"
	"github.com/healthbridge/healthbridge/internal/rag"
)

// Tool names registered with Genkit.
const (
	RetrieveGuidelinesName = "retrieve_guidelines"
	RecallMemoryName       = "recall_memory"
	SaveConstraintName     = "save_constraint"
)

// MaxTopK caps per-call result counts regardless of what the model asks for.
const MaxTopK = 10

// Retriever is the evidence surface the kit needs. Implemented by
// *rag.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts ...rag.RetrieveOption) ([]rag.Result, error)
}

// MemoryStore is the memory surface the kit needs. Implemented by
// *memory.Store.
type MemoryStore interface {
	Save(ctx context.Context, ownerID, content string, memType memory.Type, metadata map[string]string) (uuid.UUID, error)
	Recall(ctx context.Context, ownerID, query string, topK int) ([]*memory.Record, error)
}

// Kit holds dependencies for the tool handlers. Either dependency may be
// nil, in which case the corresponding tools answer with an unavailable
// notice instead of failing registration.
type Kit struct {
	retriever Retriever
	memories  MemoryStore
	logger    *slog.Logger
}

// NewKit creates a Kit.
func NewKit(retriever Retriever, memories MemoryStore, logger *slog.Logger) *Kit {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kit{retriever: retriever, memories: memories, logger: logger}
}

// Register registers the coaching tools with Genkit.
func Register(g *genkit.Genkit, kit *Kit) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if kit == nil {
		return nil, fmt.Errorf("kit is required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, RetrieveGuidelinesName,
			"Retrieve evidence passages from indexed health guidelines using semantic search. "+
				"Optionally filter by condition (hypertension, diabetes, general_ncd) and "+
				"topic (diet, activity, red_flags, sdoh). "+
				"Returns: ranked passages with source and relevance. Use before giving any "+
				"condition-specific advice so answers stay grounded in guidelines.",
			kit.RetrieveGuidelines),
		genkit.DefineTool(g, RecallMemoryName,
			"Recall stored facts about the current user by semantic similarity: profile "+
				"traits, constraints, habit plans, and reported outcomes. "+
				"Use before proposing plans so advice fits what is already known about the user.",
			kit.RecallMemory),
		genkit.DefineTool(g, SaveConstraintName,
			"Save a constraint the user mentioned (budget, schedule, safety, food access) "+
				"to their memory for future sessions. Returns a confirmation.",
			kit.SaveConstraint),
	}, nil
}

// clampTopK bounds a requested result count to [1, MaxTopK], with a default
// for non-positive requests.
func clampTopK(topK, defaultVal int) int {
	if topK <= 0 {
		return defaultVal
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}
