package tools

import (
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/healthbridge/healthbridge/internal/memory"
)

// DefaultRecallTopK is the memory count returned when the model does not
// ask for a specific number.
const DefaultRecallTopK = 5

// memoryUnavailable is returned when the memory store is not usable.
const memoryUnavailable = "User memory is currently unavailable. " +
	"Proceed without personalization and tell the user their saved preferences could not be loaded."

// RecallMemoryInput is the model-facing input schema for recall_memory.
type RecallMemoryInput struct {
	UserID string `json:"userId" jsonschema_description:"Identifier of the current user"`
	Query  string `json:"query" jsonschema_description:"What to look for in the user's stored facts"`
	TopK   int    `json:"topK,omitempty" jsonschema_description:"Maximum memories to return (1-10)"`
}

// SaveConstraintInput is the model-facing input schema for save_constraint.
type SaveConstraintInput struct {
	UserID string `json:"userId" jsonschema_description:"Identifier of the current user"`
	Text   string `json:"text" jsonschema_description:"The constraint to remember, in the user's own terms"`
}

// RecallMemory returns the user's most relevant stored facts.
func (k *Kit) RecallMemory(ctx *ai.ToolContext, input RecallMemoryInput) (string, error) {
	k.logger.Info("recall_memory called", "topK", input.TopK)

	if k.memories == nil {
		return memoryUnavailable, nil
	}
	if strings.TrimSpace(input.UserID) == "" {
		return "No user identifier provided; cannot recall memories.", nil
	}

	records, err := k.memories.Recall(ctx, input.UserID, input.Query,
		clampTopK(input.TopK, DefaultRecallTopK))
	if err != nil {
		k.logger.Warn("recall_memory failed", "error", err)
		return memoryUnavailable, nil
	}
	if len(records) == 0 {
		return "No stored memories for this user yet.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recalled %d memories:\n", len(records))
	for i, r := range records {
		fmt.Fprintf(&b, "\n%d. [%s, %s] %s\n",
			i+1, r.Type, r.CreatedAt.Format("2006-01-02"), r.Content)
	}
	return b.String(), nil
}

// SaveConstraint stores a constraint fact for the user.
func (k *Kit) SaveConstraint(ctx *ai.ToolContext, input SaveConstraintInput) (string, error) {
	k.logger.Info("save_constraint called")

	if k.memories == nil {
		return memoryUnavailable, nil
	}
	if strings.TrimSpace(input.UserID) == "" {
		return "No user identifier provided; constraint not saved.", nil
	}
	if strings.TrimSpace(input.Text) == "" {
		return "No constraint text provided; nothing saved.", nil
	}

	id, err := k.memories.Save(ctx, input.UserID, input.Text, memory.TypeConstraint,
		map[string]string{"origin": "chat"})
	if err != nil {
		k.logger.Warn("save_constraint failed", "error", err)
		return "Could not save the constraint. Tell the user and continue without it.", nil
	}
	return fmt.Sprintf("Saved constraint %s. It will inform future coaching sessions.", id), nil
}
