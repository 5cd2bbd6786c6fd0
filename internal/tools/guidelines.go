package tools

import (
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/healthbridge/healthbridge/internal/rag"
)

// DefaultGuidelinesTopK is the evidence count returned when the model does
// not ask for a specific number.
const DefaultGuidelinesTopK = 4

// evidenceUnavailable is returned when the evidence index is not usable.
// Plain text so the model can relay the limitation instead of inventing
// guidance.
const evidenceUnavailable = "Guideline retrieval is currently unavailable. " +
	"Do not present advice as guideline-backed; say the evidence base could not be reached."

// RetrieveGuidelinesInput is the model-facing input schema for
// retrieve_guidelines.
type RetrieveGuidelinesInput struct {
	Query     string `json:"query" jsonschema_description:"The search query describing what guidance is needed"`
	Condition string `json:"condition,omitempty" jsonschema_description:"Optional condition filter: hypertension, diabetes, or general_ncd"`
	Topic     string `json:"topic,omitempty" jsonschema_description:"Optional topic filter: diet, activity, red_flags, or sdoh"`
	TopK      int    `json:"topK,omitempty" jsonschema_description:"Maximum passages to return (1-10)"`
}

// RetrieveGuidelines serves ranked guideline evidence to the model.
func (k *Kit) RetrieveGuidelines(ctx *ai.ToolContext, input RetrieveGuidelinesInput) (string, error) {
	k.logger.Info("retrieve_guidelines called",
		"condition", input.Condition,
		"topic", input.Topic)

	if k.retriever == nil {
		return evidenceUnavailable, nil
	}
	if strings.TrimSpace(input.Query) == "" {
		return "No query provided; nothing to retrieve.", nil
	}

	// When the model gives no filters, rewrite the query: retrieval gets a
	// guideline-register phrasing and the detected condition and topic
	// stand in as filters.
	query := input.Query
	if input.Condition == "" && input.Topic == "" {
		rw := rag.RewriteQuery(input.Query, rag.Profile{}, rag.Constraints{})
		query = rw.Query
		input.Condition = rw.Condition
		input.Topic = rw.Topic
	}

	results, err := k.retriever.Retrieve(ctx, query, buildRetrieveOpts(input)...)
	if err != nil {
		k.logger.Warn("retrieve_guidelines failed", "error", err)
		return evidenceUnavailable, nil
	}
	if len(results) == 0 {
		return "No matching guideline evidence found for this query and filters.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d guideline passages:\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. [%s | %s | %s] relevance %.2f\n%s\n",
			i+1, r.Source, r.Condition, r.Topic, r.Score, r.Content)
	}
	return b.String(), nil
}

// buildRetrieveOpts maps tool input onto retrieval options.
func buildRetrieveOpts(input RetrieveGuidelinesInput) []rag.RetrieveOption {
	opts := []rag.RetrieveOption{
		rag.WithTopK(clampTopK(input.TopK, DefaultGuidelinesTopK)),
	}
	if input.Condition != "" {
		opts = append(opts, rag.WithCondition(input.Condition))
	}
	if input.Topic != "" {
		opts = append(opts, rag.WithTopic(input.Topic))
	}
	return opts
}
