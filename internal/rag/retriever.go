package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthbridge/healthbridge/internal/evidence"
)

// tracer emits pipeline spans. Without observability.Setup the global
// provider is a no-op, so spans cost nothing.
var tracer = otel.Tracer("healthbridge/rag")

// Searcher is the slice of the evidence store the retriever needs.
// Implemented by *evidence.Store; narrowed here so tests can substitute
// a canned search.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...evidence.SearchOption) ([]evidence.Result, error)
}

// Result is a ranked evidence passage with its bounded relevance score.
type Result struct {
	Content   string
	Source    string
	Condition string
	Topic     string
	DocID     string
	Score     float64
}

// RetrieveOption configures a single retrieval call.
type RetrieveOption func(*retrieveConfig)

type retrieveConfig struct {
	topK      int
	condition string
	topic     string
}

// WithTopK overrides the retriever's default result count for one call.
func WithTopK(k int) RetrieveOption {
	return func(c *retrieveConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithCondition restricts retrieval to evidence tagged with the condition.
func WithCondition(condition string) RetrieveOption {
	return func(c *retrieveConfig) { c.condition = condition }
}

// WithTopic restricts retrieval to evidence tagged with the topic.
func WithTopic(topic string) RetrieveOption {
	return func(c *retrieveConfig) { c.topic = topic }
}

// Retriever serves ranked guideline evidence for a query. It is read-only
// and safe for unbounded concurrent use against a built index.
type Retriever struct {
	searcher Searcher
	topK     int
	logger   *slog.Logger
}

// NewRetriever creates a Retriever. topK is the default result count when a
// call does not override it; non-positive values fall back to 4.
func NewRetriever(searcher Searcher, topK int, logger *slog.Logger) (*Retriever, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if topK <= 0 {
		topK = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{searcher: searcher, topK: topK, logger: logger}, nil
}

// Retrieve embeds the query, searches the evidence index with the given
// filters, and returns results ranked by descending relevance. An empty
// index or an unmatched filter yields an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...RetrieveOption) ([]Result, error) {
	cfg := &retrieveConfig{topK: r.topK}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, span := tracer.Start(ctx, "rag.retrieve", trace.WithAttributes(
		attribute.Int("rag.top_k", cfg.topK),
		attribute.String("rag.condition", cfg.condition),
		attribute.String("rag.topic", cfg.topic),
	))
	defer span.End()

	searchOpts := []evidence.SearchOption{evidence.WithTopK(cfg.topK)}
	if cfg.condition != "" {
		searchOpts = append(searchOpts, evidence.WithCondition(cfg.condition))
	}
	if cfg.topic != "" {
		searchOpts = append(searchOpts, evidence.WithTopic(cfg.topic))
	}

	hits, err := r.searcher.Search(ctx, query, searchOpts...)
	if err != nil {
		return nil, fmt.Errorf("searching evidence: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Content:   hit.Chunk.Content,
			Source:    hit.Chunk.Source,
			Condition: hit.Chunk.Condition,
			Topic:     hit.Chunk.Topic,
			DocID:     hit.Chunk.DocID,
			Score:     RelevanceFromDistance(hit.Distance),
		})
	}
	// Stable sort keeps the store's ordering for equal scores, so ties
	// resolve deterministically.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	span.SetAttributes(attribute.Int("rag.results", len(results)))

	r.logger.Debug("retrieved evidence",
		"results", len(results),
		"condition", cfg.condition,
		"topic", cfg.topic)
	return results, nil
}
