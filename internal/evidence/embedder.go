package evidence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Dimension is the fixed embedding vector size. Gemini embedding models emit
// larger native vectors; OutputDimensionality requests truncation to 768
// (Matryoshka Representation Learning), which keeps the pgvector columns
// small enough for HNSW indexing.
const Dimension = 768

// embedConcurrency bounds parallel embedding calls during batch indexing.
const embedConcurrency = 4

// Embedder wraps a Genkit embedder with the fixed-dimension contract the
// stores rely on: every vector it returns has exactly Dimension components,
// and empty input maps to the canonical zero vector without a model call.
//
// Embedder is safe for concurrent use by multiple goroutines.
type Embedder struct {
	embedder ai.Embedder
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewEmbedder creates an Embedder. limiter may be nil to disable rate
// limiting (tests, local Ollama).
func NewEmbedder(embedder ai.Embedder, limiter *rate.Limiter, logger *slog.Logger) (*Embedder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{embedder: embedder, limiter: limiter, logger: logger}, nil
}

// Embed generates a Dimension-sized vector for the given text.
// Empty text returns the zero vector without calling the model, so callers
// never burn quota on blank documents and searches for "" are well-defined.
func (e *Embedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	if text == "" {
		return ZeroVector(), nil
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return pgvector.Vector{}, fmt.Errorf("waiting for embed rate limit: %w", err)
		}
	}

	dim := int32(Dimension)
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	vec := resp.Embeddings[0].Embedding
	if len(vec) != Dimension {
		return pgvector.Vector{}, fmt.Errorf("%w: model returned %d, want %d",
			ErrDimensionMismatch, len(vec), Dimension)
	}
	return pgvector.NewVector(vec), nil
}

// EmbedBatch embeds texts in parallel and returns vectors in input order.
// A single failed text fails the whole batch; indexing is all-or-nothing
// per document so a partial batch never reaches the store.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([]pgvector.Vector, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// ZeroVector returns the canonical Dimension-sized zero vector used for
// empty input. Cosine distance against it is undefined in pgvector
// (returns NaN), so zero-vector rows simply never rank in searches.
func ZeroVector() pgvector.Vector {
	return pgvector.NewVector(make([]float32, Dimension))
}
