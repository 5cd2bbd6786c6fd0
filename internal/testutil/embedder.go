package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"google.golang.org/genai"
)

// MockEmbedder implements ai.Embedder with deterministic, content-derived
// vectors. Texts sharing more words produce closer vectors, so similarity
// ordering in tests is stable without a live model.
type MockEmbedder struct {
	Dim       int   // Vector size when the request does not set OutputDimensionality
	IgnoreDim bool  // Emit Dim-sized vectors even when the request asks otherwise
	Err       error // Returned from every Embed call when non-nil

	// CallCount counts Embed calls. Batch embedding runs Embed from
	// several goroutines, so the counter must be atomic.
	CallCount atomic.Int64
}

// NewMockEmbedder creates a MockEmbedder emitting 768-dimension vectors.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dim: 768}
}

func (m *MockEmbedder) Name() string { return "mock-embedder" }

func (m *MockEmbedder) Register(r api.Registry) {}

func (m *MockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.CallCount.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}

	dim := m.Dim
	if cfg, ok := req.Options.(*genai.EmbedContentConfig); ok && cfg.OutputDimensionality != nil && !m.IgnoreDim {
		dim = int(*cfg.OutputDimensionality)
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		resp.Embeddings = append(resp.Embeddings,
			&ai.Embedding{Embedding: DeterministicVector(text, dim)})
	}
	return resp, nil
}

// DeterministicVector maps text to a unit vector of the given dimension.
// Each word contributes weight to a hash-selected component, so overlapping
// vocabularies yield smaller cosine distances.
func DeterministicVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		vec[0] = 1
		return vec
	}

	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(dim)] += 1 //nolint:gosec // dim is a small positive constant
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
