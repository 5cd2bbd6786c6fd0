package evidence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/healthbridge/healthbridge/internal/evidence"
	"github.com/healthbridge/healthbridge/internal/testutil"
)

func TestEmbedder_EmptyTextSkipsModel(t *testing.T) {
	mock := testutil.NewMockEmbedder()
	e, err := evidence.NewEmbedder(mock, nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}

	vec, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if n := mock.CallCount.Load(); n != 0 {
		t.Errorf("model called %d times for empty input, want 0", n)
	}
	for _, v := range vec.Slice() {
		if v != 0 {
			t.Fatal("expected zero vector for empty input")
		}
	}
}

func TestEmbedder_FixedDimension(t *testing.T) {
	mock := testutil.NewMockEmbedder()
	e, err := evidence.NewEmbedder(mock, nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}

	vec, err := e.Embed(context.Background(), "reduce sodium intake")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got := len(vec.Slice()); got != evidence.Dimension {
		t.Errorf("dimension = %d, want %d", got, evidence.Dimension)
	}
}

func TestEmbedder_WrongModelDimension(t *testing.T) {
	// A model that ignores the dimensionality request must be rejected
	// before its vectors can reach the store.
	mock := testutil.NewMockEmbedder()
	mock.Dim = 1536
	mock.IgnoreDim = true
	e, err := evidence.NewEmbedder(mock, nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}

	_, err = e.Embed(context.Background(), "some guideline text")
	if !errors.Is(err, evidence.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestEmbedder_BatchPreservesOrder(t *testing.T) {
	mock := testutil.NewMockEmbedder()
	e, err := evidence.NewEmbedder(mock, nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}

	texts := []string{
		"limit added sugar",
		"walk thirty minutes daily",
		"monitor blood pressure weekly",
		"reduce sodium intake",
		"check feet for sores",
	}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	// Concurrent embeds must each land on the counter exactly once.
	if n := mock.CallCount.Load(); n != int64(len(texts)) {
		t.Errorf("model called %d times, want %d", n, len(texts))
	}

	for i, text := range texts {
		want := testutil.DeterministicVector(text, evidence.Dimension)
		got := vectors[i].Slice()
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("vector %d does not match its input text", i)
			}
		}
	}
}

func TestEmbedder_BatchPropagatesError(t *testing.T) {
	mock := testutil.NewMockEmbedder()
	mock.Err = errors.New("quota exceeded")
	e, err := evidence.NewEmbedder(mock, nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}

	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected batch to fail when the model errors")
	}
}

func TestEmbedder_EmptyBatch(t *testing.T) {
	e, err := evidence.NewEmbedder(testutil.NewMockEmbedder(), nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	vectors, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil result for empty batch, got %d vectors", len(vectors))
	}
}

func TestNewEmbedder_RequiresModel(t *testing.T) {
	if _, err := evidence.NewEmbedder(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil embedder")
	}
}
