package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/healthbridge/healthbridge/internal/memory"
	"github.com/healthbridge/healthbridge/internal/rag"
	"github.com/healthbridge/healthbridge/internal/testutil"
)

type stubRetriever struct {
	results []rag.Result
	err     error
	queries []string
	opts    [][]rag.RetrieveOption
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, opts ...rag.RetrieveOption) ([]rag.Result, error) {
	s.queries = append(s.queries, query)
	s.opts = append(s.opts, opts)
	return s.results, s.err
}

type stubMemories struct {
	records []*memory.Record
	saved   []string
	err     error
}

func (s *stubMemories) Save(ctx context.Context, ownerID, content string, memType memory.Type, metadata map[string]string) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	s.saved = append(s.saved, content)
	return uuid.New(), nil
}

func (s *stubMemories) Recall(ctx context.Context, ownerID, query string, topK int) ([]*memory.Record, error) {
	return s.records, s.err
}

func toolCtx() *ai.ToolContext {
	return &ai.ToolContext{Context: context.Background()}
}

func TestRetrieveGuidelines_FormatsResults(t *testing.T) {
	kit := NewKit(&stubRetriever{results: []rag.Result{
		{Content: "Reduce sodium intake.", Source: "who", Condition: "hypertension", Topic: "diet", Score: 0.83},
	}}, nil, testutil.DiscardLogger())

	out, err := kit.RetrieveGuidelines(toolCtx(), RetrieveGuidelinesInput{Query: "sodium"})
	if err != nil {
		t.Fatalf("RetrieveGuidelines: %v", err)
	}
	for _, want := range []string{"1 guideline passage", "who | hypertension | diet", "0.83", "Reduce sodium intake."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRetrieveGuidelines_RewritesWhenFiltersOmitted(t *testing.T) {
	retriever := &stubRetriever{results: []rag.Result{
		{Content: "Reduce sodium intake.", Source: "who", Condition: "hypertension", Topic: "diet", Score: 0.8},
	}}
	kit := NewKit(retriever, nil, testutil.DiscardLogger())

	asked := "what should I eat with high blood pressure"
	if _, err := kit.RetrieveGuidelines(toolCtx(), RetrieveGuidelinesInput{Query: asked}); err != nil {
		t.Fatalf("RetrieveGuidelines: %v", err)
	}

	if len(retriever.queries) != 1 {
		t.Fatalf("retrieval calls = %d, want 1", len(retriever.queries))
	}
	got := retriever.queries[0]
	if got == asked {
		t.Fatal("query passed through unrewritten despite omitted filters")
	}
	for _, want := range []string{asked, "dietary recommendations", "for hypertension prevention"} {
		if !strings.Contains(got, want) {
			t.Errorf("rewritten query missing %q: %q", want, got)
		}
	}
}

func TestRetrieveGuidelines_KeepsQueryWhenFiltersGiven(t *testing.T) {
	retriever := &stubRetriever{}
	kit := NewKit(retriever, nil, testutil.DiscardLogger())

	input := RetrieveGuidelinesInput{Query: "sodium targets", Condition: "hypertension"}
	if _, err := kit.RetrieveGuidelines(toolCtx(), input); err != nil {
		t.Fatalf("RetrieveGuidelines: %v", err)
	}

	if len(retriever.queries) != 1 || retriever.queries[0] != "sodium targets" {
		t.Errorf("queries = %v, want the query as given", retriever.queries)
	}
}

func TestRetrieveGuidelines_Degrades(t *testing.T) {
	t.Run("nil retriever", func(t *testing.T) {
		kit := NewKit(nil, nil, testutil.DiscardLogger())
		out, err := kit.RetrieveGuidelines(toolCtx(), RetrieveGuidelinesInput{Query: "sodium"})
		if err != nil {
			t.Fatalf("expected degraded string, got error: %v", err)
		}
		if !strings.Contains(out, "unavailable") {
			t.Errorf("output = %q, want unavailable notice", out)
		}
	})

	t.Run("failing retriever", func(t *testing.T) {
		kit := NewKit(&stubRetriever{err: errors.New("db down")}, nil, testutil.DiscardLogger())
		out, err := kit.RetrieveGuidelines(toolCtx(), RetrieveGuidelinesInput{Query: "sodium"})
		if err != nil {
			t.Fatalf("expected degraded string, got error: %v", err)
		}
		if !strings.Contains(out, "unavailable") {
			t.Errorf("output = %q, want unavailable notice", out)
		}
		if strings.Contains(out, "db down") {
			t.Errorf("internal error leaked to model output: %q", out)
		}
	})

	t.Run("no results", func(t *testing.T) {
		kit := NewKit(&stubRetriever{}, nil, testutil.DiscardLogger())
		out, err := kit.RetrieveGuidelines(toolCtx(), RetrieveGuidelinesInput{Query: "sodium"})
		if err != nil {
			t.Fatalf("RetrieveGuidelines: %v", err)
		}
		if !strings.Contains(out, "No matching guideline evidence") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestRecallMemory(t *testing.T) {
	records := []*memory.Record{
		{Content: "works night shifts", Type: memory.TypeProfile},
	}
	kit := NewKit(nil, &stubMemories{records: records}, testutil.DiscardLogger())

	out, err := kit.RecallMemory(toolCtx(), RecallMemoryInput{UserID: "u1", Query: "schedule"})
	if err != nil {
		t.Fatalf("RecallMemory: %v", err)
	}
	if !strings.Contains(out, "works night shifts") || !strings.Contains(out, "profile") {
		t.Errorf("output = %q", out)
	}
}

func TestRecallMemory_EmptyAndDegraded(t *testing.T) {
	kit := NewKit(nil, &stubMemories{}, testutil.DiscardLogger())
	out, err := kit.RecallMemory(toolCtx(), RecallMemoryInput{UserID: "u1", Query: "anything"})
	if err != nil {
		t.Fatalf("RecallMemory: %v", err)
	}
	if !strings.Contains(out, "No stored memories") {
		t.Errorf("output = %q", out)
	}

	kit = NewKit(nil, nil, testutil.DiscardLogger())
	out, err = kit.RecallMemory(toolCtx(), RecallMemoryInput{UserID: "u1", Query: "anything"})
	if err != nil || !strings.Contains(out, "unavailable") {
		t.Errorf("out = %q, err = %v, want unavailable notice", out, err)
	}

	kit = NewKit(nil, &stubMemories{}, testutil.DiscardLogger())
	out, err = kit.RecallMemory(toolCtx(), RecallMemoryInput{Query: "no user"})
	if err != nil || !strings.Contains(out, "No user identifier") {
		t.Errorf("out = %q, err = %v", out, err)
	}
}

func TestSaveConstraint(t *testing.T) {
	memories := &stubMemories{}
	kit := NewKit(nil, memories, testutil.DiscardLogger())

	out, err := kit.SaveConstraint(toolCtx(), SaveConstraintInput{UserID: "u1", Text: "limited food budget"})
	if err != nil {
		t.Fatalf("SaveConstraint: %v", err)
	}
	if !strings.Contains(out, "Saved constraint") {
		t.Errorf("output = %q", out)
	}
	if len(memories.saved) != 1 || memories.saved[0] != "limited food budget" {
		t.Errorf("saved = %v", memories.saved)
	}
}

func TestSaveConstraint_Degrades(t *testing.T) {
	kit := NewKit(nil, &stubMemories{err: errors.New("insert failed")}, testutil.DiscardLogger())
	out, err := kit.SaveConstraint(toolCtx(), SaveConstraintInput{UserID: "u1", Text: "constraint"})
	if err != nil {
		t.Fatalf("expected degraded string, got error: %v", err)
	}
	if !strings.Contains(out, "Could not save") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "insert failed") {
		t.Errorf("internal error text leaked to model output: %q", out)
	}

	out, err = kit.SaveConstraint(toolCtx(), SaveConstraintInput{UserID: "u1"})
	if err != nil || !strings.Contains(out, "nothing saved") {
		t.Errorf("out = %q, err = %v", out, err)
	}
}

func TestClampTopK(t *testing.T) {
	tests := []struct {
		topK, def, want int
	}{
		{0, 4, 4},
		{-3, 4, 4},
		{7, 4, 7},
		{25, 4, MaxTopK},
	}
	for _, tt := range tests {
		if got := clampTopK(tt.topK, tt.def); got != tt.want {
			t.Errorf("clampTopK(%d, %d) = %d, want %d", tt.topK, tt.def, got, tt.want)
		}
	}
}
