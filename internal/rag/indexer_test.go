package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"github.com/healthbridge/healthbridge/internal/evidence"
)

// fakeStore collects chunks written by the indexer.
type fakeStore struct {
	upserted     []evidence.Chunk
	replaced     []evidence.Chunk
	replaceCalls int
}

func (s *fakeStore) Upsert(ctx context.Context, chunks []evidence.Chunk) error {
	s.upserted = append(s.upserted, chunks...)
	return nil
}

func (s *fakeStore) ReplaceAll(ctx context.Context, chunks []evidence.Chunk) error {
	s.replaced = chunks
	s.replaceCalls++
	return nil
}

func (s *fakeStore) CountBySource(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, c := range s.replaced {
		counts[c.Source]++
	}
	return counts, nil
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return dir
}

func newTestIndexer(t *testing.T, store IndexerStore) *Indexer {
	t.Helper()
	idx, err := NewIndexer(store, 1200, filepath.Join(t.TempDir(), "reindex.lock"), nil)
	if err != nil {
		t.Fatalf("NewIndexer: %v", err)
	}
	return idx
}

func TestIndexer_IndexDirectory(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"who_hypertension_diet.md": "## Sodium\nReduce sodium intake daily.\n## Potassium\nEat potassium rich foods.\n",
		"notes.txt":                "Some unstructured notes that still get indexed.",
		"README.md":                "Corpus documentation, never indexed.",
		"image.png":                "binary-ish, wrong extension",
	})

	store := &fakeStore{}
	idx := newTestIndexer(t, store)

	report, err := idx.IndexDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("IndexDirectory: %v", err)
	}

	if report.FilesProcessed != 2 {
		t.Errorf("files processed = %d, want 2", report.FilesProcessed)
	}
	if _, indexed := report.PerFile["README.md"]; indexed {
		t.Error("README.md must be skipped")
	}
	if _, indexed := report.PerFile["image.png"]; indexed {
		t.Error("unrecognized extensions must be skipped")
	}

	who := report.PerFile["who_hypertension_diet.md"]
	if who.Chunks != 2 {
		t.Errorf("who chunks = %d, want 2", who.Chunks)
	}
	if who.Meta != (DocMeta{Source: "who", Condition: "hypertension", Topic: "diet"}) {
		t.Errorf("who meta = %+v", who.Meta)
	}

	// Unparsable names index under defaults, never dropped.
	notes := report.PerFile["notes.txt"]
	if notes.Chunks != 1 {
		t.Errorf("notes chunks = %d, want 1", notes.Chunks)
	}
	if notes.Meta != DefaultDocMeta() {
		t.Errorf("notes meta = %+v, want defaults", notes.Meta)
	}

	for _, c := range store.upserted {
		if c.Source == "" || c.Condition == "" || c.Topic == "" {
			t.Errorf("chunk %q missing metadata", c.ID)
		}
	}
}

func TestIndexer_IndexDirectoryIdempotent(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"who_hypertension_diet.md": "## A\nFirst section body.\n## B\nSecond section body.\n",
	})
	store := &fakeStore{}
	idx := newTestIndexer(t, store)

	first, err := idx.IndexDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("first IndexDirectory: %v", err)
	}
	second, err := idx.IndexDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("second IndexDirectory: %v", err)
	}

	if first.TotalChunks != second.TotalChunks {
		t.Errorf("chunk counts differ across runs: %d vs %d", first.TotalChunks, second.TotalChunks)
	}

	// Same deterministic IDs both runs, so upserts replace rather than
	// accumulate distinct rows.
	ids := make(map[string]int)
	for _, c := range store.upserted {
		ids[c.ID]++
	}
	for id, n := range ids {
		if n != 2 {
			t.Errorf("chunk %q written %d times, want once per run", id, n)
		}
	}
}

func TestIndexer_ReindexAll(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"nhs_hypertension_diet.md": "## Advice\nLimit salt when cooking at home.\n",
	})
	store := &fakeStore{}
	idx := newTestIndexer(t, store)

	report, err := idx.ReindexAll(context.Background(), dir)
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}

	if store.replaceCalls != 1 {
		t.Fatalf("ReplaceAll called %d times, want 1", store.replaceCalls)
	}
	wantFiles := len(SeedGuidelines()) + 1
	if report.FilesProcessed != wantFiles {
		t.Errorf("files processed = %d, want %d (seeds + corpus)", report.FilesProcessed, wantFiles)
	}
	if report.PerSource["nhs"] != 1 {
		t.Errorf("per-source = %v, want nhs:1", report.PerSource)
	}
	if report.PerSource["who"] == 0 {
		t.Errorf("seed sources missing from report: %v", report.PerSource)
	}
}

func TestIndexer_ReindexAllMissingDirectory(t *testing.T) {
	store := &fakeStore{}
	idx := newTestIndexer(t, store)

	report, err := idx.ReindexAll(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if report.FilesProcessed != len(SeedGuidelines()) {
		t.Errorf("files processed = %d, want seeds only (%d)",
			report.FilesProcessed, len(SeedGuidelines()))
	}
}

func TestIndexer_ReindexAllLockContention(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "reindex.lock")
	idx, err := NewIndexer(&fakeStore{}, 1200, lockPath, nil)
	if err != nil {
		t.Fatalf("NewIndexer: %v", err)
	}

	held := flock.New(lockPath)
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquiring lock out of band: locked=%v err=%v", locked, err)
	}
	defer func() { _ = held.Unlock() }()

	_, err = idx.ReindexAll(context.Background(), t.TempDir())
	if !errors.Is(err, ErrReindexInProgress) {
		t.Fatalf("err = %v, want ErrReindexInProgress", err)
	}
}

func TestIndexer_IndexDirectoryMissing(t *testing.T) {
	idx := newTestIndexer(t, &fakeStore{})
	if _, err := idx.IndexDirectory(context.Background(), filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
