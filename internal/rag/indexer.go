package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/healthbridge/healthbridge/internal/evidence"
)

// ReservedFilename is never indexed; corpus directories carry a README for
// operators, not for retrieval.
const ReservedFilename = "README.md"

// ErrReindexInProgress is returned when another process already holds the
// rebuild lock.
var ErrReindexInProgress = errors.New("reindex already in progress")

// IndexerStore is the slice of the evidence store the indexer needs.
// Implemented by *evidence.Store.
type IndexerStore interface {
	Upsert(ctx context.Context, chunks []evidence.Chunk) error
	ReplaceAll(ctx context.Context, chunks []evidence.Chunk) error
	CountBySource(ctx context.Context) (map[string]int, error)
}

// FileReport records the indexing outcome for one corpus file.
type FileReport struct {
	Chunks int
	Meta   DocMeta
}

// IndexReport summarizes an indexing run for operator verification.
type IndexReport struct {
	FilesProcessed int
	TotalChunks    int
	PerFile        map[string]FileReport
	PerSource      map[string]int
}

// Indexer reads guideline documents, derives metadata from filenames,
// chunks, and writes to the evidence store. It is the only component that
// may clear the evidence collection, and only inside ReindexAll.
type Indexer struct {
	store     IndexerStore
	chunkSize int
	lockPath  string
	logger    *slog.Logger
}

// NewIndexer creates an Indexer. lockPath is the rebuild lock file; empty
// uses a well-known path under the system temp directory.
func NewIndexer(store IndexerStore, chunkSize int, lockPath string, logger *slog.Logger) (*Indexer, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultMaxChunkSize
	}
	if lockPath == "" {
		lockPath = filepath.Join(os.TempDir(), "healthbridge-reindex.lock")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:     store,
		chunkSize: chunkSize,
		lockPath:  lockPath,
		logger:    logger,
	}, nil
}

// IndexDirectory indexes every recognized file in dir, upserting chunks per
// file. Files with unparsable names are indexed under default metadata,
// never dropped. Chunk IDs are deterministic, so indexing the same
// directory twice replaces rather than duplicates.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string) (*IndexReport, error) {
	ctx, span := tracer.Start(ctx, "rag.index_directory")
	defer span.End()

	chunks, report, err := idx.collectDirectory(dir)
	if err != nil {
		return nil, err
	}

	for name, fileReport := range report.PerFile {
		idx.logger.Debug("indexed file",
			"file", name,
			"chunks", fileReport.Chunks,
			"source", fileReport.Meta.Source,
			"condition", fileReport.Meta.Condition,
			"topic", fileReport.Meta.Topic)
	}
	if len(chunks) == 0 {
		return report, nil
	}
	if err := idx.store.Upsert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("upserting directory chunks: %w", err)
	}
	return report, nil
}

// ReindexAll rebuilds the evidence collection from scratch: the built-in
// seed guidelines plus the directory corpus replace the old collection in
// one atomic swap, so concurrent readers never observe a half-built index.
// A file lock serializes rebuilds across processes. A missing corpus
// directory is not fatal; the seeds alone are indexed.
func (idx *Indexer) ReindexAll(ctx context.Context, dir string) (*IndexReport, error) {
	lock := flock.New(idx.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring reindex lock: %w", err)
	}
	if !locked {
		return nil, ErrReindexInProgress
	}
	defer func() { _ = lock.Unlock() }()

	ctx, span := tracer.Start(ctx, "rag.reindex_all")
	defer span.End()

	report := newIndexReport()
	chunks := idx.seedChunks(report)

	dirChunks, dirReport, err := idx.collectDirectory(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		idx.logger.Warn("corpus directory missing, indexing seeds only", "dir", dir)
	case err != nil:
		return nil, err
	default:
		chunks = append(chunks, dirChunks...)
		mergeReports(report, dirReport)
	}

	if err := idx.store.ReplaceAll(ctx, chunks); err != nil {
		return nil, fmt.Errorf("replacing evidence collection: %w", err)
	}

	counts, err := idx.store.CountBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifying reindexed counts: %w", err)
	}
	report.PerSource = counts
	idx.logger.Info("reindexed evidence collection",
		"files", report.FilesProcessed,
		"chunks", report.TotalChunks,
		"sources", len(counts))
	return report, nil
}

// seedChunks chunks the built-in guideline set and records it in report.
func (idx *Indexer) seedChunks(report *IndexReport) []evidence.Chunk {
	var chunks []evidence.Chunk
	for _, seed := range SeedGuidelines() {
		meta := DocMeta{Source: seed.Source, Condition: seed.Condition, Topic: seed.Topic}
		docChunks := idx.chunksForDoc(seed.Name, seed.Content, meta, "")
		chunks = append(chunks, docChunks...)

		report.FilesProcessed++
		report.TotalChunks += len(docChunks)
		report.PerFile[seed.Name] = FileReport{Chunks: len(docChunks), Meta: meta}
	}
	return chunks
}

// collectDirectory chunks every recognized file in dir without writing to
// the store.
func (idx *Indexer) collectDirectory(dir string) ([]evidence.Chunk, *IndexReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading corpus directory: %w", err)
	}

	// Sort for a stable indexing order across runs.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isCorpusFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	report := newIndexReport()
	var chunks []evidence.Chunk
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 -- corpus dir is operator-configured
		if err != nil {
			return nil, nil, fmt.Errorf("reading corpus file %q: %w", name, err)
		}

		meta, parsed := ParseDocMeta(name)
		if !parsed {
			idx.logger.Warn("filename does not follow source_condition_topic, using defaults",
				"file", name)
		}
		docChunks := idx.chunksForDoc(DocIDFromFilename(name), string(content), meta, name)
		chunks = append(chunks, docChunks...)

		report.FilesProcessed++
		report.TotalChunks += len(docChunks)
		report.PerFile[name] = FileReport{Chunks: len(docChunks), Meta: meta}
	}
	return chunks, report, nil
}

// chunksForDoc chunks one document and stamps metadata onto every chunk.
func (idx *Indexer) chunksForDoc(docID, content string, meta DocMeta, filename string) []evidence.Chunk {
	chunks := ChunkDocument(docID, content, idx.chunkSize)
	indexedAt := time.Now().UTC().Format(time.RFC3339)
	for i := range chunks {
		chunks[i].Source = meta.Source
		chunks[i].Condition = meta.Condition
		chunks[i].Topic = meta.Topic
		chunks[i].Metadata = map[string]string{"indexed_at": indexedAt}
		if filename != "" {
			chunks[i].Metadata["file"] = filename
		}
	}
	return chunks
}

// isCorpusFile reports whether a filename is an indexable guideline file.
func isCorpusFile(name string) bool {
	if name == ReservedFilename {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".txt":
		return true
	}
	return false
}

func newIndexReport() *IndexReport {
	return &IndexReport{
		PerFile:   make(map[string]FileReport),
		PerSource: make(map[string]int),
	}
}

func mergeReports(dst, src *IndexReport) {
	dst.FilesProcessed += src.FilesProcessed
	dst.TotalChunks += src.TotalChunks
	for name, fileReport := range src.PerFile {
		dst.PerFile[name] = fileReport
	}
}
