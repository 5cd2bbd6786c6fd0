package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrDimensionMismatch is returned when a vector does not have exactly
// Dimension components. The schema declares vector(768), so catching this
// before the write produces a clearer error than the Postgres one.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// searchTimeout bounds vector search queries so a cold HNSW index cannot
// block a conversation turn indefinitely.
const searchTimeout = 10 * time.Second

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// chunkCols is the standard SELECT column list for scanChunks.
const chunkCols = `id, doc_id, ordinal, content, source, condition, topic, metadata, created_at`

// upsertChunkSQL replaces a chunk in place when a document is re-indexed.
// Chunk IDs are deterministic, so the same document always hits the same rows.
const upsertChunkSQL = `INSERT INTO guideline_chunks
	(id, doc_id, ordinal, content, embedding, source, condition, topic, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding,
		source = EXCLUDED.source,
		condition = EXCLUDED.condition,
		topic = EXCLUDED.topic,
		metadata = EXCLUDED.metadata`

// Store persists guideline chunks in PostgreSQL + pgvector.
//
// Store reports raw cosine distances; converting distance to a relevance
// score is the retriever's job. Store is safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder *Embedder
	logger   *slog.Logger
}

// NewStore creates a Store.
func NewStore(pool *pgxpool.Pool, embedder *Embedder, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}, nil
}

// Upsert embeds and writes a batch of chunks in a single transaction.
// Either the whole batch lands or none of it does, so a failed re-index
// never leaves a document half-replaced.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunk batch: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.upsertWithin(ctx, tx, chunks, vectors); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing upsert transaction: %w", err)
	}
	s.logger.Debug("upserted chunks", "count", len(chunks))
	return nil
}

// upsertWithin writes pre-embedded chunks through the given querier,
// validating dimensions before the first row touches the table.
func (s *Store) upsertWithin(ctx context.Context, q querier, chunks []Chunk, vectors []pgvector.Vector) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i, vec := range vectors {
		if len(vec.Slice()) != Dimension {
			return fmt.Errorf("chunk %q: %w: got %d, want %d",
				chunks[i].ID, ErrDimensionMismatch, len(vec.Slice()), Dimension)
		}
	}

	for i, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for chunk %q: %w", c.ID, err)
		}
		if _, err := q.Exec(ctx, upsertChunkSQL,
			c.ID, c.DocID, c.Ordinal, c.Content, vectors[i],
			c.Source, c.Condition, c.Topic, metadataJSON,
		); err != nil {
			return fmt.Errorf("upserting chunk %q: %w", c.ID, err)
		}
	}
	return nil
}

// Search embeds the query and returns the nearest chunks by cosine distance,
// filtered by whatever metadata options the caller set. Results are ordered
// nearest first and carry raw distances.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	queryVec, err := s.embedder.Embed(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	sql, args := buildSearchSQL(queryVec, cfg)
	rows, err := s.pool.Query(queryCtx, sql, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	results, err := scanResults(rows)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("searched chunks",
		"results", len(results),
		"condition", cfg.condition,
		"topic", cfg.topic)
	return results, nil
}

// buildSearchSQL assembles the filtered nearest-neighbor query. Filter values
// are always bound parameters; only whitelisted column names appear in the
// generated WHERE clause.
func buildSearchSQL(queryVec pgvector.Vector, cfg *searchConfig) (string, []any) {
	var sb strings.Builder
	args := []any{queryVec}

	sb.WriteString(`SELECT ` + chunkCols + `, embedding <=> $1 AS distance
	FROM guideline_chunks`)

	var conds []string
	addFilter := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addFilter("condition", cfg.condition)
	addFilter("topic", cfg.topic)
	addFilter("source", cfg.source)

	if len(conds) > 0 {
		sb.WriteString("\n\tWHERE " + strings.Join(conds, " AND "))
	}

	args = append(args, cfg.topK)
	fmt.Fprintf(&sb, "\n\tORDER BY embedding <=> $1\n\tLIMIT $%d", len(args))
	return sb.String(), args
}

// DeleteAll removes every chunk. Used by full re-indexing.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM guideline_chunks`); err != nil {
		return fmt.Errorf("deleting all chunks: %w", err)
	}
	return nil
}

// ReplaceAll atomically swaps the entire chunk corpus: the old rows are
// deleted and the new batch written inside one transaction, so concurrent
// searches see either the old corpus or the new one, never an empty table.
func (s *Store) ReplaceAll(ctx context.Context, chunks []Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding replacement corpus: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM guideline_chunks`); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	if err := s.upsertWithin(ctx, tx, chunks, vectors); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing replace transaction: %w", err)
	}
	s.logger.Info("replaced chunk corpus", "count", len(chunks))
	return nil
}

// Count returns the total number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM guideline_chunks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return int(count), nil
}

// CountBySource returns chunk counts keyed by guideline source.
func (s *Store) CountBySource(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source, COUNT(*) FROM guideline_chunks GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("counting chunks by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scanning source count: %w", err)
		}
		counts[source] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source counts: %w", err)
	}
	return counts, nil
}

// scanResults reads search rows into Results.
func scanResults(rows pgx.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		var metadataJSON []byte
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(
			&r.Chunk.ID, &r.Chunk.DocID, &r.Chunk.Ordinal, &r.Chunk.Content,
			&r.Chunk.Source, &r.Chunk.Condition, &r.Chunk.Topic,
			&metadataJSON, &createdAt, &r.Distance,
		); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &r.Chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
			}
		}
		r.Chunk.CreatedAt = createdAt.Time
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}
	return results, nil
}
