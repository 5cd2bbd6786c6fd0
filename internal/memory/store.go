package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthbridge/healthbridge/internal/evidence"
)

// tracer emits memory spans. Span attributes carry types and counts only,
// never memory content.
var tracer = otel.Tracer("healthbridge/memory")

// recordCols is the standard SELECT column list for scanRecords.
const recordCols = `id, owner_id, content, memory_type, metadata, created_at`

// Store persists per-user memory in PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder *evidence.Embedder
	logger   *slog.Logger
}

// NewStore creates a memory Store.
func NewStore(pool *pgxpool.Pool, embedder *evidence.Embedder, logger *slog.Logger) (*Store, error) {
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

// Save stores a new memory record for ownerID and returns its id. The
// creation timestamp is stamped here, at write time, never deferred to the
// database default or left for a later fill-in. Records are immutable:
// corrections are additional Save calls, not updates.
func (s *Store) Save(ctx context.Context, ownerID, content string, memType Type, metadata map[string]string) (uuid.UUID, error) {
	if err := validateSaveInput(ownerID, content, memType); err != nil {
		return uuid.Nil, err
	}

	ctx, span := tracer.Start(ctx, "memory.save", trace.WithAttributes(
		attribute.String("memory.type", string(memType)),
	))
	defer span.End()

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(embedCtx, content)
	if err != nil {
		return uuid.Nil, fmt.Errorf("embedding memory content: %w", err)
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling memory metadata: %w", err)
	}

	id := uuid.New()
	createdAt := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO memories (id, owner_id, content, embedding, memory_type, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, ownerID, content, vec, string(memType), metadataJSON, createdAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting memory: %w", err)
	}

	s.logger.Debug("saved memory", "type", memType, "content_length", len(content))
	return id, nil
}

// validateSaveInput checks required fields for Save().
func validateSaveInput(ownerID, content string, memType Type) error {
	if ownerID == "" {
		return fmt.Errorf("owner ID is required")
	}
	if !memType.Valid() {
		return fmt.Errorf("invalid memory type: %q", memType)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required")
	}
	if len(content) > MaxContentLength {
		return fmt.Errorf("content length %d exceeds maximum %d", len(content), MaxContentLength)
	}
	if ContainsSecrets(content) {
		return fmt.Errorf("content contains potential secrets")
	}
	return nil
}

// Recall returns the ownerID's memories nearest to the query, most similar
// first. The owner filter is applied in SQL on every call; there is no
// unpartitioned read path. A user with no memories gets an empty slice,
// not an error.
func (s *Store) Recall(ctx context.Context, ownerID, query string, topK int) ([]*Record, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}
	if query == "" {
		return []*Record{}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	ctx, span := tracer.Start(ctx, "memory.recall", trace.WithAttributes(
		attribute.Int("memory.top_k", topK),
	))
	defer span.End()

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding recall query: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+recordCols+`
		 FROM memories
		 WHERE owner_id = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		ownerID, vec, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("recalling memories: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// All returns every memory for ownerID, optionally restricted to one type
// (pass "" for all types), newest first.
func (s *Store) All(ctx context.Context, ownerID string, memType Type) ([]*Record, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}
	if memType != "" && !memType.Valid() {
		return nil, fmt.Errorf("invalid memory type: %q", memType)
	}

	sql := `SELECT ` + recordCols + ` FROM memories WHERE owner_id = $1`
	args := []any{ownerID}
	if memType != "" {
		sql += ` AND memory_type = $2`
		args = append(args, string(memType))
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the number of memories stored for ownerID.
func (s *Store) Count(ctx context.Context, ownerID string) (int, error) {
	if ownerID == "" {
		return 0, fmt.Errorf("owner ID is required")
	}
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM memories WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting memories: %w", err)
	}
	return int(count), nil
}

// scanRecords reads memory rows into Records.
func scanRecords(rows pgx.Rows) ([]*Record, error) {
	records := []*Record{}
	for rows.Next() {
		var r Record
		var memType string
		var metadataJSON []byte
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Content, &memType, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning memory row: %w", err)
		}
		r.Type = Type(memType)
		r.CreatedAt = createdAt.Time
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling memory metadata: %w", err)
			}
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memory rows: %w", err)
	}
	return records, nil
}
