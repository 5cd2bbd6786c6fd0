package evidence

import "time"

// Metadata field values assigned when a guideline filename does not follow
// the source_condition_topic naming convention.
const (
	DefaultSource    = "general"
	DefaultCondition = "general"
	DefaultTopic     = "general"
)

// Chunk is one retrievable unit of guideline text. Chunks are immutable once
// written; re-indexing the same document produces the same chunk IDs, so an
// upsert replaces rather than duplicates.
type Chunk struct {
	ID        string            // Deterministic: docID + ordinal
	DocID     string            // Parent document identifier
	Ordinal   int               // Position within the parent document
	Content   string            // Chunk text (non-empty, within the chunk-size budget)
	Source    string            // e.g. "who", "ada", "cdc"
	Condition string            // e.g. "hypertension", "diabetes", "general_ncd"
	Topic     string            // e.g. "diet", "activity", "red_flags", "sdoh"
	Metadata  map[string]string // Auxiliary metadata (file name, indexed_at, ...)
	CreatedAt time.Time
}

// Result is a single search hit with its raw cosine distance.
// Distance 0 means identical direction; values may exceed 1.0 for
// anti-correlated vectors, which is why score conversion clamps.
type Result struct {
	Chunk    Chunk
	Distance float64
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK      int
	condition string
	topic     string
	source    string
}

// WithTopK sets the maximum number of results to return.
// Default is 4 if not specified.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithCondition restricts results to chunks tagged with the given condition.
// Empty string means no condition filter.
func WithCondition(condition string) SearchOption {
	return func(c *searchConfig) {
		c.condition = condition
	}
}

// WithTopic restricts results to chunks tagged with the given topic.
// Empty string means no topic filter.
func WithTopic(topic string) SearchOption {
	return func(c *searchConfig) {
		c.topic = topic
	}
}

// WithSource restricts results to chunks from the given guideline source.
func WithSource(source string) SearchOption {
	return func(c *searchConfig) {
		c.source = source
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK: 4,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
