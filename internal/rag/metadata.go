package rag

import (
	"path/filepath"
	"strings"

	"github.com/healthbridge/healthbridge/internal/evidence"
)

// DocMeta is the metadata triple derived from a guideline filename.
type DocMeta struct {
	Source    string
	Condition string
	Topic     string
}

// DefaultDocMeta is assigned to files whose names do not follow the
// source_condition_topic convention. Such files are still indexed.
func DefaultDocMeta() DocMeta {
	return DocMeta{
		Source:    evidence.DefaultSource,
		Condition: evidence.DefaultCondition,
		Topic:     evidence.DefaultTopic,
	}
}

// knownConditions are condition labels that may themselves contain
// underscores, so the filename parser matches them before splitting the
// remainder into a topic.
var knownConditions = []string{
	"hypertension",
	"diabetes",
	"general_ncd",
}

// ParseDocMeta derives metadata from a guideline filename following the
// source_condition_topic convention, e.g. "who_hypertension_diet.md" or
// "cdc_general_ncd_red_flags.md". The second return reports whether the
// name parsed; on failure the defaults are returned and the file is still
// indexable. This function never fails hard: unparsable names are an
// expected input, not an error.
func ParseDocMeta(filename string) (DocMeta, bool) {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name = strings.ToLower(name)

	source, rest, found := strings.Cut(name, "_")
	if !found || source == "" || rest == "" {
		return DefaultDocMeta(), false
	}

	// Compound condition labels first, so "general_ncd_red_flags" does not
	// split into condition "general" and topic "ncd_red_flags".
	for _, cond := range knownConditions {
		if topic, ok := strings.CutPrefix(rest, cond+"_"); ok && topic != "" {
			return DocMeta{Source: source, Condition: cond, Topic: topic}, true
		}
	}

	condition, topic, found := strings.Cut(rest, "_")
	if !found || condition == "" || topic == "" {
		return DefaultDocMeta(), false
	}
	return DocMeta{Source: source, Condition: condition, Topic: topic}, true
}

// DocIDFromFilename derives a stable document identifier from a corpus
// filename: the base name without its extension. Chunk IDs build on this,
// so renaming a file re-indexes it under a new identity.
func DocIDFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
