package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/healthbridge/healthbridge/internal/evidence"
)

// DefaultMaxChunkSize is the character budget per chunk. Guideline sections
// are short; 1200 characters keeps a chunk within a single embedding call's
// sweet spot while staying readable as a quoted evidence passage.
const DefaultMaxChunkSize = 1200

// ChunkDocument splits document text into retrievable chunks. Heading lines
// (Markdown "#" prefixes) delimit sections and are dropped from chunk text;
// sections over maxChunkSize are further split on paragraph and then
// sentence boundaries, and only hard-cut when a single sentence exceeds the
// budget. No body text is ever dropped, so the concatenated chunks
// reconstruct the document minus its heading lines (modulo whitespace).
//
// Chunk IDs are deterministic (docID plus zero-padded ordinal) so
// re-indexing the same document replaces rows instead of duplicating them.
// An empty or whitespace-only document yields no chunks, not an error.
func ChunkDocument(docID, text string, maxChunkSize int) []evidence.Chunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}

	var chunks []evidence.Chunk
	appendChunk := func(content string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		ordinal := len(chunks)
		chunks = append(chunks, evidence.Chunk{
			ID:      fmt.Sprintf("%s:%04d", docID, ordinal),
			DocID:   docID,
			Ordinal: ordinal,
			Content: content,
		})
	}

	for _, section := range splitSections(text) {
		if len(section) <= maxChunkSize {
			appendChunk(section)
			continue
		}
		for _, piece := range splitOversized(section, maxChunkSize) {
			appendChunk(piece)
		}
	}
	return chunks
}

// splitSections divides text into heading-delimited sections, dropping the
// heading lines themselves.
func splitSections(text string) []string {
	var sections []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
	}

	for line := range strings.Lines(text) {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			flush()
			continue
		}
		current.WriteString(line)
	}
	flush()
	return sections
}

// splitOversized breaks a section into budget-sized pieces, preferring
// paragraph boundaries, then sentence boundaries, then a hard cut.
func splitOversized(section string, maxChunkSize int) []string {
	var pieces []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
		}
	}

	for _, para := range strings.SplitAfter(section, "\n\n") {
		if current.Len() > 0 && current.Len()+len(para) > maxChunkSize {
			flush()
		}
		if len(para) <= maxChunkSize {
			current.WriteString(para)
			continue
		}
		flush()
		for _, sentence := range splitSentences(para) {
			if current.Len() > 0 && current.Len()+len(sentence) > maxChunkSize {
				flush()
			}
			if len(sentence) <= maxChunkSize {
				current.WriteString(sentence)
				continue
			}
			flush()
			for cut := sentence; len(cut) > 0; {
				n := min(len(cut), maxChunkSize)
				// Back the cut off to a rune boundary so a multi-byte
				// rune never splits across two chunks.
				for n < len(cut) && n > 0 && !utf8.RuneStart(cut[n]) {
					n--
				}
				if n == 0 {
					// Budget smaller than the rune; take it whole.
					_, n = utf8.DecodeRuneInString(cut)
				}
				pieces = append(pieces, cut[:n])
				cut = cut[n:]
			}
		}
	}
	flush()
	return pieces
}

// splitSentences splits text after sentence-ending punctuation, keeping the
// punctuation and following whitespace with the sentence so concatenation is
// lossless.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := range len(text) {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		end := i + 1
		for end < len(text) && (text[end] == ' ' || text[end] == '\n' || text[end] == '\t') {
			end++
		}
		sentences = append(sentences, text[start:end])
		start = end
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}
