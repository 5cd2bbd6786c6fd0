package rag

// RelevanceFromDistance converts a cosine distance into a bounded relevance
// score in [0, 1]. Cosine distance ranges over [0, 2]; distances past 1.0
// (anti-correlated vectors) would yield negative scores, so the result is
// clamped rather than surfaced negative. Kept as a standalone function so
// the clamping behavior stays independently testable.
func RelevanceFromDistance(distance float64) float64 {
	score := 1.0 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
