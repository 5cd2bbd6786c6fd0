package rag

import (
	"fmt"
	"strings"
)

// DefaultConfidenceThreshold is the minimum confidence at which an answer
// counts as supported by its evidence.
const DefaultConfidenceThreshold = 0.6

// claimSupportThreshold is the minimum keyword overlap for one claim to
// count as supported by one evidence passage.
const claimSupportThreshold = 0.4

// stopwords are excluded from claim keywords before overlap scoring.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "to": {}, "of": {}, "and": {}, "in": {}, "that": {},
	"for": {}, "with": {}, "on": {}, "at": {},
}

// UnsupportedClaim is a claim the evidence does not back, with the best
// overlap score it achieved.
type UnsupportedClaim struct {
	Claim string
	Score float64
}

// Verdict is the critic's judgment of one answer against its evidence.
// Ephemeral: produced per evaluation, never persisted.
type Verdict struct {
	Supported         bool
	Confidence        float64 // Fraction of claims the evidence supports
	ClaimsChecked     int
	ClaimsSupported   int
	UnsupportedClaims []UnsupportedClaim
	Sources           []string // Guideline sources that backed claims
	Refinements       []string // Suggested retrieval refinements when low
}

// Critic reviews generated answers for grounding in retrieved evidence.
// Support is measured lexically: a claim counts as supported when its
// keyword overlap with some evidence passage reaches claimSupportThreshold,
// and overall confidence is the supported fraction of claims. Aggregating
// by fraction (rather than max passage similarity) is deliberate: one
// well-grounded sentence must not vouch for an otherwise unsupported
// answer.
type Critic struct {
	threshold float64
}

// NewCritic creates a Critic. Thresholds outside (0, 1] fall back to the
// default.
func NewCritic(threshold float64) *Critic {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}
	return &Critic{threshold: threshold}
}

// Threshold returns the confidence level below which answers are rejected.
func (c *Critic) Threshold() float64 { return c.threshold }

// ExtractClaims splits an answer into substantive claims worth verifying.
// Short fragments, greetings, and second-person coaching framing are not
// claims; only sentences long enough to carry a factual assertion survive.
func ExtractClaims(answer string) []string {
	normalized := strings.NewReplacer("!", ".", "?", ".").Replace(answer)

	var claims []string
	for _, sentence := range strings.Split(normalized, ".") {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) <= 20 {
			continue
		}
		lower := strings.ToLower(sentence)
		if strings.HasPrefix(lower, "i ") ||
			strings.HasPrefix(lower, "you ") ||
			strings.HasPrefix(lower, "thank") {
			continue
		}
		claims = append(claims, sentence)
	}
	return claims
}

// claimKeywords returns the claim's scoring vocabulary: lowercased words
// minus stopwords.
func claimKeywords(claim string) map[string]struct{} {
	keywords := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(claim)) {
		if _, skip := stopwords[word]; skip {
			continue
		}
		keywords[word] = struct{}{}
	}
	return keywords
}

// CheckClaim scores one claim against the evidence. It returns whether the
// claim is supported, the best overlap score, and the source of the best
// matching passage.
func CheckClaim(claim string, results []Result) (bool, float64, string) {
	keywords := claimKeywords(claim)
	if len(keywords) == 0 {
		return false, 0, ""
	}

	var bestScore float64
	var bestSource string
	for _, result := range results {
		contentWords := make(map[string]struct{})
		for _, word := range strings.Fields(strings.ToLower(result.Content)) {
			contentWords[word] = struct{}{}
		}

		overlap := 0
		for word := range keywords {
			if _, ok := contentWords[word]; ok {
				overlap++
			}
		}
		score := float64(overlap) / float64(len(keywords))
		if score > bestScore {
			bestScore = score
			bestSource = result.Source
		}
	}
	return bestScore >= claimSupportThreshold, bestScore, bestSource
}

// Review judges an answer against its evidence. An answer with no
// substantive claims is trivially supported (confidence 1.0); otherwise
// confidence is the fraction of claims the evidence backs, and answers
// under the threshold come with refinement suggestions for re-retrieval.
func (c *Critic) Review(answer string, results []Result, originalQuery string) Verdict {
	claims := ExtractClaims(answer)
	if len(claims) == 0 {
		return Verdict{Supported: true, Confidence: 1.0}
	}

	verdict := Verdict{ClaimsChecked: len(claims)}
	seenSources := make(map[string]struct{})
	for _, claim := range claims {
		supported, score, source := CheckClaim(claim, results)
		if supported {
			verdict.ClaimsSupported++
			if _, seen := seenSources[source]; !seen && source != "" {
				seenSources[source] = struct{}{}
				verdict.Sources = append(verdict.Sources, source)
			}
			continue
		}
		verdict.UnsupportedClaims = append(verdict.UnsupportedClaims, UnsupportedClaim{
			Claim: claim,
			Score: score,
		})
	}

	verdict.Confidence = float64(verdict.ClaimsSupported) / float64(verdict.ClaimsChecked)
	verdict.Supported = verdict.Confidence >= c.threshold

	if !verdict.Supported {
		verdict.Refinements = append(verdict.Refinements,
			fmt.Sprintf("try more specific query terms related to: %s", originalQuery))
		for i, unsupported := range verdict.UnsupportedClaims {
			if i == 2 {
				break
			}
			claim := unsupported.Claim
			if len(claim) > 50 {
				claim = claim[:50] + "..."
			}
			verdict.Refinements = append(verdict.Refinements,
				fmt.Sprintf("add retrieval for: %s", claim))
		}
	}
	return verdict
}

// ShouldRetry reports whether a rejected verdict warrants another
// retrieval pass. The retry budget itself lives in CorrectiveLoop.
func (c *Critic) ShouldRetry(verdict Verdict) bool {
	return !verdict.Supported &&
		verdict.Confidence < c.threshold &&
		len(verdict.Refinements) > 0
}
