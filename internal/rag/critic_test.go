package rag

import (
	"strings"
	"testing"
)

func TestExtractClaims(t *testing.T) {
	answer := "Thanks for asking! Reduce sodium intake to less than 2 grams per day. " +
		"You should also try walking. Potassium rich foods help lower blood pressure over time. Ok?"

	claims := ExtractClaims(answer)
	if len(claims) != 2 {
		t.Fatalf("got %d claims, want 2: %v", len(claims), claims)
	}
	if !strings.Contains(claims[0], "sodium") {
		t.Errorf("claim 0 = %q", claims[0])
	}
	if !strings.Contains(claims[1], "Potassium") {
		t.Errorf("claim 1 = %q", claims[1])
	}
}

func TestExtractClaims_FiltersFraming(t *testing.T) {
	for _, answer := range []string{
		"I think that is a wonderful plan for your week ahead.",
		"You should definitely keep doing what works for you.",
		"Thank you for sharing that detail about your routine.",
		"Short one.",
		"",
	} {
		if claims := ExtractClaims(answer); len(claims) != 0 {
			t.Errorf("ExtractClaims(%q) = %v, want none", answer, claims)
		}
	}
}

func TestCheckClaim(t *testing.T) {
	evidence := []Result{
		{
			Content: "Adults should reduce sodium intake to less than 2 grams per day.",
			Source:  "who",
		},
		{
			Content: "Aim for 150 minutes of moderate aerobic activity weekly.",
			Source:  "ada",
		},
	}

	supported, score, source := CheckClaim(
		"Reduce sodium intake to less than 2 grams per day", evidence)
	if !supported {
		t.Errorf("expected claim supported, score %v", score)
	}
	if source != "who" {
		t.Errorf("source = %q, want who", source)
	}

	supported, score, _ = CheckClaim(
		"Vitamin D supplements cure chronic insomnia completely", evidence)
	if supported {
		t.Errorf("expected claim unsupported, score %v", score)
	}
}

func TestCheckClaim_NoEvidence(t *testing.T) {
	supported, score, source := CheckClaim("Reduce sodium intake every day", nil)
	if supported || score != 0 || source != "" {
		t.Errorf("got (%v, %v, %q), want (false, 0, \"\")", supported, score, source)
	}
}

func TestCritic_Review(t *testing.T) {
	critic := NewCritic(0.6)
	evidence := []Result{
		{Content: "Adults should reduce sodium intake to less than 2 grams per day.", Source: "who"},
	}

	t.Run("supported answer", func(t *testing.T) {
		verdict := critic.Review(
			"Reduce your daily sodium intake to less than 2 grams per day.",
			evidence, "sodium")
		if !verdict.Supported {
			t.Errorf("verdict = %+v, want supported", verdict)
		}
		if verdict.Confidence != 1.0 {
			t.Errorf("confidence = %v, want 1.0", verdict.Confidence)
		}
		if len(verdict.Sources) != 1 || verdict.Sources[0] != "who" {
			t.Errorf("sources = %v", verdict.Sources)
		}
	})

	t.Run("unsupported answer", func(t *testing.T) {
		verdict := critic.Review(
			"Crystal healing resolves elevated cortisol within days. "+
				"Magnetic bracelets restore proper circulation throughout the body.",
			evidence, "blood pressure")
		if verdict.Supported {
			t.Errorf("verdict = %+v, want unsupported", verdict)
		}
		if verdict.Confidence != 0 {
			t.Errorf("confidence = %v, want 0", verdict.Confidence)
		}
		if len(verdict.Refinements) == 0 {
			t.Error("expected refinement suggestions")
		}
		if !critic.ShouldRetry(verdict) {
			t.Error("expected retry recommendation")
		}
	})

	t.Run("mixed answer", func(t *testing.T) {
		verdict := critic.Review(
			"Adults should reduce sodium intake to less than 2 grams per day. "+
				"Crystal healing resolves elevated cortisol within days.",
			evidence, "sodium")
		if verdict.ClaimsChecked != 2 || verdict.ClaimsSupported != 1 {
			t.Errorf("verdict = %+v, want 1 of 2 supported", verdict)
		}
		if verdict.Confidence != 0.5 {
			t.Errorf("confidence = %v, want 0.5", verdict.Confidence)
		}
		if verdict.Supported {
			t.Error("0.5 confidence must not pass a 0.6 threshold")
		}
	})

	t.Run("no substantive claims", func(t *testing.T) {
		verdict := critic.Review("Thanks! You got this.", nil, "anything")
		if !verdict.Supported || verdict.Confidence != 1.0 {
			t.Errorf("verdict = %+v, want trivially supported", verdict)
		}
		if critic.ShouldRetry(verdict) {
			t.Error("no-claim answers must not trigger retries")
		}
	})
}

func TestNewCritic_ThresholdFallback(t *testing.T) {
	for _, bad := range []float64{-1, 0, 1.5} {
		if got := NewCritic(bad).Threshold(); got != DefaultConfidenceThreshold {
			t.Errorf("NewCritic(%v).Threshold() = %v, want default", bad, got)
		}
	}
	if got := NewCritic(0.8).Threshold(); got != 0.8 {
		t.Errorf("Threshold() = %v, want 0.8", got)
	}
}
