package rag

import (
	"strings"
	"testing"
)

func TestDetectCondition(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"What can I do for my blood pressure?", "hypertension"},
		{"my glucose readings are high", "diabetes"},
		{"worried about a stroke", "general_ncd"},
		{"what should I have for breakfast", ""},
	}
	for _, tt := range tests {
		if got := DetectCondition(tt.query); got != tt.want {
			t.Errorf("DetectCondition(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestDetectTopic(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"what should I eat for dinner", "diet"},
		{"can't afford a gym membership", "activity"}, // "gym" outranks "afford" alphabetically
		{"is chest tightness dangerous", "red_flags"},
		{"I work night shifts", "sdoh"},
		{"hello there", ""},
	}
	for _, tt := range tests {
		if got := DetectTopic(tt.query); got != tt.want {
			t.Errorf("DetectTopic(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestRewriteQuery_FoldsConstraints(t *testing.T) {
	query := "I work night shifts and can't afford a gym. What can I do for my blood pressure?"
	rewrite := RewriteQuery(query,
		Profile{AgeBand: "40-49", RiskBands: map[string]string{"hypertension": "high"}},
		Constraints{ExerciseSafety: "unsafe_at_night", IncomeBand: "low"},
	)

	if rewrite.Condition != "hypertension" {
		t.Errorf("condition = %q, want hypertension", rewrite.Condition)
	}
	if rewrite.Topic != "activity" {
		t.Errorf("topic = %q, want activity", rewrite.Topic)
	}
	for _, want := range []string{
		query,
		"physical activity recommendations",
		"for hypertension prevention",
		"adults aged 40-49",
		"hypertension risk",
		"cannot exercise at night",
		"limited budget",
	} {
		if !strings.Contains(rewrite.Query, want) {
			t.Errorf("rewritten query missing %q:\n%s", want, rewrite.Query)
		}
	}
}

func TestRewriteQuery_NoSignals(t *testing.T) {
	rewrite := RewriteQuery("how are things", Profile{}, Constraints{})

	if rewrite.Condition != "" || rewrite.Topic != "" {
		t.Errorf("unexpected detection: %+v", rewrite)
	}
	if !strings.Contains(rewrite.Query, "for adults") {
		t.Errorf("rewritten query missing generic context: %s", rewrite.Query)
	}
	if !strings.HasPrefix(rewrite.Query, "how are things") {
		t.Errorf("original query not preserved: %s", rewrite.Query)
	}
}

func TestRewriteQuery_Deterministic(t *testing.T) {
	profile := Profile{RiskBands: map[string]string{"diabetes": "high", "hypertension": "moderate"}}
	first := RewriteQuery("blood sugar and food", profile, Constraints{})
	second := RewriteQuery("blood sugar and food", profile, Constraints{})
	if first.Query != second.Query {
		t.Errorf("rewrite not deterministic:\n%s\n%s", first.Query, second.Query)
	}
	if !strings.Contains(first.Query, "diabetes, hypertension risk") {
		t.Errorf("risk factors not sorted: %s", first.Query)
	}
}
