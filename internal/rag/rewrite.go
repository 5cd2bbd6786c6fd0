package rag

import (
	"fmt"
	"sort"
	"strings"
)

// conditionKeywords maps a condition label to phrases that suggest it.
var conditionKeywords = map[string][]string{
	"hypertension": {"blood pressure", "bp", "hypertension", "high pressure"},
	"diabetes":     {"blood sugar", "glucose", "diabetes", "sugar levels", "insulin"},
	"general_ncd":  {"heart", "cardiovascular", "stroke", "kidney"},
}

// topicKeywords maps a topic label to phrases that suggest it.
var topicKeywords = map[string][]string{
	"diet":      {"eat", "food", "diet", "nutrition", "meal", "salt", "sugar", "vegetable"},
	"activity":  {"exercise", "walk", "gym", "active", "movement", "physical"},
	"red_flags": {"emergency", "urgent", "dangerous", "warning", "symptom", "pain", "chest"},
	"sdoh":      {"afford", "cost", "time", "work", "shift", "safety", "neighborhood"},
}

// topicPrefixes expand a detected topic into guideline-register phrasing.
var topicPrefixes = map[string]string{
	"diet":      "dietary recommendations and nutrition guidelines",
	"activity":  "physical activity recommendations and exercise options",
	"red_flags": "warning signs symptoms when to seek medical care",
	"sdoh":      "practical low-resource behavior change strategies",
}

// Profile carries the user traits the rewriter folds into a query.
type Profile struct {
	AgeBand   string
	RiskBands map[string]string // risk factor -> "low" | "moderate" | "high"
}

// Constraints carries social-determinant constraints affecting what advice
// is actually actionable for the user.
type Constraints struct {
	ExerciseSafety   string // "unsafe_at_night" | "unsafe" | ""
	IncomeBand       string // "low" | ""
	FoodAccess       string // "limited_fresh" | ""
	TimeAvailability string // "limited" | ""
}

// Rewrite is the outcome of rewriting a user question for retrieval.
type Rewrite struct {
	Original  string
	Query     string // Guideline-style query to retrieve with
	Condition string // Detected condition, "" when none
	Topic     string // Detected topic, "" when none
}

// DetectCondition returns the condition label suggested by the query text,
// or "" when no keyword matches.
func DetectCondition(query string) string {
	return detectLabel(query, conditionKeywords)
}

// DetectTopic returns the topic label suggested by the query text, or ""
// when no keyword matches.
func DetectTopic(query string) string {
	return detectLabel(query, topicKeywords)
}

func detectLabel(query string, table map[string][]string) string {
	lower := strings.ToLower(query)

	// Iterate labels in sorted order so detection is deterministic when a
	// query hints at more than one.
	labels := make([]string, 0, len(table))
	for label := range table {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		for _, keyword := range table[label] {
			if strings.Contains(lower, keyword) {
				return label
			}
		}
	}
	return ""
}

// RewriteQuery turns a conversational user question into a focused,
// guideline-style retrieval query, folding in profile traits and
// constraints so retrieval favors advice the user can actually follow.
// The detected condition and topic double as suggested metadata filters.
func RewriteQuery(query string, profile Profile, constraints Constraints) Rewrite {
	condition := DetectCondition(query)
	topic := DetectTopic(query)

	context := []string{userContext(profile)}
	context = append(context, constraintContext(constraints)...)

	var parts []string
	if prefix, ok := topicPrefixes[topic]; ok {
		parts = append(parts, prefix)
	}
	if condition != "" {
		parts = append(parts, fmt.Sprintf("for %s prevention", condition))
	}
	parts = append(parts, "for "+strings.Join(context, " "))

	return Rewrite{
		Original:  query,
		Query:     strings.TrimSpace(query + " " + strings.Join(parts, " ")),
		Condition: condition,
		Topic:     topic,
	}
}

func userContext(profile Profile) string {
	base := "adults"
	if profile.AgeBand != "" {
		base = "adults aged " + profile.AgeBand
	}

	var elevated []string
	for factor, band := range profile.RiskBands {
		if band == "high" || band == "moderate" {
			elevated = append(elevated, factor)
		}
	}
	if len(elevated) == 0 {
		return base
	}
	sort.Strings(elevated)
	return base + " with " + strings.Join(elevated, ", ") + " risk"
}

func constraintContext(c Constraints) []string {
	var parts []string
	switch c.ExerciseSafety {
	case "unsafe_at_night":
		parts = append(parts, "who cannot exercise at night due to safety")
	case "unsafe":
		parts = append(parts, "with limited safe exercise options")
	}
	if c.IncomeBand == "low" {
		parts = append(parts, "with limited budget")
	}
	if c.FoodAccess == "limited_fresh" {
		parts = append(parts, "with limited access to fresh produce")
	}
	if c.TimeAvailability == "limited" {
		parts = append(parts, "with time constraints")
	}
	return parts
}
