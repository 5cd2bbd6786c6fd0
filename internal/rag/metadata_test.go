package rag

import "testing"

func TestParseDocMeta(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     DocMeta
		parsed   bool
	}{
		{
			name:     "simple convention",
			filename: "who_hypertension_diet.md",
			want:     DocMeta{Source: "who", Condition: "hypertension", Topic: "diet"},
			parsed:   true,
		},
		{
			name:     "compound condition",
			filename: "cdc_general_ncd_red_flags.md",
			want:     DocMeta{Source: "cdc", Condition: "general_ncd", Topic: "red_flags"},
			parsed:   true,
		},
		{
			name:     "compound topic",
			filename: "who_hypertension_red_flags.txt",
			want:     DocMeta{Source: "who", Condition: "hypertension", Topic: "red_flags"},
			parsed:   true,
		},
		{
			name:     "uppercase normalized",
			filename: "ADA_Diabetes_Activity.md",
			want:     DocMeta{Source: "ada", Condition: "diabetes", Topic: "activity"},
			parsed:   true,
		},
		{
			name:     "path stripped",
			filename: "/corpus/guidelines/who_hypertension_diet.md",
			want:     DocMeta{Source: "who", Condition: "hypertension", Topic: "diet"},
			parsed:   true,
		},
		{
			name:     "no underscores",
			filename: "notes.md",
			want:     DefaultDocMeta(),
			parsed:   false,
		},
		{
			name:     "too few parts",
			filename: "who_hypertension.md",
			want:     DefaultDocMeta(),
			parsed:   false,
		},
		{
			name:     "trailing underscore",
			filename: "who_hypertension_.md",
			want:     DefaultDocMeta(),
			parsed:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, parsed := ParseDocMeta(tt.filename)
			if got != tt.want {
				t.Errorf("meta = %+v, want %+v", got, tt.want)
			}
			if parsed != tt.parsed {
				t.Errorf("parsed = %v, want %v", parsed, tt.parsed)
			}
		})
	}
}

func TestDocIDFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"who_hypertension_diet.md", "who_hypertension_diet"},
		{"/corpus/ada_diabetes_diet.txt", "ada_diabetes_diet"},
		{"notes", "notes"},
	}
	for _, tt := range tests {
		if got := DocIDFromFilename(tt.filename); got != tt.want {
			t.Errorf("DocIDFromFilename(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
