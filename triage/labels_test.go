package triage

import (
	"reflect"
	"testing"
)

func TestDeriveLabels(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{
			name:   "minimal run",
			result: newResult(),
			want:   []string{LabelTriaged},
		},
		{
			name: "high-confidence duplicate",
			result: &Result{
				DuplicateCandidates: []DuplicateCandidate{
					{IssueNumber: 7, Title: "same bug", SimilarityScore: 0.91},
				},
			},
			want: []string{LabelTriaged, LabelDuplicate},
		},
		{
			name: "candidate below threshold",
			result: &Result{
				DuplicateCandidates: []DuplicateCandidate{
					{IssueNumber: 7, SimilarityScore: 0.6},
				},
			},
			want: []string{LabelTriaged},
		},
		{
			name: "surgeon classification",
			result: &Result{
				Surgeon: &SurgeonAnalysis{Type: "BUG", Severity: "HIGH", Confidence: 80},
			},
			want: []string{LabelTriaged, "bug", "severity: high"},
		},
		{
			name: "feature request",
			result: &Result{
				Surgeon: &SurgeonAnalysis{Type: "FEATURE_REQUEST", Severity: "LOW", Confidence: 70},
			},
			want: []string{LabelTriaged, "feature-request", "severity: low"},
		},
		{
			name:   "injection blocked",
			result: &Result{InjectionBlocked: true},
			want:   []string{LabelTriaged, LabelInjectionBlocked},
		},
		{
			name: "everything at once",
			result: &Result{
				DuplicateCandidates: []DuplicateCandidate{{IssueNumber: 7, SimilarityScore: 0.9}},
				Surgeon:             &SurgeonAnalysis{Type: "BUG", Severity: "CRITICAL", Confidence: 95},
			},
			want: []string{LabelTriaged, LabelDuplicate, "bug", "severity: critical"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveLabels(tt.result)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DeriveLabels() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("pure function", func(t *testing.T) {
		result := &Result{
			Surgeon: &SurgeonAnalysis{Type: "BUG", Severity: "HIGH", Confidence: 80},
		}
		first := DeriveLabels(result)
		for i := 0; i < 5; i++ {
			if got := DeriveLabels(result); !reflect.DeepEqual(got, first) {
				t.Fatalf("DeriveLabels() not deterministic: %v vs %v", got, first)
			}
		}
	})
}

func TestLabelColorsCoverKnownLabels(t *testing.T) {
	// Every label DeriveLabels can emit must have a creation color.
	result := &Result{
		DuplicateCandidates: []DuplicateCandidate{{SimilarityScore: 0.95}},
		Surgeon:             &SurgeonAnalysis{Type: "ENHANCEMENT", Severity: "MEDIUM"},
		InjectionBlocked:    true,
	}
	for _, name := range DeriveLabels(result) {
		if _, ok := labelColors[name]; !ok {
			t.Errorf("label %q has no color", name)
		}
	}
}
