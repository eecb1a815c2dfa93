package triage

import (
	"strings"
	"testing"
)

func TestFormatTriageComment(t *testing.T) {
	t.Run("full result", func(t *testing.T) {
		result := &Result{
			DuplicateCandidates: []DuplicateCandidate{
				{IssueNumber: 7, Title: "same crash", SimilarityScore: 0.92},
			},
			LibrarianFiles: []string{"server/handler.go", "server/router.go"},
			Surgeon: &SurgeonAnalysis{
				Type:              "BUG",
				Severity:          "HIGH",
				Confidence:        85,
				Summary:           "nil pointer in handler",
				RootCause:         "request body is not checked",
				ProposedSolutions: []string{"add a nil check", "return 400 for empty bodies"},
			},
			AppliedLabels: []string{LabelTriaged, LabelDuplicate, "bug", "severity: high"},
			StageErrors:   map[string]string{},
		}

		got := FormatTriageComment(result)
		for _, want := range []string{
			"## 🤖 AI Two-Pass Issue Triage",
			"Duplicate Issue Detected",
			"duplicate of #7 (same crash)",
			"**Similarity Score**: 92.0%",
			"Pass 1: Librarian",
			"`server/handler.go`",
			"Pass 2: Surgeon",
			"**Type**: `BUG`",
			"**Confidence**: `85%`",
			"> request body is not checked",
			"1. add a nil check",
			"Labels Applied",
			"Two-Pass Architecture",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("comment missing %q", want)
			}
		}
		if strings.Contains(got, "Partial Results") {
			t.Error("comment must not show partial-results section without stage errors")
		}
	})

	t.Run("below-threshold candidates listed as related", func(t *testing.T) {
		result := &Result{
			DuplicateCandidates: []DuplicateCandidate{
				{IssueNumber: 3, Title: "similar-ish", SimilarityScore: 0.55},
			},
		}

		got := FormatTriageComment(result)
		if strings.Contains(got, "Duplicate Issue Detected") {
			t.Error("below-threshold candidates must not be flagged as duplicates")
		}
		if !strings.Contains(got, "Possible Related Issues") || !strings.Contains(got, "#3") {
			t.Error("below-threshold candidates should be listed as related")
		}
	})

	t.Run("injection blocked", func(t *testing.T) {
		result := &Result{
			LibrarianFiles:   []string{"a.go"},
			InjectionBlocked: true,
		}

		got := FormatTriageComment(result)
		if !strings.Contains(got, "🛡️ Deep Analysis Blocked") {
			t.Error("blocked runs must say so")
		}
		if strings.Contains(got, "Pass 2: Surgeon") {
			t.Error("blocked runs must not render a surgeon section")
		}
	})

	t.Run("stage errors rendered sorted", func(t *testing.T) {
		result := &Result{
			StageErrors: map[string]string{
				StageSurgeon:    "api timeout",
				StageDuplicates: "listing failed",
			},
		}

		got := FormatTriageComment(result)
		if !strings.Contains(got, "⚠️ Partial Results") {
			t.Fatal("comment missing partial-results section")
		}
		dup := strings.Index(got, "**duplicates**")
		surg := strings.Index(got, "**surgeon**")
		if dup < 0 || surg < 0 || dup > surg {
			t.Error("stage errors must be listed in sorted order")
		}
	})

	t.Run("librarian failure hides file section", func(t *testing.T) {
		result := &Result{
			StageErrors: map[string]string{StageLibrarian: "boom"},
		}

		got := FormatTriageComment(result)
		if strings.Contains(got, "Pass 1: Librarian") {
			t.Error("failed librarian stage must not render its section")
		}
	})
}
