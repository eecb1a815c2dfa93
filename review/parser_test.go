package review

import (
	"strings"
	"testing"
)

func TestParseReviewResponse(t *testing.T) {
	t.Run("full structure", func(t *testing.T) {
		text := `## Overall Assessment

Solid change with one risky spot.

## Issues Found

- [HIGH] server/handler.go: missing nil check on request body
- [LOW] config/config.go: unused field

## Suggestions

- Add a test for the empty-body case
- Consider extracting the retry logic`

		result := ParseReviewResponse(text)
		if !result.Parsed {
			t.Fatal("Parsed = false, want true")
		}
		if result.OverallAssessment != "Solid change with one risky spot." {
			t.Errorf("OverallAssessment = %q", result.OverallAssessment)
		}
		if len(result.IssuesFound) != 2 {
			t.Fatalf("IssuesFound = %d, want 2", len(result.IssuesFound))
		}
		if result.IssuesFound[0].Severity != "HIGH" {
			t.Errorf("Severity = %q, want HIGH", result.IssuesFound[0].Severity)
		}
		if result.IssuesFound[0].Location != "server/handler.go" {
			t.Errorf("Location = %q", result.IssuesFound[0].Location)
		}
		if len(result.Suggestions) != 2 {
			t.Errorf("Suggestions = %d, want 2", len(result.Suggestions))
		}
	})

	t.Run("no issues or suggestions", func(t *testing.T) {
		text := `## Overall Assessment

Looks great.

## Issues Found

- None

## Suggestions

- None`

		result := ParseReviewResponse(text)
		if !result.Parsed {
			t.Fatal("Parsed = false, want true")
		}
		if len(result.IssuesFound) != 0 {
			t.Errorf("IssuesFound = %d, want 0", len(result.IssuesFound))
		}
		if len(result.Suggestions) != 0 {
			t.Errorf("Suggestions = %d, want 0", len(result.Suggestions))
		}
	})

	t.Run("unstructured response falls back to raw", func(t *testing.T) {
		text := "This PR looks fine overall, nothing major to report."

		result := ParseReviewResponse(text)
		if result.Parsed {
			t.Error("Parsed = true, want false for unstructured text")
		}
		if result.Raw != text {
			t.Errorf("Raw = %q, want original text preserved", result.Raw)
		}
	})

	t.Run("missing suggestions section", func(t *testing.T) {
		text := `## Overall Assessment

Fine.

## Issues Found

- [MEDIUM] a.go: something`

		result := ParseReviewResponse(text)
		if !result.Parsed {
			t.Fatal("Parsed = false, want true")
		}
		if len(result.IssuesFound) != 1 {
			t.Fatalf("IssuesFound = %d, want 1", len(result.IssuesFound))
		}
		if result.IssuesFound[0].Severity != "MEDIUM" {
			t.Errorf("Severity = %q, want MEDIUM", result.IssuesFound[0].Severity)
		}
	})

	t.Run("malformed bullet becomes LOW issue", func(t *testing.T) {
		text := `## Overall Assessment

Fine.

## Issues Found

- something is off here

## Suggestions

- None`

		result := ParseReviewResponse(text)
		if len(result.IssuesFound) != 1 {
			t.Fatalf("IssuesFound = %d, want 1", len(result.IssuesFound))
		}
		if result.IssuesFound[0].Severity != "LOW" {
			t.Errorf("Severity = %q, want LOW", result.IssuesFound[0].Severity)
		}
		if result.IssuesFound[0].Description != "something is off here" {
			t.Errorf("Description = %q", result.IssuesFound[0].Description)
		}
	})

	t.Run("raw always preserved", func(t *testing.T) {
		text := `## Overall Assessment

Fine.

## Issues Found

- None`

		result := ParseReviewResponse(text)
		if result.Raw != text {
			t.Error("Raw must hold the full response even when parsed")
		}
	})
}

func TestFormatReviewComment(t *testing.T) {
	t.Run("parsed result", func(t *testing.T) {
		result := &Result{
			Parsed:            true,
			OverallAssessment: "Good change.",
			IssuesFound: []Issue{
				{Severity: "HIGH", Location: "a.go", Description: "bad thing"},
			},
			Suggestions:   []string{"do better"},
			FilesReviewed: []string{"a.go", "b.go"},
		}

		got := FormatReviewComment(result)
		for _, want := range []string{
			"## 🤖 Ansieyes Report",
			"Good change.",
			"**[HIGH]** `a.go`: bad thing",
			"do better",
			"Files reviewed (2)",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("comment missing %q", want)
			}
		}
	})

	t.Run("raw fallback", func(t *testing.T) {
		result := &Result{Raw: "free-form review text"}

		got := FormatReviewComment(result)
		if !strings.Contains(got, "free-form review text") {
			t.Error("raw text must be posted verbatim when parsing failed")
		}
		if !strings.Contains(got, "## 🤖 Ansieyes Report") {
			t.Error("header must be present even for raw fallback")
		}
	})
}
