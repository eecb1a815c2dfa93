package triage

import (
	"fmt"
	"sort"
	"strings"
)

// FormatTriageComment renders the accumulated result as one markdown
// comment, including any soft stage failures.
func FormatTriageComment(result *Result) string {
	var b strings.Builder
	b.WriteString("## 🤖 AI Two-Pass Issue Triage\n\n")

	writeDuplicateSection(&b, result)
	writeLibrarianSection(&b, result)
	writeSurgeonSection(&b, result)
	writeLabelSection(&b, result)
	writeErrorSection(&b, result)

	b.WriteString("---\n\n")
	b.WriteString("<sub>🤖 *This analysis used the Two-Pass Architecture: ")
	b.WriteString("Librarian identified relevant files, then Surgeon performed deep analysis.*</sub>")
	return b.String()
}

func writeDuplicateSection(b *strings.Builder, result *Result) {
	if result.HasDuplicate() {
		top := result.TopDuplicate()
		b.WriteString("### 🔍 Duplicate Issue Detected\n\n")
		fmt.Fprintf(b, "This issue appears to be a duplicate of #%d (%s)\n\n", top.IssueNumber, top.Title)
		fmt.Fprintf(b, "**Similarity Score**: %.1f%%\n\n", top.SimilarityScore*100)
		return
	}

	if len(result.DuplicateCandidates) > 0 {
		b.WriteString("### 🔍 Possible Related Issues\n\n")
		for _, c := range result.DuplicateCandidates {
			fmt.Fprintf(b, "- #%d (%s): %.1f%% similar\n", c.IssueNumber, c.Title, c.SimilarityScore*100)
		}
		b.WriteString("\n")
	}
}

func writeLibrarianSection(b *strings.Builder, result *Result) {
	if _, failed := result.StageErrors[StageLibrarian]; failed {
		return
	}

	b.WriteString("### 📚 Pass 1: Librarian (File Identification)\n\n")
	if len(result.LibrarianFiles) == 0 {
		b.WriteString("No relevant files were identified.\n\n")
		return
	}

	fmt.Fprintf(b, "Identified **%d** relevant file(s) for deep analysis:\n\n", len(result.LibrarianFiles))
	b.WriteString("<details>\n<summary><b>View Identified Files</b></summary>\n\n")
	for i, file := range result.LibrarianFiles {
		fmt.Fprintf(b, "%d. `%s`\n", i+1, file)
	}
	b.WriteString("\n</details>\n\n---\n\n")
}

func writeSurgeonSection(b *strings.Builder, result *Result) {
	if result.InjectionBlocked {
		b.WriteString("### 🛡️ Deep Analysis Blocked\n\n")
		b.WriteString("Potential prompt injection was detected in the issue or repository content; the deep analysis pass was skipped.\n\n")
		return
	}
	if result.SurgeonSkipped || result.Surgeon == nil {
		return
	}

	surgeon := result.Surgeon
	b.WriteString("### 🔬 Pass 2: Surgeon (Deep Analysis)\n\n")
	fmt.Fprintf(b, "**Type**: `%s`  \n", surgeon.Type)
	fmt.Fprintf(b, "**Severity**: `%s`  \n", surgeon.Severity)
	fmt.Fprintf(b, "**Confidence**: `%d%%`\n\n", surgeon.Confidence)

	if surgeon.Summary != "" {
		b.WriteString("#### Summary\n\n")
		b.WriteString(surgeon.Summary)
		b.WriteString("\n\n")
	}
	if surgeon.RootCause != "" {
		b.WriteString("#### Root Cause\n\n")
		fmt.Fprintf(b, "> %s\n\n", surgeon.RootCause)
	}
	if len(surgeon.ProposedSolutions) > 0 {
		b.WriteString("#### Proposed Solutions\n\n")
		for i, sol := range surgeon.ProposedSolutions {
			fmt.Fprintf(b, "%d. %s\n", i+1, sol)
		}
		b.WriteString("\n")
	}
}

func writeLabelSection(b *strings.Builder, result *Result) {
	if len(result.AppliedLabels) == 0 {
		return
	}
	b.WriteString("### 🏷️ Labels Applied\n\n")
	for _, name := range result.AppliedLabels {
		fmt.Fprintf(b, "`%s` ", name)
	}
	b.WriteString("\n\n")
}

func writeErrorSection(b *strings.Builder, result *Result) {
	if len(result.StageErrors) == 0 {
		return
	}

	stages := make([]string, 0, len(result.StageErrors))
	for stage := range result.StageErrors {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	b.WriteString("### ⚠️ Partial Results\n\n")
	b.WriteString("Some stages did not complete; results above may be incomplete:\n\n")
	for _, stage := range stages {
		fmt.Fprintf(b, "- **%s**: %s\n", stage, result.StageErrors[stage])
	}
	b.WriteString("\n")
}
