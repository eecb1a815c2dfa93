package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// maxSurgeonFileBytes bounds each file's content in the surgeon prompt.
const maxSurgeonFileBytes = 20 * 1024

const surgeonPromptTemplate = `You are the Surgeon pass of an issue triage pipeline. The Librarian pass identified the files below as relevant. Perform a deep analysis of the issue against this code.

Issue:
Title: %s
Body:
%s

Relevant files:
%s

Respond with ONLY a JSON object, no markdown fences or other text:
{
  "issue_type": "BUG",
  "severity": "HIGH",
  "confidence": 85,
  "summary": "one-paragraph analysis summary",
  "root_cause": "the most likely root cause",
  "proposed_solutions": ["first solution", "second solution"]
}
Rules:
- "issue_type" must be one of: BUG, ENHANCEMENT, FEATURE_REQUEST
- "severity" must be one of: CRITICAL, HIGH, MEDIUM, LOW
- "confidence" is an integer 0-100`

// runSurgeon runs the deep-analysis pass over the librarian-selected files.
// contents maps file path to content, as fetched by the caller.
func (t *Triager) runSurgeon(ctx context.Context, input *Input, files []string, contents map[string]string) (*SurgeonAnalysis, error) {
	prompt := fmt.Sprintf(surgeonPromptTemplate,
		input.IssueTitle,
		truncateText(input.IssueBody, 4000),
		formatSurgeonFiles(files, contents),
	)

	text, err := t.llm.Generate(ctx, t.profile(input).SystemRole, prompt)
	if err != nil {
		return nil, fmt.Errorf("analyzing issue: %w", err)
	}

	var analysis SurgeonAnalysis
	if err := json.Unmarshal([]byte(cleanJSONResponse(text)), &analysis); err != nil {
		return nil, fmt.Errorf("parsing surgeon analysis: %w", err)
	}

	if err := validateAnalysis(&analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// formatSurgeonFiles renders file contents in librarian rank order.
// Files the fetch could not retrieve are noted rather than dropped silently.
func formatSurgeonFiles(files []string, contents map[string]string) string {
	var b strings.Builder
	for _, path := range files {
		content, ok := contents[path]
		if !ok {
			fmt.Fprintf(&b, "### %s\n\n(content unavailable)\n\n", path)
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n```\n%s\n```\n\n", path, truncateText(content, maxSurgeonFileBytes))
	}
	return b.String()
}

// validateAnalysis normalizes and validates the parsed classification.
func validateAnalysis(a *SurgeonAnalysis) error {
	a.Type = strings.ToUpper(strings.TrimSpace(a.Type))
	switch a.Type {
	case "BUG", "ENHANCEMENT", "FEATURE_REQUEST":
	default:
		return fmt.Errorf("invalid issue_type: %q", a.Type)
	}

	a.Severity = strings.ToUpper(strings.TrimSpace(a.Severity))
	switch a.Severity {
	case "CRITICAL", "HIGH", "MEDIUM", "LOW":
	default:
		return fmt.Errorf("invalid severity: %q", a.Severity)
	}

	if a.Confidence < 0 || a.Confidence > 100 {
		return fmt.Errorf("confidence out of range: %d", a.Confidence)
	}
	return nil
}
