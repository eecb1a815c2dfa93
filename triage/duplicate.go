package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ansieyes/ansieyes/github"
)

const (
	// DuplicateThreshold is the similarity score at or above which the top
	// candidate is treated as a high-confidence duplicate.
	DuplicateThreshold = 0.85

	// DuplicateWindow is how many recent open issues are compared against.
	DuplicateWindow = 50

	// maxDuplicateCandidates bounds the candidates surfaced in the comment.
	maxDuplicateCandidates = 5
)

const duplicatePromptTemplate = `You are checking whether a newly filed GitHub issue duplicates any existing open issue.

New issue:
Title: %s
Body:
%s

Existing open issues:
%s

Score the similarity of the new issue against each existing issue on a 0.0-1.0 scale, where 1.0 means the same underlying problem. Respond with ONLY a JSON array, no markdown fences or other text:
[
  {"issue_number": 12, "title": "existing title", "similarity_score": 0.92}
]
Include only issues with a score of 0.3 or higher. Return [] if none are similar.`

// checkDuplicates runs the duplicate-detection stage: list a bounded window
// of recent open issues and have the LLM score similarity.
func (t *Triager) checkDuplicates(ctx context.Context, input *Input) ([]DuplicateCandidate, error) {
	issues, err := t.gh.ListOpenIssues(ctx, input.InstallationID, input.Owner, input.Repo, DuplicateWindow)
	if err != nil {
		return nil, fmt.Errorf("listing open issues: %w", err)
	}

	// Exclude the issue being triaged from its own comparison set.
	var candidates []github.Issue
	for _, issue := range issues {
		if issue.Number != input.IssueNumber {
			candidates = append(candidates, issue)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(duplicatePromptTemplate,
		input.IssueTitle,
		truncateText(input.IssueBody, 4000),
		formatIssueWindow(candidates),
	)

	text, err := t.llm.Generate(ctx, t.profile(input).SystemRole, prompt)
	if err != nil {
		return nil, fmt.Errorf("scoring duplicates: %w", err)
	}

	var scored []DuplicateCandidate
	if err := json.Unmarshal([]byte(cleanJSONResponse(text)), &scored); err != nil {
		return nil, fmt.Errorf("parsing duplicate scores: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].SimilarityScore > scored[j].SimilarityScore
	})
	if len(scored) > maxDuplicateCandidates {
		scored = scored[:maxDuplicateCandidates]
	}
	return scored, nil
}

// formatIssueWindow renders the comparison issues for the prompt.
func formatIssueWindow(issues []github.Issue) string {
	var b strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&b, "#%d: %s\n", issue.Number, issue.Title)
		if body := strings.TrimSpace(issue.Body); body != "" {
			fmt.Fprintf(&b, "  %s\n", truncateText(body, 300))
		}
	}
	return b.String()
}

// cleanJSONResponse strips markdown code fences the model may wrap around
// JSON despite instructions.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")

	return strings.TrimSpace(response)
}

// truncateText truncates a string to at most maxLen bytes and adds "..."
// if truncated. The cut never lands mid-rune.
func truncateText(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
