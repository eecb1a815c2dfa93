package review

import (
	"regexp"
	"strings"
)

// Section headers the parser splits on. These correspond to the structure
// the default profile requests; custom profiles that deviate fall back to
// the raw-text path.
const (
	headerAssessment  = "## Overall Assessment"
	headerIssues      = "## Issues Found"
	headerSuggestions = "## Suggestions"
)

// issueLineRegex matches "- [SEVERITY] location: description" bullets.
var issueLineRegex = regexp.MustCompile(`^-\s*\[(CRITICAL|HIGH|MEDIUM|LOW)\]\s*([^:]+):\s*(.+)$`)

// ParseReviewResponse splits the LLM's free-text review into the Result
// shape, best-effort. When the expected sections are absent the raw text is
// preserved with Parsed=false so callers can post it verbatim; content is
// never discarded.
func ParseReviewResponse(text string) *Result {
	result := &Result{Raw: text}

	assessment, rest, ok := splitSection(text, headerAssessment, headerIssues)
	if !ok {
		return result
	}
	result.OverallAssessment = assessment

	issuesBlock, suggestionsBlock, ok := splitSection(rest, headerIssues, headerSuggestions)
	if ok {
		result.IssuesFound = parseIssues(issuesBlock)
		result.Suggestions = parseBullets(suggestionsBlock)
	} else {
		// Issues section without suggestions: take the remainder.
		result.IssuesFound = parseIssues(rest)
	}

	result.Parsed = true
	return result
}

// splitSection extracts the text between two headers. The returned rest
// starts at the second header. ok is false when the first header is missing.
func splitSection(text, from, until string) (section, rest string, ok bool) {
	start := strings.Index(text, from)
	if start < 0 {
		return "", "", false
	}
	body := text[start+len(from):]

	end := strings.Index(body, until)
	if end < 0 {
		return strings.TrimSpace(body), "", true
	}
	return strings.TrimSpace(body[:end]), body[end:], true
}

// parseIssues parses severity bullets; lines that don't match the expected
// shape become LOW-severity issues rather than being dropped.
func parseIssues(block string) []Issue {
	var issues []Issue
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "-") {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(line, "-")), "none") {
			continue
		}

		if m := issueLineRegex.FindStringSubmatch(line); m != nil {
			issues = append(issues, Issue{
				Severity:    m[1],
				Location:    strings.TrimSpace(m[2]),
				Description: strings.TrimSpace(m[3]),
			})
			continue
		}
		issues = append(issues, Issue{
			Severity:    "LOW",
			Description: strings.TrimSpace(strings.TrimPrefix(line, "-")),
		})
	}
	return issues
}

// parseBullets parses a plain bulleted list, skipping "None".
func parseBullets(block string) []string {
	var items []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		item := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if item == "" || strings.EqualFold(item, "none") {
			continue
		}
		items = append(items, item)
	}
	return items
}
