package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ansieyes/ansieyes/github"
)

const (
	// MaxLibrarianFiles caps the relevance-ranked file list.
	MaxLibrarianFiles = 10

	// maxTreeEntries bounds the condensed tree included in the prompt.
	maxTreeEntries = 2000
)

const librarianPromptTemplate = `You are the Librarian pass of an issue triage pipeline. Given an issue and a repository file tree, identify which files are most likely relevant to investigating the issue.

Issue:
Title: %s
Body:
%s

%sRepository file tree:
%s

Respond with ONLY a JSON array of file paths from the tree above, ordered from most to least relevant, at most %d entries, no markdown fences or other text:
["path/to/most_relevant.go", "path/to/next.go"]
Return [] if no files seem relevant.`

// runLibrarian runs the file-identification pass over the condensed tree.
func (t *Triager) runLibrarian(ctx context.Context, input *Input, tree *github.Tree, cfg *RepoConfig) ([]string, error) {
	condensed := condenseTree(tree, cfg)
	if condensed == "" {
		return nil, fmt.Errorf("repository tree is empty after applying omit list")
	}

	var description string
	if cfg.Repository.Description != "" {
		description = fmt.Sprintf("Repository description: %s\n\n", cfg.Repository.Description)
	}

	prompt := fmt.Sprintf(librarianPromptTemplate,
		input.IssueTitle,
		truncateText(input.IssueBody, 4000),
		description,
		condensed,
		MaxLibrarianFiles,
	)

	text, err := t.llm.Generate(ctx, t.profile(input).SystemRole, prompt)
	if err != nil {
		return nil, fmt.Errorf("identifying files: %w", err)
	}

	var files []string
	if err := json.Unmarshal([]byte(cleanJSONResponse(text)), &files); err != nil {
		return nil, fmt.Errorf("parsing librarian file list: %w", err)
	}

	// Keep only paths that actually exist in the tree, preserving rank.
	known := make(map[string]bool, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.Type == "blob" {
			known[e.Path] = true
		}
	}

	var valid []string
	for _, f := range files {
		f = strings.TrimSpace(f)
		if known[f] {
			valid = append(valid, f)
		}
		if len(valid) >= MaxLibrarianFiles {
			break
		}
	}
	return valid, nil
}

// condenseTree renders the blob paths of a tree, one per line, respecting
// the omit list and the entry bound.
func condenseTree(tree *github.Tree, cfg *RepoConfig) string {
	var b strings.Builder
	count := 0
	for _, e := range tree.Entries {
		if e.Type != "blob" || cfg.IsOmitted(e.Path) {
			continue
		}
		b.WriteString(e.Path)
		b.WriteString("\n")
		count++
		if count >= maxTreeEntries {
			b.WriteString("(tree truncated)\n")
			break
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
