package review

import (
	"fmt"
	"strings"

	"github.com/ansieyes/ansieyes/github"
	"github.com/ansieyes/ansieyes/prompts"
)

const (
	// MaxReviewFiles is the maximum number of changed files included in a
	// review prompt. Files beyond the bound are listed as omitted.
	MaxReviewFiles = 30

	// MaxPatchBytes is the total patch budget for one prompt.
	// ~80KB corresponds to roughly 20K tokens.
	MaxPatchBytes = 80 * 1024
)

// promptFiles is the bounded selection of file diffs for one prompt.
type promptFiles struct {
	included []github.PullRequestFile
	omitted  []string
}

// boundFiles applies the file-count and patch-size bounds in order.
// Files are taken in API order until either bound is exhausted.
func boundFiles(files []github.PullRequestFile) promptFiles {
	var out promptFiles
	budget := MaxPatchBytes

	for _, f := range files {
		if len(out.included) >= MaxReviewFiles || len(f.Patch) > budget {
			out.omitted = append(out.omitted, f.Filename)
			continue
		}
		budget -= len(f.Patch)
		out.included = append(out.included, f)
	}
	return out
}

// BuildReviewPrompt constructs the review prompt from the profile templates,
// PR metadata, and the bounded file diffs.
func BuildReviewPrompt(profile prompts.Profile, title, body string, files []github.PullRequestFile) string {
	if body == "" {
		body = "(No description provided)"
	}

	bounded := boundFiles(files)

	var b strings.Builder
	b.WriteString("Review the following pull request.\n\n")
	fmt.Fprintf(&b, "**Pull Request Title:** %s\n\n", title)
	fmt.Fprintf(&b, "**Pull Request Description:**\n%s\n\n", body)
	b.WriteString(profile.ReviewStructure)
	b.WriteString("\n\n## Changed Files\n\n")

	for _, f := range bounded.included {
		fmt.Fprintf(&b, "### %s (%s, +%d/-%d)\n\n", f.Filename, f.Status, f.Additions, f.Deletions)
		if f.Patch == "" {
			b.WriteString("(no textual diff available)\n\n")
			continue
		}
		fmt.Fprintf(&b, "```diff\n%s\n```\n\n", f.Patch)
	}

	if len(bounded.omitted) > 0 {
		b.WriteString("### Omitted Files\n\n")
		b.WriteString("The following changed files were omitted from this prompt due to size limits; note their presence in your assessment:\n\n")
		for _, name := range bounded.omitted {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// reviewedFiles returns the paths that made it into the prompt, in order.
func reviewedFiles(files []github.PullRequestFile) []string {
	bounded := boundFiles(files)
	paths := make([]string, len(bounded.included))
	for i, f := range bounded.included {
		paths[i] = f.Filename
	}
	return paths
}

// BuildWorkflowPrompt constructs the workflow-run analysis prompt from the
// profile's workflow template plus the run outcome details.
func BuildWorkflowPrompt(profile prompts.Profile, run *github.WorkflowRun, jobs []github.WorkflowJob) string {
	var b strings.Builder
	b.WriteString(profile.WorkflowAnalysis)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**Workflow:** %s\n", run.Name)
	fmt.Fprintf(&b, "**Conclusion:** %s\n", run.Conclusion)
	fmt.Fprintf(&b, "**Branch:** %s\n\n", run.HeadBranch)

	if len(jobs) == 0 {
		b.WriteString("(No job details available.)\n")
		return b.String()
	}

	b.WriteString("**Jobs:**\n\n")
	for _, job := range jobs {
		fmt.Fprintf(&b, "- %s: %s\n", job.Name, job.Conclusion)
		for _, step := range job.Steps {
			if step.Conclusion == "failure" {
				fmt.Fprintf(&b, "  - step %q failed\n", step.Name)
			}
		}
	}
	return b.String()
}
