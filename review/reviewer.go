package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ansieyes/ansieyes/github"
	"github.com/ansieyes/ansieyes/llm"
	"github.com/ansieyes/ansieyes/prompts"
)

// Reviewer orchestrates pull request reviews and workflow-run analysis.
type Reviewer struct {
	gh      GitHubClient
	llm     llm.Generator
	library *prompts.Library
	logger  *slog.Logger
}

// NewReviewer creates a new Reviewer.
func NewReviewer(gh GitHubClient, gen llm.Generator, library *prompts.Library, logger *slog.Logger) *Reviewer {
	return &Reviewer{
		gh:      gh,
		llm:     gen,
		library: library,
		logger:  logger,
	}
}

// ReviewPullRequest runs the review sequence: fetch files, select profile,
// build prompt, call the LLM, parse, post one comment. Any step failure
// posts a user-visible error comment and terminates the run; no retries
// happen at this layer.
func (r *Reviewer) ReviewPullRequest(ctx context.Context, input *Input) (*Result, error) {
	r.logger.Info("starting PR review",
		"owner", input.Owner,
		"repo", input.Repo,
		"pr", input.PRNumber,
	)

	pr, err := r.gh.GetPullRequest(ctx, input.InstallationID, input.Owner, input.Repo, input.PRNumber)
	if err != nil {
		return nil, r.failReview(ctx, input, "fetching pull request", err)
	}

	files, err := r.gh.FetchPullRequestFiles(ctx, input.InstallationID, input.Owner, input.Repo, input.PRNumber)
	if err != nil {
		return nil, r.failReview(ctx, input, "fetching changed files", err)
	}
	r.logger.Info("fetched changed files", "count", len(files))

	profile := r.library.SelectProfile(input.RepoID)
	prompt := BuildReviewPrompt(profile, pr.Title, pr.Body, files)

	text, err := r.llm.Generate(ctx, profile.SystemRole, prompt)
	if err != nil {
		return nil, r.failReview(ctx, input, "generating review", err)
	}

	result := ParseReviewResponse(text)
	result.FilesReviewed = reviewedFiles(files)
	if !result.Parsed {
		r.logger.Warn("review response did not match expected structure, posting raw text",
			"pr", input.PRNumber,
		)
	}

	comment := FormatReviewComment(result)
	if _, err := r.gh.CreateIssueComment(ctx, input.InstallationID, input.Owner, input.Repo, input.PRNumber, comment); err != nil {
		return nil, fmt.Errorf("failed to post review comment: %w", err)
	}

	r.logger.Info("posted review",
		"pr", input.PRNumber,
		"files_reviewed", len(result.FilesReviewed),
		"issues", len(result.IssuesFound),
	)
	return result, nil
}

// failReview posts an error comment naming the failed step, best-effort,
// and returns the wrapped error.
func (r *Reviewer) failReview(ctx context.Context, input *Input, step string, err error) error {
	r.logger.Error("review step failed", "step", step, "error", err)

	body := fmt.Sprintf("❌ **PR Review Failed** while %s:\n\n```\n%v\n```", step, err)
	if _, postErr := r.gh.CreateIssueComment(ctx, input.InstallationID, input.Owner, input.Repo, input.PRNumber, body); postErr != nil {
		r.logger.Error("failed to post review error comment", "error", postErr)
	}
	return fmt.Errorf("%s: %w", step, err)
}

// AnalyzeWorkflowRun analyzes a completed workflow run and comments on the
// PR it belongs to. Runs with no associated PR are skipped.
func (r *Reviewer) AnalyzeWorkflowRun(ctx context.Context, input *WorkflowInput) error {
	run := input.Run
	r.logger.Info("analyzing workflow run",
		"workflow", run.Name,
		"run_id", run.ID,
		"conclusion", run.Conclusion,
	)

	pr, err := r.gh.FindPullRequestForRun(ctx, input.InstallationID, input.Owner, input.Repo, run.HeadBranch, run.HeadSHA)
	if err != nil {
		return fmt.Errorf("finding pull request for run: %w", err)
	}
	if pr == nil {
		r.logger.Warn("no PR found for workflow run",
			"run_id", run.ID,
			"branch", run.HeadBranch,
			"sha", run.HeadSHA,
		)
		return nil
	}

	// Job details improve the analysis but the payload basics suffice.
	jobs, err := r.gh.ListWorkflowJobs(ctx, input.InstallationID, input.Owner, input.Repo, run.ID)
	if err != nil {
		r.logger.Warn("could not fetch workflow jobs, analyzing from payload only", "error", err)
		jobs = nil
	}

	profile := r.library.SelectProfile(input.RepoID)
	prompt := BuildWorkflowPrompt(profile, run, jobs)

	analysis, err := r.llm.Generate(ctx, profile.SystemRole, prompt)
	if err != nil {
		body := fmt.Sprintf("❌ **Workflow Analysis Failed** while generating analysis:\n\n```\n%v\n```", err)
		if _, postErr := r.gh.CreateIssueComment(ctx, input.InstallationID, input.Owner, input.Repo, pr.Number, body); postErr != nil {
			r.logger.Error("failed to post workflow error comment", "error", postErr)
		}
		return fmt.Errorf("generating workflow analysis: %w", err)
	}

	comment := FormatWorkflowComment(analysis, run, failedJobNames(jobs))
	if _, err := r.gh.CreateIssueComment(ctx, input.InstallationID, input.Owner, input.Repo, pr.Number, comment); err != nil {
		return fmt.Errorf("failed to post workflow comment: %w", err)
	}

	r.logger.Info("posted workflow analysis", "pr", pr.Number, "run_id", run.ID)
	return nil
}

// failedJobNames returns the names of jobs that concluded in failure.
func failedJobNames(jobs []github.WorkflowJob) []string {
	var failed []string
	for _, j := range jobs {
		if j.Conclusion == "failure" {
			failed = append(failed, j.Name)
		}
	}
	return failed
}

// FormatReviewComment renders a review result as one markdown comment.
func FormatReviewComment(result *Result) string {
	var b strings.Builder
	b.WriteString("## 🤖 Ansieyes Report\n\n")

	if !result.Parsed {
		// Structure unknown: present the model's text as-is.
		b.WriteString(strings.TrimSpace(result.Raw))
		b.WriteString("\n")
	} else {
		b.WriteString("### Overall Assessment\n\n")
		b.WriteString(result.OverallAssessment)
		b.WriteString("\n\n### Issues Found\n\n")
		if len(result.IssuesFound) == 0 {
			b.WriteString("None\n")
		} else {
			for _, issue := range result.IssuesFound {
				if issue.Location != "" {
					fmt.Fprintf(&b, "- **[%s]** `%s`: %s\n", issue.Severity, issue.Location, issue.Description)
				} else {
					fmt.Fprintf(&b, "- **[%s]** %s\n", issue.Severity, issue.Description)
				}
			}
		}
		b.WriteString("\n### Suggestions\n\n")
		if len(result.Suggestions) == 0 {
			b.WriteString("None\n")
		} else {
			for _, s := range result.Suggestions {
				fmt.Fprintf(&b, "- %s\n", s)
			}
		}
	}

	if len(result.FilesReviewed) > 0 {
		fmt.Fprintf(&b, "\n<details>\n<summary>Files reviewed (%d)</summary>\n\n", len(result.FilesReviewed))
		for _, f := range result.FilesReviewed {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n</details>\n")
	}

	b.WriteString("\n---\n*This review was generated automatically by Ansieyes.*")
	return b.String()
}

// FormatWorkflowComment renders a workflow analysis as one markdown comment,
// with a status emoji header matching the run conclusion.
func FormatWorkflowComment(analysis string, run *github.WorkflowRun, failedJobs []string) string {
	emoji := "⚠️"
	switch run.Conclusion {
	case "success":
		emoji = "✅"
	case "failure":
		emoji = "❌"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s GitHub Actions Workflow: %s\n\n", emoji, run.Name)
	fmt.Fprintf(&b, "**Status:** `%s`\n\n", strings.ToUpper(run.Conclusion))

	if run.HTMLURL != "" {
		fmt.Fprintf(&b, "[View Workflow Run](%s)\n\n", run.HTMLURL)
	}
	if len(failedJobs) > 0 {
		fmt.Fprintf(&b, "**Failed Jobs:** %s\n\n", strings.Join(failedJobs, ", "))
	}

	b.WriteString("### Analysis\n\n")
	b.WriteString(analysis)
	b.WriteString("\n\n---\n*This analysis was generated automatically by Ansieyes.*")
	return b.String()
}
