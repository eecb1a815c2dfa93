// Package review orchestrates LLM-backed pull request reviews and
// workflow-run analysis.
package review

import (
	"context"

	"github.com/ansieyes/ansieyes/github"
)

// GitHubClient is the slice of the GitHub API the review orchestrator consumes.
type GitHubClient interface {
	GetPullRequest(ctx context.Context, installationID int64, owner, repo string, prNumber int) (*github.PullRequest, error)
	FetchPullRequestFiles(ctx context.Context, installationID int64, owner, repo string, prNumber int) ([]github.PullRequestFile, error)
	CreateIssueComment(ctx context.Context, installationID int64, owner, repo string, number int, body string) (*github.IssueCommentResponse, error)
	ListWorkflowJobs(ctx context.Context, installationID int64, owner, repo string, runID int64) ([]github.WorkflowJob, error)
	FindPullRequestForRun(ctx context.Context, installationID int64, owner, repo, headBranch, headSHA string) (*github.PullRequest, error)
}

// Input identifies the pull request to review.
type Input struct {
	InstallationID int64
	Owner          string
	Repo           string
	PRNumber       int
	// RepoID is the identifier used for prompt profile selection,
	// typically the repository HTML URL or full name.
	RepoID string
}

// WorkflowInput identifies a completed workflow run to analyze.
type WorkflowInput struct {
	InstallationID int64
	Owner          string
	Repo           string
	RepoID         string
	Run            *github.WorkflowRun
}

// Issue is a single problem the review surfaced.
type Issue struct {
	Severity    string // CRITICAL, HIGH, MEDIUM, LOW
	Description string
	Location    string // file path, possibly with line info
}

// Result is the parsed outcome of one review run.
type Result struct {
	FilesReviewed     []string
	OverallAssessment string
	IssuesFound       []Issue
	Suggestions       []string
	// Raw holds the full LLM response. When Parsed is false the response
	// did not match the expected structure and Raw is posted verbatim.
	Raw    string
	Parsed bool
}
