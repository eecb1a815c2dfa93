// Package triage implements the two-pass issue triage pipeline: duplicate
// detection, librarian file identification, surgeon deep analysis, and
// label application.
package triage

import (
	"context"

	"github.com/ansieyes/ansieyes/github"
)

// Stage names used as keys in Result.StageErrors.
const (
	StageConfig     = "config"
	StageDuplicates = "duplicates"
	StageLibrarian  = "librarian"
	StageSurgeon    = "surgeon"
	StageLabels     = "labels"
)

// GitHubClient is the slice of the GitHub API the triage pipeline consumes.
type GitHubClient interface {
	GetRepositoryTree(ctx context.Context, installationID int64, owner, repo, ref string) (*github.Tree, error)
	FetchFileContent(ctx context.Context, installationID int64, owner, repo, path, ref string) (string, error)
	FetchMultipleFiles(ctx context.Context, installationID int64, owner, repo string, paths []string, ref string) (map[string]string, error)
	ListOpenIssues(ctx context.Context, installationID int64, owner, repo string, limit int) ([]github.Issue, error)
	CreateIssueComment(ctx context.Context, installationID int64, owner, repo string, number int, body string) (*github.IssueCommentResponse, error)
	EnsureLabel(ctx context.Context, installationID int64, owner, repo string, label github.Label) error
	AddLabels(ctx context.Context, installationID int64, owner, repo string, number int, names []string) error
}

// Input identifies the issue to triage.
type Input struct {
	InstallationID int64
	Owner          string
	Repo           string
	IssueNumber    int
	IssueTitle     string
	IssueBody      string
	DefaultBranch  string
	// RepoID is the identifier used for prompt profile selection.
	RepoID string
}

// DuplicateCandidate is one potential duplicate issue with its score.
type DuplicateCandidate struct {
	IssueNumber     int     `json:"issue_number"`
	Title           string  `json:"title"`
	SimilarityScore float64 `json:"similarity_score"` // 0..1
}

// SurgeonAnalysis is the structured classification from the deep-analysis pass.
type SurgeonAnalysis struct {
	Type              string   `json:"issue_type"` // BUG, ENHANCEMENT, FEATURE_REQUEST
	Severity          string   `json:"severity"`   // CRITICAL, HIGH, MEDIUM, LOW
	Confidence        int      `json:"confidence"` // 0..100
	Summary           string   `json:"summary"`
	RootCause         string   `json:"root_cause"`
	ProposedSolutions []string `json:"proposed_solutions"`
}

// Result accumulates the outcome of one triage run. Once the config stage
// succeeds, all five stage slots are always present: a stage either
// contributed a value or left its reason in StageErrors.
type Result struct {
	// DuplicateCandidates is ordered by descending similarity.
	DuplicateCandidates []DuplicateCandidate
	// LibrarianFiles is the relevance-ranked list of candidate file paths.
	LibrarianFiles []string
	// Surgeon is nil when the stage failed, was skipped, or was blocked.
	Surgeon *SurgeonAnalysis
	// SurgeonSkipped is true when the surgeon pass did not run because the
	// librarian produced no files.
	SurgeonSkipped bool
	// InjectionBlocked is true when the injection guard stopped the surgeon pass.
	InjectionBlocked bool
	// AppliedLabels are the label names successfully attached to the issue.
	AppliedLabels []string
	// StageErrors records soft failures per stage; the pipeline continued
	// past each of them.
	StageErrors map[string]string
}

// newResult creates an empty result with all slots allocated.
func newResult() *Result {
	return &Result{
		StageErrors: make(map[string]string),
	}
}

// recordError marks a stage as soft-failed.
func (r *Result) recordError(stage string, err error) {
	r.StageErrors[stage] = err.Error()
}

// TopDuplicate returns the highest-scoring candidate, or nil.
func (r *Result) TopDuplicate() *DuplicateCandidate {
	if len(r.DuplicateCandidates) == 0 {
		return nil
	}
	return &r.DuplicateCandidates[0]
}

// HasDuplicate reports whether the top candidate meets the high-confidence
// threshold.
func (r *Result) HasDuplicate() bool {
	top := r.TopDuplicate()
	return top != nil && top.SimilarityScore >= DuplicateThreshold
}
