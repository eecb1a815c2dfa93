package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ansieyes/ansieyes/github"
	"github.com/ansieyes/ansieyes/prompts"
)

type fakeGitHub struct {
	pr       *github.PullRequest
	prErr    error
	files    []github.PullRequestFile
	filesErr error
	jobs     []github.WorkflowJob
	jobsErr  error
	runPR    *github.PullRequest
	runPRErr error

	comments []string
}

func (f *fakeGitHub) GetPullRequest(ctx context.Context, installationID int64, owner, repo string, prNumber int) (*github.PullRequest, error) {
	return f.pr, f.prErr
}

func (f *fakeGitHub) FetchPullRequestFiles(ctx context.Context, installationID int64, owner, repo string, prNumber int) ([]github.PullRequestFile, error) {
	return f.files, f.filesErr
}

func (f *fakeGitHub) CreateIssueComment(ctx context.Context, installationID int64, owner, repo string, number int, body string) (*github.IssueCommentResponse, error) {
	f.comments = append(f.comments, body)
	return &github.IssueCommentResponse{ID: int64(len(f.comments))}, nil
}

func (f *fakeGitHub) ListWorkflowJobs(ctx context.Context, installationID int64, owner, repo string, runID int64) ([]github.WorkflowJob, error) {
	return f.jobs, f.jobsErr
}

func (f *fakeGitHub) FindPullRequestForRun(ctx context.Context, installationID int64, owner, repo, headBranch, headSHA string) (*github.PullRequest, error) {
	return f.runPR, f.runPRErr
}

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func newTestReviewer(gh *fakeGitHub, gen *fakeGenerator) *Reviewer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReviewer(gh, gen, prompts.DefaultLibrary(logger), logger)
}

func reviewInput() *Input {
	return &Input{
		InstallationID: 999,
		Owner:          "owner",
		Repo:           "repo",
		PRNumber:       42,
		RepoID:         "https://github.com/owner/repo",
	}
}

func TestReviewPullRequest(t *testing.T) {
	t.Run("posts structured review", func(t *testing.T) {
		gh := &fakeGitHub{
			pr: &github.PullRequest{Number: 42, Title: "Add feature", Body: "desc"},
			files: []github.PullRequestFile{
				{Filename: "a.go", Status: "modified", Patch: "+x"},
			},
		}
		gen := &fakeGenerator{response: `## Overall Assessment

Fine.

## Issues Found

- None

## Suggestions

- None`}

		result, err := newTestReviewer(gh, gen).ReviewPullRequest(context.Background(), reviewInput())
		if err != nil {
			t.Fatalf("ReviewPullRequest() error = %v", err)
		}
		if !result.Parsed {
			t.Error("Parsed = false, want true")
		}
		if len(gh.comments) != 1 {
			t.Fatalf("comments = %d, want 1", len(gh.comments))
		}
		if !strings.Contains(gh.comments[0], "## 🤖 Ansieyes Report") {
			t.Errorf("comment missing report header: %q", gh.comments[0])
		}
		if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "Add feature") {
			t.Error("prompt should include the PR title")
		}
	})

	t.Run("fetch failure posts error comment", func(t *testing.T) {
		gh := &fakeGitHub{prErr: errors.New("boom")}
		gen := &fakeGenerator{}

		_, err := newTestReviewer(gh, gen).ReviewPullRequest(context.Background(), reviewInput())
		if err == nil {
			t.Fatal("ReviewPullRequest() expected error")
		}
		if len(gh.comments) != 1 || !strings.Contains(gh.comments[0], "PR Review Failed") {
			t.Errorf("expected a failure comment, got %v", gh.comments)
		}
		if len(gen.prompts) != 0 {
			t.Error("LLM must not be called when fetching fails")
		}
	})

	t.Run("LLM failure posts error comment", func(t *testing.T) {
		gh := &fakeGitHub{
			pr:    &github.PullRequest{Number: 42, Title: "T"},
			files: []github.PullRequestFile{{Filename: "a.go", Patch: "+x"}},
		}
		gen := &fakeGenerator{err: errors.New("api down")}

		_, err := newTestReviewer(gh, gen).ReviewPullRequest(context.Background(), reviewInput())
		if err == nil {
			t.Fatal("ReviewPullRequest() expected error")
		}
		if len(gh.comments) != 1 || !strings.Contains(gh.comments[0], "PR Review Failed") {
			t.Errorf("expected a failure comment, got %v", gh.comments)
		}
	})
}

func TestAnalyzeWorkflowRun(t *testing.T) {
	run := &github.WorkflowRun{
		ID:         5555,
		Name:       "CI",
		Conclusion: "failure",
		HeadBranch: "feature",
		HeadSHA:    "abc",
	}
	input := &WorkflowInput{
		InstallationID: 999,
		Owner:          "owner",
		Repo:           "repo",
		RepoID:         "https://github.com/owner/repo",
		Run:            run,
	}

	t.Run("posts analysis on matched PR", func(t *testing.T) {
		gh := &fakeGitHub{
			runPR: &github.PullRequest{Number: 42},
			jobs: []github.WorkflowJob{
				{Name: "test", Conclusion: "failure"},
			},
		}
		gen := &fakeGenerator{response: "the test job failed because of X"}

		if err := newTestReviewer(gh, gen).AnalyzeWorkflowRun(context.Background(), input); err != nil {
			t.Fatalf("AnalyzeWorkflowRun() error = %v", err)
		}
		if len(gh.comments) != 1 {
			t.Fatalf("comments = %d, want 1", len(gh.comments))
		}
		comment := gh.comments[0]
		if !strings.Contains(comment, "❌") || !strings.Contains(comment, "**Failed Jobs:** test") {
			t.Errorf("unexpected comment: %q", comment)
		}
	})

	t.Run("no PR found skips silently", func(t *testing.T) {
		gh := &fakeGitHub{}
		gen := &fakeGenerator{}

		if err := newTestReviewer(gh, gen).AnalyzeWorkflowRun(context.Background(), input); err != nil {
			t.Fatalf("AnalyzeWorkflowRun() error = %v", err)
		}
		if len(gh.comments) != 0 || len(gen.prompts) != 0 {
			t.Error("runs with no PR must be skipped without side effects")
		}
	})

	t.Run("job fetch failure degrades to payload only", func(t *testing.T) {
		gh := &fakeGitHub{
			runPR:   &github.PullRequest{Number: 42},
			jobsErr: errors.New("403"),
		}
		gen := &fakeGenerator{response: "analysis"}

		if err := newTestReviewer(gh, gen).AnalyzeWorkflowRun(context.Background(), input); err != nil {
			t.Fatalf("AnalyzeWorkflowRun() error = %v", err)
		}
		if len(gh.comments) != 1 {
			t.Errorf("comments = %d, want 1", len(gh.comments))
		}
	})
}
