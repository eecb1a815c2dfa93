// Package github provides GitHub API client and webhook handling for the bot.
package github

// PullRequestEvent represents a pull_request webhook event.
type PullRequestEvent struct {
	Action       string        `json:"action"`
	Number       int           `json:"number"`
	PullRequest  *PullRequest  `json:"pull_request,omitempty"`
	Repository   *Repository   `json:"repository"`
	Installation *Installation `json:"installation"`
	Sender       *User         `json:"sender"`
}

// PullRequest represents a GitHub pull request.
type PullRequest struct {
	ID      int64  `json:"id"`
	Number  int    `json:"number"`
	State   string `json:"state"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Head    *Ref   `json:"head"`
	Base    *Ref   `json:"base"`
	User    *User  `json:"user"`
	HTMLURL string `json:"html_url"`
}

// Ref represents a git reference (branch/commit).
type Ref struct {
	Ref  string      `json:"ref"`
	SHA  string      `json:"sha"`
	Repo *Repository `json:"repo,omitempty"`
}

// Repository represents a GitHub repository.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Owner         *User  `json:"owner"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	CloneURL      string `json:"clone_url"`
	HTMLURL       string `json:"html_url"`
}

// User represents a GitHub user or organization.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Type  string `json:"type"`
}

// Installation represents a GitHub App installation.
type Installation struct {
	ID int64 `json:"id"`
}

// PullRequestFile represents a file changed in a pull request.
type PullRequestFile struct {
	SHA              string `json:"sha"`
	Filename         string `json:"filename"`
	Status           string `json:"status"` // added, removed, modified, renamed, copied, changed, unchanged
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
	Changes          int    `json:"changes"`
	Patch            string `json:"patch,omitempty"`
	PreviousFilename string `json:"previous_filename,omitempty"`
}

// FileContent represents the content of a file from the GitHub API.
type FileContent struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
}

// IssueCommentEvent represents an issue_comment webhook event.
// GitHub delivers comments on both issues and pull requests through this
// event; PRs are distinguished by a non-nil Issue.PullRequest link.
type IssueCommentEvent struct {
	Action       string        `json:"action"` // created, edited, deleted
	Issue        *Issue        `json:"issue"`
	Comment      *IssueComment `json:"comment"`
	Repository   *Repository   `json:"repository"`
	Installation *Installation `json:"installation"`
	Sender       *User         `json:"sender"`
}

// Issue represents a GitHub issue (PRs are also issues).
type Issue struct {
	ID          int64        `json:"id"`
	Number      int          `json:"number"`
	Title       string       `json:"title"`
	Body        string       `json:"body"`
	State       string       `json:"state"`
	User        *User        `json:"user"`
	Labels      []Label      `json:"labels,omitempty"`
	PullRequest *IssuePRLink `json:"pull_request,omitempty"` // Non-nil if this issue is a PR
	HTMLURL     string       `json:"html_url"`
	CreatedAt   string       `json:"created_at"`
}

// IssuePRLink contains PR-specific URLs when an issue is a PR.
type IssuePRLink struct {
	URL      string `json:"url"`
	HTMLURL  string `json:"html_url"`
	DiffURL  string `json:"diff_url"`
	PatchURL string `json:"patch_url"`
}

// IssueComment represents a comment on an issue or PR.
type IssueComment struct {
	ID        int64  `json:"id"`
	User      *User  `json:"user"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	HTMLURL   string `json:"html_url"`
}

// Label represents a repository label.
type Label struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// WorkflowRunEvent represents a workflow_run webhook event.
type WorkflowRunEvent struct {
	Action       string        `json:"action"` // requested, in_progress, completed
	WorkflowRun  *WorkflowRun  `json:"workflow_run"`
	Repository   *Repository   `json:"repository"`
	Installation *Installation `json:"installation"`
	Sender       *User         `json:"sender"`
}

// WorkflowRun represents a GitHub Actions workflow run.
type WorkflowRun struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`     // queued, in_progress, completed
	Conclusion string `json:"conclusion"` // success, failure, cancelled, ...
	HeadBranch string `json:"head_branch"`
	HeadSHA    string `json:"head_sha"`
	HTMLURL    string `json:"html_url"`
	RunNumber  int    `json:"run_number"`
}

// WorkflowJob represents a single job within a workflow run.
type WorkflowJob struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	Conclusion string         `json:"conclusion"`
	Steps      []WorkflowStep `json:"steps,omitempty"`
}

// WorkflowStep represents a step within a workflow job.
type WorkflowStep struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	Number     int    `json:"number"`
}

// TreeEntry represents one entry in a git tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"` // blob, tree, commit
	Size int    `json:"size,omitempty"`
	SHA  string `json:"sha"`
}

// Tree represents a recursive git tree listing.
type Tree struct {
	SHA       string      `json:"sha"`
	Entries   []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}
