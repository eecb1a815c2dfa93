package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	baseURL = "https://api.github.com"

	// maxConcurrentFetches bounds parallel file-content requests to avoid
	// tripping rate limits.
	maxConcurrentFetches = 10
)

// Client provides methods to interact with the GitHub API.
type Client struct {
	httpClient *http.Client
	appID      int64
	privateKey []byte
}

// NewClient creates a new GitHub API client.
// The privateKey should be the PEM-encoded private key of the GitHub App.
func NewClient(appID int64, privateKey []byte) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		appID:      appID,
		privateKey: privateKey,
	}
}

// getInstallationClient returns an HTTP client authenticated for the given installation.
func (c *Client) getInstallationClient(installationID int64) (*http.Client, error) {
	transport, err := ghinstallation.New(http.DefaultTransport, c.appID, installationID, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation transport: %w", err)
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}, nil
}

// getJSON performs an authenticated GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, installationID int64, url string, out any) error {
	client, err := c.getInstallationClient(installationID)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// postJSON performs an authenticated POST with a JSON body, decoding the
// response into out when out is non-nil.
func (c *Client) postJSON(ctx context.Context, installationID int64, url string, payload, out any) error {
	client, err := c.getInstallationClient(installationID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// GetPullRequest fetches a pull request by number.
func (c *Client) GetPullRequest(ctx context.Context, installationID int64, owner, repo string, prNumber int) (*PullRequest, error) {
	var pr PullRequest
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", baseURL, owner, repo, prNumber)
	if err := c.getJSON(ctx, installationID, url, &pr); err != nil {
		return nil, fmt.Errorf("failed to fetch pull request: %w", err)
	}
	return &pr, nil
}

// FetchPullRequestFiles fetches the list of files changed in a pull request.
func (c *Client) FetchPullRequestFiles(ctx context.Context, installationID int64, owner, repo string, prNumber int) ([]PullRequestFile, error) {
	var files []PullRequestFile
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=100", baseURL, owner, repo, prNumber)
	if err := c.getJSON(ctx, installationID, url, &files); err != nil {
		return nil, fmt.Errorf("failed to fetch files: %w", err)
	}
	return files, nil
}

// IssueCommentRequest represents a request to create an issue comment.
type IssueCommentRequest struct {
	Body string `json:"body"`
}

// IssueCommentResponse represents a created issue comment.
type IssueCommentResponse struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`
	User    *User  `json:"user"`
}

// CreateIssueComment posts a comment on an issue or PR (via the issues API).
func (c *Client) CreateIssueComment(ctx context.Context, installationID int64, owner, repo string, number int, body string) (*IssueCommentResponse, error) {
	var comment IssueCommentResponse
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", baseURL, owner, repo, number)
	if err := c.postJSON(ctx, installationID, url, IssueCommentRequest{Body: body}, &comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &comment, nil
}

// ListOpenIssues fetches up to limit open issues, most recently created
// first. Pull requests are filtered out (the issues API returns both).
func (c *Client) ListOpenIssues(ctx context.Context, installationID int64, owner, repo string, limit int) ([]Issue, error) {
	params := url.Values{}
	params.Set("state", "open")
	params.Set("sort", "created")
	params.Set("direction", "desc")
	params.Set("per_page", fmt.Sprintf("%d", limit))

	var raw []Issue
	apiURL := fmt.Sprintf("%s/repos/%s/%s/issues?%s", baseURL, owner, repo, params.Encode())
	if err := c.getJSON(ctx, installationID, apiURL, &raw); err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	issues := make([]Issue, 0, len(raw))
	for _, issue := range raw {
		if issue.PullRequest != nil {
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// EnsureLabel creates a label in the repository if it does not already exist.
func (c *Client) EnsureLabel(ctx context.Context, installationID int64, owner, repo string, label Label) error {
	client, err := c.getInstallationClient(installationID)
	if err != nil {
		return err
	}

	// Probe for the label first; 404 means it needs to be created.
	checkURL := fmt.Sprintf("%s/repos/%s/%s/labels/%s", baseURL, owner, repo, url.PathEscape(label.Name))
	req, err := http.NewRequestWithContext(ctx, "GET", checkURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to check label: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to check label: status %d", resp.StatusCode)
	}

	createURL := fmt.Sprintf("%s/repos/%s/%s/labels", baseURL, owner, repo)
	if err := c.postJSON(ctx, installationID, createURL, label, nil); err != nil {
		return fmt.Errorf("failed to create label %q: %w", label.Name, err)
	}
	return nil
}

// AddLabels attaches labels to an issue. The labels must already exist.
func (c *Client) AddLabels(ctx context.Context, installationID int64, owner, repo string, number int, names []string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/labels", baseURL, owner, repo, number)
	payload := map[string][]string{"labels": names}
	if err := c.postJSON(ctx, installationID, url, payload, nil); err != nil {
		return fmt.Errorf("failed to add labels: %w", err)
	}
	return nil
}

// GetRepositoryTree fetches the recursive file tree of the repository at ref.
func (c *Client) GetRepositoryTree(ctx context.Context, installationID int64, owner, repo, ref string) (*Tree, error) {
	var tree Tree
	url := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", baseURL, owner, repo, ref)
	if err := c.getJSON(ctx, installationID, url, &tree); err != nil {
		return nil, fmt.Errorf("failed to fetch repository tree: %w", err)
	}
	return &tree, nil
}

// FetchFileContent fetches the content of a file from a repository.
// Returns "" with no error if the file does not exist.
func (c *Client) FetchFileContent(ctx context.Context, installationID int64, owner, repo, path, ref string) (string, error) {
	client, err := c.getInstallationClient(installationID)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s", baseURL, owner, repo, path, ref)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil // File doesn't exist
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to fetch file: status %d, body: %s", resp.StatusCode, string(body))
	}

	var content FileContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return "", fmt.Errorf("failed to decode file content: %w", err)
	}

	if content.Encoding != "base64" {
		return "", fmt.Errorf("unsupported encoding: %s", content.Encoding)
	}

	decoded, err := base64.StdEncoding.DecodeString(content.Content)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 content: %w", err)
	}

	return string(decoded), nil
}

// FetchMultipleFiles fetches multiple files with bounded parallelism.
// Returns a map of path -> content. Missing files are not included in the map.
func (c *Client) FetchMultipleFiles(ctx context.Context, installationID int64, owner, repo string, paths []string, ref string) (map[string]string, error) {
	result := make(map[string]string)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(maxConcurrentFetches)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			content, err := c.FetchFileContent(gctx, installationID, owner, repo, path, ref)
			if err != nil {
				// Missing or unreadable files are expected; skip them.
				return nil
			}
			if content != "" {
				mu.Lock()
				result[path] = content
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// workflowJobsResponse is the envelope of the workflow jobs API.
type workflowJobsResponse struct {
	TotalCount int           `json:"total_count"`
	Jobs       []WorkflowJob `json:"jobs"`
}

// ListWorkflowJobs fetches the jobs of a workflow run, including steps.
func (c *Client) ListWorkflowJobs(ctx context.Context, installationID int64, owner, repo string, runID int64) ([]WorkflowJob, error) {
	var resp workflowJobsResponse
	url := fmt.Sprintf("%s/repos/%s/%s/actions/runs/%d/jobs", baseURL, owner, repo, runID)
	if err := c.getJSON(ctx, installationID, url, &resp); err != nil {
		return nil, fmt.Errorf("failed to list workflow jobs: %w", err)
	}
	return resp.Jobs, nil
}

// listPullRequests fetches pull requests filtered by state and head branch.
func (c *Client) listPullRequests(ctx context.Context, installationID int64, owner, repo, state, headBranch string) ([]PullRequest, error) {
	params := url.Values{}
	params.Set("state", state)
	params.Set("per_page", "50")
	if headBranch != "" {
		params.Set("head", owner+":"+headBranch)
	}

	var prs []PullRequest
	apiURL := fmt.Sprintf("%s/repos/%s/%s/pulls?%s", baseURL, owner, repo, params.Encode())
	if err := c.getJSON(ctx, installationID, apiURL, &prs); err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}
	return prs, nil
}

// FindPullRequestForRun locates the pull request a workflow run belongs to
// by matching head branch and head SHA, checking open PRs first and falling
// back to closed ones. Returns nil if no PR matches.
func (c *Client) FindPullRequestForRun(ctx context.Context, installationID int64, owner, repo, headBranch, headSHA string) (*PullRequest, error) {
	for _, state := range []string{"open", "closed"} {
		prs, err := c.listPullRequests(ctx, installationID, owner, repo, state, headBranch)
		if err != nil {
			return nil, err
		}
		for i := range prs {
			if prs[i].Head != nil && prs[i].Head.SHA == headSHA {
				return &prs[i], nil
			}
		}
	}
	return nil, nil
}
