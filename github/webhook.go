package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSignature indicates the webhook signature verification failed.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMissingSignature indicates the webhook signature header is missing.
	ErrMissingSignature = errors.New("missing webhook signature")
)

// WebhookHandler verifies and parses GitHub webhook deliveries.
type WebhookHandler struct {
	secret []byte
}

// NewWebhookHandler creates a new webhook handler with the given secret.
func NewWebhookHandler(secret string) *WebhookHandler {
	return &WebhookHandler{
		secret: []byte(secret),
	}
}

// VerifySignature verifies the webhook payload signature.
// The signature header should be in the format "sha256=<hex-encoded-signature>".
func (h *WebhookHandler) VerifySignature(payload []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return ErrMissingSignature
	}

	parts := strings.SplitN(signatureHeader, "=", 2)
	if len(parts) != 2 || parts[0] != "sha256" {
		return ErrInvalidSignature
	}

	signature, err := hex.DecodeString(parts[1])
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	// hmac.Equal is constant time
	if !hmac.Equal(signature, expected) {
		return ErrInvalidSignature
	}

	return nil
}

// ParsePullRequestEvent parses a pull_request webhook payload.
func (h *WebhookHandler) ParsePullRequestEvent(payload []byte) (*PullRequestEvent, error) {
	var event PullRequestEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	if event.PullRequest == nil {
		return nil, errors.New("payload is not a pull request event")
	}
	if event.Repository == nil {
		return nil, errors.New("payload is missing repository")
	}
	if event.Repository.Owner == nil {
		return nil, errors.New("payload is missing repository owner")
	}

	return &event, nil
}

// ShouldReviewPullRequest reports whether a pull_request action should
// trigger an automatic review: opened, synchronize, reopened.
func ShouldReviewPullRequest(action string) bool {
	switch action {
	case "opened", "synchronize", "reopened":
		return true
	default:
		return false
	}
}

// ParseIssueCommentEvent parses an issue_comment webhook payload.
func (h *WebhookHandler) ParseIssueCommentEvent(payload []byte) (*IssueCommentEvent, error) {
	var event IssueCommentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse issue comment payload: %w", err)
	}

	if event.Comment == nil {
		return nil, errors.New("payload is missing comment")
	}
	if event.Issue == nil {
		return nil, errors.New("payload is missing issue")
	}
	if event.Repository == nil {
		return nil, errors.New("payload is missing repository")
	}
	if event.Repository.Owner == nil {
		return nil, errors.New("payload is missing repository owner")
	}
	if event.Sender == nil {
		return nil, errors.New("payload is missing sender")
	}

	return &event, nil
}

// ParseWorkflowRunEvent parses a workflow_run webhook payload.
func (h *WebhookHandler) ParseWorkflowRunEvent(payload []byte) (*WorkflowRunEvent, error) {
	var event WorkflowRunEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse workflow run payload: %w", err)
	}

	if event.WorkflowRun == nil {
		return nil, errors.New("payload is missing workflow_run")
	}
	if event.Repository == nil {
		return nil, errors.New("payload is missing repository")
	}
	if event.Repository.Owner == nil {
		return nil, errors.New("payload is missing repository owner")
	}

	return &event, nil
}

// IsPullRequestComment reports whether an issue_comment event originated on
// a pull request rather than a plain issue.
func IsPullRequestComment(event *IssueCommentEvent) bool {
	return event.Issue != nil && event.Issue.PullRequest != nil
}
