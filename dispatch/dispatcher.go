// Package dispatch routes verified GitHub webhook deliveries to the review
// and triage orchestrators and classifies trigger commands.
package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ansieyes/ansieyes/github"
	"github.com/ansieyes/ansieyes/review"
	"github.com/ansieyes/ansieyes/triage"
)

// ServiceName identifies the bot in health and root responses.
const ServiceName = "ansieyes"

// defaultRunTimeout bounds one background review or triage run.
const defaultRunTimeout = 5 * time.Minute

// ReviewService runs pull request reviews and workflow analysis.
type ReviewService interface {
	ReviewPullRequest(ctx context.Context, input *review.Input) (*review.Result, error)
	AnalyzeWorkflowRun(ctx context.Context, input *review.WorkflowInput) error
}

// TriageService runs the issue triage pipeline.
type TriageService interface {
	TriageIssue(ctx context.Context, input *triage.Input) (*triage.Result, error)
}

// Commenter posts issue comments, used for command validation errors.
type Commenter interface {
	CreateIssueComment(ctx context.Context, installationID int64, owner, repo string, number int, body string) (*github.IssueCommentResponse, error)
}

// Dispatcher is the webhook HTTP layer. It verifies signatures, classifies
// events and commands, acknowledges GitHub immediately, and runs the actual
// work in the background.
type Dispatcher struct {
	webhooks *github.WebhookHandler
	reviewer ReviewService
	triager  TriageService
	gh       Commenter
	botName  string
	logger   *slog.Logger

	runTimeout time.Duration
	// spawn runs a background task; tests replace it to run synchronously.
	spawn func(task func())
}

// NewDispatcher creates a Dispatcher with background execution defaults.
func NewDispatcher(webhooks *github.WebhookHandler, reviewer ReviewService, triager TriageService, gh Commenter, botName string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		webhooks:   webhooks,
		reviewer:   reviewer,
		triager:    triager,
		gh:         gh,
		botName:    botName,
		logger:     logger,
		runTimeout: defaultRunTimeout,
		spawn:      func(task func()) { go task() },
	}
}

// Routes registers the dispatcher's endpoints on mux.
func (d *Dispatcher) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/webhooks/github", d.HandleWebhook)
	mux.HandleFunc("/health", d.HandleHealth)
	mux.HandleFunc("/", d.HandleRoot)
}

// HandleRoot serves a minimal service banner.
func (d *Dispatcher) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{
		"name":   ServiceName,
		"status": "running",
	})
}

// HandleHealth serves the health check endpoint.
func (d *Dispatcher) HandleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

// HandleWebhook receives a GitHub webhook delivery. The signature is
// verified before the payload is interpreted in any way; a bad signature is
// rejected with 401 and no parsing or API calls happen. Recognized events
// are acknowledged with 200 immediately and processed in the background.
func (d *Dispatcher) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		d.logger.Error("failed to read body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == "" {
		http.Error(w, "missing X-GitHub-Event header", http.StatusBadRequest)
		return
	}

	d.logger.Info("received webhook",
		"event", eventType,
		"delivery", r.Header.Get("X-GitHub-Delivery"),
		"size", len(payload),
	)

	signature := r.Header.Get("X-Hub-Signature-256")
	if err := d.webhooks.VerifySignature(payload, signature); err != nil {
		d.logger.Error("signature verification failed", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	switch eventType {
	case "ping":
		jsonResponse(w, http.StatusOK, map[string]string{"message": "pong"})
	case "pull_request":
		d.handlePullRequest(w, payload)
	case "issue_comment":
		d.handleIssueComment(w, payload)
	case "workflow_run":
		d.handleWorkflowRun(w, payload)
	default:
		d.logger.Info("ignoring event", "type", eventType)
		jsonResponse(w, http.StatusOK, map[string]string{"message": "event ignored"})
	}
}

func (d *Dispatcher) handlePullRequest(w http.ResponseWriter, payload []byte) {
	event, err := d.webhooks.ParsePullRequestEvent(payload)
	if err != nil {
		d.logger.Error("failed to parse pull request event", "error", err)
		http.Error(w, "failed to parse event", http.StatusBadRequest)
		return
	}

	if !github.ShouldReviewPullRequest(event.Action) {
		d.logger.Info("skipping pull request event", "action", event.Action)
		jsonResponse(w, http.StatusOK, map[string]string{"message": "event skipped"})
		return
	}
	if event.Installation == nil {
		http.Error(w, "missing installation", http.StatusBadRequest)
		return
	}

	d.logger.Info("processing PR",
		"repo", event.Repository.FullName,
		"pr", event.Number,
		"action", event.Action,
	)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "review started"})

	input := &review.Input{
		InstallationID: event.Installation.ID,
		Owner:          event.Repository.Owner.Login,
		Repo:           event.Repository.Name,
		PRNumber:       event.Number,
		RepoID:         event.Repository.HTMLURL,
	}
	d.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.runTimeout)
		defer cancel()

		if _, err := d.reviewer.ReviewPullRequest(ctx, input); err != nil {
			d.logger.Error("review failed", "error", err)
		}
	})
}

func (d *Dispatcher) handleIssueComment(w http.ResponseWriter, payload []byte) {
	event, err := d.webhooks.ParseIssueCommentEvent(payload)
	if err != nil {
		d.logger.Error("failed to parse issue comment event", "error", err)
		http.Error(w, "failed to parse event", http.StatusBadRequest)
		return
	}

	if event.Action != "created" {
		jsonResponse(w, http.StatusOK, map[string]string{"message": "event ignored"})
		return
	}
	// Never react to the bot's own comments.
	if event.Sender.Login == d.botName {
		jsonResponse(w, http.StatusOK, map[string]string{"message": "own comment ignored"})
		return
	}
	if event.Installation == nil {
		http.Error(w, "missing installation", http.StatusBadRequest)
		return
	}

	entity := EntityIssue
	if github.IsPullRequestComment(event) {
		entity = EntityPullRequest
	}

	inv := ClassifyCommand(event.Comment.Body, entity)
	if inv.Command == CommandNone {
		// Ordinary conversation, not addressed to the bot.
		jsonResponse(w, http.StatusOK, map[string]string{"message": "comment ignored"})
		return
	}

	owner := event.Repository.Owner.Login
	repo := event.Repository.Name
	number := event.Issue.Number
	installationID := event.Installation.ID

	if !inv.Valid {
		d.logger.Info("command used on wrong entity",
			"command", inv.Raw,
			"entity", entity.String(),
			"issue", number,
		)
		jsonResponse(w, http.StatusOK, map[string]string{"message": "validation error posted"})

		body := ValidationErrorComment(inv)
		d.spawn(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if _, err := d.gh.CreateIssueComment(ctx, installationID, owner, repo, number, body); err != nil {
				d.logger.Error("failed to post validation comment", "error", err)
			}
		})
		return
	}

	d.logger.Info("processing command",
		"command", inv.Raw,
		"repo", event.Repository.FullName,
		"issue", number,
		"user", event.Sender.Login,
	)

	switch inv.Command {
	case CommandPRReview:
		jsonResponse(w, http.StatusOK, map[string]string{"message": "review started"})

		input := &review.Input{
			InstallationID: installationID,
			Owner:          owner,
			Repo:           repo,
			PRNumber:       number,
			RepoID:         event.Repository.HTMLURL,
		}
		d.spawn(func() {
			ctx, cancel := context.WithTimeout(context.Background(), d.runTimeout)
			defer cancel()

			if _, err := d.reviewer.ReviewPullRequest(ctx, input); err != nil {
				d.logger.Error("review failed", "error", err)
			}
		})
	case CommandTriage:
		jsonResponse(w, http.StatusOK, map[string]string{"message": "triage started"})

		input := &triage.Input{
			InstallationID: installationID,
			Owner:          owner,
			Repo:           repo,
			IssueNumber:    number,
			IssueTitle:     event.Issue.Title,
			IssueBody:      event.Issue.Body,
			DefaultBranch:  event.Repository.DefaultBranch,
			RepoID:         event.Repository.HTMLURL,
		}
		d.spawn(func() {
			ctx, cancel := context.WithTimeout(context.Background(), d.runTimeout)
			defer cancel()

			if _, err := d.triager.TriageIssue(ctx, input); err != nil {
				d.logger.Error("triage failed", "error", err)
			}
		})
	}
}

func (d *Dispatcher) handleWorkflowRun(w http.ResponseWriter, payload []byte) {
	event, err := d.webhooks.ParseWorkflowRunEvent(payload)
	if err != nil {
		d.logger.Error("failed to parse workflow run event", "error", err)
		http.Error(w, "failed to parse event", http.StatusBadRequest)
		return
	}

	if event.Action != "completed" {
		jsonResponse(w, http.StatusOK, map[string]string{"message": "event ignored"})
		return
	}
	if event.Installation == nil {
		http.Error(w, "missing installation", http.StatusBadRequest)
		return
	}

	d.logger.Info("processing workflow run",
		"repo", event.Repository.FullName,
		"workflow", event.WorkflowRun.Name,
		"conclusion", event.WorkflowRun.Conclusion,
	)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "analysis started"})

	input := &review.WorkflowInput{
		InstallationID: event.Installation.ID,
		Owner:          event.Repository.Owner.Login,
		Repo:           event.Repository.Name,
		RepoID:         event.Repository.HTMLURL,
		Run:            event.WorkflowRun,
	}
	d.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.runTimeout)
		defer cancel()

		if err := d.reviewer.AnalyzeWorkflowRun(ctx, input); err != nil {
			d.logger.Error("workflow analysis failed", "error", err)
		}
	})
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
