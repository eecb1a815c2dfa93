// Package main provides a local development server for testing webhooks.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/ansieyes/ansieyes/dispatch"
	"github.com/ansieyes/ansieyes/github"
	"github.com/ansieyes/ansieyes/llm"
	"github.com/ansieyes/ansieyes/prompts"
	"github.com/ansieyes/ansieyes/review"
	"github.com/ansieyes/ansieyes/triage"
)

var (
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if err := initialize(); err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	dispatcher.Routes(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("starting local server", "port", port)
	logger.Info("webhook endpoint", "url", fmt.Sprintf("http://localhost:%s/webhooks/github", port))

	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func initialize() error {
	// Load config from environment variables
	webhookSecret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	if webhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET is required")
	}

	privateKeyPath := os.Getenv("GITHUB_PRIVATE_KEY_PATH")
	if privateKeyPath == "" {
		return fmt.Errorf("GITHUB_PRIVATE_KEY_PATH is required")
	}

	privateKey, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return fmt.Errorf("failed to read private key from %s: %w", privateKeyPath, err)
	}

	claudeAPIKey := os.Getenv("ANTHROPIC_API_KEY")
	if claudeAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}

	appIDStr := os.Getenv("GITHUB_APP_ID")
	if appIDStr == "" {
		return fmt.Errorf("GITHUB_APP_ID is required")
	}

	appID, err := strconv.ParseInt(appIDStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid GITHUB_APP_ID: %w", err)
	}

	botName := os.Getenv("BOT_NAME")
	if botName == "" {
		botName = "ansieyes"
	}

	library := prompts.Load(os.Getenv("PROMPTS_CONFIG"), logger)

	webhookHandler := github.NewWebhookHandler(webhookSecret)
	githubClient := github.NewClient(appID, privateKey)
	llmClient := llm.NewClient(claudeAPIKey, logger)

	// Optional: override the default Claude model
	if model := os.Getenv("ANTHROPIC_MODEL"); model != "" {
		llmClient.SetModel(model)
	}

	reviewer := review.NewReviewer(githubClient, llmClient, library, logger)
	triager := triage.NewTriager(githubClient, llmClient, library, logger)

	dispatcher = dispatch.NewDispatcher(webhookHandler, reviewer, triager, githubClient, botName, logger)

	logger.Info("initialized", "app_id", appID, "bot_name", botName)
	return nil
}
