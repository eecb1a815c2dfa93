// Package main provides a standalone HTTP server for self-hosted Ansieyes deployments.
//
// Configuration via environment variables:
//
//	GITHUB_APP_ID         - GitHub App ID (required)
//	GITHUB_WEBHOOK_SECRET - Webhook signature verification secret (required)
//	GITHUB_PRIVATE_KEY    - GitHub App private key in PEM format (required)
//	ANTHROPIC_API_KEY     - Anthropic API key for Claude (required)
//	PROMPTS_CONFIG        - Path to the prompts YAML file (optional)
//	PORT                  - HTTP server port (default: 8080)
//	BOT_NAME              - Bot username, used to skip its own comments (default: ansieyes)
//
// Usage:
//
//	go run cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

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
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := initialize(); err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	// Set up routes
	mux := http.NewServeMux()
	dispatcher.Routes(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second, // Long timeout for Claude API calls
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func initialize() error {
	// Load required config from environment
	webhookSecret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	if webhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET is required")
	}

	privateKey := os.Getenv("GITHUB_PRIVATE_KEY")
	if privateKey == "" {
		return fmt.Errorf("GITHUB_PRIVATE_KEY is required")
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

	// Verify the API key before accepting webhooks
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := llm.ValidateAPIKey(ctx, claudeAPIKey); err != nil {
		return fmt.Errorf("ANTHROPIC_API_KEY validation failed: %w", err)
	}

	// A missing or broken prompts file degrades to built-in defaults
	library := prompts.Load(os.Getenv("PROMPTS_CONFIG"), logger)

	webhookHandler := github.NewWebhookHandler(webhookSecret)
	githubClient := github.NewClient(appID, []byte(privateKey))
	llmClient := llm.NewClient(claudeAPIKey, logger)

	reviewer := review.NewReviewer(githubClient, llmClient, library, logger)
	triager := triage.NewTriager(githubClient, llmClient, library, logger)

	dispatcher = dispatch.NewDispatcher(webhookHandler, reviewer, triager, githubClient, botName, logger)

	logger.Info("initialized",
		"app_id", appID,
		"bot_name", botName,
	)

	return nil
}
