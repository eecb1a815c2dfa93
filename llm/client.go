// Package llm wraps the Anthropic API behind a single synchronous Generate call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultModel is the Claude model used for reviews and triage.
	DefaultModel = "claude-sonnet-4-20250514"

	// APITimeout is the maximum time to wait for an API response.
	APITimeout = 3 * time.Minute

	// MaxRetries is the number of times to retry transient API failures.
	MaxRetries = 3

	// RetryBaseDelay is the initial delay between retries (doubles each attempt).
	RetryBaseDelay = 1 * time.Second
)

// Generator is the single operation the orchestrators consume.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Client calls the Anthropic Messages API.
type Client struct {
	apiKey string
	model  string
	logger *slog.Logger
}

// NewClient creates a new LLM client.
func NewClient(apiKey string, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		model:  DefaultModel,
		logger: logger,
	}
}

// SetModel overrides the default model.
func (c *Client) SetModel(model string) {
	c.model = model
}

// isRetryableError checks if an error is transient and worth retrying.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// Retry on rate limits, server errors, and network issues
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		errors.Is(err, context.DeadlineExceeded)
}

// retryWithBackoff executes fn with exponential backoff on retryable errors.
func retryWithBackoff[T any](ctx context.Context, logger *slog.Logger, operation string, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if !isRetryableError(lastErr) {
			return result, lastErr
		}

		if attempt < MaxRetries {
			delay := RetryBaseDelay * time.Duration(1<<attempt)
			logger.Warn("retrying after transient error",
				"operation", operation,
				"attempt", attempt+1,
				"max_attempts", MaxRetries+1,
				"delay", delay,
				"error", lastErr,
			)

			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return result, fmt.Errorf("max retries exceeded for %s: %w", operation, lastErr)
}

// Generate sends a single prompt and returns the text response.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	client := anthropic.NewClient(option.WithAPIKey(c.apiKey))

	timeoutCtx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(c.model)),
		MaxTokens: anthropic.F(int64(4096)),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		}),
	}
	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(system),
		})
	}

	message, err := retryWithBackoff(timeoutCtx, c.logger, "generate", func() (*anthropic.Message, error) {
		return client.Messages.New(timeoutCtx, params)
	})
	if err != nil {
		return "", fmt.Errorf("LLM API error: %w", err)
	}

	c.logger.Info("LLM API usage",
		"input_tokens", message.Usage.InputTokens,
		"output_tokens", message.Usage.OutputTokens,
	)

	for _, block := range message.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in LLM response")
}
