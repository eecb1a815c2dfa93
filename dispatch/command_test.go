package dispatch

import (
	"strings"
	"testing"
)

func TestClassifyCommand(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		entity      EntityKind
		wantCommand Command
		wantValid   bool
	}{
		{
			name:        "prreview on pull request",
			body:        `\ansieyes_prreview`,
			entity:      EntityPullRequest,
			wantCommand: CommandPRReview,
			wantValid:   true,
		},
		{
			name:        "triage on issue",
			body:        `\ansieyes_triage`,
			entity:      EntityIssue,
			wantCommand: CommandTriage,
			wantValid:   true,
		},
		{
			name:        "prreview on issue",
			body:        `\ansieyes_prreview`,
			entity:      EntityIssue,
			wantCommand: CommandPRReview,
			wantValid:   false,
		},
		{
			name:        "triage on pull request",
			body:        `\ansieyes_triage`,
			entity:      EntityPullRequest,
			wantCommand: CommandTriage,
			wantValid:   false,
		},
		{
			name:        "surrounding whitespace is trimmed",
			body:        "  \\ansieyes_triage\n",
			entity:      EntityIssue,
			wantCommand: CommandTriage,
			wantValid:   true,
		},
		{
			name:        "extra words",
			body:        `\ansieyes_triage please`,
			entity:      EntityIssue,
			wantCommand: CommandNone,
		},
		{
			name:        "embedded in sentence",
			body:        `could you run \ansieyes_prreview`,
			entity:      EntityPullRequest,
			wantCommand: CommandNone,
		},
		{
			name:        "wrong case",
			body:        `\Ansieyes_Triage`,
			entity:      EntityIssue,
			wantCommand: CommandNone,
		},
		{
			name:        "missing backslash",
			body:        `ansieyes_triage`,
			entity:      EntityIssue,
			wantCommand: CommandNone,
		},
		{
			name:        "unknown command",
			body:        `\ansieyes_deploy`,
			entity:      EntityIssue,
			wantCommand: CommandNone,
		},
		{
			name:        "ordinary conversation",
			body:        "looks good to me",
			entity:      EntityPullRequest,
			wantCommand: CommandNone,
		},
		{
			name:        "empty body",
			body:        "",
			entity:      EntityIssue,
			wantCommand: CommandNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := ClassifyCommand(tt.body, tt.entity)
			if inv.Command != tt.wantCommand {
				t.Errorf("ClassifyCommand() command = %v, want %v", inv.Command, tt.wantCommand)
			}
			if inv.Command != CommandNone && inv.Valid != tt.wantValid {
				t.Errorf("ClassifyCommand() valid = %v, want %v", inv.Valid, tt.wantValid)
			}
		})
	}
}

func TestValidationErrorComment(t *testing.T) {
	t.Run("prreview on issue", func(t *testing.T) {
		inv := ClassifyCommand(`\ansieyes_prreview`, EntityIssue)
		got := ValidationErrorComment(inv)

		if !strings.Contains(got, TriggerPRReview) {
			t.Errorf("comment missing used command: %q", got)
		}
		if !strings.Contains(got, TriggerTriage) {
			t.Errorf("comment missing correct command: %q", got)
		}
	})

	t.Run("triage on pull request", func(t *testing.T) {
		inv := ClassifyCommand(`\ansieyes_triage`, EntityPullRequest)
		got := ValidationErrorComment(inv)

		if !strings.Contains(got, TriggerTriage) {
			t.Errorf("comment missing used command: %q", got)
		}
		if !strings.Contains(got, TriggerPRReview) {
			t.Errorf("comment missing correct command: %q", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		inv := ClassifyCommand(`\ansieyes_triage`, EntityPullRequest)
		first := ValidationErrorComment(inv)
		for i := 0; i < 5; i++ {
			if got := ValidationErrorComment(inv); got != first {
				t.Fatalf("ValidationErrorComment() not deterministic: %q vs %q", got, first)
			}
		}
	})

	t.Run("no command", func(t *testing.T) {
		inv := ClassifyCommand("hello", EntityIssue)
		if got := ValidationErrorComment(inv); got != "" {
			t.Errorf("ValidationErrorComment() = %q, want empty", got)
		}
	})
}
