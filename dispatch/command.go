package dispatch

import (
	"fmt"
	"strings"
)

// EntityKind is the kind of entity a comment was posted on.
type EntityKind int

const (
	// EntityIssue is a plain GitHub issue.
	EntityIssue EntityKind = iota
	// EntityPullRequest is a pull request.
	EntityPullRequest
)

// String returns a human-readable name for the entity kind.
func (k EntityKind) String() string {
	if k == EntityPullRequest {
		return "pull request"
	}
	return "issue"
}

// Command is a recognized trigger command.
type Command int

const (
	// CommandNone means the comment is not a trigger command.
	CommandNone Command = iota
	// CommandPRReview triggers a pull request review.
	CommandPRReview
	// CommandTriage triggers the issue triage pipeline.
	CommandTriage
)

// Trigger command literals. Matching is exact on the trimmed comment body
// and case-sensitive; any extra content yields CommandNone.
const (
	TriggerPRReview = `\ansieyes_prreview`
	TriggerTriage   = `\ansieyes_triage`
)

// CommandInvocation is the result of classifying a comment.
type CommandInvocation struct {
	// Raw is the original comment body.
	Raw string
	// Command is the resolved trigger command, or CommandNone.
	Command Command
	// Entity is the kind of entity the comment was posted on.
	Entity EntityKind
	// Valid is true when the command's required entity kind matches Entity.
	// Meaningless when Command is CommandNone.
	Valid bool
}

// requiredEntity maps each command to the entity kind it operates on.
func requiredEntity(cmd Command) EntityKind {
	if cmd == CommandPRReview {
		return EntityPullRequest
	}
	return EntityIssue
}

// ClassifyCommand inspects a comment body and the entity it was posted on.
// A command is recognized only when the trimmed body equals one of the
// trigger literals exactly; partial matches, extra words, and case
// variations all classify as CommandNone and are ignored silently.
func ClassifyCommand(body string, entity EntityKind) CommandInvocation {
	inv := CommandInvocation{
		Raw:     body,
		Command: CommandNone,
		Entity:  entity,
	}

	switch strings.TrimSpace(body) {
	case TriggerPRReview:
		inv.Command = CommandPRReview
	case TriggerTriage:
		inv.Command = CommandTriage
	default:
		return inv
	}

	inv.Valid = requiredEntity(inv.Command) == entity
	return inv
}

// ValidationErrorComment renders the fixed-format comment posted when a
// command is used on the wrong entity kind. It names the offending command
// and the one appropriate for that entity.
func ValidationErrorComment(inv CommandInvocation) string {
	var used, correct string
	switch inv.Command {
	case CommandPRReview:
		used, correct = TriggerPRReview, TriggerTriage
	case CommandTriage:
		used, correct = TriggerTriage, TriggerPRReview
	default:
		return ""
	}

	return fmt.Sprintf("⚠️ `%s` only works on %ss. On a %s, use `%s` instead.",
		used, requiredEntity(inv.Command), inv.Entity, correct)
}
