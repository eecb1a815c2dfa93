package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/ansieyes/ansieyes/github"
)

// Label names applied by the pipeline.
const (
	LabelTriaged          = "ai-triaged"
	LabelDuplicate        = "duplicate"
	LabelInjectionBlocked = "Prompt injection blocked"
)

// labelColors is the fixed color mapping used when a label has to be created.
var labelColors = map[string]string{
	LabelTriaged:          "0E8A16",
	LabelDuplicate:        "CFD3D7",
	LabelInjectionBlocked: "B60205",
	"bug":                 "D73A4A",
	"enhancement":         "A2EEEF",
	"feature-request":     "7057FF",
	"severity: critical":  "B60205",
	"severity: high":      "D93F0B",
	"severity: medium":    "FBCA04",
	"severity: low":       "C2E0C6",
}

// typeLabels maps surgeon issue types to label names.
var typeLabels = map[string]string{
	"BUG":             "bug",
	"ENHANCEMENT":     "enhancement",
	"FEATURE_REQUEST": "feature-request",
}

// DeriveLabels computes the label set from the stage outcomes. It is a pure
// function of the result: ai-triaged always, duplicate iff the top candidate
// met the threshold, type/severity iff the surgeon classified, and the
// injection label iff the guard fired.
func DeriveLabels(result *Result) []string {
	labels := []string{LabelTriaged}

	if result.HasDuplicate() {
		labels = append(labels, LabelDuplicate)
	}
	if result.Surgeon != nil {
		if name, ok := typeLabels[result.Surgeon.Type]; ok {
			labels = append(labels, name)
		}
		labels = append(labels, "severity: "+strings.ToLower(result.Surgeon.Severity))
	}
	if result.InjectionBlocked {
		labels = append(labels, LabelInjectionBlocked)
	}
	return labels
}

// applyLabels ensures each label exists then attaches it, one at a time so
// a single failure does not block the rest. Returns the labels successfully
// attached and an error summarizing any failures.
func (t *Triager) applyLabels(ctx context.Context, input *Input, labels []string) ([]string, error) {
	var applied []string
	var failures []string

	for _, name := range labels {
		label := github.Label{Name: name, Color: labelColors[name]}
		if err := t.gh.EnsureLabel(ctx, input.InstallationID, input.Owner, input.Repo, label); err != nil {
			t.logger.Warn("failed to ensure label", "label", name, "error", err)
			failures = append(failures, name)
			continue
		}
		if err := t.gh.AddLabels(ctx, input.InstallationID, input.Owner, input.Repo, input.IssueNumber, []string{name}); err != nil {
			t.logger.Warn("failed to attach label", "label", name, "error", err)
			failures = append(failures, name)
			continue
		}
		applied = append(applied, name)
	}

	if len(failures) > 0 {
		return applied, fmt.Errorf("failed to apply labels: %s", strings.Join(failures, ", "))
	}
	return applied, nil
}
