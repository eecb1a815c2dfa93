package triage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ansieyes/ansieyes/llm"
	"github.com/ansieyes/ansieyes/prompts"
)

// Triager orchestrates the five-stage issue triage pipeline.
type Triager struct {
	gh      GitHubClient
	llm     llm.Generator
	library *prompts.Library
	logger  *slog.Logger
}

// NewTriager creates a new Triager.
func NewTriager(gh GitHubClient, gen llm.Generator, library *prompts.Library, logger *slog.Logger) *Triager {
	return &Triager{
		gh:      gh,
		llm:     gen,
		library: library,
		logger:  logger,
	}
}

// profile resolves the prompt profile for the repository being triaged.
func (t *Triager) profile(input *Input) prompts.Profile {
	return t.library.SelectProfile(input.RepoID)
}

// TriageIssue runs the pipeline over one issue and posts a single
// consolidated comment. Only an unreachable repository (config stage)
// aborts the run; every other stage fails soft, recording its reason and
// contributing nothing, and the pipeline continues.
func (t *Triager) TriageIssue(ctx context.Context, input *Input) (*Result, error) {
	t.logger.Info("starting issue triage",
		"owner", input.Owner,
		"repo", input.Repo,
		"issue", input.IssueNumber,
	)

	result := newResult()

	// Stage 1: config fetch. An unreachable repository tree is the one
	// fail-hard condition in the pipeline.
	tree, err := t.gh.GetRepositoryTree(ctx, input.InstallationID, input.Owner, input.Repo, input.DefaultBranch)
	if err != nil {
		return result, t.failHard(ctx, input, fmt.Errorf("repository is not accessible: %w", err))
	}
	cfg := t.loadRepoConfig(ctx, input, result)

	// Stage 2: duplicate check. A high-confidence duplicate is surfaced
	// but does not short-circuit the remaining stages.
	candidates, err := t.checkDuplicates(ctx, input)
	if err != nil {
		t.logger.Warn("duplicate check failed", "error", err)
		result.recordError(StageDuplicates, err)
	} else {
		result.DuplicateCandidates = candidates
	}

	// Stage 3: librarian.
	files, err := t.runLibrarian(ctx, input, tree, cfg)
	if err != nil {
		t.logger.Warn("librarian pass failed", "error", err)
		result.recordError(StageLibrarian, err)
	} else {
		result.LibrarianFiles = files
	}

	// Stage 4: surgeon, guarded against prompt injection.
	t.runSurgeonStage(ctx, input, result)

	// Stage 5: labels.
	labels := DeriveLabels(result)
	applied, err := t.applyLabels(ctx, input, labels)
	result.AppliedLabels = applied
	if err != nil {
		t.logger.Warn("label application incomplete", "error", err)
		result.recordError(StageLabels, err)
	}

	comment := FormatTriageComment(result)
	if _, err := t.gh.CreateIssueComment(ctx, input.InstallationID, input.Owner, input.Repo, input.IssueNumber, comment); err != nil {
		return result, fmt.Errorf("failed to post triage comment: %w", err)
	}

	t.logger.Info("triage complete",
		"issue", input.IssueNumber,
		"duplicates", len(result.DuplicateCandidates),
		"files", len(result.LibrarianFiles),
		"labels", len(result.AppliedLabels),
		"stage_errors", len(result.StageErrors),
	)
	return result, nil
}

// loadRepoConfig fetches the optional per-repository configuration files.
// Absence of either file is not an error; fetch or parse problems fall back
// to defaults and are recorded as a soft failure.
func (t *Triager) loadRepoConfig(ctx context.Context, input *Input, result *Result) *RepoConfig {
	cfg := DefaultRepoConfig()

	content, err := t.gh.FetchFileContent(ctx, input.InstallationID, input.Owner, input.Repo, ConfigFilePath, input.DefaultBranch)
	if err != nil {
		t.logger.Warn("failed to fetch triage config, using defaults", "error", err)
		result.recordError(StageConfig, err)
	} else if content != "" {
		parsed, err := ParseRepoConfig([]byte(content))
		if err != nil {
			t.logger.Warn("invalid triage config, using defaults", "error", err)
			result.recordError(StageConfig, err)
		} else {
			cfg = parsed
		}
	}

	omit, err := t.gh.FetchFileContent(ctx, input.InstallationID, input.Owner, input.Repo, OmitFilePath, input.DefaultBranch)
	if err != nil {
		t.logger.Warn("failed to fetch omit list, ignoring", "error", err)
	} else if omit != "" {
		cfg.OmitDirectories = mergeOmitDirs(cfg.OmitDirectories, ParseOmitList(omit))
	}

	return cfg
}

// runSurgeonStage handles the surgeon pass including its skip conditions:
// no librarian files, or the injection guard firing on the issue text or
// the fetched file contents.
func (t *Triager) runSurgeonStage(ctx context.Context, input *Input, result *Result) {
	if len(result.LibrarianFiles) == 0 {
		t.logger.Info("surgeon pass skipped, librarian found no files")
		result.SurgeonSkipped = true
		return
	}

	contents, err := t.gh.FetchMultipleFiles(ctx, input.InstallationID, input.Owner, input.Repo, result.LibrarianFiles, input.DefaultBranch)
	if err != nil {
		t.logger.Warn("failed to fetch librarian files", "error", err)
		result.recordError(StageSurgeon, fmt.Errorf("fetching file contents: %w", err))
		return
	}

	texts := []string{input.IssueBody}
	for _, content := range contents {
		texts = append(texts, content)
	}
	if scan := ScanForInjection(texts...); scan.Blocked() {
		t.logger.Warn("prompt injection detected, skipping surgeon pass",
			"risk", scan.Risk.String(),
			"marker", scan.Marker,
		)
		result.InjectionBlocked = true
		return
	}

	analysis, err := t.runSurgeon(ctx, input, result.LibrarianFiles, contents)
	if err != nil {
		t.logger.Warn("surgeon pass failed", "error", err)
		result.recordError(StageSurgeon, err)
		return
	}
	result.Surgeon = analysis
}

// failHard posts a single error comment and aborts the pipeline.
func (t *Triager) failHard(ctx context.Context, input *Input, err error) error {
	t.logger.Error("triage aborted", "error", err)

	body := fmt.Sprintf("❌ **Issue Triage Failed**\n\nThe repository could not be analyzed:\n\n```\n%v\n```", err)
	if _, postErr := t.gh.CreateIssueComment(ctx, input.InstallationID, input.Owner, input.Repo, input.IssueNumber, body); postErr != nil {
		t.logger.Error("failed to post triage error comment", "error", postErr)
	}
	return err
}
