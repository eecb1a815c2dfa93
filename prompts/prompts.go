// Package prompts handles loading prompt profiles and selecting one per repository.
package prompts

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultProfileName is the profile used when no mapping pattern matches.
const DefaultProfileName = "default"

// ProfileParseError indicates a profile configuration file exists but
// contains invalid content. This is distinct from "file not found" errors.
type ProfileParseError struct {
	Path string
	Err  error
}

func (e *ProfileParseError) Error() string {
	return fmt.Sprintf("invalid prompt config at %s: %v", e.Path, e.Err)
}

func (e *ProfileParseError) Unwrap() error {
	return e.Err
}

// Profile is a named bundle of prompt templates.
type Profile struct {
	// SystemRole sets the reviewer persona for LLM calls.
	SystemRole string `yaml:"system_role"`
	// ReviewStructure describes the sections a review response must contain.
	ReviewStructure string `yaml:"review_structure"`
	// WorkflowAnalysis is the template for workflow-run analysis prompts.
	WorkflowAnalysis string `yaml:"workflow_analysis"`
}

// mappingGroup is one profile's ordered pattern list.
type mappingGroup struct {
	name     string
	patterns []*regexp.Regexp
}

// Library holds the loaded profiles and the ordered repo mappings.
// A Library is immutable after construction and safe for concurrent use.
type Library struct {
	groups   []mappingGroup
	profiles map[string]Profile
	logger   *slog.Logger
}

// document is the on-disk shape of the prompt configuration resource.
type document struct {
	RepoMappings yaml.Node          `yaml:"repo_mappings"`
	Prompts      map[string]Profile `yaml:"prompts"`
}

// Load reads the profile configuration from path. On any failure (missing
// file, unreadable, malformed, no default profile, bad regex) it logs a
// warning and returns the built-in default library; it never fails.
func Load(path string, logger *slog.Logger) *Library {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("prompt config unavailable, using built-in default profile",
			"path", path,
			"error", err,
		)
		return DefaultLibrary(logger)
	}

	lib, err := Parse(data, logger)
	if err != nil {
		logger.Warn("prompt config invalid, using built-in default profile",
			"path", path,
			"error", &ProfileParseError{Path: path, Err: err},
		)
		return DefaultLibrary(logger)
	}
	return lib
}

// Parse parses a profile configuration document.
// The declared order of repo_mappings entries is preserved for selection.
func Parse(data []byte, logger *slog.Logger) (*Library, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse prompt config: %w", err)
	}

	if _, ok := doc.Prompts[DefaultProfileName]; !ok {
		return nil, fmt.Errorf("prompts section must contain a %q entry", DefaultProfileName)
	}

	groups, err := parseMappings(&doc.RepoMappings)
	if err != nil {
		return nil, err
	}

	return &Library{
		groups:   groups,
		profiles: doc.Prompts,
		logger:   logger,
	}, nil
}

// parseMappings decodes the repo_mappings node preserving declaration order.
// yaml.v3 mapping nodes alternate key and value in Content.
func parseMappings(node *yaml.Node) ([]mappingGroup, error) {
	if node.Kind == 0 {
		return nil, nil // section absent: every repo gets the default profile
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("repo_mappings must be a mapping")
	}

	var groups []mappingGroup
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value

		var raw []string
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return nil, fmt.Errorf("repo_mappings.%s must be a list of patterns: %w", name, err)
		}

		group := mappingGroup{name: name}
		for _, p := range raw {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("repo_mappings.%s has invalid pattern %q: %w", name, p, err)
			}
			group.patterns = append(group.patterns, re)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Select maps a repository identifier (URL or full name) to a profile name.
// Groups are evaluated in declared order, patterns in listed order; the first
// match wins. No match selects the default profile.
func (l *Library) Select(repoID string) string {
	for _, group := range l.groups {
		for _, re := range group.patterns {
			if re.MatchString(repoID) {
				l.logger.Info("prompt profile matched",
					"repo", repoID,
					"pattern", re.String(),
					"profile", group.name,
				)
				return group.name
			}
		}
	}
	l.logger.Info("no prompt profile matched, using default", "repo", repoID)
	return DefaultProfileName
}

// Profile returns the named profile, falling back to the default profile
// when the name has no prompts entry (a mapping may reference a profile
// that was never given templates).
func (l *Library) Profile(name string) Profile {
	if p, ok := l.profiles[name]; ok {
		return p
	}
	return l.profiles[DefaultProfileName]
}

// SelectProfile resolves the repository identifier straight to a profile.
func (l *Library) SelectProfile(repoID string) Profile {
	return l.Profile(l.Select(repoID))
}

const defaultSystemRole = `You are an expert software engineer reviewing code and triaging issues for a development team. Be precise, concise, and actionable. Focus on bugs, security vulnerabilities, and significant design problems; skip style nitpicks.`

const defaultReviewStructure = `Structure your review with these exact markdown sections:

## Overall Assessment
One or two sentences on the overall quality and risk of the change.

## Issues Found
A bulleted list, each item formatted as "- [SEVERITY] path/to/file: description".
SEVERITY is one of CRITICAL, HIGH, MEDIUM, LOW. If there are no issues, write "None".

## Suggestions
A bulleted list of optional improvements. If there are none, write "None".`

const defaultWorkflowAnalysis = `A GitHub Actions workflow has completed. Analyze the outcome below and explain, in a short markdown report, what happened, why any jobs failed, and what the author should do next. Keep it under 300 words.`

// DefaultLibrary returns the built-in single-profile library used when the
// configuration resource cannot be loaded.
func DefaultLibrary(logger *slog.Logger) *Library {
	return &Library{
		profiles: map[string]Profile{
			DefaultProfileName: {
				SystemRole:       defaultSystemRole,
				ReviewStructure:  defaultReviewStructure,
				WorkflowAnalysis: defaultWorkflowAnalysis,
			},
		},
		logger: logger,
	}
}
