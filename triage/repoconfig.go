package triage

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// ConfigFilePath is the optional per-repository triage configuration.
	ConfigFilePath = "triage.config.json"
	// OmitFilePath is the optional newline-delimited directory exclusion list.
	OmitFilePath = ".omit-triage"
)

// defaultOmitDirectories is the standard ignore set applied when the
// repository provides no configuration of its own.
var defaultOmitDirectories = []string{
	".git",
	".github",
	".idea",
	".vscode",
	"node_modules",
	"vendor",
	"dist",
	"build",
	"target",
	"__pycache__",
}

// RepoConfig is the per-repository triage configuration, assembled from
// triage.config.json and .omit-triage. Both files are optional; absence
// yields defaults.
type RepoConfig struct {
	Repository struct {
		URL         string `json:"url"`
		Description string `json:"description"`
	} `json:"repository"`
	OmitDirectories []string `json:"omit_directories"`
}

// DefaultRepoConfig returns the configuration used when the repository has
// no triage.config.json.
func DefaultRepoConfig() *RepoConfig {
	cfg := &RepoConfig{}
	cfg.OmitDirectories = append(cfg.OmitDirectories, defaultOmitDirectories...)
	return cfg
}

// ParseRepoConfig parses triage.config.json content. The default ignore set
// is always included; configured directories extend it.
func ParseRepoConfig(content []byte) (*RepoConfig, error) {
	var cfg RepoConfig
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFilePath, err)
	}

	cfg.OmitDirectories = mergeOmitDirs(defaultOmitDirectories, cfg.OmitDirectories)
	return &cfg, nil
}

// ParseOmitList parses a .omit-triage file: one directory per line,
// "#"-prefixed comments and blank lines ignored.
func ParseOmitList(content string) []string {
	var dirs []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dirs = append(dirs, strings.TrimSuffix(line, "/"))
	}
	return dirs
}

// mergeOmitDirs combines directory lists, dropping duplicates while
// preserving first-seen order.
func mergeOmitDirs(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, list := range lists {
		for _, dir := range list {
			dir = strings.TrimSuffix(strings.TrimSpace(dir), "/")
			if dir == "" || seen[dir] {
				continue
			}
			seen[dir] = true
			merged = append(merged, dir)
		}
	}
	return merged
}

// IsOmitted reports whether a file path falls under any omitted directory.
func (c *RepoConfig) IsOmitted(path string) bool {
	for _, dir := range c.OmitDirectories {
		if path == dir || strings.HasPrefix(path, dir+"/") {
			return true
		}
		// Nested occurrences, e.g. "pkg/node_modules/..."
		if strings.Contains(path, "/"+dir+"/") {
			return true
		}
	}
	return false
}
