package triage

import (
	"testing"
)

func TestParseRepoConfig(t *testing.T) {
	t.Run("valid config merges defaults", func(t *testing.T) {
		content := []byte(`{
			"repository": {"url": "https://github.com/owner/repo", "description": "a service"},
			"omit_directories": ["generated", "testdata"]
		}`)

		cfg, err := ParseRepoConfig(content)
		if err != nil {
			t.Fatalf("ParseRepoConfig() error = %v", err)
		}
		if cfg.Repository.Description != "a service" {
			t.Errorf("Description = %q", cfg.Repository.Description)
		}

		// Defaults come first, configured additions after.
		if !cfg.IsOmitted("node_modules/pkg/index.js") {
			t.Error("default omit set must be preserved")
		}
		if !cfg.IsOmitted("generated/api.go") {
			t.Error("configured directories must be omitted")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := ParseRepoConfig([]byte(`{broken`)); err == nil {
			t.Error("ParseRepoConfig() expected error")
		}
	})

	t.Run("duplicates are dropped", func(t *testing.T) {
		cfg, err := ParseRepoConfig([]byte(`{"omit_directories": ["vendor", "vendor", "dist"]}`))
		if err != nil {
			t.Fatalf("ParseRepoConfig() error = %v", err)
		}

		count := 0
		for _, dir := range cfg.OmitDirectories {
			if dir == "vendor" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("vendor appears %d times, want 1", count)
		}
	})
}

func TestParseOmitList(t *testing.T) {
	content := `# build artifacts
dist/
coverage

  # editor noise
.cache
`
	got := ParseOmitList(content)
	want := []string{"dist", "coverage", ".cache"}

	if len(got) != len(want) {
		t.Fatalf("ParseOmitList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseOmitList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsOmitted(t *testing.T) {
	cfg := DefaultRepoConfig()
	cfg.OmitDirectories = mergeOmitDirs(cfg.OmitDirectories, []string{"generated"})

	tests := []struct {
		path string
		want bool
	}{
		{"node_modules/react/index.js", true},
		{"src/node_modules/react/index.js", true},
		{"vendor", true},
		{"generated/schema.go", true},
		{"src/main.go", false},
		{"docs/vendor-guide.md", false},
		{"nodejs/main.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := cfg.IsOmitted(tt.path); got != tt.want {
				t.Errorf("IsOmitted(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestMergeOmitDirs(t *testing.T) {
	got := mergeOmitDirs([]string{"a", "b"}, []string{"b/", " c ", "", "a"})
	want := []string{"a", "b", "c"}

	if len(got) != len(want) {
		t.Fatalf("mergeOmitDirs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mergeOmitDirs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
