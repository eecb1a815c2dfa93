package triage

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "shorter than limit unchanged",
			input:  "short",
			maxLen: 10,
			want:   "short",
		},
		{
			name:   "exactly at limit unchanged",
			input:  "exact",
			maxLen: 5,
			want:   "exact",
		},
		{
			name:   "ascii truncated with ellipsis",
			input:  "hello world",
			maxLen: 5,
			want:   "hello...",
		},
		{
			name:   "cut inside multibyte rune backs up",
			input:  "héllo",
			maxLen: 2,
			want:   "h...",
		},
		{
			name:   "cut on rune boundary keeps rune",
			input:  "héllo",
			maxLen: 3,
			want:   "hé...",
		},
		{
			name:   "emoji body stays valid",
			input:  strings.Repeat("🐛", 4),
			maxLen: 6,
			want:   "🐛...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateText(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncateText(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateText(%q, %d) produced invalid UTF-8: %q", tt.input, tt.maxLen, got)
			}
		})
	}
}
