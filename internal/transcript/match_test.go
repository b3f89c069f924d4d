package transcript

import (
	"slices"
	"testing"
)

func TestTopicMatchesFilename(t *testing.T) {
	tests := []struct {
		topic, stem string
		want        bool
	}{
		{"yaml deep merge", "yaml-deep-merge", true},
		{"rust compiler performance", "yaml-deep-merge", false},
		{"the fix is in", "the fix is out", false},
		{"deep", "deep", true},
		{"", "yaml-deep-merge", false},
		{"yaml deep merge", "", false},
		{"Yaml", "yaml", false},
		{"config_loader rewrite", "loader", true},
		{"api db fix", "api-db-fix", false},
		{"forge module alignment", "2026-02-22 module notes", true},
	}
	for _, tt := range tests {
		if got := TopicMatchesFilename(tt.topic, tt.stem); got != tt.want {
			t.Errorf("TopicMatchesFilename(%q, %q) = %v, want %v", tt.topic, tt.stem, got, tt.want)
		}
	}
}

func TestFindUncaptured(t *testing.T) {
	tests := []struct {
		name         string
		a            Analysis
		wantTopics   []string
		wantUntitled int
	}{
		{
			name: "one matched by filename",
			a: Analysis{
				InsightCount:       2,
				InsightTopics:      []string{"YAML Deep Merge", "Rust Compiler Performance"},
				InsightsWriteCount: 1,
				InsightsWritten:    []string{"yaml-deep-merge.md"},
			},
			wantTopics: []string{"Rust Compiler Performance"},
		},
		{
			name: "skipped acknowledges",
			a: Analysis{
				InsightCount:  1,
				InsightTopics: []string{"Rust Compiler Performance"},
				SkippedTopics: []string{"rust compiler performance"},
			},
		},
		{
			name: "captured overlap acknowledges",
			a: Analysis{
				InsightCount:   1,
				InsightTopics:  []string{"Rust Compiler Performance"},
				CapturedTopics: []string{"compiler tuning"},
			},
		},
		{
			name: "untitled exceed writes",
			a: Analysis{
				InsightCount:       3,
				InsightsWriteCount: 1,
				InsightsWritten:    []string{"something.md"},
			},
			wantUntitled: 2,
		},
		{
			name: "spare write covers untitled",
			a: Analysis{
				InsightCount:       2,
				InsightTopics:      []string{"yaml deep merge"},
				InsightsWriteCount: 2,
				InsightsWritten:    []string{"yaml-deep-merge.md", "other note.md"},
			},
		},
		{
			name: "nothing to capture",
			a:    Analysis{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := FindUncaptured(tt.a)
			if !slices.Equal(u.Topics, tt.wantTopics) {
				t.Errorf("topics = %q, want %q", u.Topics, tt.wantTopics)
			}
			if u.Untitled != tt.wantUntitled {
				t.Errorf("untitled = %d, want %d", u.Untitled, tt.wantUntitled)
			}
			if u.Pending() != len(tt.wantTopics)+tt.wantUntitled {
				t.Errorf("pending = %d", u.Pending())
			}
		})
	}
}
