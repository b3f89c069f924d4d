// Package sanitize cleans transcript-derived text before it is echoed
// back into a hook decision.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTopicRunes bounds a topic as shown in a hook reason.
const MaxTopicRunes = 80

var xmlTagPattern = regexp.MustCompile(
	`</?(?:local-command-(?:stdout|stderr|caveat)|command-(?:output|name|args|message)|` +
		`system-reminder|task-(?:id|notification)|persisted-output|thinking|tool-use-id|` +
		`tool|skill-name|plugin-id)[^>]*>`,
)

var spacePattern = regexp.MustCompile(`\s+`)

// StripTags removes Claude Code XML wrapper tags from text.
func StripTags(text string) string {
	return strings.TrimSpace(xmlTagPattern.ReplaceAllString(text, ""))
}

// Topic strips wrapper tags, collapses whitespace, and truncates to
// MaxTopicRunes with a trailing ellipsis.
func Topic(s string) string {
	s = spacePattern.ReplaceAllString(StripTags(s), " ")
	if utf8.RuneCountInString(s) <= MaxTopicRunes {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:MaxTopicRunes-1])) + "…"
}

// Topics applies Topic to each entry, dropping those left empty.
func Topics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = Topic(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
