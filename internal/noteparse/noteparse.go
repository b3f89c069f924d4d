package noteparse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Note is a markdown document split into its YAML frontmatter and body.
type Note struct {
	// Raw frontmatter text between the --- fences, without the fences.
	Front string
	// Fields holds scalar frontmatter values rendered as strings.
	Fields map[string]string
	Body   string
}

// ParseFile reads and parses a note from disk.
func ParseFile(path string) (*Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse splits content into frontmatter and body and decodes the
// frontmatter. A document without a leading --- fence is all body.
func Parse(content string) (*Note, error) {
	front, body := split(content)
	note := &Note{Front: front, Body: body, Fields: map[string]string{}}
	if front == "" {
		return note, nil
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal([]byte(front), &raw); err != nil {
		return note, fmt.Errorf("parse frontmatter: %w", err)
	}
	for k, v := range raw {
		if s, ok := scalarString(v); ok {
			note.Fields[k] = s
		}
	}
	return note, nil
}

// Field returns a frontmatter value, or "" when absent.
func (n *Note) Field(key string) string {
	return n.Fields[key]
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format("2006-01-02"), true
		}
		return x.Format(time.RFC3339), true
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(x), true
	default:
		return "", false
	}
}

// split is the frontmatter state machine: an opening --- on the first
// line, closed by the next --- line.
func split(content string) (front, body string) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", content
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n")
		}
	}
	// Unterminated frontmatter swallows the document.
	return strings.Join(lines[1:], "\n"), ""
}

// StripFrontmatterAndH1 removes the frontmatter block and the first
// "# " heading that follows it.
func StripFrontmatterAndH1(content string) string {
	_, body := split(content)
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") {
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	return strings.Join(lines, "\n")
}

// LoadPattern reads a skill or pattern file relative to base and returns its
// instruction text with frontmatter and title removed. ok is false when the
// file is missing or has no remaining content.
func LoadPattern(base, relative string) (text string, ok bool) {
	data, err := os.ReadFile(filepath.Join(base, relative))
	if err != nil {
		return "", false
	}
	text = strings.TrimSpace(StripFrontmatterAndH1(string(data)))
	return text, text != ""
}
