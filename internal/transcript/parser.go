package transcript

import (
	"encoding/json"
	"strings"
	"time"
)

// timestampFields are checked in order for the record timestamp.
var timestampFields = []string{"timestamp", "ts", "created_at"}

// textItemTypes are the content item tags that carry plain text. An
// untagged item with a text payload is also treated as text.
var textItemTypes = map[string]bool{
	"":            true,
	"text":        true,
	"input_text":  true,
	"output_text": true,
}

// decodeRecord parses one JSONL line. Anything that is not a JSON object
// is rejected.
func decodeRecord(line string) (map[string]any, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != '{' {
		return nil, false
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return nil, false
	}
	return rec, true
}

// Normalize classifies a decoded record and extracts its content items.
// It returns false for records that are neither user nor assistant turns.
func Normalize(rec map[string]any) (Turn, bool) {
	role := classify(rec)
	if role == RoleUnknown {
		return Turn{}, false
	}

	turn := Turn{Role: role, Timestamp: recordTimestamp(rec)}
	for _, raw := range contentItems(rec) {
		if item, ok := normalizeItem(raw); ok {
			turn.Items = append(turn.Items, item)
		}
	}
	return turn, true
}

// classify accepts both the `type` discriminant ("human"/"user"/"assistant")
// and the `role` discriminant ("user"/"assistant").
func classify(rec map[string]any) Role {
	switch stringField(rec, "type") {
	case "human", "user":
		return RoleUser
	case "assistant":
		return RoleAssistant
	}
	switch stringField(rec, "role") {
	case "user":
		return RoleUser
	case "assistant":
		return RoleAssistant
	}
	return RoleUnknown
}

// contentItems reads message.content, falling back to top-level content.
// String content becomes a single text item.
func contentItems(rec map[string]any) []any {
	if msg, ok := rec["message"].(map[string]any); ok {
		if items, ok := asItems(msg["content"]); ok {
			return items
		}
	}
	items, _ := asItems(rec["content"])
	return items
}

func asItems(v any) ([]any, bool) {
	switch c := v.(type) {
	case []any:
		return c, true
	case string:
		if c == "" {
			return nil, false
		}
		return []any{c}, true
	}
	return nil, false
}

func normalizeItem(raw any) (ContentItem, bool) {
	switch v := raw.(type) {
	case string:
		return ContentItem{Kind: ItemText, Text: v}, v != ""
	case map[string]any:
		if call, ok := extractToolCall(v); ok {
			return ContentItem{Kind: ItemTool, Tool: call}, true
		}
		if !textItemTypes[stringField(v, "type")] {
			return ContentItem{}, false
		}
		text := stringField(v, "text")
		if text == "" {
			text = stringField(v, "content")
		}
		if text == "" {
			return ContentItem{}, false
		}
		return ContentItem{Kind: ItemText, Text: text}, true
	}
	return ContentItem{}, false
}

// recordTimestamp returns the zero time when no field parses.
func recordTimestamp(rec map[string]any) time.Time {
	for _, f := range timestampFields {
		s := stringField(rec, f)
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// TextContent joins the text items of a turn.
func TextContent(t Turn) string {
	var parts []string
	for _, it := range t.Items {
		if it.Kind == ItemText && it.Text != "" {
			parts = append(parts, it.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolCalls returns the tool invocations of a turn.
func ToolCalls(t Turn) []ToolCall {
	var calls []ToolCall
	for _, it := range t.Items {
		if it.Kind == ItemTool {
			calls = append(calls, it.Tool)
		}
	}
	return calls
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
