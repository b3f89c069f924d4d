package transcript

import (
	"encoding/json"
	"path"
	"regexp"
	"strings"
)

// callTypes are the explicit tags that mark an item as a tool invocation.
var callTypes = map[string]bool{
	"tool_use":      true,
	"tool_call":     true,
	"function_call": true,
}

var (
	nameFields      = []string{"name", "tool_name", "tool"}
	inputContainers = []string{"input", "tool_input", "arguments", "params"}
	pathFields      = []string{"file_path", "path", "filePath", "notebook_path"}
	commandFields   = []string{"command", "cmd"}
	skillArgFields  = []string{"skill", "name", "command", "skill_name"}
)

// extractToolCall detects a tool invocation in two steps: an explicit type
// tag first, then a structural fallback (a name plus an input container)
// for producers that omit the tag.
func extractToolCall(item map[string]any) (ToolCall, bool) {
	name := toolName(item)
	if callTypes[stringField(item, "type")] {
		return ToolCall{Name: name, Fields: item}, true
	}
	if name == "" || !hasContainer(item) {
		return ToolCall{}, false
	}
	return ToolCall{Name: name, Fields: item}, true
}

func toolName(item map[string]any) string {
	for _, f := range nameFields {
		if s := stringField(item, f); s != "" {
			return s
		}
	}
	if fn, ok := item["function"].(map[string]any); ok {
		return stringField(fn, "name")
	}
	return ""
}

func hasContainer(item map[string]any) bool {
	for _, obj := range containerHosts(item) {
		for _, f := range inputContainers {
			if _, ok := obj[f]; ok {
				return true
			}
		}
	}
	return false
}

// containerHosts are the objects that may hold input containers: the item
// itself and an OpenAI-style nested "function" object.
func containerHosts(item map[string]any) []map[string]any {
	hosts := []map[string]any{item}
	if fn, ok := item["function"].(map[string]any); ok {
		hosts = append(hosts, fn)
	}
	return hosts
}

// toolInputs returns every input container that decodes to an object.
// String containers are JSON-decoded since some producers serialize
// arguments.
func toolInputs(item map[string]any) []map[string]any {
	var inputs []map[string]any
	for _, obj := range containerHosts(item) {
		for _, f := range inputContainers {
			switch v := obj[f].(type) {
			case map[string]any:
				inputs = append(inputs, v)
			case string:
				var m map[string]any
				if err := json.Unmarshal([]byte(v), &m); err == nil {
					inputs = append(inputs, m)
				}
			}
		}
	}
	return inputs
}

// lookup searches the flat item first, then each nested input.
func lookup(call ToolCall, fields []string) string {
	for _, f := range fields {
		if s := stringField(call.Fields, f); s != "" {
			return s
		}
	}
	for _, in := range toolInputs(call.Fields) {
		for _, f := range fields {
			if s := stringField(in, f); s != "" {
				return s
			}
		}
	}
	return ""
}

// toolExtractor resolves write targets for one rule set.
type toolExtractor struct {
	writeTools map[string]bool
	shellTools map[string]bool
	writeUtil  *regexp.Regexp
	skillTool  string
	skill      string
}

func newToolExtractor(r Rules) toolExtractor {
	te := toolExtractor{
		writeTools: lowerSet(r.WriteTools),
		shellTools: lowerSet(r.ShellTools),
		skillTool:  strings.ToLower(r.SkillTool),
		skill:      normalizeSkill(r.ReflectionSkill),
	}
	if util := path.Base(strings.TrimSpace(r.WriteUtility)); util != "" && util != "." && util != "/" {
		te.writeUtil = regexp.MustCompile(`(?:^|[\s;&|(/"'])` + regexp.QuoteMeta(util) +
			`\s+(?:write|edit|insert)\s+(?:"([^"]+)"|'([^']+)'|([^\s;&|)]+))`)
	}
	return te
}

// writes returns the write events asserted by a tool call: the path
// argument of a write tool, or write-utility targets inside a shell command.
func (te toolExtractor) writes(call ToolCall) []WriteEvent {
	name := strings.ToLower(call.Name)

	if te.writeTools[name] {
		if p := lookup(call, pathFields); p != "" {
			return []WriteEvent{{Tool: call.Name, Path: p}}
		}
		return nil
	}

	if te.shellTools[name] && te.writeUtil != nil {
		cmd := lookup(call, commandFields)
		if cmd == "" {
			return nil
		}
		var events []WriteEvent
		for _, m := range te.writeUtil.FindAllStringSubmatch(cmd, -1) {
			for _, g := range m[1:] {
				if g != "" {
					events = append(events, WriteEvent{Tool: call.Name, Path: g})
					break
				}
			}
		}
		return events
	}

	return nil
}

// invokesReflection reports whether the call runs the reflection skill.
func (te toolExtractor) invokesReflection(call ToolCall) bool {
	if te.skillTool == "" || te.skill == "" || strings.ToLower(call.Name) != te.skillTool {
		return false
	}
	for _, in := range toolInputs(call.Fields) {
		for _, f := range skillArgFields {
			if s := stringField(in, f); s != "" && normalizeSkill(s) == te.skill {
				return true
			}
		}
	}
	return false
}

// normalizeSkill lowercases a skill identifier and drops a leading slash
// and any "plugin:" namespace.
func normalizeSkill(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "/")
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return strings.ToLower(s)
}

func lowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			set[strings.ToLower(it)] = true
		}
	}
	return set
}
