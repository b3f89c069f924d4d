package transcript

import "time"

// Role classifies a transcript record.
type Role int

const (
	RoleUnknown Role = iota
	RoleUser
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Turn is one user or assistant record, normalized across producers.
type Turn struct {
	Role      Role
	Items     []ContentItem
	Timestamp time.Time // zero when absent or unparseable
}

// ItemKind tags a ContentItem.
type ItemKind int

const (
	ItemText ItemKind = iota
	ItemTool
)

// ContentItem is either a text payload or a tool invocation.
type ContentItem struct {
	Kind ItemKind
	Text string
	Tool ToolCall
}

// ToolCall is a tool invocation. Fields holds the raw item so path and
// argument lookups can search both flat and nested layouts.
type ToolCall struct {
	Name   string
	Fields map[string]any
}

// MarkerKind identifies which configured marker literal matched.
type MarkerKind int

const (
	MarkerInsight MarkerKind = iota
	MarkerSkip
	MarkerCaptured
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerInsight:
		return "insight"
	case MarkerSkip:
		return "skip"
	case MarkerCaptured:
		return "captured"
	default:
		return "unknown"
	}
}

// Marker is one marker occurrence. Topic is empty when no usable label
// was found.
type Marker struct {
	Kind  MarkerKind
	Topic string
}

// WriteEvent is a file write asserted by a tool invocation.
type WriteEvent struct {
	Tool string
	Path string
}

// Analysis is the summary of one transcript.
type Analysis struct {
	UserMessages   int  `json:"user_messages"`
	ToolUsingTurns int  `json:"tool_using_turns"`
	HasMemoryWrite bool `json:"has_memory_write"`

	InsightCount   int      `json:"insight_count"`
	InsightTopics  []string `json:"insight_topics"`
	SkippedTopics  []string `json:"skipped_topics"`
	CapturedTopics []string `json:"captured_topics"`

	InsightsWriteCount int      `json:"insights_write_count"`
	InsightsWritten    []string `json:"insights_written"`

	SessionDurationMinutes uint64 `json:"session_duration_minutes"`
}

// Rules configures the analyzer. Values are read once by NewAnalyzer.
type Rules struct {
	InsightMarker  string
	SkipMarker     string
	CapturedMarker string

	// WriteTools are compared case-insensitively against tool names.
	WriteTools []string
	// ShellTools carry a command string that may hide a write.
	ShellTools []string
	// WriteUtility is the helper invoked from shell commands as
	// `<utility> write|edit|insert "<path>"`. Only the base name matters.
	WriteUtility string

	InsightsPath string
	MemoryPaths  []string

	SkillTool        string
	ReflectionSkill  string
	CompactionPhrase string
}

// DefaultRules returns the rules used when no configuration is supplied.
func DefaultRules() Rules {
	return Rules{
		InsightMarker:  "★ Insight",
		SkipMarker:     "☆ Skipped",
		CapturedMarker: "✓ Captured",
		WriteTools: []string{
			"Write", "Edit", "MultiEdit", "NotebookEdit",
			"write_file", "edit_file", "create_file", "replace",
		},
		ShellTools:       []string{"Bash", "shell", "run_shell_command"},
		WriteUtility:     "safe-write",
		InsightsPath:     "Memory/Insights/",
		MemoryPaths:      []string{"Memory/Insights/", "Memory/Imperatives/"},
		SkillTool:        "Skill",
		ReflectionSkill:  "SessionReflect",
		CompactionPhrase: "This session is being continued from a previous conversation",
	}
}
