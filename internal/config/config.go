package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/suykerbuyk/forge-reflect/internal/transcript"
)

// Config holds all forge-reflect configuration.
type Config struct {
	// Transcript analysis
	InsightMarker    string   `yaml:"insight_marker" toml:"insight_marker"`
	SkipMarker       string   `yaml:"skip_marker" toml:"skip_marker"`
	CapturedMarker   string   `yaml:"captured_marker" toml:"captured_marker"`
	MemoryPaths      []string `yaml:"memory_paths" toml:"memory_paths"`
	WriteTools       []string `yaml:"write_tools" toml:"write_tools"`
	ShellTools       []string `yaml:"shell_tools" toml:"shell_tools"`
	SkillTool        string   `yaml:"skill_tool" toml:"skill_tool"`
	ReflectionSkill  string   `yaml:"reflection_skill" toml:"reflection_skill"`
	CompactionPhrase string   `yaml:"compaction_phrase" toml:"compaction_phrase"`

	// Substantiality thresholds
	ToolTurnThreshold        int   `yaml:"tool_turn_threshold" toml:"tool_turn_threshold"`
	UserMsgThreshold         int   `yaml:"user_msg_threshold" toml:"user_msg_threshold"`
	DurationThresholdMinutes int   `yaml:"duration_threshold_minutes" toml:"duration_threshold_minutes"`
	UserMsgFloor             int   `yaml:"user_msg_floor" toml:"user_msg_floor"`
	ReflectBlocking          *bool `yaml:"reflect_blocking" toml:"reflect_blocking"`

	// Skill files, relative to the user root
	Reflection   string `yaml:"reflection" toml:"reflection"`
	InsightCheck string `yaml:"insight_check" toml:"insight_check"`

	DataDirSuffix string `yaml:"data_dir_suffix" toml:"data_dir_suffix"`
	UserRoot      string `yaml:"user_root" toml:"user_root"`

	// Hook message strings
	FallbackReason          string `yaml:"fallback_reason" toml:"fallback_reason"`
	PrecompactPrefix        string `yaml:"precompact_prefix" toml:"precompact_prefix"`
	UncapturedInsightReason string `yaml:"uncaptured_insight_reason" toml:"uncaptured_insight_reason"`

	Memory   MemoryConfig   `yaml:"memory" toml:"memory"`
	Journal  JournalConfig  `yaml:"journal" toml:"journal"`
	Backlog  string         `yaml:"backlog" toml:"backlog"`
	Commands CommandsConfig `yaml:"commands" toml:"commands"`
	Surface  SurfaceConfig  `yaml:"surface" toml:"surface"`
	Ledger   LedgerConfig   `yaml:"ledger" toml:"ledger"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

type MemoryConfig struct {
	Imperatives string `yaml:"imperatives" toml:"imperatives"`
	Insights    string `yaml:"insights" toml:"insights"`
	Ideas       string `yaml:"ideas" toml:"ideas"`
}

type JournalConfig struct {
	Daily string `yaml:"daily" toml:"daily"`
}

type CommandsConfig struct {
	SafeRead  string `yaml:"safe_read" toml:"safe_read"`
	SafeWrite string `yaml:"safe_write" toml:"safe_write"`
}

type SurfaceConfig struct {
	DueSoonDays     int    `yaml:"due_soon_days" toml:"due_soon_days"`
	RemindersList   string `yaml:"reminders_list" toml:"reminders_list"`
	IdeasCutoffDays int    `yaml:"ideas_cutoff_days" toml:"ideas_cutoff_days"`
	MaxItems        int    `yaml:"max_items" toml:"max_items"`
	ArchiveDir      string `yaml:"archive_dir" toml:"archive_dir"`
	ArchivePrefix   string `yaml:"archive_prefix" toml:"archive_prefix"`
}

type LedgerConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	Dir   string `yaml:"dir" toml:"dir"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	rules := transcript.DefaultRules()
	return Config{
		InsightMarker:    rules.InsightMarker,
		SkipMarker:       rules.SkipMarker,
		CapturedMarker:   rules.CapturedMarker,
		WriteTools:       rules.WriteTools,
		ShellTools:       rules.ShellTools,
		SkillTool:        rules.SkillTool,
		ReflectionSkill:  rules.ReflectionSkill,
		CompactionPhrase: rules.CompactionPhrase,

		ToolTurnThreshold:        10,
		UserMsgThreshold:         4,
		DurationThresholdMinutes: 15,
		UserMsgFloor:             2,

		Reflection:    "Orchestration/Skills/SessionReflect/SKILL.md",
		InsightCheck:  "Orchestration/Skills/InsightCheck/SKILL.md",
		DataDirSuffix: "Data",

		FallbackReason: "Substantial session with no learnings captured. Create a file in " +
			"Memory/Insights/ or Memory/Imperatives/ before ending.",
		PrecompactPrefix: "BEFORE COMPACTING — capture session insights and imperatives now. ",
		UncapturedInsightReason: "Uncaptured insights detected. Every ★ Insight block " +
			"must be persisted as a Memory/Insights/ file, or marked skipped, before ending.",

		Memory: MemoryConfig{
			Imperatives: "Orchestration/Memory/Imperatives",
			Insights:    "Orchestration/Memory/Insights",
			Ideas:       "Orchestration/Memory/Ideas",
		},
		Journal: JournalConfig{
			Daily: "Resources/Journals/Daily/YYYY/MM/YYYY-MM-DD.md",
		},
		Backlog: "Orchestration/Backlog.md",
		Commands: CommandsConfig{
			SafeRead:  "Modules/forge-tlp/bin/safe-read",
			SafeWrite: "Modules/forge-tlp/bin/safe-write",
		},
		Surface: SurfaceConfig{
			DueSoonDays:     3,
			RemindersList:   "Reminders",
			IdeasCutoffDays: 14,
			MaxItems:        3,
			ArchiveDir:      "Resources/Tabs",
			ArchivePrefix:   "Tabs ",
		},
		Ledger: LedgerConfig{Enabled: true},
		Log:    LogConfig{Level: "info"},
	}
}

// Load builds the config from compiled defaults, the plugin's config.yaml,
// and the user's config.toml overlay, in that order. Missing files are not
// errors. On a parse error the layers loaded so far are returned with it.
func Load() (Config, error) {
	cfg := DefaultConfig()

	if root := PluginRoot(); root != "" {
		p := filepath.Join(root, "config.yaml")
		if err := loadYAML(p, &cfg); err != nil {
			return finish(cfg), err
		}
	}

	for _, p := range overlayPaths() {
		if _, err := os.Stat(p); err == nil {
			next := cfg
			if _, err := toml.DecodeFile(p, &next); err != nil {
				return finish(cfg), fmt.Errorf("parse config %s: %w", p, err)
			}
			cfg = next
			break
		}
	}

	if env := os.Getenv("FORGE_USER_ROOT"); env != "" {
		cfg.UserRoot = env
	}

	return finish(cfg), nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	next := *cfg
	if err := yaml.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	*cfg = next
	return nil
}

func finish(cfg Config) Config {
	cfg.UserRoot = expandHome(cfg.UserRoot)
	cfg.Ledger.Path = expandHome(cfg.Ledger.Path)
	cfg.Log.Dir = expandHome(cfg.Log.Dir)
	return cfg
}

// PluginRoot returns the directory holding the plugin's config.yaml and
// skill files, from $CLAUDE_PLUGIN_ROOT or $FORGE_MODULE_ROOT.
func PluginRoot() string {
	if root := os.Getenv("CLAUDE_PLUGIN_ROOT"); root != "" {
		return root
	}
	return os.Getenv("FORGE_MODULE_ROOT")
}

func overlayPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "forge-reflect", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "forge-reflect", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// InsightsPath is the path fragment that marks a write as an insight file:
// the last two components of memory.insights, e.g. "Memory/Insights/".
func (c Config) InsightsPath() string {
	return tailFragment(c.Memory.Insights, "Memory/Insights/")
}

// EffectiveMemoryPaths returns the configured memory fragments, or fragments derived
// from the memory directories when none are configured.
func (c Config) EffectiveMemoryPaths() []string {
	if len(c.MemoryPaths) > 0 {
		return c.MemoryPaths
	}
	return []string{
		c.InsightsPath(),
		tailFragment(c.Memory.Imperatives, "Memory/Imperatives/"),
	}
}

func tailFragment(dir, fallback string) string {
	parts := strings.FieldsFunc(filepath.ToSlash(dir), func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return fallback
	}
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	return strings.Join(parts, "/") + "/"
}

// TranscriptRules converts the config into analyzer rules.
func (c Config) TranscriptRules() transcript.Rules {
	return transcript.Rules{
		InsightMarker:    c.InsightMarker,
		SkipMarker:       c.SkipMarker,
		CapturedMarker:   c.CapturedMarker,
		WriteTools:       c.WriteTools,
		ShellTools:       c.ShellTools,
		WriteUtility:     c.Commands.SafeWrite,
		InsightsPath:     c.InsightsPath(),
		MemoryPaths:      c.EffectiveMemoryPaths(),
		SkillTool:        c.SkillTool,
		ReflectionSkill:  c.ReflectionSkill,
		CompactionPhrase: c.CompactionPhrase,
	}
}

// ReflectBlockingEnabled reports whether the reflect hook blocks (default)
// or only warns.
func (c Config) ReflectBlockingEnabled() bool {
	return c.ReflectBlocking == nil || *c.ReflectBlocking
}

// ResolveUserPath joins a user-content path onto user_root, or onto cwd
// when user_root is unset.
func (c Config) ResolveUserPath(cwd, relative string) string {
	base := c.UserRoot
	if base == "" {
		base = cwd
	}
	return filepath.Join(base, relative)
}

// InDataDir reports whether cwd is $HOME/<data_dir_suffix> or below it.
// The trailing separator keeps ~/DataBackup from matching "Data".
func (c Config) InDataDir(cwd string) bool {
	home := os.Getenv("HOME")
	if home == "" || cwd == "" {
		return false
	}
	prefix := filepath.Join(home, c.DataDirSuffix)
	return cwd == prefix || strings.HasPrefix(cwd, prefix+"/")
}

// StateDir holds the ledger database and log files.
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "forge-reflect")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "forge-reflect")
}

// LedgerPath returns the configured ledger database path.
func (c Config) LedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	return filepath.Join(StateDir(), "ledger.db")
}

// LogDir returns the configured log directory.
func (c Config) LogDir() string {
	if c.Log.Dir != "" {
		return c.Log.Dir
	}
	return filepath.Join(StateDir(), "logs")
}
