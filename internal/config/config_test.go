package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// isolate points every config source at empty temp dirs.
func isolate(t *testing.T) (home, xdg string) {
	t.Helper()
	home, xdg = t.TempDir(), t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("CLAUDE_PLUGIN_ROOT", "")
	t.Setenv("FORGE_MODULE_ROOT", "")
	t.Setenv("FORGE_USER_ROOT", "")
	return home, xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.InsightMarker != "★ Insight" {
		t.Errorf("InsightMarker = %q", cfg.InsightMarker)
	}
	if cfg.ToolTurnThreshold != 10 {
		t.Errorf("ToolTurnThreshold = %d", cfg.ToolTurnThreshold)
	}
	if cfg.UserMsgThreshold != 4 {
		t.Errorf("UserMsgThreshold = %d", cfg.UserMsgThreshold)
	}
	if cfg.Memory.Insights != "Orchestration/Memory/Insights" {
		t.Errorf("Memory.Insights = %q", cfg.Memory.Insights)
	}
	if cfg.Backlog != "Orchestration/Backlog.md" {
		t.Errorf("Backlog = %q", cfg.Backlog)
	}
	if cfg.DataDirSuffix != "Data" {
		t.Errorf("DataDirSuffix = %q", cfg.DataDirSuffix)
	}
	if !cfg.ReflectBlockingEnabled() {
		t.Error("reflect blocking should default to true")
	}
	if !strings.HasPrefix(cfg.PrecompactPrefix, "BEFORE COMPACTING") {
		t.Errorf("PrecompactPrefix = %q", cfg.PrecompactPrefix)
	}
}

func TestDefaultConfig_Paths(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.InsightsPath(); got != "Memory/Insights/" {
		t.Errorf("InsightsPath = %q", got)
	}
	want := []string{"Memory/Insights/", "Memory/Imperatives/"}
	if got := cfg.EffectiveMemoryPaths(); !slices.Equal(got, want) {
		t.Errorf("MemoryPaths = %q, want %q", got, want)
	}

	r := cfg.TranscriptRules()
	if r.InsightsPath != "Memory/Insights/" || r.WriteUtility != "Modules/forge-tlp/bin/safe-write" {
		t.Errorf("TranscriptRules = %+v", r)
	}
}

func TestTailFragment(t *testing.T) {
	tests := []struct{ dir, want string }{
		{"Orchestration/Memory/Insights", "Memory/Insights/"},
		{"/abs/Notes/Insights/", "Notes/Insights/"},
		{"Insights", "Insights/"},
		{"", "fallback/"},
	}
	for _, tt := range tests {
		if got := tailFragment(tt.dir, "fallback/"); got != tt.want {
			t.Errorf("tailFragment(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestLoad_NoConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InsightMarker != DefaultConfig().InsightMarker {
		t.Errorf("InsightMarker = %q", cfg.InsightMarker)
	}
	if cfg.UserRoot != "" {
		t.Errorf("UserRoot = %q, want empty", cfg.UserRoot)
	}
}

func TestLoad_PluginYAML(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	t.Setenv("CLAUDE_PLUGIN_ROOT", root)

	writeFile(t, filepath.Join(root, "config.yaml"), `insight_marker: "CUSTOM"
tool_turn_threshold: 3
reflect_blocking: false
memory:
  insights: Vault/Notes/Learned
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InsightMarker != "CUSTOM" {
		t.Errorf("InsightMarker = %q", cfg.InsightMarker)
	}
	if cfg.ToolTurnThreshold != 3 {
		t.Errorf("ToolTurnThreshold = %d", cfg.ToolTurnThreshold)
	}
	if cfg.ReflectBlockingEnabled() {
		t.Error("reflect_blocking: false not honored")
	}
	if cfg.InsightsPath() != "Notes/Learned/" {
		t.Errorf("InsightsPath = %q", cfg.InsightsPath())
	}
	// Untouched keys keep their defaults.
	if cfg.UserMsgThreshold != 4 {
		t.Errorf("UserMsgThreshold = %d", cfg.UserMsgThreshold)
	}
	if cfg.Memory.Imperatives != "Orchestration/Memory/Imperatives" {
		t.Errorf("Memory.Imperatives = %q", cfg.Memory.Imperatives)
	}
}

func TestLoad_ModuleRootFallback(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	t.Setenv("FORGE_MODULE_ROOT", root)
	writeFile(t, filepath.Join(root, "config.yaml"), "backlog: Custom/Backlog.md\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backlog != "Custom/Backlog.md" {
		t.Errorf("Backlog = %q", cfg.Backlog)
	}
}

func TestLoad_TOMLOverridesYAML(t *testing.T) {
	_, xdg := isolate(t)
	root := t.TempDir()
	t.Setenv("CLAUDE_PLUGIN_ROOT", root)

	writeFile(t, filepath.Join(root, "config.yaml"), "tool_turn_threshold: 3\nuser_msg_threshold: 7\n")
	writeFile(t, filepath.Join(xdg, "forge-reflect", "config.toml"), "tool_turn_threshold = 20\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ToolTurnThreshold != 20 {
		t.Errorf("ToolTurnThreshold = %d, want 20 from toml", cfg.ToolTurnThreshold)
	}
	if cfg.UserMsgThreshold != 7 {
		t.Errorf("UserMsgThreshold = %d, want 7 from yaml", cfg.UserMsgThreshold)
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	home, xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "forge-reflect", "config.toml"), `user_root = "~/vault"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := filepath.Join(home, "vault")
	if cfg.UserRoot != want {
		t.Errorf("UserRoot = %q, want %q", cfg.UserRoot, want)
	}
}

func TestLoad_UserRootEnv(t *testing.T) {
	_, xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "forge-reflect", "config.toml"), `user_root = "/from-file"`)
	t.Setenv("FORGE_USER_ROOT", "/from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UserRoot != "/from-env" {
		t.Errorf("UserRoot = %q, want /from-env", cfg.UserRoot)
	}
}

func TestLoad_XDGPriority(t *testing.T) {
	home, xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "forge-reflect", "config.toml"), `backlog = "/from-xdg"`)
	writeFile(t, filepath.Join(home, ".config", "forge-reflect", "config.toml"), `backlog = "/from-home"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backlog != "/from-xdg" {
		t.Errorf("Backlog = %q, want /from-xdg (XDG should take priority)", cfg.Backlog)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	_, xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "forge-reflect", "config.toml"), `backlog = [broken`)

	cfg, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
	if cfg.Backlog != DefaultConfig().Backlog {
		t.Errorf("Backlog = %q, want default after parse error", cfg.Backlog)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	t.Setenv("CLAUDE_PLUGIN_ROOT", root)
	writeFile(t, filepath.Join(root, "config.yaml"), "tool_turn_threshold: [unclosed\n")

	cfg, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if cfg.ToolTurnThreshold != 10 {
		t.Errorf("ToolTurnThreshold = %d, want default", cfg.ToolTurnThreshold)
	}
}

func TestMemoryPaths_Explicit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemoryPaths = []string{"Notes/"}
	if got := cfg.EffectiveMemoryPaths(); !slices.Equal(got, []string{"Notes/"}) {
		t.Errorf("MemoryPaths = %q", got)
	}
}

func TestResolveUserPath(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ResolveUserPath("/work/proj", "Orchestration/Backlog.md"); got != "/work/proj/Orchestration/Backlog.md" {
		t.Errorf("without user_root = %q", got)
	}
	cfg.UserRoot = "/vault"
	if got := cfg.ResolveUserPath("/work/proj", "Orchestration/Backlog.md"); got != "/vault/Orchestration/Backlog.md" {
		t.Errorf("with user_root = %q", got)
	}
}

func TestInDataDir(t *testing.T) {
	t.Setenv("HOME", "/home/u")
	cfg := DefaultConfig()

	tests := []struct {
		cwd  string
		want bool
	}{
		{"/home/u/Data", true},
		{"/home/u/Data/vault/sub", true},
		{"/home/u/DataBackup", false},
		{"/home/u/code", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := cfg.InDataDir(tt.cwd); got != tt.want {
			t.Errorf("InDataDir(%q) = %v, want %v", tt.cwd, got, tt.want)
		}
	}
}

func TestStateDirAndDerivedPaths(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/state")
	cfg := DefaultConfig()

	if got := cfg.LedgerPath(); got != "/state/forge-reflect/ledger.db" {
		t.Errorf("LedgerPath = %q", got)
	}
	if got := cfg.LogDir(); got != "/state/forge-reflect/logs" {
		t.Errorf("LogDir = %q", got)
	}

	cfg.Ledger.Path = "/custom/l.db"
	if got := cfg.LedgerPath(); got != "/custom/l.db" {
		t.Errorf("LedgerPath override = %q", got)
	}
}
