package check

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/suykerbuyk/forge-reflect/internal/config"
	"github.com/suykerbuyk/forge-reflect/internal/ledger"
)

func TestCheckConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if r := CheckConfig(); r.Status != Warn {
		t.Errorf("missing config: expected Warn, got %s: %s", r.Status, r.Detail)
	}

	path := filepath.Join(dir, "forge-reflect", "config.toml")
	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, []byte("user_root = \"/v\"\n"), 0o644)
	if r := CheckConfig(); r.Status != Pass {
		t.Errorf("present config: expected Pass, got %s: %s", r.Status, r.Detail)
	}
}

func TestCheckPluginRoot(t *testing.T) {
	if r := CheckPluginRoot(""); r.Status != Warn {
		t.Errorf("unset: expected Warn, got %s", r.Status)
	}

	root := t.TempDir()
	if r := CheckPluginRoot(root); r.Status != Warn {
		t.Errorf("no config.yaml: expected Warn, got %s", r.Status)
	}

	os.WriteFile(filepath.Join(root, "config.yaml"), []byte("backlog: B.md\n"), 0o644)
	if r := CheckPluginRoot(root); r.Status != Pass {
		t.Errorf("with config.yaml: expected Pass, got %s: %s", r.Status, r.Detail)
	}
}

func TestCheckUserRoot(t *testing.T) {
	tests := []struct {
		name string
		root string
		want Status
	}{
		{"unset", "", Warn},
		{"exists", t.TempDir(), Pass},
		{"missing", "/nonexistent/forge/root", Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := CheckUserRoot(tt.root); r.Status != tt.want {
				t.Errorf("CheckUserRoot(%q) = %s, want %s", tt.root, r.Status, tt.want)
			}
		})
	}
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")

	if r := CheckFile("skill", path); r.Status != Warn {
		t.Errorf("missing: expected Warn, got %s", r.Status)
	}
	os.WriteFile(path, []byte("# Reflect"), 0o644)
	if r := CheckFile("skill", path); r.Status != Pass {
		t.Errorf("present: expected Pass, got %s", r.Status)
	}
	if r := CheckFile("skill", dir); r.Status != Warn {
		t.Errorf("directory: expected Warn, got %s", r.Status)
	}
}

func TestCheckDir_CountsNotes(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.md"), []byte("# A"), 0o644)
	os.WriteFile(filepath.Join(dir, "b.md"), []byte("# B"), 0o644)
	os.WriteFile(filepath.Join(dir, "c.txt"), []byte("c"), 0o644)
	os.Mkdir(filepath.Join(dir, "sub.md"), 0o755)

	r := CheckDir("memory:insights", dir)
	if r.Status != Pass {
		t.Fatalf("expected Pass, got %s: %s", r.Status, r.Detail)
	}
	if !strings.HasSuffix(r.Detail, "(2 notes)") {
		t.Errorf("unexpected detail: %s", r.Detail)
	}

	if r := CheckDir("memory:insights", "/nonexistent/insights"); r.Status != Warn {
		t.Errorf("missing dir: expected Warn, got %s", r.Status)
	}
}

func TestCheckLedger(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger.db")

	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		t.Fatal(err)
	}
	l.Record(ledger.Entry{Hook: "reflect", Decision: "allow"})
	l.Record(ledger.Entry{Hook: "insight", Decision: "block"})
	l.Close()

	r := CheckLedger(cfg)
	if r.Status != Pass {
		t.Fatalf("expected Pass, got %s: %s", r.Status, r.Detail)
	}
	if !strings.HasSuffix(r.Detail, "(2 verdicts)") {
		t.Errorf("unexpected detail: %s", r.Detail)
	}

	cfg.Ledger.Enabled = false
	if r := CheckLedger(cfg); r.Detail != "disabled" {
		t.Errorf("disabled ledger detail = %q", r.Detail)
	}
}

func TestCheckHookFile_Pass(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	content := `{"hooks":{
		"Stop":[{"hooks":[{"type":"command","command":"forge-reflect insight"}]},
		        {"hooks":[{"type":"command","command":"forge-reflect reflect"}]}],
		"PreCompact":[{"hooks":[{"type":"command","command":"forge-reflect reflect"}]}],
		"SessionStart":[{"hooks":[{"type":"command","command":"forge-reflect surface"}]}]}}`
	os.WriteFile(path, []byte(content), 0o644)

	r := checkHookFile(path)
	if r.Status != Pass {
		t.Errorf("expected Pass, got %s: %s", r.Status, r.Detail)
	}
}

func TestCheckHookFile_Partial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	content := `{"hooks":{"Stop":[{"hooks":[{"type":"command","command":"forge-reflect reflect"}]}]}}`
	os.WriteFile(path, []byte(content), 0o644)

	if r := checkHookFile(path); r.Status != Fail {
		t.Errorf("expected Fail, got %s: %s", r.Status, r.Detail)
	}
}

func TestCheckHookFile_Warn(t *testing.T) {
	r := checkHookFile("/nonexistent/settings.json")
	if r.Status != Warn {
		t.Errorf("expected Warn, got %s: %s", r.Status, r.Detail)
	}
}

func TestCheckHookFile_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	os.WriteFile(path, []byte(`{bad json`), 0o644)

	if r := checkHookFile(path); r.Status != Fail {
		t.Errorf("expected Fail, got %s: %s", r.Status, r.Detail)
	}
}

func TestReport_HasFailures(t *testing.T) {
	r := Report{Results: []Result{{Name: "a", Status: Pass}, {Name: "b", Status: Fail}}}
	if !r.HasFailures() {
		t.Error("expected HasFailures() == true")
	}
	r = Report{Results: []Result{{Name: "a", Status: Pass}, {Name: "b", Status: Warn}}}
	if r.HasFailures() {
		t.Error("expected HasFailures() == false")
	}
}

func TestReport_Format(t *testing.T) {
	r := Report{Results: []Result{
		{Name: "config", Status: Pass, Detail: "~/.config/forge-reflect/config.toml"},
		{Name: "hook", Status: Fail, Detail: "missing"},
	}}
	out := r.Format()
	for _, want := range []string{"forge-reflect check", "pass  config", "FAIL  hook", "1 passed, 0 warning, 1 failure"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}

	if out := (Report{}).Format(); !strings.Contains(out, "no checks ran") {
		t.Errorf("empty report = %q", out)
	}
}

func TestRun_Integration(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, ".state"))
	t.Setenv("CLAUDE_PLUGIN_ROOT", "")
	t.Setenv("FORGE_MODULE_ROOT", "")

	root := filepath.Join(home, "Data")
	cfg := config.DefaultConfig()
	cfg.UserRoot = root
	for _, rel := range []string{cfg.Reflection, cfg.InsightCheck, cfg.Backlog} {
		p := filepath.Join(root, rel)
		os.MkdirAll(filepath.Dir(p), 0o755)
		os.WriteFile(p, []byte("# x"), 0o644)
	}
	os.MkdirAll(filepath.Join(root, cfg.Memory.Insights), 0o755)
	os.MkdirAll(filepath.Join(root, cfg.Memory.Imperatives), 0o755)

	report := Run(cfg, root)
	for _, res := range report.Results {
		if res.Name == "hook" {
			continue
		}
		if res.Status == Fail {
			t.Errorf("unexpected failure: %s: %s", res.Name, res.Detail)
		}
	}
	if len(report.Results) != 10 {
		t.Errorf("got %d results, want 10", len(report.Results))
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{Pass, "pass"},
		{Warn, "warn"},
		{Fail, "FAIL"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
