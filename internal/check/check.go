package check

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/suykerbuyk/forge-reflect/internal/config"
	"github.com/suykerbuyk/forge-reflect/internal/hook"
	"github.com/suykerbuyk/forge-reflect/internal/ledger"
)

// Status represents the outcome of a single check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "FAIL"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Report aggregates all check results.
type Report struct {
	Results []Result
}

// HasFailures returns true if any result has Fail status.
func (r Report) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

// Format returns the human-readable report string.
func (r Report) Format() string {
	if len(r.Results) == 0 {
		return "forge-reflect check\n\n  no checks ran\n"
	}

	maxName := 0
	for _, res := range r.Results {
		if len(res.Name) > maxName {
			maxName = len(res.Name)
		}
	}

	var b strings.Builder
	b.WriteString("forge-reflect check\n\n")

	var passed, warnings, failures int
	for _, res := range r.Results {
		switch res.Status {
		case Pass:
			passed++
		case Warn:
			warnings++
		case Fail:
			failures++
		}
		fmt.Fprintf(&b, "  %-4s  %-*s  %s\n", res.Status, maxName, res.Name, res.Detail)
	}

	fmt.Fprintf(&b, "\n%d passed, %d warning, %d failure\n", passed, warnings, failures)
	return b.String()
}

// CheckConfig reports the user config overlay path. Parse errors are
// surfaced by the caller before checks run.
func CheckConfig() Result {
	cfgPath := filepath.Join(config.ConfigDir(), "config.toml")
	if _, err := os.Stat(cfgPath); err != nil {
		return Result{Name: "config", Status: Warn, Detail: config.CompressHome(cfgPath) + " not found (defaults in use)"}
	}
	return Result{Name: "config", Status: Pass, Detail: config.CompressHome(cfgPath)}
}

// CheckPluginRoot reports where config.yaml was looked up.
func CheckPluginRoot(root string) Result {
	if root == "" {
		return Result{Name: "plugin", Status: Warn, Detail: "CLAUDE_PLUGIN_ROOT not set"}
	}
	if _, err := os.Stat(filepath.Join(root, "config.yaml")); err != nil {
		return Result{Name: "plugin", Status: Warn, Detail: config.CompressHome(root) + " has no config.yaml"}
	}
	return Result{Name: "plugin", Status: Pass, Detail: config.CompressHome(root)}
}

// CheckUserRoot checks the directory user-relative paths resolve against.
func CheckUserRoot(root string) Result {
	if root == "" {
		return Result{Name: "user_root", Status: Warn, Detail: "not set (paths resolve against the session cwd)"}
	}
	if info, err := os.Stat(root); err == nil && info.IsDir() {
		return Result{Name: "user_root", Status: Pass, Detail: config.CompressHome(root)}
	}
	return Result{Name: "user_root", Status: Fail, Detail: root + " not found"}
}

// CheckFile reports whether a user-relative file exists. Missing files
// are warnings; the hooks fall back to built-in text.
func CheckFile(name, path string) Result {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return Result{Name: name, Status: Pass, Detail: config.CompressHome(path)}
	}
	return Result{Name: name, Status: Warn, Detail: config.CompressHome(path) + " not found"}
}

// CheckDir reports whether a user-relative directory exists and how many
// markdown notes it holds.
func CheckDir(name, path string) Result {
	entries, err := os.ReadDir(path)
	if err != nil {
		return Result{Name: name, Status: Warn, Detail: config.CompressHome(path) + " not found"}
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			count++
		}
	}
	return Result{Name: name, Status: Pass, Detail: fmt.Sprintf("%s (%d notes)", config.CompressHome(path), count)}
}

// CheckLedger opens the verdict ledger and reports its row count.
func CheckLedger(cfg config.Config) Result {
	if !cfg.Ledger.Enabled {
		return Result{Name: "ledger", Status: Pass, Detail: "disabled"}
	}
	path := cfg.LedgerPath()
	l, err := ledger.Open(path)
	if err != nil {
		return Result{Name: "ledger", Status: Fail, Detail: err.Error()}
	}
	defer l.Close()

	totals, err := l.Totals()
	if err != nil {
		return Result{Name: "ledger", Status: Fail, Detail: err.Error()}
	}
	n := 0
	for _, t := range totals {
		n += t.Count
	}
	return Result{Name: "ledger", Status: Pass, Detail: fmt.Sprintf("%s (%d verdicts)", config.CompressHome(path), n)}
}

// CheckHook checks whether every forge-reflect hook is registered in
// ~/.claude/settings.json.
func CheckHook() Result {
	path, err := hook.SettingsPath()
	if err != nil {
		return Result{Name: "hook", Status: Warn, Detail: "cannot determine home directory"}
	}
	return checkHookFile(path)
}

func checkHookFile(path string) Result {
	if _, err := os.Stat(path); err != nil {
		return Result{Name: "hook", Status: Warn, Detail: config.CompressHome(path) + " not found"}
	}
	ok, err := hook.Installed(path)
	if err != nil {
		return Result{Name: "hook", Status: Fail, Detail: err.Error()}
	}
	if ok {
		return Result{Name: "hook", Status: Pass, Detail: "forge-reflect hooks found in " + config.CompressHome(path)}
	}
	return Result{Name: "hook", Status: Fail, Detail: "forge-reflect hooks missing from " + config.CompressHome(path)}
}

// Run executes all checks against the given config and returns a report.
// cwd stands in for the user root when none is configured.
func Run(cfg config.Config, cwd string) Report {
	var results []Result

	results = append(results, CheckConfig())
	results = append(results, CheckPluginRoot(config.PluginRoot()))
	results = append(results, CheckUserRoot(cfg.UserRoot))
	results = append(results, CheckFile("skill:reflect", cfg.ResolveUserPath(cwd, cfg.Reflection)))
	results = append(results, CheckFile("skill:insight", cfg.ResolveUserPath(cwd, cfg.InsightCheck)))
	results = append(results, CheckDir("memory:insights", cfg.ResolveUserPath(cwd, cfg.Memory.Insights)))
	results = append(results, CheckDir("memory:imperatives", cfg.ResolveUserPath(cwd, cfg.Memory.Imperatives)))
	results = append(results, CheckFile("backlog", cfg.ResolveUserPath(cwd, cfg.Backlog)))
	results = append(results, CheckLedger(cfg))
	results = append(results, CheckHook())

	return Report{Results: results}
}
