package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var userRootLine = regexp.MustCompile(`(?m)^user_root\s*=.*$`)

// ConfigDir returns the forge-reflect config directory path.
// Uses $XDG_CONFIG_HOME/forge-reflect if set, otherwise ~/.config/forge-reflect.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "forge-reflect")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "forge-reflect")
}

// WriteDefault writes a default config.toml with user_root set to userRoot.
// An existing file keeps every other setting; only its user_root line is
// replaced (or prepended when absent). Action is "created", "updated", or
// "unchanged".
func WriteDefault(userRoot string) (path, action string, err error) {
	dir := ConfigDir()
	path = filepath.Join(dir, "config.toml")
	line := fmt.Sprintf("user_root = %q", CompressHome(userRoot))

	if data, err := os.ReadFile(path); err == nil {
		content := string(data)
		var updated string
		if userRootLine.MatchString(content) {
			updated = userRootLine.ReplaceAllLiteralString(content, line)
		} else {
			updated = line + "\n\n" + content
		}
		if updated == content {
			return path, "unchanged", nil
		}
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			return "", "", fmt.Errorf("write config: %w", err)
		}
		return path, "updated", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create config dir: %w", err)
	}

	def := DefaultConfig()
	content := fmt.Sprintf(`%s

# tool_turn_threshold = %d
# user_msg_threshold = %d
# duration_threshold_minutes = %d
# user_msg_floor = %d
reflect_blocking = true

[memory]
insights = %q
imperatives = %q
ideas = %q

[surface]
due_soon_days = %d
ideas_cutoff_days = %d
max_items = %d

[ledger]
enabled = true

[log]
level = "info"
`, line,
		def.ToolTurnThreshold, def.UserMsgThreshold, def.DurationThresholdMinutes, def.UserMsgFloor,
		def.Memory.Insights, def.Memory.Imperatives, def.Memory.Ideas,
		def.Surface.DueSoonDays, def.Surface.IdeasCutoffDays, def.Surface.MaxItems)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", "", fmt.Errorf("write config: %w", err)
	}

	return path, "created", nil
}

// CompressHome replaces $HOME prefix with ~/ for portable config values.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+"/") {
		return "~/" + path[len(home)+1:]
	}
	if path == home {
		return "~"
	}
	return path
}
