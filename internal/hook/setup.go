package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/suykerbuyk/forge-reflect/internal/config"
)

const backupSuffix = ".forge-reflect.bak"

// registration binds one forge-reflect command to a Claude Code event.
type registration struct {
	event   string
	command string
}

var registrations = []registration{
	{"Stop", "forge-reflect insight"},
	{"Stop", "forge-reflect reflect"},
	{"PreCompact", "forge-reflect reflect"},
	{"SessionStart", "forge-reflect surface"},
}

// SettingsPath returns the path to ~/.claude/settings.json.
func SettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "settings.json"), nil
}

// Install adds forge-reflect hook entries to ~/.claude/settings.json.
// Idempotent: returns nil even when already installed.
func Install() error {
	path, err := SettingsPath()
	if err != nil {
		return err
	}

	settings, err := readSettings(path)
	if err != nil {
		return err
	}

	if IsInstalled(settings) {
		fmt.Fprintf(os.Stderr, "forge-reflect hooks already configured in %s\n", config.CompressHome(path))
		return nil
	}

	if err := backup(path); err != nil {
		return err
	}

	addHooks(settings)

	if err := writeSettings(path, settings); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "forge-reflect hooks installed in %s\n", config.CompressHome(path))
	return nil
}

// Uninstall removes forge-reflect hook entries from ~/.claude/settings.json.
// Idempotent: returns nil even when not installed.
func Uninstall() error {
	path, err := SettingsPath()
	if err != nil {
		return err
	}

	settings, err := readSettings(path)
	if err != nil {
		return err
	}

	if !hasAnyHook(settings) {
		fmt.Fprintf(os.Stderr, "forge-reflect hooks not found in %s\n", config.CompressHome(path))
		return nil
	}

	if err := backup(path); err != nil {
		return err
	}

	removeHooks(settings)

	if err := writeSettings(path, settings); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "forge-reflect hooks removed from %s\n", config.CompressHome(path))
	return nil
}

// Installed reports whether every forge-reflect hook is registered in the
// settings file at path.
func Installed(path string) (bool, error) {
	settings, err := readSettings(path)
	if err != nil {
		return false, err
	}
	return IsInstalled(settings), nil
}

// readSettings reads and parses the settings file.
// Returns an empty map if the file doesn't exist or is empty.
func readSettings(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]any), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", config.CompressHome(path), err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return make(map[string]any), nil
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", config.CompressHome(path), err)
	}
	return settings, nil
}

// writeSettings writes the settings map as pretty-printed JSON.
// Creates the parent directory if needed.
func writeSettings(path string, settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", config.CompressHome(path), err)
	}
	return nil
}

// backup copies the settings file aside. No-op if source doesn't exist.
func backup(path string) error {
	src, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", config.CompressHome(path), err)
	}
	defer src.Close()

	dst, err := os.Create(path + backupSuffix)
	if err != nil {
		return fmt.Errorf("backup: create %s%s: %w", config.CompressHome(path), backupSuffix, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("backup: copy: %w", err)
	}
	return nil
}

// IsInstalled returns true when every registration has a matching entry.
func IsInstalled(settings map[string]any) bool {
	hooksMap, ok := settings["hooks"].(map[string]any)
	if !ok {
		return false
	}
	for _, r := range registrations {
		if !eventHasCommand(hooksMap, r.event, r.command) {
			return false
		}
	}
	return true
}

// hasAnyHook returns true when any event carries a forge-reflect entry.
func hasAnyHook(settings map[string]any) bool {
	hooksMap, ok := settings["hooks"].(map[string]any)
	if !ok {
		return false
	}
	for _, r := range registrations {
		if eventHasCommand(hooksMap, r.event, r.command) {
			return true
		}
	}
	return false
}

// addHooks appends an entry for each missing registration.
func addHooks(settings map[string]any) {
	hooksMap, ok := settings["hooks"].(map[string]any)
	if !ok {
		hooksMap = make(map[string]any)
		settings["hooks"] = hooksMap
	}

	for _, r := range registrations {
		if eventHasCommand(hooksMap, r.event, r.command) {
			continue
		}

		entry := map[string]any{
			"matcher": "",
			"hooks": []any{
				map[string]any{
					"type":    "command",
					"command": r.command,
				},
			},
		}

		eventArray, ok := hooksMap[r.event].([]any)
		if !ok {
			eventArray = []any{}
		}
		hooksMap[r.event] = append(eventArray, entry)
	}
}

// removeHooks removes entries running any forge-reflect command.
// Cleans up empty arrays and empty hooks map.
func removeHooks(settings map[string]any) {
	hooksMap, ok := settings["hooks"].(map[string]any)
	if !ok {
		return
	}

	for _, r := range registrations {
		eventArray, ok := hooksMap[r.event].([]any)
		if !ok {
			continue
		}

		var kept []any
		for _, entry := range eventArray {
			if !entryRunsAny(entry) {
				kept = append(kept, entry)
			}
		}

		if len(kept) == 0 {
			delete(hooksMap, r.event)
		} else {
			hooksMap[r.event] = kept
		}
	}

	if len(hooksMap) == 0 {
		delete(settings, "hooks")
	}
}

// eventHasCommand checks whether the given event has an entry running command.
func eventHasCommand(hooksMap map[string]any, event, command string) bool {
	eventArray, ok := hooksMap[event].([]any)
	if !ok {
		return false
	}
	for _, entry := range eventArray {
		if entryRuns(entry, command) {
			return true
		}
	}
	return false
}

func entryRunsAny(entry any) bool {
	for _, r := range registrations {
		if entryRuns(entry, r.command) {
			return true
		}
	}
	return false
}

// entryRuns walks a single hook entry's nested hooks array looking for a
// command containing the given command string.
func entryRuns(entry any, command string) bool {
	entryMap, ok := entry.(map[string]any)
	if !ok {
		return false
	}

	innerHooks, ok := entryMap["hooks"].([]any)
	if !ok {
		return false
	}

	for _, h := range innerHooks {
		hMap, ok := h.(map[string]any)
		if !ok {
			continue
		}
		cmd, _ := hMap["command"].(string)
		if strings.Contains(cmd, command) {
			return true
		}
	}
	return false
}
