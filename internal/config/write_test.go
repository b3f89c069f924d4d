package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestWriteDefault_CreatesConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, action, err := WriteDefault("/srv/vault")
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if action != "created" {
		t.Errorf("action = %q, want %q", action, "created")
	}

	want := filepath.Join(dir, "forge-reflect", "config.toml")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	content := string(data)
	for _, s := range []string{`user_root = "/srv/vault"`, "[memory]", "[surface]", "[ledger]", "[log]"} {
		if !strings.Contains(content, s) {
			t.Errorf("config missing %q", s)
		}
	}

	// The generated file must load back cleanly.
	cfg := DefaultConfig()
	if _, err := toml.Decode(content, &cfg); err != nil {
		t.Fatalf("generated config does not parse: %v", err)
	}
	if cfg.UserRoot != "/srv/vault" {
		t.Errorf("UserRoot = %q", cfg.UserRoot)
	}
}

func TestWriteDefault_UpdatesExistingUserRoot(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	existing := filepath.Join(dir, "forge-reflect", "config.toml")
	os.MkdirAll(filepath.Dir(existing), 0o755)
	os.WriteFile(existing, []byte("user_root = \"~/old\"\n\n[surface]\nmax_items = 9\n"), 0o644)

	path, action, err := WriteDefault("/new/root")
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if action != "updated" {
		t.Errorf("action = %q, want %q", action, "updated")
	}
	if path != existing {
		t.Errorf("path = %q, want %q", path, existing)
	}

	data, _ := os.ReadFile(existing)
	content := string(data)
	if !strings.Contains(content, "/new/root") || strings.Contains(content, "~/old") {
		t.Errorf("user_root not replaced:\n%s", content)
	}
	if !strings.Contains(content, "max_items = 9") {
		t.Error("surface section was lost")
	}
}

func TestWriteDefault_UnchangedExisting(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	existing := filepath.Join(dir, "forge-reflect", "config.toml")
	os.MkdirAll(filepath.Dir(existing), 0o755)
	original := "user_root = \"/same\"\n\n[log]\nlevel = \"debug\"\n"
	os.WriteFile(existing, []byte(original), 0o644)

	_, action, err := WriteDefault("/same")
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if action != "unchanged" {
		t.Errorf("action = %q, want %q", action, "unchanged")
	}
	data, _ := os.ReadFile(existing)
	if string(data) != original {
		t.Error("file was modified when it should have been unchanged")
	}
}

func TestWriteDefault_MissingUserRootKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	existing := filepath.Join(dir, "forge-reflect", "config.toml")
	os.MkdirAll(filepath.Dir(existing), 0o755)
	os.WriteFile(existing, []byte("[log]\nlevel = \"debug\"\n"), 0o644)

	_, action, err := WriteDefault("/my/vault")
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if action != "updated" {
		t.Errorf("action = %q, want %q", action, "updated")
	}

	data, _ := os.ReadFile(existing)
	content := string(data)
	if !strings.HasPrefix(content, `user_root = "/my/vault"`) {
		t.Errorf("user_root not prepended:\n%s", content)
	}
	if !strings.Contains(content, `level = "debug"`) {
		t.Error("log section was lost")
	}
}

func TestCompressHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	tests := []struct {
		input string
		want  string
	}{
		{home + "/Data/vault", "~/Data/vault"},
		{home + "/foo", "~/foo"},
		{"/tmp/other", "/tmp/other"},
		{home, "~"},
	}

	for _, tt := range tests {
		got := CompressHome(tt.input)
		if got != tt.want {
			t.Errorf("CompressHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
