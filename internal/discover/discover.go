package discover

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var uuidPattern = regexp.MustCompile(`^([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\.jsonl(\.zst)?$`)

var projectDirReplacer = regexp.MustCompile(`[^A-Za-z0-9-]`)

// TranscriptFile represents a discovered transcript on disk.
type TranscriptFile struct {
	Path       string
	SessionID  string // UUID extracted from filename
	IsSubagent bool   // true if under */subagents/
	ModTime    int64  // unix timestamp for sorting
}

// ProjectsDir returns the Claude Code projects directory, ~/.claude/projects.
func ProjectsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "projects")
}

// ProjectDirName encodes a working directory the way Claude Code names its
// per-project transcript directories: every non-alphanumeric is a dash.
func ProjectDirName(cwd string) string {
	return projectDirReplacer.ReplaceAllString(filepath.Clean(cwd), "-")
}

// Discover walks basePath recursively and returns all transcript files
// (.jsonl or .jsonl.zst) with valid UUID filenames, sorted by modification
// time (oldest first).
func Discover(basePath string) ([]TranscriptFile, error) {
	var results []TranscriptFile

	err := filepath.Walk(basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if info.IsDir() {
			return nil
		}

		m := uuidPattern.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			return nil
		}

		isSubagent := strings.Contains(path, string(filepath.Separator)+"subagents"+string(filepath.Separator))

		results = append(results, TranscriptFile{
			Path:       path,
			SessionID:  m[1],
			IsSubagent: isSubagent,
			ModTime:    info.ModTime().Unix(),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ModTime < results[j].ModTime
	})

	return results, nil
}

// Latest returns the most recently modified main-session transcript for
// cwd under basePath. With an empty cwd, or when the project has no
// transcripts, the newest transcript anywhere under basePath is returned.
func Latest(basePath, cwd string) (string, error) {
	if cwd != "" {
		dir := filepath.Join(basePath, ProjectDirName(cwd))
		if path := newestMain(dir); path != "" {
			return path, nil
		}
	}
	if path := newestMain(basePath); path != "" {
		return path, nil
	}
	return "", os.ErrNotExist
}

func newestMain(dir string) string {
	files, err := Discover(dir)
	if err != nil {
		return ""
	}
	for i := len(files) - 1; i >= 0; i-- {
		if !files[i].IsSubagent {
			return files[i].Path
		}
	}
	return ""
}

// FindBySessionID locates a specific transcript by session ID under basePath.
// Checks basePath/*/{sessionID}.jsonl[.zst] and the subagents directories.
func FindBySessionID(basePath, sessionID string) (string, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return "", err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		for _, sub := range []string{"", "subagents"} {
			for _, ext := range []string{".jsonl", ".jsonl.zst"} {
				candidate := filepath.Join(basePath, e.Name(), sub, sessionID+ext)
				if _, err := os.Stat(candidate); err == nil {
					return candidate, nil
				}
			}
		}
	}

	return "", os.ErrNotExist
}
