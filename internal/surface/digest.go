package surface

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/suykerbuyk/forge-reflect/internal/config"
	"github.com/suykerbuyk/forge-reflect/internal/logger"
	"github.com/suykerbuyk/forge-reflect/internal/noteparse"
)

const (
	header      = "📌 Surface ─────────────────────────────────────────────"
	footer      = "─────────────────────────────────────────────────────────"
	instruction = "Print a concise daily briefing from the above — highlight the most urgent " +
		"items, skip anything the user likely already knows. 2-4 bullet points max."
	commandTimeout = 5 * time.Second
)

// Source performs the digest's external reads.
type Source interface {
	// ReadProtected reads a file that must go through the safe-read wrapper.
	ReadProtected(ctx context.Context, path string) (string, error)
	// Reminders returns the reminder JSON for the named list.
	Reminders(ctx context.Context, list string) (string, error)
}

// ExecSource runs the safe-read script and the ekctl binary.
type ExecSource struct {
	SafeRead string
	Ekctl    string
}

func (s ExecSource) ReadProtected(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", s.SafeRead, path)
	// The wrapper resolves its own module root when the plugin root is unset.
	cmd.Env = slices.DeleteFunc(os.Environ(), func(kv string) bool {
		return strings.HasPrefix(kv, "CLAUDE_PLUGIN_ROOT=")
	})
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("safe-read %s: %w", path, err)
	}
	return string(out), nil
}

func (s ExecSource) Reminders(ctx context.Context, list string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	bin := s.Ekctl
	if bin == "" {
		bin = "ekctl"
	}
	out, err := exec.CommandContext(ctx, bin, "list", "reminders", "--list", list, "--completed", "false").Output()
	if err != nil {
		return "", fmt.Errorf("ekctl: %w", err)
	}
	return string(out), nil
}

// Digest gathers the SessionStart sections for one working directory.
type Digest struct {
	Config config.Config
	CWD    string
	Today  time.Time
	Source Source
}

// Sections returns the non-empty digest sections in display order. A
// section whose source fails is omitted.
func (d *Digest) Sections(ctx context.Context) []string {
	today := day(d.Today)
	dayOfYear := d.Today.YearDay()

	var sections []string
	add := func(s string) {
		if s != "" {
			sections = append(sections, s)
		}
	}

	add(d.journal(ctx, today))

	backlog, err := d.Source.ReadProtected(ctx, d.user(d.Config.Backlog))
	if err != nil {
		logger.Debug("backlog: %v", err)
	}
	add(ParseBacklog(backlog, today, d.Config.Surface.DueSoonDays))

	if raw, err := d.Source.Reminders(ctx, d.Config.Surface.RemindersList); err != nil {
		logger.Debug("reminders: %v", err)
	} else {
		add(FormatReminders(raw, today))
	}

	cutoff := today.AddDate(0, 0, -d.Config.Surface.IdeasCutoffDays)
	add(ParseIdeas(d.ideas(), cutoff, dayOfYear, d.Config.Surface.MaxItems))

	pool := append(TabTitles(d.latestTabs()), BacklogTitles(backlog)...)
	add(RotatingPool(pool, d.Config.Surface.MaxItems, dayOfYear))

	return sections
}

// Render frames the sections for hook output. Returns "" when there is
// nothing to surface.
func (d *Digest) Render(ctx context.Context) string {
	sections := d.Sections(ctx)
	if len(sections) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(header + "\n")
	for _, s := range sections {
		b.WriteString(s)
	}
	b.WriteString(footer + "\n")
	b.WriteString(instruction + "\n")
	return b.String()
}

func (d *Digest) user(relative string) string {
	return d.Config.ResolveUserPath(d.CWD, relative)
}

func (d *Digest) journal(ctx context.Context, today time.Time) string {
	yesterday := today.AddDate(0, 0, -1)
	path := d.user(ResolveDatePattern(d.Config.Journal.Daily, yesterday))
	if _, err := os.Stat(path); err != nil {
		return fmt.Sprintf("Yesterday:\n%sNo journal for %s\n", bullet, yesterday.Format(dateLayout))
	}
	content, err := d.Source.ReadProtected(ctx, path)
	if err != nil {
		logger.Debug("journal: %v", err)
		return ""
	}
	return ParseJournalGaps(content)
}

func (d *Digest) ideas() []Idea {
	dir := d.user(d.Config.Memory.Ideas)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var ideas []Idea
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		note, err := noteparse.ParseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			logger.Debug("idea %s: %v", e.Name(), err)
			continue
		}
		idea := Idea{
			Title:   note.Field("title"),
			Status:  note.Field("status"),
			Created: note.Field("created"),
		}
		if idea.Title != "" {
			ideas = append(ideas, idea)
		}
	}
	return ideas
}

// latestTabs reads the lexically last archive file with the configured prefix.
func (d *Digest) latestTabs() string {
	dir := d.user(d.Config.Surface.ArchiveDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var latest string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, d.Config.Surface.ArchivePrefix) && name > latest {
			latest = name
		}
	}
	if latest == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(dir, latest))
	if err != nil {
		return ""
	}
	return string(data)
}

// SafeReadPath resolves the safe-read script against the forge root, or
// leaves it relative to the working directory when no root is known.
func SafeReadPath(cfg config.Config, forgeRoot string) string {
	if forgeRoot == "" || filepath.IsAbs(cfg.Commands.SafeRead) {
		return cfg.Commands.SafeRead
	}
	return filepath.Join(forgeRoot, cfg.Commands.SafeRead)
}
