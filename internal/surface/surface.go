// Package surface builds the SessionStart digest: overdue backlog items,
// reminders, stale ideas, yesterday's journal gaps and a rotating pool of
// things worth rediscovering. The parsers here are pure; digest.go does
// the I/O.
package surface

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	bullet     = "  • "
	dateLayout = "2006-01-02"
	openTask   = "- [ ] "
	maxReminds = 5
)

var (
	dueRe      = regexp.MustCompile(`\[due::\s*(\d{4}-\d{2}-\d{2})\]`)
	priorityRe = regexp.MustCompile(`\[priority::\s*(\w+)\]`)
	tabLinkRe  = regexp.MustCompile(`^- \[([^\]]+)\]\(`)
)

// day truncates t to a calendar date in its own location, expressed in UTC
// so that subtraction yields whole days.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDay(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, s)
	return t, err == nil
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

type backlogItem struct {
	desc     string
	priority string
	due      time.Time
}

// stripTaskMeta removes the open-task prefix and inline dataview fields.
func stripTaskMeta(line string) string {
	desc := strings.TrimPrefix(line, openTask)
	if m := dueRe.FindString(line); m != "" {
		desc = strings.ReplaceAll(desc, m, "")
	}
	if m := priorityRe.FindString(line); m != "" {
		desc = strings.ReplaceAll(desc, m, "")
	}
	return strings.TrimSpace(desc)
}

// ParseBacklog lists open tasks that are overdue or due within horizonDays
// of today. Returns "" when nothing qualifies.
func ParseBacklog(content string, today time.Time, horizonDays int) string {
	today = day(today)
	soon := today.AddDate(0, 0, horizonDays)

	var overdue, dueSoon []backlogItem
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, openTask) {
			continue
		}
		m := dueRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		due, ok := parseDay(m[1])
		if !ok {
			continue
		}
		item := backlogItem{desc: stripTaskMeta(line), priority: "medium", due: due}
		if p := priorityRe.FindStringSubmatch(line); p != nil {
			item.priority = p[1]
		}

		switch {
		case due.Before(today):
			overdue = append(overdue, item)
		case !due.After(soon):
			dueSoon = append(dueSoon, item)
		}
	}

	if len(overdue) == 0 && len(dueSoon) == 0 {
		return ""
	}

	var b strings.Builder
	if len(overdue) > 0 {
		b.WriteString("Overdue:\n")
		for _, it := range overdue {
			fmt.Fprintf(&b, "%s%s [%s, due %s]\n", bullet, it.desc, it.priority, it.due.Format(dateLayout))
		}
	}
	if len(dueSoon) > 0 {
		b.WriteString("Due soon:\n")
		for _, it := range dueSoon {
			fmt.Fprintf(&b, "%s%s [due %s]\n", bullet, it.desc, it.due.Format(dateLayout))
		}
	}
	return b.String()
}

// BacklogTitles returns every open task with its metadata stripped.
func BacklogTitles(content string) []string {
	var titles []string
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, openTask) {
			continue
		}
		if t := stripTaskMeta(line); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}

type reminderList struct {
	Count     int `json:"count"`
	Reminders []struct {
		Title   string `json:"title"`
		DueDate string `json:"dueDate"`
	} `json:"reminders"`
}

// FormatReminders renders ekctl's reminder JSON with relative due labels.
// Returns "" for zero reminders or unparseable output.
func FormatReminders(data string, today time.Time) string {
	var list reminderList
	if err := json.Unmarshal([]byte(data), &list); err != nil || list.Count == 0 {
		return ""
	}
	today = day(today)

	var b strings.Builder
	fmt.Fprintf(&b, "Reminders (%d):\n", list.Count)
	for i, r := range list.Reminders {
		if i == maxReminds {
			break
		}
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		if when := relativeDay(r.DueDate, today); when != "" {
			fmt.Fprintf(&b, "%s%s (%s)\n", bullet, title, when)
		} else {
			fmt.Fprintf(&b, "%s%s\n", bullet, title)
		}
	}
	return b.String()
}

func relativeDay(iso string, today time.Time) string {
	if len(iso) < len(dateLayout) {
		return ""
	}
	due, ok := parseDay(iso[:len(dateLayout)])
	if !ok {
		return ""
	}
	switch diff := daysBetween(today, due); {
	case diff == 0:
		return "today"
	case diff == 1:
		return "tomorrow"
	case diff < 0:
		return fmt.Sprintf("%dd overdue", -diff)
	default:
		return due.Format("Mon 02 Jan")
	}
}

// Idea is the frontmatter summary of one note in the ideas directory.
type Idea struct {
	Title   string
	Status  string
	Created string
}

// ParseIdeas lists open ideas created before cutoff, showing at most limit of
// them starting at a rotation offset derived from dayOfYear.
func ParseIdeas(ideas []Idea, cutoff time.Time, dayOfYear, limit int) string {
	cutoff = day(cutoff)

	var stale []Idea
	for _, idea := range ideas {
		if idea.Status != "Open" {
			continue
		}
		created, ok := parseDay(idea.Created)
		if ok && created.Before(cutoff) {
			stale = append(stale, idea)
		}
	}
	if len(stale) == 0 {
		return ""
	}

	sort.SliceStable(stale, func(i, j int) bool {
		return strings.ToLower(stale[i].Title) < strings.ToLower(stale[j].Title)
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Stale ideas (%d):\n", len(stale))
	for _, idx := range rotation(len(stale), limit, dayOfYear) {
		fmt.Fprintf(&b, "%s%s (since %s)\n", bullet, stale[idx].Title, stale[idx].Created)
	}
	return b.String()
}

// TabTitles extracts link titles from "- [Title](url)" lines.
func TabTitles(content string) []string {
	var titles []string
	for _, line := range strings.Split(content, "\n") {
		if m := tabLinkRe.FindStringSubmatch(line); m != nil {
			titles = append(titles, m[1])
		}
	}
	return titles
}

// ParseCapturedTabs shows a rotating selection of captured tab titles.
func ParseCapturedTabs(content string, limit, offset int) string {
	return formatPool("Captured tabs:\n", TabTitles(content), limit, offset)
}

// RotatingPool shows a rotating selection of items under "Rediscovery:".
func RotatingPool(items []string, limit, offset int) string {
	return formatPool("Rediscovery:\n", items, limit, offset)
}

func formatPool(header string, items []string, limit, offset int) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(header)
	for _, idx := range rotation(len(items), limit, offset) {
		b.WriteString(bullet + items[idx] + "\n")
	}
	return b.String()
}

// rotation yields up to limit indexes into a list of count items, starting
// at offset and wrapping around.
func rotation(count, limit, offset int) []int {
	if count == 0 || limit <= 0 {
		return nil
	}
	n := min(limit, count)
	start := offset % count
	if start < 0 {
		start += count
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = (start + i) % count
	}
	return idx
}

// ParseJournalGaps lists unchecked items under the "## Daily plan" and
// "## Daily review" sections. Any other heading or an embed line ends a
// section.
func ParseJournalGaps(content string) string {
	var unchecked []string
	inSection := false

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "## Daily plan"), strings.HasPrefix(line, "## Daily review"):
			inSection = true
			continue
		case strings.HasPrefix(line, "## "), strings.HasPrefix(line, "![["):
			inSection = false
			continue
		}

		if inSection && strings.HasPrefix(line, openTask) {
			item := strings.TrimSpace(strings.TrimPrefix(line, openTask))
			if !strings.HasPrefix(item, "#log/daily/") {
				unchecked = append(unchecked, item)
			}
		}
	}

	if len(unchecked) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Yesterday:\n")
	for _, item := range unchecked {
		b.WriteString(bullet + item + "\n")
	}
	return b.String()
}

// ResolveDatePattern substitutes YYYY-MM-DD, YYYY, MM and DD placeholders.
func ResolveDatePattern(pattern string, date time.Time) string {
	return strings.NewReplacer(
		"YYYY-MM-DD", date.Format(dateLayout),
		"YYYY", date.Format("2006"),
		"MM", date.Format("01"),
		"DD", date.Format("02"),
	).Replace(pattern)
}
