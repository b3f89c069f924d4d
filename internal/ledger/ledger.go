// Package ledger keeps a local SQLite history of hook verdicts.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS verdicts (
    id                   TEXT PRIMARY KEY,
    recorded_at          TEXT NOT NULL,
    hook                 TEXT NOT NULL,
    session_id           TEXT NOT NULL DEFAULT '',
    cwd                  TEXT NOT NULL DEFAULT '',
    decision             TEXT NOT NULL,
    user_messages        INTEGER NOT NULL DEFAULT 0,
    tool_using_turns     INTEGER NOT NULL DEFAULT 0,
    duration_minutes     INTEGER NOT NULL DEFAULT 0,
    insight_count        INTEGER NOT NULL DEFAULT 0,
    insights_write_count INTEGER NOT NULL DEFAULT 0,
    uncaptured           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS verdicts_recorded_at ON verdicts(recorded_at);
`

// timeLayout is fixed width so recorded_at sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded hook verdict.
type Entry struct {
	ID                 string
	RecordedAt         time.Time
	Hook               string
	SessionID          string
	CWD                string
	Decision           string
	UserMessages       int
	ToolUsingTurns     int
	DurationMinutes    uint64
	InsightCount       int
	InsightsWriteCount int
	Uncaptured         []string
}

// Total counts verdicts per hook and decision.
type Total struct {
	Hook     string
	Decision string
	Count    int
}

type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores e, assigning an ID and timestamp when unset. Returns the
// stored entry.
func (l *Ledger) Record(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	e.RecordedAt = e.RecordedAt.UTC()

	_, err := l.db.Exec(`INSERT INTO verdicts
		(id, recorded_at, hook, session_id, cwd, decision, user_messages, tool_using_turns,
		 duration_minutes, insight_count, insights_write_count, uncaptured)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RecordedAt.Format(timeLayout), e.Hook, e.SessionID, e.CWD, e.Decision,
		e.UserMessages, e.ToolUsingTurns, int64(e.DurationMinutes), e.InsightCount,
		e.InsightsWriteCount, strings.Join(e.Uncaptured, "\n"))
	if err != nil {
		return e, fmt.Errorf("record verdict: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (l *Ledger) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(`SELECT id, recorded_at, hook, session_id, cwd, decision,
		user_messages, tool_using_turns, duration_minutes, insight_count,
		insights_write_count, uncaptured
		FROM verdicts ORDER BY recorded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			recordedAt string
			duration   int64
			uncaptured string
		)
		if err := rows.Scan(&e.ID, &recordedAt, &e.Hook, &e.SessionID, &e.CWD, &e.Decision,
			&e.UserMessages, &e.ToolUsingTurns, &duration, &e.InsightCount,
			&e.InsightsWriteCount, &uncaptured); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		e.RecordedAt, _ = time.Parse(timeLayout, recordedAt)
		e.DurationMinutes = uint64(duration)
		if uncaptured != "" {
			e.Uncaptured = strings.Split(uncaptured, "\n")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Totals counts verdicts grouped by hook and decision.
func (l *Ledger) Totals() ([]Total, error) {
	rows, err := l.db.Query(`SELECT hook, decision, COUNT(*) FROM verdicts
		GROUP BY hook, decision ORDER BY hook, decision`)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var totals []Total
	for rows.Next() {
		var t Total
		if err := rows.Scan(&t.Hook, &t.Decision, &t.Count); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
