package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/suykerbuyk/forge-reflect/internal/transcript"
)

const userRecord = `{"type":"user","timestamp":"2026-02-22T10:00:00Z","message":{"role":"user","content":"hi"}}` + "\n"

func TestAnalyze(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	os.WriteFile(path, []byte(userRecord+userRecord), 0o644)

	a, err := New(path, transcript.DefaultRules()).Analyze()
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.UserMessages != 2 {
		t.Errorf("UserMessages = %d, want 2", a.UserMessages)
	}
}

func TestAnalyze_Missing(t *testing.T) {
	if _, err := New("/nonexistent/s.jsonl", transcript.DefaultRules()).Analyze(); err == nil {
		t.Error("expected error for missing transcript")
	}
}

func TestRun_ReanalyzesOnAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	if err := os.WriteFile(path, []byte(userRecord), 0o644); err != nil {
		t.Fatal(err)
	}

	w := New(path, transcript.DefaultRules())
	w.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan transcript.Analysis, 16)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(a transcript.Analysis) { results <- a }) }()

	first := waitFor(t, results)
	if first.UserMessages != 1 {
		t.Fatalf("initial UserMessages = %d, want 1", first.UserMessages)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(userRecord)
	f.Close()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case a := <-results:
			if a.UserMessages == 2 {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Run returned %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("no re-analysis after append")
		}
	}
}

func TestRun_MissingDir(t *testing.T) {
	w := New("/nonexistent/dir/s.jsonl", transcript.DefaultRules())
	if err := w.Run(context.Background(), func(transcript.Analysis) {}); err == nil {
		t.Error("expected error watching a missing directory")
	}
}

func waitFor(t *testing.T, ch <-chan transcript.Analysis) transcript.Analysis {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for analysis")
		return transcript.Analysis{}
	}
}
