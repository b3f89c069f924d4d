// Package watch re-runs transcript analysis as a live session appends to
// its transcript.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/suykerbuyk/forge-reflect/internal/archive"
	"github.com/suykerbuyk/forge-reflect/internal/logger"
	"github.com/suykerbuyk/forge-reflect/internal/transcript"
)

// DefaultDebounce coalesces bursts of appends into one analysis.
const DefaultDebounce = 250 * time.Millisecond

// Watcher follows a single transcript file.
type Watcher struct {
	Path     string
	Analyzer *transcript.Analyzer
	Debounce time.Duration
}

// New returns a watcher for path using rules r.
func New(path string, r transcript.Rules) *Watcher {
	return &Watcher{
		Path:     path,
		Analyzer: transcript.NewAnalyzer(r),
		Debounce: DefaultDebounce,
	}
}

// Analyze reads the whole transcript once.
func (w *Watcher) Analyze() (transcript.Analysis, error) {
	rc, err := archive.Open(w.Path)
	if err != nil {
		return transcript.Analysis{}, err
	}
	defer rc.Close()
	return w.Analyzer.AnalyzeReader(rc)
}

// Run analyzes the transcript immediately and again after every write to
// it, passing each result to fn. The parent directory is watched so that
// the file may be created or replaced after Run starts. Run returns nil
// when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, fn func(transcript.Analysis)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.Path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.emit(fn)

	target := filepath.Clean(w.Path)
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.emit(fn)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("fsnotify: %v", err)
		}
	}
}

func (w *Watcher) emit(fn func(transcript.Analysis)) {
	a, err := w.Analyze()
	if err != nil {
		logger.Debug("analyze %s: %v", w.Path, err)
		return
	}
	fn(a)
}
