package transcript

import (
	"path/filepath"
	"strings"
	"time"
)

// session is the running state of one analysis pass.
type session struct {
	a           Analysis
	first, last time.Time
}

// reset clears insight-scoped state at a review boundary. Session-wide
// counters, the memory-write flag and the timestamp span survive.
func (s *session) reset() {
	s.a.InsightCount = 0
	s.a.InsightTopics = nil
	s.a.InsightsWriteCount = 0
	s.a.InsightsWritten = nil
	s.a.SkippedTopics = nil
	s.a.CapturedTopics = nil
}

func (s *session) observe(ts time.Time) {
	if ts.IsZero() {
		return
	}
	if s.first.IsZero() || ts.Before(s.first) {
		s.first = ts
	}
	if s.last.IsZero() || ts.After(s.last) {
		s.last = ts
	}
}

func (s *session) addMarker(m Marker) {
	switch m.Kind {
	case MarkerInsight:
		s.a.InsightCount++
		if m.Topic != "" {
			s.a.InsightTopics = append(s.a.InsightTopics, m.Topic)
		}
	case MarkerSkip:
		if m.Topic != "" {
			s.a.SkippedTopics = append(s.a.SkippedTopics, m.Topic)
		}
	case MarkerCaptured:
		if m.Topic != "" {
			s.a.CapturedTopics = append(s.a.CapturedTopics, m.Topic)
		}
	}
}

// addWrite classifies a write target. One event may count as an insight
// write and a memory write at once.
func (s *session) addWrite(w WriteEvent, insightsPath string, memoryPaths []string) {
	if insightsPath != "" && strings.Contains(w.Path, insightsPath) {
		s.a.InsightsWriteCount++
		s.a.InsightsWritten = append(s.a.InsightsWritten, filepath.Base(w.Path))
	}
	for _, mp := range memoryPaths {
		if mp != "" && strings.Contains(w.Path, mp) {
			s.a.HasMemoryWrite = true
			break
		}
	}
}

// result freezes the state into an Analysis.
func (s *session) result() Analysis {
	a := s.a
	if !s.first.IsZero() && s.last.After(s.first) {
		a.SessionDurationMinutes = uint64(s.last.Sub(s.first) / time.Minute)
	}
	a.InsightTopics = nonNil(a.InsightTopics)
	a.SkippedTopics = nonNil(a.SkippedTopics)
	a.CapturedTopics = nonNil(a.CapturedTopics)
	a.InsightsWritten = nonNil(a.InsightsWritten)
	return a
}

// nonNil keeps JSON output as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
