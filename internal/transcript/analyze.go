package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Analyzer runs the single-pass transcript analysis for one rule set.
// Patterns are compiled once; an Analyzer is safe for concurrent use.
type Analyzer struct {
	markers      markerScanner
	tools        toolExtractor
	insightsPath string
	memoryPaths  []string
	compaction   string
}

// NewAnalyzer compiles the rules.
func NewAnalyzer(r Rules) *Analyzer {
	return &Analyzer{
		markers:      newMarkerScanner(r),
		tools:        newToolExtractor(r),
		insightsPath: r.InsightsPath,
		memoryPaths:  append([]string(nil), r.MemoryPaths...),
		compaction:   r.CompactionPhrase,
	}
}

// Analyze analyzes an in-memory transcript. Malformed or unrecognized
// lines are skipped; it never fails.
func Analyze(text string, r Rules) Analysis {
	return NewAnalyzer(r).Analyze(text)
}

// Analyze analyzes an in-memory transcript.
func (az *Analyzer) Analyze(text string) Analysis {
	var s session
	for line := range strings.Lines(text) {
		az.line(&s, line)
	}
	return s.result()
}

// AnalyzeReader analyzes a JSONL stream line by line. Line length is not
// capped. The returned error reflects only the reader; the analysis covers
// every line read before it.
func (az *Analyzer) AnalyzeReader(r io.Reader) (Analysis, error) {
	var s session
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			az.line(&s, line)
		}
		if err == io.EOF {
			return s.result(), nil
		}
		if err != nil {
			return s.result(), fmt.Errorf("read transcript: %w", err)
		}
	}
}

func (az *Analyzer) line(s *session, line string) {
	rec, ok := decodeRecord(line)
	if !ok {
		return
	}
	turn, ok := Normalize(rec)
	if !ok {
		return
	}
	az.fold(s, turn)
}

// fold applies one turn. A boundary reset is applied before the turn's own
// markers and writes, so the trigger turn is evaluated against cleared state.
func (az *Analyzer) fold(s *session, t Turn) {
	s.observe(t.Timestamp)

	switch t.Role {
	case RoleUser:
		s.a.UserMessages++
		if az.continuesCompaction(t) {
			s.reset()
		}

	case RoleAssistant:
		if az.invokesReflection(t) {
			s.reset()
		}
		usedTool := false
		for _, it := range t.Items {
			switch it.Kind {
			case ItemText:
				for _, m := range az.markers.Scan(it.Text) {
					s.addMarker(m)
				}
			case ItemTool:
				usedTool = true
				for _, w := range az.tools.writes(it.Tool) {
					s.addWrite(w, az.insightsPath, az.memoryPaths)
				}
			}
		}
		if usedTool {
			s.a.ToolUsingTurns++
		}
	}
}

func (az *Analyzer) continuesCompaction(t Turn) bool {
	if az.compaction == "" {
		return false
	}
	return strings.Contains(TextContent(t), az.compaction)
}

func (az *Analyzer) invokesReflection(t Turn) bool {
	for _, call := range ToolCalls(t) {
		if az.tools.invokesReflection(call) {
			return true
		}
	}
	return false
}
