package transcript

import (
	"regexp"
	"strings"
	"unicode"
)

// borderChars are rule and fence characters. A candidate made only of
// these (and whitespace) is decoration, not a topic.
const borderChars = "-_=*~`─━═—–│┄┈"

var emphasis = strings.NewReplacer("**", "", "__", "", "`", "")

type markerPattern struct {
	kind MarkerKind
	re   *regexp.Regexp
}

// markerScanner finds marker lines in assistant text. A marker must start
// its line, optionally indented and optionally preceded by a backtick
// fence, so prose that only mentions a marker mid-sentence is ignored.
type markerScanner struct {
	patterns []markerPattern
}

func newMarkerScanner(r Rules) markerScanner {
	var ms markerScanner
	add := func(kind MarkerKind, literal string) {
		if strings.TrimSpace(literal) == "" {
			return
		}
		re := regexp.MustCompile("^[ \\t]*`?" + regexp.QuoteMeta(literal) + "(.*)$")
		ms.patterns = append(ms.patterns, markerPattern{kind: kind, re: re})
	}
	add(MarkerInsight, r.InsightMarker)
	add(MarkerSkip, r.SkipMarker)
	add(MarkerCaptured, r.CapturedMarker)
	return ms
}

// match reports the marker on a single line and its trailing text.
func (ms markerScanner) match(line string) (MarkerKind, string, bool) {
	line = strings.TrimRight(line, "\r")
	for _, p := range ms.patterns {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rest := m[1]
		// "★ Insights are..." is prose, not the marker.
		if r := firstRune(rest); unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return p.kind, rest, true
	}
	return 0, "", false
}

// Scan returns every marker occurrence in text, in order.
func (ms markerScanner) Scan(text string) []Marker {
	if len(ms.patterns) == 0 || text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")

	var found []Marker
	for i, line := range lines {
		kind, rest, ok := ms.match(line)
		if !ok {
			continue
		}
		topic, ok := topicCandidate(kind, rest)
		if !ok {
			topic = ms.fallbackTopic(kind, lines[i+1:])
		}
		found = append(found, Marker{Kind: kind, Topic: storeForm(kind, topic)})
	}
	return found
}

// fallbackTopic takes the first following line with two or more tokens,
// skipping blank and decorative lines. It stops at the next marker.
func (ms markerScanner) fallbackTopic(kind MarkerKind, lines []string) string {
	for _, line := range lines {
		if _, _, ok := ms.match(line); ok {
			return ""
		}
		trimmed := strings.TrimSpace(line)
		if isDecorative(trimmed) {
			continue
		}
		if topic, ok := topicCandidate(kind, cleanLine(trimmed)); ok {
			return topic
		}
	}
	return ""
}

// topicCandidate strips emphasis, separators and borders from raw marker
// text. It fails for empty, decorative or single-token candidates.
func topicCandidate(kind MarkerKind, raw string) (string, bool) {
	s := strings.TrimSpace(emphasis.Replace(raw))
	s = strings.TrimLeft(s, ":： \t")
	s = strings.Trim(s, borderChars+" \t")
	if kind == MarkerCaptured {
		s = beforeArrow(s)
	}
	s = strings.TrimSpace(s)
	if isDecorative(s) || len(strings.Fields(s)) < 2 {
		return "", false
	}
	return s, true
}

// cleanLine strips emphasis, list/quote/heading prefixes and a trailing
// colon from a fallback line.
func cleanLine(s string) string {
	s = emphasis.Replace(s)
	s = strings.TrimLeft(s, "#>-*+• \t")
	s = strings.Trim(s, "*_ \t")
	s = strings.TrimRight(s, ":： \t")
	return s
}

func beforeArrow(s string) string {
	for _, arrow := range []string{"→", "->", "=>"} {
		if i := strings.Index(s, arrow); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// storeForm lowercases skip and captured topics; insight topics keep case.
func storeForm(kind MarkerKind, topic string) string {
	if kind == MarkerInsight {
		return topic
	}
	return strings.ToLower(topic)
}

func isDecorative(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !strings.ContainsRune(borderChars, r) {
			return false
		}
	}
	return true
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
