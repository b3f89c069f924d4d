package transcript

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTokenLen drops noise words and short codes from topic matching.
const minTokenLen = 4

// TopicMatchesFilename reports whether a topic and a filename stem share a
// word token of at least four characters. Both inputs are expected to be
// lowercased already.
func TopicMatchesFilename(topic, stem string) bool {
	want := tokenSet(topic)
	if len(want) == 0 {
		return false
	}
	for tok := range tokenSet(stem) {
		if _, ok := want[tok]; ok {
			return true
		}
	}
	return false
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if utf8.RuneCountInString(tok) >= minTokenLen {
			set[tok] = struct{}{}
		}
	}
	return set
}

// Uncaptured summarizes the insights that were not recorded.
type Uncaptured struct {
	// Topics are insight topics with no matching written file and no
	// skip/captured acknowledgement, in transcript order.
	Topics []string
	// Untitled counts topicless insight occurrences not covered by a
	// spare insight write.
	Untitled int
}

// Pending is the total number of uncaptured insights.
func (u Uncaptured) Pending() int {
	return len(u.Topics) + u.Untitled
}

// FindUncaptured compares insight topics against written filenames and
// skip/captured acknowledgements.
func FindUncaptured(a Analysis) Uncaptured {
	var u Uncaptured

	stems := make([]string, len(a.InsightsWritten))
	for i, w := range a.InsightsWritten {
		stems[i] = strings.ToLower(strings.TrimSuffix(w, ".md"))
	}
	acks := make([]string, 0, len(a.SkippedTopics)+len(a.CapturedTopics))
	acks = append(acks, a.SkippedTopics...)
	acks = append(acks, a.CapturedTopics...)

	matchedByWrite := 0
	for _, topic := range a.InsightTopics {
		lower := strings.ToLower(topic)
		if anyMatch(lower, stems) {
			matchedByWrite++
			continue
		}
		if anyMatch(lower, acks) || slices.Contains(acks, lower) {
			continue
		}
		u.Topics = append(u.Topics, topic)
	}

	untitled := a.InsightCount - len(a.InsightTopics)
	spare := a.InsightsWriteCount - matchedByWrite
	if spare < 0 {
		spare = 0
	}
	if untitled > spare {
		u.Untitled = untitled - spare
	}
	return u
}

func anyMatch(topic string, candidates []string) bool {
	for _, c := range candidates {
		if TopicMatchesFilename(topic, c) {
			return true
		}
	}
	return false
}
