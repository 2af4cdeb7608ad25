package grammar

import (
	"sort"
	"strings"
)

// commandKeywords are the verbs and particles the dispatcher understands.
// They ride along with any restricted grammar so commands stay
// recognizable.
var commandKeywords = []string{
	"stop", "pause", "resume", "launch", "close", "press", "return",
	"undo", "put", "puts", "putz", "a", "an",
}

// unknownToken lets a restricted grammar pass out-of-vocabulary audio
// through instead of forcing a bad match.
const unknownToken = "[unk]"

// Hints assembles the recognizer grammar list for a restricted session:
// the configured extra phrases plus wake spellings, command keywords,
// and spoken phrase names, deduped and sorted. An empty extra list
// returns nil, which keeps the recognizer in open-vocabulary mode.
func Hints(lexicon Lexicon, phrases PhraseMap, extra []string) []string {
	cleaned := make([]string, 0, len(extra))
	for _, phrase := range extra {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		cleaned = append(cleaned, phrase)
	}
	if len(cleaned) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, len(cleaned)+len(commandKeywords)+phrases.Len())
	add := func(phrase string) {
		if _, ok := seen[phrase]; ok {
			return
		}
		seen[phrase] = struct{}{}
		out = append(out, phrase)
	}

	for _, phrase := range cleaned {
		add(phrase)
	}
	for _, spelling := range lexicon.WakeSpellings() {
		add(spelling)
	}
	for _, keyword := range commandKeywords {
		add(keyword)
	}
	for _, spoken := range phrases.Phrases() {
		add(spoken)
	}
	add(unknownToken)

	sort.Strings(out)
	return out
}
