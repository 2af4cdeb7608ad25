// Package grammar holds the token tables consulted during utterance
// dispatch: the agent's wake-word spellings, the dictation command
// vocabulary, the phrase-to-literal punctuation table, and the continuity
// rules that stitch consecutive emissions together.
package grammar

import (
	"sort"
	"strings"
)

// defaultWakeSpellings lists recognizer outputs accepted as the agent's
// name. Short proper nouns come back from ASR in many shapes, so the set
// errs loose.
var defaultWakeSpellings = []string{
	"leah", "lea", "leeah", "leia", "laya", "layah", "leja", "lejah",
}

var putVariants = map[string]struct{}{
	"put":  {},
	"puts": {},
	"putz": {},
}

var indefiniteArticles = map[string]struct{}{
	"a":  {},
	"an": {},
}

// Lexicon classifies single tokens during utterance dispatch. Construct
// via NewLexicon or DefaultLexicon; read-only afterwards.
type Lexicon struct {
	wake map[string]struct{}
}

// DefaultWakeSpellings returns a copy of the built-in wake spelling set.
func DefaultWakeSpellings() []string {
	out := make([]string, len(defaultWakeSpellings))
	copy(out, defaultWakeSpellings)
	return out
}

// NewLexicon builds a lexicon accepting the given wake spellings. An empty
// or all-blank list falls back to the built-in set.
func NewLexicon(wakeSpellings []string) Lexicon {
	set := make(map[string]struct{}, len(wakeSpellings))
	for _, spelling := range wakeSpellings {
		spelling = strings.ToLower(strings.TrimSpace(spelling))
		if spelling == "" {
			continue
		}
		set[spelling] = struct{}{}
	}
	if len(set) == 0 {
		for _, spelling := range defaultWakeSpellings {
			set[spelling] = struct{}{}
		}
	}
	return Lexicon{wake: set}
}

// DefaultLexicon returns a lexicon with the built-in wake spellings.
func DefaultLexicon() Lexicon {
	return NewLexicon(nil)
}

// IsWakeWord reports whether token is an accepted agent-name spelling.
func (l Lexicon) IsWakeWord(token string) bool {
	_, ok := l.wake[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// IsPutVariant reports whether token is a recognized form of "put".
func (l Lexicon) IsPutVariant(token string) bool {
	_, ok := putVariants[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// IsIndefiniteArticle reports whether word is "a" or "an".
func (l Lexicon) IsIndefiniteArticle(word string) bool {
	_, ok := indefiniteArticles[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// WakeSpellings returns the active spellings in sorted order, for use as
// recognizer grammar hints.
func (l Lexicon) WakeSpellings() []string {
	out := make([]string, 0, len(l.wake))
	for spelling := range l.wake {
		out = append(out, spelling)
	}
	sort.Strings(out)
	return out
}
