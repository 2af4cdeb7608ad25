package grammar

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// PhraseMap maps a normalized spoken phrase to the literal text it stands
// for, e.g. "period" to ".". Read-only after construction.
type PhraseMap struct {
	entries  map[string]string
	literals []string
}

// NewPhraseMap normalizes the given phrase table. Keys are lower-cased with
// whitespace collapsed; blank keys are dropped.
func NewPhraseMap(entries map[string]string) PhraseMap {
	normalized := make(map[string]string, len(entries))
	for phrase, literal := range entries {
		phrase = normalizePhrase(phrase)
		if phrase == "" {
			continue
		}
		normalized[phrase] = literal
	}

	seen := make(map[string]struct{}, len(normalized))
	literals := make([]string, 0, len(normalized))
	for _, literal := range normalized {
		if literal == "" {
			continue
		}
		if _, dup := seen[literal]; dup {
			continue
		}
		seen[literal] = struct{}{}
		literals = append(literals, literal)
	}
	sort.Strings(literals)

	return PhraseMap{entries: normalized, literals: literals}
}

// DefaultPhrases returns the built-in punctuation table.
func DefaultPhrases() PhraseMap {
	return NewPhraseMap(map[string]string{
		"period":            ".",
		"full stop":         ".",
		"comma":             ",",
		"question mark":     "?",
		"exclamation point": "!",
		"exclamation mark":  "!",
		"colon":             ":",
		"semicolon":         ";",
		"dash":              "-",
		"hyphen":            "-",
		"underscore":        "_",
		"apostrophe":        "'",
		"single quote":      "'",
		"quote":             "\"",
		"double quote":      "\"",
		"open paren":        "(",
		"close paren":       ")",
		"open parenthesis":  "(",
		"close parenthesis": ")",
		"open bracket":      "[",
		"close bracket":     "]",
		"open brace":        "{",
		"close brace":       "}",
		"at sign":           "@",
		"hash":              "#",
		"pound sign":        "#",
		"dollar sign":       "$",
		"percent sign":      "%",
		"caret":             "^",
		"ampersand":         "&",
		"asterisk":          "*",
		"star":              "*",
		"plus sign":         "+",
		"equals sign":       "=",
		"slash":             "/",
		"forward slash":     "/",
		"backslash":         "\\",
		"pipe":              "|",
		"tilde":             "~",
		"backtick":          "`",
		"less than":         "<",
		"greater than":      ">",
		"ellipsis":          "...",
		"new line":          "\n",
		"tab":               "\t",
	})
}

// LoadPhrases reads a flat JSON object of phrase-to-literal pairs from
// path. Table files are startup configuration, so a missing or malformed
// file is an error rather than a fallback.
func LoadPhrases(path string) (PhraseMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PhraseMap{}, fmt.Errorf("read phrase table: %w", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return PhraseMap{}, fmt.Errorf("parse phrase table %q: %w", path, err)
	}
	if len(entries) == 0 {
		return PhraseMap{}, fmt.Errorf("phrase table %q is empty", path)
	}
	return NewPhraseMap(entries), nil
}

// Lookup resolves a spoken phrase to its literal.
func (m PhraseMap) Lookup(phrase string) (string, bool) {
	literal, ok := m.entries[normalizePhrase(phrase)]
	return literal, ok
}

// Len reports the number of mapped phrases.
func (m PhraseMap) Len() int {
	return len(m.entries)
}

// Phrases returns the mapped spoken phrases in sorted order, for use as
// recognizer grammar hints.
func (m PhraseMap) Phrases() []string {
	out := make([]string, 0, len(m.entries))
	for phrase := range m.entries {
		out = append(out, phrase)
	}
	sort.Strings(out)
	return out
}

// Literals returns the distinct mapped literals in sorted order.
func (m PhraseMap) Literals() []string {
	out := make([]string, len(m.literals))
	copy(out, m.literals)
	return out
}

// normalizePhrase lower-cases a phrase and collapses interior whitespace.
func normalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}
