package grammar

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// EndsSentence reports whether text, ignoring trailing whitespace, ends
// with a sentence-terminal mark.
func EndsSentence(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	switch r, _ := utf8.DecodeLastRuneInString(trimmed); r {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}

// EndsAlphanumeric reports whether the final rune of text is a letter or a
// digit. Trailing whitespace counts as neither.
func EndsAlphanumeric(text string) bool {
	if text == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// CapitalizeFirst upper-cases the leading rune of text when it is a
// letter, leaving the remainder untouched.
func CapitalizeFirst(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError && size <= 1 {
		return text
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return text
	}
	return string(upper) + text[size:]
}

// AttachesBare reports whether text should join the previous emission
// without an inter-word space: it starts with clause punctuation or with
// one of the mapped literals.
func (m PhraseMap) AttachesBare(text string) bool {
	if text == "" {
		return false
	}
	switch r, _ := utf8.DecodeRuneInString(text); r {
	case ',', ':', ';':
		return true
	}
	for _, literal := range m.literals {
		if strings.HasPrefix(text, literal) {
			return true
		}
	}
	return false
}

// Stitch applies inter-utterance spacing and capitalization to text, given
// the previously emitted text. A sentence-terminal ending starts a new
// sentence; an alphanumeric ending gets a separating space unless the new
// text attaches bare.
func (m PhraseMap) Stitch(last, text string) string {
	if last == "" || text == "" {
		return text
	}
	if EndsSentence(last) {
		return " " + CapitalizeFirst(text)
	}
	if EndsAlphanumeric(last) && !m.AttachesBare(text) {
		return " " + text
	}
	return text
}
