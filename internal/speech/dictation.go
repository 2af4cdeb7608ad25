package speech

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rbright/leia/internal/grammar"
)

// Injector applies dictated text to the focused window.
type Injector interface {
	Inject(ctx context.Context, text string) error
	Undo(ctx context.Context) error
}

type noopInjector struct{}

func (noopInjector) Inject(context.Context, string) error { return nil }
func (noopInjector) Undo(context.Context) error           { return nil }

// Dictation is the terminal handler stage. It resolves spoken punctuation
// phrases, stitches each utterance to the previous emission, and injects
// the result. lastText carries continuity state between utterances; the
// dispatcher serializes calls, so it needs no locking of its own.
type Dictation struct {
	logger   *slog.Logger
	lexicon  grammar.Lexicon
	phrases  grammar.PhraseMap
	injector Injector
	notifier Notifier

	lastText string
}

// NewDictation constructs the dictation stage with safe default fallbacks.
func NewDictation(
	logger *slog.Logger,
	lexicon grammar.Lexicon,
	phrases grammar.PhraseMap,
	injector Injector,
	notifier Notifier,
) *Dictation {
	if logger == nil {
		logger = slog.Default()
	}
	if injector == nil {
		injector = noopInjector{}
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, string) {})
	}

	return &Dictation{
		logger:   logger,
		lexicon:  lexicon,
		phrases:  phrases,
		injector: injector,
		notifier: notifier,
	}
}

// Handle converts one utterance into injected text and returns what was
// emitted. An empty return means the utterance was consumed without
// output; empty emissions also reset continuity, except for undo, which
// leaves the previous continuity state in place.
func (h *Dictation) Handle(ctx context.Context, utterance string) string {
	words := strings.Fields(strings.ToLower(utterance))

	if len(words) == 2 && h.lexicon.IsWakeWord(words[0]) && words[1] == "undo" {
		if err := h.injector.Undo(ctx); err != nil {
			h.logger.Error("undo failed", "error", err)
		}
		return ""
	}

	text := utterance
	if len(words) >= 3 && h.lexicon.IsWakeWord(words[0]) && h.lexicon.IsPutVariant(words[1]) {
		phraseWords := words[2:]
		if h.lexicon.IsIndefiniteArticle(phraseWords[0]) {
			phraseWords = phraseWords[1:]
		}
		phrase := strings.Join(phraseWords, " ")

		literal, ok := h.phrases.Lookup(phrase)
		if !ok {
			h.logger.Warn("unmapped punctuation phrase", "phrase", phrase)
			h.notifier.Notify(ctx, "No punctuation mapped for "+strconv.Quote(phrase))
		}
		text = literal
	}

	text = h.phrases.Stitch(h.lastText, text)

	if text != "" {
		if err := h.injector.Inject(ctx, text); err != nil {
			h.logger.Error("text injection failed", "length", len(text), "error", err)
		}
	}

	h.lastText = text
	return text
}
