package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/leia/internal/grammar"
)

type fakeInjector struct {
	typed     []string
	undos     int
	injectErr error
	undoErr   error
}

func (f *fakeInjector) Inject(_ context.Context, text string) error {
	f.typed = append(f.typed, text)
	return f.injectErr
}

func (f *fakeInjector) Undo(context.Context) error {
	f.undos++
	return f.undoErr
}

func newDictationForTest(injector Injector, notifier Notifier) *Dictation {
	return NewDictation(discardLogger(), grammar.DefaultLexicon(), grammar.DefaultPhrases(), injector, notifier)
}

func TestHandleFirstUtterancePassesThrough(t *testing.T) {
	injector := &fakeInjector{}
	h := newDictationForTest(injector, nil)

	got := h.Handle(context.Background(), "Hello There")
	require.Equal(t, "Hello There", got)
	require.Equal(t, []string{"Hello There"}, injector.typed)
	require.Equal(t, "Hello There", h.lastText)
}

func TestHandleSpacingLawBetweenWords(t *testing.T) {
	injector := &fakeInjector{}
	h := newDictationForTest(injector, nil)
	ctx := context.Background()

	require.Equal(t, "hello", h.Handle(ctx, "hello"))
	require.Equal(t, " world", h.Handle(ctx, "world"))
	require.Equal(t, []string{"hello", " world"}, injector.typed)
}

func TestHandleContinuityLawAfterSentenceTerminal(t *testing.T) {
	injector := &fakeInjector{}
	h := newDictationForTest(injector, nil)
	ctx := context.Background()

	cases := []struct {
		first string
		next  string
		want  string
	}{
		{first: "done.", next: "today", want: " Today"},
		{first: "done!", next: "today", want: " Today"},
		{first: "done?", next: "today", want: " Today"},
	}

	for _, tc := range cases {
		h.lastText = ""
		require.Equal(t, tc.first, h.Handle(ctx, tc.first))
		require.Equal(t, tc.want, h.Handle(ctx, tc.next), "after %q", tc.first)
	}
}

func TestHandleClausePunctuationAttachesBare(t *testing.T) {
	injector := &fakeInjector{}
	h := newDictationForTest(injector, nil)
	ctx := context.Background()

	require.Equal(t, "hello", h.Handle(ctx, "hello"))
	require.Equal(t, ", and then", h.Handle(ctx, ", and then"))
}

func TestHandlePutPhraseRoundTrip(t *testing.T) {
	injector := &fakeInjector{}
	h := newDictationForTest(injector, nil)
	ctx := context.Background()

	for _, utterance := range []string{
		"leah put a period",
		"leah put period",
		"leah puts a period",
		"leah putz period",
		"Leia PUT A PERIOD",
	} {
		h.lastText = ""
		require.Equal(t, ".", h.Handle(ctx, utterance), "utterance %q", utterance)
	}
}

func TestHandlePutPhraseAttachesToPreviousWord(t *testing.T) {
	injector := &fakeInjector{}
	h := newDictationForTest(injector, nil)
	ctx := context.Background()

	require.Equal(t, "hello", h.Handle(ctx, "hello"))
	require.Equal(t, ".", h.Handle(ctx, "leah put a period"))
	require.Equal(t, []string{"hello", "."}, injector.typed)

	// The period now drives sentence-start capitalization.
	require.Equal(t, " World", h.Handle(ctx, "world"))
}

func TestHandlePutUnmappedPhraseSuppressedWithNotice(t *testing.T) {
	injector := &fakeInjector{}
	notifier := &fakeNotifier{}
	h := newDictationForTest(injector, notifier)
	ctx := context.Background()

	require.Equal(t, "hello", h.Handle(ctx, "hello"))
	require.Equal(t, "", h.Handle(ctx, "leah put a wiggly arrow"))

	require.Len(t, notifier.messages, 1)
	require.Contains(t, notifier.messages[0], "wiggly arrow")

	// Suppression emitted nothing and reset continuity.
	require.Equal(t, []string{"hello"}, injector.typed)
	require.Equal(t, "", h.lastText)
	require.Equal(t, "world", h.Handle(ctx, "world"))
}

func TestHandlePutWithOnlyArticleSuppressed(t *testing.T) {
	injector := &fakeInjector{}
	notifier := &fakeNotifier{}
	h := newDictationForTest(injector, notifier)

	require.Equal(t, "", h.Handle(context.Background(), "leah put a"))
	require.Empty(t, injector.typed)
	require.Len(t, notifier.messages, 1)
}

func TestHandleUndoSendsChordAndKeepsContinuity(t *testing.T) {
	injector := &fakeInjector{}
	h := newDictationForTest(injector, nil)
	ctx := context.Background()

	require.Equal(t, "hello", h.Handle(ctx, "hello"))
	require.Equal(t, "", h.Handle(ctx, "leah undo"))
	require.Equal(t, 1, injector.undos)

	// Undo does not reset the continuity state.
	require.Equal(t, "hello", h.lastText)
	require.Equal(t, " world", h.Handle(ctx, "world"))
}

func TestHandleUndoFailureIsNonFatal(t *testing.T) {
	injector := &fakeInjector{undoErr: errors.New("uinput unavailable")}
	h := newDictationForTest(injector, nil)

	require.Equal(t, "", h.Handle(context.Background(), "leah undo"))
	require.Equal(t, 1, injector.undos)
}

func TestHandleInjectionFailureStillTracksContinuity(t *testing.T) {
	injector := &fakeInjector{injectErr: errors.New("clipboard unavailable")}
	h := newDictationForTest(injector, nil)
	ctx := context.Background()

	require.Equal(t, "hello", h.Handle(ctx, "hello"))
	require.Equal(t, "hello", h.lastText)
	require.Equal(t, " world", h.Handle(ctx, "world"))
}

func TestHandleThreeTokensWithoutPutIsPlainDictation(t *testing.T) {
	injector := &fakeInjector{}
	h := newDictationForTest(injector, nil)

	got := h.Handle(context.Background(), "leah likes cake")
	require.Equal(t, "leah likes cake", got)
	require.Equal(t, []string{"leah likes cake"}, injector.typed)
}
