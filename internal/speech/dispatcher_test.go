package speech

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/leia/internal/fsm"
	"github.com/rbright/leia/internal/grammar"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeApps struct {
	launched     []string
	closed       []string
	windowCloses int
	launchErr    error
	closeErr     error
	windowErr    error
}

func (f *fakeApps) Launch(_ context.Context, name string) error {
	f.launched = append(f.launched, name)
	return f.launchErr
}

func (f *fakeApps) CloseApp(_ context.Context, name string) error {
	f.closed = append(f.closed, name)
	return f.closeErr
}

func (f *fakeApps) CloseActiveWindow(context.Context) error {
	f.windowCloses++
	return f.windowErr
}

type fakeKeys struct {
	returns   int
	returnErr error
}

func (f *fakeKeys) PressReturn(context.Context) error {
	f.returns++
	return f.returnErr
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, message string) {
	f.messages = append(f.messages, message)
}

type fakeStage struct {
	calls int
	got   []string
}

func (f *fakeStage) Handle(_ context.Context, utterance string) string {
	f.calls++
	f.got = append(f.got, utterance)
	return utterance
}

func TestDispatchVoiceCommandsDriveState(t *testing.T) {
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, nil, nil)
	ctx := context.Background()

	require.Equal(t, fsm.StateListening, d.State())

	require.Equal(t, "", d.Dispatch(ctx, "leah pause"))
	require.Equal(t, fsm.StatePaused, d.State())

	require.Equal(t, "", d.Dispatch(ctx, "leah resume"))
	require.Equal(t, fsm.StateListening, d.State())

	require.Equal(t, "", d.Dispatch(ctx, "leah stop"))
	require.Equal(t, fsm.StateStopped, d.State())
}

func TestDispatchWakeSpellingVariantsAllMatch(t *testing.T) {
	ctx := context.Background()
	for _, spelling := range grammar.DefaultWakeSpellings() {
		d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, nil, nil)
		require.Equal(t, "", d.Dispatch(ctx, spelling+" pause"), "spelling %q", spelling)
		require.Equal(t, fsm.StatePaused, d.State(), "spelling %q", spelling)
	}
}

func TestDispatchSuppressesDictationWhileNotListening(t *testing.T) {
	stage := &fakeStage{}
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, nil, nil, stage)
	ctx := context.Background()

	require.Equal(t, "", d.Dispatch(ctx, "leah pause"))
	require.Equal(t, "", d.Dispatch(ctx, "world"))
	require.Zero(t, stage.calls)

	require.Equal(t, "", d.Dispatch(ctx, "leah stop"))
	require.Equal(t, "", d.Dispatch(ctx, "anything at all"))
	require.Zero(t, stage.calls)
}

func TestDispatchIdempotentPauseAndResume(t *testing.T) {
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, nil, nil)
	ctx := context.Background()

	require.Equal(t, "", d.Dispatch(ctx, "leah pause"))
	require.Equal(t, fsm.StatePaused, d.State())

	// A second pause is a silent no-op.
	require.Equal(t, "", d.Dispatch(ctx, "leah pause"))
	require.Equal(t, fsm.StatePaused, d.State())

	require.False(t, d.Pause())

	require.Equal(t, "", d.Dispatch(ctx, "leah resume"))
	require.Equal(t, fsm.StateListening, d.State())

	require.Equal(t, "", d.Dispatch(ctx, "leah resume"))
	require.Equal(t, fsm.StateListening, d.State())

	require.False(t, d.Resume())
}

func TestDispatchStopWinsFromAnyLiveState(t *testing.T) {
	ctx := context.Background()

	for _, prep := range []string{"", "leah pause"} {
		d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, nil, nil)
		if prep != "" {
			require.Equal(t, "", d.Dispatch(ctx, prep))
		}
		require.Equal(t, "", d.Dispatch(ctx, "leah stop"))
		require.Equal(t, fsm.StateStopped, d.State())

		// Stopped is terminal.
		require.Equal(t, "", d.Dispatch(ctx, "leah resume"))
		require.Equal(t, fsm.StateStopped, d.State())
		require.False(t, d.Stop())
	}
}

func TestDispatchLaunchJoinsTrailingTokens(t *testing.T) {
	apps := &fakeApps{}
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), apps, nil, nil)

	require.Equal(t, "", d.Dispatch(context.Background(), "Leah launch Visual Studio Code"))
	require.Equal(t, []string{"visual studio code"}, apps.launched)
}

func TestDispatchLaunchUnknownAliasNotifiesOnce(t *testing.T) {
	apps := &fakeApps{launchErr: errors.New(`no application matches "zzzznotapp"`)}
	notifier := &fakeNotifier{}
	stage := &fakeStage{}
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), apps, nil, notifier, stage)

	require.Equal(t, "", d.Dispatch(context.Background(), "leah launch zzzznotapp"))
	require.Len(t, apps.launched, 1)
	require.Len(t, notifier.messages, 1)
	require.Contains(t, notifier.messages[0], "zzzznotapp")

	// The failure never reaches dictation and never aborts the session.
	require.Zero(t, stage.calls)
	require.Equal(t, fsm.StateListening, d.State())
}

func TestDispatchLaunchWithoutTargetFallsThrough(t *testing.T) {
	apps := &fakeApps{}
	stage := &fakeStage{}
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), apps, nil, nil, stage)

	got := d.Dispatch(context.Background(), "leah launch")
	require.Equal(t, "leah launch", got)
	require.Empty(t, apps.launched)
	require.Equal(t, []string{"leah launch"}, stage.got)
}

func TestDispatchCloseByNameAndActiveWindow(t *testing.T) {
	apps := &fakeApps{}
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), apps, nil, nil)
	ctx := context.Background()

	require.Equal(t, "", d.Dispatch(ctx, "leah close firefox"))
	require.Equal(t, []string{"firefox"}, apps.closed)
	require.Zero(t, apps.windowCloses)

	require.Equal(t, "", d.Dispatch(ctx, "leah close"))
	require.Equal(t, 1, apps.windowCloses)
}

func TestDispatchCloseFailureIsNonFatal(t *testing.T) {
	apps := &fakeApps{closeErr: errors.New("no such process")}
	notifier := &fakeNotifier{}
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), apps, nil, notifier)

	require.Equal(t, "", d.Dispatch(context.Background(), "leah close ghostapp"))
	require.Len(t, notifier.messages, 1)
	require.Equal(t, fsm.StateListening, d.State())
}

func TestDispatchPressReturnExactMatchOnly(t *testing.T) {
	keys := &fakeKeys{}
	stage := &fakeStage{}
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, keys, nil, stage)
	ctx := context.Background()

	require.Equal(t, "", d.Dispatch(ctx, "leah press return"))
	require.Equal(t, 1, keys.returns)
	require.Zero(t, stage.calls)

	// Any other press phrase is not a command.
	got := d.Dispatch(ctx, "leah press tab")
	require.Equal(t, "leah press tab", got)
	require.Equal(t, 1, keys.returns)
	require.Equal(t, []string{"leah press tab"}, stage.got)
}

func TestDispatchUnknownCommandFallsThroughWithOriginalCasing(t *testing.T) {
	stage := &fakeStage{}
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, nil, nil, stage)

	got := d.Dispatch(context.Background(), "Leah Rocket Ship")
	require.Equal(t, "Leah Rocket Ship", got)
	require.Equal(t, []string{"Leah Rocket Ship"}, stage.got)
}

func TestDispatchBareWakeWordIsDictation(t *testing.T) {
	stage := &fakeStage{}
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, nil, nil, stage)

	got := d.Dispatch(context.Background(), "leah")
	require.Equal(t, "leah", got)
	require.Equal(t, 1, stage.calls)
}

func TestDispatchEmptyChainReturnsUtteranceUnchanged(t *testing.T) {
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, nil, nil)

	got := d.Dispatch(context.Background(), "plain Dictation Text")
	require.Equal(t, "plain Dictation Text", got)
}

func TestDispatchCommandsStillServedWhilePaused(t *testing.T) {
	apps := &fakeApps{}
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), apps, nil, nil)
	ctx := context.Background()

	require.Equal(t, "", d.Dispatch(ctx, "leah pause"))
	require.Equal(t, "", d.Dispatch(ctx, "leah launch files"))
	require.Equal(t, []string{"files"}, apps.launched)
	require.Equal(t, fsm.StatePaused, d.State())
}

func TestDispatchScenarioPauseResumeContinuity(t *testing.T) {
	injector := &fakeInjector{}
	dictation := NewDictation(discardLogger(), grammar.DefaultLexicon(), grammar.DefaultPhrases(), injector, nil)
	d := NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, nil, nil, dictation)
	ctx := context.Background()

	utterances := []string{"hello", "leah pause", "world", "leah resume", "today."}
	want := []string{"hello", "", "", "", " today."}

	for i, utterance := range utterances {
		require.Equal(t, want[i], d.Dispatch(ctx, utterance), "utterance %d %q", i, utterance)
	}

	// Only the two dictations reached the window.
	require.Equal(t, []string{"hello", " today."}, injector.typed)
}
