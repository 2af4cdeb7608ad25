package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/leia/internal/fsm"
	"github.com/rbright/leia/internal/grammar"
	"github.com/rbright/leia/internal/speech"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRecognizer struct {
	startErr error
	stopErr  error

	mu       sync.Mutex
	callback func(context.Context, string)

	started atomic.Int32
	stopped atomic.Int32
	paused  atomic.Bool
	hints   atomic.Int32
}

func (f *fakeRecognizer) Start(_ context.Context, callback func(context.Context, string)) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.callback = callback
	f.mu.Unlock()
	f.started.Add(1)
	return nil
}

func (f *fakeRecognizer) Stop() error {
	f.stopped.Add(1)
	return f.stopErr
}

func (f *fakeRecognizer) SetPaused(paused bool) {
	f.hints.Add(1)
	f.paused.Store(paused)
}

// emit delivers one finalized utterance through the stored callback, the
// way a live adapter would.
func (f *fakeRecognizer) emit(t *testing.T, utterance string) {
	t.Helper()
	f.mu.Lock()
	callback := f.callback
	f.mu.Unlock()
	if callback == nil {
		t.Fatalf("recognizer was never started")
	}
	callback(context.Background(), utterance)
}

type fakeDispatcher struct {
	mu         sync.Mutex
	state      fsm.State
	dispatched []string
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{state: fsm.StateListening}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, utterance string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, utterance)
	return utterance
}

func (f *fakeDispatcher) State() fsm.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeDispatcher) Pause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != fsm.StateListening {
		return false
	}
	f.state = fsm.StatePaused
	return true
}

func (f *fakeDispatcher) Resume() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != fsm.StatePaused {
		return false
	}
	f.state = fsm.StateListening
	return true
}

func (f *fakeDispatcher) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == fsm.StateStopped {
		return false
	}
	f.state = fsm.StateStopped
	return true
}

func (f *fakeDispatcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dispatched)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// voiceDispatcher builds a real dispatcher with an empty handler chain so
// dictation utterances echo straight through.
func voiceDispatcher() *speech.Dispatcher {
	return speech.NewDispatcher(discardLogger(), grammar.DefaultLexicon(), nil, nil, nil)
}

func waitForStart(t *testing.T, rec *fakeRecognizer) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec.started.Load() > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for recognizer start")
}

func waitForState(t *testing.T, ctrl *Controller, desired fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == desired {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", desired, ctrl.State())
}

func TestControllerVoiceStopEndsRun(t *testing.T) {
	rec := &fakeRecognizer{}
	ctrl := NewController(discardLogger(), rec, voiceDispatcher(), nil)

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(context.Background())
	}()

	waitForStart(t, rec)
	rec.emit(t, "hello world")
	rec.emit(t, "leah stop")

	result := <-resultCh
	if result.Err != nil {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if result.State != fsm.StateStopped {
		t.Fatalf("expected stopped state, got %s", result.State)
	}
	if result.Utterances != 2 {
		t.Fatalf("expected 2 utterances, got %d", result.Utterances)
	}
	if result.Emitted != 1 {
		t.Fatalf("expected 1 emission, got %d", result.Emitted)
	}
	if result.Interrupted {
		t.Fatalf("voice stop must not count as interruption")
	}
	if rec.stopped.Load() != 1 {
		t.Fatalf("expected recognizer stop exactly once, got %d", rec.stopped.Load())
	}
}

func TestControllerContextCancelled(t *testing.T) {
	rec := &fakeRecognizer{}
	ctrl := NewController(discardLogger(), rec, voiceDispatcher(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForStart(t, rec)
	cancel()

	result := <-resultCh
	if result.Err != nil {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if !result.Interrupted {
		t.Fatalf("expected interrupted result")
	}
	if result.State != fsm.StateStopped {
		t.Fatalf("expected stopped state, got %s", result.State)
	}
	if rec.stopped.Load() != 1 {
		t.Fatalf("expected recognizer stop exactly once, got %d", rec.stopped.Load())
	}
}

func TestControllerStartFailure(t *testing.T) {
	rec := &fakeRecognizer{startErr: ErrRecognizerUnavailable}
	ctrl := NewController(discardLogger(), rec, voiceDispatcher(), nil)

	result := ctrl.Run(context.Background())
	if !IsRecognizerUnavailable(result.Err) {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if result.State != fsm.StateStopped {
		t.Fatalf("expected stopped state after start failure, got %s", result.State)
	}
	if result.FinishedAt.IsZero() {
		t.Fatalf("expected finished timestamp")
	}
	if rec.stopped.Load() != 0 {
		t.Fatalf("recognizer stop must not run when start failed")
	}
}

func TestControllerMirrorsPauseToRecognizer(t *testing.T) {
	rec := &fakeRecognizer{}
	notifier := &recordingNotifier{}
	ctrl := NewController(discardLogger(), rec, voiceDispatcher(), notifier)

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(context.Background())
	}()

	waitForStart(t, rec)
	rec.emit(t, "leah pause")
	if !rec.paused.Load() {
		t.Fatalf("expected pause hint after voice pause")
	}
	rec.emit(t, "leah resume")
	if rec.paused.Load() {
		t.Fatalf("expected pause hint cleared after voice resume")
	}
	rec.emit(t, "leah stop")
	<-resultCh

	messages := notifier.all()
	want := []string{"Listening", "Dictation paused", "Dictation resumed"}
	for _, cue := range want {
		found := false
		for _, m := range messages {
			if m == cue {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing cue %q in %v", cue, messages)
		}
	}
}

func TestOnUtteranceAfterStopIsDropped(t *testing.T) {
	dispatcher := newFakeDispatcher()
	ctrl := NewController(discardLogger(), &fakeRecognizer{}, dispatcher, nil)

	ctrl.Stop(context.Background())
	ctrl.OnUtterance(context.Background(), "hello")

	if dispatcher.calls() != 0 {
		t.Fatalf("expected no dispatch after stop, got %d", dispatcher.calls())
	}
	ctrl.mu.Lock()
	utterances := ctrl.utterances
	ctrl.mu.Unlock()
	if utterances != 0 {
		t.Fatalf("expected utterance counter untouched, got %d", utterances)
	}
}

func TestStopIdempotent(t *testing.T) {
	ctrl := NewController(discardLogger(), &fakeRecognizer{}, newFakeDispatcher(), nil)

	if !ctrl.Stop(context.Background()) {
		t.Fatalf("first stop should change state")
	}
	if ctrl.Stop(context.Background()) {
		t.Fatalf("second stop should be a no-op")
	}

	select {
	case <-ctrl.Done():
	default:
		t.Fatalf("expected done channel closed after stop")
	}
}

func TestResultTimestampsAdvance(t *testing.T) {
	rec := &fakeRecognizer{}
	ctrl := NewController(discardLogger(), rec, voiceDispatcher(), nil)

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(context.Background())
	}()

	waitForStart(t, rec)
	rec.emit(t, "leah stop")
	result := <-resultCh

	if result.StartedAt.IsZero() || result.FinishedAt.IsZero() {
		t.Fatalf("expected both timestamps set: %+v", result)
	}
	if result.FinishedAt.Before(result.StartedAt) {
		t.Fatalf("finish precedes start: %+v", result)
	}
	if result.Duration() > 2*time.Second {
		t.Fatalf("session took too long: %s", result.Duration())
	}
}
