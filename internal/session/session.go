// Package session coordinates one agent session: it feeds recognized
// utterances through the dispatcher, mirrors listening state to the
// recognizer and operator cues, and owns the one-shot stop signal that
// ends the run.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/leia/internal/fsm"
	"github.com/rbright/leia/internal/ipc"
)

// Dispatcher is the session-facing surface of utterance handling.
type Dispatcher interface {
	Dispatch(ctx context.Context, utterance string) string
	State() fsm.State
	Pause() bool
	Resume() bool
	Stop() bool
}

// Notifier surfaces short operator cues for lifecycle changes.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// noopNotifier preserves session flow when no notifier is wired.
type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string) {}

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	SessionID   string
	State       fsm.State
	Utterances  int
	Emitted     int
	Interrupted bool
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration returns the wall-clock span of the session.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Controller orchestrates the session loop. Utterance callbacks and
// control commands share one mutex so the dispatcher always observes a
// serialized order and continuity state stays coherent.
type Controller struct {
	logger     *slog.Logger
	recognizer Recognizer
	dispatcher Dispatcher
	notifier   Notifier

	id       string
	observer func(fsm.State)

	mu         sync.Mutex
	paused     bool
	utterances int
	emitted    int

	done     chan struct{}
	stopOnce sync.Once
}

// NewController constructs a session controller with safe default
// fallbacks. The dispatcher is required.
func NewController(
	logger *slog.Logger,
	recognizer Recognizer,
	dispatcher Dispatcher,
	notifier Notifier,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if recognizer == nil {
		recognizer = PlaceholderRecognizer{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &Controller{
		logger:     logger,
		recognizer: recognizer,
		dispatcher: dispatcher,
		notifier:   notifier,
		id:         uuid.NewString(),
		done:       make(chan struct{}),
	}
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// SetStateObserver registers a hook that receives the listening state
// after every dispatch or control call. Must be set before Run.
func (c *Controller) SetStateObserver(fn func(fsm.State)) {
	c.observer = fn
}

// State returns the current listening state snapshot.
func (c *Controller) State() fsm.State { return c.dispatcher.State() }

// Done is closed exactly once when the session reaches the stopped
// state, whether by voice command or control surface.
func (c *Controller) Done() <-chan struct{} { return c.done }

// OnUtterance is the recognizer callback. Each finalized utterance runs
// through the dispatcher to completion before the next one is admitted.
func (c *Controller) OnUtterance(ctx context.Context, utterance string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
	}

	c.utterances++
	emitted := c.dispatcher.Dispatch(ctx, utterance)
	if emitted != "" {
		c.emitted++
	}
	c.logger.Debug("utterance handled",
		"session", c.id,
		"state", string(c.dispatcher.State()),
		"emitted_chars", len(emitted))

	c.afterTransitionLocked(ctx)
}

// Pause suspends dictation output. Returns false when nothing changed.
func (c *Controller) Pause(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.dispatcher.Pause()
	if changed {
		c.afterTransitionLocked(ctx)
	}
	return changed
}

// Resume restores dictation output. Returns false when nothing changed.
func (c *Controller) Resume(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.dispatcher.Resume()
	if changed {
		c.afterTransitionLocked(ctx)
	}
	return changed
}

// Stop ends the session. Safe to call from any state and any number of
// times.
func (c *Controller) Stop(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.dispatcher.Stop()
	c.afterTransitionLocked(ctx)
	return changed
}

// afterTransitionLocked mirrors dispatcher state to the recognizer pause
// hint, emits operator cues on pause edges, and fires the stop signal in
// the terminal state. Callers hold c.mu.
func (c *Controller) afterTransitionLocked(ctx context.Context) {
	state := c.dispatcher.State()
	if c.observer != nil {
		c.observer(state)
	}

	paused := state == fsm.StatePaused
	if paused != c.paused {
		c.paused = paused
		c.recognizer.SetPaused(paused)
		if paused {
			c.notifier.Notify(ctx, "Dictation paused")
		} else if state == fsm.StateListening {
			c.notifier.Notify(ctx, "Dictation resumed")
		}
	}

	if state == fsm.StateStopped {
		c.stopOnce.Do(func() {
			c.logger.Info("session stopping", "session", c.id)
			close(c.done)
		})
	}
}

// Run starts the recognizer and blocks until the session stops or the
// context is cancelled. The recognizer is always stopped before Run
// returns.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{SessionID: c.id, StartedAt: time.Now()}

	c.logger.Info("session starting", "session", c.id, "state", string(c.State()))
	if err := c.recognizer.Start(ctx, c.OnUtterance); err != nil {
		c.Stop(ctx)
		result.Err = fmt.Errorf("start recognizer: %w", err)
		result.State = c.State()
		result.FinishedAt = time.Now()
		return result
	}
	c.notifier.Notify(ctx, "Listening")

	select {
	case <-ctx.Done():
		result.Interrupted = true
		c.Stop(context.WithoutCancel(ctx))
	case <-c.done:
	}

	if err := c.recognizer.Stop(); err != nil {
		c.logger.Error("recognizer stop failed", "session", c.id, "error", err)
	}

	c.mu.Lock()
	result.Utterances = c.utterances
	result.Emitted = c.emitted
	c.mu.Unlock()
	result.State = c.State()
	result.FinishedAt = time.Now()
	return result
}

// Handle serves IPC commands for the active session.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return ipc.Response{OK: true, State: string(c.State()), Message: "session " + c.id}
	case "pause":
		if c.Pause(ctx) {
			return ipc.Response{OK: true, State: string(c.State()), Message: "paused"}
		}
		return ipc.Response{OK: true, State: string(c.State()), Message: "no change"}
	case "resume":
		if c.Resume(ctx) {
			return ipc.Response{OK: true, State: string(c.State()), Message: "resumed"}
		}
		return ipc.Response{OK: true, State: string(c.State()), Message: "no change"}
	case "stop":
		c.Stop(ctx)
		return ipc.Response{OK: true, State: string(c.State()), Message: "stopping"}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}
