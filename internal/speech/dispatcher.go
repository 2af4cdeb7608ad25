package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/leia/internal/fsm"
	"github.com/rbright/leia/internal/grammar"
)

// AppCommander is the dispatcher-facing subset of application control.
type AppCommander interface {
	Launch(ctx context.Context, name string) error
	CloseApp(ctx context.Context, name string) error
	CloseActiveWindow(ctx context.Context) error
}

// KeySender sends single editing keys to the focused window.
type KeySender interface {
	PressReturn(ctx context.Context) error
}

type noopAppCommander struct{}

func (noopAppCommander) Launch(context.Context, string) error   { return nil }
func (noopAppCommander) CloseApp(context.Context, string) error { return nil }
func (noopAppCommander) CloseActiveWindow(context.Context) error {
	return nil
}

type noopKeySender struct{}

func (noopKeySender) PressReturn(context.Context) error { return nil }

// Dispatcher is the root handler stage. It owns the listening state and
// the downstream handler chain, executes wake-word commands, and passes
// everything else to dictation while listening.
type Dispatcher struct {
	logger   *slog.Logger
	lexicon  grammar.Lexicon
	apps     AppCommander
	keys     KeySender
	notifier Notifier

	// mu serializes dispatch end to end so downstream continuity state
	// sees utterances in order, and guards state against control-surface
	// calls arriving on other goroutines.
	mu    sync.RWMutex
	state fsm.State
	chain []Handler
}

// NewDispatcher constructs a dispatcher with safe default fallbacks. The
// handler chain is fixed at construction; index 0 has priority.
func NewDispatcher(
	logger *slog.Logger,
	lexicon grammar.Lexicon,
	apps AppCommander,
	keys KeySender,
	notifier Notifier,
	handlers ...Handler,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if apps == nil {
		apps = noopAppCommander{}
	}
	if keys == nil {
		keys = noopKeySender{}
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, string) {})
	}

	return &Dispatcher{
		logger:   logger,
		lexicon:  lexicon,
		apps:     apps,
		keys:     keys,
		notifier: notifier,
		state:    fsm.StateListening,
		chain:    handlers,
	}
}

// State returns the current listening state snapshot.
func (d *Dispatcher) State() fsm.State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Pause suppresses dictation output. Reports whether the state changed.
func (d *Dispatcher) Pause() bool { return d.apply(fsm.EventPause, "control") }

// Resume re-enables dictation output. Reports whether the state changed.
func (d *Dispatcher) Resume() bool { return d.apply(fsm.EventResume, "control") }

// Stop ends the session. Reports whether the state changed.
func (d *Dispatcher) Stop() bool { return d.apply(fsm.EventStop, "control") }

// Dispatch classifies one utterance and returns the text it emitted.
// Commands act exactly once, synchronously, within this call; dictation
// reaches the chain only while listening.
func (d *Dispatcher) Dispatch(ctx context.Context, utterance string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == fsm.StateStopped {
		return ""
	}

	tokens := strings.Fields(strings.ToLower(utterance))
	if len(tokens) >= 2 && d.lexicon.IsWakeWord(tokens[0]) {
		if emitted, handled := d.runCommand(ctx, tokens); handled {
			return emitted
		}
	}

	if d.state != fsm.StateListening {
		return ""
	}
	if len(d.chain) == 0 {
		return utterance
	}
	return d.chain[0].Handle(ctx, utterance)
}

// runCommand executes a wake-word command from lower-cased tokens. The
// second return is false when the tokens matched no command; the caller
// then falls through to dictation with the full original utterance, agent
// name included. That fall-through reproduces the historical command
// grammar and is relied on for phrases like "<name> undo".
func (d *Dispatcher) runCommand(ctx context.Context, tokens []string) (string, bool) {
	switch tokens[1] {
	case "stop":
		d.transitionLocked(fsm.EventStop, "voice")
		return "", true
	case "pause":
		d.transitionLocked(fsm.EventPause, "voice")
		return "", true
	case "resume":
		d.transitionLocked(fsm.EventResume, "voice")
		return "", true
	case "launch":
		if len(tokens) < 3 {
			return "", false
		}
		name := strings.Join(tokens[2:], " ")
		if err := d.apps.Launch(ctx, name); err != nil {
			d.logger.Error("application launch failed", "name", name, "error", err)
			d.notifier.Notify(ctx, "Cannot launch "+name)
		}
		return "", true
	case "close":
		if len(tokens) >= 3 {
			name := strings.Join(tokens[2:], " ")
			if err := d.apps.CloseApp(ctx, name); err != nil {
				d.logger.Error("application close failed", "name", name, "error", err)
				d.notifier.Notify(ctx, "Cannot close "+name)
			}
			return "", true
		}
		if err := d.apps.CloseActiveWindow(ctx); err != nil {
			d.logger.Error("active window close failed", "error", err)
		}
		return "", true
	case "press":
		if len(tokens) == 3 && tokens[2] == "return" {
			if err := d.keys.PressReturn(ctx); err != nil {
				d.logger.Error("return key failed", "error", err)
			}
			return "", true
		}
		return "", false
	default:
		return "", false
	}
}

// apply advances the state machine from a control surface.
func (d *Dispatcher) apply(event fsm.Event, source string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.state
	d.transitionLocked(event, source)
	return d.state != prev
}

// transitionLocked advances the state machine, treating invalid
// transitions as no-ops. Callers hold d.mu.
func (d *Dispatcher) transitionLocked(event fsm.Event, source string) {
	next, err := fsm.Transition(d.state, event)
	if err != nil {
		d.logger.Debug("state event ignored", "event", string(event), "state", string(d.state), "source", source)
		return
	}
	d.state = next
	d.logger.Info("state changed", "state", string(next), "event", string(event), "source", source)
}
