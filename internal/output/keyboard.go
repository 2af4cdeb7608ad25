// Package output emulates the keyboard. Dictated text goes out through
// the clipboard followed by the configured paste shortcut; command words
// replay bare shortcuts like undo and alt+f4.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"

	"github.com/rbright/leia/internal/config"
)

var (
	returnChord      = Chord{Keys: []int{keybd_event.VK_ENTER}}
	closeWindowChord = Chord{Alt: true, Keys: []int{keybd_event.VK_F4}}
)

// Keyboard types text and shortcuts into the focused window.
//
// All methods serialize on an internal mutex so overlapping callers
// cannot interleave clipboard writes with key events.
type Keyboard struct {
	logger  *slog.Logger
	paste   Chord
	undo    Chord
	restore bool
	delay   time.Duration

	mu sync.Mutex
	kb keybd_event.KeyBonding

	readClipboard  func() (string, error)
	writeClipboard func(string) error
	tap            func(Chord) error
	sleep          func(time.Duration)
}

// NewKeyboard opens the virtual keyboard device and resolves the paste
// and undo shortcuts against the alias table.
func NewKeyboard(cfg config.OutputConfig, aliases map[string]string, logger *slog.Logger) (*Keyboard, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paste, err := ParseChord(cfg.PasteShortcut, aliases)
	if err != nil {
		return nil, fmt.Errorf("parse paste shortcut: %w", err)
	}
	undo, err := ParseChord(cfg.UndoShortcut, aliases)
	if err != nil {
		return nil, fmt.Errorf("parse undo shortcut: %w", err)
	}

	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("open keyboard device: %w", err)
	}
	if runtime.GOOS == "linux" {
		// uinput needs a moment before the new virtual device accepts events.
		time.Sleep(2 * time.Second)
	}

	k := &Keyboard{
		logger:  logger,
		paste:   paste,
		undo:    undo,
		restore: cfg.RestoreClipboard,
		delay:   time.Duration(cfg.PasteDelayMS) * time.Millisecond,
		kb:      kb,

		readClipboard:  clipboard.ReadAll,
		writeClipboard: clipboard.WriteAll,
		sleep:          time.Sleep,
	}
	k.tap = k.tapChord
	return k, nil
}

// Inject places text on the clipboard, sends the paste shortcut, and
// restores the previous clipboard contents when configured to.
func (k *Keyboard) Inject(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	var backup string
	restorable := false
	if k.restore {
		if previous, err := k.readClipboard(); err == nil {
			backup = previous
			restorable = true
		} else {
			k.logger.Debug("clipboard backup failed", "error", err)
		}
	}

	if err := k.writeClipboard(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	k.sleep(k.delay)

	if err := k.tap(k.paste); err != nil {
		return fmt.Errorf("send paste shortcut: %w", err)
	}

	if restorable {
		// The paste target reads the clipboard asynchronously. Give it the
		// same grace period before putting the old contents back.
		k.sleep(k.delay)
		if err := k.writeClipboard(backup); err != nil {
			k.logger.Warn("clipboard restore failed", "error", err)
		}
	}
	return nil
}

// Undo sends the configured undo shortcut.
func (k *Keyboard) Undo(ctx context.Context) error {
	return k.send(ctx, k.undo, "undo")
}

// PressReturn sends a bare enter key press.
func (k *Keyboard) PressReturn(ctx context.Context) error {
	return k.send(ctx, returnChord, "return")
}

// CloseWindow sends alt+f4 to the focused window.
func (k *Keyboard) CloseWindow(ctx context.Context) error {
	return k.send(ctx, closeWindowChord, "close window")
}

func (k *Keyboard) send(ctx context.Context, chord Chord, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.tap(chord); err != nil {
		return fmt.Errorf("send %s shortcut: %w", name, err)
	}
	return nil
}

// tapChord presses and releases one chord. Every modifier is set
// explicitly so state never leaks between chords.
func (k *Keyboard) tapChord(chord Chord) error {
	k.kb.HasCTRL(chord.Ctrl)
	k.kb.HasALT(chord.Alt)
	k.kb.HasSHIFT(chord.Shift)
	k.kb.HasSuper(chord.Super)
	k.kb.SetKeys(chord.Keys...)
	return k.kb.Launching()
}
