package session

import (
	"context"
	"errors"
)

// ErrRecognizerUnavailable reports missing recognizer wiring.
var ErrRecognizerUnavailable = errors.New("recognizer is not configured")

// Recognizer produces finalized utterances asynchronously between Start
// and Stop. Implementations invoke the callback with non-empty utterance
// strings, never concurrently with itself. Stop is idempotent and no
// callbacks arrive after it returns. SetPaused is an optional hint; an
// adapter may no-op it.
type Recognizer interface {
	Start(ctx context.Context, callback func(ctx context.Context, utterance string)) error
	Stop() error
	SetPaused(paused bool)
}

// PlaceholderRecognizer fails Start so missing wiring surfaces cleanly.
type PlaceholderRecognizer struct{}

// Start implements Recognizer.
func (PlaceholderRecognizer) Start(context.Context, func(context.Context, string)) error {
	return ErrRecognizerUnavailable
}

// Stop implements Recognizer.
func (PlaceholderRecognizer) Stop() error { return nil }

// SetPaused implements Recognizer.
func (PlaceholderRecognizer) SetPaused(bool) {}

// IsRecognizerUnavailable reports whether an error represents missing
// recognizer wiring.
func IsRecognizerUnavailable(err error) bool {
	return errors.Is(err, ErrRecognizerUnavailable)
}
