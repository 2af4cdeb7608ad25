// Package speech implements the utterance-processing chain: a command
// dispatcher that owns the listening state and a dictation stage that
// turns recognized utterances into injected text.
package speech

import "context"

// Handler processes one recognized utterance and returns the text it
// emitted. Handlers compose into an ordered chain; a stage that consumes
// an utterance returns without delegating further.
type Handler interface {
	Handle(ctx context.Context, utterance string) string
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, utterance string) string

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, utterance string) string {
	return f(ctx, utterance)
}

// Notifier surfaces operator-visible notices outside the log stream.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(ctx context.Context, message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, message string) {
	f(ctx, message)
}
