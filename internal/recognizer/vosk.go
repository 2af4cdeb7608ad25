// Package recognizer streams microphone audio to a Kaldi-style websocket
// speech server and surfaces finalized utterances.
package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Callback receives one finalized utterance. Invocations are never
// concurrent with each other.
type Callback = func(ctx context.Context, utterance string)

// ChunkSource is the audio feed behind a running stream: PCM chunks
// plus a stop handle that closes the channel.
type ChunkSource interface {
	Chunks() <-chan []byte
	Stop() error
}

// CaptureFunc opens the audio source when the stream starts.
type CaptureFunc func(ctx context.Context) (ChunkSource, error)

const flushTimeout = 3 * time.Second

// configFrame is the first message on the wire; the server locks the
// stream to this sample rate and optional recognition grammar.
type configFrame struct {
	Config streamConfig `json:"config"`
}

type streamConfig struct {
	SampleRate int      `json:"sample_rate"`
	PhraseList []string `json:"phrase_list,omitempty"`
}

// serverResult is one JSON frame from the server. Partial hypotheses
// arrive continuously; only Text carries a finalized utterance.
type serverResult struct {
	Partial string `json:"partial"`
	Text    string `json:"text"`
}

// Options configures a websocket recognizer stream.
type Options struct {
	Endpoint    string
	SampleRate  int
	DialTimeout time.Duration
	Hints       []string
	Capture     CaptureFunc
	Logger      *slog.Logger
}

// Vosk drives one recognition stream against a vosk-server style
// endpoint: config frame out, binary PCM out, JSON results in, eof to
// flush.
type Vosk struct {
	logger      *slog.Logger
	endpoint    string
	sampleRate  int
	dialTimeout time.Duration
	hints       []string
	capture     CaptureFunc

	paused atomic.Bool

	mu      sync.Mutex
	conn    *websocket.Conn
	source  ChunkSource
	started bool
	stopped bool

	sendDone chan struct{}
	recvDone chan struct{}
}

// NewVosk builds a recognizer from options, applying defaults for
// anything unset.
func NewVosk(opts Options) *Vosk {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 4 * time.Second
	}

	return &Vosk{
		logger:      logger,
		endpoint:    strings.TrimSpace(opts.Endpoint),
		sampleRate:  sampleRate,
		dialTimeout: dialTimeout,
		hints:       opts.Hints,
		capture:     opts.Capture,
		sendDone:    make(chan struct{}),
		recvDone:    make(chan struct{}),
	}
}

// Start dials the server, sends the stream config, opens audio capture,
// and launches the send/receive loops. Connectivity problems are
// returned immediately; after a nil return, failures surface in the log
// only.
func (v *Vosk) Start(ctx context.Context, callback Callback) error {
	if callback == nil {
		return errors.New("recognizer callback is nil")
	}

	v.mu.Lock()
	switch {
	case v.stopped:
		v.mu.Unlock()
		return errors.New("recognizer already stopped")
	case v.started:
		v.mu.Unlock()
		return errors.New("recognizer already started")
	case v.endpoint == "":
		v.mu.Unlock()
		return errors.New("speech server endpoint is empty")
	case v.capture == nil:
		v.mu.Unlock()
		return errors.New("no audio capture configured")
	}
	v.started = true
	v.mu.Unlock()

	conn, err := v.dial(ctx)
	if err != nil {
		v.reset()
		return err
	}

	frame := configFrame{Config: streamConfig{SampleRate: v.sampleRate, PhraseList: v.hints}}
	if err := conn.WriteJSON(frame); err != nil {
		_ = conn.Close()
		v.reset()
		return fmt.Errorf("send stream config: %w", err)
	}

	source, err := v.capture(ctx)
	if err != nil {
		_ = conn.Close()
		v.reset()
		return fmt.Errorf("start audio capture: %w", err)
	}

	v.mu.Lock()
	v.conn = conn
	v.source = source
	v.mu.Unlock()

	v.logger.Info("recognizer connected",
		"endpoint", v.endpoint,
		"sample_rate", v.sampleRate,
		"hints", len(v.hints),
	)

	go v.sendLoop(conn, source)
	go v.recvLoop(ctx, conn, callback)
	return nil
}

// Stop flushes the stream and tears the connection down. No callbacks
// arrive after Stop returns. Safe to call more than once.
func (v *Vosk) Stop() error {
	v.mu.Lock()
	if !v.started || v.stopped {
		v.mu.Unlock()
		return nil
	}
	v.stopped = true
	conn := v.conn
	source := v.source
	v.mu.Unlock()

	// Closing the source drains the chunk channel, which makes the send
	// loop emit the eof frame and exit.
	if source != nil {
		_ = source.Stop()
	}
	<-v.sendDone

	// Give the server a moment to finalize buffered speech before the
	// connection goes away.
	select {
	case <-v.recvDone:
	case <-time.After(flushTimeout):
	}

	err := conn.Close()
	<-v.recvDone
	return err
}

// SetPaused records the pause hint. Output suppression belongs to the
// dispatcher; the stream keeps flowing so voice commands are still
// heard while paused.
func (v *Vosk) SetPaused(paused bool) {
	v.paused.Store(paused)
	v.logger.Debug("recognizer pause hint", "paused", paused)
}

func (v *Vosk) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: v.dialTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, v.dialTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, v.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial speech server %q: %w", v.endpoint, err)
	}
	return conn, nil
}

// sendLoop forwards PCM chunks until the source closes, then flushes
// the server with an eof frame.
func (v *Vosk) sendLoop(conn *websocket.Conn, source ChunkSource) {
	defer close(v.sendDone)

	for chunk := range source.Chunks() {
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			if !v.stopping() {
				v.logger.Error("audio send failed", "error", err)
			}
			return
		}
	}

	if err := conn.WriteJSON(map[string]int{"eof": 1}); err != nil && !v.stopping() {
		v.logger.Error("stream flush failed", "error", err)
	}
}

// recvLoop parses server frames and forwards finalized utterances.
// Partial hypotheses are dropped here; the dispatcher only ever sees
// whole utterances.
func (v *Vosk) recvLoop(ctx context.Context, conn *websocket.Conn, callback Callback) {
	defer close(v.recvDone)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !v.stopping() {
				v.logger.Error("speech server read failed", "error", err)
			}
			return
		}

		var result serverResult
		if err := json.Unmarshal(payload, &result); err != nil {
			v.logger.Debug("undecodable server frame", "error", err)
			continue
		}

		text := strings.TrimSpace(result.Text)
		if text == "" {
			continue
		}
		v.logger.Debug("utterance finalized", "chars", len(text), "paused", v.paused.Load())
		callback(ctx, text)
	}
}

func (v *Vosk) stopping() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

func (v *Vosk) reset() {
	v.mu.Lock()
	v.started = false
	v.mu.Unlock()
}
