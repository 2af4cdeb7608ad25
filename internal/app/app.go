package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/leia/internal/audio"
	"github.com/rbright/leia/internal/cli"
	"github.com/rbright/leia/internal/config"
	"github.com/rbright/leia/internal/doctor"
	"github.com/rbright/leia/internal/grammar"
	"github.com/rbright/leia/internal/health"
	"github.com/rbright/leia/internal/ipc"
	"github.com/rbright/leia/internal/launcher"
	"github.com/rbright/leia/internal/logging"
	"github.com/rbright/leia/internal/notify"
	"github.com/rbright/leia/internal/output"
	"github.com/rbright/leia/internal/recognizer"
	"github.com/rbright/leia/internal/session"
	"github.com/rbright/leia/internal/speech"
	"github.com/rbright/leia/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("leia"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("leia"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandPause:
		return r.forwardOrFail(ctx, "pause")
	case cli.CommandResume:
		return r.forwardOrFail(ctx, "resume")
	case cli.CommandStop:
		return r.forwardOrFail(ctx, "stop")
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		state := resp.State
		if state == "" {
			state = "running"
		}
		fmt.Fprintln(r.Stdout, state)
		return 0
	}

	fmt.Fprintln(r.Stdout, "not running")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no leia agent running\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandRun owns the agent lifecycle: exclusive socket, session wiring,
// control server, signal handling, and the final summary.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: leia agent already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	controller, healthServer, err := buildSession(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("session setup failed", "error", err.Error())
		return 1
	}

	if err := healthServer.Start(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("health surface failed", "error", err.Error())
		return 1
	}
	defer healthServer.Stop()
	controller.SetStateObserver(healthServer.SetState)

	runCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	result := controller.Run(runCtx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)

	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "session %s ended: %d utterances, %d emissions in %s\n",
		result.SessionID,
		result.Utterances,
		result.Emitted,
		result.Duration().Round(time.Millisecond),
	)
	return 0
}

// buildSession wires the handler chain, keyboard, launcher, notifier,
// recognizer, and health surface from config. Table paths that are set
// but unloadable are fatal; blank paths select the builtin tables.
func buildSession(cfg config.Config, logger *slog.Logger) (*session.Controller, *health.Server, error) {
	lexicon := grammar.NewLexicon(cfg.Wake.Spellings)

	phrases := grammar.DefaultPhrases()
	if strings.TrimSpace(cfg.Tables.Phrases) != "" {
		loaded, err := grammar.LoadPhrases(cfg.Tables.Phrases)
		if err != nil {
			return nil, nil, err
		}
		phrases = loaded
	}

	aliases, err := output.LoadKeyAliases(cfg.Tables.ModifierKeys)
	if err != nil {
		return nil, nil, err
	}

	keyboard, err := output.NewKeyboard(cfg.Output, aliases, logger)
	if err != nil {
		return nil, nil, err
	}

	notifier := notify.NewDesktop(cfg.Notify, logger)
	apps := launcher.NewManager(cfg.Applications, keyboard, logger)
	dictation := speech.NewDictation(logger, lexicon, phrases, keyboard, notifier)
	dispatcher := speech.NewDispatcher(logger, lexicon, apps, keyboard, notifier, dictation)

	hints := grammar.Hints(lexicon, phrases, cfg.Recognizer.Phrases)
	if len(hints) > 0 {
		logger.Debug("recognizer grammar restricted", "phrase_count", len(hints))
	}

	sampleRate := cfg.Recognizer.SampleRate
	capture := func(ctx context.Context) (recognizer.ChunkSource, error) {
		selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" {
			logger.Warn("audio device fallback",
				"detail", selection.Warning,
				"device", selection.Device.ID)
		}
		return audio.StartCapture(ctx, selection.Device, sampleRate)
	}

	rec := recognizer.NewVosk(recognizer.Options{
		Endpoint:    cfg.Recognizer.Endpoint,
		SampleRate:  sampleRate,
		DialTimeout: time.Duration(cfg.Recognizer.DialTimeoutMS) * time.Millisecond,
		Hints:       hints,
		Capture:     capture,
		Logger:      logger,
	})

	controller := session.NewController(logger, rec, dispatcher, notifier)
	healthServer := health.NewServer(cfg.Health.GRPC, logger)
	return controller, healthServer, nil
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"session", result.SessionID,
		"state", string(result.State),
		"interrupted", result.Interrupted,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.Duration().Milliseconds(),
		"utterances", result.Utterances,
		"emitted", result.Emitted,
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
