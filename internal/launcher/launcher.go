// Package launcher resolves spoken application names and starts or
// stops the matching processes.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/rbright/leia/internal/config"
)

// ErrUnknownApplication reports a spoken name that matches no configured
// alias, no builtin alias, and no executable on PATH.
var ErrUnknownApplication = errors.New("unknown application")

// WindowCloser closes the focused window when a close command names no
// application.
type WindowCloser interface {
	CloseWindow(ctx context.Context) error
}

// builtinCandidates maps stock spoken aliases to launch candidates in
// preference order; the first argv whose binary is on PATH wins.
var builtinCandidates = map[string][][]string{
	"browser":  {{"firefox"}, {"chromium"}, {"google-chrome"}, {"brave"}},
	"terminal": {{"foot"}, {"kitty"}, {"alacritty"}, {"ghostty"}, {"gnome-terminal"}},
	"editor":   {{"code"}, {"zed"}, {"gedit"}, {"kate"}},
	"files":    {{"nautilus"}, {"thunar"}, {"dolphin"}, {"pcmanfm"}},
}

// Manager launches and closes applications by spoken name. Configured
// aliases take precedence over the builtin table, which in turn beats
// treating the name as a bare executable.
type Manager struct {
	logger *slog.Logger
	fs     afero.Fs
	apps   map[string][]string
	closer WindowCloser

	start func(ctx context.Context, argv []string) error
	kill  func(ctx context.Context, process string) error
}

// NewManager builds a manager over the configured applications table.
// closer may be nil, in which case closing the active window fails.
func NewManager(apps map[string]config.CommandConfig, closer WindowCloser, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	resolved := make(map[string][]string, len(apps))
	for alias, command := range apps {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" || len(command.Argv) == 0 {
			continue
		}
		resolved[alias] = command.Argv
	}

	m := &Manager{
		logger: logger,
		fs:     afero.NewOsFs(),
		apps:   resolved,
		closer: closer,
	}
	m.start = startDetached
	m.kill = killByName
	return m
}

// Launch starts the application behind a spoken name.
func (m *Manager) Launch(ctx context.Context, name string) error {
	argv, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := m.start(ctx, argv); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	m.logger.Info("application launched", "name", name, "command", argv[0])
	return nil
}

// CloseApp asks the process behind a spoken name to exit.
func (m *Manager) CloseApp(ctx context.Context, name string) error {
	argv, err := m.resolve(name)
	if err != nil {
		return err
	}
	process := filepath.Base(argv[0])
	if err := m.kill(ctx, process); err != nil {
		return fmt.Errorf("close %s: %w", process, err)
	}
	m.logger.Info("application closed", "name", name, "process", process)
	return nil
}

// CloseActiveWindow closes whatever window has focus.
func (m *Manager) CloseActiveWindow(ctx context.Context) error {
	if m.closer == nil {
		return errors.New("no window closer configured")
	}
	return m.closer.CloseWindow(ctx)
}

func (m *Manager) resolve(name string) ([]string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownApplication)
	}

	if argv, ok := m.apps[normalized]; ok {
		return argv, nil
	}

	if candidates, ok := builtinCandidates[normalized]; ok {
		for _, argv := range candidates {
			if _, found := m.lookPath(argv[0]); found {
				return argv, nil
			}
		}
		return nil, fmt.Errorf("%w: no %s candidate installed", ErrUnknownApplication, normalized)
	}

	for _, binary := range binaryGuesses(normalized) {
		if _, found := m.lookPath(binary); found {
			return []string{binary}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownApplication, name)
}

// binaryGuesses derives executable-name guesses from a spoken name.
// Multi-word names probe the hyphenated spelling first, then the words
// run together.
func binaryGuesses(normalized string) []string {
	if !strings.Contains(normalized, " ") {
		return []string{normalized}
	}
	return []string{
		strings.ReplaceAll(normalized, " ", "-"),
		strings.ReplaceAll(normalized, " ", ""),
	}
}

// lookPath searches PATH through the fs abstraction so tests can run
// against a memory filesystem.
func (m *Manager) lookPath(name string) (string, bool) {
	if strings.Contains(name, "/") {
		if m.executable(name) {
			return name, true
		}
		return "", false
	}
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if m.executable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (m *Manager) executable(path string) bool {
	info, err := m.fs.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}

// startDetached spawns the application without attaching the session
// context; launched applications outlive the session. The background
// wait keeps finished children from lingering as zombies.
func startDetached(_ context.Context, argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func killByName(ctx context.Context, process string) error {
	cmd := exec.CommandContext(ctx, "pkill", "-x", process)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("pkill %s: %w", process, err)
		}
		return fmt.Errorf("pkill %s: %w (%s)", process, err, trimmed)
	}
	return nil
}
