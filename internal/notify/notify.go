// Package notify surfaces operator notices. Every notice lands in the
// log; desktop notifications are layered on top when enabled.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/rbright/leia/internal/config"
)

// Desktop sends notices through the freedesktop notification service.
// Notices are advisory; delivery failures are logged and swallowed.
type Desktop struct {
	enabled bool
	title   string
	logger  *slog.Logger

	mu   sync.Mutex
	send func(title, message string) error
}

// NewDesktop builds a notifier from config.
func NewDesktop(cfg config.NotifyConfig, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.Default()
	}

	title := strings.TrimSpace(cfg.AppName)
	if title == "" {
		title = "leia"
	}

	return &Desktop{
		enabled: cfg.Enable,
		title:   title,
		logger:  logger,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Notify records one notice and, when enabled, shows it on the desktop.
func (d *Desktop) Notify(ctx context.Context, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}

	d.logger.Info("notice", "message", message)

	if !d.enabled || ctx.Err() != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.send(d.title, message); err != nil {
		d.logger.Debug("desktop notice failed", "error", err.Error())
	}
}
