package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var allowedSampleRates = map[int]bool{
	8000:  true,
	16000: true,
	22050: true,
	44100: true,
	48000: true,
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	endpoint := strings.TrimSpace(cfg.Recognizer.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("recognizer.endpoint must not be empty")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("recognizer.endpoint is not a valid URL: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("recognizer.endpoint must use ws:// or wss://, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("recognizer.endpoint must include a host")
	}

	if !allowedSampleRates[cfg.Recognizer.SampleRate] {
		return nil, fmt.Errorf("recognizer.sample_rate must be one of 8000, 16000, 22050, 44100, 48000")
	}
	if cfg.Recognizer.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.dial_timeout_ms must be > 0")
	}

	for _, spelling := range cfg.Wake.Spellings {
		if strings.ContainsAny(spelling, " \t") {
			return nil, fmt.Errorf("wake.spellings entries must be single words, got %q", spelling)
		}
	}

	if strings.TrimSpace(cfg.Output.PasteShortcut) == "" {
		return nil, fmt.Errorf("output.paste_shortcut must not be empty")
	}
	if strings.TrimSpace(cfg.Output.UndoShortcut) == "" {
		return nil, fmt.Errorf("output.undo_shortcut must not be empty")
	}
	if cfg.Output.PasteDelayMS < 0 {
		return nil, fmt.Errorf("output.paste_delay_ms must be >= 0")
	}

	if cfg.Notify.Enable && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("notify.app_name must not be empty when notify.enable=true")
	}

	if addr := strings.TrimSpace(cfg.Health.GRPC); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return nil, fmt.Errorf("health.grpc must be a host:port address: %w", err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of debug, info, warn, error")
	}

	return warnings, nil
}
