package config

import (
	"strings"
	"testing"
)

func TestParseValidConfig(t *testing.T) {
	input := `
{
  // recognition server
  "recognizer": {
    "endpoint": "ws://vosk.local:2700",
    "sample_rate": 8000,
    "phrases": ["kubernetes", "hyprland"],
  },
  "audio": {
    "input": "Elgato",
  },
  "wake": {
    "spellings": "leah, leia",
  },
  "applications": {
    "browser": "firefox --new-window",
  },
  "output": {
    "restore_clipboard": false,
  },
  "log": {
    "level": "debug",
  },
}
`

	cfg, warnings, err := Parse(input, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Recognizer.Endpoint != "ws://vosk.local:2700" {
		t.Fatalf("unexpected recognizer.endpoint: %s", cfg.Recognizer.Endpoint)
	}
	if cfg.Recognizer.SampleRate != 8000 {
		t.Fatalf("unexpected recognizer.sample_rate: %d", cfg.Recognizer.SampleRate)
	}
	if cfg.Audio.Input != "Elgato" {
		t.Fatalf("unexpected audio.input: %s", cfg.Audio.Input)
	}
	if got := strings.Join(cfg.Wake.Spellings, "|"); got != "leah|leia" {
		t.Fatalf("unexpected wake.spellings: %s", got)
	}
	if got := strings.Join(cfg.Applications["browser"].Argv, "|"); got != "firefox|--new-window" {
		t.Fatalf("unexpected browser argv: %s", got)
	}
	if cfg.Output.RestoreClipboard {
		t.Fatalf("expected output.restore_clipboard=false")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log.level: %s", cfg.Log.Level)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
}

func TestParseEmptyContentReturnsDefaults(t *testing.T) {
	cfg, _, err := Parse("   \n\t", Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Recognizer.Endpoint != Default().Recognizer.Endpoint {
		t.Fatalf("expected default endpoint, got %s", cfg.Recognizer.Endpoint)
	}
}

func TestParsePreservesUntouchedDefaults(t *testing.T) {
	cfg, _, err := Parse(`{"log":{"level":"warn"}}`, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("unexpected log.level: %s", cfg.Log.Level)
	}
	if cfg.Recognizer.SampleRate != 16000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Recognizer.SampleRate)
	}
	if !cfg.Output.RestoreClipboard {
		t.Fatalf("expected default restore_clipboard=true")
	}
}

func TestParseUnknownKeyFails(t *testing.T) {
	_, _, err := Parse(`{"transcriber": {"model": "base"}}`, Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseSyntaxErrorReportsLocation(t *testing.T) {
	_, _, err := Parse("{\n\n  \"log\": level\n}", Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line number in error, got %v", err)
	}
}

func TestParseInvalidValuesFailValidation(t *testing.T) {
	_, _, err := Parse(`{"recognizer": {"sample_rate": 1}}`, Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "sample_rate") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseApplicationsRejectsBlankCommand(t *testing.T) {
	_, _, err := Parse(`{"applications": {"browser": "   "}}`, Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "applications.browser") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseApplicationAliasesAreLowercased(t *testing.T) {
	cfg, _, err := Parse(`{"applications": {" Browser ": "firefox"}}`, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := cfg.Applications["browser"]; !ok {
		t.Fatalf("expected lowercased alias, got %#v", cfg.Applications)
	}
}
