// Package config resolves, parses, validates, and defaults leia configuration.
package config

// Config is the fully materialized runtime configuration used by leia.
type Config struct {
	Recognizer   RecognizerConfig
	Audio        AudioConfig
	Wake         WakeConfig
	Tables       TablesConfig
	Applications map[string]CommandConfig
	Output       OutputConfig
	Notify       NotifyConfig
	Health       HealthConfig
	Log          LogConfig
}

// RecognizerConfig controls the speech recognition endpoint and grammar
// hints sent with the stream handshake.
type RecognizerConfig struct {
	Endpoint      string
	SampleRate    int
	DialTimeoutMS int
	Phrases       []string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// WakeConfig overrides the accepted agent-name spellings. Empty means
// the builtin spelling set.
type WakeConfig struct {
	Spellings []string
}

// TablesConfig points at external lookup tables. Empty paths select the
// builtin tables.
type TablesConfig struct {
	Phrases      string
	ModifierKeys string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// OutputConfig controls text injection and keyboard emulation.
type OutputConfig struct {
	PasteShortcut    string
	UndoShortcut     string
	RestoreClipboard bool
	PasteDelayMS     int
}

// NotifyConfig controls desktop notification cues.
type NotifyConfig struct {
	Enable  bool
	AppName string
}

// HealthConfig controls the gRPC health endpoint. An empty address
// disables it.
type HealthConfig struct {
	GRPC string
}

// LogConfig controls structured log output.
type LogConfig struct {
	Level string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
