package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Recognizer: RecognizerConfig{
			Endpoint:      "ws://127.0.0.1:2700",
			SampleRate:    16000,
			DialTimeoutMS: 4000,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Wake:         WakeConfig{},
		Tables:       TablesConfig{},
		Applications: map[string]CommandConfig{},
		Output: OutputConfig{
			PasteShortcut:    "ctrl+v",
			UndoShortcut:     "ctrl+z",
			RestoreClipboard: true,
			PasteDelayMS:     150,
		},
		Notify: NotifyConfig{Enable: true, AppName: "leia"},
		Health: HealthConfig{},
		Log:    LogConfig{Level: "info"},
	}
}
