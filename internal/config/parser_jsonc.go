package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Recognizer   *jsoncRecognizer  `json:"recognizer"`
	Audio        *jsoncAudio       `json:"audio"`
	Wake         *jsoncWake        `json:"wake"`
	Tables       *jsoncTables      `json:"tables"`
	Applications map[string]string `json:"applications"`
	Output       *jsoncOutput      `json:"output"`
	Notify       *jsoncNotify      `json:"notify"`
	Health       *jsoncHealth      `json:"health"`
	Log          *jsoncLog         `json:"log"`
}

type jsoncRecognizer struct {
	Endpoint      *string          `json:"endpoint"`
	SampleRate    *int             `json:"sample_rate"`
	DialTimeoutMS *int             `json:"dial_timeout_ms"`
	Phrases       *jsoncStringList `json:"phrases"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncWake struct {
	Spellings *jsoncStringList `json:"spellings"`
}

type jsoncTables struct {
	Phrases      *string `json:"phrases"`
	ModifierKeys *string `json:"modifier_keys"`
}

type jsoncOutput struct {
	PasteShortcut    *string `json:"paste_shortcut"`
	UndoShortcut     *string `json:"undo_shortcut"`
	RestoreClipboard *bool   `json:"restore_clipboard"`
	PasteDelayMS     *int    `json:"paste_delay_ms"`
}

type jsoncNotify struct {
	Enable  *bool   `json:"enable"`
	AppName *string `json:"app_name"`
}

type jsoncHealth struct {
	GRPC *string `json:"grpc"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Recognizer != nil {
		if payload.Recognizer.Endpoint != nil {
			cfg.Recognizer.Endpoint = strings.TrimSpace(*payload.Recognizer.Endpoint)
		}
		if payload.Recognizer.SampleRate != nil {
			cfg.Recognizer.SampleRate = *payload.Recognizer.SampleRate
		}
		if payload.Recognizer.DialTimeoutMS != nil {
			cfg.Recognizer.DialTimeoutMS = *payload.Recognizer.DialTimeoutMS
		}
		if payload.Recognizer.Phrases != nil {
			cfg.Recognizer.Phrases = cfg.Recognizer.Phrases[:0]
			for _, phrase := range *payload.Recognizer.Phrases {
				phrase = strings.TrimSpace(phrase)
				if phrase == "" {
					continue
				}
				cfg.Recognizer.Phrases = append(cfg.Recognizer.Phrases, phrase)
			}
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Wake != nil && payload.Wake.Spellings != nil {
		cfg.Wake.Spellings = cfg.Wake.Spellings[:0]
		for _, spelling := range *payload.Wake.Spellings {
			spelling = strings.ToLower(strings.TrimSpace(spelling))
			if spelling == "" {
				continue
			}
			cfg.Wake.Spellings = append(cfg.Wake.Spellings, spelling)
		}
	}

	if payload.Tables != nil {
		if payload.Tables.Phrases != nil {
			cfg.Tables.Phrases = strings.TrimSpace(*payload.Tables.Phrases)
		}
		if payload.Tables.ModifierKeys != nil {
			cfg.Tables.ModifierKeys = strings.TrimSpace(*payload.Tables.ModifierKeys)
		}
	}

	if payload.Applications != nil {
		if cfg.Applications == nil {
			cfg.Applications = make(map[string]CommandConfig)
		}
		for alias, raw := range payload.Applications {
			trimmedAlias := strings.ToLower(strings.TrimSpace(alias))
			if trimmedAlias == "" {
				return nil, fmt.Errorf("applications contains an empty alias name")
			}
			argv, err := parseArgv(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid applications.%s: %w", trimmedAlias, err)
			}
			if len(argv) == 0 {
				return nil, fmt.Errorf("applications.%s must not be empty", trimmedAlias)
			}
			cfg.Applications[trimmedAlias] = CommandConfig{Raw: raw, Argv: argv}
		}
	}

	if payload.Output != nil {
		if payload.Output.PasteShortcut != nil {
			cfg.Output.PasteShortcut = strings.TrimSpace(*payload.Output.PasteShortcut)
		}
		if payload.Output.UndoShortcut != nil {
			cfg.Output.UndoShortcut = strings.TrimSpace(*payload.Output.UndoShortcut)
		}
		if payload.Output.RestoreClipboard != nil {
			cfg.Output.RestoreClipboard = *payload.Output.RestoreClipboard
		}
		if payload.Output.PasteDelayMS != nil {
			cfg.Output.PasteDelayMS = *payload.Output.PasteDelayMS
		}
	}

	if payload.Notify != nil {
		if payload.Notify.Enable != nil {
			cfg.Notify.Enable = *payload.Notify.Enable
		}
		if payload.Notify.AppName != nil {
			cfg.Notify.AppName = strings.TrimSpace(*payload.Notify.AppName)
		}
	}

	if payload.Health != nil && payload.Health.GRPC != nil {
		cfg.Health.GRPC = strings.TrimSpace(*payload.Health.GRPC)
	}

	if payload.Log != nil && payload.Log.Level != nil {
		cfg.Log.Level = strings.TrimSpace(*payload.Log.Level)
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
