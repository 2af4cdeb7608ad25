package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/micmonay/keybd_event"
)

// keyCodes maps canonical key names to keybd_event virtual key codes.
var keyCodes = map[string]int{
	"a": keybd_event.VK_A, "b": keybd_event.VK_B, "c": keybd_event.VK_C,
	"d": keybd_event.VK_D, "e": keybd_event.VK_E, "f": keybd_event.VK_F,
	"g": keybd_event.VK_G, "h": keybd_event.VK_H, "i": keybd_event.VK_I,
	"j": keybd_event.VK_J, "k": keybd_event.VK_K, "l": keybd_event.VK_L,
	"m": keybd_event.VK_M, "n": keybd_event.VK_N, "o": keybd_event.VK_O,
	"p": keybd_event.VK_P, "q": keybd_event.VK_Q, "r": keybd_event.VK_R,
	"s": keybd_event.VK_S, "t": keybd_event.VK_T, "u": keybd_event.VK_U,
	"v": keybd_event.VK_V, "w": keybd_event.VK_W, "x": keybd_event.VK_X,
	"y": keybd_event.VK_Y, "z": keybd_event.VK_Z,

	"0": keybd_event.VK_0, "1": keybd_event.VK_1, "2": keybd_event.VK_2,
	"3": keybd_event.VK_3, "4": keybd_event.VK_4, "5": keybd_event.VK_5,
	"6": keybd_event.VK_6, "7": keybd_event.VK_7, "8": keybd_event.VK_8,
	"9": keybd_event.VK_9,

	"f1": keybd_event.VK_F1, "f2": keybd_event.VK_F2, "f3": keybd_event.VK_F3,
	"f4": keybd_event.VK_F4, "f5": keybd_event.VK_F5, "f6": keybd_event.VK_F6,
	"f7": keybd_event.VK_F7, "f8": keybd_event.VK_F8, "f9": keybd_event.VK_F9,
	"f10": keybd_event.VK_F10, "f11": keybd_event.VK_F11, "f12": keybd_event.VK_F12,

	"enter": keybd_event.VK_ENTER,
	"tab":   keybd_event.VK_TAB,
	"esc":   keybd_event.VK_ESC,
	"space": keybd_event.VK_SPACE,
}

// defaultKeyAliases folds the common spoken and platform spellings onto
// the canonical names in keyCodes and the modifier set.
var defaultKeyAliases = map[string]string{
	"control": "ctrl",
	"ctl":     "ctrl",
	"option":  "alt",
	"opt":     "alt",
	"return":  "enter",
	"escape":  "esc",
	"windows": "super",
	"win":     "super",
	"meta":    "super",
	"command": "super",
	"cmd":     "super",
}

// Chord is one simultaneous key press: modifier flags plus main keys.
type Chord struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Super bool
	Keys  []int
}

// ParseChord reads a "+"-delimited shortcut like "ctrl+shift+v". Tokens
// pass through the alias table before matching modifiers and key codes.
func ParseChord(spec string, aliases map[string]string) (Chord, error) {
	var chord Chord

	normalized := strings.ToLower(strings.TrimSpace(spec))
	if normalized == "" {
		return Chord{}, fmt.Errorf("empty shortcut")
	}

	for _, token := range strings.Split(normalized, "+") {
		token = strings.TrimSpace(token)
		if token == "" {
			return Chord{}, fmt.Errorf("empty key in shortcut %q", spec)
		}
		if canonical, ok := aliases[token]; ok {
			token = canonical
		}

		switch token {
		case "ctrl":
			chord.Ctrl = true
		case "alt":
			chord.Alt = true
		case "shift":
			chord.Shift = true
		case "super":
			chord.Super = true
		default:
			code, ok := keyCodes[token]
			if !ok {
				return Chord{}, fmt.Errorf("unknown key %q in shortcut %q", token, spec)
			}
			chord.Keys = append(chord.Keys, code)
		}
	}

	if len(chord.Keys) == 0 {
		return Chord{}, fmt.Errorf("shortcut %q has no main key", spec)
	}
	return chord, nil
}

// DefaultKeyAliases returns a copy of the builtin alias table.
func DefaultKeyAliases() map[string]string {
	out := make(map[string]string, len(defaultKeyAliases))
	for alias, canonical := range defaultKeyAliases {
		out[alias] = canonical
	}
	return out
}

// LoadKeyAliases reads a JSON alias table and merges it over the builtin
// defaults. An empty path returns the defaults unchanged; a set path that
// cannot be read or parsed is an error.
func LoadKeyAliases(path string) (map[string]string, error) {
	out := DefaultKeyAliases()
	if strings.TrimSpace(path) == "" {
		return out, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read modifier table: %w", err)
	}

	var table map[string]string
	if err := json.Unmarshal(content, &table); err != nil {
		return nil, fmt.Errorf("parse modifier table %q: %w", path, err)
	}

	for alias, canonical := range table {
		alias = strings.ToLower(strings.TrimSpace(alias))
		canonical = strings.ToLower(strings.TrimSpace(canonical))
		if alias == "" || canonical == "" {
			continue
		}
		out[alias] = canonical
	}
	return out, nil
}
