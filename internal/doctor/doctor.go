// Package doctor runs readiness diagnostics for config, mapping tables,
// output devices, audio, and the speech server.
package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rbright/leia/internal/audio"
	"github.com/rbright/leia/internal/config"
	"github.com/rbright/leia/internal/grammar"
	"github.com/rbright/leia/internal/output"
)

const uinputPath = "/dev/uinput"

// clipboardBackends are the helpers the clipboard layer can drive, in
// preference order.
var clipboardBackends = []string{"wl-copy", "xclip", "xsel"}

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{configCheck(cfg)}

	checks = append(checks, checkPhraseTable(cfg.Config.Tables.Phrases))

	aliases, aliasCheck := checkModifierTable(cfg.Config.Tables.ModifierKeys)
	checks = append(checks, aliasCheck)
	checks = append(checks, checkChord("output.paste_shortcut", cfg.Config.Output.PasteShortcut, aliases))
	checks = append(checks, checkChord("output.undo_shortcut", cfg.Config.Output.UndoShortcut, aliases))

	checks = append(checks, checkAnyBinary("clipboard", clipboardBackends))
	checks = append(checks, checkDeviceWritable("uinput", uinputPath))

	for _, alias := range sortedAliases(cfg.Config.Applications) {
		checks = append(checks, checkCommand(cfg.Config.Applications[alias].Argv, "applications."+alias))
	}

	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkSpeechServer(cfg.Config))
	checks = append(checks, checkHealthAddr(cfg.Config))

	return Report{Checks: checks}
}

func configCheck(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("defaults in use (%q missing)", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkPhraseTable resolves the phrase table the dictation stage will load.
func checkPhraseTable(path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{
			Name:    "tables.phrases",
			Pass:    true,
			Message: fmt.Sprintf("builtin phrase map (%d phrases)", grammar.DefaultPhrases().Len()),
		}
	}
	phrases, err := grammar.LoadPhrases(path)
	if err != nil {
		return Check{Name: "tables.phrases", Pass: false, Message: err.Error()}
	}
	return Check{Name: "tables.phrases", Pass: true, Message: fmt.Sprintf("loaded %q (%d phrases)", path, phrases.Len())}
}

// checkModifierTable resolves the key alias table and hands the result
// to the chord checks so they validate against the same aliases the
// keyboard will use.
func checkModifierTable(path string) (map[string]string, Check) {
	if strings.TrimSpace(path) == "" {
		return output.DefaultKeyAliases(), Check{Name: "tables.modifier_keys", Pass: true, Message: "builtin key aliases"}
	}
	aliases, err := output.LoadKeyAliases(path)
	if err != nil {
		return output.DefaultKeyAliases(), Check{Name: "tables.modifier_keys", Pass: false, Message: err.Error()}
	}
	return aliases, Check{Name: "tables.modifier_keys", Pass: true, Message: fmt.Sprintf("loaded %q (%d aliases)", path, len(aliases))}
}

func checkChord(name string, spec string, aliases map[string]string) Check {
	if _, err := output.ParseChord(spec, aliases); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("parseable (%s)", strings.TrimSpace(spec))}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAnyBinary passes when at least one candidate helper is installed.
func checkAnyBinary(name string, candidates []string) Check {
	for _, bin := range candidates {
		if path, err := exec.LookPath(bin); err == nil {
			return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s found at %s", bin, path)}
		}
	}
	return Check{Name: name, Pass: false, Message: fmt.Sprintf("none of %s found in PATH", strings.Join(candidates, ", "))}
}

// checkDeviceWritable verifies the key injection device can be opened.
func checkDeviceWritable(name string, path string) Check {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("cannot open %s: %v", path, err)}
	}
	_ = f.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is writable", path)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkSpeechServer probes the websocket endpoint with a bare handshake.
func checkSpeechServer(cfg config.Config) Check {
	endpoint := strings.TrimSpace(cfg.Recognizer.Endpoint)
	if endpoint == "" {
		return Check{Name: "recognizer.endpoint", Pass: false, Message: "recognizer.endpoint is empty"}
	}

	timeout := time.Duration(cfg.Recognizer.DialTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return Check{Name: "recognizer.endpoint", Pass: false, Message: fmt.Sprintf("dial failed: %v", err)}
	}
	_ = conn.Close()
	return Check{Name: "recognizer.endpoint", Pass: true, Message: fmt.Sprintf("reachable at %s", endpoint)}
}

func checkHealthAddr(cfg config.Config) Check {
	addr := strings.TrimSpace(cfg.Health.GRPC)
	if addr == "" {
		return Check{Name: "health.grpc", Pass: true, Message: "health surface disabled"}
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return Check{Name: "health.grpc", Pass: false, Message: fmt.Sprintf("invalid listen address %q: %v", addr, err)}
	}
	return Check{Name: "health.grpc", Pass: true, Message: fmt.Sprintf("will listen on %s", addr)}
}

func sortedAliases(apps map[string]config.CommandConfig) []string {
	aliases := make([]string, 0, len(apps))
	for alias := range apps {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
