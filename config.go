package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/term"
)

// ─── Config ──────────────────────────────────────────────────────────────────

type config struct {
	NotebookDir string      `json:"notebook_dir"`          // zk notebook root
	Ignore      []string    `json:"ignore,omitempty"`      // doublestar globs, relative to the notebook
	Editor      []string    `json:"editor"`                // e: text editor
	EditorMode  string      `json:"editor_mode,omitempty"` // "background", "foreground", or "" (auto)
	Server      string      `json:"server,omitempty"`      // browse a `weave serve` instance instead of a local notebook
	Password    string      `json:"password,omitempty"`    // login password for Server
	Breakpoint  int         `json:"breakpoint"`            // columns below which one pane is shown at a time
	LogFile     string      `json:"log_file,omitempty"`
	LogLevel    slog.Level  `json:"log_level"`
	Serve       serveConfig `json:"serve"`
}

type serveConfig struct {
	Addr         string `json:"addr"`
	Password     string `json:"password,omitempty"`      // empty (with no hash) disables login; every note is public
	PasswordHash string `json:"password_hash,omitempty"` // argon2id PHC string from `weave hash-password`
	Secret       string `json:"secret,omitempty"`        // JWT signing key; random per run when empty
}

const (
	defaultBreakpoint = 90
	minBreakpoint     = 40
)

func defaultNotebookDir() string {
	if dir := os.Getenv("ZK_NOTEBOOK_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "notes")
}

func defaultEditor() []string {
	if ed := os.Getenv("EDITOR"); ed != "" {
		return splitShellWords(ed)
	}
	return []string{"vi"}
}

// newDefaultConfig returns a fresh default config. Must be a function (not a var)
// because json.Unmarshal can mutate slice elements in-place via the shared backing
// array from a shallow struct copy.
func newDefaultConfig() config {
	return config{
		NotebookDir: defaultNotebookDir(),
		Editor:      defaultEditor(),
		Breakpoint:  defaultBreakpoint,
		Serve:       serveConfig{Addr: "127.0.0.1:8080"},
	}
}

func (c config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.NotebookDir, validation.When(c.Server == "", validation.Required)),
		validation.Field(&c.Editor, validation.Required),
		validation.Field(&c.EditorMode, validation.In("", "foreground", "background")),
		validation.Field(&c.Server, validation.By(isHTTPURL)),
		validation.Field(&c.Breakpoint, validation.Required, validation.Min(minBreakpoint)),
		validation.Field(&c.Serve),
	)
}

func (c serveConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.PasswordHash, validation.By(func(v any) error {
			if s, _ := v.(string); s != "" {
				_, err := parsePasswordHash(s)
				return err
			}
			return nil
		})),
	)
}

func isHTTPURL(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

func configPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(cfgDir, "weave", "config.json"), nil
}

// expandHome expands a leading "~/" to the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// contractHome replaces the user's home directory prefix with "~/" for display.
func contractHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if rel, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return "~/" + rel
	}
	return path
}

// readConfig reads path over the defaults. Environment variables are
// expanded in paths and secrets; password_hash is taken verbatim since PHC
// strings contain '$'.
func readConfig(path string) (config, error) {
	cfg := newDefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return newDefaultConfig(), fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	for _, s := range []*string{&cfg.NotebookDir, &cfg.LogFile, &cfg.Server, &cfg.Password, &cfg.Serve.Addr, &cfg.Serve.Password, &cfg.Serve.Secret} {
		*s = os.ExpandEnv(*s)
	}
	cfg.NotebookDir = expandHome(cfg.NotebookDir)
	cfg.LogFile = expandHome(cfg.LogFile)
	if cfg.Breakpoint == 0 {
		cfg.Breakpoint = defaultBreakpoint
	}
	return cfg, nil
}

// loadConfig reads the config at path. A missing file runs first-time setup
// when a person is at the terminal and falls back to defaults otherwise.
func loadConfig(path string) (config, error) {
	cfg, err := readConfig(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return setupConfig(path), nil
		}
		return cfg, nil
	case err != nil:
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults. Run `weave --setup` to fix.\n", err)
		return newDefaultConfig(), nil
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func saveConfig(path string, cfg config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	// Atomic write: write to temp file then rename, so a crash mid-write
	// can't leave a truncated config file that gets silently replaced with defaults.
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func setupConfig(path string) config {
	scanner := bufio.NewScanner(os.Stdin)
	showWelcome(scanner)
	return runSetup(path, newDefaultConfig(), scanner)
}

// showWelcome displays a brief orientation and waits for the user to press
// enter before continuing to setup.
func showWelcome(scanner *bufio.Scanner) {
	brand := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	dim := lipgloss.NewStyle().Foreground(colorDim)
	key := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	fmt.Println()
	fmt.Println("  " + brand.Render("weave"))
	fmt.Println(dim.Render("  A two-pane terminal browser for zk notebooks."))
	fmt.Println()
	fmt.Println("  " + key.Render("j/k") + dim.Render(" next/prev note   ") + key.Render("s") + dim.Render(" filter       ") + key.Render("f") + dim.Render(" focus mode"))
	fmt.Println("  " + key.Render("e") + dim.Render("   edit note        ") + key.Render("b") + dim.Render(" back         ") + key.Render("?") + dim.Render(" all keybindings"))
	fmt.Println()
	fmt.Print(dim.Render("  Press enter to continue to setup..."))
	scanner.Scan()
	fmt.Println()
}

func runSetup(path string, current config, scanner *bufio.Scanner) config {
	promptStyle := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	dimStyle := lipgloss.NewStyle().Foreground(colorDim)
	if scanner == nil {
		scanner = bufio.NewScanner(os.Stdin)
	}

	fmt.Println(promptStyle.Render("  weave setup"))
	fmt.Println(dimStyle.Render("  Press enter to keep the current value."))
	fmt.Println()

	prompt := func(label, defVal string) string {
		fmt.Printf("%s %s: ", promptStyle.Render(label), dimStyle.Render("["+defVal+"]"))
		if scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				return line
			}
		}
		return defVal
	}

	cfg := current

	fmt.Println(dimStyle.Render("  Root of the zk notebook to browse."))
	cfg.NotebookDir = expandHome(prompt("Notebook path ", contractHome(current.NotebookDir)))
	fmt.Println()

	fmt.Println(dimStyle.Render("  Command to open a note for editing (e key)."))
	cfg.Editor = splitShellWords(prompt("Editor command", strings.Join(current.Editor, " ")))
	fmt.Println()

	fmt.Println(dimStyle.Render("  Remote weave server to browse instead, e.g. https://notes.example.com"))
	serverDefault := current.Server
	if serverDefault == "" {
		fmt.Printf("%s %s: ", promptStyle.Render("Server URL    "), dimStyle.Render("[]"))
	} else {
		fmt.Printf("%s %s: ", promptStyle.Render("Server URL    "), dimStyle.Render("["+serverDefault+"]")+" "+dimStyle.Render(`"none" to clear`))
	}
	if scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			cfg.Server = serverDefault
		case strings.EqualFold(line, "none"):
			cfg.Server = ""
		default:
			cfg.Server = line
		}
	}
	fmt.Println()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := saveConfig(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
	} else {
		fmt.Printf("%s %s\n\n", dimStyle.Render("Saved to"), path)
	}
	return cfg
}

// splitShellWords splits a string into words, respecting single and double quotes.
// Unquoted whitespace separates words. Quotes are consumed (not included in output).
func splitShellWords(s string) []string {
	var words []string
	var cur strings.Builder
	inSingle := false
	inDouble := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == '\\' && inDouble && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case (c == ' ' || c == '\t') && !inSingle && !inDouble:
			if cur.Len() > 0 {
				words = append(words, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

// expandCommand replaces {file} in the command template with the actual file path.
// If no argument contains {file}, the path is appended as a trailing argument.
func expandCommand(args []string, filePath string) []string {
	hasPlaceholder := false
	for _, a := range args {
		if strings.Contains(a, "{file}") {
			hasPlaceholder = true
			break
		}
	}
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.ReplaceAll(a, "{file}", filePath)
	}
	if !hasPlaceholder {
		out = append(out, filePath)
	}
	return out
}

// isTerminalEditor returns true if the command appears to be a terminal-based editor.
func isTerminalEditor(cmd []string) bool {
	if len(cmd) == 0 {
		return false
	}
	switch filepath.Base(cmd[0]) {
	case "vim", "vi", "nvim", "nano", "emacs", "hx", "micro", "kak":
		return true
	}
	return false
}

// effectiveEditorMode resolves the editor mode: "foreground" for terminal editors,
// "background" for GUI editors, unless explicitly overridden.
func effectiveEditorMode(cfg config) string {
	if cfg.EditorMode == "foreground" || cfg.EditorMode == "background" {
		return cfg.EditorMode
	}
	if isTerminalEditor(cfg.Editor) {
		return "foreground"
	}
	return "background"
}

// commandLabel returns the base name of the first element in a command slice.
func commandLabel(cmd []string) string {
	if len(cmd) == 0 {
		return "unknown"
	}
	return filepath.Base(cmd[0])
}

// shellQuote returns a quoted shell string appropriate for the current platform.
func shellQuote(s string) string {
	if runtime.GOOS == "windows" {
		// cmd.exe double-quote escaping: double any internal quotes.
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}

// shellCommand builds an exec.Cmd that runs args through the user's shell.
// On Unix, uses $SHELL -ic for interactive mode (aliases, rc files).
// On Windows, uses cmd.exe /C.
func shellCommand(args ...string) *exec.Cmd {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", append([]string{"/C"}, quoted...)...)
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "sh"
	}
	return exec.Command(shell, "-ic", strings.Join(quoted, " "))
}
