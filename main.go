package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

var version = ""

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "$XDG_CONFIG_HOME/weave/config.json",
		Sources:     cli.EnvVars("WEAVE_CONFIG"),
	}
}

func notebookFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "notebook",
		Aliases: []string{"n"},
		Usage:   "Root of the zk notebook",
		Sources: cli.EnvVars("ZK_NOTEBOOK_DIR"),
	}
}

func debugFlag() *cli.BoolFlag {
	return &cli.BoolFlag{Name: "debug", Usage: "Log at debug level"}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      appTitle,
		Usage:     "Two-pane terminal browser for zk notebooks",
		ArgsUsage: "[stem]",
		Version:   getVersion(),
		Action:    runBrowser,
		Flags: []cli.Flag{
			configFlag(),
			notebookFlag(),
			&cli.StringFlag{
				Name:    "server",
				Usage:   "Browse a `weave serve` instance at this URL",
				Sources: cli.EnvVars("WEAVE_SERVER"),
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Login password for --server",
				Sources: cli.EnvVars("WEAVE_PASSWORD"),
			},
			&cli.StringFlag{Name: "log-file", Usage: "Write logs to this file"},
			&cli.BoolFlag{Name: "demo", Usage: "Browse the built-in demo notebook"},
			&cli.BoolFlag{Name: "setup", Usage: "Re-run first-time configuration"},
			debugFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the notebook over HTTP for remote browsing",
				Action: runServeCommand,
				Flags: []cli.Flag{
					configFlag(),
					notebookFlag(),
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Address to listen on",
						Sources: cli.EnvVars("WEAVE_ADDR"),
					},
					&cli.StringFlag{
						Name:    "password",
						Usage:   "Password required to see notes not tagged public",
						Sources: cli.EnvVars("WEAVE_PASSWORD"),
					},
					&cli.StringFlag{
						Name:    "secret",
						Usage:   "Key for signing login tokens",
						Sources: cli.EnvVars("WEAVE_SECRET"),
					},
					debugFlag(),
				},
			},
			{
				Name:   "hash-password",
				Usage:  "Print an argon2id hash for serve.password_hash",
				Action: runHashPassword,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func resolveConfigPath(cmd *cli.Command) (string, error) {
	if p := cmd.String("config"); p != "" {
		return expandHome(p), nil
	}
	return configPath()
}

func logLevel(cmd *cli.Command, cfg config) slog.Level {
	if cmd.Bool("debug") {
		return slog.LevelDebug
	}
	return cfg.LogLevel
}

// ─── weave ───────────────────────────────────────────────────────────────────

func runBrowser(ctx context.Context, cmd *cli.Command) error {
	path, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("setup") {
		// readConfig rather than loadConfig, which would run first-time setup.
		cfg, err := readConfig(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		runSetup(path, cfg, nil)
		return nil
	}

	demo := cmd.Bool("demo")
	cfg := newDefaultConfig()
	if !demo {
		if cfg, err = loadConfig(path); err != nil {
			return err
		}
	}
	if v := cmd.String("notebook"); v != "" {
		cfg.NotebookDir = expandHome(v)
	}
	if v := cmd.String("server"); v != "" {
		cfg.Server = v
	}
	if v := cmd.String("password"); v != "" {
		cfg.Password = v
	}
	if v := cmd.String("log-file"); v != "" {
		cfg.LogFile = expandHome(v)
	}
	if !demo {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	log, closer, err := newFileLogger(cfg.LogFile, logLevel(cmd, cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, logging disabled\n", err)
		log, closer = slog.New(slog.DiscardHandler), io.NopCloser(nil)
	}
	defer closer.Close()
	slog.SetDefault(log)
	log.Info("starting", slog.String("version", getVersion()), slog.Bool("demo", demo))

	o := modelOptions{cfg: cfg, cfgPath: path, demo: demo, log: log}
	stem := strings.TrimSuffix(strings.TrimSpace(cmd.Args().First()), ".md")

	switch {
	case demo:
		nb, err := openDemoNotebook(log)
		if err != nil {
			return err
		}
		o.nb, o.backend = nb, demoBackend(nb)
		if stem == "" {
			stem = demoStartStem
		}
	case cfg.Server != "":
		o.backend = newHTTPBackend(cfg.Server, cfg.Password)
	default:
		nb, err := openLocalNotebook(cfg, log)
		if err != nil {
			return err
		}
		o.nb, o.backend = nb, localBackend{nb: nb}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not start file watcher: %v\n", err)
		} else {
			defer watcher.Close()
			if err := addWatchTree(watcher, cfg.NotebookDir); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not watch notebook: %v\n", err)
			}
			o.watcher = watcher
		}
	}
	if stem != "" {
		o.startURL = noteURL(stem)
	}

	p := tea.NewProgram(newModel(o), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// openLocalNotebook opens the configured notebook, creating its directory
// on first use.
func openLocalNotebook(cfg config, log *slog.Logger) (*notebook, error) {
	if _, err := os.Stat(cfg.NotebookDir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.NotebookDir, 0755); err != nil {
			return nil, fmt.Errorf("creating notebook directory: %w", err)
		}
	}
	return openNotebook(cfg.NotebookDir, cfg.Ignore, log)
}

// ─── weave serve ─────────────────────────────────────────────────────────────

func runServeCommand(ctx context.Context, cmd *cli.Command) error {
	path, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}
	cfg, err := readConfig(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if v := cmd.String("notebook"); v != "" {
		cfg.NotebookDir = expandHome(v)
	}
	if v := cmd.String("addr"); v != "" {
		cfg.Serve.Addr = v
	}
	if v := cmd.String("password"); v != "" {
		cfg.Serve.Password = v
	}
	if v := cmd.String("secret"); v != "" {
		cfg.Serve.Secret = v
	}
	// The server reads its own notebook; a client-side server URL is not
	// an error here.
	cfg.Server = ""
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newServeLogger(os.Stdout, logLevel(cmd, cfg))
	slog.SetDefault(log)
	log.Info("configuration loaded",
		slog.String("config", path),
		slog.String("notebook", cfg.NotebookDir),
		slog.String("address", cfg.Serve.Addr),
		slog.String("log_level", logLevel(cmd, cfg).String()))

	return runServe(ctx, cfg, log)
}

// ─── weave hash-password ─────────────────────────────────────────────────────

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(pass)), nil
}

func runHashPassword(_ context.Context, _ *cli.Command) error {
	pass, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if pass != confirm {
		return errors.New("passwords do not match")
	}
	hash, err := hashPassword(pass)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
