package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// defaultLogPath is where the TUI logs when no log_file is configured. The
// terminal belongs to bubbletea, so the browser never logs to stderr.
func defaultLogPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appTitle, appTitle+".log"), nil
}

// newFileLogger opens path for appending and returns a text logger writing
// to it. The caller closes the returned file.
func newFileLogger(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if path == "" {
		p, err := defaultLogPath()
		if err != nil {
			return nil, nil, fmt.Errorf("log path: %w", err)
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return log, f, nil
}

// newServeLogger logs JSON lines to w, one object per record.
func newServeLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
