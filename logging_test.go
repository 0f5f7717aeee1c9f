package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "weave.log")
	log, closer, err := newFileLogger(path, slog.LevelInfo)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("hidden")
	log.Info("page load", "url", "/note/a")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}
	if !strings.Contains(out, `msg="page load" url=/note/a`) {
		t.Errorf("log = %q", out)
	}
}

func TestServeLogger(t *testing.T) {
	var buf bytes.Buffer
	newServeLogger(&buf, slog.LevelDebug).Debug("request", "status", 200)
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if rec["msg"] != "request" || rec["status"] != float64(200) {
		t.Errorf("record = %v", rec)
	}
}
