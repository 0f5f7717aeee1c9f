package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/fsnotify/fsnotify"
)

// rendererPool caches glamour renderers keyed by "style:width".
// Each key maps to a sync.Pool so concurrent goroutines get their own instance.
var (
	rendererPoolMu sync.Mutex
	rendererPools  = make(map[string]*sync.Pool)
)

func getRenderer(style string, width int) (*glamour.TermRenderer, error) {
	key := fmt.Sprintf("%s:%d", style, width)
	rendererPoolMu.Lock()
	pool, ok := rendererPools[key]
	if !ok {
		pool = &sync.Pool{}
		rendererPools[key] = pool
	}
	rendererPoolMu.Unlock()

	if r, _ := pool.Get().(*glamour.TermRenderer); r != nil {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create renderer for %s: %w", key, err)
	}
	return r, nil
}

func putRenderer(style string, width int, r *glamour.TermRenderer) {
	key := fmt.Sprintf("%s:%d", style, width)
	rendererPoolMu.Lock()
	pool := rendererPools[key]
	rendererPoolMu.Unlock()
	if pool != nil {
		pool.Put(r)
	}
}

// ─── Commands ────────────────────────────────────────────────────────────────

// glamourRender wraps markdown to width columns. On failure the source is
// returned unrendered.
func glamourRender(markdown, style string, width int) string {
	if width < 10 {
		width = 10
	}
	r, err := getRenderer(style, width)
	if err != nil {
		return markdown
	}
	rendered, err := r.Render(markdown)
	putRenderer(style, width, r)
	if err != nil {
		return markdown
	}
	return strings.Trim(rendered, "\n")
}

// renderProse renders a note body off the Update loop; the result is cached
// under key.
func renderProse(key, markdown, style string, width int) tea.Cmd {
	return func() tea.Msg {
		return proseRenderedMsg{key: key, content: glamourRender(markdown, style, width)}
	}
}

// runBackgroundEditor launches the editor in the background (for GUI editors).
// Returns editorLaunchedMsg immediately. A goroutine waits for the process
// to prevent zombies; the file watcher picks up any changes.
func runBackgroundEditor(args []string) tea.Cmd {
	return func() tea.Msg {
		c := shellCommand(args...)
		if err := c.Start(); err != nil {
			return errMsg{fmt.Errorf("editor start: %w", err)}
		}
		go func() { _ = c.Wait() }()
		return editorLaunchedMsg{}
	}
}

// runTerminalEditor hands the terminal to the editor until it exits.
func runTerminalEditor(args []string, stem string) tea.Cmd {
	return tea.ExecProcess(shellCommand(args...), func(err error) tea.Msg {
		if err != nil {
			return errMsg{fmt.Errorf("editor failed: %w", err)}
		}
		return editorDoneMsg{stem: stem}
	})
}

// editRemote copies a note's source into a temp file, runs the editor on it
// and saves the result back when it changed.
func editRemote(b backend, editor []string, stem string) tea.Cmd {
	return func() tea.Msg {
		src, err := b.Source(context.Background(), stem)
		if err != nil {
			return errMsg{fmt.Errorf("could not fetch %s: %w", stem, err)}
		}
		f, err := os.CreateTemp("", "weave-*.md")
		if err != nil {
			return errMsg{fmt.Errorf("could not create temp file: %w", err)}
		}
		if _, err := f.WriteString(src); err != nil {
			f.Close()
			os.Remove(f.Name())
			return errMsg{fmt.Errorf("could not write temp file: %w", err)}
		}
		f.Close()
		return remoteEditMsg{stem: stem, file: f.Name(), original: src, args: expandCommand(editor, f.Name())}
	}
}

// remoteEditMsg asks Update to hand the terminal to the editor for a temp copy.
type remoteEditMsg struct {
	stem     string
	file     string
	original string
	args     []string
}

func finishRemoteEdit(b backend, msg remoteEditMsg) tea.Cmd {
	return tea.ExecProcess(shellCommand(msg.args...), func(err error) tea.Msg {
		defer os.Remove(msg.file)
		if err != nil {
			return errMsg{fmt.Errorf("editor failed: %w", err)}
		}
		data, err := os.ReadFile(msg.file)
		if err != nil {
			return errMsg{fmt.Errorf("could not read edited note: %w", err)}
		}
		if string(data) == msg.original {
			return editorDoneMsg{stem: msg.stem}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := b.Save(ctx, msg.stem, string(data)); err != nil {
			return errMsg{fmt.Errorf("could not save %s: %w", msg.stem, err)}
		}
		return editorDoneMsg{stem: msg.stem}
	})
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return errMsg{fmt.Errorf("clipboard: %w", err)}
		}
		return copiedMsg{text: text}
	}
}

type copiedMsg struct {
	text string
}

// ─── Watcher ─────────────────────────────────────────────────────────────────

const changeDebounce = 100 * time.Millisecond

// addWatchTree watches root and every directory below it that could hold
// notes. fsnotify does not recurse on its own.
func addWatchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || skipDirs[d.Name()]) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

// stemForPath maps a changed file under dir to its note stem.
func stemForPath(dir, name string) (string, bool) {
	if !strings.HasSuffix(name, ".md") {
		return "", false
	}
	rel, err := filepath.Rel(dir, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), ".md"), true
}

// nextChange blocks until notes under dir change and returns their stems,
// with a small debounce to coalesce rapid writes. New directories are
// watched as they appear. It reports false once the watcher is closed.
func nextChange(w *fsnotify.Watcher, dir string, log *slog.Logger) ([]string, bool) {
	changed := make(map[string]bool)
	collect := func(ev fsnotify.Event) {
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if err := addWatchTree(w, ev.Name); err != nil {
					log.Warn("watcher: add dir failed", "path", ev.Name, "error", err)
				}
				return
			}
		}
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
			return
		}
		if stem, ok := stemForPath(dir, ev.Name); ok {
			changed[stem] = true
		}
	}
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil, false
			}
			collect(ev)
			if len(changed) == 0 {
				continue
			}
			time.Sleep(changeDebounce)
		drain:
			for {
				select {
				case extra, ok := <-w.Events:
					if !ok {
						break drain
					}
					collect(extra)
				default:
					break drain
				}
			}
			stems := make([]string, 0, len(changed))
			for s := range changed {
				stems = append(stems, s)
			}
			sort.Strings(stems)
			return stems, true
		case err, ok := <-w.Errors:
			if !ok {
				return nil, false
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

// watchNotebook delivers the next batch of changed notes to the Update loop.
// Update re-arms it after every batch.
func watchNotebook(w *fsnotify.Watcher, dir string, log *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		stems, ok := nextChange(w, dir, log)
		if !ok {
			return nil
		}
		return fileChangedMsg{stems: stems}
	}
}
