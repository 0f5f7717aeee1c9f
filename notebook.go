package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ─── Types ───────────────────────────────────────────────────────────────────

type note struct {
	stem     string // path relative to the notebook, without .md
	file     string // path relative to the notebook
	title    string
	lead     string // body up to the first blank line
	body     string // content after frontmatter and title heading
	raw      string
	tags     []string
	aliases  []string
	links    []string // outgoing link targets as written
	headings []noteHeading
	created  time.Time
	modified time.Time
}

const (
	publicTag   = "public"
	pinTag      = "pin"
	archivedTag = "archived"
	snippetLen  = 30
)

// has reports whether the note carries tag, ignoring case.
func (n note) has(tag string) bool {
	for _, t := range n.tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func (n note) snippet() string {
	r := []rune(n.body)
	if len(r) > snippetLen {
		r = r[:snippetLen]
	}
	return string(r) + "..."
}

func (n note) summary() noteSummary {
	return noteSummary{
		Stem:     n.stem,
		Title:    n.title,
		Snippet:  n.snippet(),
		Pinned:   n.has(pinTag),
		Archived: n.has(archivedTag),
		Modified: n.modified,
	}
}

// ─── Parsing ─────────────────────────────────────────────────────────────────

// splitFrontmatter separates a leading --- delimited YAML block from the
// rest of the content.
func splitFrontmatter(content string) (yamlText, rest string, ok bool) {
	if !strings.HasPrefix(content, "---\n") {
		return "", content, false
	}
	lines := strings.SplitAfter(content, "\n")
	offset := len(lines[0])
	for _, line := range lines[1:] {
		if strings.TrimRight(line, "\n") == "---" {
			return content[len(lines[0]):offset], content[offset+len(line):], true
		}
		offset += len(line)
	}
	return "", content, false
}

// parseNote parses the raw content of the file at rel. Times other than a
// frontmatter date are left for the caller.
func parseNote(raw, rel string) (note, error) {
	content := strings.ReplaceAll(raw, "\r\n", "\n")
	n := note{
		stem: strings.TrimSuffix(rel, ".md"),
		file: rel,
		raw:  raw,
	}

	fm := map[string]any{}
	yamlText, rest, ok := splitFrontmatter(content)
	if ok {
		if err := yaml.Unmarshal([]byte(yamlText), &fm); err != nil {
			return note{}, fmt.Errorf("frontmatter of %s: %w", rel, err)
		}
		if fm == nil {
			fm = map[string]any{}
		}
	}

	title, _ := fm["title"].(string)
	n.title, n.body = titleAndBody(rest, strings.TrimSpace(title))
	if n.title == "" {
		n.title = path.Base(n.stem)
	}
	n.lead = leadOf(n.body)
	n.created = parseDate(fm["date"])
	n.aliases = stringList(fm["aliases"])

	seen := make(map[string]bool)
	for _, key := range []string{"tags", "tag", "keywords", "keyword"} {
		for _, t := range stringList(fm[key]) {
			for _, f := range strings.Fields(t) {
				n.tags = addTag(n.tags, seen, f)
			}
		}
	}
	for _, t := range inlineTags(rest) {
		n.tags = addTag(n.tags, seen, t)
	}

	n.headings, n.links = outline(n.body)
	return n, nil
}

// titleAndBody takes the title from frontmatter, or else from a heading on
// the first non-empty line, which is then left out of the body.
func titleAndBody(content, fmTitle string) (string, string) {
	if fmTitle != "" {
		return fmTitle, strings.TrimSpace(content)
	}
	lines := strings.SplitAfter(content, "\n")
	offset := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			offset += len(line)
			continue
		}
		if h, ok := headingText(trimmed); ok {
			return h, strings.TrimSpace(content[offset+len(line):])
		}
		break
	}
	return "", strings.TrimSpace(content)
}

func headingText(line string) (string, bool) {
	if !strings.HasPrefix(line, "#") {
		return "", false
	}
	stripped := strings.TrimLeft(line, "#")
	if stripped != "" && !strings.HasPrefix(stripped, " ") {
		return "", false
	}
	return strings.TrimSpace(stripped), true
}

func leadOf(body string) string {
	if i := strings.Index(body, "\n\n"); i >= 0 {
		return strings.TrimSpace(body[:i])
	}
	return strings.TrimSpace(body)
}

func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func addTag(tags []string, seen map[string]bool, raw string) []string {
	tag := strings.TrimSpace(strings.TrimLeft(raw, "#"))
	if tag == "" || seen[strings.ToLower(tag)] {
		return tags
	}
	seen[strings.ToLower(tag)] = true
	return append(tags, tag)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func isTagByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_' || b == '-'
}

// inlineTags finds #hashtags and :colon:tags: outside fenced code blocks.
func inlineTags(content string) []string {
	var tags []string
	inCode := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		tags = append(tags, colonTags(line)...)
		tags = append(tags, hashTags(line)...)
	}
	return tags
}

func atWordStart(line string, i int) bool {
	return i == 0 || line[i-1] == ' ' || line[i-1] == '\t'
}

func hashTags(line string) []string {
	var tags []string
	for i := 0; i < len(line); i++ {
		if line[i] != '#' || !atWordStart(line, i) {
			continue
		}
		end := i + 1
		for end < len(line) && isTagByte(line[end]) {
			end++
		}
		if end > i+1 {
			tags = append(tags, line[i+1:end])
			i = end - 1
		}
	}
	return tags
}

func colonTags(line string) []string {
	var tags []string
	for i := 0; i < len(line); i++ {
		if line[i] != ':' || !atWordStart(line, i) {
			continue
		}
		j := i + 1
		for {
			start := j
			for j < len(line) && isTagByte(line[j]) {
				j++
			}
			if j == start || j >= len(line) || line[j] != ':' {
				break
			}
			tags = append(tags, line[start:j])
			j++
			if j >= len(line) || !isTagByte(line[j]) {
				break
			}
		}
		i = j - 1
	}
	return tags
}

// ─── Notebook ────────────────────────────────────────────────────────────────

// skipDirs lists directory names that never hold notes.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// notebook holds every note of a zk notebook in memory. It is shared by the
// fragment handlers and the file watcher, hence the lock.
type notebook struct {
	fsys   fs.FS
	dir    string // on-disk root; empty for embedded notebooks
	ignore []string
	log    *slog.Logger

	mu    sync.RWMutex
	notes map[string]*note
}

func openNotebook(dir string, ignore []string, log *slog.Logger) (*notebook, error) {
	return loadNotebook(os.DirFS(dir), dir, ignore, log)
}

// loadNotebook reads every note under fsys in parallel. Notes that fail to
// parse are logged and left out.
func loadNotebook(fsys fs.FS, dir string, ignore []string, log *slog.Logger) (*notebook, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	nb := &notebook{fsys: fsys, dir: dir, ignore: ignore, log: log, notes: make(map[string]*note)}
	files, err := nb.noteFiles()
	if err != nil {
		return nil, fmt.Errorf("could not read notebook: %w", err)
	}

	notes := make([]*note, len(files))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			n, err := nb.readNote(f)
			if err != nil {
				log.Warn("skipping note", "file", f, "error", err)
				return nil
			}
			notes[i] = n
			return nil
		})
	}
	_ = g.Wait()

	for _, n := range notes {
		if n != nil {
			nb.notes[n.stem] = n
		}
	}
	log.Info("notebook loaded", "dir", dir, "notes", len(nb.notes))
	return nb, nil
}

func (nb *notebook) ignored(rel string) bool {
	for _, pattern := range nb.ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// noteFiles lists the .md files of the notebook, skipping hidden entries
// (such as .zk) and ignored paths.
func (nb *notebook) noteFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(nb.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || nb.ignored(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skipDirs[name] {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".md") {
			files = append(files, p)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func (nb *notebook) readNote(rel string) (*note, error) {
	data, err := fs.ReadFile(nb.fsys, rel)
	if err != nil {
		return nil, err
	}
	info, err := fs.Stat(nb.fsys, rel)
	if err != nil {
		return nil, err
	}
	n, err := parseNote(string(data), rel)
	if err != nil {
		return nil, err
	}
	n.modified = info.ModTime()
	if n.modified.IsZero() {
		n.modified = n.created
	}
	if n.created.IsZero() {
		n.created = n.modified
		if nb.dir != "" {
			if bt, ok := birthTime(filepath.Join(nb.dir, filepath.FromSlash(rel))); ok {
				n.created = bt
			}
		}
	}
	return &n, nil
}

// reload re-reads one note from disk, dropping it if the file is gone.
func (nb *notebook) reload(stem string) error {
	rel := stem + ".md"
	if nb.ignored(rel) {
		return nil
	}
	n, err := nb.readNote(rel)
	if errors.Is(err, fs.ErrNotExist) {
		nb.remove(stem)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload %s: %w", stem, err)
	}
	nb.mu.Lock()
	nb.notes[stem] = n
	nb.mu.Unlock()
	nb.log.Debug("note reloaded", "stem", stem)
	return nil
}

func (nb *notebook) remove(stem string) {
	nb.mu.Lock()
	delete(nb.notes, stem)
	nb.mu.Unlock()
	nb.log.Debug("note removed", "stem", stem)
}

func (nb *notebook) get(stem string) (note, bool) {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	n, ok := nb.notes[stem]
	if !ok {
		return note{}, false
	}
	return *n, true
}

func (nb *notebook) len() int {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return len(nb.notes)
}

// filePath returns where stem lives on disk.
func (nb *notebook) filePath(stem string) (string, bool) {
	n, ok := nb.get(stem)
	if !ok || nb.dir == "" {
		return "", false
	}
	return filepath.Join(nb.dir, filepath.FromSlash(n.file)), true
}

// all returns the notes carrying withTag (every note when empty), most
// recently modified first.
func (nb *notebook) all(withTag string) []note {
	nb.mu.RLock()
	out := make([]note, 0, len(nb.notes))
	for _, n := range nb.notes {
		if withTag == "" || n.has(withTag) {
			out = append(out, *n)
		}
	}
	nb.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].modified.Equal(out[j].modified) {
			return out[i].modified.After(out[j].modified)
		}
		return out[i].stem < out[j].stem
	})
	return out
}

// resolve maps a link target to a stem: an exact stem, a path relative to
// from, or a unique file name anywhere in the notebook.
func (nb *notebook) resolve(from, target string) (string, bool) {
	target = strings.TrimSuffix(strings.TrimSpace(target), ".md")
	if target == "" {
		return "", false
	}
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	if _, ok := nb.notes[target]; ok {
		return target, true
	}
	if rel := path.Join(path.Dir(from), target); rel != target {
		if _, ok := nb.notes[rel]; ok {
			return rel, true
		}
	}
	found := ""
	for stem := range nb.notes {
		if path.Base(stem) == target {
			if found != "" {
				return "", false
			}
			found = stem
		}
	}
	return found, found != ""
}

func (nb *notebook) outgoing(stem, withTag string) []note {
	n, ok := nb.get(stem)
	if !ok {
		return nil
	}
	var out []note
	seen := make(map[string]bool)
	for _, target := range n.links {
		s, ok := nb.resolve(stem, target)
		if !ok || seen[s] || s == stem {
			continue
		}
		seen[s] = true
		if l, ok := nb.get(s); ok && (withTag == "" || l.has(withTag)) {
			out = append(out, l)
		}
	}
	return out
}

func (nb *notebook) backlinks(stem, withTag string) []note {
	var out []note
	for _, n := range nb.all(withTag) {
		if n.stem == stem {
			continue
		}
		for _, target := range n.links {
			if s, ok := nb.resolve(n.stem, target); ok && s == stem {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
