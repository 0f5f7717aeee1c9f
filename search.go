package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sahilm/fuzzy"
)

// search answers a filter query: everything for an empty query, a tag
// filter for "#tag", and a fuzzy title match otherwise. withTag restricts
// every answer to notes carrying that tag.
func (nb *notebook) search(query, withTag string) []note {
	query = strings.TrimSpace(query)
	switch {
	case query == "":
		return nb.all(withTag)
	case strings.HasPrefix(query, "#") && len(query) > 1:
		return nb.searchTag(query[1:], withTag)
	}
	return nb.searchTitles(query, withTag)
}

func (nb *notebook) searchTag(tag, withTag string) []note {
	var out []note
	for _, n := range nb.all(withTag) {
		if n.has(tag) {
			out = append(out, n)
		}
	}
	return out
}

type titleSource []note

func (s titleSource) String(i int) string { return s[i].title }
func (s titleSource) Len() int            { return len(s) }

// searchTitles ranks notes by how well their title fuzzy-matches query.
func (nb *notebook) searchTitles(query, withTag string) []note {
	candidates := titleSource(nb.all(withTag))
	matches := fuzzy.FindFrom(query, candidates)
	out := make([]note, len(matches))
	for i, m := range matches {
		out[i] = candidates[m.Index]
	}
	return out
}

// ─── localBackend ────────────────────────────────────────────────────────────

// localBackend serves fragments straight from an in-memory notebook. With
// publicOnly set it shows what an anonymous visitor of the server sees.
type localBackend struct {
	nb         *notebook
	publicOnly bool
	readOnly   bool
}

func (b localBackend) visibleTag() string {
	if b.publicOnly {
		return publicTag
	}
	return ""
}

func (b localBackend) Search(_ context.Context, query string) ([]noteSummary, error) {
	notes := b.nb.search(query, b.visibleTag())
	out := make([]noteSummary, len(notes))
	for i, n := range notes {
		out[i] = n.summary()
	}
	return out, nil
}

func (b localBackend) lookup(stem string) (note, error) {
	n, ok := b.nb.get(stem)
	if !ok {
		return note{}, fmt.Errorf("%s: %w", stem, errNotFound)
	}
	if b.publicOnly && !n.has(publicTag) {
		return note{}, fmt.Errorf("%s: %w", stem, errForbidden)
	}
	return n, nil
}

func (b localBackend) Note(_ context.Context, stem string) (noteView, error) {
	n, err := b.lookup(stem)
	if err != nil {
		return noteView{}, err
	}
	return noteView{
		Stem:      n.stem,
		Title:     n.title,
		Body:      n.body,
		Tags:      n.tags,
		Headings:  n.headings,
		Links:     linkViews(b.nb.outgoing(stem, b.visibleTag())),
		Backlinks: linkViews(b.nb.backlinks(stem, b.visibleTag())),
		Created:   n.created,
		Modified:  n.modified,
		Editable:  !b.readOnly && !b.publicOnly,
	}, nil
}

func linkViews(notes []note) []noteLink {
	out := make([]noteLink, len(notes))
	for i, n := range notes {
		out[i] = noteLink{Stem: n.stem, Title: n.title}
	}
	return out
}

// Source returns the raw file content of a note for editing.
func (b localBackend) Source(_ context.Context, stem string) (string, error) {
	if b.readOnly || b.publicOnly {
		return "", fmt.Errorf("%s: %w", stem, errForbidden)
	}
	n, err := b.lookup(stem)
	if err != nil {
		return "", err
	}
	return n.raw, nil
}

// Save overwrites an existing note and reloads it. The file is rewritten in
// place so it keeps its birth time.
func (b localBackend) Save(_ context.Context, stem, content string) error {
	if b.readOnly || b.publicOnly {
		return fmt.Errorf("%s: %w", stem, errForbidden)
	}
	p, ok := b.nb.filePath(stem)
	if !ok {
		return fmt.Errorf("%s: %w", stem, errNotFound)
	}
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("could not save %s: %w", stem, err)
	}
	if err := os.WriteFile(p, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("could not save %s: %w", stem, err)
	}
	return b.nb.reload(stem)
}

// Path returns the file behind stem for editing in place.
func (b localBackend) Path(stem string) (string, bool) {
	if b.readOnly || b.publicOnly {
		return "", false
	}
	return b.nb.filePath(stem)
}
