package main

import (
	"net/url"
	"regexp"
)

// ─── Locations ───────────────────────────────────────────────────────────────
//
// A location is the path part of a URL. /note/<stem> is the permanent address
// of a note and /f/<stem> is the fragment endpoint the content pane is loaded
// from; both select a note. Every other path is the list view.

const (
	rootURL   = "/"
	searchURL = "/f/search"
)

var notePathRe = regexp.MustCompile(`^/(note|f)/(.+)`)

// stemFromURL returns the decoded stem selected by path, or ok=false for the
// list view. A stem that fails to decode is returned raw; it will simply not
// match any list item.
func stemFromURL(path string) (stem string, ok bool) {
	m := notePathRe.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	decoded, err := url.PathUnescape(m[2])
	if err != nil {
		return m[2], true
	}
	return decoded, true
}

// noteURL is the address pushed into history when a note is opened.
func noteURL(stem string) string {
	return "/note/" + url.PathEscape(stem)
}

// fragmentURL is the address the note's content fragment is fetched from.
func fragmentURL(stem string) string {
	return "/f/" + url.PathEscape(stem)
}
