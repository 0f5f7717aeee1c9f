package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	errNotFound  = errors.New("note not found")
	errForbidden = errors.New("access denied")
)

// statusError is a non-2xx answer from a remote notebook.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("server returned %d %s", e.code, http.StatusText(e.code))
	}
	return fmt.Sprintf("server returned %d: %s", e.code, e.msg)
}

func (e *statusError) Unwrap() error {
	switch e.code {
	case http.StatusNotFound:
		return errNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return errForbidden
	}
	return nil
}

// isResponseError separates errors where the notebook answered (but not with
// the content) from errors where it could not be reached at all.
func isResponseError(err error) bool {
	var se *statusError
	return errors.Is(err, errNotFound) || errors.Is(err, errForbidden) || errors.As(err, &se)
}

type noteSummary struct {
	Stem     string    `json:"stem"`
	Title    string    `json:"title"`
	Snippet  string    `json:"snippet"`
	Pinned   bool      `json:"pinned,omitempty"`
	Archived bool      `json:"archived,omitempty"`
	Modified time.Time `json:"modified"`
}

type noteHeading struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
}

type noteLink struct {
	Stem  string `json:"stem"`
	Title string `json:"title"`
}

type noteView struct {
	Stem      string        `json:"stem"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	Tags      []string      `json:"tags,omitempty"`
	Headings  []noteHeading `json:"headings,omitempty"`
	Links     []noteLink    `json:"links,omitempty"`
	Backlinks []noteLink    `json:"backlinks,omitempty"`
	Created   time.Time     `json:"created"`
	Modified  time.Time     `json:"modified"`
	Editable  bool          `json:"editable,omitempty"`
}

// backend serves note fragments to the hypermedia layer and note sources
// to the editor.
type backend interface {
	Note(ctx context.Context, stem string) (noteView, error)
	Search(ctx context.Context, query string) ([]noteSummary, error)
	Source(ctx context.Context, stem string) (string, error)
	Save(ctx context.Context, stem, content string) error
}

// fileBackend is implemented by backends whose notes can be edited in place.
type fileBackend interface {
	Path(stem string) (string, bool)
}
