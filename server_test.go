package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// testServer serves a small on-disk notebook and records the requests it
// sees.
type testServer struct {
	*httptest.Server
	s   *server
	dir string

	mu     sync.Mutex
	logins int
	ids    []string
}

func newTestServer(t *testing.T, password string) *testServer {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "open.md"), "---\ntags: [public]\n---\n# Open\n\nSee [[private]].\n")
	writeFile(t, filepath.Join(dir, "private.md"), "# Private\n\nBack to [[open]].\n")
	writeFile(t, filepath.Join(dir, "sub", "nested.md"), "# Nested #public\n\nDeep.\n")
	nb, err := openNotebook(dir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	check, _ := newPasswordCheck(password, "")
	tokens, _ := newTokenIssuer("test-secret")
	ts := &testServer{dir: dir}
	ts.s = &server{nb: nb, tokens: tokens, password: check, log: slog.New(slog.DiscardHandler)}
	h := ts.s.routes()
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		if r.URL.Path == "/login" {
			ts.logins++
		}
		ts.ids = append(ts.ids, r.Header.Get("X-Request-Id"))
		ts.mu.Unlock()
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) loginCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.logins
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, "pw")
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("healthz = %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get("Content-Type") != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
}

func TestAnonymousSeesPublicNotes(t *testing.T) {
	ts := newTestServer(t, "pw")
	b := newHTTPBackend(ts.URL+"/", "")
	ctx := context.Background()

	res, err := b.Search(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, s := range res {
		got = append(got, s.Stem)
	}
	if len(got) != 2 {
		t.Errorf("search = %v, want the two public notes", got)
	}

	v, err := b.Note(ctx, "open")
	if err != nil {
		t.Fatal(err)
	}
	if v.Editable || len(v.Links) != 0 {
		t.Errorf("editable, links = %v, %+v", v.Editable, v.Links)
	}
	if _, err := b.Note(ctx, "private"); !errors.Is(err, errForbidden) {
		t.Errorf("Note(private) error = %v, want errForbidden", err)
	}
	if _, err := b.Note(ctx, "missing"); !errors.Is(err, errNotFound) {
		t.Errorf("Note(missing) error = %v, want errNotFound", err)
	}
	if _, err := b.Source(ctx, "open"); !errors.Is(err, errForbidden) {
		t.Errorf("Source error = %v, want errForbidden", err)
	}
	if err := b.Save(ctx, "open", "x"); !errors.Is(err, errForbidden) {
		t.Errorf("Save error = %v, want errForbidden", err)
	}
	if n := ts.loginCount(); n != 0 {
		t.Errorf("%d logins without a password", n)
	}
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	ts := newTestServer(t, "")
	resp, err := http.Post(ts.URL+"/login", "application/json", strings.NewReader(`{"password":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("login status = %d, want 404", resp.StatusCode)
	}

	v, err := newHTTPBackend(ts.URL, "").Note(context.Background(), "private")
	if err != nil {
		t.Fatalf("Note(private): %v", err)
	}
	if !v.Editable {
		t.Error("an open server should allow editing")
	}
}

func TestLoginRejectsBadRequests(t *testing.T) {
	ts := newTestServer(t, "pw")
	tests := []struct {
		body string
		want int
	}{
		{`not json`, http.StatusBadRequest},
		{`{"password":"nope"}`, http.StatusUnauthorized},
		{`{"password":"pw"}`, http.StatusOK},
	}
	for _, tt := range tests {
		resp, err := http.Post(ts.URL+"/login", "application/json", strings.NewReader(tt.body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("login %s = %d, want %d", tt.body, resp.StatusCode, tt.want)
		}
	}
}

func TestWrongPassword(t *testing.T) {
	ts := newTestServer(t, "pw")
	_, err := newHTTPBackend(ts.URL, "wrong").Note(context.Background(), "open")
	if !errors.Is(err, errForbidden) || !isResponseError(err) {
		t.Errorf("error = %v, want a forbidden response", err)
	}
}

func TestAuthenticatedSession(t *testing.T) {
	ts := newTestServer(t, "pw")
	b := newHTTPBackend(ts.URL, "pw")
	ctx := context.Background()

	v, err := b.Note(ctx, "private")
	if err != nil {
		t.Fatalf("Note(private): %v", err)
	}
	if !v.Editable || len(v.Backlinks) != 1 || v.Backlinks[0].Stem != "open" {
		t.Errorf("editable, backlinks = %v, %+v", v.Editable, v.Backlinks)
	}

	src, err := b.Source(ctx, "private")
	if err != nil {
		t.Fatal(err)
	}
	if src != "# Private\n\nBack to [[open]].\n" {
		t.Errorf("source = %q", src)
	}

	if err := b.Save(ctx, "private", "# Renamed\n"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(ts.dir, "private.md"))
	if string(data) != "# Renamed\n" {
		t.Errorf("file = %q", data)
	}
	if v, _ := b.Note(ctx, "private"); v.Title != "Renamed" {
		t.Errorf("title after save = %q", v.Title)
	}
	if n := ts.loginCount(); n != 1 {
		t.Errorf("logins = %d, want 1", n)
	}
}

func TestReloginAfterUnauthorized(t *testing.T) {
	ts := newTestServer(t, "pw")
	b := newHTTPBackend(ts.URL, "pw")
	// A token from before a server restart with a fresh secret.
	stale, _ := newTokenIssuer("rotated")
	b.token, _ = stale.issue()

	if _, err := b.Source(context.Background(), "private"); err != nil {
		t.Fatalf("Source with a stale token: %v", err)
	}
	if n := ts.loginCount(); n != 1 {
		t.Errorf("logins = %d, want 1", n)
	}
	if b.currentToken() == "" {
		t.Error("fresh token should be kept")
	}
}

func TestRequestIDForwarded(t *testing.T) {
	ts := newTestServer(t, "")
	ctx := withRequestID(context.Background(), "req-42")
	if _, err := newHTTPBackend(ts.URL, "").Search(ctx, "open"); err != nil {
		t.Fatal(err)
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.ids) != 1 || ts.ids[0] != "req-42" {
		t.Errorf("request ids = %v", ts.ids)
	}
}

func TestNestedStems(t *testing.T) {
	ts := newTestServer(t, "")
	b := newHTTPBackend(ts.URL, "")
	v, err := b.Note(context.Background(), "sub/nested")
	if err != nil {
		t.Fatal(err)
	}
	if v.Stem != "sub/nested" || v.Title != "Nested #public" {
		t.Errorf("stem, title = %q, %q", v.Stem, v.Title)
	}

	resp, err := http.Get(ts.URL + "/f/sub/nested")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unencoded path status = %d", resp.StatusCode)
	}
}
