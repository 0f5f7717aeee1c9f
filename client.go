package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// httpBackend browses a notebook served by `weave serve`.
type httpBackend struct {
	base     string
	client   *http.Client
	password string

	mu    sync.Mutex
	token string
}

func newHTTPBackend(base, password string) *httpBackend {
	return &httpBackend{
		base:     strings.TrimRight(base, "/"),
		client:   &http.Client{},
		password: password,
	}
}

func (b *httpBackend) currentToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

func (b *httpBackend) login(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{Password: b.password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+"/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	var out loginResponse
	if err := b.send(req, &out); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	b.mu.Lock()
	b.token = out.Token
	b.mu.Unlock()
	return nil
}

// do sends a request built by build, logging in first when a password is
// configured and no token is held yet. A 401 triggers one fresh login.
func (b *httpBackend) do(ctx context.Context, build func() (*http.Request, error), out any) error {
	if b.password != "" && b.currentToken() == "" {
		if err := b.login(ctx); err != nil {
			return err
		}
	}
	for attempt := 0; ; attempt++ {
		req, err := build()
		if err != nil {
			return err
		}
		if token := b.currentToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if id := requestIDFrom(ctx); id != "" {
			req.Header.Set("X-Request-Id", id)
		}
		err = b.send(req, out)
		var se *statusError
		if attempt == 0 && b.password != "" && errors.As(err, &se) && se.code == http.StatusUnauthorized {
			if err := b.login(ctx); err != nil {
				return err
			}
			continue
		}
		return err
	}
}

func (b *httpBackend) send(req *http.Request, out any) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return &statusError{code: resp.StatusCode, msg: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func (b *httpBackend) Note(ctx context.Context, stem string) (noteView, error) {
	var v noteView
	err := b.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, b.base+fragmentURL(stem), nil)
	}, &v)
	return v, err
}

func (b *httpBackend) Search(ctx context.Context, query string) ([]noteSummary, error) {
	var notes []noteSummary
	form := url.Values{"query": {query}}.Encode()
	err := b.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+searchURL, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, &notes)
	return notes, err
}

func (b *httpBackend) Source(ctx context.Context, stem string) (string, error) {
	var body sourceBody
	err := b.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, b.base+"/source/"+url.PathEscape(stem), nil)
	}, &body)
	return body.Content, err
}

func (b *httpBackend) Save(ctx context.Context, stem, content string) error {
	data, err := json.Marshal(sourceBody{Content: content})
	if err != nil {
		return err
	}
	return b.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.base+fragmentURL(stem), bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, nil)
}
