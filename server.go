package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

const (
	maxNoteSize     = 4 << 20
	shutdownTimeout = 10 * time.Second
)

// server exposes a notebook over HTTP with the same fragment endpoints the
// browser uses locally.
type server struct {
	nb       *notebook
	tokens   *tokenIssuer
	password passwordCheck
	log      *slog.Logger
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/login", s.login)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/f/search", s.search)
		r.Get("/f/*", s.note)
		r.Put("/f/*", s.save)
		r.Get("/source/*", s.source)
	})
	return r
}

// requestLogger logs one line per request once it has been served.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("took", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

type authKey struct{}

// authenticate marks requests carrying a valid bearer token. Without a
// configured password every request counts as authenticated.
func (s *server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed := !s.password.enabled()
		if !authed {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			authed = ok && s.tokens.valid(token)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authKey{}, authed)))
	})
}

func authenticated(ctx context.Context) bool {
	ok, _ := ctx.Value(authKey{}).(bool)
	return ok
}

func (s *server) backendFor(r *http.Request) localBackend {
	return localBackend{nb: s.nb, publicOnly: !authenticated(r.Context())}
}

// stemParam extracts the note stem from the URL. Encoded slashes are
// accepted (ideas%2F2024).
func stemParam(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if !s.password.enabled() {
		writeJSON(w, http.StatusNotFound, errorBody("login disabled"))
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if !s.password.verify(req.Password) {
		s.log.Warn("login failed", slog.String("remote", r.RemoteAddr))
		writeJSON(w, http.StatusUnauthorized, errorBody("wrong password"))
		return
	}
	token, err := s.tokens.issue()
	if err != nil {
		s.log.Error("issue token failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *server) search(w http.ResponseWriter, r *http.Request) {
	notes, err := s.backendFor(r).Search(r.Context(), r.FormValue("query"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *server) note(w http.ResponseWriter, r *http.Request) {
	v, err := s.backendFor(r).Note(r.Context(), stemParam(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type sourceBody struct {
	Content string `json:"content"`
}

func (s *server) source(w http.ResponseWriter, r *http.Request) {
	if !authenticated(r.Context()) {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		return
	}
	src, err := s.backendFor(r).Source(r.Context(), stemParam(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceBody{Content: src})
}

func (s *server) save(w http.ResponseWriter, r *http.Request) {
	if !authenticated(r.Context()) {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		return
	}
	var body sourceBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxNoteSize)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	stem := stemParam(r)
	if err := s.backendFor(r).Save(r.Context(), stem, body.Content); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("note saved", slog.String("stem", stem))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, errForbidden):
		writeJSON(w, http.StatusForbidden, errorBody("forbidden"))
	default:
		s.log.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// ─── weave serve ─────────────────────────────────────────────────────────────

// runServe serves the notebook until ctx is cancelled or a shutdown signal
// arrives, reloading notes as they change on disk.
func runServe(ctx context.Context, cfg config, log *slog.Logger) error {
	check, err := newPasswordCheck(cfg.Serve.Password, cfg.Serve.PasswordHash)
	if err != nil {
		return fmt.Errorf("serve.password_hash: %w", err)
	}
	tokens, err := newTokenIssuer(cfg.Serve.Secret)
	if err != nil {
		return err
	}
	nb, err := openNotebook(cfg.NotebookDir, cfg.Ignore, log)
	if err != nil {
		return err
	}
	if !check.enabled() {
		log.Warn("no password configured, every note is served without login")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := addWatchTree(watcher, cfg.NotebookDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", cfg.NotebookDir, err)
	}

	s := &server{nb: nb, tokens: tokens, password: check, log: log}
	httpServer := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			stems, ok := nextChange(watcher, cfg.NotebookDir, log)
			if !ok {
				return nil
			}
			for _, stem := range stems {
				if err := nb.reload(stem); err != nil {
					log.Warn("reload failed", slog.String("stem", stem), slog.String("error", err.Error()))
				}
			}
			log.Debug("notes reloaded", slog.Any("stems", stems))
		}
	})

	g.Go(func() error {
		log.Info("serving notebook",
			slog.String("address", cfg.Serve.Addr),
			slog.String("notebook", cfg.NotebookDir),
			slog.Int("notes", nb.len()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			log.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		watcher.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
