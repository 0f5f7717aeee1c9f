package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// ─── Hypermedia layer ────────────────────────────────────────────────────────
//
// hxClient plays the part of the hypermedia library: elements declare
// requests with hx-* attributes, responses are swapped into target regions,
// pushed locations are snapshotted into a history cache, and every step is
// announced on the body as a lifecycle event.

const (
	historyCacheSize = 10
	requestTimeout   = 10 * time.Second
)

type ajaxOptions struct {
	target  *element
	values  map[string]string
	pushURL string
}

type hxRequest struct {
	id      string
	method  string
	path    string
	target  *element
	values  map[string]string
	pushURL string
}

type historyEntry struct {
	url  string
	snap snapshot
}

type triggerSpec struct {
	event    string
	delay    time.Duration
	changed  bool
	fromBody bool
}

type hxClient struct {
	doc     *document
	hist    *browserHistory
	backend backend
	queue   *taskQueue
	log     *slog.Logger
	timeout time.Duration

	cache    []historyEntry
	delays   map[*element]int
	lastVals map[*element]string
	pageSeq  int
}

func newHxClient(doc *document, hist *browserHistory, b backend, q *taskQueue, log *slog.Logger) *hxClient {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	hx := &hxClient{
		doc:      doc,
		hist:     hist,
		backend:  b,
		queue:    q,
		log:      log,
		timeout:  requestTimeout,
		delays:   make(map[*element]int),
		lastVals: make(map[*element]string),
	}
	doc.window.addEventListener(evPopState, func(domEvent) { hx.restoreHistory() })
	hx.process(doc.body)
	return hx
}

// ─── Triggers ────────────────────────────────────────────────────────────────

// parseTriggers reads an hx-trigger value such as
// "input changed delay:300ms, submit, notes-updated from:body".
func parseTriggers(s string) []triggerSpec {
	var out []triggerSpec
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		spec := triggerSpec{event: fields[0]}
		for _, f := range fields[1:] {
			switch {
			case f == "changed":
				spec.changed = true
			case f == "from:body":
				spec.fromBody = true
			case strings.HasPrefix(f, "delay:"):
				if d, err := time.ParseDuration(strings.TrimPrefix(f, "delay:")); err == nil {
					spec.delay = d
				}
			}
		}
		out = append(out, spec)
	}
	if len(out) == 0 {
		out = append(out, triggerSpec{event: evClick})
	}
	return out
}

func isHxElement(e *element) bool {
	_, get := e.attrs["hx-get"]
	_, post := e.attrs["hx-post"]
	return get || post
}

// process attaches triggers to root and every hx element below it that has
// not been processed yet.
func (hx *hxClient) process(root *element) {
	if root == nil {
		return
	}
	if isHxElement(root) {
		hx.bind(root)
	}
	for _, el := range root.findAll(isHxElement) {
		hx.bind(el)
	}
}

func (hx *hxClient) bind(el *element) {
	if el.hxBound {
		return
	}
	el.hxBound = true
	for _, spec := range parseTriggers(el.getAttr("hx-trigger")) {
		source := el
		if spec.fromBody {
			source = hx.doc.body
		}
		source.addEventListener(spec.event, func(domEvent) { hx.fire(el, spec) })
	}
}

func (hx *hxClient) fire(el *element, spec triggerSpec) {
	if spec.changed {
		v := el.getAttr("value")
		if last, ok := hx.lastVals[el]; ok && last == v {
			return
		}
		hx.lastVals[el] = v
	}
	if spec.delay > 0 {
		hx.delays[el]++
		seq := hx.delays[el]
		hx.queue.push(tea.Tick(spec.delay, func(time.Time) tea.Msg {
			return hxDelayMsg{el: el, seq: seq}
		}))
		return
	}
	hx.trigger(el)
}

// handleDelay issues a debounced request unless a later trigger superseded it.
func (hx *hxClient) handleDelay(msg hxDelayMsg) {
	if hx.delays[msg.el] != msg.seq {
		return
	}
	hx.trigger(msg.el)
}

// trigger issues the request declared on el.
func (hx *hxClient) trigger(el *element) {
	if el == nil {
		return
	}
	method, path := "GET", el.getAttr("hx-get")
	if p, ok := el.attr("hx-post"); ok {
		method, path = "POST", p
	}
	if path == "" {
		return
	}
	// Any pending debounced request for el is now stale.
	hx.delays[el]++

	target := el
	if sel := el.getAttr("hx-target"); strings.HasPrefix(sel, "#") {
		if t := hx.doc.byID(sel[1:]); t != nil {
			target = t
		}
	}
	values := make(map[string]string)
	if name, ok := el.attr("name"); ok {
		values[name] = el.getAttr("value")
	}
	if raw := el.getAttr("hx-vals"); raw != "" {
		var extra map[string]string
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			hx.log.Warn("ignoring malformed hx-vals", "value", raw, "error", err)
		}
		for k, v := range extra {
			values[k] = v
		}
	}
	hx.ajax(method, path, ajaxOptions{target: target, values: values, pushURL: el.getAttr("hx-push-url")})
}

// ─── Requests ────────────────────────────────────────────────────────────────

// ajax queues a fragment request. The response is swapped into opts.target
// when it arrives; requests are never cancelled, so a late response still
// swaps.
func (hx *hxClient) ajax(method, path string, opts ajaxOptions) {
	if opts.target == nil {
		hx.log.Warn("dropping request without target", "method", method, "path", path)
		return
	}
	// Remember the filter value behind every list search, however it was
	// set, so a later input event compares against it.
	if in := hx.doc.filterInput; in != nil && opts.target == hx.doc.searchList {
		hx.lastVals[in] = in.getAttr("value")
	}
	req := hxRequest{
		id:      uuid.NewString(),
		method:  method,
		path:    path,
		target:  opts.target,
		values:  opts.values,
		pushURL: opts.pushURL,
	}
	hx.log.Debug("hx request", "id", req.id, "method", method, "path", path, "target", opts.target.id)
	b, timeout := hx.backend, hx.timeout
	hx.queue.push(func() tea.Msg {
		ctx, cancel := context.WithTimeout(withRequestID(context.Background(), req.id), timeout)
		defer cancel()
		return fetchFragment(ctx, b, req)
	})
}

func fetchFragment(ctx context.Context, b backend, req hxRequest) tea.Msg {
	switch {
	case req.method == "POST" && req.path == searchURL:
		notes, err := b.Search(ctx, req.values["query"])
		if err != nil {
			return hxErrorMsg{req: req, err: err}
		}
		return hxResponseMsg{req: req, fragment: noteListPartial(notes)}
	case req.method == "GET":
		stem, ok := stemFromURL(req.path)
		if !ok {
			return hxErrorMsg{req: req, err: fmt.Errorf("%s: %w", req.path, errNotFound)}
		}
		v, err := b.Note(ctx, stem)
		if err != nil {
			return hxErrorMsg{req: req, err: err}
		}
		return hxResponseMsg{req: req, fragment: noteContentPartial(v)}
	}
	return hxErrorMsg{req: req, err: &statusError{code: http.StatusMethodNotAllowed}}
}

// handleResponse swaps a fragment into its target. For pushed requests the
// page being left is snapshotted first and the new location pushed after
// the swap.
func (hx *hxClient) handleResponse(msg hxResponseMsg) {
	req := msg.req
	hx.log.Debug("hx response", "id", req.id, "path", req.path)
	if req.pushURL != "" {
		hx.saveHistory()
	}
	req.target.replaceChildren(msg.fragment...)
	hx.process(req.target)
	if req.pushURL != "" {
		hx.hist.pushState(req.pushURL)
		hx.doc.body.dispatch(domEvent{typ: evPushedIntoHistory, detail: req.target})
	}
	hx.doc.body.dispatch(domEvent{typ: evAfterSettle, detail: req.target})
}

// handleError announces a failed request. Nothing is swapped.
func (hx *hxClient) handleError(msg hxErrorMsg) {
	typ := evSendError
	if isResponseError(msg.err) {
		typ = evResponseError
	}
	hx.log.Warn("hx request failed", "id", msg.req.id, "path", msg.req.path, "error", msg.err)
	hx.doc.body.dispatch(domEvent{typ: typ, detail: msg.req.target})
}

// ─── History cache ───────────────────────────────────────────────────────────

func (hx *hxClient) saveHistory() {
	hx.doc.body.dispatch(domEvent{typ: evBeforeHistorySave})
	hx.cachePut(hx.hist.location(), hx.doc.snapshot())
}

func (hx *hxClient) cachePut(url string, s snapshot) {
	for i, e := range hx.cache {
		if e.url == url {
			hx.cache = append(hx.cache[:i], hx.cache[i+1:]...)
			break
		}
	}
	hx.cache = append(hx.cache, historyEntry{url: url, snap: s})
	if n := len(hx.cache); n > historyCacheSize {
		hx.cache = hx.cache[n-historyCacheSize:]
	}
}

func (hx *hxClient) cacheGet(url string) (snapshot, bool) {
	for _, e := range hx.cache {
		if e.url == url {
			return e.snap, true
		}
	}
	return snapshot{}, false
}

// restoreHistory handles popstate: the cached page for the new location is
// restored, or the location is loaded from scratch when it is not cached.
func (hx *hxClient) restoreHistory() {
	url := hx.hist.location()
	s, ok := hx.cacheGet(url)
	if !ok {
		hx.log.Debug("history cache miss", "url", url)
		hx.loadPage()
		return
	}
	hx.doc.restore(s)
	hx.process(hx.doc.searchList)
	hx.process(hx.doc.noteContent)
	hx.log.Debug("history restored", "url", url)
	hx.doc.body.dispatch(domEvent{typ: evHistoryRestore, detail: hx.doc.body})
}

// ─── Page loads ──────────────────────────────────────────────────────────────

// loadPage renders the current location from scratch, as a full page load.
// Only the most recent load is applied.
func (hx *hxClient) loadPage() {
	hx.pageSeq++
	url, seq := hx.hist.location(), hx.pageSeq
	b, timeout := hx.backend, hx.timeout
	hx.log.Debug("page load", "url", url)
	hx.queue.push(func() tea.Msg {
		ctx, cancel := context.WithTimeout(withRequestID(context.Background(), uuid.NewString()), timeout)
		defer cancel()
		return fetchPage(ctx, b, url, seq)
	})
}

func fetchPage(ctx context.Context, b backend, url string, seq int) tea.Msg {
	msg := pageLoadedMsg{url: url, seq: seq}
	notes, err := b.Search(ctx, "")
	if err != nil {
		msg.err = fmt.Errorf("listing notes: %w", err)
	} else {
		msg.list = noteListPartial(notes)
	}
	stem, ok := stemFromURL(url)
	if !ok {
		return msg
	}
	v, err := b.Note(ctx, stem)
	if err != nil {
		msg.content = errorPartial(noteErrorText)
		if msg.err == nil {
			msg.err = fmt.Errorf("loading %s: %w", stem, err)
		}
		return msg
	}
	msg.content = noteContentPartial(v)
	return msg
}

// handlePage replaces the whole page and fires DOMContentLoaded. Body state
// such as focus mode does not survive a page load; the history cache does.
func (hx *hxClient) handlePage(msg pageLoadedMsg) {
	if msg.seq != hx.pageSeq {
		return
	}
	d := hx.doc
	d.title = appTitle
	setClassNames(d.body, nil)
	d.body.styles = make(map[string]string)
	setClassNames(d.sidebar, nil)
	setClassNames(d.noteContent, nil)
	d.filterClear.addClass(hiddenClass)
	d.setFilterValue("")
	delete(hx.lastVals, d.filterInput)
	d.active = nil
	d.listScroll = 0
	d.frames = nil
	d.searchList.replaceChildren(msg.list...)
	d.noteContent.replaceChildren(msg.content...)
	hx.process(d.body)
	if msg.err != nil {
		hx.log.Warn("page load incomplete", "url", msg.url, "error", msg.err)
	}
	d.body.dispatch(domEvent{typ: evDOMContentLoaded, detail: d.body})
}

// ─── Request ids ─────────────────────────────────────────────────────────────

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
