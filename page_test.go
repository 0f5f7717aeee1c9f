package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeBackend serves a fixed set of notes. Notes listed in fail answer with
// the given error instead of their content.
type fakeBackend struct {
	notes    map[string]noteView
	fail     map[string]error
	searches []string
}

func newFakeBackend(views ...noteView) *fakeBackend {
	b := &fakeBackend{notes: make(map[string]noteView), fail: make(map[string]error)}
	for _, v := range views {
		b.notes[v.Stem] = v
	}
	return b
}

func (b *fakeBackend) Note(_ context.Context, stem string) (noteView, error) {
	if err := b.fail[stem]; err != nil {
		return noteView{}, err
	}
	v, ok := b.notes[stem]
	if !ok {
		return noteView{}, fmt.Errorf("%s: %w", stem, errNotFound)
	}
	return v, nil
}

// Search matches titles by substring and lists results by stem.
func (b *fakeBackend) Search(_ context.Context, query string) ([]noteSummary, error) {
	b.searches = append(b.searches, query)
	var out []noteSummary
	for _, v := range b.notes {
		if query == "" || strings.Contains(strings.ToLower(v.Title), strings.ToLower(query)) {
			out = append(out, noteSummary{Stem: v.Stem, Title: v.Title, Snippet: "..."})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stem < out[j].Stem })
	return out, nil
}

func (b *fakeBackend) Source(_ context.Context, stem string) (string, error) {
	v, ok := b.notes[stem]
	if !ok {
		return "", errNotFound
	}
	return "# " + v.Title + "\n\n" + v.Body, nil
}

func (b *fakeBackend) Save(_ context.Context, stem, content string) error {
	v, ok := b.notes[stem]
	if !ok {
		return errNotFound
	}
	v.Body = content
	b.notes[stem] = v
	return nil
}

func testNotes() *fakeBackend {
	return newFakeBackend(
		noteView{Stem: "alpha", Title: "Alpha", Body: "First note."},
		noteView{Stem: "beta", Title: "Beta", Body: "Second note."},
		noteView{Stem: "ideas/2024", Title: "Ideas Log", Body: "Things to try.",
			Headings: []noteHeading{{Level: 2, Text: "Reading", Anchor: "reading"}},
			Tags:     []string{"ideas"}},
		noteView{Stem: "zeta", Title: "Zeta", Body: "Last note.", Editable: true},
	)
}

// page wires a document, history, hypermedia client and controller the way
// newModel does, and runs their queued work synchronously.
type page struct {
	t     *testing.T
	doc   *document
	hist  *browserHistory
	hx    *hxClient
	ctrl  *viewController
	queue *taskQueue
	b     *fakeBackend
	edits []string
}

const testWidth = 120

func newPage(t *testing.T, b *fakeBackend, url string) *page {
	t.Helper()
	p := &page{t: t, b: b, queue: &taskQueue{}}
	p.doc = newDocument()
	p.doc.innerWidth = testWidth
	p.doc.listHeight = 20
	p.hist = newBrowserHistory(url, p.queue)
	p.hx = newHxClient(p.doc, p.hist, b, p.queue, nil)
	p.ctrl = newViewController(p.doc, p.hist, p.hx, defaultBreakpoint, nil)
	p.ctrl.edit = func(stem string) { p.edits = append(p.edits, stem) }
	p.ctrl.bind()
	p.hx.loadPage()
	p.settle()
	return p
}

// settle runs queued commands, and whatever they queue in turn, until the
// queue is empty.
func (p *page) settle() {
	p.t.Helper()
	for range 100 {
		if len(p.queue.cmds) == 0 {
			return
		}
		cmds := p.queue.cmds
		p.queue.cmds = nil
		for _, cmd := range cmds {
			p.handle(cmd())
		}
	}
	p.t.Fatal("queue did not settle")
}

func (p *page) handle(msg tea.Msg) {
	switch msg := msg.(type) {
	case hxResponseMsg:
		p.hx.handleResponse(msg)
	case hxErrorMsg:
		p.hx.handleError(msg)
	case hxDelayMsg:
		p.hx.handleDelay(msg)
	case pageLoadedMsg:
		p.hx.handlePage(msg)
	case historyTraverseMsg:
		if _, ok := p.hist.traverse(msg.delta); ok {
			p.doc.window.dispatch(domEvent{typ: evPopState})
		}
	case navigateMsg:
		p.hist.pushState(msg.url)
		p.hx.loadPage()
	case nil:
	default:
		p.t.Fatalf("unexpected message %T", msg)
	}
}

func (p *page) key(k string) bool {
	p.t.Helper()
	ok := p.ctrl.onKeyDown(k)
	p.settle()
	return ok
}

func (p *page) click(e *element) {
	p.t.Helper()
	if e == nil {
		p.t.Fatal("click on missing element")
	}
	p.doc.click(e)
	p.settle()
}

func (p *page) activeStems() []string {
	var out []string
	for _, e := range p.doc.activeItems() {
		out = append(out, e.getAttr("data-stem"))
	}
	return out
}

func (p *page) listVisible() bool {
	return !p.doc.sidebar.hasClass(sidebarHidden) && !p.doc.noteContent.hasClass(contentVisible)
}
