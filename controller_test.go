package main

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"testing"
)

// recordingRequester stands in for the hypermedia layer in controller unit
// tests.
type recordingRequester struct {
	calls []string
}

func (r *recordingRequester) ajax(method, path string, opts ajaxOptions) {
	r.calls = append(r.calls, method+" "+path+" "+opts.values["query"])
}

func (r *recordingRequester) trigger(*element) {}

// viewState summarizes everything syncView derives.
func viewState(d *document) string {
	var active []string
	for _, e := range d.activeItems() {
		active = append(active, e.getAttr("data-stem"))
	}
	side, content := classNames(d.sidebar), classNames(d.noteContent)
	sort.Strings(side)
	sort.Strings(content)
	return fmt.Sprintf("active=%v sidebar=%v content=%v title=%q scroll=%d",
		active, side, content, d.title, d.listScroll)
}

func TestSyncViewMarksDecodedStem(t *testing.T) {
	p := newPage(t, testNotes(), "/note/ideas%2F2024")

	if got := p.activeStems(); !reflect.DeepEqual(got, []string{"ideas/2024"}) {
		t.Fatalf("active = %v, want [ideas/2024]", got)
	}
	if p.doc.title != "Ideas Log – weave" {
		t.Errorf("title = %q, want %q", p.doc.title, "Ideas Log – weave")
	}
	if p.listVisible() {
		t.Error("content pane should be shown for a note location")
	}
}

func TestSyncViewIsIdempotent(t *testing.T) {
	p := newPage(t, testNotes(), "/note/beta")
	p.ctrl.syncView(true)
	once := viewState(p.doc)
	p.ctrl.syncView(true)
	if twice := viewState(p.doc); twice != once {
		t.Errorf("second sync changed state:\n got %s\nwant %s", twice, once)
	}
}

func TestSyncViewClearsStrayMarkers(t *testing.T) {
	p := newPage(t, testNotes(), "/note/beta")
	for _, item := range p.doc.noteItems() {
		item.addClass(activeNoteClass)
	}
	p.ctrl.syncView(false)
	if got := p.activeStems(); !reflect.DeepEqual(got, []string{"beta"}) {
		t.Errorf("active = %v, want [beta]", got)
	}
}

func TestSyncViewAtRootShowsList(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	items := p.doc.noteItems()
	items[0].addClass(activeNoteClass)
	items[2].addClass(activeNoteClass)
	p.doc.sidebar.addClass(sidebarHidden)

	p.ctrl.syncView(true)

	if got := p.activeStems(); len(got) != 0 {
		t.Errorf("active = %v, want none", got)
	}
	if !p.listVisible() {
		t.Error("list pane should be visible at the root")
	}
	if p.doc.title != appTitle {
		t.Errorf("title = %q, want %q", p.doc.title, appTitle)
	}
}

func TestSyncViewMatchesStemExactly(t *testing.T) {
	p := newPage(t, testNotes(), "/note/Alpha")
	if got := p.activeStems(); len(got) != 0 {
		t.Errorf("active = %v, want none for a case-mismatched stem", got)
	}

	p = newPage(t, testNotes(), "/note/ideas")
	if got := p.activeStems(); len(got) != 0 {
		t.Errorf("active = %v, want none for a prefix of a stem", got)
	}
}

func TestSyncViewMissingNoteIsQuiet(t *testing.T) {
	p := newPage(t, testNotes(), "/note/deleted")
	if got := p.activeStems(); len(got) != 0 {
		t.Errorf("active = %v, want none", got)
	}
	if p.doc.noteContent.find(hasClassPred("note-error")) == nil {
		t.Error("missing note should show the error placeholder")
	}
	if want := noteErrorText + titleSeparator + appTitle; p.doc.title != want {
		t.Errorf("title = %q, want %q", p.doc.title, want)
	}
}

func TestControllerToleratesMissingRegions(t *testing.T) {
	q := &taskQueue{}
	doc := newDocument()
	doc.sidebar, doc.noteContent, doc.filterInput, doc.filterClear = nil, nil, nil, nil
	hist := newBrowserHistory("/note/alpha", q)
	r := &recordingRequester{}
	c := newViewController(doc, hist, r, defaultBreakpoint, nil)

	c.syncView(true)
	c.showNote(nil)
	c.showList()
	c.showNoteError("boom")
	c.onPopState()
	c.onBeforeHistorySave()
	c.onHistoryRestore()
	c.onKeyDown("s")
	c.onKeyDown("e")
	c.onKeyDown("j")

	if len(r.calls) != 0 {
		t.Errorf("requests = %v, want none without a content pane or filter", r.calls)
	}
	if doc.title != appTitle {
		t.Errorf("title = %q, want %q", doc.title, appTitle)
	}
}

func TestShowNoteMarksBeforeResponse(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	beta := p.doc.itemByStem("beta")
	p.doc.click(beta) // not settled: the request is still in flight

	if got := p.activeStems(); !reflect.DeepEqual(got, []string{"beta"}) {
		t.Fatalf("active = %v, want [beta] before the response", got)
	}
	if beta.style("position") != "relative" {
		t.Error("clicked item should get the transitional position hint")
	}
	if p.listVisible() {
		t.Error("showNote should switch to the content pane immediately")
	}
	if p.hist.location() != "/" {
		t.Errorf("location = %q before the response, want /", p.hist.location())
	}

	p.settle()
	if p.hist.location() != "/note/beta" {
		t.Errorf("location = %q, want /note/beta", p.hist.location())
	}
	if p.doc.title != "Beta – weave" {
		t.Errorf("title = %q, want %q", p.doc.title, "Beta – weave")
	}
}

func TestBeforeHistorySaveKeepsOptimisticMarker(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	p.click(p.doc.itemByStem("alpha"))
	p.click(p.doc.itemByStem("beta"))

	snap, ok := p.hx.cacheGet("/note/alpha")
	if !ok {
		t.Fatal("page left for beta was not cached")
	}
	var active []string
	for _, e := range snap.list {
		if e.hasClass(activeNoteClass) {
			active = append(active, e.getAttr("data-stem"))
		}
	}
	if !reflect.DeepEqual(active, []string{"beta"}) {
		t.Errorf("snapshot active = %v, want [beta]", active)
	}
}

func TestNavigateWithJK(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	p.doc.listHeight = 2
	p.doc.listScroll = 4

	if !p.key("j") {
		t.Fatal("j should be consumed")
	}
	if got := p.activeStems(); !reflect.DeepEqual(got, []string{"alpha"}) {
		t.Fatalf("after j: active = %v, want [alpha]", got)
	}
	if p.doc.listScroll != 0 {
		t.Errorf("listScroll = %d, want 0 after scrolling the first item into view", p.doc.listScroll)
	}
	if p.hist.location() != "/note/alpha" {
		t.Errorf("location = %q, want /note/alpha", p.hist.location())
	}

	p.key("j")
	p.key("j")
	p.key("j")
	if got := p.activeStems(); !reflect.DeepEqual(got, []string{"zeta"}) {
		t.Fatalf("active = %v, want [zeta]", got)
	}
	if p.doc.listScroll != 6 {
		t.Errorf("listScroll = %d, want 6 for the last item", p.doc.listScroll)
	}

	histLen := p.hist.length()
	p.key("j")
	if len(p.queue.cmds) != 0 || p.hist.length() != histLen {
		t.Error("j on the last item should not issue anything")
	}
	if got := p.activeStems(); !reflect.DeepEqual(got, []string{"zeta"}) {
		t.Errorf("active = %v after j at the end, want [zeta]", got)
	}

	p.key("k")
	if got := p.activeStems(); !reflect.DeepEqual(got, []string{"ideas/2024"}) {
		t.Errorf("after k: active = %v, want [ideas/2024]", got)
	}
}

func TestKAtTopIsNoop(t *testing.T) {
	p := newPage(t, testNotes(), "/note/alpha")
	p.key("k")
	if p.hist.location() != "/note/alpha" {
		t.Errorf("location = %q, want /note/alpha", p.hist.location())
	}
}

func TestKWithNoActiveItemIsNoop(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	p.key("k")
	if got := p.activeStems(); len(got) != 0 {
		t.Errorf("active = %v, want none", got)
	}
}

func TestContentFetchFailureShowsPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"send error", errors.New("connection refused")},
		{"response error", &statusError{code: http.StatusInternalServerError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testNotes()
			b.fail["beta"] = tt.err
			p := newPage(t, b, "/")
			p.click(p.doc.itemByStem("alpha"))
			listBefore := len(p.doc.noteItems())

			p.click(p.doc.itemByStem("beta"))

			if p.doc.noteContent.find(hasClassPred("note-error")) == nil {
				t.Fatal("content pane should show the error placeholder")
			}
			if got := p.doc.noteContent.find(hasClassPred("note-error")).text; got != noteErrorText {
				t.Errorf("error text = %q, want %q", got, noteErrorText)
			}
			p.ctrl.syncView(false)
			if want := noteErrorText + titleSeparator + appTitle; p.doc.title != want {
				t.Errorf("title = %q, want %q", p.doc.title, want)
			}
			if len(p.doc.noteItems()) != listBefore {
				t.Error("list should be unaffected by a content failure")
			}
			if p.hist.location() != "/note/alpha" {
				t.Errorf("location = %q, want /note/alpha (failed loads are not pushed)", p.hist.location())
			}

			p.click(p.doc.backButton())
			if p.hist.location() != "/" {
				t.Errorf("back: location = %q, want /", p.hist.location())
			}
			if !p.listVisible() {
				t.Error("back should show the list")
			}
		})
	}
}

func TestFilterFailureDoesNotTouchContent(t *testing.T) {
	p := newPage(t, testNotes(), "/note/alpha")
	p.hx.handleError(hxErrorMsg{req: hxRequest{target: p.doc.searchList}, err: errors.New("offline")})
	if p.doc.noteContent.find(hasClassPred("note-error")) != nil {
		t.Error("search failure should not replace the content pane")
	}
}

func TestGoBackEnteredOnNoteLoadsRoot(t *testing.T) {
	p := newPage(t, testNotes(), "/note/alpha")
	if p.ctrl.hasAppHistory {
		t.Fatal("hasAppHistory should start false away from the root")
	}
	p.click(p.doc.backButton())
	if p.hist.location() != "/" {
		t.Errorf("location = %q, want /", p.hist.location())
	}
	if p.hist.length() != 2 {
		t.Errorf("history length = %d, want 2 (root assigned, not traversed)", p.hist.length())
	}
	if !p.listVisible() {
		t.Error("list should be visible after going back")
	}
}

func TestGoBackAfterPushUsesHistory(t *testing.T) {
	p := newPage(t, testNotes(), "/note/alpha")
	p.click(p.doc.itemByStem("beta"))
	if !p.ctrl.hasAppHistory {
		t.Fatal("a pushed location should set hasAppHistory")
	}
	p.click(p.doc.backButton())
	if p.hist.location() != "/note/alpha" {
		t.Errorf("location = %q, want /note/alpha", p.hist.location())
	}
	if p.hist.length() != 2 {
		t.Errorf("history length = %d, want 2", p.hist.length())
	}
}

func TestPopStateRefetchesContent(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	p.click(p.doc.itemByStem("alpha"))
	p.click(p.doc.itemByStem("beta"))

	p.b.notes["alpha"] = noteView{Stem: "alpha", Title: "Alpha Revised", Body: "Changed."}
	p.hist.back()
	p.settle()

	if p.hist.location() != "/note/alpha" {
		t.Fatalf("location = %q, want /note/alpha", p.hist.location())
	}
	if p.doc.title != "Alpha Revised – weave" {
		t.Errorf("title = %q, want the refetched heading", p.doc.title)
	}
	if got := p.activeStems(); !reflect.DeepEqual(got, []string{"alpha"}) {
		t.Errorf("active = %v, want [alpha]", got)
	}

	p.hist.forward()
	p.settle()
	if p.hist.location() != "/note/beta" {
		t.Errorf("forward: location = %q, want /note/beta", p.hist.location())
	}
}

func TestHistoryRestoreReissuesFilter(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	p.doc.setFilterValue("Al")
	p.doc.filterInput.dispatch(domEvent{typ: evInput})
	p.settle()
	if n := len(p.doc.noteItems()); n != 1 {
		t.Fatalf("filtered list has %d items, want 1", n)
	}
	p.click(p.doc.itemByStem("alpha"))

	p.doc.setFilterValue("")
	p.b.searches = nil
	p.hist.back()
	p.settle()

	if p.doc.filterValue() != "Al" {
		t.Errorf("filter = %q, want restored %q", p.doc.filterValue(), "Al")
	}
	if !reflect.DeepEqual(p.b.searches, []string{"Al"}) {
		t.Errorf("searches = %v, want [Al]", p.b.searches)
	}
	if p.doc.filterClear.hasClass(hiddenClass) {
		t.Error("clear affordance should be visible for a restored filter")
	}
	if !p.listVisible() {
		t.Error("list should be visible at the restored root")
	}
}

func TestFilterInputDebounces(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	p.b.searches = nil

	p.doc.setFilterValue("a")
	p.doc.filterInput.dispatch(domEvent{typ: evInput})
	p.doc.setFilterValue("ze")
	p.doc.filterInput.dispatch(domEvent{typ: evInput})
	p.settle()

	if !reflect.DeepEqual(p.b.searches, []string{"ze"}) {
		t.Errorf("searches = %v, want only the last value", p.b.searches)
	}
	if p.doc.filterClear.hasClass(hiddenClass) {
		t.Error("clear affordance should show for a non-empty filter")
	}
}

func TestClearFilter(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	p.doc.setFilterValue("beta")
	p.doc.filterInput.dispatch(domEvent{typ: evInput})
	p.settle()
	p.b.searches = nil

	p.click(p.doc.filterClear)

	if p.doc.filterValue() != "" {
		t.Errorf("filter = %q, want empty", p.doc.filterValue())
	}
	if !p.doc.filterClear.hasClass(hiddenClass) {
		t.Error("clear affordance should be hidden")
	}
	if !reflect.DeepEqual(p.b.searches, []string{""}) {
		t.Errorf("searches = %v, want one empty query", p.b.searches)
	}
	if n := len(p.doc.noteItems()); n != 4 {
		t.Errorf("list has %d items, want 4", n)
	}
}

func TestFilterRetypedAfterClear(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	p.doc.setFilterValue("b")
	p.doc.filterInput.dispatch(domEvent{typ: evInput})
	p.settle()
	p.click(p.doc.filterClear)
	p.b.searches = nil

	p.doc.setFilterValue("b")
	p.doc.filterInput.dispatch(domEvent{typ: evInput})
	p.settle()

	if !reflect.DeepEqual(p.b.searches, []string{"b"}) {
		t.Errorf("searches = %v, want [b]", p.b.searches)
	}
	if n := len(p.doc.noteItems()); n != 1 {
		t.Errorf("list has %d items, want 1", n)
	}
}

func TestFilterRetypedAfterHistoryRestore(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	p.doc.setFilterValue("Al")
	p.doc.filterInput.dispatch(domEvent{typ: evInput})
	p.settle()
	p.click(p.doc.itemByStem("alpha"))

	p.doc.setFilterValue("Be")
	p.doc.filterInput.dispatch(domEvent{typ: evInput})
	p.settle()
	p.hist.back()
	p.settle()
	if p.doc.filterValue() != "Al" {
		t.Fatalf("filter = %q, want restored %q", p.doc.filterValue(), "Al")
	}
	p.b.searches = nil

	p.doc.setFilterValue("Be")
	p.doc.filterInput.dispatch(domEvent{typ: evInput})
	p.settle()

	if !reflect.DeepEqual(p.b.searches, []string{"Be"}) {
		t.Errorf("searches = %v, want [Be]", p.b.searches)
	}
}

func TestKeysIgnoredInTextEntry(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	if !p.key("s") {
		t.Fatal("s should be consumed")
	}
	if p.doc.active != p.doc.filterInput {
		t.Fatal("s should focus the filter")
	}
	for _, k := range []string{"j", "k", "f", "e", "s"} {
		if p.key(k) {
			t.Errorf("%s was consumed while typing", k)
		}
	}
	if got := p.activeStems(); len(got) != 0 {
		t.Errorf("active = %v, want none", got)
	}
	if !p.key("esc") {
		t.Error("esc should release the filter")
	}
	if p.doc.active != nil {
		t.Error("filter should be blurred")
	}
}

func TestEditKey(t *testing.T) {
	p := newPage(t, testNotes(), "/note/zeta")
	p.key("e")
	if !reflect.DeepEqual(p.edits, []string{"zeta"}) {
		t.Errorf("edits = %v, want [zeta]", p.edits)
	}

	p = newPage(t, testNotes(), "/note/alpha")
	p.key("e")
	if len(p.edits) != 0 {
		t.Errorf("edits = %v, want none for a read-only note", p.edits)
	}
}

func TestTagLinkFiltersList(t *testing.T) {
	b := testNotes()
	p := newPage(t, b, "/note/ideas%2F2024")
	tag := p.doc.noteContent.find(hasClassPred("tag"))
	if tag == nil {
		t.Fatal("tag link missing")
	}
	b.searches = nil
	p.click(tag)
	if !reflect.DeepEqual(b.searches, []string{"#ideas"}) {
		t.Errorf("searches = %v, want [#ideas]", b.searches)
	}
	if p.hist.location() != "/note/ideas%2F2024" {
		t.Errorf("location = %q, tag search should not navigate", p.hist.location())
	}
}

func TestStalePageLoadDropped(t *testing.T) {
	p := newPage(t, testNotes(), "/")
	p.hist.pushState("/note/alpha")
	p.hx.loadPage()
	older := p.queue.cmds
	p.queue.cmds = nil
	p.hist.pushState("/note/beta")
	p.hx.loadPage()
	newer := p.queue.cmds
	p.queue.cmds = nil

	for _, cmd := range newer {
		p.handle(cmd())
	}
	for _, cmd := range older {
		p.handle(cmd())
	}
	p.settle()
	if p.doc.title != "Beta – weave" {
		t.Errorf("title = %q, stale page load was applied", p.doc.title)
	}
}

func TestNotesUpdatedRefreshesList(t *testing.T) {
	b := testNotes()
	p := newPage(t, b, "/")
	b.notes["gamma"] = noteView{Stem: "gamma", Title: "Gamma"}
	p.doc.body.dispatch(domEvent{typ: evNotesUpdated})
	p.settle()
	if p.doc.itemByStem("gamma") == nil {
		t.Error("notes-updated should refresh the list")
	}
	if !strings.Contains(viewState(p.doc), "active=[]") {
		t.Errorf("unexpected state %s", viewState(p.doc))
	}
}
