package main

import (
	"strconv"
	"strings"
)

// ─── Document ────────────────────────────────────────────────────────────────
//
// The document is the single shared mutable resource of the UI. Everything
// the view shows (pane visibility, the active list item, focus mode, the
// filter value, the title) is encoded here as classes, attributes and inline
// styles, and View only ever reads it. Handlers never keep their own copy of
// this state; they re-derive from the document and the location instead.

// Element ids of the fixed layout regions.
const (
	idSidebar     = "sidebar"
	idFilterInput = "filter-input"
	idFilterClear = "filter-clear"
	idSearchList  = "search-list"
	idNoteContent = "note-content"
)

// Event types dispatched through the document.
const (
	evClick             = "click"
	evInput             = "input"
	evSubmit            = "submit"
	evTransitionEnd     = "transitionend"
	evPopState          = "popstate"
	evDOMContentLoaded  = "DOMContentLoaded"
	evNotesUpdated      = "notes-updated"
	evBeforeHistorySave = "htmx:beforeHistorySave"
	evPushedIntoHistory = "htmx:pushedIntoHistory"
	evHistoryRestore    = "htmx:historyRestore"
	evAfterSettle       = "htmx:afterSettle"
	evSendError         = "htmx:sendError"
	evResponseError     = "htmx:responseError"
)

type domEvent struct {
	typ      string
	target   *element
	detail   *element // htmx lifecycle events: the swapped region
	property string   // transitionend: the transitioned property
}

type listener struct {
	fn func(domEvent)
}

type element struct {
	id        string
	tag       string
	text      string
	classes   map[string]bool
	attrs     map[string]string
	styles    map[string]string
	children  []*element
	parent    *element
	listeners map[string][]*listener
	version   int  // bumped on every replaceChildren
	hxBound   bool // hypermedia triggers attached

	// Layout measurements, written by the renderer after every frame.
	offsetWidth int
	marginLeft  int
	marginRight int
}

func newElement(tag string, classes ...string) *element {
	e := &element{
		tag:     tag,
		classes: make(map[string]bool),
		attrs:   make(map[string]string),
		styles:  make(map[string]string),
	}
	e.addClass(classes...)
	return e
}

func (e *element) withID(id string) *element {
	e.id = id
	return e
}

func (e *element) withAttr(key, value string) *element {
	e.attrs[key] = value
	return e
}

func (e *element) withText(text string) *element {
	e.text = text
	return e
}

func (e *element) append(children ...*element) *element {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.parent = e
		e.children = append(e.children, c)
	}
	return e
}

func (e *element) replaceChildren(children ...*element) {
	for _, c := range e.children {
		c.parent = nil
	}
	e.children = nil
	e.version++
	e.append(children...)
}

func (e *element) addClass(names ...string) {
	for _, n := range names {
		if n != "" {
			e.classes[n] = true
		}
	}
}

func (e *element) removeClass(names ...string) {
	for _, n := range names {
		delete(e.classes, n)
	}
}

func (e *element) toggleClass(name string, on bool) {
	if on {
		e.addClass(name)
	} else {
		e.removeClass(name)
	}
}

func (e *element) hasClass(name string) bool {
	return e != nil && e.classes[name]
}

func (e *element) setAttr(key, value string) {
	e.attrs[key] = value
}

func (e *element) attr(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.attrs[key]
	return v, ok
}

func (e *element) getAttr(key string) string {
	v, _ := e.attr(key)
	return v
}

func (e *element) removeAttr(key string) {
	delete(e.attrs, key)
}

// setStyle sets an inline style property; an empty value removes it.
func (e *element) setStyle(prop, value string) {
	if value == "" {
		delete(e.styles, prop)
		return
	}
	e.styles[prop] = value
}

func (e *element) style(prop string) string {
	if e == nil {
		return ""
	}
	return e.styles[prop]
}

func (e *element) addEventListener(typ string, fn func(domEvent)) *listener {
	if e.listeners == nil {
		e.listeners = make(map[string][]*listener)
	}
	l := &listener{fn: fn}
	e.listeners[typ] = append(e.listeners[typ], l)
	return l
}

func (e *element) removeEventListener(typ string, l *listener) {
	ls := e.listeners[typ]
	for i, x := range ls {
		if x == l {
			e.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// dispatch delivers ev to e and then bubbles it up through e's ancestors.
// Listeners added or removed while an element is being notified take effect
// from the next dispatch.
func (e *element) dispatch(ev domEvent) {
	if e == nil {
		return
	}
	if ev.target == nil {
		ev.target = e
	}
	for cur := e; cur != nil; cur = cur.parent {
		ls := append([]*listener(nil), cur.listeners[ev.typ]...)
		for _, l := range ls {
			l.fn(ev)
		}
	}
}

// find returns the first descendant of e, depth-first, matching pred.
func (e *element) find(pred func(*element) bool) *element {
	if e == nil {
		return nil
	}
	for _, c := range e.children {
		if pred(c) {
			return c
		}
		if f := c.find(pred); f != nil {
			return f
		}
	}
	return nil
}

// findAll returns every descendant of e matching pred in document order.
func (e *element) findAll(pred func(*element) bool) []*element {
	if e == nil {
		return nil
	}
	var out []*element
	for _, c := range e.children {
		if pred(c) {
			out = append(out, c)
		}
		out = append(out, c.findAll(pred)...)
	}
	return out
}

// textContent concatenates the text of e and all of its descendants.
func (e *element) textContent() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.text)
	for _, c := range e.children {
		b.WriteString(c.textContent())
	}
	return b.String()
}

// clone deep-copies e. Listeners and hypermedia bindings are not copied, the
// same as cloneNode.
func (e *element) clone() *element {
	c := newElement(e.tag)
	c.id = e.id
	c.text = e.text
	for k := range e.classes {
		c.classes[k] = true
	}
	for k, v := range e.attrs {
		c.attrs[k] = v
	}
	for k, v := range e.styles {
		c.styles[k] = v
	}
	for _, child := range e.children {
		c.append(child.clone())
	}
	return c
}

func cloneAll(els []*element) []*element {
	out := make([]*element, len(els))
	for i, e := range els {
		out[i] = e.clone()
	}
	return out
}

func hasClassPred(name string) func(*element) bool {
	return func(e *element) bool { return e.classes[name] }
}

// cols formats a terminal column count as a style value.
func cols(n int) string {
	return strconv.Itoa(n) + "ch"
}

// parseCols is the inverse of cols.
func parseCols(v string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(v, "ch"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ─── document ────────────────────────────────────────────────────────────────

type document struct {
	title       string
	window      *element // popstate target; not part of the tree
	body        *element
	sidebar     *element
	filterInput *element
	filterClear *element
	searchList  *element
	noteContent *element
	active      *element // focused element; nil means the body

	innerWidth int // terminal columns
	listScroll int // first visible row of the search list
	listHeight int // visible rows of the search list

	frames []func()
}

// newDocument builds the fixed page skeleton: a sidebar with the filter input,
// its clear affordance and the search list, next to the note content pane.
func newDocument() *document {
	d := &document{title: appTitle, window: newElement("window")}
	d.filterInput = newElement("input").withID(idFilterInput).
		withAttr("name", "query").
		withAttr("hx-post", searchURL).
		withAttr("hx-trigger", "input changed delay:300ms, submit, notes-updated from:body").
		withAttr("hx-target", "#"+idSearchList)
	d.filterClear = newElement("button", "hidden").withID(idFilterClear).withAttr("type", "button")
	d.searchList = newElement("div").withID(idSearchList)
	d.sidebar = newElement("div").withID(idSidebar).append(d.filterInput, d.filterClear, d.searchList)
	d.noteContent = newElement("div").withID(idNoteContent)
	d.body = newElement("body").append(d.sidebar, d.noteContent)
	return d
}

// byID finds an element in the page by id.
func (d *document) byID(id string) *element {
	if d.body == nil {
		return nil
	}
	if d.body.id == id {
		return d.body
	}
	return d.body.find(func(e *element) bool { return e.id == id })
}

// noteItems returns the list items in rendered order.
func (d *document) noteItems() []*element {
	return d.searchList.findAll(hasClassPred("note-item"))
}

// activeItems returns every list item carrying the active marker.
func (d *document) activeItems() []*element {
	return d.searchList.findAll(func(e *element) bool {
		return e.classes["note-item"] && e.classes[activeNoteClass]
	})
}

// itemByStem finds the list item whose data-stem equals stem exactly.
func (d *document) itemByStem(stem string) *element {
	return d.searchList.find(func(e *element) bool {
		v, ok := e.attrs["data-stem"]
		return ok && e.classes["note-item"] && v == stem
	})
}

// heading is the first h2 inside the content pane, the title source.
func (d *document) heading() *element {
	return d.noteContent.find(func(e *element) bool { return e.tag == "h2" })
}

func (d *document) prose() *element {
	return d.noteContent.find(hasClassPred("prose"))
}

func (d *document) editButton() *element {
	return d.noteContent.find(func(e *element) bool { return e.attrs["aria-label"] == "Edit note" })
}

func (d *document) backButton() *element {
	return d.noteContent.find(func(e *element) bool { return e.attrs["aria-label"] == "Back to notes" })
}

func (d *document) filterValue() string {
	return d.filterInput.getAttr("value")
}

func (d *document) setFilterValue(v string) {
	if d.filterInput != nil {
		d.filterInput.setAttr("value", v)
	}
}

func (d *document) focus(e *element) {
	d.active = e
}

func (d *document) blur() {
	d.active = nil
}

// isTextEntry reports whether e swallows ordinary key presses.
func isTextEntry(e *element) bool {
	if e == nil {
		return false
	}
	switch e.tag {
	case "input", "textarea", "select":
		return true
	}
	return false
}

// click dispatches a click on e.
func (d *document) click(e *element) {
	if e == nil {
		return
	}
	e.dispatch(domEvent{typ: evClick, target: e})
}

// Search list rows: items render as title + snippet, separators as one rule.
const itemRows = 2

func listRows(e *element) int {
	if e.classes["separator"] {
		return 1
	}
	return itemRows
}

// rowOf returns the first row and height of a direct child of the search list.
func (d *document) rowOf(target *element) (top, rows int, ok bool) {
	for _, c := range d.searchList.children {
		if c == target {
			return top, listRows(c), true
		}
		top += listRows(c)
	}
	return 0, 0, false
}

// childAtRow maps a visible row of the search list back to its child.
func (d *document) childAtRow(row int) *element {
	top := 0
	for _, c := range d.searchList.children {
		h := listRows(c)
		if row >= top && row < top+h {
			return c
		}
		top += h
	}
	return nil
}

func (d *document) listRowCount() int {
	n := 0
	for _, c := range d.searchList.children {
		n += listRows(c)
	}
	return n
}

// scrollIntoView scrolls the search list the minimum amount needed to show e
// (block: nearest). The page itself never scrolls.
func (d *document) scrollIntoView(e *element) {
	top, rows, ok := d.rowOf(e)
	if !ok || d.listHeight <= 0 {
		return
	}
	switch {
	case top < d.listScroll:
		d.listScroll = top
	case top+rows > d.listScroll+d.listHeight:
		d.listScroll = top + rows - d.listHeight
	}
}

// clampListScroll keeps the scroll offset inside the list after it changes size.
func (d *document) clampListScroll() {
	maxScroll := d.listRowCount() - d.listHeight
	if maxScroll < 0 {
		maxScroll = 0
	}
	if d.listScroll > maxScroll {
		d.listScroll = maxScroll
	}
	if d.listScroll < 0 {
		d.listScroll = 0
	}
}

func (d *document) requestAnimationFrame(fn func()) {
	d.frames = append(d.frames, fn)
}

// runAnimationFrames runs the callbacks queued before this frame. Callbacks
// queued while running wait for the next frame.
func (d *document) runAnimationFrames() {
	frames := d.frames
	d.frames = nil
	for _, fn := range frames {
		fn()
	}
}

// ─── Snapshots ───────────────────────────────────────────────────────────────

// snapshot is what the history cache keeps per location: the page below the
// body, which includes pane classes and the list markers, but not the body's
// own classes.
type snapshot struct {
	title          string
	sidebarClasses []string
	contentClasses []string
	list           []*element
	content        []*element
	filter         string
	listScroll     int
}

func classNames(e *element) []string {
	var out []string
	for k := range e.classes {
		out = append(out, k)
	}
	return out
}

func setClassNames(e *element, names []string) {
	e.classes = make(map[string]bool, len(names))
	e.addClass(names...)
}

func (d *document) snapshot() snapshot {
	return snapshot{
		title:          d.title,
		sidebarClasses: classNames(d.sidebar),
		contentClasses: classNames(d.noteContent),
		list:           cloneAll(d.searchList.children),
		content:        cloneAll(d.noteContent.children),
		filter:         d.filterValue(),
		listScroll:     d.listScroll,
	}
}

func (d *document) restore(s snapshot) {
	d.title = s.title
	setClassNames(d.sidebar, s.sidebarClasses)
	setClassNames(d.noteContent, s.contentClasses)
	d.searchList.replaceChildren(cloneAll(s.list)...)
	d.noteContent.replaceChildren(cloneAll(s.content)...)
	d.setFilterValue(s.filter)
	d.listScroll = s.listScroll
	d.active = nil
}
