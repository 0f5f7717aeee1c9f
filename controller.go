package main

import (
	"log/slog"
	"strings"
)

const (
	appTitle        = "weave"
	titleSeparator  = " – "
	activeNoteClass = "active-note"
	sidebarHidden   = "mobile-hidden"
	contentVisible  = "mobile-visible"
	hiddenClass     = "hidden"
)

// requester is the imperative side of the hypermedia layer.
type requester interface {
	ajax(method, path string, opts ajaxOptions)
	trigger(el *element)
}

// navigator is the slice of session history the controller needs.
type navigator interface {
	location() string
	back()
	assign(url string)
}

// viewController keeps the visible UI consistent with the current location.
// The only state it owns is hasAppHistory; everything else is read from the
// document and the location each time it is needed.
type viewController struct {
	doc        *document
	nav        navigator
	hx         requester
	breakpoint int
	log        *slog.Logger

	// hasAppHistory reports whether going back stays inside the app. It starts
	// true only when the page was loaded at the root and becomes true for good
	// once anything is pushed into history.
	hasAppHistory bool

	// edit opens the note with the given stem in an editor. Optional.
	edit func(stem string)
}

func newViewController(doc *document, nav navigator, hx requester, breakpoint int, log *slog.Logger) *viewController {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	c := &viewController{doc: doc, nav: nav, hx: hx, breakpoint: breakpoint, log: log}
	c.pageLoaded()
	return c
}

// pageLoaded resets per-page state the way a fresh document load does.
func (c *viewController) pageLoaded() {
	c.hasAppHistory = c.nav.location() == rootURL
}

func (c *viewController) currentStem() (string, bool) {
	return stemFromURL(c.nav.location())
}

func (c *viewController) setPaneVisibility(noteShown bool) {
	if c.doc.sidebar != nil {
		c.doc.sidebar.toggleClass(sidebarHidden, noteShown)
	}
	if c.doc.noteContent != nil {
		c.doc.noteContent.toggleClass(contentVisible, noteShown)
	}
}

func (c *viewController) clearActive() {
	for _, el := range c.doc.activeItems() {
		el.removeClass(activeNoteClass)
	}
}

// syncView derives pane visibility, the active list item and the title from
// the current location and document. With scroll set, the active item is
// scrolled into the nearest visible position of the list.
func (c *viewController) syncView(scroll bool) {
	stem, ok := c.currentStem()
	c.setPaneVisibility(ok)
	c.clearActive()
	if ok {
		if item := c.doc.itemByStem(stem); item != nil {
			item.addClass(activeNoteClass)
			if scroll {
				c.doc.scrollIntoView(item)
			}
		}
	}
	c.doc.title = documentTitle(c.doc.heading())
}

func documentTitle(h *element) string {
	text := strings.TrimSpace(h.textContent())
	if text == "" {
		return appTitle
	}
	return text + titleSeparator + appTitle
}

// showNote marks item active the moment it is clicked, before its content has
// arrived, and switches narrow layouts to the content pane.
func (c *viewController) showNote(item *element) {
	c.setPaneVisibility(true)
	if item == nil {
		return
	}
	c.clearActive()
	item.addClass(activeNoteClass)
	item.setStyle("position", "relative")
}

// showList brings the list pane forward on narrow layouts.
func (c *viewController) showList() {
	c.setPaneVisibility(false)
}

// goBack returns to the previous in-app location, or loads the list view
// when the page was entered directly on a note.
func (c *viewController) goBack() {
	if c.hasAppHistory {
		c.nav.back()
		return
	}
	c.nav.assign(rootURL)
}

// showNoteError replaces the content pane with a placeholder that keeps the
// way back to the list.
func (c *viewController) showNoteError(msg string) {
	if c.doc.noteContent == nil {
		return
	}
	c.doc.noteContent.replaceChildren(errorPartial(msg)...)
}
