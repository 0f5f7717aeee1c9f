package main

// ─── Event routing ───────────────────────────────────────────────────────────
//
// bind subscribes the controller to the document the way a page script does
// at load time. Handlers run to completion inside one Update call; the only
// asynchronous work they start is fragment requests and history traversal.

const noteErrorText = "note could not be loaded"

func (c *viewController) bind() {
	d := c.doc
	d.body.addEventListener(evDOMContentLoaded, func(domEvent) { c.onReady() })
	d.window.addEventListener(evPopState, func(domEvent) { c.onPopState() })
	d.body.addEventListener(evBeforeHistorySave, func(domEvent) { c.onBeforeHistorySave() })
	d.body.addEventListener(evPushedIntoHistory, func(domEvent) { c.hasAppHistory = true })
	d.body.addEventListener(evHistoryRestore, func(domEvent) { c.onHistoryRestore() })
	d.body.addEventListener(evAfterSettle, func(ev domEvent) { c.onAfterSettle(ev.detail) })
	d.body.addEventListener(evSendError, func(ev domEvent) { c.onRequestError(ev.detail) })
	d.body.addEventListener(evResponseError, func(ev domEvent) { c.onRequestError(ev.detail) })
	d.body.addEventListener(evClick, func(ev domEvent) { c.onClick(ev.target) })

	if d.filterInput != nil && d.filterClear != nil {
		d.filterInput.addEventListener(evInput, func(domEvent) { c.onFilterInput() })
		d.filterClear.addEventListener(evClick, func(domEvent) { c.clearFilter() })
	}
}

func (c *viewController) onReady() {
	c.pageLoaded()
	c.syncView(true)
}

// onPopState reloads the content for the location traversed to and
// reconciles straight away against whatever the pane currently holds; the
// reconciliation runs again when the fresh content settles.
func (c *viewController) onPopState() {
	if stem, ok := c.currentStem(); ok && c.doc.noteContent != nil {
		c.hx.ajax("GET", fragmentURL(stem), ajaxOptions{target: c.doc.noteContent})
	}
	c.syncView(true)
}

// onBeforeHistorySave runs while the location still names the page being
// left. Only pane visibility is derived from it: the marker set by showNote
// for the incoming note must survive into the snapshot.
func (c *viewController) onBeforeHistorySave() {
	_, ok := c.currentStem()
	c.setPaneVisibility(ok)
}

func (c *viewController) onHistoryRestore() {
	c.syncView(true)
	in, clr := c.doc.filterInput, c.doc.filterClear
	if in == nil || clr == nil {
		return
	}
	value := c.doc.filterValue()
	clr.toggleClass(hiddenClass, value == "")
	c.hx.ajax("POST", searchURL, ajaxOptions{
		target: c.doc.searchList,
		values: map[string]string{"query": value},
	})
}

func (c *viewController) onAfterSettle(target *element) {
	if target == nil || target.id != idNoteContent {
		return
	}
	c.syncView(false)
}

func (c *viewController) onRequestError(target *element) {
	if target == nil || target.id != idNoteContent {
		return
	}
	c.log.Warn("note request failed", "location", c.nav.location())
	c.showNoteError(noteErrorText)
}

// onClick runs the inline action named by the clicked element's onclick
// attribute. Fragment requests for the same click are issued by the
// hypermedia layer.
func (c *viewController) onClick(target *element) {
	switch target.getAttr("onclick") {
	case "showNote":
		c.showNote(target)
	case "showList":
		c.showList()
	case "goBack":
		c.goBack()
	case "editNote":
		if c.edit != nil {
			c.edit(target.getAttr("data-stem"))
		}
	}
}

func (c *viewController) onFilterInput() {
	c.doc.filterClear.toggleClass(hiddenClass, c.doc.filterValue() == "")
}

func (c *viewController) clearFilter() {
	c.doc.setFilterValue("")
	c.hx.ajax("POST", searchURL, ajaxOptions{
		target: c.doc.searchList,
		values: map[string]string{"query": ""},
	})
	c.doc.filterClear.addClass(hiddenClass)
}

// onKeyDown handles a key press and reports whether it was consumed. Keys
// are ignored while a text-entry control has focus, except Escape, which
// first leaves focus mode and otherwise releases the filter input.
func (c *viewController) onKeyDown(key string) bool {
	if key == "esc" {
		if c.focusMode() {
			c.setFocus(false)
			return true
		}
		if c.doc.active != nil && c.doc.active == c.doc.filterInput {
			c.doc.blur()
			return true
		}
	}
	if isTextEntry(c.doc.active) {
		return false
	}
	switch key {
	case "e":
		c.doc.click(c.doc.editButton())
	case "f":
		c.toggleFocus()
	case "s":
		if c.doc.filterInput != nil {
			c.doc.focus(c.doc.filterInput)
		}
	case "j":
		c.moveActive(1)
	case "k":
		c.moveActive(-1)
	default:
		return false
	}
	return true
}

// moveActive clicks the item delta places from the active one. From no
// active item, j starts at the top. There is no wraparound.
func (c *viewController) moveActive(delta int) {
	items := c.doc.noteItems()
	idx := -1
	for i, it := range items {
		if it.hasClass(activeNoteClass) {
			idx = i
			break
		}
	}
	next := idx + delta
	if next < 0 || next >= len(items) {
		return
	}
	c.doc.click(items[next])
	c.doc.scrollIntoView(items[next])
}
