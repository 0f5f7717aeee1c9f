package main

const (
	focusModeClass = "focus-mode"
	focusWidthVar  = "--focus-prose-width"
)

func (c *viewController) focusMode() bool {
	return c.doc.body.hasClass(focusModeClass)
}

// toggleFocus switches between the two-pane layout and focus mode, where the
// sidebar collapses and the prose keeps its width, centred. It does nothing
// on narrow terminals.
func (c *viewController) toggleFocus() {
	if c.doc.innerWidth < c.breakpoint {
		return
	}
	c.setFocus(!c.focusMode())
}

func (c *viewController) setFocus(on bool) {
	body := c.doc.body
	if body == nil || on == c.focusMode() {
		return
	}
	prose := c.doc.prose()
	if on {
		if prose != nil {
			body.setStyle(focusWidthVar, cols(prose.offsetWidth))
		}
		body.addClass(focusModeClass)
		c.log.Debug("focus mode on")
		return
	}

	// Pin the prose where it is so it does not reflow while the sidebar
	// expands, then release the margins next frame and the width once the
	// sidebar has finished.
	if prose != nil {
		prose.setStyle("max-width", cols(prose.offsetWidth))
		prose.setStyle("margin-left", cols(prose.marginLeft))
		prose.setStyle("margin-right", cols(prose.marginRight))
	}
	body.removeClass(focusModeClass)
	c.log.Debug("focus mode off")
	if prose == nil {
		return
	}
	c.doc.requestAnimationFrame(func() {
		prose.setStyle("margin-left", "")
		prose.setStyle("margin-right", "")
	})
	sidebar := c.doc.sidebar
	if sidebar == nil {
		prose.setStyle("max-width", "")
		return
	}
	var l *listener
	l = sidebar.addEventListener(evTransitionEnd, func(ev domEvent) {
		if ev.property != "width" {
			return
		}
		prose.setStyle("max-width", "")
		if !body.hasClass(focusModeClass) {
			body.setStyle(focusWidthVar, "")
		}
		sidebar.removeEventListener(evTransitionEnd, l)
	})
}
