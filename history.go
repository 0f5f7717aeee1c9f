package main

import tea "github.com/charmbracelet/bubbletea"

// taskQueue collects the commands queued by imperative calls (fragment
// requests, history traversals, navigations) while a message is handled. The
// model drains it once at the end of Update, so handlers never return work
// themselves and can be written as plain state mutations.
type taskQueue struct {
	cmds []tea.Cmd
}

func (q *taskQueue) push(cmd tea.Cmd) {
	if cmd != nil {
		q.cmds = append(q.cmds, cmd)
	}
}

func (q *taskQueue) drain() tea.Cmd {
	cmds := q.cmds
	q.cmds = nil
	return tea.Batch(cmds...)
}

// browserHistory is the session history: a list of locations and a cursor.
// Nothing about it is persisted.
type browserHistory struct {
	entries []string
	index   int
	queue   *taskQueue
}

func newBrowserHistory(url string, q *taskQueue) *browserHistory {
	return &browserHistory{entries: []string{url}, queue: q}
}

func (h *browserHistory) location() string {
	return h.entries[h.index]
}

func (h *browserHistory) length() int {
	return len(h.entries)
}

// pushState records url as the new current entry, dropping forward entries.
func (h *browserHistory) pushState(url string) {
	h.entries = append(h.entries[:h.index+1], url)
	h.index++
}

// back queues a traversal one entry back. Like the browser, traversal is
// asynchronous: popstate is delivered on a later turn of the loop.
func (h *browserHistory) back() {
	h.goDelta(-1)
}

func (h *browserHistory) forward() {
	h.goDelta(1)
}

func (h *browserHistory) goDelta(delta int) {
	h.queue.push(func() tea.Msg { return historyTraverseMsg{delta: delta} })
}

// traverse moves the cursor by delta. It reports false, leaving the cursor
// alone, when that would step outside the history.
func (h *browserHistory) traverse(delta int) (string, bool) {
	i := h.index + delta
	if i < 0 || i >= len(h.entries) {
		return h.location(), false
	}
	h.index = i
	return h.location(), true
}

// assign queues a full page navigation to url.
func (h *browserHistory) assign(url string) {
	h.queue.push(func() tea.Msg { return navigateMsg{url: url} })
}
