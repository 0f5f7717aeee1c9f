package main

// ─── Messages ────────────────────────────────────────────────────────────────
//
// All messages are internal to the Update loop. Async tea.Cmd functions
// (in commands.go, hypermedia.go and history.go) produce these; Update
// handles them. Messages with an `id` field use generation counters to
// ignore stale timers.

// hxResponseMsg carries a fragment ready to be swapped into req.target.
type hxResponseMsg struct {
	req      hxRequest
	fragment []*element
}

// hxErrorMsg reports a fragment request that produced no content.
type hxErrorMsg struct {
	req hxRequest
	err error
}

// hxDelayMsg fires when a debounced trigger's delay has passed.
type hxDelayMsg struct {
	el  *element
	seq int
}

// pageLoadedMsg carries a full page for url. Only the load numbered seq is
// current; earlier loads are dropped.
type pageLoadedMsg struct {
	url     string
	seq     int
	list    []*element
	content []*element
	err     error
}

// historyTraverseMsg is delivered after history.back/forward.
type historyTraverseMsg struct {
	delta int
}

// navigateMsg asks for a full page navigation to url.
type navigateMsg struct {
	url string
}

// transitionFrameMsg advances the sidebar width transition.
type transitionFrameMsg struct {
	id int
}

type animationFrameMsg struct{}

// proseRenderedMsg delivers glamour-rendered markdown for the prose cache.
type proseRenderedMsg struct {
	key     string
	content string
}

// fileChangedMsg is sent by the fsnotify watcher after debounce.
type fileChangedMsg struct {
	stems []string
}

type editorDoneMsg struct {
	stem string
}

type editorLaunchedMsg struct{}

// configUpdatedMsg is sent after the setup wizard completes.
type configUpdatedMsg struct{}

// statusMsg shows text in the status bar.
type statusMsg struct {
	text string
}

type statusClearMsg struct {
	id int
}

type errMsg struct {
	err error
}

// editRequestMsg asks Update to open stem in the configured editor.
type editRequestMsg struct {
	stem string
}
