package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/fsnotify/fsnotify"
)

// ─── Key Map ─────────────────────────────────────────────────────────────────

type keyMap struct {
	Navigate   key.Binding
	Filter     key.Binding
	Focus      key.Binding
	Editor     key.Binding
	Back       key.Binding
	HistBack   key.Binding
	HistFwd    key.Binding
	ShowList   key.Binding
	ClearQuery key.Binding
	CopyURL    key.Binding
	Reload     key.Binding
	ScrollDown key.Binding
	ScrollUp   key.Binding
	Help       key.Binding
	Settings   key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

func newKeyMap(cfg config) keyMap {
	return keyMap{
		Navigate:   key.NewBinding(key.WithKeys("j", "k", "down", "up"), key.WithHelp("j/k", "next / prev note")),
		Filter:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "filter")),
		Focus:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus mode")),
		Editor:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", commandLabel(cfg.Editor))),
		Back:       key.NewBinding(key.WithKeys("b", "backspace"), key.WithHelp("b", "back to notes")),
		HistBack:   key.NewBinding(key.WithKeys("H"), key.WithHelp("H/L", "history back / forward")),
		HistFwd:    key.NewBinding(key.WithKeys("L")),
		ShowList:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane (narrow)")),
		ClearQuery: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filter")),
		CopyURL:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy link")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		ScrollDown: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "page down")),
		ScrollUp:   key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "page up")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Settings:   key.NewBinding(key.WithKeys(","), key.WithHelp(",", "settings")),
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Navigate, k.Filter, k.Focus, k.Editor, k.Back, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Notes
		{k.Navigate, k.Filter, k.ClearQuery, k.Editor, k.CopyURL, k.Reload},
		// View / app
		{k.Focus, k.Back, k.HistBack, k.ShowList, k.ScrollDown, k.ScrollUp, k.Help, k.Settings, k.Quit},
	}
}

// ─── Model ───────────────────────────────────────────────────────────────────

const (
	statusTimeout    = 3 * time.Second
	frameInterval    = 16 * time.Millisecond
	transitionFrames = 9
	proseCacheSize   = 64
)

type statusBarState struct {
	text    string
	id      int
	spinner spinner.Model
}

// sidebarAnim is the sidebar width transition between the two-pane layout
// and focus mode.
type sidebarAnim struct {
	id     int
	from   int
	to     int
	cur    int
	step   int
	active bool
}

type model struct {
	// Page
	doc   *document
	ctrl  *viewController
	hx    *hxClient
	hist  *browserHistory
	queue *taskQueue

	// Data
	backend backend
	nb      *notebook // nil when browsing a server
	cfg     config
	cfgPath string
	watcher *fsnotify.Watcher
	log     *slog.Logger
	demo    bool

	// Layout
	filter   textinput.Model
	viewport viewport.Model
	keys     keyMap
	help     help.Model
	width    int
	height   int
	ready    bool
	layout   layout
	anim     sidebarAnim
	focused  bool // focus mode as of the last layout pass
	frameDue bool

	// Content rendering
	glamourStyle string
	prose        map[string]string // proseKey → glamour output
	rendering    map[string]bool
	lastProse    string // rendering of lastText at some earlier width
	lastText     string
	body         string // viewport content
	contentKey   string
	contentSeen  int // noteContent.version shown in the viewport
	links        map[int]*element
	title        string

	status statusBarState
}

type modelOptions struct {
	cfg      config
	cfgPath  string
	backend  backend
	nb       *notebook
	watcher  *fsnotify.Watcher
	startURL string
	demo     bool
	log      *slog.Logger
}

func newModel(o modelOptions) model {
	log := o.log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	start := o.startURL
	if start == "" {
		start = rootURL
	}

	q := &taskQueue{}
	doc := newDocument()
	hist := newBrowserHistory(start, q)
	hx := newHxClient(doc, hist, o.backend, q, log)
	ctrl := newViewController(doc, hist, hx, o.cfg.Breakpoint, log)
	ctrl.edit = func(stem string) {
		q.push(func() tea.Msg { return editRequestMsg{stem: stem} })
	}
	ctrl.bind()

	h := help.New()
	h.ShortSeparator = " | "
	h.Styles.ShortKey = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(colorDim)
	h.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(colorDim)
	h.Styles.FullKey = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Width(10)
	h.Styles.FullDesc = lipgloss.NewStyle().Foreground(colorFull)
	h.Styles.FullSeparator = lipgloss.NewStyle()

	s := spinner.New()
	s.Spinner = spinner.Pulse
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "filter"
	ti.CharLimit = 120

	style := "dark"
	if !lipgloss.HasDarkBackground() {
		style = "light"
	}

	hx.loadPage()

	return model{
		doc:          doc,
		ctrl:         ctrl,
		hx:           hx,
		hist:         hist,
		queue:        q,
		backend:      o.backend,
		nb:           o.nb,
		cfg:          o.cfg,
		cfgPath:      o.cfgPath,
		watcher:      o.watcher,
		log:          log,
		demo:         o.demo,
		filter:       ti,
		viewport:     viewport.New(0, 0),
		keys:         newKeyMap(o.cfg),
		help:         h,
		glamourStyle: style,
		prose:        make(map[string]string),
		rendering:    make(map[string]bool),
		links:        make(map[int]*element),
		contentSeen:  -1,
		status:       statusBarState{spinner: s},
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.queue.drain(), tea.SetWindowTitle(appTitle)}
	if m.watcher != nil && m.nb != nil {
		cmds = append(cmds, watchNotebook(m.watcher, m.nb.dir, m.log))
	}
	return tea.Batch(cmds...)
}

// setStatus shows a transient message in the status bar with a spinner animation.
// If duration > 0, the message auto-clears after that time.
func (m *model) setStatus(text string, duration time.Duration) tea.Cmd {
	m.status.id++
	m.status.text = text
	id := m.status.id
	var cmds []tea.Cmd
	cmds = append(cmds, m.status.spinner.Tick)
	if duration > 0 {
		cmds = append(cmds, tea.Tick(duration, func(time.Time) tea.Msg {
			return statusClearMsg{id: id}
		}))
	}
	return tea.Batch(cmds...)
}

func (m *model) clearStatus() {
	m.status.text = ""
}

// shareURL is the address copied for a note: the server's when browsing
// remotely, the location otherwise.
func (m model) shareURL() string {
	loc := m.hist.location()
	if m.cfg.Server != "" {
		return strings.TrimRight(m.cfg.Server, "/") + loc
	}
	if stem, ok := stemFromURL(loc); ok && m.nb != nil {
		if p, ok := m.nb.filePath(stem); ok {
			return p
		}
	}
	return loc
}

// refreshNote re-fetches the open note when it is stem.
func (m *model) refreshNote(stem string) {
	if cur, ok := m.ctrl.currentStem(); ok && cur == stem {
		m.hx.ajax("GET", fragmentURL(stem), ajaxOptions{target: m.doc.noteContent})
	}
}

// openEditor opens stem in the configured editor: in place for local
// notebooks, through a temp copy for remote ones.
func (m model) openEditor(stem string) tea.Cmd {
	if len(m.cfg.Editor) == 0 {
		return m.setStatusCmd("No editor configured")
	}
	if fb, ok := m.backend.(fileBackend); ok {
		p, ok := fb.Path(stem)
		if !ok {
			return m.setStatusCmd("This note is read-only")
		}
		args := expandCommand(m.cfg.Editor, p)
		if effectiveEditorMode(m.cfg) == "foreground" {
			return runTerminalEditor(args, stem)
		}
		return runBackgroundEditor(args)
	}
	return editRemote(m.backend, m.cfg.Editor, stem)
}

func (m model) setStatusCmd(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

// ─── Key Handling ─────────────────────────────────────────────────────────────

// handleKeyMsg routes a key press. While the filter has focus keys edit the
// query; otherwise the page's keydown handler sees them first and the
// terminal-only bindings after.
func (m model) handleKeyMsg(msg tea.KeyMsg) (model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	// Help modal — swallow everything except ?, esc, q
	if m.help.ShowAll {
		switch {
		case key.Matches(msg, m.keys.Help) || msg.String() == "esc":
			m.help.ShowAll = false
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		return m, nil
	}

	if m.doc.active != nil && m.doc.active == m.doc.filterInput {
		return m.handleFilterKey(msg)
	}

	k := msg.String()
	switch k {
	case "down":
		k = "j"
	case "up":
		k = "k"
	}
	if m.ctrl.onKeyDown(k) {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Settings):
		m.help.ShowAll = false
		exe, err := os.Executable()
		if err != nil {
			return m, func() tea.Msg { return errMsg{fmt.Errorf("could not find executable: %w", err)} }
		}
		c := exec.Command(exe, "--config", m.cfgPath, "--setup")
		return m, tea.ExecProcess(c, func(err error) tea.Msg {
			if err != nil {
				return errMsg{fmt.Errorf("setup failed: %w", err)}
			}
			return configUpdatedMsg{}
		})
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
	case key.Matches(msg, m.keys.Back):
		m.doc.click(m.doc.backButton())
	case key.Matches(msg, m.keys.HistBack):
		m.hist.back()
	case key.Matches(msg, m.keys.HistFwd):
		m.hist.forward()
	case key.Matches(msg, m.keys.ShowList):
		if m.doc.sidebar.hasClass(sidebarHidden) {
			m.ctrl.showList()
		} else if _, ok := m.ctrl.currentStem(); ok {
			m.ctrl.setPaneVisibility(true)
		}
	case key.Matches(msg, m.keys.ClearQuery):
		if !m.doc.filterClear.hasClass(hiddenClass) {
			m.doc.click(m.doc.filterClear)
		}
	case key.Matches(msg, m.keys.CopyURL):
		return m, copyToClipboard(m.shareURL())
	case key.Matches(msg, m.keys.Reload):
		m.hx.loadPage()
	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
	}
	return m, nil
}

func (m model) handleFilterKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.ctrl.onKeyDown("esc")
		return m, nil
	case tea.KeyEnter:
		m.doc.filterInput.dispatch(domEvent{typ: evSubmit})
		m.doc.blur()
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		m.doc.blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if v := m.filter.Value(); v != m.doc.filterValue() {
		m.doc.setFilterValue(v)
		m.doc.filterInput.dispatch(domEvent{typ: evInput})
	}
	return m, cmd
}

// ─── Mouse ───────────────────────────────────────────────────────────────────

func (m model) handleMouseMsg(msg tea.MouseMsg) model {
	l := m.layout
	inSidebar := l.sidebarW > 0 && msg.X < l.sidebarW
	inContent := l.contentW > 0 && msg.X >= l.contentX

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		if msg.Action != tea.MouseActionPress {
			return m
		}
		delta := 3
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -3
		}
		switch {
		case inSidebar:
			m.doc.listScroll += delta
			m.doc.clampListScroll()
		case inContent && delta > 0:
			m.viewport.LineDown(delta)
		case inContent:
			m.viewport.LineUp(-delta)
		}
		return m
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m
		}
	default:
		return m
	}

	switch {
	case inSidebar:
		switch {
		case msg.Y == filterRow:
			if !m.doc.filterClear.hasClass(hiddenClass) && msg.X >= l.sidebarW-3 {
				m.doc.click(m.doc.filterClear)
			} else {
				m.doc.focus(m.doc.filterInput)
			}
		case msg.Y >= listTop && msg.Y < l.bodyH:
			el := m.doc.childAtRow(msg.Y - listTop + m.doc.listScroll)
			if el != nil && el.hasClass("note-item") {
				m.doc.blur()
				m.doc.click(el)
			}
		}
	case inContent:
		x := msg.X - l.contentX
		switch {
		case msg.Y == 0:
			if back := m.doc.backButton(); back != nil && x < 2 {
				m.doc.click(back)
			} else if edit := m.doc.editButton(); edit != nil && x >= l.contentW-4 {
				m.doc.click(edit)
			}
		case msg.Y >= contentTop && msg.Y < l.bodyH:
			line := msg.Y - contentTop + m.viewport.YOffset
			if el, ok := m.links[line]; ok {
				m.followLink(el)
			}
		}
		m.doc.blur()
	}
	return m
}

// followLink activates a nav entry. Heading links scroll the prose; the
// rest are clicked like any hypermedia element.
func (m *model) followLink(el *element) {
	if !el.hasClass("heading-link") {
		m.doc.click(el)
		return
	}
	want := strings.TrimSpace(el.textContent())
	for i, line := range strings.Split(m.body, "\n") {
		if strings.Contains(ansi.Strip(line), want) {
			m.viewport.SetYOffset(i)
			return
		}
	}
}

// ─── Update ──────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKeyMsg(msg)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		m = m.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.doc.innerWidth = msg.Width
		if !m.ready {
			m.ready = true
			m.anim.cur = m.sidebarTarget()
			m.anim.to = m.anim.cur
		}

	case hxResponseMsg:
		m.hx.handleResponse(msg)

	case hxErrorMsg:
		m.hx.handleError(msg)
		if msg.req.target != m.doc.noteContent {
			cmds = append(cmds, m.setStatus(fmt.Sprintf("Error: %v", msg.err), statusTimeout))
		}

	case hxDelayMsg:
		m.hx.handleDelay(msg)

	case pageLoadedMsg:
		m.hx.handlePage(msg)
		if msg.err != nil && msg.seq == m.hx.pageSeq {
			cmds = append(cmds, m.setStatus(fmt.Sprintf("Error: %v", msg.err), statusTimeout))
		}

	case historyTraverseMsg:
		if _, ok := m.hist.traverse(msg.delta); ok {
			m.doc.window.dispatch(domEvent{typ: evPopState})
		}

	case navigateMsg:
		m.hist.pushState(msg.url)
		m.hx.loadPage()

	case transitionFrameMsg:
		if msg.id != m.anim.id || !m.anim.active {
			break
		}
		m.anim.step++
		if m.anim.step >= transitionFrames {
			m.anim.cur = m.anim.to
			m.anim.active = false
			m.doc.sidebar.dispatch(domEvent{typ: evTransitionEnd, property: "width"})
		} else {
			m.anim.cur = m.anim.from + (m.anim.to-m.anim.from)*m.anim.step/transitionFrames
			cmds = append(cmds, m.nextTransitionFrame())
		}

	case animationFrameMsg:
		m.frameDue = false
		m.doc.runAnimationFrames()

	case proseRenderedMsg:
		delete(m.rendering, msg.key)
		if len(m.prose) >= proseCacheSize {
			clear(m.prose)
		}
		m.prose[msg.key] = msg.content

	case fileChangedMsg:
		if m.nb != nil {
			for _, stem := range msg.stems {
				if err := m.nb.reload(stem); err != nil {
					m.log.Warn("reload failed", "stem", stem, "error", err)
				}
				m.refreshNote(stem)
			}
			m.doc.body.dispatch(domEvent{typ: evNotesUpdated})
			label := msg.stems[0]
			if len(msg.stems) > 1 {
				label = fmt.Sprintf("%d notes", len(msg.stems))
			}
			cmds = append(cmds, m.setStatus("Updated: "+label, statusTimeout))
		}
		if m.watcher != nil && m.nb != nil {
			cmds = append(cmds, watchNotebook(m.watcher, m.nb.dir, m.log))
		}

	case editRequestMsg:
		cmds = append(cmds, m.openEditor(msg.stem))

	case remoteEditMsg:
		cmds = append(cmds, finishRemoteEdit(m.backend, msg))

	case editorDoneMsg:
		if m.nb != nil {
			if err := m.nb.reload(msg.stem); err != nil {
				m.log.Warn("reload failed", "stem", msg.stem, "error", err)
			}
		}
		m.refreshNote(msg.stem)
		m.doc.body.dispatch(domEvent{typ: evNotesUpdated})

	case editorLaunchedMsg:
		cmds = append(cmds, m.setStatus("Opened in "+commandLabel(m.cfg.Editor), statusTimeout))

	case copiedMsg:
		cmds = append(cmds, m.setStatus("Copied: "+msg.text, statusTimeout))

	case configUpdatedMsg:
		cfg, err := readConfig(m.cfgPath)
		if err != nil {
			cmds = append(cmds, m.setStatus("Error: "+err.Error(), statusTimeout))
			break
		}
		if err := cfg.Validate(); err != nil {
			cmds = append(cmds, m.setStatus("Error: "+err.Error(), statusTimeout))
			break
		}
		m.cfg.Editor = cfg.Editor
		m.cfg.EditorMode = cfg.EditorMode
		m.cfg.Breakpoint = cfg.Breakpoint
		m.ctrl.breakpoint = cfg.Breakpoint
		m.keys = newKeyMap(m.cfg)
		if cfg.NotebookDir != m.cfg.NotebookDir || cfg.Server != m.cfg.Server {
			cmds = append(cmds, m.setStatus("Restart weave to switch notebooks", statusTimeout))
		}

	case spinner.TickMsg:
		if m.status.text != "" {
			var cmd tea.Cmd
			m.status.spinner, cmd = m.status.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case statusMsg:
		cmds = append(cmds, m.setStatus(msg.text, statusTimeout))

	case statusClearMsg:
		if msg.id == m.status.id {
			m.clearStatus()
		}

	case errMsg:
		cmds = append(cmds, m.setStatus(fmt.Sprintf("Error: %v", msg.err), statusTimeout))
	}

	cmds = append(cmds, m.afterUpdate()...)
	return m, tea.Batch(cmds...)
}

// afterUpdate brings everything derived from the document up to date once
// its handlers have run: the filter widget, the layout and its transitions,
// the content viewport and the window title. Work queued by the page is
// returned last.
func (m *model) afterUpdate() []tea.Cmd {
	var cmds []tea.Cmd

	if m.doc.active == m.doc.filterInput && m.doc.filterInput != nil {
		if !m.filter.Focused() {
			m.filter.Focus()
		}
	} else if m.filter.Focused() {
		m.filter.Blur()
	}
	if v := m.doc.filterValue(); m.filter.Value() != v {
		m.filter.SetValue(v)
		m.filter.CursorEnd()
	}

	if m.ready {
		focused := m.ctrl.focusMode()
		if target := m.sidebarTarget(); target != m.anim.to {
			cmds = append(cmds, m.startTransition(target))
		} else if focused != m.focused && !m.anim.active {
			// The sidebar is already at its width, so no transition will
			// end on its own.
			m.doc.sidebar.dispatch(domEvent{typ: evTransitionEnd, property: "width"})
		}
		m.focused = focused
		m.measure()
		if cmd := m.refreshContent(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	if len(m.doc.frames) > 0 && !m.frameDue {
		m.frameDue = true
		cmds = append(cmds, tea.Tick(frameInterval, func(time.Time) tea.Msg { return animationFrameMsg{} }))
	}

	if m.doc.title != m.title {
		m.title = m.doc.title
		cmds = append(cmds, tea.SetWindowTitle(m.title))
	}

	return append(cmds, m.queue.drain())
}

// startTransition animates the sidebar towards width. Narrow layouts switch
// panes without animating; transitionend still fires so listeners waiting on
// it are released.
func (m *model) startTransition(width int) tea.Cmd {
	m.anim.id++
	m.anim.from = m.anim.cur
	m.anim.to = width
	m.anim.step = 0
	if m.layoutNarrow() {
		m.anim.cur = width
		m.anim.active = false
		m.doc.sidebar.dispatch(domEvent{typ: evTransitionEnd, property: "width"})
		return nil
	}
	m.anim.active = true
	return m.nextTransitionFrame()
}

func (m model) nextTransitionFrame() tea.Cmd {
	id := m.anim.id
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return transitionFrameMsg{id: id} })
}

// refreshContent rebuilds the viewport when the content pane, the prose
// geometry or the rendered prose changed. Until the prose is rendered at the
// current width an earlier rendering of the same text stands in.
func (m *model) refreshContent() tea.Cmd {
	var cmd tea.Cmd
	l := m.layout
	proseOut := ""
	if prose := m.doc.prose(); prose != nil && l.proseW > 0 {
		key := proseKey(prose.text, l.proseW)
		if rendered, ok := m.prose[key]; ok {
			proseOut = rendered
			m.lastProse, m.lastText = rendered, prose.text
		} else {
			if !m.rendering[key] {
				m.rendering[key] = true
				cmd = renderProse(key, prose.text, m.glamourStyle, l.proseW)
			}
			if m.lastText == prose.text {
				proseOut = m.lastProse
			}
		}
	}
	ck := fmt.Sprintf("%d:%d:%d:%d:%d", m.doc.noteContent.version, l.contentW, l.proseW, l.proseLeft, len(proseOut))
	if ck == m.contentKey {
		return cmd
	}
	m.contentKey = ck

	m.body, m.links = renderContent(m.doc, l, proseOut)
	m.viewport.SetContent(m.body)
	if m.doc.noteContent.version != m.contentSeen {
		m.contentSeen = m.doc.noteContent.version
		m.viewport.GotoTop()
	}
	return cmd
}
