package main

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// ─── Colors ──────────────────────────────────────────────────────────────────

var (
	colorBlack   = lipgloss.Color("0")
	colorAccent  = lipgloss.Color("5")  // magenta — brand, active note, keys
	colorDim     = lipgloss.Color("8")  // gray — snippets, dividers, archived notes
	colorFull    = lipgloss.Color("7")  // white — full help descriptions
	colorYellow  = lipgloss.Color("11") // pinned marker
	colorRed     = lipgloss.Color("9")  // load errors
	colorMagenta = lipgloss.Color("13") // status bar messages
)

// ─── Styles ──────────────────────────────────────────────────────────────────

var (
	brandStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	dimStyle        = lipgloss.NewStyle().Foreground(colorDim)
	headerStyle     = lipgloss.NewStyle().Bold(true)
	sectionStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorDim)
	linkStyle       = lipgloss.NewStyle().Foreground(colorAccent)
	errorStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	helpTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	helpBoxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 3)
	statusTextStyle = lipgloss.NewStyle().Bold(true).Foreground(colorMagenta)
)

// truncateForWidth cuts s to maxWidth cells, ending in an ellipsis when cut.
func truncateForWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxWidth, "…")
}

// fitLine truncates or pads s to exactly w cells.
func fitLine(s string, w int) string {
	s = truncateForWidth(s, w)
	if pad := w - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// ─── Layout ──────────────────────────────────────────────────────────────────

// Fixed rows of the two panes.
const (
	filterRow  = 1 // sidebar: filter input
	listTop    = 3 // sidebar: first row of the search list
	contentTop = 2 // content: first row of the viewport

	minSidebarWidth = 24
	sidebarPercent  = 36
	maxProseWidth   = 96
	prosePadding    = 2
)

type layout struct {
	narrow   bool
	bodyH    int // rows above the status bar
	sidebarW int // 0 when the sidebar is hidden
	contentX int
	contentW int // 0 when the content pane is hidden

	proseW     int
	proseLeft  int
	proseRight int
}

func (m model) layoutNarrow() bool {
	return m.width < m.ctrl.breakpoint
}

// sidebarTarget is the sidebar width the document's classes call for.
func (m model) sidebarTarget() int {
	if m.layoutNarrow() {
		if m.doc.sidebar.hasClass(sidebarHidden) {
			return 0
		}
		return m.width
	}
	if m.doc.body.hasClass(focusModeClass) {
		return 0
	}
	return max(minSidebarWidth, m.width*sidebarPercent/100)
}

// measure lays the page out for the current frame and writes the
// measurements the page reads back (prose width and margins, list height).
func (m *model) measure() {
	l := layout{narrow: m.layoutNarrow(), bodyH: max(m.height-1, 1)}
	l.sidebarW = min(max(m.anim.cur, 0), m.width)
	switch {
	case l.sidebarW == 0:
		l.contentW = m.width
	case l.narrow || l.sidebarW >= m.width-1:
		l.sidebarW = m.width
	default:
		l.contentX = l.sidebarW + 1
		l.contentW = m.width - l.contentX
	}

	body, prose := m.doc.body, m.doc.prose()
	if l.contentW > 0 {
		focus := body.hasClass(focusModeClass)
		w := min(l.contentW-2*prosePadding, maxProseWidth)
		if v, ok := parseCols(body.style(focusWidthVar)); ok && focus && v > 0 {
			w = v
		}
		if prose != nil {
			if v, ok := parseCols(prose.style("max-width")); ok && v > 0 {
				w = v
			}
		}
		w = max(min(w, l.contentW-prosePadding), 1)

		left := prosePadding
		if focus {
			left = (l.contentW - w) / 2
		}
		if prose != nil {
			if v, ok := parseCols(prose.style("margin-left")); ok {
				left = v
			}
		}
		if left+w > l.contentW {
			left = max(l.contentW-w, 0)
		}
		l.proseW, l.proseLeft = w, left
		l.proseRight = max(l.contentW-left-w, 0)
	}
	if prose != nil {
		prose.offsetWidth, prose.marginLeft, prose.marginRight = l.proseW, l.proseLeft, l.proseRight
	}

	m.layout = l
	if l.sidebarW > 0 {
		m.doc.listHeight = max(l.bodyH-listTop, 0)
	} else {
		m.doc.listHeight = 0
	}
	m.doc.clampListScroll()
	m.viewport.Width = l.contentW
	m.viewport.Height = max(l.bodyH-contentTop, 0)
	m.filter.Width = max(l.sidebarW-6, 1)
}

// proseKey identifies a rendering of text at width.
func proseKey(text string, width int) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return fmt.Sprintf("%x:%d", h.Sum64(), width)
}

// renderContent builds the viewport text for the content pane and records
// which line each nav link sits on. rendered is the glamour output for the
// prose; when empty the raw text is wrapped instead.
func renderContent(doc *document, l layout, rendered string) (string, map[int]*element) {
	links := make(map[int]*element)
	content := doc.noteContent
	if content == nil || len(content.children) == 0 {
		return "\n" + strings.Repeat(" ", prosePadding) + dimStyle.Render("Select a note from the list."), links
	}

	pad := strings.Repeat(" ", l.proseLeft)
	var lines []string
	if e := content.find(hasClassPred("note-error")); e != nil {
		lines = append(lines, "",
			pad+errorStyle.Render(truncateForWidth(e.textContent(), l.proseW)),
			"",
			pad+dimStyle.Render("b back to notes"))
		return strings.Join(lines, "\n"), links
	}

	if prose := doc.prose(); prose != nil {
		if rendered == "" {
			rendered = lipgloss.NewStyle().Width(l.proseW).Render(prose.text)
		}
		for _, line := range strings.Split(rendered, "\n") {
			lines = append(lines, pad+line)
		}
	}

	if nav := content.find(hasClassPred("note-nav")); nav != nil {
		for _, sec := range nav.children {
			for _, c := range sec.children {
				switch {
				case c.tag == "h3":
					lines = append(lines, "", pad+sectionStyle.Render(strings.ToUpper(c.text)))
				case c.hasClass("heading-link"):
					level, _ := strconv.Atoi(c.getAttr("data-level"))
					indent := strings.Repeat("  ", max(level-1, 0))
					lines = append(lines, pad+indent+linkStyle.Render(truncateForWidth(c.text, l.proseW-len(indent))))
					links[len(lines)-1] = c
				case c.hasClass("note-link"):
					lines = append(lines, pad+linkStyle.Render(truncateForWidth("→ "+c.text, l.proseW)))
					links[len(lines)-1] = c
				case c.hasClass("tag"):
					lines = append(lines, pad+linkStyle.Render(truncateForWidth(c.text, l.proseW)))
					links[len(lines)-1] = c
				}
			}
		}
	}
	return strings.Join(lines, "\n"), links
}

// ─── View ────────────────────────────────────────────────────────────────────

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}
	l := m.layout

	var panes []string
	if l.sidebarW > 0 {
		w := l.sidebarW
		if l.contentW > 0 {
			w = l.contentX - 1
		}
		panes = append(panes, m.sidebarView(w, l.bodyH))
		if l.contentW > 0 {
			panes = append(panes, dimStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", l.bodyH), "\n")))
		}
	}
	if l.contentW > 0 {
		panes = append(panes, m.contentView(l.contentW, l.bodyH))
	}
	base := lipgloss.JoinHorizontal(lipgloss.Top, panes...) + "\n" + m.statusBarView()

	if m.help.ShowAll {
		content := helpTitleStyle.Render("Keybindings") + "\n" + m.help.FullHelpView(m.keys.FullHelp())

		// Keep the help modal comfortably narrow on wide terminals while still
		// fitting on small screens.
		modalMaxW := min(max(m.width-4, 20), 76)

		// helpBoxStyle uses 1-cell borders and 3-cell horizontal padding.
		contentMaxW := max(modalMaxW-8, 12)

		content = lipgloss.NewStyle().MaxWidth(contentMaxW).Render(content)
		overlay := helpBoxStyle.MaxWidth(modalMaxW).Render(content)
		base = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlay,
			lipgloss.WithWhitespaceChars(" "),
			lipgloss.WithWhitespaceForeground(colorBlack),
		)
	}
	return base
}

func (m model) sidebarView(w, h int) string {
	brand := brandStyle.Render(appTitle)
	if m.demo {
		brand += " " + dimStyle.Render("demo")
	}
	if n := len(m.doc.noteItems()); n > 0 {
		brand += " " + dimStyle.Render(strconv.Itoa(n))
	}

	var filter string
	switch {
	case m.filter.Focused():
		filter = linkStyle.Render("/ ") + m.filter.View()
	case m.doc.filterValue() != "":
		filter = dimStyle.Render("/ ") + m.doc.filterValue()
	default:
		filter = dimStyle.Render("/ filter (s)")
	}
	if !m.doc.filterClear.hasClass(hiddenClass) {
		filter = fitLine(filter, w-2) + dimStyle.Render("✕")
	}

	lines := []string{
		" " + brand,
		filter,
		dimStyle.Render(strings.Repeat("─", w)),
	}
	lines = append(lines, listRowsView(m.doc, w, max(h-listTop, 0))...)
	for i := range lines {
		lines[i] = fitLine(lines[i], w)
	}
	for len(lines) < h {
		lines = append(lines, strings.Repeat(" ", w))
	}
	return strings.Join(lines[:h], "\n")
}

func (m model) contentView(w, h int) string {
	var header string
	if m.doc.backButton() != nil {
		header = linkStyle.Render("‹ ")
	}
	title := strings.TrimSpace(m.doc.heading().textContent())
	if title == "" && len(m.doc.noteContent.children) == 0 {
		title = appTitle
	}
	var edit string
	if m.doc.editButton() != nil {
		edit = dimStyle.Render("  ✎ e")
	}
	header += headerStyle.Render(truncateForWidth(title, w-ansi.StringWidth(header)-ansi.StringWidth(edit)-1))
	if edit != "" {
		header = fitLine(header, w-ansi.StringWidth(edit)) + edit
	}

	lines := []string{fitLine(header, w), dimStyle.Render(strings.Repeat("─", w))}
	for _, line := range strings.Split(m.viewport.View(), "\n") {
		lines = append(lines, fitLine(line, w))
	}
	for len(lines) < h {
		lines = append(lines, strings.Repeat(" ", w))
	}
	return strings.Join(lines[:h], "\n")
}

func (m model) statusBarView() string {
	switch {
	case m.status.text != "":
		return " " + m.status.spinner.View() + " " + statusTextStyle.Render(truncateForWidth(m.status.text, m.width-4))
	case m.filter.Focused():
		key := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
		return " " + key.Render("enter") + dimStyle.Render(" search") + dimStyle.Render(" | ") +
			key.Render("esc") + dimStyle.Render(" done")
	}
	return " " + truncateForWidth(m.help.ShortHelpView(m.keys.ShortHelp()), m.width-1)
}
