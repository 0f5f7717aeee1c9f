package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ─── List rows ───────────────────────────────────────────────────────────────

var (
	activeTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	archivedStyle    = lipgloss.NewStyle().Foreground(colorDim)
	pinStyle         = lipgloss.NewStyle().Foreground(colorYellow)
	dateStyle        = lipgloss.NewStyle().Foreground(colorDim)
	selectedBar      = lipgloss.NewStyle().Foreground(colorAccent).SetString("│ ")
	normalBar        = lipgloss.NewStyle().SetString("  ")
)

// listRowsView renders the visible window of the search list, h rows from
// the document's scroll offset. Every child takes exactly listRows rows.
func listRowsView(doc *document, w, h int) []string {
	var rows []string
	for _, c := range doc.searchList.children {
		switch {
		case c.hasClass("separator"):
			rows = append(rows, "  "+dateStyle.Render(strings.Repeat("─", max(w-4, 1))))
		case c.hasClass("note-item"):
			rows = append(rows, noteRows(c, w)...)
		default:
			for range listRows(c) {
				rows = append(rows, "")
			}
		}
	}
	if len(rows) == 0 {
		msg := "No notes"
		if doc.filterValue() != "" {
			msg = "No matching notes"
		}
		return []string{"", "  " + dateStyle.Render(msg)}
	}
	start := min(doc.listScroll, len(rows))
	end := min(start+h, len(rows))
	return rows[start:end]
}

// noteRows renders one list item as a title row and a snippet row.
func noteRows(item *element, w int) []string {
	var title, snippet string
	if t := item.find(hasClassPred("note-title")); t != nil {
		title = t.text
	}
	if s := item.find(hasClassPred("note-snippet")); s != nil {
		snippet = s.text
	}

	active := item.hasClass(activeNoteClass)
	bar := normalBar.String()
	if active {
		bar = selectedBar.String()
	}

	var badge string
	if item.hasClass("pinned") {
		badge = pinStyle.Render("★") + " "
	}

	date := displayDate(item.getAttr("data-modified"))
	dateW := 0
	if date != "" {
		dateW = lipgloss.Width(date) + 1
	}

	avail := max(w-lipgloss.Width(bar)-lipgloss.Width(badge)-dateW, 1)
	title = truncateForWidth(title, avail)
	if pad := avail - lipgloss.Width(title); pad > 0 {
		title += strings.Repeat(" ", pad)
	}
	switch {
	case active:
		title = activeTitleStyle.Render(title)
	case item.hasClass("archived"):
		title = archivedStyle.Render(title)
	}
	line := bar + badge + title
	if date != "" {
		line += " " + dateStyle.Render(date)
	}

	return []string{
		line,
		bar + dateStyle.Render(truncateForWidth(snippet, max(w-lipgloss.Width(bar), 1))),
	}
}

// displayDate shows MM-DD for the current year, full YYYY-MM-DD otherwise.
func displayDate(rfc3339 string) string {
	ts, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return ""
	}
	currentYear := strconv.Itoa(time.Now().Year())
	d := ts.Local().Format("2006-01-02")
	if strings.HasPrefix(d, currentYear+"-") {
		d = d[len(currentYear)+1:]
	}
	return d
}
