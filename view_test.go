package main

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
)

func TestDisplayDate(t *testing.T) {
	thisYear := time.Date(time.Now().Year(), 3, 9, 12, 0, 0, 0, time.Local)
	tests := []struct {
		in, want string
	}{
		{thisYear.Format(time.RFC3339), "03-09"},
		{time.Date(2019, 11, 2, 12, 0, 0, 0, time.Local).Format(time.RFC3339), "2019-11-02"},
		{"", ""},
		{"yesterday", ""},
	}
	for _, tt := range tests {
		if got := displayDate(tt.in); got != tt.want {
			t.Errorf("displayDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFitLine(t *testing.T) {
	if got := fitLine("abc", 5); got != "abc  " {
		t.Errorf("fitLine pad = %q", got)
	}
	if got := fitLine("abcdefgh", 5); ansi.StringWidth(got) != 5 || !strings.HasSuffix(got, "…") {
		t.Errorf("fitLine cut = %q", got)
	}
	if got := truncateForWidth("abc", 0); got != "" {
		t.Errorf("truncateForWidth(0) = %q", got)
	}
}

func TestListRowsView(t *testing.T) {
	doc := newDocument()
	doc.searchList.replaceChildren(noteListPartial([]noteSummary{
		{Stem: "p", Title: "Pinned", Snippet: "pin...", Pinned: true},
		{Stem: "a", Title: "A note with a rather long title", Snippet: "a..."},
		{Stem: "old", Title: "Old", Snippet: "old...", Archived: true},
	})...)
	doc.itemByStem("a").addClass(activeNoteClass)

	rows := listRowsView(doc, 30, 100)
	if len(rows) != 3*itemRows+2 {
		t.Fatalf("rows = %d, want %d", len(rows), 3*itemRows+2)
	}
	for i, r := range rows {
		if w := ansi.StringWidth(r); w > 30 {
			t.Errorf("row %d is %d wide", i, w)
		}
	}
	if !strings.Contains(rows[0], "★") || !strings.Contains(rows[0], "Pinned") {
		t.Errorf("pinned row = %q", rows[0])
	}
	if !strings.Contains(rows[2], "─") {
		t.Errorf("separator row = %q", rows[2])
	}
	if !strings.HasPrefix(rows[3], "│ ") || !strings.Contains(rows[3], "…") {
		t.Errorf("active row = %q", rows[3])
	}

	doc.listScroll = 3
	if rows := listRowsView(doc, 30, 2); len(rows) != 2 || !strings.HasPrefix(rows[0], "│ ") {
		t.Errorf("scrolled window = %q", rows)
	}

	doc.searchList.replaceChildren()
	if rows := listRowsView(doc, 30, 10); !strings.Contains(rows[1], "No notes") {
		t.Errorf("empty list = %q", rows)
	}
	doc.setFilterValue("zzz")
	if rows := listRowsView(doc, 30, 10); !strings.Contains(rows[1], "No matching notes") {
		t.Errorf("empty search = %q", rows)
	}
}

func TestRenderContent(t *testing.T) {
	doc := newDocument()
	l := layout{contentW: 60, proseW: 40, proseLeft: 2}

	body, links := renderContent(doc, l, "")
	if !strings.Contains(body, "Select a note") || len(links) != 0 {
		t.Errorf("empty pane = %q", body)
	}

	doc.noteContent.replaceChildren(noteContentPartial(noteView{
		Stem:      "n",
		Title:     "N",
		Body:      "Body text.",
		Headings:  []noteHeading{{Level: 1, Text: "Top", Anchor: "top"}, {Level: 2, Text: "Sub", Anchor: "sub"}},
		Links:     []noteLink{{Stem: "o", Title: "Other"}},
		Backlinks: []noteLink{{Stem: "b", Title: "Before"}},
		Tags:      []string{"x"},
	})...)
	body, links = renderContent(doc, l, "RENDERED")
	lines := strings.Split(body, "\n")
	if lines[0] != "  RENDERED" {
		t.Errorf("prose line = %q", lines[0])
	}
	want := map[string]string{"Top": "heading-link", "Sub": "heading-link", "Other": "note-link", "Before": "note-link", "#x": "tag"}
	if len(links) != len(want) {
		t.Errorf("%d links, want %d", len(links), len(want))
	}
	for line, el := range links {
		cls, ok := want[el.text]
		if !ok || !el.hasClass(cls) {
			t.Errorf("line %d links %q", line, el.text)
			continue
		}
		if !strings.Contains(lines[line], el.text) {
			t.Errorf("line %d = %q, want %q", line, lines[line], el.text)
		}
	}
	for _, section := range []string{"HEADINGS", "LINKS", "BACKLINKS", "TAGS"} {
		if !strings.Contains(body, section) {
			t.Errorf("section %s missing", section)
		}
	}

	doc.noteContent.replaceChildren(errorPartial(noteErrorText)...)
	body, _ = renderContent(doc, l, "")
	if !strings.Contains(body, noteErrorText) {
		t.Errorf("error pane = %q", body)
	}
}

func TestProseKey(t *testing.T) {
	if proseKey("a", 10) == proseKey("a", 11) || proseKey("a", 10) == proseKey("b", 10) {
		t.Error("keys should differ by text and width")
	}
	if proseKey("a", 10) != proseKey("a", 10) {
		t.Error("keys should be stable")
	}
}
