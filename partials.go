package main

import (
	"encoding/json"
	"strconv"
	"time"
)

// ─── Partials ────────────────────────────────────────────────────────────────
//
// Partials turn backend views into element trees for the two swap targets.

// noteListPartial lists pinned notes first and archived notes last, each
// group set apart by a separator. Each item opens its note in the content
// pane and pushes the note's address into history.
func noteListPartial(notes []noteSummary) []*element {
	var pinned, normal, archived []*element
	for _, n := range notes {
		item := noteItem(n)
		switch {
		case n.Pinned:
			pinned = append(pinned, item)
		case n.Archived:
			archived = append(archived, item)
		default:
			normal = append(normal, item)
		}
	}
	out := pinned
	if len(pinned) > 0 {
		out = append(out, newElement("hr", "separator"))
	}
	out = append(out, normal...)
	if len(archived) > 0 {
		out = append(out, newElement("hr", "separator"))
	}
	return append(out, archived...)
}

func noteItem(n noteSummary) *element {
	item := newElement("a", "note-item").
		withAttr("data-stem", n.Stem).
		withAttr("hx-get", fragmentURL(n.Stem)).
		withAttr("hx-target", "#"+idNoteContent).
		withAttr("hx-push-url", noteURL(n.Stem)).
		withAttr("onclick", "showNote")
	if !n.Modified.IsZero() {
		item.setAttr("data-modified", n.Modified.Format(time.RFC3339))
	}
	if n.Pinned {
		item.addClass("pinned")
	}
	if n.Archived {
		item.addClass("archived")
	}
	return item.append(
		newElement("span", "note-title").withText(n.Title),
		newElement("span", "note-snippet").withText(n.Snippet),
	)
}

// noteContentPartial renders a note: a header with the way back, the title
// and (for local notebooks) the edit affordance, the prose, and a nav of
// headings, links, backlinks and tags.
func noteContentPartial(v noteView) []*element {
	header := newElement("header").append(backButton(), newElement("h2").withText(v.Title))
	if v.Editable {
		header.append(newElement("button", "edit").
			withAttr("aria-label", "Edit note").
			withAttr("data-stem", v.Stem).
			withAttr("onclick", "editNote"))
	}
	prose := newElement("article", "prose").withText(v.Body)

	nav := newElement("nav", "note-nav")
	if len(v.Headings) > 0 {
		sec := navSection("Headings")
		for _, h := range v.Headings {
			sec.append(newElement("a", "heading-link").
				withAttr("data-level", strconv.Itoa(h.Level)).
				withAttr("href", "#"+h.Anchor).
				withText(h.Text))
		}
		nav.append(sec)
	}
	if len(v.Links) > 0 {
		nav.append(linkSection("Links", v.Links))
	}
	if len(v.Backlinks) > 0 {
		nav.append(linkSection("Backlinks", v.Backlinks))
	}
	if len(v.Tags) > 0 {
		sec := navSection("Tags")
		for _, t := range v.Tags {
			sec.append(newElement("a", "tag").
				withAttr("hx-post", searchURL).
				withAttr("hx-target", "#"+idSearchList).
				withAttr("hx-vals", tagVals(t)).
				withText("#" + t))
		}
		nav.append(sec)
	}
	return []*element{header, prose, nav}
}

func backButton() *element {
	return newElement("button", "back").
		withAttr("aria-label", "Back to notes").
		withAttr("onclick", "goBack")
}

func navSection(title string) *element {
	return newElement("section").append(newElement("h3").withText(title))
}

func linkSection(title string, links []noteLink) *element {
	sec := navSection(title)
	for _, l := range links {
		sec.append(newElement("a", "note-link").
			withAttr("data-stem", l.Stem).
			withAttr("hx-get", fragmentURL(l.Stem)).
			withAttr("hx-target", "#"+idNoteContent).
			withAttr("hx-push-url", noteURL(l.Stem)).
			withText(l.Title))
	}
	return sec
}

func tagVals(tag string) string {
	b, _ := json.Marshal(map[string]string{"query": "#" + tag})
	return string(b)
}

// errorPartial is the content placeholder shown when a note fails to load.
// The message is the pane's heading, so it titles the window too.
func errorPartial(msg string) []*element {
	return []*element{
		newElement("header").append(backButton()),
		newElement("h2", "note-error").withText(msg),
	}
}
