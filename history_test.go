package main

import (
	"reflect"
	"testing"
)

func TestPushStateDropsForwardEntries(t *testing.T) {
	h := newBrowserHistory("/", &taskQueue{})
	h.pushState("/note/a")
	h.pushState("/note/b")
	if _, ok := h.traverse(-1); !ok {
		t.Fatal("traverse back failed")
	}
	h.pushState("/note/c")
	if want := []string{"/", "/note/a", "/note/c"}; !reflect.DeepEqual(h.entries, want) {
		t.Errorf("entries = %v, want %v", h.entries, want)
	}
	if h.location() != "/note/c" || h.length() != 3 {
		t.Errorf("location = %q, length = %d", h.location(), h.length())
	}
}

func TestTraverseBounds(t *testing.T) {
	h := newBrowserHistory("/", &taskQueue{})
	if loc, ok := h.traverse(-1); ok || loc != "/" {
		t.Errorf("traverse(-1) at start = %q, %v", loc, ok)
	}
	h.pushState("/note/a")
	if loc, ok := h.traverse(1); ok || loc != "/note/a" {
		t.Errorf("traverse(1) at end = %q, %v", loc, ok)
	}
	if loc, ok := h.traverse(-1); !ok || loc != "/" {
		t.Errorf("traverse(-1) = %q, %v", loc, ok)
	}
}

func TestTraversalIsQueued(t *testing.T) {
	q := &taskQueue{}
	h := newBrowserHistory("/", q)
	h.pushState("/note/a")
	h.back()
	h.assign("/")
	if h.location() != "/note/a" {
		t.Error("back should not move the cursor synchronously")
	}
	if len(q.cmds) != 2 {
		t.Fatalf("queued %d commands, want 2", len(q.cmds))
	}
	if msg := q.cmds[0](); msg != (historyTraverseMsg{delta: -1}) {
		t.Errorf("back queued %#v", msg)
	}
	if msg := q.cmds[1](); msg != (navigateMsg{url: "/"}) {
		t.Errorf("assign queued %#v", msg)
	}
	if q.drain() == nil || len(q.cmds) != 0 {
		t.Error("drain should hand over and clear the queue")
	}
}
