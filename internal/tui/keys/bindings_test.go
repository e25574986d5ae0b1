package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func runeEvent(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestPageBindingShadowsGlobal(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal(&Action{Name: "quit", Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "global" }})
	r.AddPage("chat", &Action{Name: "back", Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "page" }})

	if !r.HandleEvent("chat", runeEvent('q')) || got != "page" {
		t.Errorf("on chat page got %q, want page", got)
	}
	if !r.HandleEvent("conversations", runeEvent('q')) || got != "global" {
		t.Errorf("on conversations page got %q, want global", got)
	}
}

func TestHandleEventNoMatch(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Name: "help", Key: tcell.KeyRune, Rune: '?'})
	if r.HandleEvent("chat", runeEvent('x')) {
		t.Error("unexpected match for x")
	}
	if !r.HandleEvent("chat", runeEvent('?')) {
		t.Error("nil handler should still consume the key")
	}
}

func TestSpecialKeys(t *testing.T) {
	r := NewRegistry()
	called := false
	r.AddGlobal(&Action{Name: "back", Key: tcell.KeyEscape, Handler: func() { called = true }})

	if r.HandleEvent("chat", runeEvent('e')) {
		t.Error("rune event matched a special key binding")
	}
	if !r.HandleEvent("chat", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) || !called {
		t.Error("Esc binding did not run")
	}
}

func TestVisibleOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Name: "quit", Key: tcell.KeyRune, Rune: 'q', Visible: true})
	r.AddGlobal(&Action{Name: "hidden", Key: tcell.KeyRune, Rune: 'z'})
	r.AddPage("conversations", &Action{Name: "open", KeyLabel: "Enter", Key: tcell.KeyEnter, Visible: true})
	r.AddPage("conversations", &Action{Name: "new", Key: tcell.KeyRune, Rune: 'n', Visible: true})
	// Replacing keeps the original position.
	r.AddGlobal(&Action{Name: "quit", Key: tcell.KeyRune, Rune: 'Q', Visible: true})

	var labels []string
	for _, a := range r.Visible("conversations") {
		labels = append(labels, a.Label())
	}
	want := []string{"Enter", "n", "Q"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels[%d] = %q, want %q", i, labels[i], want[i])
		}
	}
}
