package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func runeEvent(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

// Page bindings shadow global bindings on the same key.
func TestPageBindingWinsOverGlobal(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'r', Handler: func() { got = "global" }})
	r.AddPage("thread", &Action{Key: tcell.KeyRune, Rune: 'r', Handler: func() { got = "thread" }})

	if !r.HandleEvent("thread", runeEvent('r')) || got != "thread" {
		t.Errorf("on thread got %q, want thread", got)
	}
	if !r.HandleEvent("chats", runeEvent('r')) || got != "global" {
		t.Errorf("on chats got %q, want global", got)
	}
}

func TestUnmatchedEventFallsThrough(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyCtrlR, Handler: func() {}})
	if r.HandleEvent("chats", runeEvent('x')) {
		t.Error("HandleEvent() = true for an unbound key")
	}
	if !r.HandleEvent("chats", tcell.NewEventKey(tcell.KeyCtrlR, 0, tcell.ModCtrl)) {
		t.Error("HandleEvent() = false for ctrl-r")
	}
}

func TestHintsOrderAndVisibility(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Label: "q", Visible: true})
	r.AddGlobal(&Action{Label: "hidden"})
	r.AddPage("thread", &Action{Label: "o", Visible: true})
	r.AddPage("thread", &Action{Label: "i", Visible: true})

	var labels []string
	for _, a := range r.Hints("thread") {
		labels = append(labels, a.Label)
	}
	want := []string{"o", "i", "q"}
	if len(labels) != len(want) {
		t.Fatalf("hints = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("hints = %v, want %v", labels, want)
		}
	}
}
