// Package keys maps key events to actions, globally or per page.
package keys

import "github.com/gdamore/tcell/v2"

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Label       string
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds keybindings in registration order, global ones apart from
// per-page ones.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(a *Action) {
	r.global = append(r.global, a)
}

// AddPage registers a binding active only on page.
func (r *Registry) AddPage(page string, a *Action) {
	r.pages[page] = append(r.pages[page], a)
}

// Hints returns the visible bindings for page: page bindings first, then
// global ones.
func (r *Registry) Hints(page string) []*Action {
	var out []*Action
	for _, a := range r.pages[page] {
		if a.Visible {
			out = append(out, a)
		}
	}
	for _, a := range r.global {
		if a.Visible {
			out = append(out, a)
		}
	}
	return out
}

// HandleEvent runs the first binding of page, then of the global scope, that
// matches ev. It reports whether one did.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, scope := range [][]*Action{r.pages[page], r.global} {
		for _, a := range scope {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
