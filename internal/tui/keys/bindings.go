// Package keys maps key events to actions, globally or per page.
package keys

import "github.com/gdamore/tcell/v2"

// Action is a single key binding.
type Action struct {
	Name        string
	KeyLabel    string
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches reports whether ev triggers a.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Label is the short key name shown in the menu.
func (a *Action) Label() string {
	switch {
	case a.KeyLabel != "":
		return a.KeyLabel
	case a.Key == tcell.KeyRune:
		return string(a.Rune)
	default:
		return "?"
	}
}

// Registry holds bindings in registration order. Page bindings shadow
// global ones bound to the same key.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

// AddGlobal binds an action on every page. Re-adding a name replaces it.
func (r *Registry) AddGlobal(a *Action) {
	r.global = upsert(r.global, a)
}

// AddPage binds an action on one page.
func (r *Registry) AddPage(page string, a *Action) {
	r.pages[page] = upsert(r.pages[page], a)
}

func upsert(list []*Action, a *Action) []*Action {
	for i, existing := range list {
		if existing.Name == a.Name {
			list[i] = a
			return list
		}
	}
	return append(list, a)
}

// Visible returns the visible actions for page, page bindings first.
func (r *Registry) Visible(page string) []*Action {
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

// HandleEvent runs the first action on page matching ev.
// Returns true if a handler ran.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, list := range [][]*Action{r.pages[page], r.global} {
		for _, a := range list {
			if a.Matches(ev) {
				if a.Handler != nil {
					a.Handler()
				}
				return true
			}
		}
	}
	return false
}
