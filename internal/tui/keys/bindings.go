// Package keys maps key events to actions, per focus scope.
package keys

import "github.com/gdamore/tcell/v2"

// Binding is one key action. Key is tcell.KeyRune for character keys.
type Binding struct {
	Key     tcell.Key
	Rune    rune
	Hint    string
	Handler func()
}

// Matches reports whether ev triggers b.
func (b Binding) Matches(ev *tcell.EventKey) bool {
	if b.Key != tcell.KeyRune {
		return ev.Key() == b.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == b.Rune
}

// Registry holds global and scoped bindings. Scoped bindings take precedence,
// then registration order decides.
type Registry struct {
	global []Binding
	scoped map[string][]Binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scoped: make(map[string][]Binding)}
}

// Global registers a binding active in every scope.
func (r *Registry) Global(b Binding) {
	r.global = append(r.global, b)
}

// Scoped registers a binding active only in scope.
func (r *Registry) Scoped(scope string, b Binding) {
	r.scoped[scope] = append(r.scoped[scope], b)
}

// Hints returns the non-empty hints active in scope, scoped ones first.
func (r *Registry) Hints(scope string) []string {
	var hints []string
	for _, b := range append(append([]Binding(nil), r.scoped[scope]...), r.global...) {
		if b.Hint != "" {
			hints = append(hints, b.Hint)
		}
	}
	return hints
}

// Handle runs the first binding in scope matching ev and reports whether one
// matched.
func (r *Registry) Handle(scope string, ev *tcell.EventKey) bool {
	for _, bs := range [][]Binding{r.scoped[scope], r.global} {
		for _, b := range bs {
			if b.Matches(ev) {
				b.Handler()
				return true
			}
		}
	}
	return false
}
