package ui

import "github.com/rivo/tview"

// MenuHint is one key shown in the header.
type MenuHint struct {
	Key         string
	Description string
}

// Component is a page of the stack: its crumb title, its own key hints and
// the widget that takes focus when the page comes to the top.
type Component interface {
	Name() string
	Hints() []MenuHint
	FocusTarget() tview.Primitive
}
