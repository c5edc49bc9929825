package ui

import "github.com/rivo/tview"

// Pages is the navigation stack of the TUI. Only the top page is visible.
// The bottom page is the root and stays put.
type Pages struct {
	*tview.Pages
	stack    []string
	onChange func(stack []string)
}

// NewPages creates an empty stack.
func NewPages() *Pages {
	return &Pages{Pages: tview.NewPages()}
}

// SetOnChange sets the callback run with a copy of the stack after every change.
func (p *Pages) SetOnChange(fn func(stack []string)) { p.onChange = fn }

// Push brings name to the top. A page already on the stack is not stacked
// twice: the pages above it are dropped instead, so the stack never loops.
func (p *Pages) Push(name string) {
	for i, n := range p.stack {
		if n == name {
			if i == len(p.stack)-1 {
				return
			}
			p.show(p.stack[:i+1])
			return
		}
	}
	p.show(append(p.stack, name))
}

// Pop drops the top page and returns its name, or "" when only the root is left.
func (p *Pages) Pop() string {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.show(p.stack[:len(p.stack)-1])
	return top
}

// Reset makes name the only page.
func (p *Pages) Reset(name string) { p.show([]string{name}) }

// Current returns the top page, or "" before the first Reset.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Stack returns a copy of the stack, root first.
func (p *Pages) Stack() []string { return append([]string(nil), p.stack...) }

func (p *Pages) show(stack []string) {
	if top := p.Current(); top != "" {
		p.HidePage(top)
	}
	p.stack = append([]string(nil), stack...)
	top := p.Current()
	p.ShowPage(top)
	p.SendToFront(top)
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
