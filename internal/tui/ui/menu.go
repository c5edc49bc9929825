package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Menu lists the key hints of the current page above the global ones.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates the hint column of the header.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update renders page hints, then global hints in the muted color. A key
// bound by the page hides the global hint for the same key.
func (m *Menu) Update(page, global []MenuHint) {
	m.Clear()
	key := ColorName(m.theme.MenuKeyColor)
	muted := ColorName(m.theme.MutedColor)

	shown := make(map[string]bool, len(page))
	for _, h := range page {
		shown[h.Key] = true
		_, _ = fmt.Fprintf(m, "[%s::b]<%s>[-:-:-] %s\n", key, tview.Escape(h.Key), h.Description)
	}
	for _, h := range global {
		if shown[h.Key] {
			continue
		}
		shown[h.Key] = true
		_, _ = fmt.Fprintf(m, "[%s]<%s> %s[-]\n", muted, tview.Escape(h.Key), h.Description)
	}
}
