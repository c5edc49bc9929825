package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// Help lists key bindings and prompt commands.
type Help struct {
	*tview.TextView
}

var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Global", [][2]string{
		{":", "Command prompt"},
		{"?", "This help"},
		{"Esc", "Back"},
		{"Ctrl-R", "Refresh chat list"},
		{"q", "Quit"},
	}},
	{"Chats", [][2]string{
		{"Enter", "Open chat"},
		{"/", "Filter by peer or preview"},
		{"1-9", "Open the nth chat"},
	}},
	{"Thread", [][2]string{
		{"i", "Focus composer"},
		{"Enter", "Send (in composer)"},
		{"o", "Load older messages"},
		{"r", "Mark read"},
	}},
	{"Commands", [][2]string{
		{":chat <name>", "Open a chat by peer name or id"},
		{":start <user-id>", "Start a chat with a user"},
		{":search <query>", "Search the archive"},
		{":reconnect", "Reconnect to the server"},
		{":quit", "Quit"},
	}},
}

// NewHelp creates the help page.
func NewHelp(theme *ui.Theme) *Help {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	kc := ui.ColorName(theme.MenuKeyColor)
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&b, "  [%s]%-18s[-] %s\n", kc, tview.Escape(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(tv, b.String())
	return &Help{TextView: tv}
}

// Name implements ui.Component.
func (h *Help) Name() string { return "Help" }

// FocusTarget implements ui.Component.
func (h *Help) FocusTarget() tview.Primitive { return h }

// Hints implements ui.Component.
func (h *Help) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}
