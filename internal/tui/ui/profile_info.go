package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// ProfileData is what the header shows about the running session.
type ProfileData struct {
	Profile  string
	User     string
	State    string
	Chats    int
	Archived int
	Queued   int
	Uptime   time.Duration
}

// ProfileInfo displays session metadata in the header.
type ProfileInfo struct {
	*tview.TextView
	theme *Theme
}

// NewProfileInfo creates the header panel.
func NewProfileInfo(theme *Theme) *ProfileInfo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)
	return &ProfileInfo{TextView: tv, theme: theme}
}

// Update renders data; nil clears the panel.
func (pi *ProfileInfo) Update(data *ProfileData) {
	pi.Clear()
	if data == nil {
		return
	}
	label := ColorName(pi.theme.FgColor)
	value := ColorName(pi.theme.CounterColor)
	row := func(name, v string) {
		_, _ = fmt.Fprintf(pi, "[%s::b]%-9s[-:-:-][%s]%s[-]\n", label, name+":", value, tview.Escape(v))
	}
	row("Profile", data.Profile)
	row("User", data.User)
	row("State", data.State)
	row("Chats", fmt.Sprintf("%d", data.Chats))
	row("Archive", fmt.Sprintf("%d msgs", data.Archived))
	if data.Queued > 0 {
		row("Queued", fmt.Sprintf("%d", data.Queued))
	}
	row("Uptime", formatUptime(data.Uptime))
}

func formatUptime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
