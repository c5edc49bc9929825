package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// Thread shows one chat's messages above a composer.
type Thread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	userID   string
	title    string
	onSend   func(text string)
}

// NewThread creates the message pane.
func NewThread(theme *ui.Theme) *Thread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i) ")
	composer.SetTitleColor(theme.TitleColor)

	t := &Thread{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(messages, 0, 1, true).
			AddItem(composer, 3, 0, false),
		theme:    theme,
		messages: messages,
		composer: composer,
	}
	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || t.onSend == nil {
			return
		}
		if text := composer.GetText(); strings.TrimSpace(text) != "" {
			t.onSend(text)
			composer.SetText("")
		}
	})
	return t
}

// Name implements ui.Component.
func (t *Thread) Name() string {
	if t.title != "" {
		return t.title
	}
	return "Messages"
}

// FocusTarget implements ui.Component: the message list, not the composer.
func (t *Thread) FocusTarget() tview.Primitive { return t.messages }

// Hints implements ui.Component.
func (t *Thread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "o", Description: "Older"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetPeer sets the peer name shown on the border.
func (t *Thread) SetPeer(name string) {
	t.title = name
	t.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(name)))
}

// SetUser marks userID's messages as the signed-in user's own.
func (t *Thread) SetUser(userID string) { t.userID = userID }

// SetOnSend sets the callback run when the composer submits.
func (t *Thread) SetOnSend(fn func(text string)) { t.onSend = fn }

// Update renders msgs oldest first. scrollToEnd follows the newest message;
// otherwise the view keeps the lines the user was reading in place, so a
// prepended page does not yank the view.
func (t *Thread) Update(msgs []apiv1.Message, hasMore, scrollToEnd bool) {
	row, _ := t.messages.GetScrollOffset()
	before := t.messages.GetOriginalLineCount()

	t.messages.Clear()
	if hasMore {
		_, _ = fmt.Fprintf(t.messages, "[%s]-- o: load older --[-]\n\n", ui.ColorName(t.theme.MutedColor))
	}
	_, _ = fmt.Fprint(t.messages, t.render(msgs, time.Now()))

	if scrollToEnd {
		t.messages.ScrollToEnd()
		return
	}
	t.messages.ScrollTo(row+t.messages.GetOriginalLineCount()-before, 0)
}

func (t *Thread) render(msgs []apiv1.Message, now time.Time) string {
	var b strings.Builder
	muted := ui.ColorName(t.theme.MutedColor)
	for _, m := range msgs {
		color := t.theme.PeerMessageColor
		sender := m.SenderName
		if sender == "" {
			sender = m.SenderID
		}
		if m.SenderID == t.userID {
			color = t.theme.OwnMessageColor
			sender = "You"
		}
		state := ""
		switch {
		case m.Pending:
			state = fmt.Sprintf(" [%s]sending[-]", ui.ColorName(t.theme.PendingColor))
		case m.SenderID == t.userID && len(m.ReadBy) > 0:
			state = fmt.Sprintf(" [%s]read[-]", muted)
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [%s]%s[-]%s\n%s\n\n",
			ui.ColorName(color), clean(sender),
			muted, formatTimestamp(m.CreatedAtUnixMs, now),
			state, cleanBlock(m.Content))
	}
	return b.String()
}

// Composer returns the input field for focus management.
func (t *Thread) Composer() *tview.InputField { return t.composer }
