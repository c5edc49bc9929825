package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatList is the conversation table, most recent chat first.
type ChatList struct {
	*tview.Table
	theme   *ui.Theme
	chats   []apiv1.Chat
	visible []string
	filter  string
}

// NewChatList creates the chat table.
func NewChatList(theme *ui.Theme) *ChatList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)
	return &ChatList{Table: table, theme: theme}
}

// Name implements ui.Component.
func (cl *ChatList) Name() string { return "Chats" }

// FocusTarget implements ui.Component.
func (cl *ChatList) FocusTarget() tview.Primitive { return cl }

// Hints implements ui.Component.
func (cl *ChatList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "1-9", Description: "Jump"},
	}
}

// Update replaces the chat rows, keeping the selected chat selected.
func (cl *ChatList) Update(chats []apiv1.Chat) {
	selected := cl.SelectedChat()
	cl.chats = chats
	cl.render()
	cl.SelectChat(selected)
}

// SetFilter narrows the rows to chats whose peer or preview match.
func (cl *ChatList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// Filter returns the active filter.
func (cl *ChatList) Filter() string { return cl.filter }

func (cl *ChatList) render() {
	cl.Clear()
	cl.visible = cl.visible[:0]

	headers := []struct {
		text string
		exp  int
	}{{" PEER", 1}, {" LAST MESSAGE", 3}, {" UNREAD", 0}, {" TIME", 0}}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := time.Now()
	for _, c := range cl.chats {
		peer := c.Peer.Name
		if peer == "" {
			peer = c.Peer.ID
		}
		if !matchesFilter(cl.filter, peer, c.LastMessagePreview) {
			continue
		}
		cl.visible = append(cl.visible, c.ID)
		row := len(cl.visible)

		attr := tcell.AttrNone
		unread := ""
		if c.UnreadCount > 0 {
			attr = tcell.AttrBold
			unread = fmt.Sprintf("%d", c.UnreadCount)
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+clean(peer)).SetExpansion(1).SetTextColor(cl.theme.FgColor).SetAttributes(attr))
		cl.SetCell(row, 1, tview.NewTableCell(" "+clean(c.LastMessagePreview)).SetExpansion(3).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(unread).SetAlign(tview.AlignRight).SetTextColor(cl.theme.CounterColor))
		cl.SetCell(row, 3, tview.NewTableCell(formatTimestamp(c.LastMessageAtUnixMs, now)).SetAlign(tview.AlignRight).SetTextColor(cl.theme.MutedColor))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Chats (%d/%d) /%s ", len(cl.visible), len(cl.chats), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Chats (%d) ", len(cl.chats)))
	}
}

// SelectedChat returns the id of the highlighted chat.
func (cl *ChatList) SelectedChat() string {
	row, _ := cl.GetSelection()
	return cl.ChatAt(row)
}

// ChatAt returns the id of the nth visible chat (1-based), or "".
func (cl *ChatList) ChatAt(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1]
}

// SelectChat highlights chatID when it is visible, the first row otherwise.
func (cl *ChatList) SelectChat(chatID string) {
	row := 1
	for i, id := range cl.visible {
		if id == chatID {
			row = i + 1
			break
		}
	}
	if len(cl.visible) > 0 {
		cl.Select(row, 0)
	}
}
