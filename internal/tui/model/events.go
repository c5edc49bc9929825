package model

import (
	"strings"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/conn"
	"github.com/matheus3301/chatsync/internal/outbox"
	"github.com/matheus3301/chatsync/internal/tui/ui"
)

// Change tells the app which panes an event invalidated.
type Change uint8

const (
	ChangeChats Change = 1 << iota
	ChangeThread
	ChangeStatus
)

// Has reports whether c includes part.
func (c Change) Has(part Change) bool { return c&part != 0 }

// Classify maps a daemon event to the panes it invalidates given the chat
// currently open.
func Classify(kind, chatID, active string) Change {
	switch {
	case kind == bus.KindChatsLoaded || kind == bus.KindChatUpdated:
		return ChangeChats
	case kind == outbox.KindQueued || kind == outbox.KindResent || kind == outbox.KindExpired:
		c := ChangeStatus
		if chatID != "" && chatID == active {
			c |= ChangeThread
		}
		return c
	case strings.HasPrefix(kind, "message"):
		c := ChangeChats
		if chatID != "" && chatID == active {
			c |= ChangeThread
		}
		return c
	case strings.HasPrefix(kind, "conn."), strings.HasPrefix(kind, "session."):
		return ChangeStatus
	}
	return 0
}

// Notice is a flash message raised by an event.
type Notice struct {
	Text  string
	Level ui.FlashLevel
}

// NoticeFor returns the flash message an event deserves, if any.
func NoticeFor(kind string) (Notice, bool) {
	switch kind {
	case bus.ConnKind(conn.SignalDisconnect):
		return Notice{Text: "Connection lost, reconnecting...", Level: ui.FlashWarn}, true
	case bus.ConnKind(conn.SignalReconnect):
		return Notice{Text: "Reconnected", Level: ui.FlashInfo}, true
	case bus.ConnKind(conn.SignalReconnectFailed):
		return Notice{Text: "Could not reach the server. :reconnect to try again", Level: ui.FlashErr}, true
	case bus.KindUnauthorized:
		return Notice{Text: "Session expired. Update the token and :reconnect", Level: ui.FlashErr}, true
	case outbox.KindQueued:
		return Notice{Text: "Offline: message will be sent on reconnect", Level: ui.FlashWarn}, true
	case outbox.KindExpired:
		return Notice{Text: "A queued message was dropped after waiting too long", Level: ui.FlashWarn}, true
	}
	return Notice{}, false
}
