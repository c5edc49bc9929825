package bus

import "time"

// Event kinds published by the engine. Subscribers filter by prefix, so
// "message." receives every message event and "conn." every connection signal.
const (
	KindChatsLoaded       = "chats.loaded"
	KindChatUpdated       = "chat.updated"
	KindMessageOptimistic = "message.optimistic"
	KindMessageConfirmed  = "message.confirmed"
	KindMessageRead       = "message.read"
	KindMessagesPage      = "messages.page"
	KindConnStateChanged  = "conn.state_changed"
	KindUnauthorized      = "session.unauthorized"
)

// ConnKind returns the bus kind mirroring a connection lifecycle signal.
func ConnKind(signal string) string {
	return "conn." + signal
}

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	ChatID    string
	Timestamp time.Time
	Payload   any
}
