package apiv1

import "encoding/json"

type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Message struct {
	ID              string   `json:"id"`
	ChatID          string   `json:"chat_id"`
	SenderID        string   `json:"sender_id"`
	SenderName      string   `json:"sender_name"`
	Content         string   `json:"content"`
	CreatedAtUnixMs int64    `json:"created_at_unix_ms"`
	ReadBy          []string `json:"read_by,omitempty"`
	Pending         bool     `json:"pending,omitempty"`
}

type Chat struct {
	ID                  string      `json:"id"`
	Peer                Participant `json:"peer"`
	LastMessagePreview  string      `json:"last_message_preview,omitempty"`
	LastMessageAtUnixMs int64       `json:"last_message_at_unix_ms,omitempty"`
	UnreadCount         int         `json:"unread_count"`
}

// SessionService

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Profile              string `json:"profile"`
	UserID               string `json:"user_id"`
	UserName             string `json:"user_name"`
	State                string `json:"state"`
	ActiveChat           string `json:"active_chat,omitempty"`
	UptimeMs             int64  `json:"uptime_ms"`
	ChatCount            int    `json:"chat_count"`
	QueuedSends          int    `json:"queued_sends"`
	ArchivedChatCount    int    `json:"archived_chat_count"`
	ArchivedMessageCount int    `json:"archived_message_count"`
}

type ReconnectRequest struct{}

type ReconnectResponse struct {
	State string `json:"state"`
}

// ChatService

type ListChatsRequest struct {
	// Archived lists chats from the local archive instead of the live
	// session.
	Archived bool `json:"archived,omitempty"`
	Limit    int  `json:"limit,omitempty"`
}

type ListChatsResponse struct {
	Chats []Chat `json:"chats"`
}

type RefreshChatsRequest struct{}

type StartChatRequest struct {
	UserID string `json:"user_id"`
}

type StartChatResponse struct {
	Chat Chat `json:"chat"`
}

type WatchEventsRequest struct {
	// Namespace filters by event kind prefix ("message", "conn."). Empty
	// streams everything.
	Namespace string `json:"namespace,omitempty"`
	ChatID    string `json:"chat_id,omitempty"`
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	Profile          string          `json:"profile"`
	Kind             string          `json:"kind"`
	ChatID           string          `json:"chat_id,omitempty"`
	OccurredAtUnixMs int64           `json:"occurred_at_unix_ms"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

// MessageService

type OpenChatRequest struct {
	ChatID string `json:"chat_id"`
}

type CloseChatRequest struct{}

type CloseChatResponse struct{}

type LoadOlderRequest struct {
	ChatID string `json:"chat_id"`
}

// PageResponse carries the chat's current message list after a page load.
type PageResponse struct {
	Messages  []Message `json:"messages"`
	Added     int       `json:"added"`
	Page      int       `json:"page"`
	HasMore   bool      `json:"has_more"`
	Coalesced bool      `json:"coalesced,omitempty"`
	Discarded bool      `json:"discarded,omitempty"`
}

type ListMessagesRequest struct {
	ChatID       string `json:"chat_id"`
	Archived     bool   `json:"archived,omitempty"`
	BeforeUnixMs int64  `json:"before_unix_ms,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type SendTextRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type SendTextResponse struct {
	Message Message `json:"message"`
	// Sent is false when the connection was not up; the message stays
	// pending and is replayed after the next connect.
	Sent bool `json:"sent"`
}

type MarkReadRequest struct {
	ChatID string `json:"chat_id"`
}

type MarkReadResponse struct {
	Acknowledged int `json:"acknowledged"`
}

type SearchRequest struct {
	Query  string `json:"query"`
	ChatID string `json:"chat_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type SearchResult struct {
	Message Message `json:"message"`
	Snippet string  `json:"snippet"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}
