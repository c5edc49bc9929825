package store

import (
	"slices"
	"strings"
	"time"
)

// TempIDPrefix marks the identifier of a message that was inserted locally
// and has not been confirmed by the server yet.
const TempIDPrefix = "tmp_"

// Participant is the minimal profile of a chat member or message sender.
type Participant struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Message is a single text unit within a chat.
type Message struct {
	ID        string      `json:"_id"`
	ChatID    string      `json:"chatId"`
	Sender    Participant `json:"sender"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	ReadBy    []string    `json:"readBy"`
}

// Pending reports whether the message is an optimistic placeholder.
func (m Message) Pending() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Valid reports whether the record carries the fields the engine keys on.
func (m Message) Valid() bool {
	return m.ID != "" && m.ChatID != "" && m.Sender.ID != ""
}

// IsReadBy reports whether userID is in the message's readBy set.
func (m Message) IsReadBy(userID string) bool {
	return slices.Contains(m.ReadBy, userID)
}

// Clone returns a deep copy.
func (m Message) Clone() Message {
	m.ReadBy = slices.Clone(m.ReadBy)
	return m
}

// Chat is a two-participant conversation summary.
type Chat struct {
	ID           string         `json:"_id"`
	Participants []Participant  `json:"participants"`
	LastMessage  *Message       `json:"lastMessage,omitempty"`
	UnreadCount  map[string]int `json:"unreadCount"`
}

// Valid reports whether the chat has an id and at least one participant.
func (c Chat) Valid() bool {
	return c.ID != "" && len(c.Participants) > 0
}

// Peer returns the participant that is not userID.
func (c Chat) Peer(userID string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.ID != userID {
			return p, true
		}
	}
	return Participant{}, false
}

// Unread returns the unread counter of userID.
func (c Chat) Unread(userID string) int {
	return c.UnreadCount[userID]
}

// Clone returns a deep copy.
func (c Chat) Clone() Chat {
	c.Participants = slices.Clone(c.Participants)
	if c.LastMessage != nil {
		last := c.LastMessage.Clone()
		c.LastMessage = &last
	}
	if c.UnreadCount != nil {
		counts := make(map[string]int, len(c.UnreadCount))
		for k, v := range c.UnreadCount {
			counts[k] = v
		}
		c.UnreadCount = counts
	}
	return c
}

// UpsertResult describes what UpsertMessage did with an inbound message.
type UpsertResult struct {
	// Index is the position of the message in the chat's chronological list.
	Index int
	// Replaced is set when an optimistic placeholder was swapped in place.
	Replaced bool
	// Updated is set when a message with the same id already existed.
	Updated bool
	// Appended is set when the message was added at the end of the list.
	Appended bool
	// TempID is the identifier of the retired optimistic placeholder, if any.
	TempID string
}

// PageMerge describes what ReplaceMessages did with a history page.
type PageMerge struct {
	// Added are the page entries that were new to the chat's list.
	Added []Message
	// Retired lists the placeholders whose confirmed copy was in the page,
	// oldest first.
	Retired []string
}
