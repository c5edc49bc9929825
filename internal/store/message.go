package store

import (
	"slices"
	"strings"

	"github.com/matheus3301/chatsync/internal/bus"
	"go.uber.org/zap"
)

// AppendOptimistic stores a locally originated message under a temporary
// identifier and returns it immediately, before any network round-trip.
func (s *Store) AppendOptimistic(chatID, content string, sender Participant) Message {
	id := s.newID()
	if !strings.HasPrefix(id, TempIDPrefix) {
		id = TempIDPrefix + id
	}
	msg := Message{
		ID:        id,
		ChatID:    chatID,
		Sender:    sender,
		Content:   content,
		CreatedAt: s.now(),
		ReadBy:    []string{sender.ID},
	}

	s.mu.Lock()
	s.messages[chatID] = append(s.messages[chatID], msg)
	chat, known := s.touchChatLocked(chatID, msg, "", false)
	s.mu.Unlock()

	s.publish(bus.KindMessageOptimistic, chatID, msg.Clone())
	if known {
		s.publish(bus.KindChatUpdated, chatID, chat)
	}
	return msg.Clone()
}

// UpsertMessage applies a server-confirmed message. An existing id is updated
// in place; otherwise the oldest matching optimistic placeholder is replaced
// at its position; otherwise the message is appended.
func (s *Store) UpsertMessage(chatID string, msg Message) UpsertResult {
	if msg.ChatID == "" {
		msg.ChatID = chatID
	}
	msg = msg.Clone()

	s.mu.Lock()
	list := s.messages[chatID]
	res := UpsertResult{Index: -1}

	if i := indexOf(list, msg.ID); i >= 0 {
		// Redelivery, or a copy already merged from a history page: only the
		// readBy set can change.
		msg.ReadBy = unionReadBy(list[i].ReadBy, msg.ReadBy)
		list[i] = msg
		res.Index = i
		res.Updated = true
	} else if j := matchOptimistic(list, msg); j >= 0 {
		res.TempID = list[j].ID
		msg.ReadBy = unionReadBy(list[j].ReadBy, msg.ReadBy)
		list[j] = msg
		res.Index = j
		res.Replaced = true
	} else {
		list = append(list, msg)
		res.Index = len(list) - 1
		res.Appended = true
	}
	s.messages[chatID] = list
	chat, known := s.touchChatLocked(chatID, msg, res.TempID, res.Appended)
	s.mu.Unlock()

	s.publish(bus.KindMessageConfirmed, chatID, msg.Clone())
	if known {
		s.publish(bus.KindChatUpdated, chatID, chat)
	}
	return res
}

// MarkRead adds userID to the readBy set of a message and decrements the
// user's unread counter, floored at zero. Repeated calls are no-ops.
// Returns true when the message changed.
func (s *Store) MarkRead(chatID, messageID, userID string) bool {
	s.mu.Lock()
	list := s.messages[chatID]
	i := indexOf(list, messageID)
	if i < 0 || list[i].IsReadBy(userID) {
		s.mu.Unlock()
		return false
	}
	list[i].ReadBy = append(slices.Clone(list[i].ReadBy), userID)
	updated := list[i].Clone()

	var chat Chat
	c, known := s.chats[chatID]
	if known {
		if n := c.UnreadCount[userID]; n > 0 {
			c.UnreadCount[userID] = n - 1
		}
		if c.LastMessage != nil && c.LastMessage.ID == messageID {
			last := updated.Clone()
			c.LastMessage = &last
		}
		chat = c.Clone()
	}
	s.mu.Unlock()

	s.publish(bus.KindMessageRead, chatID, updated)
	if known {
		s.publish(bus.KindChatUpdated, chatID, chat)
	}
	return true
}

// Messages returns the chat's messages in chronological (storage) order.
func (s *Store) Messages(chatID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.messages[chatID]
	out := make([]Message, len(list))
	for i, m := range list {
		out[i] = m.Clone()
	}
	return out
}

// MessagesNewestFirst returns the reverse view of Messages, for display.
func (s *Store) MessagesNewestFirst(chatID string) []Message {
	out := s.Messages(chatID)
	slices.Reverse(out)
	return out
}

// Message returns a single message by id.
func (s *Store) Message(chatID, messageID string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.messages[chatID]
	if i := indexOf(list, messageID); i >= 0 {
		return list[i].Clone(), true
	}
	return Message{}, false
}

// PendingCount returns how many optimistic messages await confirmation.
func (s *Store) PendingCount(chatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages[chatID] {
		if m.Pending() {
			n++
		}
	}
	return n
}

// ReplaceMessages installs the newest history page of a chat. Entries that
// are not in the page and are either still pending or newer than the page's
// newest message were inserted while the page was in flight; they are kept
// after the page so no send or inbound event is lost. A page entry that is new
// to the list retires the oldest placeholder it confirms, as an inbound
// confirmation would. page must be in chronological order.
func (s *Store) ReplaceMessages(chatID string, page []Message) PageMerge {
	s.mu.Lock()
	old := s.messages[chatID]
	var placeholders []Message
	for _, m := range old {
		if m.Pending() {
			placeholders = append(placeholders, m)
		}
	}

	var res PageMerge
	seen := make(map[string]struct{}, len(page))
	retired := make(map[string]Message)
	merged := make([]Message, 0, len(page)+len(old))
	for _, m := range page {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		m = m.Clone()
		if i := indexOf(old, m.ID); i >= 0 {
			m.ReadBy = unionReadBy(m.ReadBy, old[i].ReadBy)
		} else {
			if j := matchOptimistic(placeholders, m); j >= 0 {
				tmp := placeholders[j]
				placeholders = slices.Delete(placeholders, j, j+1)
				m.ReadBy = unionReadBy(tmp.ReadBy, m.ReadBy)
				retired[tmp.ID] = m
				res.Retired = append(res.Retired, tmp.ID)
			}
			res.Added = append(res.Added, m.Clone())
		}
		merged = append(merged, m)
	}

	var newest Message
	if len(merged) > 0 {
		newest = merged[len(merged)-1]
	}
	for _, m := range old {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		if _, ok := retired[m.ID]; ok {
			continue
		}
		if m.Pending() || len(merged) == 0 || m.CreatedAt.After(newest.CreatedAt) {
			merged = append(merged, m)
		}
	}
	s.messages[chatID] = merged

	var chat Chat
	touched := false
	if c, ok := s.chats[chatID]; ok && c.LastMessage != nil {
		if confirmed, ok := retired[c.LastMessage.ID]; ok {
			last := confirmed.Clone()
			c.LastMessage = &last
			chat, touched = c.Clone(), true
		}
	}
	s.mu.Unlock()

	s.logger.Debug("history page installed",
		zap.String("chat_id", chatID),
		zap.Int("messages", len(merged)),
		zap.Strings("retired", res.Retired),
	)
	s.publish(bus.KindMessagesPage, chatID, res.Added)
	if touched {
		s.publish(bus.KindChatUpdated, chatID, chat)
	}
	return res
}

// PrependMessages splices an older history page in front of the list,
// skipping identifiers that are already present. page must be in
// chronological order. Returns the messages that were added.
func (s *Store) PrependMessages(chatID string, page []Message) []Message {
	s.mu.Lock()
	list := s.messages[chatID]
	seen := make(map[string]struct{}, len(list)+len(page))
	for _, m := range list {
		seen[m.ID] = struct{}{}
	}
	added := make([]Message, 0, len(page))
	for _, m := range page {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		added = append(added, m.Clone())
	}
	s.messages[chatID] = append(added, list...)
	out := make([]Message, len(added))
	for i, m := range added {
		out[i] = m.Clone()
	}
	s.mu.Unlock()

	s.publish(bus.KindMessagesPage, chatID, out)
	return out
}
