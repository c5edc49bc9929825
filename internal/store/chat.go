package store

import (
	"context"
	"fmt"

	"github.com/matheus3301/chatsync/internal/bus"
	"go.uber.org/zap"
)

// LoadChats replaces the chat collection with a fresh fetch. Records without
// an id or participants are dropped. Server order is preserved.
func (s *Store) LoadChats(ctx context.Context) ([]Chat, error) {
	if s.lister == nil {
		return nil, fmt.Errorf("load chats: no chat lister configured")
	}
	fetched, err := s.lister.ListChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chats: %w", err)
	}

	order := make([]string, 0, len(fetched))
	chats := make(map[string]*Chat, len(fetched))
	for _, c := range fetched {
		if !c.Valid() {
			s.logger.Warn("dropping malformed chat", zap.String("chat_id", c.ID), zap.Int("participants", len(c.Participants)))
			continue
		}
		if _, dup := chats[c.ID]; dup {
			continue
		}
		c = c.Clone()
		if c.UnreadCount == nil {
			c.UnreadCount = make(map[string]int)
		}
		order = append(order, c.ID)
		chats[c.ID] = &c
	}

	s.mu.Lock()
	s.order = order
	s.chats = chats
	out := s.chatsLocked()
	s.mu.Unlock()

	s.logger.Info("chats loaded", zap.Int("count", len(out)), zap.Int("dropped", len(fetched)-len(out)))
	s.publish(bus.KindChatsLoaded, "", out)
	return out, nil
}

// UpsertChat inserts or replaces a single chat summary, e.g. one returned by
// chat creation. Malformed chats are dropped and false is returned.
func (s *Store) UpsertChat(c Chat) bool {
	if !c.Valid() {
		s.logger.Warn("dropping malformed chat", zap.String("chat_id", c.ID))
		return false
	}
	c = c.Clone()
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int)
	}

	s.mu.Lock()
	if _, ok := s.chats[c.ID]; !ok {
		s.order = append([]string{c.ID}, s.order...)
	}
	s.chats[c.ID] = &c
	out := c.Clone()
	s.mu.Unlock()

	s.publish(bus.KindChatUpdated, c.ID, out)
	return true
}

// Chats returns the chat summaries in display order.
func (s *Store) Chats() []Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatsLocked()
}

// Chat returns a single chat summary.
func (s *Store) Chat(id string) (Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok {
		return Chat{}, false
	}
	return c.Clone(), true
}

func (s *Store) chatsLocked() []Chat {
	out := make([]Chat, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.chats[id].Clone())
	}
	return out
}

// touchChatLocked refreshes the denormalized last message of a chat and, for
// a newly appended message, bumps the unread counters of the other
// participants. Returns the updated chat, or false if the chat is unknown.
func (s *Store) touchChatLocked(chatID string, msg Message, replacedID string, appended bool) (Chat, bool) {
	c, ok := s.chats[chatID]
	if !ok {
		return Chat{}, false
	}
	last := c.LastMessage
	if last == nil || last.ID == msg.ID || last.ID == replacedID || !msg.CreatedAt.Before(last.CreatedAt) {
		m := msg.Clone()
		c.LastMessage = &m
	}
	if appended {
		for _, p := range c.Participants {
			if p.ID == msg.Sender.ID || msg.IsReadBy(p.ID) {
				continue
			}
			c.UnreadCount[p.ID]++
		}
	}
	// Most recently active chat first.
	s.moveToFrontLocked(chatID)
	return c.Clone(), true
}

func (s *Store) moveToFrontLocked(chatID string) {
	for i, id := range s.order {
		if id != chatID {
			continue
		}
		if i > 0 {
			copy(s.order[1:i+1], s.order[:i])
			s.order[0] = chatID
		}
		return
	}
}
