// Package receipts acknowledges messages the user has seen.
package receipts

import (
	"sync"

	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// EventMessageRead is the outbound receipt event.
const EventMessageRead = "messageRead"

// Receipt is the payload of a messageRead event.
type Receipt struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// Sender is the part of the connection the tracker needs.
type Sender interface {
	Send(event string, payload any) bool
	State() status.State
}

// Tracker emits read receipts for the messages of an observed chat and
// records them in the store. Each message is acknowledged at most once: the
// store's readBy set is the record, and a claim is held only while a receipt
// is being sent.
type Tracker struct {
	conn   Sender
	store  *store.Store
	userID string
	logger *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewTracker creates a tracker acknowledging on behalf of userID.
func NewTracker(conn Sender, s *store.Store, userID string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		conn:     conn,
		store:    s,
		userID:   userID,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Observe acknowledges every confirmed message of chatID sent by the peer
// that the user has not read yet, and returns how many receipts were sent.
// Nothing happens while disconnected; callers observe again after reconnect.
func (t *Tracker) Observe(chatID string) int {
	if t.conn.State() != status.Connected {
		return 0
	}

	sent := 0
	for _, m := range t.store.Messages(chatID) {
		if m.Sender.ID == t.userID || m.Pending() || m.IsReadBy(t.userID) {
			continue
		}
		if t.acknowledge(chatID, m.ID) {
			sent++
		}
	}
	if sent > 0 {
		t.logger.Debug("receipts sent", zap.String("chat_id", chatID), zap.Int("count", sent))
	}
	return sent
}

func (t *Tracker) acknowledge(chatID, messageID string) bool {
	if !t.claim(messageID) {
		return false
	}
	defer t.release(messageID)

	// Another observer may have finished this receipt since the snapshot.
	if m, ok := t.store.Message(chatID, messageID); !ok || m.IsReadBy(t.userID) {
		return false
	}
	if !t.conn.Send(EventMessageRead, Receipt{MessageID: messageID, UserID: t.userID}) {
		t.logger.Debug("receipt not sent", zap.String("chat_id", chatID), zap.String("msg_id", messageID))
		return false
	}
	t.store.MarkRead(chatID, messageID, t.userID)
	return true
}

func (t *Tracker) claim(messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[messageID]; ok {
		return false
	}
	t.inflight[messageID] = struct{}{}
	return true
}

func (t *Tracker) release(messageID string) {
	t.mu.Lock()
	delete(t.inflight, messageID)
	t.mu.Unlock()
}
