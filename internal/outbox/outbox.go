// Package outbox holds optimistic sends that the socket rejected while the
// connection was down and replays them once it is back. Entries live in
// memory only and die with the process.
package outbox

import (
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"go.uber.org/zap"
)

// Event kinds published by the outbox.
const (
	KindQueued  = "message.send_queued"
	KindResent  = "message.send_resent"
	KindExpired = "message.send_expired"
)

// Publisher writes one socket event, reporting whether it went out.
type Publisher interface {
	Send(event string, payload any) bool
}

// PendingFunc reports whether the optimistic message tempID of chatID is
// still waiting for its server echo.
type PendingFunc func(chatID, tempID string) bool

// Entry is one queued send.
type Entry struct {
	ChatID   string
	TempID   string
	Event    string
	Payload  any
	QueuedAt time.Time
}

// Outbox queues rejected sends in FIFO order.
type Outbox struct {
	pub     Publisher
	pending PendingFunc
	bus     *bus.Bus
	logger  *zap.Logger
	maxAge  time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries []Entry
}

// New creates an outbox. Entries older than maxAge are dropped on flush;
// zero keeps them until the process exits.
func New(pub Publisher, pending PendingFunc, b *bus.Bus, maxAge time.Duration, logger *zap.Logger) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{
		pub:     pub,
		pending: pending,
		bus:     b,
		logger:  logger,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Send publishes immediately when possible and queues the entry otherwise.
// It reports whether the event went out now.
func (o *Outbox) Send(chatID, tempID, event string, payload any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Earlier entries go first so the peer sees messages in typing order.
	if len(o.entries) == 0 && o.pub.Send(event, payload) {
		return true
	}
	o.entries = append(o.entries, Entry{
		ChatID:   chatID,
		TempID:   tempID,
		Event:    event,
		Payload:  payload,
		QueuedAt: o.now(),
	})
	o.logger.Info("send queued", zap.String("chat_id", chatID), zap.String("temp_id", tempID), zap.Int("queued", len(o.entries)))
	o.publish(KindQueued, chatID, tempID)
	return false
}

// Flush replays queued entries in order and returns how many went out.
// Entries whose message was confirmed or aged out are dropped; the first
// rejected entry stops the flush and keeps the rest queued.
func (o *Outbox) Flush() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	sent := 0
	now := o.now()
	for len(o.entries) > 0 {
		e := o.entries[0]
		if !o.pending(e.ChatID, e.TempID) {
			o.entries = o.entries[1:]
			continue
		}
		if o.maxAge > 0 && now.Sub(e.QueuedAt) > o.maxAge {
			o.logger.Warn("queued send expired", zap.String("chat_id", e.ChatID), zap.String("temp_id", e.TempID))
			o.publish(KindExpired, e.ChatID, e.TempID)
			o.entries = o.entries[1:]
			continue
		}
		if !o.pub.Send(e.Event, e.Payload) {
			break
		}
		o.entries = o.entries[1:]
		sent++
		o.publish(KindResent, e.ChatID, e.TempID)
	}
	if sent > 0 {
		o.logger.Info("outbox flushed", zap.Int("sent", sent), zap.Int("remaining", len(o.entries)))
	}
	return sent
}

// Len returns the number of queued entries.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

func (o *Outbox) publish(kind, chatID, tempID string) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(bus.Event{
		Kind:      kind,
		ChatID:    chatID,
		Timestamp: o.now(),
		Payload:   map[string]string{"temp_id": tempID},
	})
}
