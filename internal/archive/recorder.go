package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Recorder persists confirmed store changes into the archive.
// It follows the store through its bus notifications and never reads it back.
type Recorder struct {
	db     *DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecorder creates a recorder writing to db.
func NewRecorder(db *DB, b *bus.Bus, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{db: db, bus: b, logger: logger}
}

// Start subscribes to chat and message events on the bus.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	// "chat" covers both chat.updated and chats.loaded.
	chats, unsubChats := r.bus.Subscribe("chat", 256)
	msgs, unsubMsgs := r.bus.Subscribe("message", 1024)

	go func() {
		defer close(r.done)
		defer unsubChats()
		defer unsubMsgs()
		for {
			select {
			case evt := <-chats:
				r.handleEvent(evt)
			case evt := <-msgs:
				r.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the recorder and waits for the in-flight write.
func (r *Recorder) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *Recorder) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindMessageConfirmed, bus.KindMessageRead:
		msg, ok := evt.Payload.(store.Message)
		if !ok {
			return
		}
		if err := r.db.UpsertMessage(msg); err != nil {
			r.logger.Error("failed to archive message", zap.Error(err), zap.String("msg_id", msg.ID))
		}
	case bus.KindMessagesPage:
		msgs, ok := evt.Payload.([]store.Message)
		if !ok || len(msgs) == 0 {
			return
		}
		if err := r.IngestPage(msgs); err != nil {
			r.logger.Error("failed to archive page", zap.Error(err), zap.String("chat_id", evt.ChatID), zap.Int("count", len(msgs)))
		}
	case bus.KindChatUpdated:
		chat, ok := evt.Payload.(store.Chat)
		if !ok {
			return
		}
		if err := r.db.UpsertChat(chat); err != nil {
			r.logger.Error("failed to archive chat", zap.Error(err), zap.String("chat_id", chat.ID))
		}
	case bus.KindChatsLoaded:
		chats, ok := evt.Payload.([]store.Chat)
		if !ok {
			return
		}
		for _, c := range chats {
			if err := r.db.UpsertChat(c); err != nil {
				r.logger.Error("failed to archive chat", zap.Error(err), zap.String("chat_id", c.ID))
			}
		}
		r.logger.Debug("chat list archived", zap.Int("chats", len(chats)))
	}
}

// IngestPage archives a history page in a single transaction.
func (r *Recorder) IngestPage(msgs []store.Message) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	count := 0
	now := time.Now().UnixMilli()
	for _, m := range msgs {
		if m.Pending() || !m.Valid() {
			continue
		}
		readBy, err := json.Marshal(m.ReadBy)
		if err != nil {
			return fmt.Errorf("encode read_by: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO messages (chat_id, msg_id, sender_id, sender_name, body, read_by, created_at, archived_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chat_id, msg_id) DO UPDATE SET
				sender_name = excluded.sender_name,
				body = excluded.body,
				read_by = excluded.read_by`,
			m.ChatID, m.ID, m.Sender.ID, m.Sender.Name, m.Content, string(readBy), m.CreatedAt.UnixMilli(), now); err != nil {
			return fmt.Errorf("upsert message in page: %w", err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit page: %w", err)
	}
	r.logger.Debug("history page archived", zap.Int("messages", count))
	return nil
}
