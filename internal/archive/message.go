package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/chatsync/internal/store"
)

// UpsertMessage inserts or updates a confirmed message (idempotent on
// chat_id + msg_id). Optimistic placeholders are never archived.
func (db *DB) UpsertMessage(m store.Message) error {
	if m.Pending() || !m.Valid() {
		return nil
	}
	readBy, err := json.Marshal(m.ReadBy)
	if err != nil {
		return fmt.Errorf("encode read_by: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO messages (chat_id, msg_id, sender_id, sender_name, body, read_by, created_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, msg_id) DO UPDATE SET
			sender_name = excluded.sender_name,
			body = excluded.body,
			read_by = excluded.read_by`,
		m.ChatID, m.ID, m.Sender.ID, m.Sender.Name, m.Content, string(readBy),
		m.CreatedAt.UnixMilli(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert message %s: %w", m.ID, err)
	}
	return nil
}

// ListMessages returns archived messages for a chat, newest first, using
// keyset pagination on creation time. A zero before lists from the latest.
func (db *DB) ListMessages(chatID string, before time.Time, limit int) ([]store.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	beforeTs := before.UnixMilli()
	if before.IsZero() {
		beforeTs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT chat_id, msg_id, sender_id, sender_name, body, read_by, created_at
		FROM messages
		WHERE chat_id = ? AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?`, chatID, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []store.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountMessages returns the number of archived messages.
func (db *DB) CountMessages() (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner, extra ...any) (store.Message, error) {
	var (
		m       store.Message
		readBy  string
		created int64
	)
	dest := append([]any{&m.ChatID, &m.ID, &m.Sender.ID, &m.Sender.Name, &m.Content, &readBy, &created}, extra...)
	if err := row.Scan(dest...); err != nil {
		return store.Message{}, err
	}
	m.CreatedAt = time.UnixMilli(created).UTC()
	if err := json.Unmarshal([]byte(readBy), &m.ReadBy); err != nil {
		return store.Message{}, fmt.Errorf("decode read_by of %s: %w", m.ID, err)
	}
	return m, nil
}
