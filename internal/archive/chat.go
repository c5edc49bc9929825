package archive

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/chatsync/internal/store"
)

// UpsertChat inserts or updates a chat summary.
func (db *DB) UpsertChat(c store.Chat) error {
	participants, err := json.Marshal(c.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	unread, err := json.Marshal(c.UnreadCount)
	if err != nil {
		return fmt.Errorf("encode unread counts: %w", err)
	}
	var lastID, preview string
	var lastAt int64
	if c.LastMessage != nil && !c.LastMessage.Pending() {
		lastID = c.LastMessage.ID
		preview = c.LastMessage.Content
		lastAt = c.LastMessage.CreatedAt.UnixMilli()
	}
	_, err = db.Exec(`
		INSERT INTO chats (id, participants, unread_counts, last_message_id, last_message_preview, last_message_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			participants = excluded.participants,
			unread_counts = excluded.unread_counts,
			last_message_id = CASE WHEN excluded.last_message_at >= chats.last_message_at AND excluded.last_message_id != ''
				THEN excluded.last_message_id ELSE chats.last_message_id END,
			last_message_preview = CASE WHEN excluded.last_message_at >= chats.last_message_at AND excluded.last_message_id != ''
				THEN excluded.last_message_preview ELSE chats.last_message_preview END,
			last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
			updated_at = excluded.updated_at`,
		c.ID, string(participants), string(unread), lastID, preview, lastAt, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert chat %s: %w", c.ID, err)
	}
	return nil
}

// ChatSummary is an archived chat row.
type ChatSummary struct {
	ID                 string
	Participants       []store.Participant
	UnreadCount        map[string]int
	LastMessageID      string
	LastMessagePreview string
	LastMessageAt      time.Time
}

// ListChats returns archived chats sorted by last activity, newest first.
func (db *DB) ListChats(limit, offset int) ([]ChatSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, participants, unread_counts, last_message_id, last_message_preview, last_message_at
		FROM chats
		ORDER BY last_message_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []ChatSummary
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single archived chat, or nil when it is unknown.
func (db *DB) GetChat(id string) (*ChatSummary, error) {
	row := db.QueryRow(`
		SELECT id, participants, unread_counts, last_message_id, last_message_preview, last_message_at
		FROM chats WHERE id = ?`, id)
	c, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountChats returns the number of archived chats.
func (db *DB) CountChats() (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM chats`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanChat(row scanner) (ChatSummary, error) {
	var (
		c                    ChatSummary
		participants, unread string
		lastAt               int64
	)
	if err := row.Scan(&c.ID, &participants, &unread, &c.LastMessageID, &c.LastMessagePreview, &lastAt); err != nil {
		return ChatSummary{}, err
	}
	if err := json.Unmarshal([]byte(participants), &c.Participants); err != nil {
		return ChatSummary{}, fmt.Errorf("decode participants of %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(unread), &c.UnreadCount); err != nil {
		return ChatSummary{}, fmt.Errorf("decode unread counts of %s: %w", c.ID, err)
	}
	if lastAt > 0 {
		c.LastMessageAt = time.UnixMilli(lastAt).UTC()
	}
	return c, nil
}
