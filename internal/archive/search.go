package archive

import "github.com/matheus3301/chatsync/internal/store"

// SearchResult is a full-text match with a highlighted excerpt.
type SearchResult struct {
	Message store.Message
	Snippet string
}

// SearchMessages performs a full-text search on archived message bodies,
// newest first. An empty chatID searches every chat.
func (db *DB) SearchMessages(query, chatID string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `
		SELECT m.chat_id, m.msg_id, m.sender_id, m.sender_name, m.body, m.read_by, m.created_at,
		       snippet(messages_fts, '<<', '>>', '...', -1, 16)
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.docid
		WHERE messages_fts MATCH ?`

	args := []any{query}
	if chatID != "" {
		q += " AND m.chat_id = ?"
		args = append(args, chatID)
	}
	q += " ORDER BY m.created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		m, err := scanMessage(rows, &r.Snippet)
		if err != nil {
			return nil, err
		}
		r.Message = m
		results = append(results, r)
	}
	return results, rows.Err()
}
