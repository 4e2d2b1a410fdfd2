package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const messageColumns = `id::text, conversation_kind, conversation_id::text, sender_id::text,
	content, message_type, file_url, read, read_at, created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ConversationKind, &m.ConversationID, &m.SenderID,
		&m.Content, &m.MessageType, &m.FileURL, &m.Read, &m.ReadAt, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	return m, err
}

// CreateMessageParams carries the fields for a new message row.
type CreateMessageParams struct {
	ID               string
	ConversationKind string
	ConversationID   string
	SenderID         string
	Content          string
	MessageType      string
	FileURL          string
}

// CreateMessage inserts one message and returns the persisted row. The caller
// supplies the ID so the authoritative message object is known before the
// insert round trip completes.
func (s *Store) CreateMessage(ctx context.Context, p CreateMessageParams) (Message, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_kind, conversation_id, sender_id, content, message_type, file_url)
		VALUES ($1::uuid, $2, $3::uuid, $4::uuid, $5, $6, $7)
		RETURNING `+messageColumns,
		p.ID, p.ConversationKind, p.ConversationID, p.SenderID, p.Content, p.MessageType, p.FileURL)
	return scanMessage(row)
}

// MessagesForConversation returns up to limit messages of one conversation,
// newest first, created strictly before the given cursor when before is
// non-zero. This is the history read path clients use to reconcile after a
// reconnect.
func (s *Store) MessagesForConversation(ctx context.Context, kind, conversationID string, limit int, beforeID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_kind = $1 AND conversation_id = $2::uuid
		  AND ($4 = '' OR created_at < (SELECT created_at FROM messages WHERE id = $4::uuid))
		ORDER BY created_at DESC
		LIMIT $3`,
		kind, conversationID, limit, beforeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkConversationRead marks every unread message in the conversation whose
// sender is not the reader as read, in a single set-based update. It returns
// the number of rows changed; re-marking is a no-op, which keeps concurrent
// calls from multiple devices of the same reader idempotent.
func (s *Store) MarkConversationRead(ctx context.Context, kind, conversationID, readerID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET read = TRUE, read_at = now()
		WHERE conversation_kind = $1 AND conversation_id = $2::uuid
		  AND sender_id <> $3::uuid AND read = FALSE`,
		kind, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// TouchConversation advances the conversation's last-activity pointer.
func (s *Store) TouchConversation(ctx context.Context, kind, conversationID string) error {
	var err error
	switch kind {
	case KindChat:
		_, err = s.pool.Exec(ctx, `
			UPDATE chats SET last_activity_at = now() WHERE id = $1::uuid`, conversationID)
	case KindRoom:
		_, err = s.pool.Exec(ctx, `
			UPDATE rooms SET last_activity_at = now() WHERE id = $1::uuid`, conversationID)
	default:
		err = ErrNotFound
	}
	return err
}
