package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const chatColumns = `id::text, participant_a::text, participant_b::text, last_activity_at, created_at`

func scanChat(row pgx.Row) (Chat, error) {
	var c Chat
	err := row.Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.LastActivityAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Chat{}, ErrNotFound
	}
	return c, err
}

// orderPair normalizes two user IDs into (low, high) so that each pair of
// participants maps to exactly one chat row.
func orderPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// CreateOrGetChat returns the private chat between the two users, creating it
// on first use. The upsert keeps concurrent first messages from both sides
// from racing into duplicate rows.
func (s *Store) CreateOrGetChat(ctx context.Context, userA, userB string) (Chat, error) {
	low, high := orderPair(userA, userB)

	row := s.pool.QueryRow(ctx, `
		INSERT INTO chats (participant_a, participant_b)
		VALUES ($1::uuid, $2::uuid)
		ON CONFLICT (participant_a, participant_b)
		DO UPDATE SET participant_a = chats.participant_a
		RETURNING `+chatColumns,
		low, high)
	return scanChat(row)
}

// ChatByID fetches one private chat.
func (s *Store) ChatByID(ctx context.Context, chatID string) (Chat, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+chatColumns+` FROM chats WHERE id = $1::uuid`, chatID)
	return scanChat(row)
}

// ChatsForUser lists the user's private chats, most recently active first.
func (s *Store) ChatsForUser(ctx context.Context, userID string) ([]Chat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chatColumns+`
		FROM chats
		WHERE participant_a = $1::uuid OR participant_b = $1::uuid
		ORDER BY last_activity_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// ChatParticipantIDs returns the two fixed participants of a private chat.
func (s *Store) ChatParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	c, err := s.ChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return []string{c.ParticipantA, c.ParticipantB}, nil
}

// ContactIDs returns the distinct identities that share at least one
// conversation (private chat or current room membership) with the user.
// The presence propagator uses this as its broadcast scope.
func (s *Store) ContactIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT contact::text FROM (
			SELECT participant_b AS contact FROM chats WHERE participant_a = $1::uuid
			UNION
			SELECT participant_a AS contact FROM chats WHERE participant_b = $1::uuid
			UNION
			SELECT rm2.user_id AS contact
			FROM room_members rm1
			JOIN room_members rm2 ON rm1.room_id = rm2.room_id
			WHERE rm1.user_id = $1::uuid
			  AND rm1.left_at IS NULL
			  AND rm2.left_at IS NULL
			  AND rm2.user_id <> $1::uuid
		) contacts`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
