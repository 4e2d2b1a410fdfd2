package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id::text, username, password_hash, nickname, avatar_url, status, last_seen_at, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Nickname, &u.AvatarURL,
		&u.Status, &u.LastSeenAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// CreateUser inserts a new account and returns the created row.
// A unique violation on username surfaces via db.IsUniqueViolation.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash, nickname string) (User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, nickname)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		username, passwordHash, nickname)
	return scanUser(row)
}

// UserByID fetches one account by its ID.
func (s *Store) UserByID(ctx context.Context, userID string) (User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1::uuid`, userID)
	return scanUser(row)
}

// UserByUsername fetches one account by its login name.
func (s *Store) UserByUsername(ctx context.Context, username string) (User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// SearchUsers returns up to limit accounts whose username or nickname matches
// the query, excluding the requesting user. An empty query lists recent accounts.
func (s *Store) SearchUsers(ctx context.Context, requesterID, query string, limit int) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id <> $1::uuid
		  AND ($2 = '' OR username ILIKE '%' || $2 || '%' OR nickname ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3`,
		requesterID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserProfile updates nickname and avatar and returns the fresh row.
func (s *Store) UpdateUserProfile(ctx context.Context, userID, nickname, avatarURL string) (User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET nickname = $2, avatar_url = $3, updated_at = now()
		WHERE id = $1::uuid
		RETURNING `+userColumns,
		userID, nickname, avatarURL)
	return scanUser(row)
}

// UpdateUserPassword replaces the stored password hash.
func (s *Store) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1::uuid`,
		userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserStatus writes the persisted presence value. When lastSeen is
// non-nil (the offline transition) the last-seen timestamp is stamped as well.
func (s *Store) UpdateUserStatus(ctx context.Context, userID, status string, lastSeen *time.Time) error {
	var err error
	if lastSeen != nil {
		_, err = s.pool.Exec(ctx, `
			UPDATE users SET status = $2, last_seen_at = $3, updated_at = now()
			WHERE id = $1::uuid`,
			userID, status, *lastSeen)
	} else {
		_, err = s.pool.Exec(ctx, `
			UPDATE users SET status = $2, updated_at = now() WHERE id = $1::uuid`,
			userID, status)
	}
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	return nil
}
