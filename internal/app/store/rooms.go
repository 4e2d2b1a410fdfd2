package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const roomColumns = `id::text, name, description, room_type, creator_id::text, max_members, is_active, last_activity_at, created_at`

func scanRoom(row pgx.Row) (Room, error) {
	var r Room
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.RoomType, &r.CreatorID,
		&r.MaxMembers, &r.IsActive, &r.LastActivityAt, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	return r, err
}

// CreateRoom inserts a room and its creator as admin member in one transaction.
func (s *Store) CreateRoom(ctx context.Context, name, description, roomType, creatorID string, maxMembers int) (Room, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Room{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO rooms (name, description, room_type, creator_id, max_members)
		VALUES ($1, $2, $3, $4::uuid, $5)
		RETURNING `+roomColumns,
		name, description, roomType, creatorID, maxMembers)
	room, err := scanRoom(row)
	if err != nil {
		return Room{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO room_members (room_id, user_id, role)
		VALUES ($1::uuid, $2::uuid, $3)`,
		room.ID, creatorID, RoleAdmin)
	if err != nil {
		return Room{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Room{}, err
	}
	return room, nil
}

// RoomByID fetches one room.
func (s *Store) RoomByID(ctx context.Context, roomID string) (Room, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+roomColumns+` FROM rooms WHERE id = $1::uuid`, roomID)
	return scanRoom(row)
}

// RoomsForUser lists active rooms the user currently belongs to, most recently
// active first.
func (s *Store) RoomsForUser(ctx context.Context, userID string) ([]Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomColumns+`
		FROM rooms r
		JOIN room_members rm ON rm.room_id = r.id
		WHERE rm.user_id = $1::uuid AND rm.left_at IS NULL AND r.is_active
		ORDER BY r.last_activity_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

// PublicRooms lists active public rooms for discovery, optionally filtered by
// a name/description search term.
func (s *Store) PublicRooms(ctx context.Context, search string, limit int) ([]Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomColumns+`
		FROM rooms
		WHERE room_type = 'public' AND is_active
		  AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		ORDER BY last_activity_at DESC
		LIMIT $2`,
		search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

func collectRooms(rows pgx.Rows) ([]Room, error) {
	var rooms []Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// JoinRoom adds the user as a current member, reviving a previous membership
// (cleared left_at) if one exists.
func (s *Store) JoinRoom(ctx context.Context, roomID, userID string) error {
	return s.AddRoomMember(ctx, roomID, userID, RoleMember)
}

// AddRoomMember adds the user as a current member with the given role,
// reviving a previous membership if one exists.
func (s *Store) AddRoomMember(ctx context.Context, roomID, userID, role string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO room_members (room_id, user_id, role)
		VALUES ($1::uuid, $2::uuid, $3)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET left_at = NULL, joined_at = now(), role = EXCLUDED.role`,
		roomID, userID, role)
	return err
}

// RemoveRoomMember marks the user's membership as left. It returns ErrNotFound
// when the user is not a current member.
func (s *Store) RemoveRoomMember(ctx context.Context, roomID, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE room_members SET left_at = now()
		WHERE room_id = $1::uuid AND user_id = $2::uuid AND left_at IS NULL`,
		roomID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRoomMemberRole changes a current member's role. It returns ErrNotFound
// when the user is not a current member.
func (s *Store) UpdateRoomMemberRole(ctx context.Context, roomID, userID, role string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE room_members SET role = $3
		WHERE room_id = $1::uuid AND user_id = $2::uuid AND left_at IS NULL`,
		roomID, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRoom rewrites the room's mutable settings and returns the updated row.
func (s *Store) UpdateRoom(ctx context.Context, roomID, name, description string, maxMembers int) (Room, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE rooms
		SET name = $2, description = $3, max_members = $4
		WHERE id = $1::uuid
		RETURNING `+roomColumns,
		roomID, name, description, maxMembers)
	return scanRoom(row)
}

// DeactivateRoom soft-deletes the room. Membership records are kept.
func (s *Store) DeactivateRoom(ctx context.Context, roomID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET is_active = false WHERE id = $1::uuid`, roomID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LeaveRoom marks the membership as left. The creator's membership is
// non-revocable unless they are the sole remaining member.
func (s *Store) LeaveRoom(ctx context.Context, roomID, userID string) error {
	room, err := s.RoomByID(ctx, roomID)
	if err != nil {
		return err
	}

	if room.CreatorID == userID {
		var others int
		err := s.pool.QueryRow(ctx, `
			SELECT count(*) FROM room_members
			WHERE room_id = $1::uuid AND user_id <> $2::uuid AND left_at IS NULL`,
			roomID, userID).Scan(&others)
		if err != nil {
			return err
		}
		if others > 0 {
			return fmt.Errorf("creator cannot leave a room with remaining members")
		}
	}

	return s.RemoveRoomMember(ctx, roomID, userID)
}

// RoomMembers lists the room's current membership records. It returns
// ErrNotFound when the room itself does not exist, so callers can tell an
// unknown room apart from an empty one.
func (s *Store) RoomMembers(ctx context.Context, roomID string) ([]RoomMember, error) {
	if _, err := s.RoomByID(ctx, roomID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT room_id::text, user_id::text, role, joined_at, left_at
		FROM room_members
		WHERE room_id = $1::uuid AND left_at IS NULL
		ORDER BY joined_at`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []RoomMember
	for rows.Next() {
		var m RoomMember
		if err := rows.Scan(&m.RoomID, &m.UserID, &m.Role, &m.JoinedAt, &m.LeftAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// RoomMemberIDs returns the IDs of the room's current members.
func (s *Store) RoomMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	members, err := s.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

// RoomMemberRole returns the role of a current member, or ErrNotFound for
// non-members and past members.
func (s *Store) RoomMemberRole(ctx context.Context, roomID, userID string) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx, `
		SELECT role FROM room_members
		WHERE room_id = $1::uuid AND user_id = $2::uuid AND left_at IS NULL`,
		roomID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}
