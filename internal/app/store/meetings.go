package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const meetingColumns = `id::text, code, title, host_id::text, status, scheduled_at, started_at, ended_at, created_at`

func scanMeeting(row pgx.Row) (Meeting, error) {
	var m Meeting
	err := row.Scan(&m.ID, &m.Code, &m.Title, &m.HostID, &m.Status,
		&m.ScheduledAt, &m.StartedAt, &m.EndedAt, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Meeting{}, ErrNotFound
	}
	return m, err
}

// CreateMeeting inserts a meeting. A nil scheduledAt creates an instant
// meeting that is active immediately.
func (s *Store) CreateMeeting(ctx context.Context, code, title, hostID string, scheduledAt *time.Time) (Meeting, error) {
	status := MeetingActive
	var startedAt *time.Time
	if scheduledAt != nil {
		status = MeetingScheduled
	} else {
		now := time.Now()
		startedAt = &now
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO meetings (code, title, host_id, status, scheduled_at, started_at)
		VALUES ($1, $2, $3::uuid, $4, $5, $6)
		RETURNING `+meetingColumns,
		code, title, hostID, status, scheduledAt, startedAt)
	return scanMeeting(row)
}

// MeetingByID fetches one meeting.
func (s *Store) MeetingByID(ctx context.Context, meetingID string) (Meeting, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+meetingColumns+` FROM meetings WHERE id = $1::uuid`, meetingID)
	return scanMeeting(row)
}

// MeetingByCode fetches one meeting by its join code.
func (s *Store) MeetingByCode(ctx context.Context, code string) (Meeting, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+meetingColumns+` FROM meetings WHERE code = $1`, code)
	return scanMeeting(row)
}

// MeetingsForUser lists meetings the user hosts or has participated in,
// newest first, optionally filtered by status.
func (s *Store) MeetingsForUser(ctx context.Context, userID, status string) ([]Meeting, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT `+meetingColumns+`
		FROM meetings m
		LEFT JOIN meeting_participants mp ON mp.meeting_id = m.id
		WHERE (m.host_id = $1::uuid OR mp.user_id = $1::uuid)
		  AND ($2 = '' OR m.status = $2)
		ORDER BY created_at DESC`,
		userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// JoinMeeting records a durable participant entry with a fresh join
// timestamp, reviving a previous record if the user rejoins. It also flips a
// scheduled meeting to active on first join.
func (s *Store) JoinMeeting(ctx context.Context, meetingID, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO meeting_participants (meeting_id, user_id)
		VALUES ($1::uuid, $2::uuid)
		ON CONFLICT (meeting_id, user_id)
		DO UPDATE SET joined_at = now(), left_at = NULL`,
		meetingID, userID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE meetings SET status = $2, started_at = COALESCE(started_at, now())
		WHERE id = $1::uuid AND status = $3`,
		meetingID, MeetingActive, MeetingScheduled)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// LeaveMeeting stamps the participant's leave timestamp.
func (s *Store) LeaveMeeting(ctx context.Context, meetingID, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE meeting_participants SET left_at = now()
		WHERE meeting_id = $1::uuid AND user_id = $2::uuid AND left_at IS NULL`,
		meetingID, userID)
	return err
}

// EndMeeting marks the meeting ended and stamps leave timestamps for anyone
// still recorded as present.
func (s *Store) EndMeeting(ctx context.Context, meetingID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE meetings SET status = $2, ended_at = now()
		WHERE id = $1::uuid AND status <> $2`,
		meetingID, MeetingEnded)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE meeting_participants SET left_at = now()
		WHERE meeting_id = $1::uuid AND left_at IS NULL`,
		meetingID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// MeetingParticipants lists the meeting's durable participant records.
func (s *Store) MeetingParticipants(ctx context.Context, meetingID string) ([]MeetingParticipant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT meeting_id::text, user_id::text, joined_at, left_at
		FROM meeting_participants
		WHERE meeting_id = $1::uuid
		ORDER BY joined_at`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []MeetingParticipant
	for rows.Next() {
		var p MeetingParticipant
		if err := rows.Scan(&p.MeetingID, &p.UserID, &p.JoinedAt, &p.LeftAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// MeetingParticipantIDs returns participant user IDs. With currentOnly set it
// returns only those still in the call (no leave timestamp); otherwise anyone
// who was ever a participant, which is the membership rule used for read-back.
func (s *Store) MeetingParticipantIDs(ctx context.Context, meetingID string, currentOnly bool) ([]string, error) {
	participants, err := s.MeetingParticipants(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		if currentOnly && p.LeftAt != nil {
			continue
		}
		ids = append(ids, p.UserID)
	}
	return ids, nil
}
