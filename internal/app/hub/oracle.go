package hub

import (
	"context"
	"errors"

	"vaaniarc/internal/app/store"
)

// MembershipStore is the slice of the durable store the oracle reads. Reads
// are synchronous and uncached: every fan-out decision reflects current
// membership with no staleness beyond the store's own round trip.
type MembershipStore interface {
	ChatParticipantIDs(ctx context.Context, chatID string) ([]string, error)
	RoomMemberIDs(ctx context.Context, roomID string) ([]string, error)
	RoomMemberRole(ctx context.Context, roomID, userID string) (string, error)
	MeetingByID(ctx context.Context, meetingID string) (store.Meeting, error)
	MeetingParticipantIDs(ctx context.Context, meetingID string, currentOnly bool) ([]string, error)
}

// Oracle answers "is user X allowed to receive events for conversation Y"
// over the three conversation variants.
type Oracle struct {
	store MembershipStore
}

// NewOracle returns an oracle over the given membership source.
func NewOracle(s MembershipStore) *Oracle {
	return &Oracle{store: s}
}

// Members resolves the identity set fan-out targets for the conversation.
// For a meeting, the host counts as a member alongside current participants.
func (o *Oracle) Members(ctx context.Context, ref ConvRef) ([]string, error) {
	switch ref.Kind {
	case KindChat:
		return o.store.ChatParticipantIDs(ctx, ref.ID)

	case KindRoom:
		return o.store.RoomMemberIDs(ctx, ref.ID)

	case KindMeeting:
		meeting, err := o.store.MeetingByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		ids, err := o.store.MeetingParticipantIDs(ctx, ref.ID, true)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if id == meeting.HostID {
				return ids, nil
			}
		}
		return append(ids, meeting.HostID), nil

	default:
		return nil, store.ErrNotFound
	}
}

// IsMember reports whether the identity is currently allowed to act in the
// conversation. For meetings this means "currently in the call or the host";
// use WasParticipant for historical read-back membership.
func (o *Oracle) IsMember(ctx context.Context, ref ConvRef, userID string) (bool, error) {
	if ref.Kind == KindRoom {
		// Role lookup is one indexed read instead of scanning the member list.
		_, err := o.store.RoomMemberRole(ctx, ref.ID, userID)
		if errors.Is(err, store.ErrNotFound) {
			// The room may not exist at all; distinguish that for callers.
			if _, memberErr := o.store.RoomMemberIDs(ctx, ref.ID); memberErr != nil {
				return false, memberErr
			}
			return false, nil
		}
		return err == nil, err
	}

	members, err := o.Members(ctx, ref)
	if err != nil {
		return false, err
	}
	for _, id := range members {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// RoleOf returns the identity's role in a group room, or store.ErrNotFound
// when they are not a current member. Chats and meetings carry no roles.
func (o *Oracle) RoleOf(ctx context.Context, ref ConvRef, userID string) (string, error) {
	if ref.Kind != KindRoom {
		return "", store.ErrNotFound
	}
	return o.store.RoomMemberRole(ctx, ref.ID, userID)
}

// WasParticipant reports historical meeting membership: whether the identity
// was ever a participant, regardless of a leave timestamp.
func (o *Oracle) WasParticipant(ctx context.Context, meetingID, userID string) (bool, error) {
	meeting, err := o.store.MeetingByID(ctx, meetingID)
	if err != nil {
		return false, err
	}
	if meeting.HostID == userID {
		return true, nil
	}

	ids, err := o.store.MeetingParticipantIDs(ctx, meetingID, false)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
