package hub

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"vaaniarc/internal/app/store"
	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/logx"
)

// MeetingSource is the slice of the durable store the relay reads to resolve
// meeting references. The relay never writes participant records; the meeting
// REST handlers own those, so the live broadcast group may transiently be a
// superset or subset of the durable list.
type MeetingSource interface {
	MeetingByID(ctx context.Context, meetingID string) (store.Meeting, error)
}

// Relay manages per-meeting live broadcast groups and forwards call-signaling
// payloads between peers. Groups are purely in-memory; a restart empties them
// and clients rejoin. Signaling itself is fire-and-forget: a stale offer is
// useless, so an envelope addressed to an identity with no live connections
// is dropped silently, without queuing and without telling the sender.
type Relay struct {
	mu sync.Mutex

	// groups maps meeting ID to the live broadcast group.
	groups map[string]map[*Conn]struct{}

	// byConn is the reverse index used to clear every group membership of a
	// connection when its transport closes without explicit leave calls.
	byConn map[*Conn]map[string]struct{}

	registry *Registry
	meetings MeetingSource
	logger   zerolog.Logger
}

// NewRelay returns an empty meeting signaling relay.
func NewRelay(registry *Registry, meetings MeetingSource) *Relay {
	return &Relay{
		groups:   make(map[string]map[*Conn]struct{}),
		byConn:   make(map[*Conn]map[string]struct{}),
		registry: registry,
		meetings: meetings,
		logger:   logx.Logger().With().Str("component", "Relay").Logger(),
	}
}

// Join adds the connection to the meeting's live broadcast group and announces
// it to the rest of the group. The durable participant record is written by
// the meeting REST handler, not here.
func (r *Relay) Join(ctx context.Context, conn *Conn, meetingID string) *errs.CustomError {
	meeting, err := r.meetings.MeetingByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errs.NewError(errs.ErrMeetingNotFound)
		}
		r.logger.Error().Err(err).Str("meeting_id", meetingID).Msg("Meeting lookup failed")
		return errs.NewError(errs.ErrPersistenceFailed)
	}
	if meeting.Status == store.MeetingEnded {
		return errs.NewError(errs.ErrMeetingEnded)
	}

	r.mu.Lock()
	group, ok := r.groups[meetingID]
	if !ok {
		group = make(map[*Conn]struct{})
		r.groups[meetingID] = group
	}
	group[conn] = struct{}{}

	joined, ok := r.byConn[conn]
	if !ok {
		joined = make(map[string]struct{})
		r.byConn[conn] = joined
	}
	joined[meetingID] = struct{}{}
	r.mu.Unlock()

	identity := conn.Identity()
	r.logger.Info().
		Str("meeting_id", meetingID).
		Str("user_id", identity.ID).
		Msg("Connection joined live meeting group")

	r.broadcast(meetingID, EvtUserJoinedMeeting, MemberOut{
		MeetingID: meetingID,
		UserID:    identity.ID,
		Username:  identity.Username,
		Avatar:    identity.Avatar,
	}, conn)

	return nil
}

// Leave removes the connection from the meeting's live broadcast group and
// announces the departure. Safe to call for a connection that never joined.
func (r *Relay) Leave(conn *Conn, meetingID string) {
	if !r.remove(conn, meetingID) {
		return
	}

	identity := conn.Identity()
	r.broadcast(meetingID, EvtUserLeftMeeting, MemberOut{
		MeetingID: meetingID,
		UserID:    identity.ID,
		Username:  identity.Username,
	}, conn)
}

// DropConnection clears every live group membership of a connection whose
// transport closed without explicit leaves, announcing each departure exactly
// as Leave would. This keeps ghost participants out of live groups even
// though the durable participant record may lack a leave timestamp until the
// meeting lifecycle reconciles it.
func (r *Relay) DropConnection(conn *Conn) {
	r.mu.Lock()
	joined := r.byConn[conn]
	meetingIDs := make([]string, 0, len(joined))
	for meetingID := range joined {
		meetingIDs = append(meetingIDs, meetingID)
	}
	r.mu.Unlock()

	for _, meetingID := range meetingIDs {
		r.Leave(conn, meetingID)
	}
}

// Relay forwards one signaling envelope verbatim to the target identity's
// live connections. The payload is neither validated nor interpreted.
func (r *Relay) Relay(conn *Conn, event string, in SignalIn) {
	if in.To == "" {
		return
	}

	out := in
	out.From = conn.Identity().ID
	out.To = ""

	frame, err := Marshal(event, out)
	if err != nil {
		r.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal signaling envelope")
		return
	}

	targets := r.registry.ConnectionsFor(in.To)
	if len(targets) == 0 {
		// Latency-sensitive and fire-and-forget: no retry, no queue, and the
		// sender finds out through its own timeout.
		r.logger.Debug().
			Str("event", event).
			Str("target_id", in.To).
			Msg("Signaling target offline, envelope dropped")
		return
	}

	for _, target := range targets {
		target.enqueue(frame)
	}
}

// Toggle broadcasts an advisory capability change (audio, video, screen
// share) to the rest of the meeting group. Nothing is enforced on the sender.
func (r *Relay) Toggle(conn *Conn, meetingID, event string, enabled bool) {
	outEvent := ""
	switch event {
	case EvtToggleAudio:
		outEvent = EvtUserToggleAudio
	case EvtToggleVideo:
		outEvent = EvtUserToggleVideo
	case EvtScreenShare:
		outEvent = EvtUserScreenShare
	default:
		return
	}

	r.broadcast(meetingID, outEvent, ToggleOut{
		MeetingID: meetingID,
		UserID:    conn.Identity().ID,
		Enabled:   enabled,
	}, conn)
}

// remove drops the connection from one group, reporting whether it was a
// member. Empty groups are deleted to keep the maps bounded by live usage.
func (r *Relay) remove(conn *Conn, meetingID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	group := r.groups[meetingID]
	if group == nil {
		return false
	}
	if _, ok := group[conn]; !ok {
		return false
	}

	delete(group, conn)
	if len(group) == 0 {
		delete(r.groups, meetingID)
	}

	if joined := r.byConn[conn]; joined != nil {
		delete(joined, meetingID)
		if len(joined) == 0 {
			delete(r.byConn, conn)
		}
	}
	return true
}

// broadcast pushes the event to every group member except skip.
func (r *Relay) broadcast(meetingID, event string, payload any, skip *Conn) {
	frame, err := Marshal(event, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal meeting broadcast")
		return
	}

	r.mu.Lock()
	group := r.groups[meetingID]
	conns := make([]*Conn, 0, len(group))
	for c := range group {
		if c != skip {
			conns = append(conns, c)
		}
	}
	r.mu.Unlock()

	for _, c := range conns {
		c.enqueue(frame)
	}
}
