package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/logx"
)

// ContactStore resolves the scope of a presence broadcast: the identities
// that share at least one conversation with the user. Scoping presence this
// way keeps the broadcast cost proportional to the user's contacts instead of
// the whole connected population.
type ContactStore interface {
	ContactIDs(ctx context.Context, userID string) ([]string, error)
}

// Store is the full durable-store surface the hub consumes, assembled from
// the per-component slices. *store.Store satisfies it.
type Store interface {
	PresenceStore
	MembershipStore
	MessageStore
	ReadStore
	ContactStore
}

// Hub composes the real-time coordination components and dispatches inbound
// connection events to them. Handlers for different connections run
// concurrently; each individual event runs to completion, suspending only at
// durable-store calls.
type Hub struct {
	registry *Registry
	oracle   *Oracle
	router   *Router
	pipeline *Pipeline
	typing   *Typing
	receipts *Receipts
	relay    *Relay

	contacts ContactStore
	logger   zerolog.Logger
}

// Options tunes hub construction. Zero values select production defaults.
type Options struct {
	TypingTTL   time.Duration
	TypingSweep time.Duration
}

// New wires up a hub over the given durable store.
func New(s Store, opts Options) *Hub {
	registry := NewRegistry(s)
	oracle := NewOracle(s)
	router := NewRouter(registry, oracle)

	return &Hub{
		registry: registry,
		oracle:   oracle,
		router:   router,
		pipeline: NewPipeline(oracle, router, s),
		typing:   NewTyping(oracle, router, opts.TypingTTL, opts.TypingSweep),
		receipts: NewReceipts(oracle, router, s),
		relay:    NewRelay(registry, s),
		contacts: s,
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Registry exposes the session registry, used by the websocket handler for
// connection accounting.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Oracle exposes the membership oracle, used by the REST collaborators for
// role and participation checks over the same membership source the hub
// fans out with.
func (h *Hub) Oracle() *Oracle {
	return h.oracle
}

// HandleConnect binds an authenticated connection into the hub. If this is
// the identity's first live connection, its contacts are told it came online.
func (h *Hub) HandleConnect(ctx context.Context, c *Conn) {
	first := h.registry.Register(ctx, c)
	if !first {
		return
	}

	identity := c.Identity()
	h.broadcastPresence(ctx, EvtUserOnline, PresenceOut{
		UserID:   identity.ID,
		Username: identity.Username,
		Avatar:   identity.Avatar,
	})
}

// HandleDisconnect tears a connection out of the hub: live meeting groups
// first (announcing departures exactly like explicit leaves), then the
// registry. If this was the identity's last live connection, its contacts are
// told it went offline.
func (h *Hub) HandleDisconnect(ctx context.Context, c *Conn) {
	h.relay.DropConnection(c)

	last := h.registry.Unregister(ctx, c)
	c.closeSend()

	if !last {
		return
	}

	identity := c.Identity()
	h.broadcastPresence(ctx, EvtUserOffline, PresenceOut{
		UserID:   identity.ID,
		Username: identity.Username,
	})
}

// Dispatch routes one inbound frame to the owning component. Validation and
// persistence failures are terminal for this single event and are reported
// back to the originating connection only, as an error event; they never
// interrupt other connections and never crash the hub.
func (h *Hub) Dispatch(ctx context.Context, c *Conn, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON frame")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch env.Event {
	case EvtPrivateMessage, EvtRoomMessage:
		var in MessageIn
		if !h.bind(c, env.Payload, &in) {
			return
		}
		ref, ok := conversationRef(in.ChatID, in.RoomID)
		if !ok {
			c.SendError(errs.NewError(errs.ErrInvalidParams))
			return
		}
		if _, submitErr := h.pipeline.Submit(ctx, c, ref, in); submitErr != nil {
			c.SendError(submitErr)
		}

	case EvtTypingStart, EvtRoomTypingStart:
		var in ConversationIn
		if !h.bind(c, env.Payload, &in) {
			return
		}
		if ref, ok := conversationRef(in.ChatID, in.RoomID); ok {
			h.typing.Start(ctx, c, ref)
		}

	case EvtTypingStop, EvtRoomTypingStop:
		var in ConversationIn
		if !h.bind(c, env.Payload, &in) {
			return
		}
		if ref, ok := conversationRef(in.ChatID, in.RoomID); ok {
			h.typing.Stop(ctx, c, ref)
		}

	case EvtMarkRead:
		var in ConversationIn
		if !h.bind(c, env.Payload, &in) {
			return
		}
		ref, ok := conversationRef(in.ChatID, in.RoomID)
		if !ok {
			c.SendError(errs.NewError(errs.ErrInvalidParams))
			return
		}
		if readErr := h.receipts.MarkRead(ctx, c, ref); readErr != nil {
			c.SendError(readErr)
		}

	case EvtJoinRoom:
		var in ConversationIn
		if !h.bind(c, env.Payload, &in) {
			return
		}
		h.announceRoom(ctx, c, in.RoomID, true)

	case EvtLeaveRoom:
		var in ConversationIn
		if !h.bind(c, env.Payload, &in) {
			return
		}
		h.announceRoom(ctx, c, in.RoomID, false)

	case EvtJoinMeeting:
		var in MeetingIn
		if !h.bind(c, env.Payload, &in) {
			return
		}
		if joinErr := h.relay.Join(ctx, c, in.MeetingID); joinErr != nil {
			c.SendError(joinErr)
		}

	case EvtLeaveMeeting:
		var in MeetingIn
		if !h.bind(c, env.Payload, &in) {
			return
		}
		h.relay.Leave(c, in.MeetingID)

	case EvtWebRTCOffer, EvtWebRTCAnswer, EvtWebRTCICECandidate:
		var in SignalIn
		if !h.bind(c, env.Payload, &in) {
			return
		}
		h.relay.Relay(c, env.Event, in)

	case EvtToggleAudio, EvtToggleVideo, EvtScreenShare:
		var in ToggleIn
		if !h.bind(c, env.Payload, &in) {
			return
		}
		h.relay.Toggle(c, in.MeetingID, env.Event, in.Enabled)

	default:
		c.logger.Warn().Str("event", env.Event).Msg("Client sent unsupported event")
	}
}

// Shutdown stops background work and closes every live connection's send
// queue. In-memory typing and live meeting state is discarded by design.
func (h *Hub) Shutdown() {
	h.typing.Shutdown()

	h.registry.mu.RLock()
	entries := make([]*identityEntry, 0, len(h.registry.entries))
	for _, entry := range h.registry.entries {
		entries = append(entries, entry)
	}
	h.registry.mu.RUnlock()

	for _, entry := range entries {
		entry.mu.Lock()
		for c := range entry.conns {
			c.closeSend()
		}
		entry.mu.Unlock()
	}

	h.logger.Info().Msg("Hub shutdown complete")
}

// bind unmarshals an event payload, reporting malformed input to the sender.
func (h *Hub) bind(c *Conn, raw json.RawMessage, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid event payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return false
	}
	return true
}

// announceRoom broadcasts a member-joined/-left event to the room. Joins are
// membership-checked so a stranger cannot announce themselves into a room;
// leaves are announced unconditionally, matching a member whose durable
// membership was already removed by the REST collaborator.
func (h *Hub) announceRoom(ctx context.Context, c *Conn, roomID string, joined bool) {
	if roomID == "" {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}
	ref := ConvRef{Kind: KindRoom, ID: roomID}
	identity := c.Identity()

	event := EvtUserLeftRoom
	payload := MemberOut{RoomID: roomID, UserID: identity.ID, Username: identity.Username}

	if joined {
		ok, err := h.oracle.IsMember(ctx, ref, identity.ID)
		if err != nil || !ok {
			c.SendError(errs.NewError(errs.ErrAccessDenied))
			return
		}
		event = EvtUserJoinedRoom
		payload.Avatar = identity.Avatar
	}

	err := h.router.Deliver(ctx, ref, event, payload, DeliverOptions{SkipUserID: identity.ID})
	if err != nil {
		h.logger.Warn().Err(err).Str("room_id", roomID).Msg("Room membership announcement failed")
	}
}

// broadcastPresence pushes a presence transition to every live connection of
// the user's contacts.
func (h *Hub) broadcastPresence(ctx context.Context, event string, payload PresenceOut) {
	contactIDs, err := h.contacts.ContactIDs(ctx, payload.UserID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", payload.UserID).
			Msg("Contact resolution failed, presence broadcast skipped")
		return
	}

	for _, contactID := range contactIDs {
		if deliverErr := h.router.DeliverToUser(contactID, event, payload); deliverErr != nil {
			h.logger.Warn().Err(deliverErr).Str("contact_id", contactID).Msg("Presence delivery failed")
		}
	}
}

// conversationRef builds a ConvRef from the mutually exclusive chatId/roomId
// pair carried by conversation-scoped events.
func conversationRef(chatID, roomID string) (ConvRef, bool) {
	switch {
	case chatID != "" && roomID == "":
		return ConvRef{Kind: KindChat, ID: chatID}, true
	case roomID != "" && chatID == "":
		return ConvRef{Kind: KindRoom, ID: roomID}, true
	default:
		return ConvRef{}, false
	}
}
