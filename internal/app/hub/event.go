/*
Package hub implements the real-time coordination layer of the server.

It binds authenticated identities to live websocket connections, owns presence,
fans persisted messages out to the right set of connections, coordinates
ephemeral typing state, propagates read receipts, and relays call-signaling
payloads between meeting participants. Everything in this package that is not
a message row is transient: a restart loses typing and live meeting state
cleanly, and clients re-announce as needed.
*/
package hub

import "encoding/json"

// Inbound event names, as sent by clients over the websocket.
const (
	EvtPrivateMessage     = "private_message"
	EvtRoomMessage        = "room_message"
	EvtTypingStart        = "typing_start"
	EvtTypingStop         = "typing_stop"
	EvtRoomTypingStart    = "room_typing_start"
	EvtRoomTypingStop     = "room_typing_stop"
	EvtMarkRead           = "mark_read"
	EvtJoinRoom           = "join_room"
	EvtLeaveRoom          = "leave_room"
	EvtJoinMeeting        = "join_meeting"
	EvtLeaveMeeting       = "leave_meeting"
	EvtWebRTCOffer        = "webrtc_offer"
	EvtWebRTCAnswer       = "webrtc_answer"
	EvtWebRTCICECandidate = "webrtc_ice_candidate"
	EvtToggleAudio        = "toggle_audio"
	EvtToggleVideo        = "toggle_video"
	EvtScreenShare        = "screen_share"
)

// Outbound event names, as delivered to clients. Message events reuse the
// inbound names so every device converges on the same canonical object.
const (
	EvtUserOnline         = "user_online"
	EvtUserOffline        = "user_offline"
	EvtUserTyping         = "user_typing"
	EvtUserStopTyping     = "user_stop_typing"
	EvtUserTypingRoom     = "user_typing_room"
	EvtUserStopTypingRoom = "user_stop_typing_room"
	EvtMessagesRead       = "messages_read"
	EvtUserJoinedRoom     = "user_joined_room"
	EvtUserLeftRoom       = "user_left_room"
	EvtUserJoinedMeeting  = "user_joined_meeting"
	EvtUserLeftMeeting    = "user_left_meeting"
	EvtUserToggleAudio    = "user_toggle_audio"
	EvtUserToggleVideo    = "user_toggle_video"
	EvtUserScreenShare    = "user_screen_share"
	EvtError              = "error"
)

// Envelope is the wire framing for every hub event in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Marshal builds the wire bytes for an outbound event.
func Marshal(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}

// Identity is the authenticated user bound to a connection, carried on every
// outbound payload that names an actor.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// ConvKind discriminates the three conversation variants fan-out can target.
type ConvKind string

const (
	KindChat    ConvKind = "chat"
	KindRoom    ConvKind = "room"
	KindMeeting ConvKind = "meeting"
)

// ConvRef addresses one conversation.
type ConvRef struct {
	Kind ConvKind
	ID   string
}

// --- Inbound payloads ---

// MessageIn is the payload of private_message and room_message.
type MessageIn struct {
	ChatID      string `json:"chatId,omitempty"`
	RoomID      string `json:"roomId,omitempty"`
	Content     string `json:"content"`
	MessageType string `json:"messageType,omitempty"`
	FileURL     string `json:"fileUrl,omitempty"`
}

// ConversationIn addresses a chat or room in typing, read, and room
// membership events.
type ConversationIn struct {
	ChatID string `json:"chatId,omitempty"`
	RoomID string `json:"roomId,omitempty"`
}

// MeetingIn addresses a meeting in join/leave events.
type MeetingIn struct {
	MeetingID string `json:"meetingId"`
}

// SignalIn is the payload of the three webrtc_* events. The hub treats the
// offer/answer/candidate bodies as opaque and forwards them verbatim.
type SignalIn struct {
	MeetingID string          `json:"meetingId"`
	To        string          `json:"to,omitempty"`
	From      string          `json:"from,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// ToggleIn is the payload of the capability toggle events.
type ToggleIn struct {
	MeetingID string `json:"meetingId"`
	Enabled   bool   `json:"enabled"`
}

// --- Outbound payloads ---

// PresenceOut announces a presence transition.
type PresenceOut struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// TypingOut announces typing activity in a conversation.
type TypingOut struct {
	ChatID   string `json:"chatId,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// ReadOut announces that a reader has observed a conversation. It does not
// enumerate message IDs; recipients re-derive read status from their own list.
type ReadOut struct {
	ChatID string `json:"chatId,omitempty"`
	RoomID string `json:"roomId,omitempty"`
	ReadBy string `json:"readBy"`
}

// MemberOut announces room or meeting membership changes.
type MemberOut struct {
	RoomID    string `json:"roomId,omitempty"`
	MeetingID string `json:"meetingId,omitempty"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar,omitempty"`
}

// ToggleOut announces an advisory capability change in a meeting.
type ToggleOut struct {
	MeetingID string `json:"meetingId"`
	UserID    string `json:"userId"`
	Enabled   bool   `json:"enabled"`
}

// ErrorOut reports a terminal event failure to the originating connection only.
type ErrorOut struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
