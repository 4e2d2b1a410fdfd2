package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned by lookup methods when no row matches.
var ErrNotFound = errors.New("store: not found")

// Presence values for a user account. Presence is durable but eventually
// consistent: a crash before the offline transition is written leaves a stale
// value until the next connection event corrects it.
const (
	PresenceOnline  = "online"
	PresenceAway    = "away"
	PresenceBusy    = "busy"
	PresenceOffline = "offline"
)

// Room member roles.
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Conversation kinds as stored on messages.
const (
	KindChat = "chat"
	KindRoom = "room"
)

// Message type tags.
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
	MessageAudio = "audio"
	MessageVideo = "video"
)

// Meeting lifecycle states.
const (
	MeetingScheduled = "scheduled"
	MeetingActive    = "active"
	MeetingEnded     = "ended"
)

// User is a registered account.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Nickname     string     `json:"nickname"`
	AvatarURL    string     `json:"avatarUrl"`
	Status       string     `json:"status"`
	LastSeenAt   *time.Time `json:"lastSeenAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Chat is a private conversation between exactly two users. Participants are
// stored in normalized ID order so each pair maps to a single row.
type Chat struct {
	ID             string    `json:"id"`
	ParticipantA   string    `json:"participantA"`
	ParticipantB   string    `json:"participantB"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Room is a multi-member group conversation.
type Room struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	RoomType       string    `json:"roomType"`
	CreatorID      string    `json:"creatorId"`
	MaxMembers     int       `json:"maxMembers"`
	IsActive       bool      `json:"isActive"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RoomMember is one membership record inside a room. A non-nil LeftAt marks a
// past member.
type RoomMember struct {
	RoomID   string     `json:"roomId"`
	UserID   string     `json:"userId"`
	Role     string     `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
	LeftAt   *time.Time `json:"leftAt,omitempty"`
}

// Message belongs to exactly one conversation (chat or room).
type Message struct {
	ID               string     `json:"id"`
	ConversationKind string     `json:"conversationKind"`
	ConversationID   string     `json:"conversationId"`
	SenderID         string     `json:"senderId"`
	Content          string     `json:"content"`
	MessageType      string     `json:"messageType"`
	FileURL          string     `json:"fileUrl,omitempty"`
	Read             bool       `json:"read"`
	ReadAt           *time.Time `json:"readAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Meeting is a scheduled or running video meeting.
type Meeting struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	HostID      string     `json:"hostId"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// MeetingParticipant is one durable participant record with join/leave
// timestamps. A nil LeftAt means the participant is currently in the call.
type MeetingParticipant struct {
	MeetingID string     `json:"meetingId"`
	UserID    string     `json:"userId"`
	JoinedAt  time.Time  `json:"joinedAt"`
	LeftAt    *time.Time `json:"leftAt,omitempty"`
}
