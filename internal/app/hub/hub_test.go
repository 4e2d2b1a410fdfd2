package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"vaaniarc/internal/app/store"
)

// Store interface conformance for the shared test fake.
var _ Store = (*fakeStore)(nil)

// fakeStore is an in-memory Store used by the hub tests. Conversation
// membership is seeded per test; message and presence writes are recorded for
// assertions.
type fakeStore struct {
	mu sync.Mutex

	chats        map[string][]string
	rooms        map[string]map[string]string
	meetings     map[string]store.Meeting
	participants map[string][]string
	departed     map[string][]string
	contacts     map[string][]string

	messages []store.Message
	touched  []string
	statuses []string
	readRows int64
	reads    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chats:        make(map[string][]string),
		rooms:        make(map[string]map[string]string),
		meetings:     make(map[string]store.Meeting),
		participants: make(map[string][]string),
		departed:     make(map[string][]string),
		contacts:     make(map[string][]string),
	}
}

func (f *fakeStore) addChat(chatID string, users ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats[chatID] = users
}

func (f *fakeStore) addRoom(roomID string, users ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make(map[string]string, len(users))
	for _, u := range users {
		members[u] = store.RoleMember
	}
	f.rooms[roomID] = members
}

func (f *fakeStore) addMeeting(m store.Meeting, current ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meetings[m.ID] = m
	f.participants[m.ID] = current
}

func (f *fakeStore) setRoomRole(roomID, userID, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[roomID][userID] = role
}

func (f *fakeStore) addDepartedParticipant(meetingID string, users ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.departed[meetingID] = append(f.departed[meetingID], users...)
}

func (f *fakeStore) UpdateUserStatus(ctx context.Context, userID, status string, lastSeen *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, userID+":"+status)
	return nil
}

func (f *fakeStore) ChatParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.chats[chatID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return ids, nil
}

func (f *fakeStore) RoomMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.rooms[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) RoomMemberRole(ctx context.Context, roomID, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.rooms[roomID][userID]
	if !ok {
		return "", store.ErrNotFound
	}
	return role, nil
}

func (f *fakeStore) MeetingByID(ctx context.Context, meetingID string) (store.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[meetingID]
	if !ok {
		return store.Meeting{}, store.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) MeetingParticipantIDs(ctx context.Context, meetingID string, currentOnly bool) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.meetings[meetingID]; !ok {
		return nil, store.ErrNotFound
	}
	if currentOnly {
		return f.participants[meetingID], nil
	}
	return append(append([]string{}, f.participants[meetingID]...), f.departed[meetingID]...), nil
}

func (f *fakeStore) CreateMessage(ctx context.Context, p store.CreateMessageParams) (store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := store.Message{
		ID:               p.ID,
		ConversationKind: p.ConversationKind,
		ConversationID:   p.ConversationID,
		SenderID:         p.SenderID,
		Content:          p.Content,
		MessageType:      p.MessageType,
		FileURL:          p.FileURL,
		CreatedAt:        time.Now(),
	}
	f.messages = append(f.messages, msg)
	return msg, nil
}

func (f *fakeStore) TouchConversation(ctx context.Context, kind, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, kind+":"+conversationID)
	return nil
}

func (f *fakeStore) MarkConversationRead(ctx context.Context, kind, conversationID, readerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	rows := f.readRows
	f.readRows = 0
	return rows, nil
}

func (f *fakeStore) ContactIDs(ctx context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contacts[userID], nil
}

func (f *fakeStore) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

// newTestHub builds a hub over the fake store with an aggressive typing
// expiry so the sweep tests run in milliseconds.
func newTestHub(t *testing.T, fs *fakeStore) *Hub {
	t.Helper()
	// The TTL must comfortably exceed the requireNoEvent window so a pending
	// expiry cannot leak into a quiet-period assertion.
	h := New(fs, Options{TypingTTL: 250 * time.Millisecond, TypingSweep: 25 * time.Millisecond})
	t.Cleanup(h.Shutdown)
	return h
}

// newTestConn builds a connection without a websocket transport; tests read
// outbound frames straight from the send queue.
func newTestConn(h *Hub, userID, username string) *Conn {
	return NewConn(nil, Identity{ID: userID, Username: username}, h, uuid.NewString())
}

func recvEvent(t *testing.T, c *Conn) Envelope {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		require.True(t, ok, "send queue closed while waiting for an event")
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("expected an event, got none")
		return Envelope{}
	}
}

func requireNoEvent(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Fatalf("unexpected event: %s", frame)
	case <-time.After(80 * time.Millisecond):
	}
}

func decodePayload[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Payload, &out))
	return out
}

func TestConnectNotifiesContactsOnce(t *testing.T) {
	fs := newFakeStore()
	fs.contacts["alice"] = []string{"bob"}
	h := newTestHub(t, fs)
	ctx := context.Background()

	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, bob)

	alicePhone := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, alicePhone)

	env := recvEvent(t, bob)
	require.Equal(t, EvtUserOnline, env.Event)
	presence := decodePayload[PresenceOut](t, env)
	require.Equal(t, "alice", presence.UserID)

	// A second device does not re-announce.
	aliceLaptop := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, aliceLaptop)
	requireNoEvent(t, bob)

	// Offline fires only when the last device disconnects.
	h.HandleDisconnect(ctx, alicePhone)
	requireNoEvent(t, bob)

	h.HandleDisconnect(ctx, aliceLaptop)
	env = recvEvent(t, bob)
	require.Equal(t, EvtUserOffline, env.Event)
}

func TestDispatchInvalidJSONReportsToSenderOnly(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	c := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, c)

	h.Dispatch(ctx, c, []byte("{not json"))

	env := recvEvent(t, c)
	require.Equal(t, EvtError, env.Event)
}

func TestDispatchUnknownEventIsIgnored(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	c := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, c)

	h.Dispatch(ctx, c, []byte(`{"event":"time_travel","payload":{}}`))
	requireNoEvent(t, c)
}

func TestDispatchRejectsAmbiguousConversation(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	c := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, c)

	h.Dispatch(ctx, c, []byte(`{"event":"private_message","payload":{"chatId":"c1","roomId":"r1","content":"hi"}}`))

	env := recvEvent(t, c)
	require.Equal(t, EvtError, env.Event)
	require.Zero(t, fs.messageCount())
}

func TestRoomJoinAnnouncementRequiresMembership(t *testing.T) {
	fs := newFakeStore()
	fs.addRoom("r1", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, bob)

	mallory := newTestConn(h, "mallory", "mallory")
	h.HandleConnect(ctx, mallory)

	h.Dispatch(ctx, mallory, []byte(`{"event":"join_room","payload":{"roomId":"r1"}}`))

	env := recvEvent(t, mallory)
	require.Equal(t, EvtError, env.Event)
	requireNoEvent(t, bob)
}

func TestRoomJoinAnnouncementReachesMembers(t *testing.T) {
	fs := newFakeStore()
	fs.addRoom("r1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, alice)
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, bob)

	h.Dispatch(ctx, alice, []byte(`{"event":"join_room","payload":{"roomId":"r1"}}`))

	env := recvEvent(t, bob)
	require.Equal(t, EvtUserJoinedRoom, env.Event)
	member := decodePayload[MemberOut](t, env)
	require.Equal(t, "alice", member.UserID)
	require.Equal(t, "r1", member.RoomID)

	// The actor's own devices are excluded.
	requireNoEvent(t, alice)
}

func TestChatFlowOverDispatch(t *testing.T) {
	fs := newFakeStore()
	fs.addChat("c1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	h.Dispatch(ctx, alice, []byte(`{"event":"private_message","payload":{"chatId":"c1","content":"lunch?"}}`))

	for _, c := range []*Conn{alice, bob} {
		env := recvEvent(t, c)
		require.Equal(t, EvtPrivateMessage, env.Event)
		out := decodePayload[MessageOut](t, env)
		require.Equal(t, "lunch?", out.Content)
	}

	h.Dispatch(ctx, bob, []byte(`{"event":"mark_read","payload":{"chatId":"c1"}}`))

	env := recvEvent(t, alice)
	require.Equal(t, EvtMessagesRead, env.Event)
	require.Equal(t, "bob", decodePayload[ReadOut](t, env).ReadBy)
	requireNoEvent(t, bob)
}

func TestMeetingFlowOverDispatch(t *testing.T) {
	fs := newFakeStore()
	fs.addMeeting(store.Meeting{ID: "m1", HostID: "alice", Status: store.MeetingActive})
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	h.Dispatch(ctx, alice, []byte(`{"event":"join_meeting","payload":{"meetingId":"m1"}}`))
	h.Dispatch(ctx, bob, []byte(`{"event":"join_meeting","payload":{"meetingId":"m1"}}`))

	require.Equal(t, EvtUserJoinedMeeting, recvEvent(t, alice).Event)

	h.Dispatch(ctx, bob, []byte(`{"event":"webrtc_offer","payload":{"meetingId":"m1","to":"alice","offer":{"sdp":"v=0"}}}`))
	env := recvEvent(t, alice)
	require.Equal(t, EvtWebRTCOffer, env.Event)
	require.Equal(t, "bob", decodePayload[SignalIn](t, env).From)

	h.Dispatch(ctx, bob, []byte(`{"event":"toggle_video","payload":{"meetingId":"m1","enabled":false}}`))
	require.Equal(t, EvtUserToggleVideo, recvEvent(t, alice).Event)

	h.Dispatch(ctx, bob, []byte(`{"event":"leave_meeting","payload":{"meetingId":"m1"}}`))
	require.Equal(t, EvtUserLeftMeeting, recvEvent(t, alice).Event)
}
