package hub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"vaaniarc/internal/app/store"
	"vaaniarc/internal/pkg/errs"
)

func TestRelayJoinAnnouncesToGroup(t *testing.T) {
	fs := newFakeStore()
	fs.addMeeting(store.Meeting{ID: "m1", HostID: "alice", Status: store.MeetingActive})
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	require.Nil(t, h.relay.Join(ctx, alice, "m1"))
	require.Nil(t, h.relay.Join(ctx, bob, "m1"))

	env := recvEvent(t, alice)
	require.Equal(t, EvtUserJoinedMeeting, env.Event)
	member := decodePayload[MemberOut](t, env)
	require.Equal(t, "bob", member.UserID)
	require.Equal(t, "m1", member.MeetingID)

	// The joiner does not hear its own announcement.
	requireNoEvent(t, bob)
}

func TestRelayJoinRejectsEndedAndUnknownMeetings(t *testing.T) {
	fs := newFakeStore()
	fs.addMeeting(store.Meeting{ID: "m1", HostID: "alice", Status: store.MeetingEnded})
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, alice)

	joinErr := h.relay.Join(ctx, alice, "m1")
	require.NotNil(t, joinErr)
	require.Equal(t, errs.ErrMeetingEnded, joinErr.Code)

	joinErr = h.relay.Join(ctx, alice, "ghost")
	require.NotNil(t, joinErr)
	require.Equal(t, errs.ErrMeetingNotFound, joinErr.Code)
}

func TestRelayForwardsSignalWithSenderStamped(t *testing.T) {
	fs := newFakeStore()
	fs.addMeeting(store.Meeting{ID: "m1", HostID: "alice", Status: store.MeetingActive})
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	h.relay.Relay(alice, EvtWebRTCOffer, SignalIn{MeetingID: "m1", To: "bob", Offer: offer})

	env := recvEvent(t, bob)
	require.Equal(t, EvtWebRTCOffer, env.Event)
	signal := decodePayload[SignalIn](t, env)
	require.Equal(t, "alice", signal.From)
	require.Empty(t, signal.To)
	require.JSONEq(t, string(offer), string(signal.Offer))
}

func TestRelayDropsSignalForOfflineTarget(t *testing.T) {
	fs := newFakeStore()
	fs.addMeeting(store.Meeting{ID: "m1", HostID: "alice", Status: store.MeetingActive})
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, alice)

	// No live connection for bob: the envelope vanishes and the sender gets
	// no error back.
	h.relay.Relay(alice, EvtWebRTCAnswer, SignalIn{MeetingID: "m1", To: "bob"})
	requireNoEvent(t, alice)
}

func TestRelayToggleBroadcast(t *testing.T) {
	fs := newFakeStore()
	fs.addMeeting(store.Meeting{ID: "m1", HostID: "alice", Status: store.MeetingActive})
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	require.Nil(t, h.relay.Join(ctx, alice, "m1"))
	require.Nil(t, h.relay.Join(ctx, bob, "m1"))
	recvEvent(t, alice) // bob's join announcement

	h.relay.Toggle(bob, "m1", EvtToggleAudio, false)

	env := recvEvent(t, alice)
	require.Equal(t, EvtUserToggleAudio, env.Event)
	toggle := decodePayload[ToggleOut](t, env)
	require.Equal(t, "bob", toggle.UserID)
	require.False(t, toggle.Enabled)
}

func TestRelayDropConnectionAnnouncesDepartures(t *testing.T) {
	fs := newFakeStore()
	fs.addMeeting(store.Meeting{ID: "m1", HostID: "alice", Status: store.MeetingActive})
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	require.Nil(t, h.relay.Join(ctx, alice, "m1"))
	require.Nil(t, h.relay.Join(ctx, bob, "m1"))
	recvEvent(t, alice) // bob's join announcement

	// Transport death without an explicit leave.
	h.HandleDisconnect(ctx, bob)

	env := recvEvent(t, alice)
	require.Equal(t, EvtUserLeftMeeting, env.Event)
	member := decodePayload[MemberOut](t, env)
	require.Equal(t, "bob", member.UserID)
}

func TestRelayLeaveIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	fs.addMeeting(store.Meeting{ID: "m1", HostID: "alice", Status: store.MeetingActive})
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	require.Nil(t, h.relay.Join(ctx, alice, "m1"))
	require.Nil(t, h.relay.Join(ctx, bob, "m1"))
	recvEvent(t, alice)

	h.relay.Leave(bob, "m1")
	require.Equal(t, EvtUserLeftMeeting, recvEvent(t, alice).Event)

	// Leaving again, or leaving a group never joined, announces nothing.
	h.relay.Leave(bob, "m1")
	h.relay.Leave(bob, "ghost")
	requireNoEvent(t, alice)
}
