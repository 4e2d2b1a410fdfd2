package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTypingStartNotifiesOnceAndRefreshes(t *testing.T) {
	fs := newFakeStore()
	fs.addChat("c1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	ref := ConvRef{Kind: KindChat, ID: "c1"}

	h.typing.Start(ctx, alice, ref)
	env := recvEvent(t, bob)
	require.Equal(t, EvtUserTyping, env.Event)
	typing := decodePayload[TypingOut](t, env)
	require.Equal(t, "alice", typing.UserID)
	require.Equal(t, "c1", typing.ChatID)

	// The typist's own devices are excluded.
	requireNoEvent(t, alice)

	// Repeated start signals refresh silently.
	h.typing.Start(ctx, alice, ref)
	h.typing.Start(ctx, alice, ref)
	requireNoEvent(t, bob)
}

func TestTypingStopNotifies(t *testing.T) {
	fs := newFakeStore()
	fs.addChat("c1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	ref := ConvRef{Kind: KindChat, ID: "c1"}

	h.typing.Start(ctx, alice, ref)
	require.Equal(t, EvtUserTyping, recvEvent(t, bob).Event)

	h.typing.Stop(ctx, alice, ref)
	require.Equal(t, EvtUserStopTyping, recvEvent(t, bob).Event)

	// Stop without live state is still advisory, not an error.
	h.typing.Stop(ctx, alice, ref)
	require.Equal(t, EvtUserStopTyping, recvEvent(t, bob).Event)
}

func TestTypingExpiresWithoutStop(t *testing.T) {
	fs := newFakeStore()
	fs.addRoom("r1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	ref := ConvRef{Kind: KindRoom, ID: "r1"}

	h.typing.Start(ctx, alice, ref)
	require.Equal(t, EvtUserTypingRoom, recvEvent(t, bob).Event)

	// The sweep loop expires the indicator on the typist's behalf.
	select {
	case frame := <-bob.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		require.Equal(t, EvtUserStopTypingRoom, env.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("typing state never expired")
	}
}

func TestTypingNonMemberDroppedSilently(t *testing.T) {
	fs := newFakeStore()
	fs.addChat("c1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, alice)
	mallory := newTestConn(h, "mallory", "mallory")
	h.HandleConnect(ctx, mallory)

	h.typing.Start(ctx, mallory, ConvRef{Kind: KindChat, ID: "c1"})

	requireNoEvent(t, alice)
	requireNoEvent(t, mallory)
}
