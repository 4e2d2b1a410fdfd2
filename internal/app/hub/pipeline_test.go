package hub

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"vaaniarc/internal/pkg/errs"
)

func TestSubmitDeliversPersistedCopyToAllMembers(t *testing.T) {
	fs := newFakeStore()
	fs.addChat("c1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alicePhone := newTestConn(h, "alice", "alice")
	aliceLaptop := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	for _, c := range []*Conn{alicePhone, aliceLaptop, bob} {
		h.HandleConnect(ctx, c)
	}

	msg, submitErr := h.pipeline.Submit(ctx, alicePhone, ConvRef{Kind: KindChat, ID: "c1"}, MessageIn{Content: "hello"})
	require.Nil(t, submitErr)
	require.NotEmpty(t, msg.ID)
	require.Equal(t, 1, fs.messageCount())
	require.Equal(t, []string{"chat:c1"}, fs.touched)

	// Every member connection gets the canonical persisted copy, the
	// submitting connection and the sender's other device included.
	for _, c := range []*Conn{alicePhone, aliceLaptop, bob} {
		env := recvEvent(t, c)
		require.Equal(t, EvtPrivateMessage, env.Event)
		out := decodePayload[MessageOut](t, env)
		require.Equal(t, msg.ID, out.ID)
		require.Equal(t, "hello", out.Content)
		require.Equal(t, "alice", out.Sender.ID)
	}
}

func TestSubmitRoomMessageUsesRoomEvent(t *testing.T) {
	fs := newFakeStore()
	fs.addRoom("r1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	_, submitErr := h.pipeline.Submit(ctx, alice, ConvRef{Kind: KindRoom, ID: "r1"}, MessageIn{Content: "hey room"})
	require.Nil(t, submitErr)

	env := recvEvent(t, bob)
	require.Equal(t, EvtRoomMessage, env.Event)
}

func TestSubmitNonMemberIsDeniedWithoutPersist(t *testing.T) {
	fs := newFakeStore()
	fs.addChat("c1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, alice)
	mallory := newTestConn(h, "mallory", "mallory")
	h.HandleConnect(ctx, mallory)

	_, submitErr := h.pipeline.Submit(ctx, mallory, ConvRef{Kind: KindChat, ID: "c1"}, MessageIn{Content: "let me in"})
	require.NotNil(t, submitErr)
	require.Equal(t, errs.ErrAccessDenied, submitErr.Code)

	require.Zero(t, fs.messageCount())
	requireNoEvent(t, alice)
}

func TestSubmitUnknownConversation(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, alice)

	_, submitErr := h.pipeline.Submit(ctx, alice, ConvRef{Kind: KindChat, ID: "ghost"}, MessageIn{Content: "anyone?"})
	require.NotNil(t, submitErr)
	require.Equal(t, errs.ErrConversationNotFound, submitErr.Code)
}

func TestSubmitUnknownRoom(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, alice)

	// A room that does not exist is reported as not-found, not as a
	// membership denial.
	_, submitErr := h.pipeline.Submit(ctx, alice, ConvRef{Kind: KindRoom, ID: "ghost"}, MessageIn{Content: "anyone?"})
	require.NotNil(t, submitErr)
	require.Equal(t, errs.ErrConversationNotFound, submitErr.Code)
}

func TestSubmitValidation(t *testing.T) {
	fs := newFakeStore()
	fs.addChat("c1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	h.HandleConnect(ctx, alice)
	ref := ConvRef{Kind: KindChat, ID: "c1"}

	cases := []struct {
		name string
		in   MessageIn
		code int
	}{
		{"empty content", MessageIn{}, errs.ErrMessageContentEmpty},
		{"unknown type", MessageIn{Content: "x", MessageType: "hologram"}, errs.ErrMessageTypeInvalid},
		{"oversized content", MessageIn{Content: strings.Repeat("a", MaxContentBytes+1)}, errs.ErrMessageContentTooLong},
		{"invalid utf-8 content", MessageIn{Content: "hi\xff\xfe"}, errs.ErrInvalidParams},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, submitErr := h.pipeline.Submit(ctx, alice, ref, tc.in)
			require.NotNil(t, submitErr)
			require.Equal(t, tc.code, submitErr.Code)
		})
	}

	require.Zero(t, fs.messageCount())

	// A file attachment without a caption is a valid message.
	msg, submitErr := h.pipeline.Submit(ctx, alice, ref, MessageIn{MessageType: "image", FileURL: "https://files/x.png"})
	require.Nil(t, submitErr)
	require.Equal(t, "image", msg.MessageType)
}

func TestSubmitPreservesPersistenceOrder(t *testing.T) {
	fs := newFakeStore()
	fs.addChat("c1", "alice", "bob")
	h := newTestHub(t, fs)
	ctx := context.Background()

	alice := newTestConn(h, "alice", "alice")
	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, alice)
	h.HandleConnect(ctx, bob)

	const n = 10
	ref := ConvRef{Kind: KindChat, ID: "c1"}
	for i := 0; i < n; i++ {
		_, submitErr := h.pipeline.Submit(ctx, alice, ref, MessageIn{Content: fmt.Sprintf("msg-%d", i)})
		require.Nil(t, submitErr)
	}

	for i := 0; i < n; i++ {
		env := recvEvent(t, bob)
		out := decodePayload[MessageOut](t, env)
		require.Equal(t, fmt.Sprintf("msg-%d", i), out.Content)
	}
}
