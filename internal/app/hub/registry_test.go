package hub

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryFirstAndLastTransitions(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	phone := newTestConn(h, "alice", "alice")
	laptop := newTestConn(h, "alice", "alice")

	require.True(t, h.registry.Register(ctx, phone))
	require.False(t, h.registry.Register(ctx, laptop))
	require.True(t, h.registry.IsOnline("alice"))
	require.Len(t, h.registry.ConnectionsFor("alice"), 2)

	require.False(t, h.registry.Unregister(ctx, phone))
	require.True(t, h.registry.IsOnline("alice"))

	require.True(t, h.registry.Unregister(ctx, laptop))
	require.False(t, h.registry.IsOnline("alice"))
	require.Empty(t, h.registry.ConnectionsFor("alice"))

	// Exactly one online and one offline presence write.
	require.Equal(t, []string{"alice:online", "alice:offline"}, fs.statuses)
}

func TestRegistryUnregisterUnknownConn(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	stray := newTestConn(h, "alice", "alice")
	require.False(t, h.registry.Unregister(ctx, stray))
	require.Empty(t, fs.statuses)
}

func TestEnqueueAfterDisconnectDropsFrame(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	bob := newTestConn(h, "bob", "bob")
	h.HandleConnect(ctx, bob)

	// A fan-out may snapshot the connection set just before the target
	// disconnects and push onto it after teardown.
	targets := h.registry.ConnectionsFor("bob")
	require.Len(t, targets, 1)

	h.HandleDisconnect(ctx, bob)

	// The late frame is dropped; it must never hit the closed send queue.
	require.False(t, targets[0].enqueue([]byte(`{"event":"user_online"}`)))
	targets[0].SendEvent(EvtUserOnline, PresenceOut{UserID: "alice"})
}

func TestRegisterReplacesRetiredEntry(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	phone := newTestConn(h, "alice", "alice")
	require.True(t, h.registry.Register(ctx, phone))

	h.registry.mu.RLock()
	stale := h.registry.entries["alice"]
	h.registry.mu.RUnlock()

	require.True(t, h.registry.Unregister(ctx, phone))

	// The last unregister retires the entry. A Register racing that cleanup
	// may still hold the stale pointer; joining it would leave the connection
	// invisible to fan-out.
	stale.mu.Lock()
	require.True(t, stale.dead)
	stale.mu.Unlock()

	laptop := newTestConn(h, "alice", "alice")
	require.True(t, h.registry.Register(ctx, laptop))
	require.Equal(t, []*Conn{laptop}, h.registry.ConnectionsFor("alice"))

	h.registry.mu.RLock()
	fresh := h.registry.entries["alice"]
	h.registry.mu.RUnlock()
	require.NotSame(t, stale, fresh)

	require.Equal(t, []string{"alice:online", "alice:offline", "alice:online"}, fs.statuses)
}

func TestRegisterStaysVisibleUnderChurn(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	// Hammer the register-versus-cleanup window: once Register returns, the
	// connection must be visible until its own Unregister runs, no matter how
	// another device's teardown interleaves.
	for i := 0; i < 200; i++ {
		other := newTestConn(h, "alice", "alice")
		mine := newTestConn(h, "alice", "alice")

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.registry.Register(ctx, other)
			h.registry.Unregister(ctx, other)
		}()

		h.registry.Register(ctx, mine)
		require.Contains(t, h.registry.ConnectionsFor("alice"), mine)
		require.True(t, h.registry.IsOnline("alice"))
		h.registry.Unregister(ctx, mine)
		wg.Wait()
	}

	require.False(t, h.registry.IsOnline("alice"))
}

func TestRegistryConcurrentChurn(t *testing.T) {
	fs := newFakeStore()
	h := newTestHub(t, fs)
	ctx := context.Background()

	const devices = 16

	conns := make([]*Conn, devices)
	for i := range conns {
		conns[i] = newTestConn(h, "alice", "alice")
	}

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			h.registry.Register(ctx, c)
			h.registry.Unregister(ctx, c)
		}(c)
	}
	wg.Wait()

	require.False(t, h.registry.IsOnline("alice"))
	require.Empty(t, h.registry.ConnectionsFor("alice"))
}
