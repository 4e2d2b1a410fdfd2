package hub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vaaniarc/internal/app/store"
	"vaaniarc/internal/pkg/logx"
)

// PresenceStore is the slice of the durable store the registry writes
// presence transitions to.
type PresenceStore interface {
	UpdateUserStatus(ctx context.Context, userID, status string, lastSeen *time.Time) error
}

// Registry binds authenticated identities to their live connections and owns
// the persisted presence state derived from them.
//
// The identity map is guarded by a registry-wide mutex, but connection-set
// mutation and the online/offline presence transition for one identity are
// serialized on a per-identity lock, so simultaneous connect/disconnect of
// two devices cannot lose an update. Lock order is always registry then
// entry, never the reverse.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*identityEntry

	presence PresenceStore
	logger   zerolog.Logger
}

type identityEntry struct {
	mu    sync.Mutex
	conns map[*Conn]struct{}

	// dead marks an entry that Unregister's cleanup has removed from the
	// registry map. Register must not add connections to it.
	dead bool
}

// NewRegistry returns an empty session registry.
func NewRegistry(presence PresenceStore) *Registry {
	return &Registry{
		entries:  make(map[string]*identityEntry),
		presence: presence,
		logger:   logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// Register adds the connection to its identity's connection set. It returns
// true when this was the identity's first live connection, in which case the
// persisted presence has been transitioned to online. A presence write
// failure is logged and swallowed; it never blocks the connection.
func (r *Registry) Register(ctx context.Context, c *Conn) bool {
	userID := c.identity.ID

	var entry *identityEntry
	for {
		r.mu.Lock()
		entry = r.entries[userID]
		if entry == nil {
			entry = &identityEntry{conns: make(map[*Conn]struct{})}
			r.entries[userID] = entry
		}
		r.mu.Unlock()

		entry.mu.Lock()
		if !entry.dead {
			break
		}

		// Unregister's cleanup deleted this entry between the map fetch and
		// the lock acquisition. Joining an orphaned entry would make the
		// connection invisible to fan-out, so fetch a fresh one.
		entry.mu.Unlock()
	}
	defer entry.mu.Unlock()

	entry.conns[c] = struct{}{}
	first := len(entry.conns) == 1

	if first {
		if err := r.presence.UpdateUserStatus(ctx, userID, store.PresenceOnline, nil); err != nil {
			r.logger.Error().Err(err).Str("user_id", userID).
				Msg("Failed to persist online presence; continuing with stale presence")
		}
	}

	r.logger.Info().
		Str("user_id", userID).
		Str("conn_id", c.id).
		Int("device_count", len(entry.conns)).
		Msg("Connection registered")

	return first
}

// Unregister removes the connection. It returns true when the identity's
// connection set became empty, in which case presence has been transitioned
// to offline with a last-seen timestamp. If another device is still live,
// presence is untouched.
func (r *Registry) Unregister(ctx context.Context, c *Conn) bool {
	userID := c.identity.ID

	r.mu.RLock()
	entry := r.entries[userID]
	r.mu.RUnlock()

	if entry == nil {
		return false
	}

	entry.mu.Lock()
	if _, ok := entry.conns[c]; !ok {
		entry.mu.Unlock()
		return false
	}
	delete(entry.conns, c)
	last := len(entry.conns) == 0

	if last {
		now := time.Now()
		if err := r.presence.UpdateUserStatus(ctx, userID, store.PresenceOffline, &now); err != nil {
			r.logger.Error().Err(err).Str("user_id", userID).
				Msg("Failed to persist offline presence; continuing with stale presence")
		}
	}

	remaining := len(entry.conns)
	entry.mu.Unlock()

	r.logger.Info().
		Str("user_id", userID).
		Str("conn_id", c.id).
		Int("device_count", remaining).
		Msg("Connection unregistered")

	if last {
		r.mu.Lock()
		if current := r.entries[userID]; current == entry {
			current.mu.Lock()
			if len(current.conns) == 0 {
				current.dead = true
				delete(r.entries, userID)
			}
			current.mu.Unlock()
		}
		r.mu.Unlock()
	}

	return last
}

// ConnectionsFor returns a snapshot of the identity's live connections.
func (r *Registry) ConnectionsFor(userID string) []*Conn {
	r.mu.RLock()
	entry := r.entries[userID]
	r.mu.RUnlock()

	if entry == nil {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	conns := make([]*Conn, 0, len(entry.conns))
	for c := range entry.conns {
		conns = append(conns, c)
	}
	return conns
}

// IsOnline reports whether the identity has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	return len(r.ConnectionsFor(userID)) > 0
}
