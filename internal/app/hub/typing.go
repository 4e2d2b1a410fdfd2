package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vaaniarc/internal/app/store"
	"vaaniarc/internal/pkg/logx"
)

const (
	// DefaultTypingTTL is the inactivity window after the last typing signal
	// before the indicator is expired on the typist's behalf.
	DefaultTypingTTL = 4 * time.Second

	// DefaultTypingSweep is how often expired typing state is collected.
	DefaultTypingSweep = 1 * time.Second

	// sweepTimeout bounds the store reads performed while fanning out an
	// expiry notification.
	sweepTimeout = 5 * time.Second
)

type typingKey struct {
	kind   ConvKind
	convID string
	userID string
}

type typingState struct {
	expiry time.Time
	typist Identity
}

// Typing coordinates the ephemeral per-conversation typing indicators. State
// lives purely in memory, keyed by (conversation, identity), and is refreshed
// monotonically by repeated start signals. It is never persisted and never
// blocks message delivery; a hub restart simply loses it and clients
// re-announce.
type Typing struct {
	mu      sync.Mutex
	entries map[typingKey]typingState

	oracle *Oracle
	router *Router

	ttl   time.Duration
	sweep time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup

	logger zerolog.Logger
}

// NewTyping returns a typing coordinator and starts its expiry sweep loop.
// Zero durations select the defaults.
func NewTyping(oracle *Oracle, router *Router, ttl, sweep time.Duration) *Typing {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	if sweep <= 0 {
		sweep = DefaultTypingSweep
	}

	t := &Typing{
		entries: make(map[typingKey]typingState),
		oracle:  oracle,
		router:  router,
		ttl:     ttl,
		sweep:   sweep,
		stopCh:  make(chan struct{}),
		logger:  logx.Logger().With().Str("component", "Typing").Logger(),
	}

	t.wg.Add(1)
	go t.sweepLoop()

	return t
}

// Start registers or refreshes typing state for (conversation, typist). Only
// the first signal of a typing session notifies the other members; repeated
// signals merely push the expiry out, so one notification covers the whole
// session rather than every keystroke. Non-members are dropped silently:
// typing is advisory and has no originating request to answer.
func (t *Typing) Start(ctx context.Context, conn *Conn, ref ConvRef) {
	typist := conn.Identity()

	ok, err := t.oracle.IsMember(ctx, ref, typist.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		t.logger.Warn().Err(err).Str("conversation_id", ref.ID).Msg("Typing membership lookup failed")
		return
	}
	if !ok {
		return
	}

	key := typingKey{kind: ref.Kind, convID: ref.ID, userID: typist.ID}

	t.mu.Lock()
	_, refreshing := t.entries[key]
	t.entries[key] = typingState{expiry: time.Now().Add(t.ttl), typist: typist}
	t.mu.Unlock()

	if refreshing {
		return
	}

	t.notify(ctx, ref, typist, true)
}

// Stop clears typing state for (conversation, typist) and notifies the other
// members. It is idempotent: calling it with no live state still emits the
// advisory stop, matching a client that cleared a stale local indicator.
func (t *Typing) Stop(ctx context.Context, conn *Conn, ref ConvRef) {
	typist := conn.Identity()

	ok, err := t.oracle.IsMember(ctx, ref, typist.ID)
	if err != nil || !ok {
		return
	}

	key := typingKey{kind: ref.Kind, convID: ref.ID, userID: typist.ID}

	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()

	t.notify(ctx, ref, typist, false)
}

// Shutdown stops the sweep loop and waits for it to exit.
func (t *Typing) Shutdown() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
	t.wg.Wait()
}

// sweepLoop periodically expires typing state whose window has elapsed and
// notifies as if the client had stopped explicitly. This guards against a
// client disconnecting mid-type without a stop signal.
func (t *Typing) sweepLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.sweep)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			t.expire(now)
		case <-t.stopCh:
			return
		}
	}
}

func (t *Typing) expire(now time.Time) {
	type expired struct {
		ref    ConvRef
		typist Identity
	}

	t.mu.Lock()
	var stale []expired
	for key, state := range t.entries {
		if now.After(state.expiry) {
			stale = append(stale, expired{
				ref:    ConvRef{Kind: key.kind, ID: key.convID},
				typist: state.typist,
			})
			delete(t.entries, key)
		}
	}
	t.mu.Unlock()

	for _, e := range stale {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		t.notify(ctx, e.ref, e.typist, false)
		cancel()
	}
}

// notify fans the typing transition out to the conversation, excluding every
// connection of the typist: their own devices already hold the local state.
func (t *Typing) notify(ctx context.Context, ref ConvRef, typist Identity, started bool) {
	payload := TypingOut{UserID: typist.ID}
	if started {
		payload.Username = typist.Username
	}

	var event string
	switch ref.Kind {
	case KindChat:
		payload.ChatID = ref.ID
		event = EvtUserStopTyping
		if started {
			event = EvtUserTyping
		}
	case KindRoom:
		payload.RoomID = ref.ID
		event = EvtUserStopTypingRoom
		if started {
			event = EvtUserTypingRoom
		}
	default:
		return
	}

	err := t.router.Deliver(ctx, ref, event, payload, DeliverOptions{SkipUserID: typist.ID})
	if err != nil {
		t.logger.Warn().Err(err).Str("conversation_id", ref.ID).Msg("Typing notification fan-out failed")
	}
}
