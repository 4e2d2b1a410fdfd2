package hub

import (
	"context"

	"github.com/rs/zerolog"

	"vaaniarc/internal/pkg/logx"
)

// DeliverOptions tunes one fan-out call. SkipConn excludes a single
// connection (to avoid echoing an action back to its originator); SkipUserID
// excludes every connection of one identity (the actor already knows what it
// did on all of its devices).
type DeliverOptions struct {
	SkipConn   *Conn
	SkipUserID string
}

// Router resolves a conversation to its set of live connections and pushes
// events to them. Members without a live connection are silently skipped:
// there is no offline queue here, reconciliation after reconnect happens
// through the history read path.
type Router struct {
	registry *Registry
	oracle   *Oracle
	logger   zerolog.Logger
}

// NewRouter returns a fan-out router over the given registry and oracle.
func NewRouter(registry *Registry, oracle *Oracle) *Router {
	return &Router{
		registry: registry,
		oracle:   oracle,
		logger:   logx.Logger().With().Str("component", "Router").Logger(),
	}
}

// Deliver marshals the event once and pushes it to every live connection of
// every current member of the conversation, honoring the exclusions in opts.
// Events persisted before this call are observed by all recipients in
// persistence order, because the caller persists before fanning out and each
// connection processes one inbound event at a time.
func (r *Router) Deliver(ctx context.Context, ref ConvRef, event string, payload any, opts DeliverOptions) error {
	frame, err := Marshal(event, payload)
	if err != nil {
		return err
	}

	members, err := r.oracle.Members(ctx, ref)
	if err != nil {
		return err
	}

	for _, userID := range members {
		if userID == opts.SkipUserID {
			continue
		}
		r.pushToUser(userID, frame, opts.SkipConn)
	}
	return nil
}

// DeliverToUser pushes the event to every live connection of one identity.
// Used for point-to-point delivery (signaling, presence) where membership
// resolution has already happened. No live connections means a silent drop.
func (r *Router) DeliverToUser(userID string, event string, payload any) error {
	frame, err := Marshal(event, payload)
	if err != nil {
		return err
	}
	r.pushToUser(userID, frame, nil)
	return nil
}

func (r *Router) pushToUser(userID string, frame []byte, skip *Conn) {
	for _, conn := range r.registry.ConnectionsFor(userID) {
		if conn == skip {
			continue
		}
		conn.enqueue(frame)
	}
}
