package hub

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vaaniarc/internal/app/store"
	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/logx"
)

// MaxContentBytes is the maximum allowed size of a message content payload.
const MaxContentBytes = 5000

// MessageStore is the slice of the durable store the pipeline writes to.
type MessageStore interface {
	CreateMessage(ctx context.Context, p store.CreateMessageParams) (store.Message, error)
	TouchConversation(ctx context.Context, kind, conversationID string) error
}

// MessageOut is the canonical persisted message delivered to every member,
// with the sender profile attached so clients render without a profile fetch.
type MessageOut struct {
	store.Message
	Sender Identity `json:"sender"`
}

var validMessageTypes = map[string]struct{}{
	store.MessageText:  {},
	store.MessageImage: {},
	store.MessageFile:  {},
	store.MessageAudio: {},
	store.MessageVideo: {},
}

// Pipeline validates, persists, and fans out message submissions. Persistence
// always precedes fan-out, which is what gives a single conversation its
// delivery-ordering guarantee.
type Pipeline struct {
	oracle   *Oracle
	router   *Router
	messages MessageStore
	logger   zerolog.Logger
}

// NewPipeline returns a message delivery pipeline.
func NewPipeline(oracle *Oracle, router *Router, messages MessageStore) *Pipeline {
	return &Pipeline{
		oracle:   oracle,
		router:   router,
		messages: messages,
		logger:   logx.Logger().With().Str("component", "Pipeline").Logger(),
	}
}

// Submit runs one message through the pipeline: membership check, payload
// validation, persist, last-activity bump, fan-out. A failure at any step is
// terminal for this one submission and is returned to the caller for the
// originating connection only; nothing is partially fanned out. All member
// connections, including the sender's other devices and the submitting
// connection itself, receive the canonical persisted copy.
func (p *Pipeline) Submit(ctx context.Context, conn *Conn, ref ConvRef, in MessageIn) (*store.Message, *errs.CustomError) {
	sender := conn.Identity()

	ok, err := p.oracle.IsMember(ctx, ref, sender.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NewError(errs.ErrConversationNotFound)
		}
		p.logger.Error().Err(err).Str("conversation_id", ref.ID).Msg("Membership lookup failed")
		return nil, errs.NewError(errs.ErrPersistenceFailed)
	}
	if !ok {
		return nil, errs.NewError(errs.ErrAccessDenied)
	}

	msgType := in.MessageType
	if msgType == "" {
		msgType = store.MessageText
	}
	if _, known := validMessageTypes[msgType]; !known {
		return nil, errs.NewError(errs.ErrMessageTypeInvalid)
	}
	if in.Content == "" && in.FileURL == "" {
		return nil, errs.NewError(errs.ErrMessageContentEmpty)
	}
	if len(in.Content) > MaxContentBytes {
		return nil, errs.NewError(errs.ErrMessageContentTooLong)
	}
	if !utf8.ValidString(in.Content) {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	msg, err := p.messages.CreateMessage(ctx, store.CreateMessageParams{
		ID:               uuid.NewString(),
		ConversationKind: string(ref.Kind),
		ConversationID:   ref.ID,
		SenderID:         sender.ID,
		Content:          in.Content,
		MessageType:      msgType,
		FileURL:          in.FileURL,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("conversation_id", ref.ID).Msg("Message persist failed, delivery aborted")
		return nil, errs.NewError(errs.ErrPersistenceFailed)
	}

	// The message is already durable; a failed activity bump only degrades
	// conversation ordering in list views.
	if err := p.messages.TouchConversation(ctx, string(ref.Kind), ref.ID); err != nil {
		p.logger.Warn().Err(err).Str("conversation_id", ref.ID).Msg("Failed to bump conversation activity")
	}

	event := EvtPrivateMessage
	if ref.Kind == KindRoom {
		event = EvtRoomMessage
	}

	out := MessageOut{Message: msg, Sender: sender}
	if err := p.router.Deliver(ctx, ref, event, out, DeliverOptions{}); err != nil {
		p.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Fan-out failed after persist")
	}

	return &msg, nil
}
