package hub

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"vaaniarc/internal/app/store"
	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/logx"
)

// ReadStore is the slice of the durable store the receipt propagator writes.
type ReadStore interface {
	MarkConversationRead(ctx context.Context, kind, conversationID, readerID string) (int64, error)
}

// Receipts marks persisted messages read and tells the other participants.
type Receipts struct {
	oracle *Oracle
	router *Router
	reads  ReadStore
	logger zerolog.Logger
}

// NewReceipts returns a read-receipt propagator.
func NewReceipts(oracle *Oracle, router *Router, reads ReadStore) *Receipts {
	return &Receipts{
		oracle: oracle,
		router: router,
		reads:  reads,
		logger: logx.Logger().With().Str("component", "Receipts").Logger(),
	}
}

// MarkRead marks every unread message in the conversation not sent by the
// reader as read, in one set-based update, then notifies the other members.
// The batch update is idempotent, so concurrent calls from multiple devices
// of the same reader converge without read-modify-write races. The outbound
// notification carries only the reader and conversation; recipients re-derive
// which messages flipped from their own lists.
func (r *Receipts) MarkRead(ctx context.Context, conn *Conn, ref ConvRef) *errs.CustomError {
	reader := conn.Identity()

	ok, err := r.oracle.IsMember(ctx, ref, reader.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errs.NewError(errs.ErrConversationNotFound)
		}
		r.logger.Error().Err(err).Str("conversation_id", ref.ID).Msg("Read membership lookup failed")
		return errs.NewError(errs.ErrPersistenceFailed)
	}
	if !ok {
		return errs.NewError(errs.ErrAccessDenied)
	}

	marked, err := r.reads.MarkConversationRead(ctx, string(ref.Kind), ref.ID, reader.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("conversation_id", ref.ID).Msg("Batch read update failed")
		return errs.NewError(errs.ErrPersistenceFailed)
	}

	r.logger.Debug().
		Str("conversation_id", ref.ID).
		Str("reader_id", reader.ID).
		Int64("marked", marked).
		Msg("Conversation marked read")

	payload := ReadOut{ReadBy: reader.ID}
	switch ref.Kind {
	case KindChat:
		payload.ChatID = ref.ID
	case KindRoom:
		payload.RoomID = ref.ID
	}

	err = r.router.Deliver(ctx, ref, EvtMessagesRead, payload, DeliverOptions{SkipUserID: reader.ID})
	if err != nil {
		r.logger.Warn().Err(err).Str("conversation_id", ref.ID).Msg("Read notification fan-out failed")
	}

	return nil
}
