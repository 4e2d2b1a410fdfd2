package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vaaniarc/internal/app/store"
	"vaaniarc/internal/pkg/auth/jwt"
	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/logx"
	"vaaniarc/internal/pkg/req"
	"vaaniarc/internal/pkg/resp"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type CreateChatInput struct {
	UserID string `json:"userId" validate:"required,uuid4"`
}

// HandleCreateChat opens a private chat with another user, returning the
// existing chat when the pair already has one.
func HandleCreateChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input CreateChatInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == identity.ID {
			resp.RespondError(w, r, errs.NewError(errs.ErrSelfChatInvalid))
			return
		}

		if _, err := deps.Store.UserByID(r.Context(), input.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "create_chat: peer lookup failed", "peer_id", input.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		chat, err := deps.Store.CreateOrGetChat(r.Context(), identity.ID, input.UserID)
		if err != nil {
			logx.Error(err, "create_chat: upsert failed", "peer_id", input.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"chat": chat,
		})
	}
}

// HandleListChats returns the caller's private chats ordered by last activity.
func HandleListChats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		chats, err := deps.Store.ChatsForUser(r.Context(), identity.ID)
		if err != nil {
			logx.Error(err, "list_chats failed", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"chats": chats,
		})
	}
}

// HandleChatMessages returns the paginated message history of a private chat.
// Messages come back newest-first; pass ?before=<messageID> to page backwards.
func HandleChatMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		chatID := chi.URLParam(r, "chatID")

		chat, err := deps.Store.ChatByID(r.Context(), chatID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrConversationNotFound))
				return
			}
			logx.Error(err, "chat_messages: chat lookup failed", "chat_id", chatID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if chat.ParticipantA != identity.ID && chat.ParticipantB != identity.ID {
			resp.RespondError(w, r, errs.NewError(errs.ErrAccessDenied))
			return
		}

		messages, err := deps.Store.MessagesForConversation(
			r.Context(),
			store.KindChat,
			chatID,
			historyLimit(r),
			r.URL.Query().Get("before"),
		)
		if err != nil {
			logx.Error(err, "chat_messages: history fetch failed", "chat_id", chatID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": messages,
		})
	}
}

// historyLimit parses the ?limit query parameter, clamped to maxHistoryLimit.
func historyLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}

	return limit
}
