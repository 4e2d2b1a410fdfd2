package handler

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"vaaniarc/internal/app/store"
	"vaaniarc/internal/pkg/auth/jwt"
	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/logx"
	"vaaniarc/internal/pkg/req"
	"vaaniarc/internal/pkg/resp"
)

// PublicUser is the subset of a user record exposed to other users.
type PublicUser struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Nickname   string     `json:"nickname"`
	AvatarURL  string     `json:"avatarUrl"`
	Status     string     `json:"status"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

func toPublicUser(u store.User) PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Nickname:   u.Nickname,
		AvatarURL:  u.AvatarURL,
		Status:     u.Status,
		LastSeenAt: u.LastSeenAt,
	}
}

// HandleGetUserProfile retrieves the current authenticated user's profile.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		dbUser, err := deps.Store.UserByID(r.Context(), identity.ID)
		if err != nil {
			logx.Warn("get_user_profile: user not found", "id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": dbUser,
		})
	}
}

type UpdateProfileInput struct {
	Nickname  string `json:"nickname" validate:"omitempty,max=50"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,max=500"`
}

// HandleUpdateUserProfile updates the nickname and avatar of the current user.
func HandleUpdateUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if utf8.RuneCountInString(strings.TrimSpace(input.Nickname)) == 0 && input.AvatarURL == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		current, err := deps.Store.UserByID(r.Context(), identity.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		nickname := strings.TrimSpace(input.Nickname)
		if nickname == "" {
			nickname = current.Nickname
		}
		avatarURL := input.AvatarURL
		if avatarURL == "" {
			avatarURL = current.AvatarURL
		}

		updated, err := deps.Store.UpdateUserProfile(r.Context(), identity.ID, nickname, avatarURL)
		if err != nil {
			logx.Error(err, "failed to update user profile", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": updated,
		})
	}
}

type UpdateStatusInput struct {
	Status string `json:"status" validate:"required,oneof=online away busy offline"`
}

// HandleUpdateUserStatus sets the signalled presence of the current user.
// Connection-driven online/offline transitions are handled by the hub; this
// endpoint covers the user-chosen states (away, busy).
func HandleUpdateUserStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input UpdateStatusInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Store.UpdateUserStatus(r.Context(), identity.ID, input.Status, nil); err != nil {
			logx.Error(err, "failed to update user status", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"status": input.Status,
		})
	}
}

// HandleSearchUsers searches registered users by username or nickname prefix.
func HandleSearchUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		users, err := deps.Store.SearchUsers(r.Context(), identity.ID, query, 20)
		if err != nil {
			logx.Error(err, "user search failed", "query", query)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"users": lo.Map(users, func(u store.User, _ int) PublicUser {
				return toPublicUser(u)
			}),
		})
	}
}
