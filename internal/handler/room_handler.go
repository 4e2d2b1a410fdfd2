package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaaniarc/internal/app/hub"
	"vaaniarc/internal/app/store"
	"vaaniarc/internal/pkg/auth/jwt"
	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/logx"
	"vaaniarc/internal/pkg/req"
	"vaaniarc/internal/pkg/resp"
)

type CreateRoomInput struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	RoomType    string `json:"roomType" validate:"omitempty,oneof=public private"`
	MaxMembers  int    `json:"maxMembers" validate:"omitempty,min=2,max=500"`
}

// HandleCreateRoom creates a new group room with the caller as its admin.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input CreateRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.RoomType == "" {
			input.RoomType = "public"
		}
		if input.MaxMembers == 0 {
			input.MaxMembers = 100
		}

		room, err := deps.Store.CreateRoom(
			r.Context(),
			input.Name,
			input.Description,
			input.RoomType,
			identity.ID,
			input.MaxMembers,
		)
		if err != nil {
			logx.Error(err, "create_room failed", "creator_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"room": room,
		})
	}
}

// HandleListRooms returns the rooms the caller is an active member of.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		rooms, err := deps.Store.RoomsForUser(r.Context(), identity.ID)
		if err != nil {
			logx.Error(err, "list_rooms failed", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"rooms": rooms,
		})
	}
}

// HandleListPublicRooms returns joinable public rooms, optionally filtered by
// a ?q name search.
func HandleListPublicRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		rooms, err := deps.Store.PublicRooms(r.Context(), r.URL.Query().Get("q"), 50)
		if err != nil {
			logx.Error(err, "list_public_rooms failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"rooms": rooms,
		})
	}
}

// HandleJoinRoom adds the caller to a room. Rejoining after leaving revives
// the old membership record.
func HandleJoinRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")

		room, err := deps.Store.RoomByID(r.Context(), roomID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrConversationNotFound))
				return
			}
			logx.Error(err, "join_room: room lookup failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if !room.IsActive {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomInactive))
			return
		}

		memberIDs, err := deps.Store.RoomMemberIDs(r.Context(), roomID)
		if err != nil {
			logx.Error(err, "join_room: member count failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if len(memberIDs) >= room.MaxMembers {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomIsFull))
			return
		}

		if err := deps.Store.JoinRoom(r.Context(), roomID, identity.ID); err != nil {
			logx.Error(err, "join_room failed", "room_id", roomID, "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"room": room,
		})
	}
}

// HandleLeaveRoom removes the caller from a room. The creator's membership is
// not revocable this way.
func HandleLeaveRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")

		if err := deps.Store.LeaveRoom(r.Context(), roomID, identity.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrConversationNotFound))
				return
			}
			logx.Error(err, "leave_room failed", "room_id", roomID, "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"left": true,
		})
	}
}

// activeRoomForAdmin fetches the room and verifies the caller holds the admin
// role in it. Business failures are reported through the returned error.
func activeRoomForAdmin(r *http.Request, deps *AppDeps, roomID, userID string) (store.Room, *errs.CustomError) {
	room, err := deps.Store.RoomByID(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Room{}, errs.NewError(errs.ErrConversationNotFound)
		}
		logx.Error(err, "room lookup failed", "room_id", roomID)
		return store.Room{}, errs.NewError(errs.ErrUnknown)
	}
	if !room.IsActive {
		return store.Room{}, errs.NewError(errs.ErrRoomInactive)
	}

	ref := hub.ConvRef{Kind: hub.KindRoom, ID: roomID}
	role, err := deps.Hub.Oracle().RoleOf(r.Context(), ref, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Room{}, errs.NewError(errs.ErrAccessDenied)
		}
		logx.Error(err, "room role lookup failed", "room_id", roomID)
		return store.Room{}, errs.NewError(errs.ErrUnknown)
	}
	if role != store.RoleAdmin {
		return store.Room{}, errs.NewError(errs.ErrRoomAdminRequired)
	}
	return room, nil
}

type UpdateRoomInput struct {
	Name        string `json:"name" validate:"omitempty,min=1,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	MaxMembers  int    `json:"maxMembers" validate:"omitempty,min=2,max=500"`
}

// HandleUpdateRoom rewrites a room's name, description, or capacity. Omitted
// fields keep their current values; capacity cannot drop below the current
// member count. Admins only.
func HandleUpdateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")

		room, customErr := activeRoomForAdmin(r, deps, roomID, identity.ID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input UpdateRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Name == "" {
			input.Name = room.Name
		}
		if input.Description == "" {
			input.Description = room.Description
		}
		if input.MaxMembers == 0 {
			input.MaxMembers = room.MaxMembers
		}

		memberIDs, err := deps.Store.RoomMemberIDs(r.Context(), roomID)
		if err != nil {
			logx.Error(err, "update_room: member count failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if input.MaxMembers < len(memberIDs) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		updated, err := deps.Store.UpdateRoom(r.Context(), roomID, input.Name, input.Description, input.MaxMembers)
		if err != nil {
			logx.Error(err, "update_room failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"room": updated,
		})
	}
}

// HandleDeleteRoom soft-deletes a room. Only the creator may do this;
// membership records survive for history read-back.
func HandleDeleteRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")

		room, err := deps.Store.RoomByID(r.Context(), roomID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrConversationNotFound))
				return
			}
			logx.Error(err, "delete_room: room lookup failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if room.CreatorID != identity.ID {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomAdminRequired))
			return
		}

		if err := deps.Store.DeactivateRoom(r.Context(), roomID); err != nil {
			logx.Error(err, "delete_room failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"deleted": true,
		})
	}
}

type AddRoomMemberInput struct {
	UserID string `json:"userId" validate:"required,uuid4"`
	Role   string `json:"role" validate:"omitempty,oneof=member moderator admin"`
}

// HandleAddRoomMember adds another user to the room. Admins only; the room
// must have capacity and the target must exist and not already be a member.
func HandleAddRoomMember(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")

		room, customErr := activeRoomForAdmin(r, deps, roomID, identity.ID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input AddRoomMemberInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if input.Role == "" {
			input.Role = store.RoleMember
		}

		if _, err := deps.Store.UserByID(r.Context(), input.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "add_room_member: user lookup failed", "user_id", input.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		memberIDs, err := deps.Store.RoomMemberIDs(r.Context(), roomID)
		if err != nil {
			logx.Error(err, "add_room_member: member list failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		for _, id := range memberIDs {
			if id == input.UserID {
				resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyRoomMember))
				return
			}
		}
		if len(memberIDs) >= room.MaxMembers {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomIsFull))
			return
		}

		if err := deps.Store.AddRoomMember(r.Context(), roomID, input.UserID, input.Role); err != nil {
			logx.Error(err, "add_room_member failed", "room_id", roomID, "user_id", input.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"added": true,
		})
	}
}

// HandleRemoveRoomMember kicks a member out of the room. Admins only; the
// creator's membership is not revocable.
func HandleRemoveRoomMember(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")
		targetID := chi.URLParam(r, "userID")

		room, customErr := activeRoomForAdmin(r, deps, roomID, identity.ID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if targetID == room.CreatorID {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomCreatorImmutable))
			return
		}

		if err := deps.Store.RemoveRoomMember(r.Context(), roomID, targetID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrNotRoomMember))
				return
			}
			logx.Error(err, "remove_room_member failed", "room_id", roomID, "user_id", targetID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"removed": true,
		})
	}
}

type UpdateMemberRoleInput struct {
	Role string `json:"role" validate:"required,oneof=member moderator admin"`
}

// HandleUpdateRoomMemberRole changes a member's role. Admins only; the
// creator's admin role is not revocable.
func HandleUpdateRoomMemberRole(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")
		targetID := chi.URLParam(r, "userID")

		room, customErr := activeRoomForAdmin(r, deps, roomID, identity.ID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if targetID == room.CreatorID {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomCreatorImmutable))
			return
		}

		var input UpdateMemberRoleInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Store.UpdateRoomMemberRole(r.Context(), roomID, targetID, input.Role); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrNotRoomMember))
				return
			}
			logx.Error(err, "update_member_role failed", "room_id", roomID, "user_id", targetID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"updated": true,
		})
	}
}

// HandleRoomMembers lists the active members of a room. Only members may see
// the list.
func HandleRoomMembers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")

		if _, err := deps.Store.RoomMemberRole(r.Context(), roomID, identity.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrAccessDenied))
				return
			}
			logx.Error(err, "room_members: role lookup failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		members, err := deps.Store.RoomMembers(r.Context(), roomID)
		if err != nil {
			logx.Error(err, "room_members failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"members": members,
		})
	}
}

// HandleRoomMessages returns the paginated message history of a room, for
// members only.
func HandleRoomMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")

		if _, err := deps.Store.RoomMemberRole(r.Context(), roomID, identity.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrAccessDenied))
				return
			}
			logx.Error(err, "room_messages: role lookup failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		messages, err := deps.Store.MessagesForConversation(
			r.Context(),
			store.KindRoom,
			roomID,
			historyLimit(r),
			r.URL.Query().Get("before"),
		)
		if err != nil {
			logx.Error(err, "room_messages: history fetch failed", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": messages,
		})
	}
}
