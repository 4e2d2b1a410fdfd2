package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vaaniarc/internal/app/store"
	"vaaniarc/internal/pkg/auth/jwt"
	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/logx"
	"vaaniarc/internal/pkg/randx"
	"vaaniarc/internal/pkg/req"
	"vaaniarc/internal/pkg/resp"
)

type CreateMeetingInput struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

// HandleCreateMeeting creates a meeting with a generated join code. A nil
// scheduledAt starts an instant meeting; a future timestamp schedules one.
func HandleCreateMeeting(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input CreateMeetingInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		code, err := randx.MeetingCode()
		if err != nil {
			logx.Error(err, "create_meeting: code generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		meeting, err := deps.Store.CreateMeeting(r.Context(), code, input.Title, identity.ID, input.ScheduledAt)
		if err != nil {
			logx.Error(err, "create_meeting failed", "host_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"meeting": meeting,
		})
	}
}

// HandleListMeetings returns the caller's meetings, optionally filtered by
// ?status=scheduled|active|ended.
func HandleListMeetings(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		status := r.URL.Query().Get("status")
		switch status {
		case "", store.MeetingScheduled, store.MeetingActive, store.MeetingEnded:
		default:
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		meetings, err := deps.Store.MeetingsForUser(r.Context(), identity.ID, status)
		if err != nil {
			logx.Error(err, "list_meetings failed", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"meetings": meetings,
		})
	}
}

// HandleGetMeetingByCode resolves a join code to its meeting.
func HandleGetMeetingByCode(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		code := chi.URLParam(r, "code")

		meeting, err := deps.Store.MeetingByCode(r.Context(), code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrMeetingNotFound))
				return
			}
			logx.Error(err, "get_meeting_by_code failed", "code", code)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"meeting": meeting,
		})
	}
}

// HandleJoinMeeting records the caller as a meeting participant and activates
// a scheduled meeting on first join.
func HandleJoinMeeting(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		meetingID := chi.URLParam(r, "meetingID")

		meeting, err := deps.Store.MeetingByID(r.Context(), meetingID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrMeetingNotFound))
				return
			}
			logx.Error(err, "join_meeting: lookup failed", "meeting_id", meetingID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if meeting.Status == store.MeetingEnded {
			resp.RespondError(w, r, errs.NewError(errs.ErrMeetingEnded))
			return
		}

		if err := deps.Store.JoinMeeting(r.Context(), meetingID, identity.ID); err != nil {
			logx.Error(err, "join_meeting failed", "meeting_id", meetingID, "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"meeting": meeting,
		})
	}
}

// HandleLeaveMeeting closes the caller's participant record.
func HandleLeaveMeeting(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		meetingID := chi.URLParam(r, "meetingID")

		if err := deps.Store.LeaveMeeting(r.Context(), meetingID, identity.ID); err != nil {
			logx.Error(err, "leave_meeting failed", "meeting_id", meetingID, "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"left": true,
		})
	}
}

// HandleMeetingParticipants lists a meeting's participant records, current and
// past. Visible to the host and to anyone who has ever been in the meeting,
// including after it ends.
func HandleMeetingParticipants(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		meetingID := chi.URLParam(r, "meetingID")

		was, err := deps.Hub.Oracle().WasParticipant(r.Context(), meetingID, identity.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrMeetingNotFound))
				return
			}
			logx.Error(err, "meeting_participants: participation check failed", "meeting_id", meetingID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if !was {
			resp.RespondError(w, r, errs.NewError(errs.ErrAccessDenied))
			return
		}

		participants, err := deps.Store.MeetingParticipants(r.Context(), meetingID)
		if err != nil {
			logx.Error(err, "meeting_participants failed", "meeting_id", meetingID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"participants": participants,
		})
	}
}

// HandleEndMeeting ends a meeting. Host only.
func HandleEndMeeting(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		meetingID := chi.URLParam(r, "meetingID")

		meeting, err := deps.Store.MeetingByID(r.Context(), meetingID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrMeetingNotFound))
				return
			}
			logx.Error(err, "end_meeting: lookup failed", "meeting_id", meetingID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if meeting.HostID != identity.ID {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotMeetingHost))
			return
		}

		if meeting.Status == store.MeetingEnded {
			resp.RespondError(w, r, errs.NewError(errs.ErrMeetingEnded))
			return
		}

		if err := deps.Store.EndMeeting(r.Context(), meetingID); err != nil {
			logx.Error(err, "end_meeting failed", "meeting_id", meetingID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"ended": true,
		})
	}
}
