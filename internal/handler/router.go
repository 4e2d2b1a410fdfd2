/*
Package handler provides the HTTP handlers and routing setup for the VaaniArc server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"vaaniarc/internal/pkg/auth/jwt"
	"vaaniarc/internal/pkg/limiter"
	"vaaniarc/internal/pkg/logx"
	"vaaniarc/internal/pkg/resp"
)

const (
	// CreateRate limits room/meeting creation per IP.
	CreateRate  = 0.1
	CreateBurst = 3

	// ConnectRate limits websocket upgrades per IP.
	ConnectRate  = 0.5
	ConnectBurst = 5

	// AuthRate limits register/login attempts per IP.
	AuthRate  = 0.2
	AuthBurst = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and
// per-route middleware before mounting the API and WebSocket handlers.
func Router(deps *AppDeps) http.Handler {
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "VaaniArc Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.With(authLimiter.Middleware).Post("/register", HandleRegister(deps))
			auth.With(authLimiter.Middleware).Post("/login", HandleLogin(deps))
			auth.Post("/change-password", HandleChangePassword(deps))
		})

		api.Route("/user", func(user chi.Router) {
			user.Get("/profile", HandleGetUserProfile(deps))
			user.Post("/profile", HandleUpdateUserProfile(deps))
			user.Post("/status", HandleUpdateUserStatus(deps))
			user.Get("/search", HandleSearchUsers(deps))
		})

		api.Route("/chat", func(chat chi.Router) {
			chat.Post("/create", HandleCreateChat(deps))
			chat.Get("/list", HandleListChats(deps))
			chat.Get("/{chatID}/messages", HandleChatMessages(deps))
		})

		api.Route("/room", func(room chi.Router) {
			room.With(createLimiter.Middleware).Post("/create", HandleCreateRoom(deps))
			room.Get("/list", HandleListRooms(deps))
			room.Get("/public", HandleListPublicRooms(deps))
			room.Post("/{roomID}/join", HandleJoinRoom(deps))
			room.Post("/{roomID}/leave", HandleLeaveRoom(deps))
			room.Post("/{roomID}/update", HandleUpdateRoom(deps))
			room.Delete("/{roomID}", HandleDeleteRoom(deps))
			room.Get("/{roomID}/members", HandleRoomMembers(deps))
			room.Post("/{roomID}/members", HandleAddRoomMember(deps))
			room.Delete("/{roomID}/members/{userID}", HandleRemoveRoomMember(deps))
			room.Post("/{roomID}/members/{userID}/role", HandleUpdateRoomMemberRole(deps))
			room.Get("/{roomID}/messages", HandleRoomMessages(deps))
		})

		api.Route("/meeting", func(meeting chi.Router) {
			meeting.With(createLimiter.Middleware).Post("/create", HandleCreateMeeting(deps))
			meeting.Get("/list", HandleListMeetings(deps))
			meeting.Get("/code/{code}", HandleGetMeetingByCode(deps))
			meeting.Post("/{meetingID}/join", HandleJoinMeeting(deps))
			meeting.Post("/{meetingID}/leave", HandleLeaveMeeting(deps))
			meeting.Get("/{meetingID}/participants", HandleMeetingParticipants(deps))
			meeting.Post("/{meetingID}/end", HandleEndMeeting(deps))
		})

		api.Post("/file/presign-upload", HandlePresignUploadURL(deps))
		api.Get("/file/presign-download", HandlePresignDownloadURL(deps))
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, deps))

	return r
}
