/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
authenticating the caller, upgrading the HTTP connection to WebSocket, and handing the
connection to the hub for its lifecycle.
*/
package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"vaaniarc/internal/app/hub"
	"vaaniarc/internal/pkg/auth/jwt"
	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/limiter"
	"vaaniarc/internal/pkg/logx"
	"vaaniarc/internal/pkg/resp"
)

// wsToken extracts the identity token from the ?token query parameter or the
// Authorization header. Browser WebSocket clients cannot set headers, so the
// query form is the primary one.
func wsToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		token := wsToken(r)
		if token == "" {
			logx.Warn("WebSocket request rejected: Missing token")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		payload, err := jwt.ParseToken(token, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket request rejected: Invalid token", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		dbUser, err := deps.Store.UserByID(r.Context(), payload.ID)
		if err != nil {
			logx.Warn("WebSocket request rejected: Unknown user", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		identity := hub.Identity{
			ID:       dbUser.ID,
			Username: dbUser.Username,
			Nickname: dbUser.Nickname,
			Avatar:   dbUser.AvatarURL,
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		conn := hub.NewConn(ws, identity, deps.Hub, uuid.NewString())

		go conn.WritePump()

		logx.Info("WebSocket connection established", "user_id", identity.ID, "username", identity.Username)

		deps.Hub.HandleConnect(r.Context(), conn)

		conn.ReadPump(r.Context())
	}
}
