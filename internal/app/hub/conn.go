package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 16384

	// send channel capacity per connection.
	sendQueueSize = 256
)

// Conn represents one live transport channel bound to an authenticated
// Identity. Multiple Conns may belong to the same identity (multi-device).
// A Conn is created after a successful authentication handshake and destroyed
// on transport close; it is never persisted.
type Conn struct {
	// id uniquely identifies this connection for logging and echo exclusion.
	id string

	// underlying WebSocket connection.
	ws *websocket.Conn

	// the identity this connection authenticated as.
	identity Identity

	// the hub this connection dispatches inbound events to.
	hub *Hub

	// buffered queue of outbound frames. Guarded by sendMu so a fan-out
	// racing teardown drops its frame instead of writing to a closed channel.
	sendMu sync.Mutex
	send   chan []byte
	closed bool

	logger zerolog.Logger
}

// NewConn wraps an upgraded websocket connection for the given identity.
func NewConn(ws *websocket.Conn, identity Identity, h *Hub, connID string) *Conn {
	connLogger := logx.Logger().With().
		Str("conn_id", connID).
		Str("user_id", identity.ID).
		Logger()

	return &Conn{
		id:       connID,
		ws:       ws,
		identity: identity,
		hub:      h,
		send:     make(chan []byte, sendQueueSize),
		logger:   connLogger,
	}
}

// Identity returns the identity bound to this connection.
func (c *Conn) Identity() Identity {
	return c.identity
}

// ReadPump reads frames from the websocket and dispatches them to the hub,
// one handler invocation per inbound event. It owns heartbeat deadlines and
// performs hub cleanup when the transport closes, voluntarily or not.
func (c *Conn) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.HandleDisconnect(ctx, c)
		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in ReadPump")
		}
	}()

	c.ws.SetReadLimit(maxMessageSize)

	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Unexpected websocket close")
			}
			return
		}

		c.hub.Dispatch(ctx, c, frame)
	}
}

// WritePump drains the send queue onto the websocket and keeps the heartbeat
// alive. It terminates when the send queue is closed or a write fails.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := c.ws.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Warn().Err(err).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// enqueue pushes a pre-marshaled frame onto the send queue without blocking.
// A full queue means the client is not draining; the frame is dropped and the
// caller may decide to tear the connection down. Frames arriving after
// teardown are dropped silently: a fan-out may snapshot this connection from
// the registry just before it disconnects.
func (c *Conn) enqueue(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, dropping frame")
		return false
	}
}

// SendEvent marshals and queues one outbound event for this connection.
func (c *Conn) SendEvent(event string, payload any) {
	frame, err := Marshal(event, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal outbound event")
		return
	}
	c.enqueue(frame)
}

// SendError reports a terminal event failure back to this connection only.
func (c *Conn) SendError(customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}
	c.SendEvent(EvtError, ErrorOut{Code: customErr.Code, Message: customErr.Message})
}

// closeSend closes the send queue exactly once, signalling WritePump to exit.
// It is safe against concurrent enqueue calls and against being called twice.
func (c *Conn) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
