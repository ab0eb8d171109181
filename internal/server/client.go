package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/chat"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type clientState int32

const (
	stateNew clientState = iota
	stateConnected
	stateInRoom
	stateDisconnected
)

func (s clientState) String() string {
	switch s {
	case stateConnected:
		return "connected"
	case stateInRoom:
		return "in_room"
	case stateDisconnected:
		return "disconnected"
	default:
		return "new"
	}
}

var errUnsupportedFrame = chat.NewError(chat.CodeValidation, "unsupported frame type")

// Client is one websocket connection and the session it carries.
type Client struct {
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	log            *slog.Logger
	sessionID      string
	addr           string
	closed         bool
	state          atomic.Int32
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a client with a fresh session id. The send channel is
// buffered so notifications can be queued while the write pump is busy.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	sessionID := uuid.NewString()

	return &Client{
		conn:           conn,
		send:           make(chan []byte, cfg.SendBuffer),
		hub:            hub,
		log:            hub.log.With("session_id", sessionID, "addr", addr),
		sessionID:      sessionID,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		rateLimit:      cfg.RateLimit,
	}
}

func (c *Client) getState() clientState {
	return clientState(c.state.Load())
}

// setState stores s and returns the previous state. Disconnected is terminal.
func (c *Client) setState(s clientState) clientState {
	for {
		prev := c.state.Load()
		if clientState(prev) == stateDisconnected {
			return stateDisconnected
		}
		if c.state.CompareAndSwap(prev, int32(s)) {
			return clientState(prev)
		}
	}
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("Error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// handleReadError logs the reason a read failed. Every read error ends the
// read loop.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Message exceeded maximum size", "max_bytes", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("Client disconnected", "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("Client connection closed", "error", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("Unexpected WebSocket error", "error", err)
	default:
		c.log.Warn("WebSocket read error", "error", err)
	}
}

// checkRateLimit reports whether the frame may be processed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.log.Warn("Rate limit exceeded; discarding frame",
			"burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// reply queues a private frame for this client.
func (c *Client) reply(payload []byte) {
	if payload == nil {
		return
	}
	if !c.hub.registry.sendTo(c, payload) {
		c.log.Debug("Reply dropped")
	}
}

// processFrame decodes one inbound frame, runs it against the coordinator and
// queues the reply.
func (c *Client) processFrame(raw []byte) {
	if c.getState() == stateDisconnected {
		return
	}

	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Debug("Invalid frame", "error", err)
		c.reply(errorReply("", chat.NewError(chat.CodeValidation, "invalid frame payload")))
		return
	}

	result, err := c.dispatch(frame)
	if err != nil {
		c.log.Debug("Frame rejected", "type", frame.Type, "code", chat.CodeOf(err), "error", err)
		c.reply(errorReply(frame.RequestID, err))
		return
	}
	c.reply(successReply(frame.RequestID, result))
}

func (c *Client) dispatch(frame Frame) (any, error) {
	coordinator := c.hub.coordinator

	switch frame.Type {
	case FrameJoin:
		var p JoinPayload
		if err := decodePayload(frame.Payload, &p); err != nil {
			return nil, err
		}
		res, err := coordinator.Join(c.sessionID, p.Room, p.Username)
		if err != nil {
			return nil, err
		}
		c.setState(stateInRoom)
		return res, nil

	case FrameSend:
		var p SendPayload
		if err := decodePayload(frame.Payload, &p); err != nil {
			return nil, err
		}
		return coordinator.Send(c.sessionID, p.Message)

	case FrameLeave:
		res, err := coordinator.Leave(c.sessionID)
		if err != nil {
			return nil, err
		}
		c.setState(stateConnected)
		return res, nil

	case FrameRoomInfo:
		return coordinator.RoomSnapshot(c.sessionID)

	default:
		return nil, errUnsupportedFrame
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return chat.NewError(chat.CodeValidation, "invalid frame payload")
	}
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		c.closeConn()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.checkRateLimit() {
			c.reply(errorReply(requestIDOf(raw), chat.ErrRateLimited))
			continue
		}

		c.processFrame(raw)
	}
}

// requestIDOf extracts the request id of a frame that is not otherwise
// processed.
func requestIDOf(raw []byte) string {
	var frame struct {
		RequestID string `json:"request_id"`
	}
	_ = json.Unmarshal(raw, &frame)
	return frame.RequestID
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConn closes the underlying connection. Closing twice is harmless.
func (c *Client) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("Error closing connection", "error", err)
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("Error setting write deadline", "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("Error writing close message", "error", err)
	}
	return false
}

// writeTextMessage writes one frame per message; every frame is a complete
// JSON document.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("Error writing message", "error", err)
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("Error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warn("Error writing ping message", "error", err)
		return false
	}
	return true
}
