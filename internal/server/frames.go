package server

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Inbound frame types.
const (
	FrameJoin     = "join"
	FrameSend     = "send"
	FrameLeave    = "leave"
	FrameRoomInfo = "get_room_info"
)

// FrameReply answers an inbound frame and echoes its request id.
const FrameReply = "reply"

// JoinPayload is the payload of a join frame.
type JoinPayload struct {
	Room     string `json:"room"`
	Username string `json:"username,omitempty"`
}

// SendPayload is the payload of a send frame.
type SendPayload struct {
	Message string `json:"message"`
}

// ErrorReply is the payload of a failed reply.
type ErrorReply struct {
	Success bool      `json:"success"`
	Error   string    `json:"error"`
	Code    chat.Code `json:"code"`
}

func encodeFrame(frameType, requestID string, payload any) []byte {
	b, err := json.Marshal(Frame{
		Type:      frameType,
		RequestID: requestID,
		Payload:   mustJSON(payload),
	})
	if err != nil {
		slog.Error("Failed to marshal frame", "type", frameType, "error", err)
		return nil
	}
	return b
}

// successReply flattens result into the reply payload next to success=true.
func successReply(requestID string, result any) []byte {
	fields := map[string]any{}
	if result != nil {
		_ = json.Unmarshal(mustJSON(result), &fields)
	}
	fields["success"] = true
	return encodeFrame(FrameReply, requestID, fields)
}

func errorReply(requestID string, err error) []byte {
	return encodeFrame(FrameReply, requestID, ErrorReply{
		Success: false,
		Error:   err.Error(),
		Code:    chat.CodeOf(err),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal frame payload", "error", err)
		return nil
	}
	return b
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
