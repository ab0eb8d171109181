package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/rooms"
)

// DefaultMessageLimit is used when a message listing names no usable limit.
const DefaultMessageLimit = 50

const maxBodyBytes = 64 << 10

const (
	serverName    = "roomchat (gorilla/websocket + gorilla/mux)"
	doorStatus    = "door operational"
	doorNoCommand = "missing data"
)

// API is the synchronous request surface under /api. It reads through the
// coordinator and posts messages through it, so posted messages reach live
// room members like any other.
type API struct {
	log         *slog.Logger
	coordinator *rooms.Coordinator
	now         func() time.Time
}

// NewAPI creates the request surface.
func NewAPI(log *slog.Logger, coordinator *rooms.Coordinator) *API {
	return &API{
		log:         log,
		coordinator: coordinator,
		now:         time.Now,
	}
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
	Server string `json:"server"`
	chat.Stats
	Timestamp time.Time `json:"timestamp"`
}

// MessagesResponse is returned by GET /api/messages.
type MessagesResponse struct {
	Messages   []chat.Message `json:"messages"`
	Total      int            `json:"total"`
	Limit      int            `json:"limit"`
	RoomFilter *string        `json:"room_filter"`
}

// CreateMessageRequest is the body of POST /api/messages.
type CreateMessageRequest struct {
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
	Room     string `json:"room,omitempty"`
}

// UsersResponse is returned by GET /api/users.
type UsersResponse struct {
	Users []chat.Session `json:"users"`
	Count int            `json:"count"`
}

// RoomsResponse is returned by GET /api/rooms.
type RoomsResponse struct {
	Rooms map[string]chat.RoomSummary `json:"rooms"`
	Count int                         `json:"count"`
}

// DoorResponse is returned by /api/door.
type DoorResponse struct {
	Command   string    `json:"command"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string    `json:"error"`
	Code  chat.Code `json:"code"`
}

// Index describes the service.
func (a *API) Index(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"message": "roomchat server",
		"endpoints": map[string][]string{
			"REST": {
				"GET /api/health",
				"GET|POST /api/door",
				"GET /api/messages",
				"POST /api/messages",
				"GET /api/users",
				"GET /api/rooms",
				"GET /api/rooms/{name}",
			},
			"WebSocket": {
				FrameJoin,
				FrameSend,
				FrameLeave,
				FrameRoomInfo,
			},
		},
		"timestamp": a.now().UTC(),
	})
}

// Health reports liveness with the current counts.
func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Server:    serverName,
		Stats:     a.coordinator.Stats(),
		Timestamp: a.now().UTC(),
	})
}

// Door echoes the raw request body as the door command.
func (a *API) Door(w http.ResponseWriter, r *http.Request) {
	command := doorNoCommand
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			a.writeError(w, chat.NewError(chat.CodeValidation, "Invalid request body"))
			return
		}
		if len(body) > 0 {
			command = string(body)
		}
	}

	a.log.Debug("Door command received", "command", command)
	a.writeJSON(w, http.StatusOK, DoorResponse{
		Command:   command,
		Status:    doorStatus,
		Timestamp: a.now().UTC(),
	})
}

// ListMessages returns the latest messages, optionally filtered by room.
func (a *API) ListMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseLimit(query.Get("limit"))

	var filter *string
	if query.Has("room") {
		room := query.Get("room")
		filter = &room
	}

	var roomName string
	if filter != nil {
		roomName = *filter
	}
	msgs := a.coordinator.ListMessages(roomName, limit)
	if msgs == nil {
		msgs = []chat.Message{}
	}

	a.writeJSON(w, http.StatusOK, MessagesResponse{
		Messages:   msgs,
		Total:      len(msgs),
		Limit:      limit,
		RoomFilter: filter,
	})
}

func parseLimit(raw string) int {
	if raw == "" {
		return DefaultMessageLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultMessageLimit
	}
	return limit
}

// CreateMessage stores a message posted outside any connection.
func (a *API) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || json.Unmarshal(body, &req) != nil {
		a.writeError(w, chat.NewError(chat.CodeValidation, "Invalid JSON body"))
		return
	}

	msg, err := a.coordinator.PostMessage(req.Message, req.Username, req.Room)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.log.Info("Message created via API", "room", msg.Room, "message_id", msg.ID)
	a.writeJSON(w, http.StatusCreated, msg)
}

// ListUsers lists connected sessions.
func (a *API) ListUsers(w http.ResponseWriter, _ *http.Request) {
	users := a.coordinator.Sessions()
	if users == nil {
		users = []chat.Session{}
	}
	a.writeJSON(w, http.StatusOK, UsersResponse{Users: users, Count: len(users)})
}

// ListRooms summarizes every live room.
func (a *API) ListRooms(w http.ResponseWriter, _ *http.Request) {
	summaries := a.coordinator.Rooms()
	if summaries == nil {
		summaries = map[string]chat.RoomSummary{}
	}
	a.writeJSON(w, http.StatusOK, RoomsResponse{Rooms: summaries, Count: len(summaries)})
}

// GetRoom describes one room with its recent messages.
func (a *API) GetRoom(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	detail, err := a.coordinator.RoomDetail(name, rooms.DetailMessages)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if detail.RecentMessages == nil {
		detail.RecentMessages = []chat.Message{}
	}
	a.writeJSON(w, http.StatusOK, detail)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrRoomNotFound), errors.Is(err, chat.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrNotInRoom):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("Request failed", "error", err)
	}
	a.writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: chat.CodeOf(err)})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warn("Error writing JSON response", "error", err)
	}
}
