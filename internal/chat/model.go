package chat

import "time"

const (
	// DefaultRoom is joined or posted to when the caller names no room.
	DefaultRoom = "general"
	// AnonymousAuthor is the author of messages posted without a name.
	AnonymousAuthor = "Anonymous"
)

// Message is an immutable chat message. IDs are assigned by the store and
// strictly increase in insertion order.
type Message struct {
	ID     int64  `json:"id"`
	Text   string `json:"message"`
	Author string `json:"username"`
	Room   string `json:"room"`
	// SessionID is empty for messages posted through the request surface.
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one persistent connection. DisplayName stays empty until the
// first join and CurrentRoom is empty while the session is in no room.
type Session struct {
	ID          string    `json:"session_id"`
	DisplayName string    `json:"username,omitempty"`
	CurrentRoom string    `json:"current_room,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

// InRoom reports whether the session is currently a member of a room.
func (s Session) InRoom() bool {
	return s.CurrentRoom != ""
}

// Room is a point-in-time copy of a room and its members.
type Room struct {
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberCount returns the number of sessions in the room.
func (r Room) MemberCount() int {
	return len(r.Members)
}

// RoomSummary is the listing view of a room.
type RoomSummary struct {
	Name        string    `json:"name"`
	MemberCount int       `json:"user_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomDetail is a room together with its most recent messages.
type RoomDetail struct {
	Room           string    `json:"room"`
	MemberCount    int       `json:"user_count"`
	RecentMessages []Message `json:"recent_messages"`
	CreatedAt      time.Time `json:"created_at"`
}

// Stats are the aggregate counts reported by health checks.
type Stats struct {
	Sessions int `json:"connected_users"`
	Rooms    int `json:"active_rooms"`
	Messages int `json:"total_messages"`
}
