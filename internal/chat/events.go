package chat

import "fmt"

// EventType names an outbound event pushed to connected sessions.
type EventType string

const (
	EventWelcome           EventType = "welcome"
	EventMembershipChanged EventType = "membership_changed"
	EventNewMessage        EventType = "new_message"
)

// Direction tells whether a membership change was a join or a leave.
type Direction string

const (
	Joined Direction = "joined"
	Left   Direction = "left"
)

// Welcome is sent privately to a session right after it connects.
type Welcome struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// MembershipChanged is broadcast to a room when a session joins or leaves it.
type MembershipChanged struct {
	DisplayName string    `json:"username"`
	Room        string    `json:"room"`
	MemberCount int       `json:"user_count"`
	Direction   Direction `json:"direction"`
	Message     string    `json:"message"`
}

// NewMembershipChanged fills in the human-readable line for the change.
func NewMembershipChanged(name, room string, count int, dir Direction) MembershipChanged {
	return MembershipChanged{
		DisplayName: name,
		Room:        room,
		MemberCount: count,
		Direction:   dir,
		Message:     fmt.Sprintf("%s %s %s", name, dir, room),
	}
}
