package rooms

import "github.com/Tyrowin/roomchat/internal/chat"

// Notification is an event addressed to the members of one room. Members is a
// snapshot taken inside the critical section that produced the event.
type Notification struct {
	Room    string
	Members []string
	Type    chat.EventType
	Payload any
}

// Notifier delivers notifications to connected sessions. Implementations must
// not block and must not call back into the Coordinator.
//
//go:generate mockgen -source=notifier.go -destination=../mocks/mock_notifier.go -package=mocks
type Notifier interface {
	Notify(n Notification)
}
