package rooms

import (
	"strings"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/store"
)

// PostMessage stores a message that did not come from a connection. It is
// broadcast to the room's members when the room exists.
func (c *Coordinator) PostMessage(text, author, roomName string) (chat.Message, error) {
	in := messageInput{
		Text:   strings.TrimSpace(text),
		Author: strings.TrimSpace(author),
		Room:   strings.TrimSpace(roomName),
	}
	if err := check(in); err != nil {
		return chat.Message{}, err
	}
	in.Text = text
	if in.Author == "" {
		in.Author = chat.AnonymousAuthor
	}
	if in.Room == "" {
		in.Room = chat.DefaultRoom
	}

	var msg chat.Message
	err := c.commit(func(tx *store.Txn) ([]Notification, error) {
		msg = tx.AppendMessage(in.Text, in.Author, in.Room, "")
		room, ok := tx.Room(in.Room)
		if !ok {
			return nil, nil
		}
		return []Notification{{
			Room:    in.Room,
			Members: room.Members,
			Type:    chat.EventNewMessage,
			Payload: msg,
		}}, nil
	})
	if err != nil {
		return chat.Message{}, err
	}
	c.log.Debug("Message posted", "room", msg.Room, "message_id", msg.ID)
	return msg, nil
}

// RoomDetail describes the named room with its latest limit messages.
func (c *Coordinator) RoomDetail(name string, limit int) (chat.RoomDetail, error) {
	var detail chat.RoomDetail
	err := c.store.View(func(tx *store.Txn) error {
		var err error
		detail, err = roomDetail(tx, name, limit)
		return err
	})
	return detail, err
}

// ListMessages returns the latest limit messages, optionally for one room.
func (c *Coordinator) ListMessages(roomName string, limit int) []chat.Message {
	var msgs []chat.Message
	_ = c.store.View(func(tx *store.Txn) error {
		msgs = tx.ListMessages(roomName, limit)
		return nil
	})
	return msgs
}

// Sessions lists connected sessions.
func (c *Coordinator) Sessions() []chat.Session {
	var out []chat.Session
	_ = c.store.View(func(tx *store.Txn) error {
		out = tx.Sessions()
		return nil
	})
	return out
}

// Rooms summarizes every live room keyed by name.
func (c *Coordinator) Rooms() map[string]chat.RoomSummary {
	var out map[string]chat.RoomSummary
	_ = c.store.View(func(tx *store.Txn) error {
		out = tx.Rooms()
		return nil
	})
	return out
}

// Stats reports session, room and message counts.
func (c *Coordinator) Stats() chat.Stats {
	var out chat.Stats
	_ = c.store.View(func(tx *store.Txn) error {
		out = tx.Stats()
		return nil
	})
	return out
}
