package store

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// Txn is a handle on the store valid only inside the Update or View call
// that created it. Mutating a read-only Txn panics.
type Txn struct {
	s        *Store
	writable bool
}

func (tx *Txn) mustWrite(op string) {
	if !tx.writable {
		panic("store: " + op + " called in a read-only transaction")
	}
}

// AppendMessage assigns the next id, stamps the message and appends it to the
// log. Text is expected to be validated by the caller.
func (tx *Txn) AppendMessage(text, author, roomName, sessionID string) chat.Message {
	tx.mustWrite("AppendMessage")
	s := tx.s

	s.lastID++
	msg := chat.Message{
		ID:        s.lastID,
		Text:      text,
		Author:    author,
		Room:      roomName,
		SessionID: sessionID,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	if s.maxMessages > 0 && len(s.messages) > s.maxMessages {
		s.messages = s.messages[len(s.messages)-s.maxMessages:]
	}
	return msg
}

// ListMessages returns the most recent limit messages, oldest first. An empty
// roomName matches every room.
func (tx *Txn) ListMessages(roomName string, limit int) []chat.Message {
	if limit <= 0 {
		return []chat.Message{}
	}
	msgs := tx.s.messages
	out := make([]chat.Message, 0, min(limit, len(msgs)))
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		if roomName == "" || msgs[i].Room == roomName {
			out = append(out, msgs[i])
		}
	}
	slices.Reverse(out)
	return out
}

// UpsertSession creates the session or overwrites an existing one with the
// same id. The overwritten record starts over with no room.
func (tx *Txn) UpsertSession(id, displayName string) chat.Session {
	tx.mustWrite("UpsertSession")
	sess := chat.Session{
		ID:          id,
		DisplayName: displayName,
		ConnectedAt: tx.s.now(),
	}
	tx.s.sessions[id] = sess
	return sess
}

// RemoveSession deletes the session record. Unknown ids are ignored.
func (tx *Txn) RemoveSession(id string) {
	tx.mustWrite("RemoveSession")
	delete(tx.s.sessions, id)
}

// Session looks up one session.
func (tx *Txn) Session(id string) (chat.Session, bool) {
	sess, ok := tx.s.sessions[id]
	return sess, ok
}

// Sessions returns every session ordered by connection time.
func (tx *Txn) Sessions() []chat.Session {
	out := lo.Values(tx.s.sessions)
	slices.SortFunc(out, func(a, b chat.Session) int {
		if c := a.ConnectedAt.Compare(b.ConnectedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// SetSessionRoom sets the session's current room, and its display name when
// one is given. An empty roomName clears the current room. Unknown ids are
// ignored.
func (tx *Txn) SetSessionRoom(id, roomName, displayName string) {
	tx.mustWrite("SetSessionRoom")
	sess, ok := tx.s.sessions[id]
	if !ok {
		return
	}
	sess.CurrentRoom = roomName
	if displayName != "" {
		sess.DisplayName = displayName
	}
	tx.s.sessions[id] = sess
}

// AddMember adds the session to the room, creating the room on first join.
func (tx *Txn) AddMember(roomName, sessionID string) {
	tx.mustWrite("AddMember")
	r, ok := tx.s.rooms[roomName]
	if !ok {
		r = &room{
			createdAt: tx.s.now(),
			members:   make(map[string]struct{}),
		}
		tx.s.rooms[roomName] = r
	}
	r.members[sessionID] = struct{}{}
}

// RemoveMember removes the session from the room and deletes the room once
// it has no members left. It reports whether the room was deleted.
func (tx *Txn) RemoveMember(roomName, sessionID string) bool {
	tx.mustWrite("RemoveMember")
	r, ok := tx.s.rooms[roomName]
	if !ok {
		return false
	}
	delete(r.members, sessionID)
	if len(r.members) == 0 {
		delete(tx.s.rooms, roomName)
		return true
	}
	return false
}

// Room returns a copy of the named room with its members sorted.
func (tx *Txn) Room(name string) (chat.Room, bool) {
	r, ok := tx.s.rooms[name]
	if !ok {
		return chat.Room{}, false
	}
	members := lo.Keys(r.members)
	slices.Sort(members)
	return chat.Room{
		Name:      name,
		Members:   members,
		CreatedAt: r.createdAt,
	}, true
}

// Rooms summarizes every existing room keyed by name.
func (tx *Txn) Rooms() map[string]chat.RoomSummary {
	return lo.MapValues(tx.s.rooms, func(r *room, name string) chat.RoomSummary {
		return chat.RoomSummary{
			Name:        name,
			MemberCount: len(r.members),
			CreatedAt:   r.createdAt,
		}
	})
}

// Stats counts sessions, rooms and retained messages.
func (tx *Txn) Stats() chat.Stats {
	return chat.Stats{
		Sessions: len(tx.s.sessions),
		Rooms:    len(tx.s.rooms),
		Messages: len(tx.s.messages),
	}
}
