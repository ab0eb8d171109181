// Package rooms implements the join, leave and send protocol on top of the
// store. Every operation runs as one store transaction; the notifications it
// produces are delivered after the store lock is released, in commit order.
package rooms

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/store"
)

const (
	// SnapshotMessages is the history returned to a member asking for room info.
	SnapshotMessages = 10
	// DetailMessages is the history returned by the request surface.
	DetailMessages = 20
)

// JoinResult is returned by a successful Join.
type JoinResult struct {
	Room        string `json:"room"`
	DisplayName string `json:"username"`
	MemberCount int    `json:"user_count"`
}

// SendResult is returned by a successful Send.
type SendResult struct {
	MessageID int64        `json:"message_id"`
	Message   chat.Message `json:"-"`
}

// LeaveResult is returned by a successful Leave.
type LeaveResult struct {
	Room string `json:"left_room"`
}

// Coordinator is the only writer of session and room records. Both the
// websocket gateway and the request surface go through it.
type Coordinator struct {
	log      *slog.Logger
	store    *store.Store
	notifier Notifier

	// fanout is taken before the store lock is released and held while
	// notifications are delivered, so delivery follows commit order.
	fanout sync.Mutex
}

// NewCoordinator wires a coordinator to its store and notifier. A nil
// notifier drops every notification.
func NewCoordinator(log *slog.Logger, s *store.Store, notifier Notifier) *Coordinator {
	return &Coordinator{
		log:      log,
		store:    s,
		notifier: notifier,
	}
}

// commit runs fn as a single store transaction and delivers the notifications
// it returns once the store lock is released.
func (c *Coordinator) commit(fn func(tx *store.Txn) ([]Notification, error)) error {
	var pending []Notification
	err := c.store.Update(func(tx *store.Txn) error {
		notes, err := fn(tx)
		if err != nil {
			return err
		}
		pending = notes
		if len(pending) > 0 {
			c.fanout.Lock()
		}
		return nil
	})
	if err != nil || len(pending) == 0 {
		return err
	}
	defer c.fanout.Unlock()
	for _, n := range pending {
		if len(n.Members) == 0 || c.notifier == nil {
			continue
		}
		c.notifier.Notify(n)
	}
	return nil
}

// Connect registers a session. Reconnecting with a live id first leaves the
// stale record's room, then overwrites the record.
func (c *Coordinator) Connect(sessionID string) (chat.Session, error) {
	var sess chat.Session
	err := c.commit(func(tx *store.Txn) ([]Notification, error) {
		var notes []Notification
		if prev, ok := tx.Session(sessionID); ok {
			c.log.Warn("Session id reused; replacing stale record", "session_id", sessionID)
			if prev.InRoom() {
				notes = appendNote(notes, c.leaveTx(tx, prev))
			}
		}
		sess = tx.UpsertSession(sessionID, "")
		return notes, nil
	})
	return sess, err
}

// Join moves the session into roomName, leaving its current room first. The
// room is created when the session is its first member.
func (c *Coordinator) Join(sessionID, roomName, displayName string) (JoinResult, error) {
	roomName = strings.TrimSpace(roomName)
	displayName = strings.TrimSpace(displayName)
	if err := check(joinInput{Room: roomName, DisplayName: displayName}); err != nil {
		return JoinResult{}, err
	}
	if roomName == "" {
		roomName = chat.DefaultRoom
	}

	var res JoinResult
	err := c.commit(func(tx *store.Txn) ([]Notification, error) {
		sess, ok := tx.Session(sessionID)
		if !ok {
			return nil, chat.ErrSessionNotFound
		}

		var notes []Notification
		if sess.InRoom() {
			notes = appendNote(notes, c.leaveTx(tx, sess))
		}

		name := displayName
		if name == "" {
			name = sess.DisplayName
		}
		if name == "" {
			name = PlaceholderName(sessionID)
		}

		tx.SetSessionRoom(sessionID, roomName, name)
		tx.AddMember(roomName, sessionID)
		room, _ := tx.Room(roomName)

		res = JoinResult{Room: roomName, DisplayName: name, MemberCount: room.MemberCount()}
		notes = append(notes, Notification{
			Room:    roomName,
			Members: room.Members,
			Type:    chat.EventMembershipChanged,
			Payload: chat.NewMembershipChanged(name, roomName, room.MemberCount(), chat.Joined),
		})
		return notes, nil
	})
	if err != nil {
		return JoinResult{}, err
	}
	c.log.Debug("Session joined room", "session_id", sessionID, "room", res.Room, "member_count", res.MemberCount)
	return res, nil
}

// Send appends text to the session's current room and broadcasts it to the
// room's members.
func (c *Coordinator) Send(sessionID, text string) (SendResult, error) {
	// Text is stored as given; blank text is rejected.
	if err := check(messageInput{Text: strings.TrimSpace(text)}); err != nil {
		return SendResult{}, err
	}

	var res SendResult
	err := c.commit(func(tx *store.Txn) ([]Notification, error) {
		sess, ok := tx.Session(sessionID)
		if !ok || !sess.InRoom() {
			return nil, chat.NewError(chat.CodeNotInRoom, "Must join a room first")
		}
		msg := tx.AppendMessage(text, sess.DisplayName, sess.CurrentRoom, sessionID)
		room, _ := tx.Room(sess.CurrentRoom)
		res = SendResult{MessageID: msg.ID, Message: msg}
		return []Notification{{
			Room:    msg.Room,
			Members: room.Members,
			Type:    chat.EventNewMessage,
			Payload: msg,
		}}, nil
	})
	if err != nil {
		return SendResult{}, err
	}
	c.log.Debug("Message sent", "session_id", sessionID, "room", res.Message.Room, "message_id", res.MessageID)
	return res, nil
}

// Leave removes the session from its current room. Remaining members are told
// about it; a room left empty is deleted without notification.
func (c *Coordinator) Leave(sessionID string) (LeaveResult, error) {
	var res LeaveResult
	err := c.commit(func(tx *store.Txn) ([]Notification, error) {
		sess, ok := tx.Session(sessionID)
		if !ok || !sess.InRoom() {
			return nil, chat.ErrNotInRoom
		}
		res = LeaveResult{Room: sess.CurrentRoom}
		return appendNote(nil, c.leaveTx(tx, sess)), nil
	})
	if err != nil {
		return LeaveResult{}, err
	}
	c.log.Debug("Session left room", "session_id", sessionID, "room", res.Room)
	return res, nil
}

// RoomSnapshot describes the session's current room with its latest messages.
func (c *Coordinator) RoomSnapshot(sessionID string) (chat.RoomDetail, error) {
	var detail chat.RoomDetail
	err := c.store.View(func(tx *store.Txn) error {
		sess, ok := tx.Session(sessionID)
		if !ok || !sess.InRoom() {
			return chat.ErrNotInRoom
		}
		var err error
		detail, err = roomDetail(tx, sess.CurrentRoom, SnapshotMessages)
		return err
	})
	return detail, err
}

// Disconnect leaves the session's room, if any, and forgets the session.
// Unknown sessions are ignored.
func (c *Coordinator) Disconnect(sessionID string) {
	err := c.commit(func(tx *store.Txn) ([]Notification, error) {
		sess, ok := tx.Session(sessionID)
		if !ok {
			return nil, chat.ErrSessionNotFound
		}
		var notes []Notification
		if sess.InRoom() {
			notes = appendNote(notes, c.leaveTx(tx, sess))
		}
		tx.RemoveSession(sessionID)
		return notes, nil
	})
	if err != nil {
		c.log.Debug("Disconnect cleanup skipped", "session_id", sessionID, "error", err)
		return
	}
	c.log.Debug("Session removed", "session_id", sessionID)
}

// leaveTx removes sess from its room and clears its current room. It returns
// the notification for the remaining members, or nil when the room is gone.
func (c *Coordinator) leaveTx(tx *store.Txn, sess chat.Session) *Notification {
	roomName := sess.CurrentRoom
	deleted := tx.RemoveMember(roomName, sess.ID)
	tx.SetSessionRoom(sess.ID, "", "")
	if deleted {
		c.log.Debug("Room closed", "room", roomName)
		return nil
	}
	room, ok := tx.Room(roomName)
	if !ok {
		return nil
	}
	name := sess.DisplayName
	if name == "" {
		name = PlaceholderName(sess.ID)
	}
	return &Notification{
		Room:    roomName,
		Members: room.Members,
		Type:    chat.EventMembershipChanged,
		Payload: chat.NewMembershipChanged(name, roomName, room.MemberCount(), chat.Left),
	}
}

func appendNote(notes []Notification, n *Notification) []Notification {
	if n == nil {
		return notes
	}
	return append(notes, *n)
}

func roomDetail(tx *store.Txn, name string, limit int) (chat.RoomDetail, error) {
	room, ok := tx.Room(name)
	if !ok {
		return chat.RoomDetail{}, chat.ErrRoomNotFound
	}
	return chat.RoomDetail{
		Room:           name,
		MemberCount:    room.MemberCount(),
		RecentMessages: tx.ListMessages(name, limit),
		CreatedAt:      room.CreatedAt,
	}, nil
}

// PlaceholderName is the display name given to sessions that join without one.
func PlaceholderName(sessionID string) string {
	if len(sessionID) > 8 {
		sessionID = sessionID[:8]
	}
	return "User_" + sessionID
}
