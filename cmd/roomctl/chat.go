package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/server"
)

// chatSession is an interactive websocket session: stdin lines are sent to
// the joined room, events are printed as they arrive.
type chatSession struct {
	conn    *websocket.Conn
	out     io.Writer
	outMu   sync.Mutex
	nextID  int
	closing atomic.Bool
}

func cmdChat(ctx context.Context, baseURL string, args []string, stdin io.Reader, w io.Writer) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	room := fs.String("room", chat.DefaultRoom, "room to join")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	s := &chatSession{conn: conn, out: w}
	done := make(chan error, 1)
	go func() { done <- s.readLoop() }()

	if err := s.send(server.FrameJoin, server.JoinPayload{Room: *room, Username: *name}); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.close()
			return nil
		case err := <-done:
			return err
		case line, ok := <-lines:
			if !ok {
				s.close()
				return nil
			}
			if err := s.handleLine(line); err != nil {
				return err
			}
		}
	}
}

// handleLine sends a message, or runs /leave, /join ROOM, /info or /quit.
func (s *chatSession) handleLine(line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == "/quit":
		s.close()
		return nil
	case line == "/leave":
		return s.send(server.FrameLeave, nil)
	case line == "/info":
		return s.send(server.FrameRoomInfo, nil)
	case strings.HasPrefix(line, "/join "):
		return s.send(server.FrameJoin, server.JoinPayload{Room: strings.TrimSpace(strings.TrimPrefix(line, "/join "))})
	default:
		return s.send(server.FrameSend, server.SendPayload{Message: line})
	}
}

func (s *chatSession) send(frameType string, payload any) error {
	s.nextID++
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame := server.Frame{Type: frameType, RequestID: strconv.Itoa(s.nextID), Payload: raw}
	if err := s.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("send %s: %w", frameType, err)
	}
	return nil
}

func (s *chatSession) close() {
	if s.closing.Swap(true) {
		return
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func (s *chatSession) readLoop() error {
	for {
		var frame server.Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if s.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("connection closed: %w", err)
		}
		s.print(renderFrame(frame))
	}
}

func (s *chatSession) print(line string) {
	if line == "" {
		return
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintln(s.out, line)
}

// renderFrame turns a server frame into one printable line.
func renderFrame(frame server.Frame) string {
	switch frame.Type {
	case string(chat.EventWelcome):
		var w chat.Welcome
		if json.Unmarshal(frame.Payload, &w) != nil {
			return ""
		}
		return color.Green.Sprintf("%s (session %s)", w.Message, w.SessionID)

	case string(chat.EventMembershipChanged):
		var m chat.MembershipChanged
		if json.Unmarshal(frame.Payload, &m) != nil {
			return ""
		}
		return color.Yellow.Sprintf("* %s (%d online)", m.Message, m.MemberCount)

	case string(chat.EventNewMessage):
		var msg chat.Message
		if json.Unmarshal(frame.Payload, &msg) != nil {
			return ""
		}
		return formatMessage(msg)

	case server.FrameReply:
		return renderReply(frame.Payload)

	default:
		return ""
	}
}

func renderReply(payload json.RawMessage) string {
	var reply struct {
		Success bool      `json:"success"`
		Error   string    `json:"error"`
		Code    chat.Code `json:"code"`
		Room    string    `json:"room"`
		Left    string    `json:"left_room"`
		Users   int       `json:"user_count"`
		Recent  []any     `json:"recent_messages"`
	}
	if err := json.Unmarshal(payload, &reply); err != nil {
		return ""
	}
	switch {
	case !reply.Success:
		return color.Red.Sprintf("! %s (%s)", reply.Error, reply.Code)
	case reply.Left != "":
		return color.Gray.Sprintf("left %s", reply.Left)
	case reply.Recent != nil:
		return color.Gray.Sprintf("%s: %d online, %d recent message(s)", reply.Room, reply.Users, len(reply.Recent))
	default:
		return ""
	}
}
