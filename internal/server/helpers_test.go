package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/rooms"
	"github.com/Tyrowin/roomchat/internal/store"
)

const readTimeout = 2 * time.Second

type testStack struct {
	log         *slog.Logger
	hub         *Hub
	registry    *Registry
	coordinator *rooms.Coordinator
	server      *httptest.Server
	wsURL       string
}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelError)
}

// newTestStack wires the whole server the way cmd/server does and serves it
// from an httptest server.
func newTestStack(t *testing.T, cfg Config) *testStack {
	t.Helper()
	cfg = sanitizeConfig(cfg)
	log := testLogger()

	registry := NewRegistry(log)
	coordinator := rooms.NewCoordinator(log, store.New(store.WithHistoryLimit(cfg.HistoryLimit)), registry)
	hub := NewHub(log, cfg, coordinator, registry)
	go hub.Run()

	policy := NewOriginPolicy(log, cfg)
	handler := NewHandler(NewAPI(log, coordinator), NewWebSocketHandler(log, hub, policy), policy)
	srv := httptest.NewServer(handler)

	t.Cleanup(func() {
		srv.Close()
		_ = hub.Shutdown(time.Second)
	})

	return &testStack{
		log:         log,
		hub:         hub,
		registry:    registry,
		coordinator: coordinator,
		server:      srv,
		wsURL:       "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

// peer is a test websocket client. Frames skipped while waiting for a
// specific one are kept for later reads.
type peer struct {
	t       *testing.T
	conn    *websocket.Conn
	id      string
	pending []Frame
}

// dial connects and consumes the welcome frame.
func (s *testStack) dial(t *testing.T) *peer {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	p := &peer{t: t, conn: conn}
	frame := p.next()
	require.Equal(t, string(chat.EventWelcome), frame.Type)
	welcome := decode[chat.Welcome](t, frame.Payload)
	require.NotEmpty(t, welcome.SessionID)
	p.id = welcome.SessionID
	return p
}

func (p *peer) write(frameType, requestID string, payload any) {
	p.t.Helper()
	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, encodeFrame(frameType, requestID, payload)))
}

func (p *peer) next() Frame {
	p.t.Helper()
	if len(p.pending) > 0 {
		frame := p.pending[0]
		p.pending = p.pending[1:]
		return frame
	}
	return p.read()
}

func (p *peer) read() Frame {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, raw, err := p.conn.ReadMessage()
	require.NoError(p.t, err)
	return decode[Frame](p.t, raw)
}

// until returns the first frame accepted by match. Frames it skips stay
// queued for later reads.
func (p *peer) until(match func(Frame) bool) Frame {
	p.t.Helper()
	for i, frame := range p.pending {
		if match(frame) {
			p.pending = append(p.pending[:i:i], p.pending[i+1:]...)
			return frame
		}
	}
	for {
		frame := p.read()
		if match(frame) {
			return frame
		}
		p.pending = append(p.pending, frame)
	}
}

// event returns the next event of the given type.
func (p *peer) event(eventType chat.EventType) Frame {
	p.t.Helper()
	return p.until(func(f Frame) bool { return f.Type == string(eventType) })
}

// membership returns the next membership change matching dir.
func (p *peer) membership(dir chat.Direction) chat.MembershipChanged {
	p.t.Helper()
	frame := p.until(func(f Frame) bool {
		if f.Type != string(chat.EventMembershipChanged) {
			return false
		}
		var note chat.MembershipChanged
		return json.Unmarshal(f.Payload, &note) == nil && note.Direction == dir
	})
	return decode[chat.MembershipChanged](p.t, frame.Payload)
}

// request sends a frame and waits for its reply, decoding the reply payload.
func (p *peer) request(frameType, requestID string, payload any) map[string]any {
	p.t.Helper()
	p.write(frameType, requestID, payload)
	frame := p.until(func(f Frame) bool { return f.Type == FrameReply && f.RequestID == requestID })
	return decode[map[string]any](p.t, frame.Payload)
}

// expectNoFrame fails when anything arrives within d. The connection cannot
// be read afterwards.
func (p *peer) expectNoFrame(d time.Duration) {
	p.t.Helper()
	require.Empty(p.t, p.pending)
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(d)))
	_, raw, err := p.conn.ReadMessage()
	require.Error(p.t, err, "unexpected frame: %s", raw)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func getJSON[T any](t *testing.T, url string) (int, T) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return resp.StatusCode, v
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, readTimeout, 10*time.Millisecond)
}
