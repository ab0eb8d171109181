package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/rooms"
	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/Tyrowin/roomchat/internal/store"
)

func startServer(t *testing.T) (*httptest.Server, *rooms.Coordinator) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	cfg := server.DefaultConfig()

	registry := server.NewRegistry(log)
	coordinator := rooms.NewCoordinator(log, store.New(), registry)
	hub := server.NewHub(log, cfg, coordinator, registry)
	server.StartHub(log, hub)

	policy := server.NewOriginPolicy(log, cfg)
	srv := httptest.NewServer(server.NewHandler(
		server.NewAPI(log, coordinator),
		server.NewWebSocketHandler(log, hub, policy),
		policy,
	))
	t.Cleanup(func() {
		srv.Close()
		_ = hub.Shutdown(time.Second)
	})
	return srv, coordinator
}

func runCmd(t *testing.T, srv *httptest.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-server", srv.URL}, args...), strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestRun_Usage(t *testing.T) {
	srv, _ := startServer(t)

	_, err := runCmd(t, srv, "")
	require.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, srv, "", "frobnicate")
	require.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, srv, "", "post")
	require.ErrorIs(t, err, errUsage)
}

func TestRun_PostAndList(t *testing.T) {
	srv, coordinator := startServer(t)

	out, err := runCmd(t, srv, "", "post", "-m", "deploy done", "-u", "ci", "-room", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "message 1 posted to ops")

	_, err = runCmd(t, srv, "", "post", "-m", "hello")
	require.NoError(t, err)

	out, err = runCmd(t, srv, "", "messages", "-room", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "deploy done")
	assert.Contains(t, out, "ci")
	assert.NotContains(t, out, "hello")
	assert.Contains(t, out, "1 message(s)")

	out, err = runCmd(t, srv, "", "messages", "-limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
	assert.NotContains(t, out, "deploy done")

	assert.Equal(t, 2, coordinator.Stats().Messages)
}

func TestRun_HealthRoomsUsers(t *testing.T) {
	srv, coordinator := startServer(t)
	_, err := coordinator.Connect("s1")
	require.NoError(t, err)
	_, err = coordinator.Join("s1", "lobby", "alice")
	require.NoError(t, err)

	out, err := runCmd(t, srv, "", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")

	out, err = runCmd(t, srv, "", "rooms")
	require.NoError(t, err)
	assert.Contains(t, out, "lobby")
	assert.Contains(t, out, "1 room(s)")

	out, err = runCmd(t, srv, "", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "1 user(s)")
}

func TestRun_APIErrorSurfaces(t *testing.T) {
	srv, _ := startServer(t)

	_, err := runCmd(t, srv, "", "post", "-m", strings.Repeat("x", 5000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(chat.CodeValidation))
}

func TestRun_Chat(t *testing.T) {
	srv, coordinator := startServer(t)

	_, err := runCmd(t, srv, "hello room\n/quit\n", "chat", "-room", "lobby", "-name", "cli")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs := coordinator.ListMessages("lobby", 10)
		return len(msgs) == 1 && msgs[0].Author == "cli" && msgs[0].Text == "hello room"
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return coordinator.Stats().Sessions == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "https://chat.example.com/", want: "wss://chat.example.com/ws"},
		{in: "ws://localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "ftp://example.com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := websocketURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderFrame(t *testing.T) {
	frame := func(frameType, payload string) server.Frame {
		return server.Frame{Type: frameType, Payload: []byte(payload)}
	}

	assert.Contains(t, renderFrame(frame("welcome", `{"message":"hi","session_id":"abc"}`)), "session abc")
	assert.Contains(t, renderFrame(frame("membership_changed", `{"message":"bob joined general","user_count":2}`)), "bob joined general (2 online)")
	assert.Contains(t, renderFrame(frame("new_message", `{"id":1,"message":"yo","username":"bob"}`)), "yo")
	assert.Contains(t, renderFrame(frame("reply", `{"success":false,"error":"Not in any room","code":"NOT_IN_ROOM"}`)), "Not in any room")
	assert.Contains(t, renderFrame(frame("reply", `{"success":true,"left_room":"general"}`)), "left general")
	assert.Empty(t, renderFrame(frame("reply", `{"success":true,"message_id":3}`)))
	assert.Empty(t, renderFrame(frame("mystery", `{}`)))
}
