package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookclub/internal/config"
)

var testWSConfig = config.WebSocketConfig{
	WriteWaitSeconds:    5,
	PongWaitSeconds:     60,
	PingPeriodSeconds:   54,
	MaxMessageSizeBytes: 512,
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func dial(t *testing.T, hub *Hub, userID uint) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWsPerConnection(hub, userID, w, r, testWSConfig)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.IsOnline(userID) }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestHubDeliversOnlyToTargets(t *testing.T) {
	hub := startHub(t)
	alice := dial(t, hub, 1)
	bob := dial(t, hub, 2)

	hub.SendToUsers([]uint{1, 99}, []byte(`{"type":"friend_request.sent"}`))
	hub.SendToUsers([]uint{2}, []byte(`{"type":"group.renamed"}`))

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := alice.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"friend_request.sent"}`, string(msg))

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err = bob.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"group.renamed"}`, string(msg))
}

func TestHubUnregistersClosedConnection(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, hub, 5)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return !hub.IsOnline(5) }, 2*time.Second, 10*time.Millisecond)
}

func TestSendToUsersIgnoresEmptyTargets(t *testing.T) {
	hub := NewHub()
	hub.SendToUsers(nil, []byte("x"))
	assert.Len(t, hub.direct, 0)
}
