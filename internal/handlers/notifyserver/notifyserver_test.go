package notifyserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookclub/internal/auth"
	"bookclub/internal/config"
	"bookclub/internal/services"
	ws "bookclub/internal/websocket"
)

type recordingNotifier struct {
	userIDs [][]uint
	payload [][]byte
}

func (n *recordingNotifier) SendToUsers(userIDs []uint, payload []byte) {
	n.userIDs = append(n.userIDs, userIDs)
	n.payload = append(n.payload, payload)
}

func TestEventHandlerForwardsToTargets(t *testing.T) {
	n := &recordingNotifier{}
	handler := NewEventHandler(n)

	value, err := json.Marshal(services.Event{
		Type:          services.EventGroupDeleted,
		ActorID:       1,
		TargetUserIDs: []uint{2, 3},
		GroupName:     "Club",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), &confluentKafka.Message{Value: value}))
	require.Len(t, n.userIDs, 1)
	assert.Equal(t, []uint{2, 3}, n.userIDs[0])
	assert.JSONEq(t, string(value), string(n.payload[0]))
}

func TestEventHandlerSkipsBadMessages(t *testing.T) {
	n := &recordingNotifier{}
	handler := NewEventHandler(n)

	assert.NoError(t, handler(context.Background(), &confluentKafka.Message{Value: []byte("not json")}))
	assert.NoError(t, handler(context.Background(), &confluentKafka.Message{Value: []byte(`{"type":"friend.removed","targetUserIds":[]}`)}))
	assert.Empty(t, n.userIDs)
}

func TestServeWSRequiresValidToken(t *testing.T) {
	cfg := config.Config{
		Auth:      config.AuthConfig{JWTSecretKey: "secret", JWTExpiry: time.Minute},
		WebSocket: config.WebSocketConfig{WriteWaitSeconds: 5, PongWaitSeconds: 60, PingPeriodSeconds: 54, MaxMessageSizeBytes: 512},
	}
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(NewWebSocketHandler(hub, cfg, nil).ServeWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?token=bogus", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := auth.GenerateToken(9, "ivy", cfg.Auth)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline(9) }, 2*time.Second, 10*time.Millisecond)

	hub.SendToUsers([]uint{9}, []byte(`{"type":"friend.removed"}`))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"friend.removed"}`, string(msg))
}
