package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/pulse/internal/config"
	"github.com/pulse-social/pulse/pkg/pubsub"
)

func startHub(t *testing.T) (*Hub, *pubsub.MemoryPubSub, *httptest.Server) {
	t.Helper()

	bus := pubsub.NewMemoryPubSub()
	hub := NewHub(config.WebSocketConfig{
		MaxMessageSize: 1024,
		PongWait:       5 * time.Second,
		PingInterval:   4 * time.Second,
		WriteWait:      time.Second,
	}, bus)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
		hub.Serve(w, r, userID)
	}))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hub.Done()
		bus.Close()
	})
	return hub, bus, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server, userID int64) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + strconv.FormatInt(userID, 10)
	before := hub.ClientCount(userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount(userID) == before+1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *pubsub.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev pubsub.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return &ev
}

func TestHub_DeliversEventsToEveryConnectionOfTheUser(t *testing.T) {
	hub, bus, srv := startHub(t)

	phone := dial(t, hub, srv, 7)
	laptop := dial(t, hub, srv, 7)
	other := dial(t, hub, srv, 8)

	ev, err := pubsub.NewEvent(pubsub.EventMessageCreated, 7, map[string]string{"content": "hi"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), pubsub.UserChannel(7), ev))

	for _, conn := range []*websocket.Conn{phone, laptop} {
		got := readEvent(t, conn)
		assert.Equal(t, pubsub.EventMessageCreated, got.Type)
		assert.Equal(t, int64(7), got.UserID)
		assert.JSONEq(t, `{"content":"hi"}`, string(got.Payload))
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "user 8 must not receive user 7's event")
}

func TestHub_PingPong(t *testing.T) {
	hub, _, srv := startHub(t)
	conn := dial(t, hub, srv, 3)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]string
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg["type"])
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, _, srv := startHub(t)
	conn := dial(t, hub, srv, 4)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount(4) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RegisterAfterStop(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()
	hub := NewHub(config.WebSocketConfig{}, bus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, hub.Run(ctx))

	assert.ErrorIs(t, hub.Register(&Client{ID: "x", UserID: 1}), ErrHubStopped)
}
