package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/models"
	"github.com/ternarybob/steward/internal/services/events"
)

func dialTestClient(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) models.WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg models.WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocket_BroadcastReachesAllClients(t *testing.T) {
	handler := NewWebSocketHandler(nil, arbor.NewLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	clients := []*websocket.Conn{
		dialTestClient(t, server.URL),
		dialTestClient(t, server.URL),
		dialTestClient(t, server.URL),
	}

	require.Eventually(t, func() bool {
		return handler.ClientCount() == 3
	}, 2*time.Second, 10*time.Millisecond)

	handler.Broadcast(models.WSMessage{
		Type: "new_request",
		Data: map[string]string{"id": "req_1"},
	})

	for _, conn := range clients {
		msg := readMessage(t, conn)
		assert.Equal(t, "new_request", msg.Type)
		data, ok := msg.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "req_1", data["id"])
	}
}

func TestWebSocket_BrokenClientDoesNotBlockBroadcast(t *testing.T) {
	handler := NewWebSocketHandler(nil, arbor.NewLogger())

	// Register connections without a read loop so a broken one is
	// still in the client set when the broadcast runs
	serverConns := make(chan *websocket.Conn, 3)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler.mu.Lock()
		handler.clients[conn] = true
		handler.clientMutex[conn] = &sync.Mutex{}
		handler.mu.Unlock()
		serverConns <- conn
	}))
	defer server.Close()

	dialTestClient(t, server.URL)
	healthy := []*websocket.Conn{
		dialTestClient(t, server.URL),
		dialTestClient(t, server.URL),
	}

	require.Eventually(t, func() bool {
		return handler.ClientCount() == 3
	}, 2*time.Second, 10*time.Millisecond)

	// Sever the first connection's transport so writes to it fail
	brokenServer := <-serverConns
	require.NoError(t, brokenServer.UnderlyingConn().Close())

	handler.Broadcast(models.WSMessage{
		Type: "request_updated",
		Data: map[string]string{"id": "req_1"},
	})

	// The remaining clients still receive the message
	for _, conn := range healthy {
		msg := readMessage(t, conn)
		assert.Equal(t, "request_updated", msg.Type)
	}

	// The write failure is swallowed; unregistering is the read
	// loop's job, not the broadcast's
	assert.Equal(t, 3, handler.ClientCount())
}

func TestWebSocket_RecordEventsAreBroadcast(t *testing.T) {
	eventService := events.NewService(arbor.NewLogger())
	defer eventService.Close()

	handler := NewWebSocketHandler(eventService, arbor.NewLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dialTestClient(t, server.URL)
	require.Eventually(t, func() bool {
		return handler.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	request := &models.Request{
		ID:       "req_1",
		Category: models.CategoryElectrical,
		Priority: models.PriorityHigh,
		Status:   models.StatusPending,
	}
	require.NoError(t, eventService.PublishSync(context.Background(), models.Event{
		Type:    models.EventNewRequest,
		Payload: request,
	}))

	msg := readMessage(t, conn)
	assert.Equal(t, string(models.EventNewRequest), msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "req_1", data["id"])

	// Updates flow through the same channel
	require.NoError(t, eventService.PublishSync(context.Background(), models.Event{
		Type:    models.EventRequestUpdated,
		Payload: request,
	}))
	msg = readMessage(t, conn)
	assert.Equal(t, string(models.EventRequestUpdated), msg.Type)
}

func TestWebSocket_DisconnectedClientIsReaped(t *testing.T) {
	handler := NewWebSocketHandler(nil, arbor.NewLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dialTestClient(t, server.URL)
	require.Eventually(t, func() bool {
		return handler.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return handler.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
