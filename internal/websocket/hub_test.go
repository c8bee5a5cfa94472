package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpt/internal/infrastructure"
	"dpt/internal/operations"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewHandler(hub, discardLogger()))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub := NewHub(discardLogger())
	hub.Start()
	defer hub.Stop()

	conn := dial(t, hub)
	hello := readMessage(t, conn)
	assert.Equal(t, TypeConnection, hello.Type)
	assert.Equal(t, 1, hub.ClientCount())

	ctx := infrastructure.WithTraceID(context.Background(), "trace-1")
	hub.Notify(ctx, operations.Event{
		Type:        operations.EventStepCompleted,
		OperationID: "op-1",
		Step:        operations.StepIDAggregate,
		Time:        time.Now(),
	})

	msg := readMessage(t, conn)
	assert.Equal(t, operations.EventStepCompleted, msg.Type)
	assert.Equal(t, "trace-1", msg.TraceID)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "op-1", data["operation_id"])
	assert.Equal(t, operations.StepIDAggregate, data["step"])
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub(discardLogger())
	hub.Start()
	defer hub.Stop()

	conn := dial(t, hub)
	readMessage(t, conn)
	require.Equal(t, 1, hub.ClientCount())

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(discardLogger())
	hub.Start()

	conn := dial(t, hub)
	readMessage(t, conn)

	hub.Stop()
	assert.Equal(t, 0, hub.ClientCount())

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// Stopping twice is harmless.
	hub.Stop()
}

func TestHub_NotStarted(t *testing.T) {
	hub := NewHub(discardLogger())

	// Broadcasting without a running loop must not block.
	for i := 0; i < broadcastBuffer+10; i++ {
		hub.Notify(context.Background(), operations.Event{Type: operations.EventOperationStarted})
	}

	conn := dial(t, hub)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
}
