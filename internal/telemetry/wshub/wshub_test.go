package wshub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plcsim/internal/eventbus"
)

func TestHubBroadcastsEventsToConnectedClient(t *testing.T) {
	bus := eventbus.New()
	hub := New(zap.NewNop(), bus)
	hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let the server register the client

	bus.Publish(eventbus.Event{Task: "counter1", Kind: "started"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg map[string]string
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "counter1", msg["task"])
	require.Equal(t, "started", msg["kind"])
}
