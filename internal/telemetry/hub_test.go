package telemetry

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Versifine/rotation/internal/rotation"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubBroadcastsTickResults(t *testing.T) {
	hub := NewHub("")
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, hub, 2)

	hub.RecordTick(rotation.TickResult{Tick: 4, ModeName: "target", YawAfter: 12.5, Frozen: true})

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, kind)

		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.EqualValues(t, 4, got["tick"])
		assert.Equal(t, "target", got["mode"])
		assert.Equal(t, 12.5, got["yaw_after"])
		assert.Equal(t, true, got["frozen"])
	}
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub := NewHub("")
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, hub, 1)
	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)

	hub.Broadcast([]byte(`{}`))
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub("")
	c := &client{send: make(chan []byte, 1), id: "slow"}
	hub.clients[c] = struct{}{}

	hub.Broadcast([]byte("one"))
	assert.Equal(t, 1, hub.ClientCount())
	hub.Broadcast([]byte("two"))
	assert.Equal(t, 0, hub.ClientCount())

	msg, ok := <-c.send
	assert.True(t, ok)
	assert.Equal(t, "one", string(msg))
	_, ok = <-c.send
	assert.False(t, ok)
}

func TestHubStartStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	hub := NewHub(addr)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Start(ctx) }()

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		c, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 20*time.Millisecond)
	defer conn.Close()
	waitForClients(t, hub, 1)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	waitForClients(t, hub, 0)
}

func TestHubStartFailsOnBadAddress(t *testing.T) {
	hub := NewHub("256.0.0.1:bad")
	assert.Error(t, hub.Start(context.Background()))
}
