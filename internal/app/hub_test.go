package app

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/step_navigation/internal/events"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubStreamsEvents(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil)
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Handle(events.StepEvent{Time: at, Count: 7, Magnitude: 1.4}))

	var frame struct {
		Type string `json:"type"`
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "step", frame.Type)
	assert.Equal(t, 7, frame.Data.Count)
}

func TestHubResetCommand(t *testing.T) {
	t.Parallel()
	var r resetCounter
	hub := NewHub(&r)
	conn := dialHub(t, hub)

	require.NoError(t, conn.WriteJSON(WSCommand{Action: "dance"}))
	require.NoError(t, conn.WriteJSON(WSCommand{Action: "reset"}))
	assert.Eventually(t, func() bool { return r.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubForgetsClosedClients(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil)
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, hub.Handle(events.BearingUpdate{Time: at, Bearing: 1}))
}

func TestHubNeverBlocksOnSlowClient(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil)
	dialHub(t, hub) // never reads
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10*wsQueueLen; i++ {
			_ = hub.Handle(events.StepEvent{Time: at, Count: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Handle blocked on a slow client")
	}
}
