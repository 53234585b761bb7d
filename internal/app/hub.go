// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/step_navigation/internal/events"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsQueueLen     = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSEvent is the frame sent to websocket clients.
type WSEvent struct {
	Type events.Type  `json:"type"`
	Data events.Event `json:"data"`
}

// WSCommand is the frame accepted from websocket clients.
type WSCommand struct {
	Action string `json:"action"` // reset
}

type wsClient struct {
	conn *websocket.Conn
	send chan WSEvent
}

// Hub fans navigation events out to websocket clients. A client that falls
// behind loses events instead of slowing the others.
type Hub struct {
	resetter Resetter

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	dropped int
}

// NewHub returns a hub; r handles "reset" commands and may be nil.
func NewHub(r Resetter) *Hub {
	return &Hub{resetter: r, clients: make(map[*wsClient]struct{})}
}

// Handle queues ev for every client. It never blocks.
func (h *Hub) Handle(ev events.Event) error {
	msg := WSEvent{Type: ev.Type(), Data: ev}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped++
		}
	}
	return nil
}

// Subscriber wraps Handle for registration on every event type.
func (h *Hub) Subscriber() *events.Subscriber {
	return events.NewSubscriber("websocket-hub", h.Handle)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan WSEvent, wsQueueLen)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Printf("web: websocket client %s connected", r.RemoteAddr)

	go h.writeLoop(c)
	h.readLoop(c)

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	log.Printf("web: websocket client %s left", r.RemoteAddr)
}

func (h *Hub) readLoop(c *wsClient) {
	for {
		var cmd WSCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket read error: %v", err)
			}
			return
		}

		switch cmd.Action {
		case "reset":
			if h.resetter != nil {
				h.resetter.ResetCalibration()
			}
		default:
			log.Printf("web: unknown websocket action %q", cmd.Action)
		}
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("web: websocket write error: %v", err)
			return
		}
	}
}
