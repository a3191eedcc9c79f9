package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"llm-arena/internal/arena"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// LeaderboardHub pushes refreshed global standings to subscribed WebSocket
// clients whenever a vote resolves a battle.
type LeaderboardHub struct {
	coordinator *arena.Coordinator

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	clients    map[*wsClient]bool
	done       chan struct{}
	stopOnce   sync.Once
}

type wsClient struct {
	hub  *LeaderboardHub
	conn *websocket.Conn
	send chan []byte
}

func NewLeaderboardHub(coordinator *arena.Coordinator) *LeaderboardHub {
	hub := &LeaderboardHub{
		coordinator: coordinator,
		register:    make(chan *wsClient),
		unregister:  make(chan *wsClient),
		broadcast:   make(chan []byte, 16),
		clients:     make(map[*wsClient]bool),
		done:        make(chan struct{}),
	}
	go hub.run()
	return hub
}

// Stop shuts down the hub loop and disconnects all clients. Idempotent.
func (h *LeaderboardHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *LeaderboardHub) run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

type leaderboardUpdate struct {
	Type    string             `json:"type"`
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardUpdated implements arena.Notifier: it snapshots the global
// leaderboard and fans it out to all connected clients.
func (h *LeaderboardHub) LeaderboardUpdated() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	records, err := h.coordinator.Leaderboard(ctx, "")
	if err != nil {
		log.Printf("[Hub] Failed to load leaderboard for broadcast: %v", err)
		return
	}

	message, err := json.Marshal(leaderboardUpdate{
		Type:    "leaderboard_update",
		Entries: toEntries(records),
	})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- message:
	default:
		log.Println("[Hub] Broadcast queue full, dropping leaderboard update")
	}
}

// HandleWebSocket upgrades the connection and subscribes it to leaderboard
// updates. GET /ws/leaderboard
func (h *LeaderboardHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{hub: h, conn: conn, send: make(chan []byte, 8)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	// Send the current standings immediately so new clients don't wait
	// for the next vote.
	h.LeaderboardUpdated()
}

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		// Clients only listen; any read error means they're gone.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
