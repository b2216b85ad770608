package brackets

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types broadcast to tournament rooms.
const (
	EventRoundGenerated     = "ROUND_GENERATED"
	EventPositionsFinalized = "POSITIONS_FINALIZED"
	EventLevelInitialized   = "LEVEL_INITIALIZED"
)

type HubMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string

	mu     sync.Mutex
	closed bool
}

// Hub fans progression events out to websocket clients. Rooms are keyed by
// tournament id.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan HubMessage

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan HubMessage, 16),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, in := clients[client]; in {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("hub: failed to marshal %s event: %v", msg.Type, err)
				continue
			}
			h.mu.RLock()
			for client := range h.rooms[msg.RoomID] {
				client.mu.Lock()
				if !client.closed {
					select {
					case client.send <- data:
					default:
						// Slow client; drop the event rather than block the hub.
					}
				}
				client.mu.Unlock()
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastToTournament queues an event for every client watching the
// tournament. Safe to call from any goroutine; never blocks progression.
func (h *Hub) BroadcastToTournament(tournamentID, eventType string, payload interface{}) {
	select {
	case h.broadcast <- HubMessage{Type: eventType, Payload: payload, RoomID: tournamentID}:
	default:
		log.Printf("hub: broadcast queue full, dropping %s for %s", eventType, tournamentID)
	}
}

// NewClient attaches a websocket connection to a tournament room and starts
// its pumps.
func (h *Hub) NewClient(conn *websocket.Conn, tournamentID string) *Client {
	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 32),
		room: tournamentID,
	}
	h.register <- c
	go c.writePump()
	go c.readPump()
	return c
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Clients are read-only consumers; incoming frames are drained to
		// keep the connection's control handlers serviced.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
