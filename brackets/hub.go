package brackets

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

type WebSocketMessage struct {
	Type    string      `json:"type"` // BRACKET_GENERATED, MATCH_UPDATED
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Hub fans bracket updates out to websocket clients, one room per tournament.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// RoomName is the room a tournament's subscribers join.
func RoomName(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Debug("websocket client registered", slog.String("room", client.Room), slog.Int("clients", len(h.rooms[client.Room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room][client]; ok {
				client.Mu.Lock()
				if !client.IsClosed {
					close(client.Send)
					client.IsClosed = true
				}
				client.Mu.Unlock()
				delete(h.rooms[client.Room], client)
				if len(h.rooms[client.Room]) == 0 {
					delete(h.rooms, client.Room)
				}
			}
			h.mu.Unlock()
		}
	}
}

// RoomSize returns the number of clients subscribed to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// BroadcastToRoom sends message to every client in roomID. Slow clients are
// skipped rather than blocking the caller.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomClients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", slog.String("room", roomID), slog.Any("error", err))
		return
	}

	for client := range roomClients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			h.logger.Warn("websocket client send buffer full, skipping", slog.String("room", roomID))
		}
		client.Mu.Unlock()
	}
}

// Publish wraps payload in a WebSocketMessage for the tournament's room.
func (h *Hub) Publish(tournamentID int, msgType string, payload interface{}) {
	room := RoomName(tournamentID)
	h.BroadcastToRoom(room, WebSocketMessage{Type: msgType, Payload: payload, RoomID: room})
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Clients only listen; anything they send is discarded.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket read failed", slog.String("room", c.Room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Warn("websocket write failed", slog.String("room", c.Room), slog.Any("error", err))
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
