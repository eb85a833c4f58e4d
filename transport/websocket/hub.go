package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/magic-maze/game/engine"
	"github.com/wricardo/magic-maze/logging"
)

const (
	writeWait = 10 * time.Second

	// A spectator that answers no ping within pongWait is dropped
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Spectators only send control frames
	maxMessageSize = 512

	// Pending broadcasts before new ones are dropped.
	broadcastBacklog = 1024
)

// Message kinds
const (
	KindEvent = "event"
	KindState = "state"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is what a spectator receives: either a board event with the state
// right after it, or a bare state snapshot.
type Message struct {
	SessionID string             `json:"session_id"`
	Kind      string             `json:"kind"`
	Event     *engine.Event      `json:"event,omitempty"`
	State     *engine.BoardState `json:"state,omitempty"`
}

// Spectator is one read-only connection watching a session
type Spectator struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

type countRequest struct {
	sessionID string
	reply     chan int
}

// Hub maintains the set of active clients and broadcasts messages. The
// sessions map is only touched by the Run goroutine.
type Hub struct {
	// Spectators per session id
	rooms map[string]map[*Spectator]struct{}

	broadcast  chan *Message
	register   chan *Spectator
	unregister chan *Spectator
	counts     chan countRequest
	done       chan struct{}

	logger *slog.Logger
}

// NewHub returns a hub; call Run to start it
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.New("websocket")
	}
	return &Hub{
		rooms:      make(map[string]map[*Spectator]struct{}),
		broadcast:  make(chan *Message, broadcastBacklog),
		register:   make(chan *Spectator),
		unregister: make(chan *Spectator),
		counts:     make(chan countRequest),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		for _, clients := range h.rooms {
			for client := range clients {
				close(client.send)
			}
		}
		h.rooms = make(map[string]map[*Spectator]struct{})
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.join(client)

		case client := <-h.unregister:
			h.unjoin(client)

		case message := <-h.broadcast:
			h.fanOut(message)

		case req := <-h.counts:
			req.reply <- len(h.rooms[req.sessionID])
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to one
// session. The initial state, when given, is the first message sent.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, initial *engine.BoardState) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Spectator{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}
	if initial != nil {
		if data, err := json.Marshal(&Message{SessionID: sessionID, Kind: KindState, State: initial}); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastEvent forwards a board event to every spectator of a session.
// It never blocks: when the backlog is full the event is dropped.
func (h *Hub) BroadcastEvent(sessionID string, ev engine.Event, state *engine.BoardState) {
	h.enqueue(&Message{SessionID: sessionID, Kind: KindEvent, Event: &ev, State: state})
}

// BroadcastState sends a bare state snapshot to every spectator of a session
func (h *Hub) BroadcastState(sessionID string, state *engine.BoardState) {
	h.enqueue(&Message{SessionID: sessionID, Kind: KindState, State: state})
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast backlog full, dropping message", "session", message.SessionID, "kind", message.Kind)
	}
}

// ClientCount returns how many spectators a session has, or 0 once the hub
// stopped.
func (h *Hub) ClientCount(sessionID string) int {
	req := countRequest{sessionID: sessionID, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) join(client *Spectator) {
	if h.rooms[client.sessionID] == nil {
		h.rooms[client.sessionID] = make(map[*Spectator]struct{})
	}
	h.rooms[client.sessionID][client] = struct{}{}

	h.logger.Debug("client registered", "session", client.sessionID, "clients", len(h.rooms[client.sessionID]))
}

// unjoin removes a client from a session
func (h *Hub) unjoin(client *Spectator) {
	if clients, ok := h.rooms[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.rooms, client.sessionID)
			}

			h.logger.Debug("client unregistered", "session", client.sessionID, "clients", len(clients))
		}
	}
}

// fanOut delivers a message to one room; spectators that cannot keep up
// are dropped.
func (h *Hub) fanOut(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "session", message.SessionID, "error", err)
		return
	}

	for client := range h.rooms[message.SessionID] {
		select {
		case client.send <- data:
		default:
			h.unjoin(client)
		}
	}
}

// readPump keeps the connection alive. Spectators do not send commands.
func (c *Spectator) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", "session", c.sessionID, "error", err)
			}
			break
		}
	}
}

// writePump sends one message per frame so every frame is valid JSON
func (c *Spectator) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
