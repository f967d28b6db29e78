package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/tiles-server/game/session"
	"github.com/wricardo/tiles-server/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Broadcasts buffered between the game and the hub loop.
	eventBuffer = 4096

	// Messages buffered per spectator before it is dropped.
	sendBuffer = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one event as sent to spectators
type Message struct {
	Seq uint64 `json:"seq"`
	protocol.Envelope
}

// ReplaySource provides the catch-up state for a new spectator.
// session.Manager implements it.
type ReplaySource interface {
	Replay() session.Replay
}

// Client represents a WebSocket spectator
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// events up to and including since were part of the replay
	since uint64
}

// Hub fans game broadcasts out to spectators
type Hub struct {
	source ReplaySource

	// Registered clients
	clients map[*Client]bool

	// Broadcasts observed from the game
	events chan session.Event

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Client count requests
	count chan chan int

	// Closed when Run returns
	done chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub(source ReplaySource) *Hub {
	return &Hub{
		source:     source,
		clients:    make(map[*Client]bool),
		events:     make(chan session.Event, eventBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Observe receives a broadcast. It never blocks; when the hub falls behind
// the event is dropped for every spectator.
func (h *Hub) Observe(ev session.Event) {
	select {
	case h.events <- ev:
	default:
		log.Warn().Uint64("seq", ev.Seq).Msg("spectator hub behind, event dropped")
	}
}

// Run starts the hub's event loop
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.unregisterClient(client)
			}
			return ctx.Err()

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case ev := <-h.events:
			h.broadcastEvent(ev)

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// ServeWS upgrades a request to a spectator connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
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

// Clients returns the number of connected spectators
func (h *Hub) Clients(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-h.done:
		return 0, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// registerClient queues the replay for a new client and starts its feed
func (h *Hub) registerClient(client *Client) {
	replay := h.source.Replay()
	client.since = replay.Seq

	for _, msg := range replay.Messages {
		data, err := encode(replay.Seq, msg)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode replay")
			continue
		}
		select {
		case client.send <- data:
		default:
			log.Warn().Int("messages", len(replay.Messages)).Msg("replay larger than spectator buffer")
		}
	}

	h.clients[client] = true
	log.Debug().Int("clients", len(h.clients)).Uint64("since", client.since).Msg("spectator registered")
}

// unregisterClient removes a client and closes its feed
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		log.Debug().Int("clients", len(h.clients)).Msg("spectator unregistered")
	}
}

// broadcastEvent sends one event to every client that has not seen it
func (h *Hub) broadcastEvent(ev session.Event) {
	data, err := encode(ev.Seq, ev.Message)
	if err != nil {
		log.Error().Err(err).Uint64("seq", ev.Seq).Msg("failed to encode event")
		return
	}

	for client := range h.clients {
		if ev.Seq <= client.since {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client's send channel is full, drop it
			h.unregisterClient(client)
		}
	}
}

func encode(seq uint64, msg protocol.Message) ([]byte, error) {
	env, err := protocol.ToEnvelope(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Seq: seq, Envelope: env})
}

// readPump watches the connection for close and pong frames
func (c *Client) readPump() {
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
		// Spectators are read-only; anything they send is discarded
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("spectator connection error")
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
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
				// The hub closed the channel
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
