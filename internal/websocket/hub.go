package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/examdeck/examdeck-backend/internal/model"
)

// Client wraps one subscribed connection. All writes go through its
// mutex: gorilla/websocket allows only one concurrent writer per
// connection, and the hub broadcast runs on whatever goroutine mutated
// the session while the read loop writes its own replies.
type Client struct {
	conn *websocket.Conn

	mu sync.Mutex
}

// WriteState sends a session snapshot wrapped in a state event.
func (c *Client) WriteState(payload *StateResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteState(c.conn, payload)
}

// WriteError reports a failed client action.
func (c *Client) WriteError(errMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteError(c.conn, errMsg)
}

// Hub fans session snapshots out to the adapters subscribed to an
// exam's stream. Connections that fail a write are dropped.
type Hub struct {
	log zerolog.Logger

	mu   sync.Mutex
	subs map[int]map[*Client]struct{}
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:  log.With().Str("component", "ws_hub").Logger(),
		subs: map[int]map[*Client]struct{}{},
	}
}

// Subscribe registers conn for snapshots of examID and returns the
// Client handle all further writes to conn must go through.
func (h *Hub) Subscribe(examID int, conn *websocket.Conn) *Client {
	client := &Client{conn: conn}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[examID] == nil {
		h.subs[examID] = map[*Client]struct{}{}
	}
	h.subs[examID][client] = struct{}{}
	return client
}

// Unsubscribe removes client from examID's stream.
func (h *Hub) Unsubscribe(examID int, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[examID], client)
	if len(h.subs[examID]) == 0 {
		delete(h.subs, examID)
	}
}

// Publish pushes a snapshot to every subscriber of examID. Implements
// the session service's Notifier.
func (h *Hub) Publish(examID int, snap *model.SessionSnapshot) {
	payload := &StateResponse{Event: EventState, Data: snap}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.subs[examID] {
		if err := client.WriteState(payload); err != nil {
			h.log.Debug().Err(err).Int("exam_id", examID).Msg("Dropping dead subscriber")
			client.conn.Close()
			delete(h.subs[examID], client)
		}
	}
}
