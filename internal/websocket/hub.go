// Package websocket pushes change notifications to connected browsers so
// open calendars and boards refetch after a mutation.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/opsdesk/internal/metrics"
)

// Entities that produce change notifications.
const (
	EntityScheduleEntry = "schedule_entry"
	EntityTask          = "task"
	EntityFollowUp      = "follow_up"
	EntityLead          = "lead"
)

// Message tells clients that an entity changed. Date is the calendar day
// whose cells should be refetched, when the change has one.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
	Date   string `json:"date,omitempty"`
}

// NewMessage builds a Message whose Type is "<entity>_<action>". A zero
// date is omitted.
func NewMessage(entity, action string, id int64, date time.Time) Message {
	msg := Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
	if !date.IsZero() {
		msg.Date = date.Format("2006-01-02")
	}
	return msg
}

// Hub fans messages out to every registered client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.AddWebsocketClient()
}

// Unregister removes c and closes its send channel. Unknown clients are
// ignored.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		metrics.RemoveWebsocketClient()
	}
}

// Broadcast queues msg for every client. Clients with a full buffer miss
// the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Debug("broadcast dropped for slow clients", "type", msg.Type, "clients", dropped)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
