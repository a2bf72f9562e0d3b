package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Event kinds pushed to connected back-office clients.
const (
	KindWorkflow   = "workflow"
	KindEscalation = "escalation"
	KindFeedback   = "feedback"
	KindPayout     = "payout"
	KindReminder   = "reminder"
)

// WSEvent is the wire format broadcast to websocket clients.
type WSEvent struct {
	Kind    string `json:"kind"`
	OrgID   int64  `json:"org_id"`
	Message string `json:"message"`
	At      int64  `json:"at"`
}

// Hub fans events out to websocket clients grouped by organization. The
// event feed is one-way: clients only listen.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	events     chan WSEvent
	done       chan struct{}

	mu    sync.Mutex
	rooms map[int64]map[*Client]bool

	logger *slog.Logger
	once   sync.Once
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan WSEvent, 64),
		done:       make(chan struct{}),
		rooms:      make(map[int64]map[*Client]bool),
		logger:     logger,
	}
}

// Run processes registrations and event broadcasts until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.orgID] == nil {
				h.rooms[c.orgID] = make(map[*Client]bool)
			}
			h.rooms[c.orgID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.orgID]; ok {
				if room[c] {
					delete(room, c)
					close(c.send)
				}
				if len(room) == 0 {
					delete(h.rooms, c.orgID)
				}
			}
			h.mu.Unlock()

		case ev := <-h.events:
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("marshal event", "err", err)
				continue
			}

			h.mu.Lock()
			clients := make([]*Client, 0, len(h.rooms[ev.OrgID]))
			for c := range h.rooms[ev.OrgID] {
				clients = append(clients, c)
			}
			h.mu.Unlock()

			for _, c := range clients {
				select {
				case c.send <- payload:
				default:
					// slow client; drop it rather than block the hub
					h.logger.Warn("client send buffer full, disconnecting", "org_id", ev.OrgID)
					h.unregisterClient(c)
				}
			}

		case <-h.done:
			h.mu.Lock()
			for _, room := range h.rooms {
				for c := range room {
					close(c.send)
					c.conn.Close()
				}
			}
			h.rooms = make(map[int64]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Publish queues an event for broadcast to the organization's room. It never
// blocks the caller; the event is dropped if the hub's buffer is full.
func (h *Hub) Publish(orgID int64, kind, message string) {
	ev := WSEvent{Kind: kind, OrgID: orgID, Message: message, At: time.Now().UTC().UnixMilli()}
	select {
	case h.events <- ev:
	case <-h.done:
	default:
		h.logger.Warn("event buffer full, dropping", "kind", kind, "org_id", orgID)
	}
}

// Close shuts the hub down and disconnects all clients. Safe to call twice.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[c.orgID]; ok && room[c] {
		delete(room, c)
		close(c.send)
		if len(room) == 0 {
			delete(h.rooms, c.orgID)
		}
	}
}
