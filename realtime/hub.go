package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"potluck/models"
)

// Client is one websocket connection watching one slice of one event.
type Client struct {
	Conn    *websocket.Conn
	Send    chan []byte
	EventID string
	Slice   models.Slice
}

func (c *Client) room() string {
	return c.EventID + "/" + string(c.Slice)
}

type broadcastMsg struct {
	Room string
	Data []byte
}

// outboundPayload is what every client in a room receives.
type outboundPayload struct {
	EventID string       `json:"eventId"`
	Slice   models.Slice `json:"slice"`
	Value   any          `json:"value"`
	Deleted bool         `json:"deleted,omitempty"`
}

type room struct {
	clients map[*Client]bool
	last    []byte
	cancel  context.CancelFunc
}

// Hub keeps one feed subscription per watched room and fans each value out to
// the room's clients. Slow clients are dropped.
type Hub struct {
	feed       *Feed
	rooms      map[string]*room
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

func NewHub(feed *Feed) *Hub {
	return &Hub{
		feed:       feed,
		rooms:      make(map[string]*room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			r := h.rooms[c.room()]
			if r == nil {
				ctx, cancel := context.WithCancel(context.Background())
				r = &room{clients: make(map[*Client]bool), cancel: cancel}
				h.rooms[c.room()] = r
				go h.watch(ctx, c.room(), c.EventID, c.Slice)
			}
			r.clients[c] = true
			if r.last != nil {
				h.send(r, c, r.last)
			}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if r := h.rooms[c.room()]; r != nil && r.clients[c] {
				delete(r.clients, c)
				close(c.Send)
				if len(r.clients) == 0 {
					r.cancel()
					delete(h.rooms, c.room())
				}
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			if r := h.rooms[m.Room]; r != nil {
				r.last = m.Data
				for c := range r.clients {
					h.send(r, c, m.Data)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for key, r := range h.rooms {
				r.cancel()
				for c := range r.clients {
					close(c.Send)
				}
				delete(h.rooms, key)
			}
			h.mu.Unlock()
			return
		}
	}
}

// send must be called with h.mu held.
func (h *Hub) send(r *room, c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		close(c.Send)
		delete(r.clients, c)
		if len(r.clients) == 0 {
			r.cancel()
			delete(h.rooms, c.room())
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Clients reports how many connections are registered.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.rooms {
		n += len(r.clients)
	}
	return n
}

func (h *Hub) watch(ctx context.Context, key, eventID string, slice models.Slice) {
	unsubscribe, err := h.feed.watch(ctx, eventID, slice, func(ev *models.Event) {
		data, err := json.Marshal(outboundPayload{
			EventID: eventID,
			Slice:   slice,
			Value:   SliceValue(ev, slice),
			Deleted: ev == nil,
		})
		if err != nil {
			slog.Error("Failed to encode slice", "event_id", eventID, "slice", slice, "error", err)
			return
		}
		select {
		case h.broadcast <- broadcastMsg{Room: key, Data: data}:
		case <-ctx.Done():
		case <-h.quit:
		}
	})
	if err != nil {
		slog.Error("Failed to watch event", "event_id", eventID, "slice", slice, "error", err)
		return
	}
	<-ctx.Done()
	unsubscribe()
}
