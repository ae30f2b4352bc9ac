package broadcast

import (
	"expvar"
	"sync"
	"time"

	"puzzle-party/internal/game"
)

var (
	metricEventsDroppedTotal  = expvar.NewInt("events_dropped_total")
	metricPrivateDroppedTotal = expvar.NewInt("private_events_dropped_total")
)

type inbox struct {
	room string
	ch   chan Event
}

// Hub implements game.Broadcaster over per-room buffers and per-player inboxes.
type Hub struct {
	mu      sync.Mutex
	max     int
	rooms   map[string]*Buffer
	players map[string]*inbox
}

var _ game.Broadcaster = (*Hub)(nil)

func NewHub(maxReplay int) *Hub {
	return &Hub{
		max:     maxReplay,
		rooms:   map[string]*Buffer{},
		players: map[string]*inbox{},
	}
}

func (h *Hub) ToRoom(code, event string, data any) {
	h.room(code).Append(event, data)
}

// ToPlayer delivers to an attached player. Nothing is queued for players
// without a live connection. The send stays under h.mu so Attach, Detach and
// CloseRoom cannot close the inbox mid-send; it never blocks.
func (h *Hub) ToPlayer(code, playerID, event string, data any) {
	ev := Event{Event: event, Room: code, ServerTS: time.Now().UnixMilli(), Data: data}
	h.mu.Lock()
	defer h.mu.Unlock()
	in := h.players[playerID]
	if in == nil {
		return
	}
	select {
	case in.ch <- ev:
	default:
		metricPrivateDroppedTotal.Add(1)
	}
}

// Room returns the buffer of an existing room.
func (h *Hub) Room(code string) (*Buffer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.rooms[code]
	return b, ok
}

func (h *Hub) room(code string) *Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.rooms[code]
	if !ok {
		b = NewBuffer(code, h.max, game.EventTick)
		h.rooms[code] = b
	}
	return b
}

// SubscribeRoom opens a live feed for a room, creating its buffer if needed.
func (h *Hub) SubscribeRoom(code string) (*Buffer, chan Event) {
	b := h.room(code)
	return b, b.Subscribe()
}

// Attach opens the private inbox of a player, replacing any previous one.
func (h *Hub) Attach(code, playerID string) chan Event {
	ch := make(chan Event, 32)
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.players[playerID]; ok {
		close(old.ch)
	}
	h.players[playerID] = &inbox{room: code, ch: ch}
	return ch
}

// Detach closes the inbox if ch is still the current one and reports
// whether it was.
func (h *Hub) Detach(playerID string, ch chan Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if in, ok := h.players[playerID]; ok && in.ch == ch {
		close(in.ch)
		delete(h.players, playerID)
		return true
	}
	return false
}

// CloseRoom ends every feed of a room.
func (h *Hub) CloseRoom(code string) {
	h.mu.Lock()
	b := h.rooms[code]
	delete(h.rooms, code)
	for id, in := range h.players {
		if in.room == code {
			close(in.ch)
			delete(h.players, id)
		}
	}
	h.mu.Unlock()
	if b != nil {
		b.Close()
	}
}
