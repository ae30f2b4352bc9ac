package broadcast

import (
	"strconv"
	"sync"
	"time"
)

type Event struct {
	EventID  string `json:"event_id,omitempty"`
	Event    string `json:"event"`
	Room     string `json:"room"`
	ServerTS int64  `json:"server_ts"`
	Data     any    `json:"data"`
}

// Buffer keeps the recent events of one room for replay and fans new ones
// out to subscribers without blocking. Transient events are delivered but
// not retained.
type Buffer struct {
	mu        sync.Mutex
	room      string
	nextID    int64
	max       int
	events    []Event
	transient map[string]bool
	watchers  map[chan Event]struct{}
	closed    bool
}

func NewBuffer(room string, max int, transient ...string) *Buffer {
	if max <= 0 {
		max = 500
	}
	b := &Buffer{
		room:      room,
		max:       max,
		transient: map[string]bool{},
		watchers:  map[chan Event]struct{}{},
	}
	for _, ev := range transient {
		b.transient[ev] = true
	}
	return b
}

// Append delivers at most once to a live subscriber: a full subscriber misses the event and recovers
// it through ReplayAfter with its Last-Event-ID.
func (b *Buffer) Append(event string, data any) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return Event{}
	}
	ev := Event{Event: event, Room: b.room, ServerTS: time.Now().UnixMilli(), Data: data}
	if !b.transient[event] {
		b.nextID++
		ev.EventID = strconv.FormatInt(b.nextID, 10)
		b.events = append(b.events, ev)
		if len(b.events) > b.max {
			b.events = b.events[len(b.events)-b.max:]
		}
	}
	for ch := range b.watchers {
		select {
		case ch <- ev:
		default:
			metricEventsDroppedTotal.Add(1)
		}
	}
	return ev
}

// ReplayAfter returns retained events newer than lastEventID, or all of them
// when the id is empty or unparsable.
func (b *Buffer) ReplayAfter(lastEventID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	last, err := strconv.ParseInt(lastEventID, 10, 64)
	if lastEventID == "" || err != nil {
		last = 0
	}
	out := make([]Event, 0, len(b.events))
	for _, ev := range b.events {
		id, _ := strconv.ParseInt(ev.EventID, 10, 64)
		if id > last {
			out = append(out, ev)
		}
	}
	return out
}

func (b *Buffer) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.watchers[ch] = struct{}{}
	return ch
}

func (b *Buffer) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchers[ch]; ok {
		delete(b.watchers, ch)
		close(ch)
	}
}

func (b *Buffer) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}

func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.watchers {
		close(ch)
		delete(b.watchers, ch)
	}
}
