package spectate

import (
	"errors"
	"expvar"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"puzzle-party/internal/broadcast"
	"puzzle-party/internal/game"
)

var (
	ssePingInterval = 15 * time.Second

	metricSSEConnectionsTotal  = expvar.NewInt("spectator_sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("spectator_sse_connections_active")
)

// Rooms is the read side of the room registry.
type Rooms interface {
	Snapshot(code string) (game.Snapshot, error)
}

// Feeds hands out live room streams.
type Feeds interface {
	SubscribeRoom(code string) (*broadcast.Buffer, chan broadcast.Event)
	CloseRoom(code string)
}

func SnapshotHandler(rooms Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := rooms.Snapshot(roomCode(r))
		if err != nil {
			writeRoomErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	}
}

// EventsHandler streams a room as server-sent events: a snapshot first, then
// the retained events after Last-Event-ID, then live events with periodic
// pings. The stream ends when the room closes.
func EventsHandler(rooms Rooms, feeds Feeds) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := roomCode(r)
		if _, err := rooms.Snapshot(code); err != nil {
			writeRoomErr(w, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeErr(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}

		buf, ch := feeds.SubscribeRoom(code)
		defer buf.Unsubscribe(ch)
		snap, err := rooms.Snapshot(code)
		if err != nil {
			// closed while subscribing; drop the buffer we may have created
			feeds.CloseRoom(code)
			writeRoomErr(w, err)
			return
		}
		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		broadcast.SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)

		if err := broadcast.WriteSSE(w, broadcast.Event{Event: game.EventRoomSnapshot, Room: code, ServerTS: time.Now().UnixMilli(), Data: snap}); err != nil {
			return
		}
		for _, ev := range buf.ReplayAfter(r.Header.Get("Last-Event-ID")) {
			if err := broadcast.WriteSSE(w, ev); err != nil {
				return
			}
		}
		flusher.Flush()

		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := broadcast.WriteSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				ping := broadcast.Event{
					Event:    "ping",
					Room:     code,
					ServerTS: time.Now().UnixMilli(),
					Data:     map[string]any{"ts": time.Now().UnixMilli()},
				}
				if err := broadcast.WriteSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func roomCode(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
}

func writeRoomErr(w http.ResponseWriter, err error) {
	if errors.Is(err, game.ErrRoomNotFound) {
		writeErr(w, http.StatusNotFound, game.ErrorCode(err))
		return
	}
	writeErr(w, http.StatusInternalServerError, game.ErrorCode(err))
}

func writeErr(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}
