package spectate

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"puzzle-party/internal/broadcast"
	"puzzle-party/internal/game"
)

type fakeRooms struct {
	mu    sync.Mutex
	rooms map[string]game.Snapshot
}

func (f *fakeRooms) Snapshot(code string) (game.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.rooms[code]
	if !ok {
		return game.Snapshot{}, game.ErrRoomNotFound
	}
	return snap, nil
}

type parsedSSE struct {
	ID    string
	Event string
	Data  string
}

func readEventWithTimeout(t *testing.T, rd *bufio.Reader, timeout time.Duration) parsedSSE {
	t.Helper()
	ch := make(chan parsedSSE, 1)
	errCh := make(chan error, 1)
	go func() {
		ev, err := readEvent(rd)
		if err != nil {
			errCh <- err
			return
		}
		ch <- ev
	}()
	select {
	case ev := <-ch:
		return ev
	case err := <-errCh:
		t.Fatalf("read event: %v", err)
	case <-time.After(timeout):
		t.Fatal("timeout waiting for sse event")
	}
	return parsedSSE{}
}

func readEvent(rd *bufio.Reader) (parsedSSE, error) {
	ev := parsedSSE{}
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return ev, err
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return ev, nil
		}
		switch {
		case strings.HasPrefix(line, "id: "):
			ev.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			ev.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.Data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func setup(t *testing.T) (*fakeRooms, *broadcast.Hub, *httptest.Server) {
	t.Helper()
	rooms := &fakeRooms{rooms: map[string]game.Snapshot{
		"ABC234": {Version: game.ProtocolVersion, Code: "ABC234", Variant: "countdown", Phase: game.PhaseLobby},
	}}
	hub := broadcast.NewHub(50)
	router := chi.NewRouter()
	router.Get("/rooms/{code}", SnapshotHandler(rooms))
	router.Get("/rooms/{code}/events", EventsHandler(rooms, hub))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return rooms, hub, srv
}

func TestSnapshotHandler(t *testing.T) {
	_, _, srv := setup(t)

	resp, err := http.Get(srv.URL + "/rooms/abc234")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/rooms/ZZZZZZ")
	if err != nil {
		t.Fatalf("get missing snapshot: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing room status = %d, want 404", resp.StatusCode)
	}
}

func TestEventsReplayAfterLastEventID(t *testing.T) {
	_, hub, srv := setup(t)
	hub.ToRoom("ABC234", game.EventPlayerJoined, map[string]string{"name": "Ada"})
	hub.ToRoom("ABC234", game.EventTick, game.TickEvent{TimeLeft: 3})
	hub.ToRoom("ABC234", game.EventGameStarted, map[string]int{"total_rounds": 5})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/rooms/ABC234/events", nil)
	req.Header.Set("Last-Event-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open sse: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	rd := bufio.NewReader(resp.Body)

	if ev := readEventWithTimeout(t, rd, time.Second); ev.Event != game.EventRoomSnapshot || ev.ID != "" {
		t.Fatalf("first event = %+v, want room_snapshot without id", ev)
	}
	ev := readEventWithTimeout(t, rd, time.Second)
	if ev.Event != game.EventGameStarted || ev.ID != "2" {
		t.Fatalf("replayed event = %+v, want game_started id 2", ev)
	}

	hub.ToRoom("ABC234", game.EventRoundStarted, map[string]int{"round": 1})
	ev = readEventWithTimeout(t, rd, time.Second)
	if ev.Event != game.EventRoundStarted || ev.ID != "3" {
		t.Fatalf("live event = %+v, want round_started id 3", ev)
	}
}

func TestEventsPingAndRoomClosed(t *testing.T) {
	prev := ssePingInterval
	ssePingInterval = 20 * time.Millisecond
	defer func() { ssePingInterval = prev }()

	_, hub, srv := setup(t)
	resp, err := http.Get(srv.URL + "/rooms/ABC234/events")
	if err != nil {
		t.Fatalf("open sse: %v", err)
	}
	defer resp.Body.Close()
	rd := bufio.NewReader(resp.Body)
	readEventWithTimeout(t, rd, time.Second)

	if ev := readEventWithTimeout(t, rd, time.Second); ev.Event != "ping" {
		t.Fatalf("event = %+v, want ping", ev)
	}

	hub.CloseRoom("ABC234")
	done := make(chan error, 1)
	go func() {
		for {
			if _, err := readEvent(rd); err != nil {
				done <- err
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream still open after room closed")
	}
}

func TestEventsUnknownRoom(t *testing.T) {
	_, hub, srv := setup(t)
	resp, err := http.Get(srv.URL + "/rooms/ZZZZZZ/events")
	if err != nil {
		t.Fatalf("open sse: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if _, ok := hub.Room("ZZZZZZ"); ok {
		t.Fatal("buffer created for unknown room")
	}
}
