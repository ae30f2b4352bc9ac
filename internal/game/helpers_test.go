package game

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"puzzle-party/internal/clock"
)

type sentEvent struct {
	to    string
	event string
	data  any
}

type recorder struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recorder) ToRoom(code, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{event: event, data: data})
}

func (r *recorder) ToPlayer(code, playerID, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{to: playerID, event: event, data: data})
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (r *recorder) last(event string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].event == event {
			return r.events[i].data
		}
	}
	return nil
}

type sinkRecorder struct {
	mu      sync.Mutex
	records []GameRecord
}

func (s *sinkRecorder) GameFinished(rec GameRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// guessVariant asks players for an integer near a fixed target.
type guessVariant struct {
	rules   Rules
	target  int
	options []PickOption
	picks   []string
	failGen bool
	endOn   int
	broken  bool
}

func newGuessVariant(rules Rules) *guessVariant {
	if rules.Rounds == (Range{}) {
		rules.Rounds = Range{Min: 1, Max: 10, Default: 2}
	}
	if rules.Seconds == (Range{}) {
		rules.Seconds = Range{Min: 10, Max: 60, Default: 30}
	}
	if rules.RecapDelay == 0 {
		rules.RecapDelay = 5 * time.Second
	}
	if rules.PickMode == "" {
		rules.PickMode = PickNone
	}
	if rules.Disconnect == "" {
		rules.Disconnect = DisconnectImmediate
	}
	return &guessVariant{
		rules:   rules,
		target:  50,
		options: []PickOption{{ID: "a", Label: "Alpha"}, {ID: "b", Label: "Beta"}},
	}
}

func (v *guessVariant) Name() string                    { return "guess" }
func (v *guessVariant) Rules() Rules                    { return v.rules }
func (v *guessVariant) BeginGame(context.Context) error { return nil }
func (v *guessVariant) PickOptions() []PickOption       { return v.options }

func (v *guessVariant) ParsePick(raw string, options []PickOption) (string, error) {
	for _, o := range options {
		if o.ID == raw {
			return raw, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPick, raw)
}

func (v *guessVariant) GenerateRoundContent(_ context.Context, number int, pick string) (*Round, error) {
	if v.failGen {
		return nil, fmt.Errorf("no content")
	}
	v.picks = append(v.picks, pick)
	return &Round{Target: v.target, Canonical: v.target}, nil
}

func (v *guessVariant) ValidateSubmission(r *Round, raw string) (Answer, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Answer{}, fmt.Errorf("%w: not a number", ErrInvalidAnswer)
	}
	diff := n - r.Target
	if diff < 0 {
		diff = -diff
	}
	if v.rules.FirstCorrectWins && diff != 0 {
		return Answer{}, fmt.Errorf("%w: wrong", ErrInvalidAnswer)
	}
	return Answer{Value: n, Diff: diff, Exact: diff == 0}, nil
}

func (v *guessVariant) ScoreSubmission(r *Round, sub Submission, _ ScoreContext) int {
	if v.broken {
		panic("scoring table missing")
	}
	if sub.Diff >= 10 {
		return 0
	}
	return 10 - sub.Diff
}

func (v *guessVariant) FinishRound(r *Round, results []Result) (any, bool) {
	return nil, v.endOn > 0 && r.Number >= v.endOn
}

type harness struct {
	t       *testing.T
	clock   *clock.Fake
	out     *recorder
	sink    *sinkRecorder
	variant *guessVariant
	session *Session
	emptied []string
	gone    []string
}

func newHarness(t *testing.T, rules Rules, ids ...string) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		clock:   clock.NewFake(time.Unix(1_700_000_000, 0)),
		out:     &recorder{},
		sink:    &sinkRecorder{},
		variant: newGuessVariant(rules),
	}
	deps := Deps{
		Clock:        h.clock,
		Out:          h.out,
		Sink:         h.sink,
		Log:          zerolog.Nop(),
		Timing:       DefaultTiming(),
		IntN:         func(int) int { return 0 },
		OnEmpty:      func(code string) { h.emptied = append(h.emptied, code) },
		OnPlayerGone: func(id string) { h.gone = append(h.gone, id) },
	}
	h.session = NewSession("ROOM23", h.variant, Settings{}, NewPlayer(ids[0], ids[0], "tok-"+ids[0]), deps)
	for _, id := range ids[1:] {
		if err := h.session.Join(NewPlayer(id, id, "tok-"+id)); err != nil {
			t.Fatalf("Join(%s) error = %v", id, err)
		}
	}
	return h
}

func (h *harness) start() {
	h.t.Helper()
	if err := h.session.Start(h.session.Snapshot().Owner); err != nil {
		h.t.Fatalf("Start() error = %v", err)
	}
}

func (h *harness) submit(id, raw string) {
	h.t.Helper()
	if _, err := h.session.Submit(id, raw); err != nil {
		h.t.Fatalf("Submit(%s, %q) error = %v", id, raw, err)
	}
}

func (h *harness) assertSingleTimer() {
	h.t.Helper()
	if n := h.clock.Pending(); n > 1 {
		h.t.Fatalf("pending timers = %d, want <= 1", n)
	}
}
