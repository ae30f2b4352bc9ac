package game

import (
	"errors"
	"fmt"
	"testing"
)

func TestPhaseTransitions(t *testing.T) {
	cases := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseLobby, PhasePicking, true},
		{PhaseLobby, PhaseActiveRound, true},
		{PhaseLobby, PhaseRoundResolved, false},
		{PhaseActiveRound, PhaseRoundResolved, true},
		{PhaseRoundResolved, PhaseRoundResolved, false},
		{PhaseRoundResolved, PhaseActiveRound, true},
		{PhaseGameOver, PhaseLobby, true},
		{PhaseGameOver, PhaseActiveRound, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("%w: bad digits", ErrInvalidAnswer)
	if got := ErrorCode(wrapped); got != "invalid_answer" {
		t.Fatalf("ErrorCode = %q", got)
	}
	if got := ErrorDetail(wrapped); got != "bad digits" {
		t.Fatalf("ErrorDetail = %q", got)
	}
	if got := ErrorCode(errors.New("boom")); got != "internal_error" {
		t.Fatalf("ErrorCode(unknown) = %q", got)
	}
	if Kind(ErrRoomNotFound) != KindResource || Kind(ErrWrongPhase) != KindValidation {
		t.Fatal("unexpected error kinds")
	}
}

func TestRangeClamp(t *testing.T) {
	r := Range{Min: 3, Max: 10, Default: 5}
	for in, want := range map[int]int{0: 5, 1: 3, 7: 7, 99: 10} {
		if got := r.Clamp(in); got != want {
			t.Fatalf("Clamp(%d) = %d, want %d", in, got, want)
		}
	}
}

type countingSink struct{ n int }

func (c *countingSink) GameFinished(GameRecord) { c.n++ }

func TestFanOutSkipsNilSinks(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	FanOut(a, nil, b).GameFinished(GameRecord{RoomCode: "ABC234"})
	if a.n != 1 || b.n != 1 {
		t.Fatalf("deliveries = %d/%d, want 1/1", a.n, b.n)
	}
}
