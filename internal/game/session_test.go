package game

import (
	"errors"
	"testing"
	"time"
)

func TestResolutionRunsOnce(t *testing.T) {
	h := newHarness(t, Rules{}, "a", "b")
	h.start()
	h.submit("b", "45")
	h.submit("a", "50")

	if got := h.out.count(EventRoundResolved); got != 1 {
		t.Fatalf("round_resolved = %d, want 1", got)
	}
	ev := h.out.last(EventRoundResolved).(RoundResolvedEvent)
	if ev.Reason != "all_submitted" {
		t.Fatalf("reason = %q, want all_submitted", ev.Reason)
	}
	if ev.Results[0].PlayerID != "a" || ev.Results[0].Points != 10 || ev.Results[1].Points != 5 {
		t.Fatalf("results = %+v", ev.Results)
	}

	h.session.mu.Lock()
	h.session.resolveRound("timeout")
	h.session.mu.Unlock()
	if got := h.out.count(EventRoundResolved); got != 1 {
		t.Fatalf("round_resolved after late trigger = %d, want 1", got)
	}

	h.clock.Advance(31 * time.Second)
	if got := h.out.count(EventRoundResolved); got != 1 {
		t.Fatalf("round_resolved after old deadline = %d, want 1", got)
	}
	if snap := h.session.Snapshot(); snap.Round != 2 || snap.Phase != PhaseActiveRound {
		t.Fatalf("snapshot = round %d phase %s, want round 2 active", snap.Round, snap.Phase)
	}
}

func TestTimeoutResolvesPartialRound(t *testing.T) {
	h := newHarness(t, Rules{}, "a", "b")
	h.start()
	h.submit("b", "52")
	h.clock.Advance(29 * time.Second)
	if got := h.out.count(EventRoundResolved); got != 0 {
		t.Fatalf("resolved early at 29s")
	}
	if got := h.out.count(EventTick); got == 0 {
		t.Fatal("no tick events")
	}
	h.clock.Advance(time.Second)
	ev, ok := h.out.last(EventRoundResolved).(RoundResolvedEvent)
	if !ok || ev.Reason != "timeout" {
		t.Fatalf("round_resolved = %+v, want timeout", ev)
	}
	if !ev.Results[0].Submitted || ev.Results[1].Submitted {
		t.Fatalf("non-submitter not sorted last: %+v", ev.Results)
	}
	if ev.Results[0].Points != 8 || ev.Results[1].Points != 0 {
		t.Fatalf("points = %d/%d, want 8/0", ev.Results[0].Points, ev.Results[1].Points)
	}
}

func TestAtMostOneTimerAcrossPhases(t *testing.T) {
	h := newHarness(t, Rules{PickMode: PickVote}, "a", "b")
	h.start()
	h.assertSingleTimer()
	for round := 1; round <= 2; round++ {
		if err := h.session.Pick("a", "a"); err != nil {
			t.Fatalf("round %d Pick(a) error = %v", round, err)
		}
		h.assertSingleTimer()
		if err := h.session.Pick("b", "b"); err != nil {
			t.Fatalf("round %d Pick(b) error = %v", round, err)
		}
		h.assertSingleTimer()
		if got := h.session.Phase(); got != PhaseActiveRound {
			t.Fatalf("round %d phase = %s, want active_round", round, got)
		}
		h.submit("a", "50")
		h.assertSingleTimer()
		h.clock.Advance(3 * time.Second)
		h.assertSingleTimer()
		h.submit("b", "1")
		h.assertSingleTimer()
		h.clock.Advance(5 * time.Second)
		h.assertSingleTimer()
	}
	if got := h.session.Phase(); got != PhaseGameOver {
		t.Fatalf("phase = %s, want game_over", got)
	}
	if n := h.clock.Pending(); n != 0 {
		t.Fatalf("pending timers after game over = %d, want 0", n)
	}
}

func TestDisconnectAfterResolutionDoesNotRetrigger(t *testing.T) {
	h := newHarness(t, Rules{Disconnect: DisconnectGrace}, "a", "b")
	h.start()
	h.clock.Advance(time.Second)
	h.submit("b", "40")
	h.clock.Advance(time.Second)
	h.submit("a", "50")
	h.clock.Advance(time.Second)
	h.session.Disconnect("b")

	if got := h.out.count(EventRoundResolved); got != 1 {
		t.Fatalf("round_resolved = %d, want 1", got)
	}
	if got := h.session.Phase(); got != PhaseRoundResolved {
		t.Fatalf("phase = %s, want round_resolved", got)
	}
	if got := h.out.count(EventPlayerDisconnected); got != 1 {
		t.Fatalf("player_disconnected = %d, want 1", got)
	}
}

func TestGraceExpiryResolvesRemainingSubmitters(t *testing.T) {
	h := newHarness(t, Rules{Disconnect: DisconnectGrace}, "a", "b", "c")
	h.start()
	h.submit("a", "50")
	h.submit("b", "49")
	h.session.Disconnect("c")

	h.clock.Advance(14 * time.Second)
	if got := h.out.count(EventRoundResolved); got != 0 {
		t.Fatal("resolved before grace window elapsed")
	}
	h.clock.Advance(time.Second)
	ev, ok := h.out.last(EventRoundResolved).(RoundResolvedEvent)
	if !ok || ev.Reason != "all_submitted" {
		t.Fatalf("round_resolved = %+v, want all_submitted", ev)
	}
	if len(h.gone) != 1 || h.gone[0] != "c" {
		t.Fatalf("removed = %v, want [c]", h.gone)
	}
}

func TestReconnectCancelsRemoval(t *testing.T) {
	h := newHarness(t, Rules{Disconnect: DisconnectGrace}, "a", "b", "c")
	h.start()
	h.session.Disconnect("c")
	h.clock.Advance(10 * time.Second)

	if _, err := h.session.Reconnect("c", "wrong"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Reconnect(wrong token) error = %v, want ErrInvalidToken", err)
	}
	snap, err := h.session.Reconnect("c", "tok-c")
	if err != nil {
		t.Fatalf("Reconnect error = %v", err)
	}
	if snap.Phase != PhaseActiveRound {
		t.Fatalf("snapshot phase = %s", snap.Phase)
	}
	h.clock.Advance(10 * time.Second)
	if len(h.gone) != 0 {
		t.Fatalf("removed = %v, want none", h.gone)
	}
	for _, p := range h.session.Snapshot().Players {
		if !p.Connected {
			t.Fatalf("player %s still disconnected", p.ID)
		}
	}
}

func TestOwnerLeavesLobbyTransfersToEarliestJoined(t *testing.T) {
	h := newHarness(t, Rules{}, "a", "b", "c", "d")
	before := h.session.Snapshot().Settings
	if err := h.session.Leave("a"); err != nil {
		t.Fatalf("Leave error = %v", err)
	}
	snap := h.session.Snapshot()
	if snap.Owner != "b" {
		t.Fatalf("owner = %s, want b", snap.Owner)
	}
	if len(snap.Players) != 3 || snap.Phase != PhaseLobby {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Settings != before {
		t.Fatalf("settings changed: %+v -> %+v", before, snap.Settings)
	}
	if len(h.emptied) != 0 {
		t.Fatal("room torn down")
	}
}

func TestDesignatedPickerLeavingRestartsPick(t *testing.T) {
	h := newHarness(t, Rules{PickMode: PickDesignated, DefaultPick: "b"}, "a", "b", "c")
	h.start()
	if got := h.session.Snapshot().PickerID; got != "a" {
		t.Fatalf("picker = %s, want a", got)
	}
	if err := h.session.Pick("c", "a"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("Pick by non-picker error = %v, want ErrNotYourTurn", err)
	}
	if err := h.session.Leave("a"); err != nil {
		t.Fatalf("Leave error = %v", err)
	}
	snap := h.session.Snapshot()
	if snap.Phase != PhasePicking || snap.Round != 1 || snap.PickerID != "b" {
		t.Fatalf("after leave: phase %s round %d picker %s", snap.Phase, snap.Round, snap.PickerID)
	}
	if got := h.out.count(EventPickStarted); got != 2 {
		t.Fatalf("pick_started = %d, want 2", got)
	}
	h.assertSingleTimer()
	if err := h.session.Pick("b", "a"); err != nil {
		t.Fatalf("Pick error = %v", err)
	}
	if got := h.session.Phase(); got != PhaseActiveRound {
		t.Fatalf("phase = %s, want active_round", got)
	}
}

func TestPickTimeoutUsesDefault(t *testing.T) {
	h := newHarness(t, Rules{PickMode: PickDesignated, DefaultPick: "b"}, "a", "b")
	h.start()
	h.clock.Advance(10 * time.Second)
	if got := h.session.Phase(); got != PhaseActiveRound {
		t.Fatalf("phase = %s, want active_round", got)
	}
	if len(h.variant.picks) != 1 || h.variant.picks[0] != "b" {
		t.Fatalf("picks = %v, want [b]", h.variant.picks)
	}
	h.submit("a", "50")
	h.submit("b", "50")
	h.clock.Advance(5 * time.Second)
	if got := h.session.Snapshot().PickerID; got != "b" {
		t.Fatalf("second round picker = %s, want b", got)
	}
}

func TestVoteResolvesWhenAllVoted(t *testing.T) {
	h := newHarness(t, Rules{PickMode: PickVote}, "a", "b")
	h.start()
	if err := h.session.Pick("a", "b"); err != nil {
		t.Fatalf("vote error = %v", err)
	}
	if err := h.session.Pick("a", "a"); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second vote error = %v, want ErrAlreadyVoted", err)
	}
	if err := h.session.Pick("b", "zzz"); !errors.Is(err, ErrInvalidPick) {
		t.Fatalf("bad vote error = %v, want ErrInvalidPick", err)
	}
	if err := h.session.Pick("b", "b"); err != nil {
		t.Fatalf("vote error = %v", err)
	}
	ev, ok := h.out.last(EventPickResolved).(PickResolvedEvent)
	if !ok || ev.Choice != "b" || ev.Tally["b"] != 2 || ev.TimedOut {
		t.Fatalf("pick_resolved = %+v", ev)
	}
}

func TestVoteTimeoutWithoutVotesPicksRandomOption(t *testing.T) {
	h := newHarness(t, Rules{PickMode: PickVote}, "a", "b")
	h.start()
	h.clock.Advance(10 * time.Second)
	ev, ok := h.out.last(EventPickResolved).(PickResolvedEvent)
	if !ok || ev.Choice != "a" || !ev.TimedOut {
		t.Fatalf("pick_resolved = %+v", ev)
	}
}

func TestLeaveBelowMinimumEndsGame(t *testing.T) {
	h := newHarness(t, Rules{}, "a", "b")
	h.start()
	h.submit("a", "50")
	if err := h.session.Leave("b"); err != nil {
		t.Fatalf("Leave error = %v", err)
	}
	if got := h.session.Phase(); got != PhaseGameOver {
		t.Fatalf("phase = %s, want game_over", got)
	}
	if len(h.sink.records) != 1 || h.sink.records[0].Reason != "not_enough_players" {
		t.Fatalf("records = %+v", h.sink.records)
	}
	if n := h.clock.Pending(); n != 0 {
		t.Fatalf("pending timers = %d, want 0", n)
	}
}

func TestActionErrors(t *testing.T) {
	h := newHarness(t, Rules{}, "a", "b")
	if _, err := h.session.Submit("a", "50"); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("Submit in lobby error = %v, want ErrWrongPhase", err)
	}
	if err := h.session.Start("b"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("Start by guest error = %v, want ErrNotOwner", err)
	}
	h.start()
	if err := h.session.Start("a"); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("second Start error = %v, want ErrWrongPhase", err)
	}
	if err := h.session.Join(NewPlayer("z", "z", "t")); !errors.Is(err, ErrGameInProgress) {
		t.Fatalf("Join mid-game error = %v, want ErrGameInProgress", err)
	}
	if _, err := h.session.Submit("a", "fifty"); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("invalid answer error = %v", err)
	}
	if _, err := h.session.Submit("z", "50"); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("outsider error = %v", err)
	}
	h.submit("a", "50")
	if _, err := h.session.Submit("a", "51"); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("duplicate error = %v, want ErrAlreadySubmitted", err)
	}
	if err := h.session.Pick("a", "a"); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("Pick in round error = %v, want ErrWrongPhase", err)
	}
}

func TestStartNeedsMinimumPlayers(t *testing.T) {
	h := newHarness(t, Rules{}, "a")
	if err := h.session.Start("a"); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("Start error = %v, want ErrNotEnoughPlayers", err)
	}
}

func TestRoomFull(t *testing.T) {
	h := newHarness(t, Rules{MaxPlayers: 2}, "a", "b")
	if err := h.session.Join(NewPlayer("c", "c", "t")); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("Join error = %v, want ErrRoomFull", err)
	}
}

func TestFirstCorrectAnswerWins(t *testing.T) {
	h := newHarness(t, Rules{FirstCorrectWins: true}, "a", "b")
	h.start()
	if _, err := h.session.Submit("a", "40"); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("wrong answer error = %v, want ErrInvalidAnswer", err)
	}
	h.submit("b", "50")
	ev, ok := h.out.last(EventRoundResolved).(RoundResolvedEvent)
	if !ok || ev.Reason != "solved" || ev.Results[0].PlayerID != "b" {
		t.Fatalf("round_resolved = %+v", ev)
	}
}

func TestLastPlayerLeavingClosesRoom(t *testing.T) {
	h := newHarness(t, Rules{}, "a")
	if err := h.session.Leave("a"); err != nil {
		t.Fatalf("Leave error = %v", err)
	}
	if len(h.emptied) != 1 || h.emptied[0] != "ROOM23" {
		t.Fatalf("emptied = %v", h.emptied)
	}
	if err := h.session.Join(NewPlayer("b", "b", "t")); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("Join closed room error = %v, want ErrRoomNotFound", err)
	}
}

func TestSweepForcesOverduePhase(t *testing.T) {
	h := newHarness(t, Rules{}, "a", "b")
	h.start()
	if h.session.SweepOverdue(h.clock.Now().Add(31 * time.Second)) {
		t.Fatal("swept inside the safety buffer")
	}
	if !h.session.SweepOverdue(h.clock.Now().Add(33 * time.Second)) {
		t.Fatal("overdue phase not swept")
	}
	ev, ok := h.out.last(EventRoundResolved).(RoundResolvedEvent)
	if !ok || ev.Reason != "timeout" {
		t.Fatalf("round_resolved = %+v", ev)
	}
	h.assertSingleTimer()
}

func TestScoringPanicOnTimeoutEndsGame(t *testing.T) {
	h := newHarness(t, Rules{}, "a", "b")
	h.variant.broken = true
	h.start()
	h.submit("a", "50")
	h.clock.Advance(30 * time.Second)
	if got := h.session.Phase(); got != PhaseGameOver {
		t.Fatalf("phase = %s, want game_over", got)
	}
	if len(h.sink.records) != 1 || h.sink.records[0].Reason != "internal_error" {
		t.Fatalf("records = %+v", h.sink.records)
	}
	over, ok := h.out.last(EventGameOver).(GameOverEvent)
	if !ok || over.Reason != "internal_error" {
		t.Fatalf("game_over = %+v", over)
	}
}

func TestScoringPanicOnLastSubmissionEndsGame(t *testing.T) {
	h := newHarness(t, Rules{AutoReset: true}, "a", "b")
	h.variant.broken = true
	h.start()
	h.submit("a", "50")
	h.submit("b", "49")
	if got := h.session.Phase(); got != PhaseGameOver {
		t.Fatalf("phase = %s, want game_over", got)
	}
	h.assertSingleTimer()
	h.clock.Advance(15 * time.Second)
	if got := h.session.Phase(); got != PhaseLobby {
		t.Fatalf("phase = %s, want lobby after auto reset", got)
	}
}

func TestEarlyFinishAndAutoReset(t *testing.T) {
	h := newHarness(t, Rules{AutoReset: true, FinalRecapDelay: 2 * time.Second}, "a", "b")
	h.variant.endOn = 1
	h.start()
	h.submit("a", "50")
	h.submit("b", "48")
	h.clock.Advance(2 * time.Second)
	if got := h.session.Phase(); got != PhaseGameOver {
		t.Fatalf("phase = %s, want game_over", got)
	}
	over := h.out.last(EventGameOver).(GameOverEvent)
	if over.Winner != "a" || over.Standings[0].Score != 10 {
		t.Fatalf("game_over = %+v", over)
	}
	if len(h.sink.records) != 1 || h.sink.records[0].Reason != "completed" {
		t.Fatalf("records = %+v", h.sink.records)
	}
	h.clock.Advance(15 * time.Second)
	snap := h.session.Snapshot()
	if snap.Phase != PhaseLobby {
		t.Fatalf("phase = %s, want lobby", snap.Phase)
	}
	for _, p := range snap.Players {
		if p.Score != 0 {
			t.Fatalf("score for %s = %d after reset", p.ID, p.Score)
		}
	}
}

func TestResetByOwner(t *testing.T) {
	h := newHarness(t, Rules{}, "a", "b")
	h.start()
	if err := h.session.Reset("b"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("Reset by guest error = %v, want ErrNotOwner", err)
	}
	if err := h.session.Reset("a"); err != nil {
		t.Fatalf("Reset error = %v", err)
	}
	if got := h.session.Phase(); got != PhaseLobby {
		t.Fatalf("phase = %s, want lobby", got)
	}
	if h.session.PendingTimer() {
		t.Fatal("timer still pending after reset")
	}
	if err := h.session.Reset("a"); err != nil {
		t.Fatalf("Reset in lobby error = %v", err)
	}
}

func TestContentFailureOnStartReturnsToLobby(t *testing.T) {
	h := newHarness(t, Rules{}, "a", "b")
	h.variant.failGen = true
	if err := h.session.Start("a"); !errors.Is(err, ErrInternal) {
		t.Fatalf("Start error = %v, want ErrInternal", err)
	}
	if got := h.session.Phase(); got != PhaseLobby {
		t.Fatalf("phase = %s, want lobby", got)
	}
}
