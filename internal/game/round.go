package game

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

func (s *Session) nextRound() {
	s.round++
	s.current = nil
	s.submissions = map[string]*Submission{}
	s.subSeq = 0
	for _, p := range s.players {
		p.Submitted = false
	}
	if s.rules.PickMode == PickNone {
		s.startRound("")
		return
	}
	s.startPickPhase()
}

func (s *Session) startPickPhase() {
	if !s.setPhase(PhasePicking) {
		return
	}
	s.pickOptions = s.variant.PickOptions()
	s.votes = map[string]string{}
	timeout := s.deps.Timing.PickTimeout
	if s.rules.PickMode == PickVote {
		timeout = s.deps.Timing.VoteTimeout
	}
	s.deps.Out.ToRoom(s.code, EventPickStarted, PickStartedEvent{
		Round:    s.round,
		Mode:     s.rules.PickMode,
		PickerID: s.pickerID(),
		Options:  s.pickOptions,
		Seconds:  ceilSeconds(timeout),
	})
	s.timer.Countdown(timeout, s.deps.Timing.Tick, s.deps.Timing.SafetyBuffer,
		s.tick,
		func() { s.resolvePick(true) })
}

// Pick records a designated pick or a vote.
func (s *Session) Pick(by, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePicking {
		return ErrWrongPhase
	}
	if s.indexOf(by) < 0 {
		return ErrNotInRoom
	}
	if s.rules.PickMode == PickDesignated && by != s.pickerID() {
		return ErrNotYourTurn
	}
	if s.rules.PickMode == PickVote {
		if _, ok := s.votes[by]; ok {
			return ErrAlreadyVoted
		}
	}
	choice, err := s.variant.ParsePick(raw, s.pickOptions)
	if err != nil {
		if errors.Is(err, ErrInvalidPick) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidPick, err)
	}
	if s.rules.PickMode == PickDesignated {
		s.applyPick(choice, nil, false)
		return nil
	}
	s.votes[by] = choice
	s.deps.Out.ToRoom(s.code, EventVoteCast, VoteCastEvent{PlayerID: by, Votes: len(s.votes), Voters: len(s.players)})
	if len(s.votes) >= len(s.players) {
		s.resolvePick(false)
	}
	return nil
}

func (s *Session) resolvePick(timedOut bool) {
	if s.phase != PhasePicking {
		return
	}
	if s.rules.PickMode == PickDesignated {
		s.applyPick(s.rules.DefaultPick, nil, timedOut)
		return
	}
	tally := map[string]int{}
	for _, v := range s.votes {
		tally[v]++
	}
	var top []string
	best := 0
	for _, opt := range s.pickOptions {
		n := tally[opt.ID]
		switch {
		case n > best:
			best = n
			top = []string{opt.ID}
		case n == best && n > 0:
			top = append(top, opt.ID)
		}
	}
	if len(top) == 0 {
		for _, opt := range s.pickOptions {
			top = append(top, opt.ID)
		}
	}
	choice := s.rules.DefaultPick
	if len(top) > 0 {
		choice = top[s.deps.IntN(len(top))]
	}
	s.applyPick(choice, tally, timedOut)
}

func (s *Session) applyPick(choice string, tally map[string]int, timedOut bool) {
	s.timer.Cancel()
	label := choice
	for _, opt := range s.pickOptions {
		if opt.ID == choice {
			label = opt.Label
		}
	}
	s.deps.Out.ToRoom(s.code, EventPickResolved, PickResolvedEvent{
		Round: s.round, Choice: choice, Label: label, Tally: tally, TimedOut: timedOut,
	})
	s.startRound(choice)
}

func (s *Session) startRound(pick string) {
	ctx, cancel := s.contentContext()
	defer cancel()
	r, err := s.variant.GenerateRoundContent(ctx, s.round, pick)
	if err != nil || r == nil {
		metricContentFailuresTotal.Add(1)
		s.log.Error().Err(err).Int("round", s.round).Msg("round_content_failed")
		if s.phase == PhaseLobby {
			return
		}
		s.endGame("content_unavailable")
		return
	}
	if !s.setPhase(PhaseActiveRound) {
		return
	}
	r.Number = s.round
	r.Duration = time.Duration(s.settings.RoundSeconds) * time.Second
	r.StartedAt = s.deps.Clock.Now()
	s.current = r
	s.deps.Out.ToRoom(s.code, EventRoundStarted, RoundStartedEvent{Round: s.roundView(r), TotalRounds: s.settings.Rounds})
	s.log.Debug().Int("round", s.round).Msg("round_started")
	s.timer.Countdown(r.Duration, s.deps.Timing.Tick, s.deps.Timing.SafetyBuffer,
		s.tick,
		func() { s.resolveRound("timeout") })
}

func (s *Session) tick(left int) {
	s.deps.Out.ToRoom(s.code, EventTick, TickEvent{Phase: s.phase, TimeLeft: left})
}

// Submit validates and records an answer for the active round.
func (s *Session) Submit(by, raw string) (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActiveRound || s.current == nil {
		return Submission{}, ErrWrongPhase
	}
	idx := s.indexOf(by)
	if idx < 0 {
		return Submission{}, ErrNotInRoom
	}
	if _, ok := s.submissions[by]; ok {
		return Submission{}, ErrAlreadySubmitted
	}
	ans, err := s.variant.ValidateSubmission(s.current, raw)
	if err != nil {
		if !errors.Is(err, ErrInvalidAnswer) {
			err = fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
		}
		return Submission{}, err
	}
	s.subSeq++
	sub := &Submission{
		PlayerID: by,
		Raw:      raw,
		Value:    ans.Value,
		Diff:     ans.Diff,
		Exact:    ans.Exact,
		Detail:   ans.Detail,
		At:       s.deps.Clock.Now(),
		Seq:      s.subSeq,
	}
	s.submissions[by] = sub
	s.players[idx].Submitted = true
	s.deps.Out.ToRoom(s.code, EventPlayerSubmitted, SubmittedEvent{
		PlayerID: by, Submitted: len(s.submissions), Players: len(s.players),
	})
	out := *sub
	if s.rules.FirstCorrectWins && ans.Exact {
		metricEarlyResolutionsTotal.Add(1)
		s.resolveRound("solved")
		return out, nil
	}
	s.checkAllSubmitted()
	return out, nil
}

func (s *Session) checkAllSubmitted() {
	if s.phase != PhaseActiveRound || len(s.players) == 0 || s.rules.FirstCorrectWins {
		return
	}
	if len(s.submissions) < len(s.players) {
		return
	}
	metricEarlyResolutionsTotal.Add(1)
	s.resolveRound("all_submitted")
}

// resolveRound scores the active round exactly once. The phase flips before
// scoring so a second trigger finds round_resolved and returns.
func (s *Session) resolveRound(reason string) {
	if s.phase != PhaseActiveRound {
		metricDoubleResolutionNoop.Add(1)
		s.log.Debug().Str("reason", reason).Str("phase", string(s.phase)).Msg("double_resolution_ignored")
		return
	}
	if !s.setPhase(PhaseRoundResolved) {
		return
	}
	s.timer.Cancel()
	defer s.timer.recoverPhase("resolve_round")
	r := s.current

	sc := ScoreContext{RoundStart: r.StartedAt, Duration: r.Duration}
	for _, sub := range s.submissions {
		if sc.Earliest.IsZero() || sub.At.Before(sc.Earliest) {
			sc.Earliest = sub.At
		}
		if sub.At.After(sc.Latest) {
			sc.Latest = sub.At
		}
	}

	results := make([]Result, 0, len(s.players))
	for _, p := range s.players {
		res := Result{PlayerID: p.ID, Name: p.Name}
		if sub, ok := s.submissions[p.ID]; ok {
			sub.Points = s.variant.ScoreSubmission(r, *sub, sc)
			p.Score += sub.Points
			res.Submitted = true
			res.Raw = sub.Raw
			res.Value = sub.Value
			res.Diff = sub.Diff
			res.Exact = sub.Exact
			res.Detail = sub.Detail
			res.Points = sub.Points
			res.Seq = sub.Seq
		}
		res.Total = p.Score
		results = append(results, res)
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Submitted != b.Submitted {
			return a.Submitted
		}
		if a.Diff != b.Diff {
			return a.Diff < b.Diff
		}
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		return a.Seq < b.Seq
	})

	var extra any
	early := false
	if f, ok := s.variant.(RoundFinisher); ok {
		extra, early = f.FinishRound(r, results)
	}
	final := early || s.round >= s.settings.Rounds

	metricRoundsResolvedTotal.Add(1)
	s.deps.Out.ToRoom(s.code, EventRoundResolved, RoundResolvedEvent{
		Round:     s.round,
		Reason:    reason,
		Results:   results,
		Canonical: r.Canonical,
		Extra:     extra,
		Standings: s.standings(),
		Final:     final,
	})
	s.log.Info().Int("round", s.round).Str("reason", reason).Int("submissions", len(s.submissions)).Msg("round_resolved")

	if s.rules.PickMode == PickDesignated {
		s.pickerIndex++
	}
	delay := s.rules.RecapDelay
	if early && s.rules.FinalRecapDelay > 0 {
		delay = s.rules.FinalRecapDelay
	}
	s.timer.After(delay, s.deps.Timing.SafetyBuffer, func() {
		if final {
			s.endGame("completed")
			return
		}
		s.nextRound()
	})
}

func (s *Session) endGame(reason string) {
	s.timer.Cancel()
	if !s.setPhase(PhaseGameOver) {
		return
	}
	standings := s.standings()
	rec := GameRecord{
		RoomCode:   s.code,
		Variant:    s.variant.Name(),
		Rounds:     s.round,
		StartedAt:  s.startedAt,
		FinishedAt: s.deps.Clock.Now(),
		Reason:     reason,
		Standings:  standings,
	}
	if len(standings) > 0 {
		rec.Winner = standings[0].ID
	}
	metricGamesFinishedTotal.Add(1)
	s.deps.Out.ToRoom(s.code, EventGameOver, GameOverEvent{Reason: reason, Standings: standings, Winner: rec.Winner})
	s.log.Info().Str("reason", reason).Str("winner", rec.Winner).Msg("game_over")
	s.deps.Sink.GameFinished(rec)
	if s.rules.AutoReset && s.deps.Timing.AutoReset > 0 {
		s.timer.After(s.deps.Timing.AutoReset, s.deps.Timing.SafetyBuffer, s.resetLocked)
	}
}

// standings orders players by score, earliest joiner first on ties.
func (s *Session) standings() []Standing {
	ps := make([]*Player, len(s.players))
	copy(ps, s.players)
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Score != ps[j].Score {
			return ps[i].Score > ps[j].Score
		}
		return ps[i].joinSeq < ps[j].joinSeq
	})
	out := make([]Standing, len(ps))
	for i, p := range ps {
		out[i] = Standing{ID: p.ID, Name: p.Name, Score: p.Score}
	}
	return out
}
