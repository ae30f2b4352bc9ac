package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"puzzle-party/internal/clock"
	"puzzle-party/internal/config"
)

// Timing carries the server-wide durations a session schedules with.
type Timing struct {
	Tick            time.Duration
	SafetyBuffer    time.Duration
	PickTimeout     time.Duration
	VoteTimeout     time.Duration
	DisconnectGrace time.Duration
	AutoReset       time.Duration
	ContentTimeout  time.Duration
	MinPlayers      int
	MaxPlayers      int
}

func TimingFromConfig(cfg config.GameConfig) Timing {
	return Timing{
		Tick:            cfg.Tick(),
		SafetyBuffer:    cfg.SafetyBuffer(),
		PickTimeout:     cfg.PickTimeout(),
		VoteTimeout:     cfg.VoteTimeout(),
		DisconnectGrace: cfg.DisconnectGrace(),
		AutoReset:       cfg.AutoReset(),
		ContentTimeout:  cfg.ContentTimeout(),
		MinPlayers:      cfg.MinPlayers,
		MaxPlayers:      cfg.MaxPlayers,
	}
}

func DefaultTiming() Timing {
	return Timing{
		Tick:            time.Second,
		SafetyBuffer:    2 * time.Second,
		PickTimeout:     10 * time.Second,
		VoteTimeout:     10 * time.Second,
		DisconnectGrace: 15 * time.Second,
		AutoReset:       15 * time.Second,
		ContentTimeout:  3 * time.Second,
		MinPlayers:      2,
		MaxPlayers:      12,
	}
}

type Deps struct {
	Clock  clock.Clock
	Out    Broadcaster
	Sink   ResultSink
	Log    zerolog.Logger
	Timing Timing
	// IntN returns a value in [0, n). Defaults to math/rand/v2.
	IntN func(n int) int
	// OnEmpty runs with the session lock held once the last player is gone.
	OnEmpty func(code string)
	// OnPlayerGone runs with the session lock held for every removed player.
	OnPlayerGone func(playerID string)
}

type graceEntry struct {
	timer clock.Timer
	seq   uint64
}

// Session is one room's game. All exported methods are safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	code     string
	variant  Variant
	rules    Rules
	settings Settings
	deps     Deps
	log      zerolog.Logger
	timer    *Scheduler

	players     []*Player
	owner       string
	phase       Phase
	round       int
	current     *Round
	submissions map[string]*Submission
	subSeq      int
	pickerIndex int
	pickOptions []PickOption
	votes       map[string]string
	grace       map[string]graceEntry
	graceSeq    uint64
	joinSeq     uint64
	startedAt   time.Time
	closed      bool
}

func NewSession(code string, variant Variant, settings Settings, owner *Player, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Out == nil {
		deps.Out = nopBroadcaster{}
	}
	if deps.Sink == nil {
		deps.Sink = nopSink{}
	}
	if deps.IntN == nil {
		deps.IntN = rand.IntN
	}
	if deps.Timing == (Timing{}) {
		deps.Timing = DefaultTiming()
	}
	rules := variant.Rules()
	s := &Session{
		code:        code,
		variant:     variant,
		rules:       rules,
		settings:    rules.Normalize(settings, deps.Timing.MaxPlayers),
		deps:        deps,
		log:         deps.Log.With().Str("room", code).Str("variant", variant.Name()).Logger(),
		phase:       PhaseLobby,
		submissions: map[string]*Submission{},
		grace:       map[string]graceEntry{},
	}
	s.timer = NewScheduler(deps.Clock, &s.mu, s.log)
	s.timer.OnPanic(s.abortStalled)
	if owner != nil {
		s.addPlayer(owner)
		s.owner = owner.ID
	}
	return s
}

func (s *Session) Code() string    { return s.code }
func (s *Session) Variant() string { return s.variant.Name() }

func (s *Session) Join(p *Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrRoomNotFound
	}
	if s.phase != PhaseLobby {
		return ErrGameInProgress
	}
	if len(s.players) >= s.settings.MaxPlayers {
		return ErrRoomFull
	}
	if s.indexOf(p.ID) >= 0 {
		return nil
	}
	s.addPlayer(p)
	s.deps.Out.ToRoom(s.code, EventPlayerJoined, s.playerEvent(*p, ""))
	s.deps.Out.ToPlayer(s.code, p.ID, EventRoomSnapshot, s.snapshotLocked())
	s.log.Info().Str("player_id", p.ID).Int("players", len(s.players)).Msg("player_joined")
	return nil
}

func (s *Session) Leave(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(playerID)
	if idx < 0 {
		return ErrNotInRoom
	}
	s.removePlayer(idx, "left")
	return nil
}

// Disconnect applies the variant's disconnect policy to a dropped connection.
func (s *Session) Disconnect(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(playerID)
	if idx < 0 {
		return
	}
	if s.rules.Disconnect != DisconnectGrace || s.deps.Timing.DisconnectGrace <= 0 {
		s.removePlayer(idx, "disconnected")
		return
	}
	p := s.players[idx]
	p.Connected = false
	s.armGrace(p.ID)
	s.deps.Out.ToRoom(s.code, EventPlayerDisconnected, s.playerEvent(*p, "disconnected"))
	s.log.Info().Str("player_id", p.ID).Dur("grace", s.deps.Timing.DisconnectGrace).Msg("player_disconnected")
}

// Reconnect restores a player within the grace window.
func (s *Session) Reconnect(playerID, token string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(playerID)
	if idx < 0 {
		return Snapshot{}, ErrNotInRoom
	}
	p := s.players[idx]
	if p.token == "" || p.token != token {
		return Snapshot{}, ErrInvalidToken
	}
	s.stopGrace(p.ID)
	p.Connected = true
	s.deps.Out.ToRoom(s.code, EventPlayerReconnected, s.playerEvent(*p, ""))
	snap := s.snapshotLocked()
	s.deps.Out.ToPlayer(s.code, p.ID, EventRoomSnapshot, snap)
	return snap, nil
}

func (s *Session) Start(by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrRoomNotFound
	}
	if by != s.owner {
		return ErrNotOwner
	}
	if s.phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(s.players) < s.deps.Timing.MinPlayers {
		return ErrNotEnoughPlayers
	}
	ctx, cancel := s.contentContext()
	defer cancel()
	if err := s.variant.BeginGame(ctx); err != nil {
		s.log.Error().Err(err).Msg("begin_game_failed")
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	s.clearGame()
	s.startedAt = s.deps.Clock.Now()
	s.deps.Out.ToRoom(s.code, EventGameStarted, GameStartedEvent{
		Settings:    s.settings,
		TotalRounds: s.settings.Rounds,
		Players:     s.playerList(),
	})
	s.log.Info().Int("players", len(s.players)).Int("rounds", s.settings.Rounds).Msg("game_started")
	s.nextRound()
	if s.phase == PhaseLobby {
		s.resetLocked()
		return fmt.Errorf("%w: round content unavailable", ErrInternal)
	}
	return nil
}

// Reset returns the room to the lobby with scores cleared. In the lobby it
// only re-broadcasts the snapshot.
func (s *Session) Reset(by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrRoomNotFound
	}
	if by != s.owner {
		return ErrNotOwner
	}
	s.resetLocked()
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// PendingTimer reports whether a phase timer is armed.
func (s *Session) PendingTimer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.Pending()
}

// SweepOverdue forces a phase whose timer missed its safety deadline.
func (s *Session) SweepOverdue(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.timer.Overdue(now) {
		return false
	}
	metricOverdueForcedTotal.Add(1)
	s.log.Warn().Str("phase", string(s.phase)).Msg("phase_deadline_overdue")
	defer s.timer.recoverPhase("sweep")
	s.timer.ForceExpire()
	return true
}

// Shutdown stops every timer. The session accepts no further actions.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
}

func (s *Session) teardown() {
	s.closed = true
	s.timer.Cancel()
	for id := range s.grace {
		s.stopGrace(id)
	}
}

func (s *Session) addPlayer(p *Player) {
	s.joinSeq++
	p.joinSeq = s.joinSeq
	p.Connected = true
	s.players = append(s.players, p)
}

func (s *Session) indexOf(id string) int {
	for i, p := range s.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) removePlayer(idx int, reason string) {
	p := s.players[idx]
	s.stopGrace(p.ID)
	delete(s.submissions, p.ID)
	delete(s.votes, p.ID)

	wasPicker := s.phase == PhasePicking && s.rules.PickMode == PickDesignated && s.pickerID() == p.ID
	if n := len(s.players); n > 0 {
		s.pickerIndex %= n
		if idx < s.pickerIndex {
			s.pickerIndex--
		}
	}
	s.players = append(s.players[:idx], s.players[idx+1:]...)
	if s.deps.OnPlayerGone != nil {
		s.deps.OnPlayerGone(p.ID)
	}
	s.log.Info().Str("player_id", p.ID).Str("reason", reason).Int("players", len(s.players)).Msg("player_removed")

	if len(s.players) == 0 {
		s.teardown()
		if s.deps.OnEmpty != nil {
			s.deps.OnEmpty(s.code)
		}
		return
	}
	if s.owner == p.ID {
		s.owner = s.players[0].ID
		s.log.Info().Str("owner", s.owner).Msg("owner_transferred")
	}
	s.deps.Out.ToRoom(s.code, EventPlayerLeft, s.playerEvent(*p, reason))

	if s.phase.InGame() && len(s.players) < s.deps.Timing.MinPlayers {
		s.endGame("not_enough_players")
		return
	}
	switch s.phase {
	case PhasePicking:
		if wasPicker {
			s.startPickPhase()
		} else if s.rules.PickMode == PickVote && len(s.votes) >= len(s.players) {
			s.resolvePick(false)
		}
	case PhaseActiveRound:
		s.checkAllSubmitted()
	}
}

func (s *Session) armGrace(id string) {
	s.stopGrace(id)
	s.graceSeq++
	seq := s.graceSeq
	t := s.deps.Clock.AfterFunc(s.deps.Timing.DisconnectGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		g, ok := s.grace[id]
		if !ok || g.seq != seq {
			metricStaleTimerNoopTotal.Add(1)
			return
		}
		delete(s.grace, id)
		idx := s.indexOf(id)
		if idx < 0 {
			return
		}
		defer recoverCallback(s.log, "disconnect_grace")
		metricGraceExpiredTotal.Add(1)
		s.removePlayer(idx, "disconnect_timeout")
	})
	s.grace[id] = graceEntry{timer: t, seq: seq}
}

func (s *Session) stopGrace(id string) {
	if g, ok := s.grace[id]; ok {
		g.timer.Stop()
		delete(s.grace, id)
	}
}

// abortStalled ends a game left mid-phase with no timer by a panicking handler.
func (s *Session) abortStalled() {
	if !s.phase.InGame() || s.timer.Pending() {
		return
	}
	s.log.Error().Str("phase", string(s.phase)).Int("round", s.round).Msg("phase_stalled")
	s.endGame(ErrInternal.Error())
}

func (s *Session) setPhase(next Phase) bool {
	if !s.phase.CanTransitionTo(next) {
		metricInvalidTransitionTotal.Add(1)
		s.log.Error().Str("from", string(s.phase)).Str("to", string(next)).Msg("invalid_phase_transition")
		return false
	}
	s.phase = next
	return true
}

func (s *Session) contentContext() (context.Context, context.CancelFunc) {
	if s.deps.Timing.ContentTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.deps.Timing.ContentTimeout)
}

func (s *Session) clearGame() {
	s.round = 0
	s.current = nil
	s.submissions = map[string]*Submission{}
	s.subSeq = 0
	s.votes = nil
	s.pickOptions = nil
	s.pickerIndex = 0
	for _, p := range s.players {
		p.Score = 0
		p.Submitted = false
	}
}

func (s *Session) resetLocked() {
	s.timer.Cancel()
	if s.phase != PhaseLobby && !s.setPhase(PhaseLobby) {
		s.phase = PhaseLobby
	}
	s.clearGame()
	s.startedAt = time.Time{}
	s.deps.Out.ToRoom(s.code, EventRoomReset, s.snapshotLocked())
	s.log.Info().Msg("room_reset")
}

func (s *Session) pickerID() string {
	if s.rules.PickMode != PickDesignated || len(s.players) == 0 {
		return ""
	}
	return s.players[s.pickerIndex%len(s.players)].ID
}

func (s *Session) playerList() []Player {
	out := make([]Player, len(s.players))
	for i, p := range s.players {
		out[i] = *p
	}
	return out
}

func (s *Session) playerEvent(p Player, reason string) PlayerEvent {
	return PlayerEvent{Player: p, Owner: s.owner, Reason: reason, Players: s.playerList()}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:     ProtocolVersion,
		Code:        s.code,
		Variant:     s.variant.Name(),
		Owner:       s.owner,
		Phase:       s.phase,
		Round:       s.round,
		TotalRounds: s.settings.Rounds,
		Settings:    s.settings,
		Players:     s.playerList(),
		TimeLeft:    s.timer.Remaining(),
	}
	if s.phase == PhasePicking {
		snap.PickerID = s.pickerID()
		snap.PickOptions = s.pickOptions
	}
	if s.current != nil && (s.phase == PhaseActiveRound || s.phase == PhaseRoundResolved) {
		v := s.roundView(s.current)
		snap.Current = &v
	}
	return snap
}

func (s *Session) roundView(r *Round) RoundView {
	return RoundView{
		Number:   r.Number,
		Operands: r.Operands,
		Target:   r.Target,
		Content:  r.Content,
		Seconds:  int(r.Duration / time.Second),
	}
}
