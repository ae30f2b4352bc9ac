package lobby

import (
	"context"
	"expvar"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"puzzle-party/internal/clock"
	"puzzle-party/internal/game"
)

const (
	CodeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength      = 6
	maxCodeAttempts = 64
	defaultName     = "Player"
)

var (
	metricRoomsActive       = expvar.NewInt("rooms_active")
	metricRoomsCreatedTotal = expvar.NewInt("rooms_created_total")
	metricHandlerPanics     = expvar.NewInt("handler_panics_total")
)

// Factory builds a fresh variant for a new room.
type Factory func(kind string) (game.Variant, error)

type Options struct {
	Clock        clock.Clock
	Out          game.Broadcaster
	Sink         game.ResultSink
	Timing       game.Timing
	NameMaxRunes int
	Log          zerolog.Logger
	// IntN drives room codes and vote tie-breaks. Defaults to math/rand/v2.
	IntN func(n int) int
	// OnClose runs after a room is removed from the table.
	OnClose func(code string)
}

// Identity is what a player needs to act and to reconnect.
type Identity struct {
	Code     string        `json:"code"`
	PlayerID string        `json:"player_id"`
	Token    string        `json:"token"`
	Snapshot game.Snapshot `json:"snapshot"`
}

type RoomSummary struct {
	Code       string     `json:"code"`
	Variant    string     `json:"variant"`
	Phase      game.Phase `json:"phase"`
	Owner      string     `json:"owner"`
	Players    int        `json:"players"`
	MaxPlayers int        `json:"max_players"`
	Round      int        `json:"round"`
}

// Registry maps room codes to sessions and players to rooms. It never holds
// its own lock while calling into a session.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*game.Session
	players map[string]string

	factory Factory
	opts    Options
	log     zerolog.Logger
}

func NewRegistry(factory Factory, opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.IntN == nil {
		opts.IntN = rand.IntN
	}
	if opts.NameMaxRunes <= 0 {
		opts.NameMaxRunes = 20
	}
	if opts.Timing == (game.Timing{}) {
		opts.Timing = game.DefaultTiming()
	}
	return &Registry{
		rooms:   map[string]*game.Session{},
		players: map[string]string{},
		factory: factory,
		opts:    opts,
		log:     opts.Log,
	}
}

// Create opens a room owned by a new player.
func (r *Registry) Create(kind, name string, settings game.Settings) (id Identity, err error) {
	defer r.guard("create", "", &err)
	variant, err := r.factory(kind)
	if err != nil {
		return Identity{}, err
	}
	owner := r.newPlayer(name)

	r.mu.Lock()
	code, err := r.newCodeLocked()
	if err != nil {
		r.mu.Unlock()
		return Identity{}, err
	}
	sess := game.NewSession(code, variant, settings, owner, r.sessionDeps())
	r.rooms[code] = sess
	r.players[owner.ID] = code
	active := len(r.rooms)
	r.mu.Unlock()

	metricRoomsCreatedTotal.Add(1)
	metricRoomsActive.Set(int64(active))
	r.log.Info().Str("room", code).Str("variant", kind).Str("owner", owner.ID).Msg("room_created")
	return Identity{Code: code, PlayerID: owner.ID, Token: owner.Token(), Snapshot: sess.Snapshot()}, nil
}

func (r *Registry) Join(code, name string) (id Identity, err error) {
	defer r.guard("join", "", &err)
	sess, ok := r.Room(code)
	if !ok {
		return Identity{}, game.ErrRoomNotFound
	}
	p := r.newPlayer(name)
	if err := sess.Join(p); err != nil {
		return Identity{}, err
	}
	r.mu.Lock()
	r.players[p.ID] = sess.Code()
	r.mu.Unlock()
	return Identity{Code: sess.Code(), PlayerID: p.ID, Token: p.Token(), Snapshot: sess.Snapshot()}, nil
}

// Reconnect resumes a seat held open by the grace window.
func (r *Registry) Reconnect(playerID, token string) (id Identity, err error) {
	defer r.guard("reconnect", playerID, &err)
	sess, err := r.sessionOf(playerID)
	if err != nil {
		return Identity{}, err
	}
	snap, err := sess.Reconnect(playerID, token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Code: sess.Code(), PlayerID: playerID, Token: token, Snapshot: snap}, nil
}

func (r *Registry) Leave(playerID string) (err error) {
	defer r.guard("leave", playerID, &err)
	sess, err := r.sessionOf(playerID)
	if err != nil {
		return err
	}
	return sess.Leave(playerID)
}

func (r *Registry) Disconnect(playerID string) {
	var err error
	defer r.guard("disconnect", playerID, &err)
	sess, err := r.sessionOf(playerID)
	if err != nil {
		return
	}
	sess.Disconnect(playerID)
}

func (r *Registry) Start(playerID string) (err error) {
	defer r.guard("start", playerID, &err)
	sess, err := r.sessionOf(playerID)
	if err != nil {
		return err
	}
	return sess.Start(playerID)
}

func (r *Registry) Pick(playerID, choice string) (err error) {
	defer r.guard("pick", playerID, &err)
	sess, err := r.sessionOf(playerID)
	if err != nil {
		return err
	}
	return sess.Pick(playerID, choice)
}

func (r *Registry) Submit(playerID, raw string) (sub game.Submission, err error) {
	defer r.guard("submit", playerID, &err)
	sess, err := r.sessionOf(playerID)
	if err != nil {
		return game.Submission{}, err
	}
	return sess.Submit(playerID, raw)
}

func (r *Registry) Reset(playerID string) (err error) {
	defer r.guard("reset", playerID, &err)
	sess, err := r.sessionOf(playerID)
	if err != nil {
		return err
	}
	return sess.Reset(playerID)
}

func (r *Registry) Room(code string) (*game.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.rooms[strings.ToUpper(strings.TrimSpace(code))]
	return sess, ok
}

func (r *Registry) Snapshot(code string) (game.Snapshot, error) {
	sess, ok := r.Room(code)
	if !ok {
		return game.Snapshot{}, game.ErrRoomNotFound
	}
	return sess.Snapshot(), nil
}

// RoomOf returns the room code a player is seated in.
func (r *Registry) RoomOf(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.players[playerID]
	return code, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// OpenRooms lists lobby rooms with a free seat. An empty kind lists every variant.
func (r *Registry) OpenRooms(kind string) []RoomSummary {
	return r.listRooms(kind, func(snap game.Snapshot) bool {
		return snap.Phase == game.PhaseLobby && len(snap.Players) < snap.Settings.MaxPlayers
	})
}

// AllRooms lists every live room regardless of phase.
func (r *Registry) AllRooms() []RoomSummary {
	return r.listRooms("", func(game.Snapshot) bool { return true })
}

func (r *Registry) listRooms(kind string, keep func(game.Snapshot) bool) []RoomSummary {
	out := []RoomSummary{}
	for _, sess := range r.sessions() {
		if kind != "" && sess.Variant() != kind {
			continue
		}
		snap := sess.Snapshot()
		if !keep(snap) {
			continue
		}
		owner := ""
		for _, p := range snap.Players {
			if p.ID == snap.Owner {
				owner = p.Name
			}
		}
		out = append(out, RoomSummary{
			Code:       snap.Code,
			Variant:    snap.Variant,
			Phase:      snap.Phase,
			Owner:      owner,
			Players:    len(snap.Players),
			MaxPlayers: snap.Settings.MaxPlayers,
			Round:      snap.Round,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// SweepOverdue force-expires phases whose timers missed their safety deadline.
func (r *Registry) SweepOverdue(now time.Time) int {
	n := 0
	for _, sess := range r.sessions() {
		if sess.SweepOverdue(now) {
			n++
		}
	}
	metricRoomsActive.Set(int64(r.Count()))
	return n
}

func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.SweepOverdue(r.opts.Clock.Now()); n > 0 {
					r.log.Warn().Int("rooms", n).Msg("overdue_phases_swept")
				}
			}
		}
	}()
}

// Shutdown stops every room's timers.
func (r *Registry) Shutdown() {
	for _, sess := range r.sessions() {
		sess.Shutdown()
	}
}

func (r *Registry) sessions() []*game.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*game.Session, 0, len(r.rooms))
	for _, s := range r.rooms {
		out = append(out, s)
	}
	return out
}

func (r *Registry) sessionOf(playerID string) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.players[playerID]
	if !ok {
		return nil, game.ErrNotInRoom
	}
	sess, ok := r.rooms[code]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	return sess, nil
}

func (r *Registry) sessionDeps() game.Deps {
	return game.Deps{
		Clock:        r.opts.Clock,
		Out:          r.opts.Out,
		Sink:         r.opts.Sink,
		Log:          r.log,
		Timing:       r.opts.Timing,
		IntN:         r.opts.IntN,
		OnEmpty:      r.removeRoom,
		OnPlayerGone: r.forgetPlayer,
	}
}

func (r *Registry) removeRoom(code string) {
	r.mu.Lock()
	delete(r.rooms, code)
	active := len(r.rooms)
	r.mu.Unlock()
	metricRoomsActive.Set(int64(active))
	r.log.Info().Str("room", code).Msg("room_closed")
	if r.opts.OnClose != nil {
		r.opts.OnClose(code)
	}
}

func (r *Registry) forgetPlayer(playerID string) {
	r.mu.Lock()
	delete(r.players, playerID)
	r.mu.Unlock()
}

func (r *Registry) newCodeLocked() (string, error) {
	buf := make([]byte, CodeLength)
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		for i := range buf {
			buf[i] = CodeAlphabet[r.opts.IntN(len(CodeAlphabet))]
		}
		code := string(buf)
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: room code space exhausted", game.ErrInternal)
}

func (r *Registry) newPlayer(name string) *game.Player {
	return game.NewPlayer(ulid.Make().String(), NormalizeName(name, r.opts.NameMaxRunes), uuid.NewString())
}

func (r *Registry) guard(op, playerID string, err *error) {
	if rec := recover(); rec != nil {
		metricHandlerPanics.Add(1)
		r.log.Error().
			Str("op", op).
			Str("player_id", playerID).
			Interface("panic", rec).
			Bytes("stack", debug.Stack()).
			Msg("handler_panic")
		*err = game.ErrInternal
	}
}

// NormalizeName composes, strips control characters, trims and truncates to maxRunes.
func NormalizeName(raw string, maxRunes int) string {
	s := norm.NFC.String(raw)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxRunes]))
	}
	if s == "" {
		return defaultName
	}
	return s
}
