package game

import "time"

const ProtocolVersion = "1.0"

type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Submitted bool   `json:"submitted"`
	Connected bool   `json:"connected"`

	token   string
	joinSeq uint64
}

// NewPlayer builds a connected player. token authorizes a later Reconnect.
func NewPlayer(id, name, token string) *Player {
	return &Player{ID: id, Name: name, Connected: true, token: token}
}

// Token returns the reconnect token issued at join.
func (p *Player) Token() string { return p.token }

type Settings struct {
	Rounds       int `json:"rounds"`
	RoundSeconds int `json:"round_seconds"`
	MaxPlayers   int `json:"max_players"`
}

// Range bounds an owner supplied setting. Zero selects Default.
type Range struct {
	Min     int
	Max     int
	Default int
}

func (r Range) Clamp(v int) int {
	if v == 0 {
		return r.Default
	}
	if v < r.Min {
		return r.Min
	}
	if r.Max > 0 && v > r.Max {
		return r.Max
	}
	return v
}

type PickMode string

const (
	PickNone       PickMode = "none"
	PickDesignated PickMode = "designated"
	PickVote       PickMode = "vote"
)

type DisconnectPolicy string

const (
	DisconnectImmediate DisconnectPolicy = "immediate"
	DisconnectGrace     DisconnectPolicy = "grace"
)

// Rules is the static per-variant configuration the session enforces.
type Rules struct {
	PickMode         PickMode
	DefaultPick      string
	FirstCorrectWins bool
	Disconnect       DisconnectPolicy
	RecapDelay       time.Duration
	FinalRecapDelay  time.Duration
	AutoReset        bool
	Rounds           Range
	Seconds          Range
	MaxPlayers       int
}

// Normalize clamps requested settings into the variant's bounds.
func (r Rules) Normalize(s Settings, serverMax int) Settings {
	out := Settings{
		Rounds:       r.Rounds.Clamp(s.Rounds),
		RoundSeconds: r.Seconds.Clamp(s.RoundSeconds),
		MaxPlayers:   r.MaxPlayers,
	}
	if out.MaxPlayers <= 0 || (serverMax > 0 && serverMax < out.MaxPlayers) {
		out.MaxPlayers = serverMax
	}
	return out
}

type PickOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Round holds one round's content. Content is safe to broadcast; Canonical is
// revealed at resolution; Secret never leaves the server.
type Round struct {
	Number    int
	Operands  []int
	Target    int
	Content   any
	Canonical any
	Secret    any
	Duration  time.Duration
	StartedAt time.Time
}

// Answer is a validated submission before scoring.
type Answer struct {
	Value  int
	Diff   int
	Exact  bool
	Detail any
}

type Submission struct {
	PlayerID string    `json:"player_id"`
	Raw      string    `json:"raw"`
	Value    int       `json:"value"`
	Diff     int       `json:"diff"`
	Exact    bool      `json:"exact"`
	Detail   any       `json:"detail,omitempty"`
	Points   int       `json:"points"`
	At       time.Time `json:"-"`
	Seq      int       `json:"-"`
}

type ScoreContext struct {
	RoundStart time.Time
	Duration   time.Duration
	Earliest   time.Time
	Latest     time.Time
}

// Result is one player's line in a round recap.
type Result struct {
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	Submitted bool   `json:"submitted"`
	Raw       string `json:"raw,omitempty"`
	Value     int    `json:"value,omitempty"`
	Diff      int    `json:"diff,omitempty"`
	Exact     bool   `json:"exact,omitempty"`
	Detail    any    `json:"detail,omitempty"`
	Points    int    `json:"points"`
	Total     int    `json:"total"`
	Seq       int    `json:"-"`
}

type Standing struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type RoundView struct {
	Number   int   `json:"number"`
	Operands []int `json:"operands,omitempty"`
	Target   int   `json:"target,omitempty"`
	Content  any   `json:"content,omitempty"`
	Seconds  int   `json:"seconds"`
}

type Snapshot struct {
	Version     string       `json:"version"`
	Code        string       `json:"code"`
	Variant     string       `json:"variant"`
	Owner       string       `json:"owner"`
	Phase       Phase        `json:"phase"`
	Round       int          `json:"round"`
	TotalRounds int          `json:"total_rounds"`
	Settings    Settings     `json:"settings"`
	Players     []Player     `json:"players"`
	PickerID    string       `json:"picker_id,omitempty"`
	PickOptions []PickOption `json:"pick_options,omitempty"`
	TimeLeft    int          `json:"time_left"`
	Current     *RoundView   `json:"current,omitempty"`
}

// GameRecord is handed to the ResultSink when a game ends.
type GameRecord struct {
	RoomCode   string     `json:"room_code"`
	Variant    string     `json:"variant"`
	Rounds     int        `json:"rounds"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Reason     string     `json:"reason"`
	Standings  []Standing `json:"standings"`
	Winner     string     `json:"winner,omitempty"`
}
