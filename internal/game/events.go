package game

const (
	EventRoomSnapshot       = "room_snapshot"
	EventPlayerJoined       = "player_joined"
	EventPlayerLeft         = "player_left"
	EventPlayerDisconnected = "player_disconnected"
	EventPlayerReconnected  = "player_reconnected"
	EventGameStarted        = "game_started"
	EventPickStarted        = "pick_started"
	EventVoteCast           = "vote_cast"
	EventPickResolved       = "pick_resolved"
	EventRoundStarted       = "round_started"
	EventTick               = "tick"
	EventPlayerSubmitted    = "player_submitted"
	EventRoundResolved      = "round_resolved"
	EventGameOver           = "game_over"
	EventRoomReset          = "room_reset"
)

type PlayerEvent struct {
	Player  Player   `json:"player"`
	Owner   string   `json:"owner"`
	Reason  string   `json:"reason,omitempty"`
	Players []Player `json:"players"`
}

type GameStartedEvent struct {
	Settings    Settings `json:"settings"`
	TotalRounds int      `json:"total_rounds"`
	Players     []Player `json:"players"`
}

type PickStartedEvent struct {
	Round    int          `json:"round"`
	Mode     PickMode     `json:"mode"`
	PickerID string       `json:"picker_id,omitempty"`
	Options  []PickOption `json:"options"`
	Seconds  int          `json:"seconds"`
}

type VoteCastEvent struct {
	PlayerID string `json:"player_id"`
	Votes    int    `json:"votes"`
	Voters   int    `json:"voters"`
}

type PickResolvedEvent struct {
	Round    int            `json:"round"`
	Choice   string         `json:"choice"`
	Label    string         `json:"label"`
	Tally    map[string]int `json:"tally,omitempty"`
	TimedOut bool           `json:"timed_out"`
}

type RoundStartedEvent struct {
	Round       RoundView `json:"round"`
	TotalRounds int       `json:"total_rounds"`
}

type TickEvent struct {
	Phase    Phase `json:"phase"`
	TimeLeft int   `json:"time_left"`
}

type SubmittedEvent struct {
	PlayerID  string `json:"player_id"`
	Submitted int    `json:"submitted"`
	Players   int    `json:"players"`
}

type RoundResolvedEvent struct {
	Round     int        `json:"round"`
	Reason    string     `json:"reason"`
	Results   []Result   `json:"results"`
	Canonical any        `json:"canonical,omitempty"`
	Extra     any        `json:"extra,omitempty"`
	Standings []Standing `json:"standings"`
	Final     bool       `json:"final"`
}

type GameOverEvent struct {
	Reason    string     `json:"reason"`
	Standings []Standing `json:"standings"`
	Winner    string     `json:"winner,omitempty"`
}
