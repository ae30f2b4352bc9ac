package game

import "context"

// Variant supplies the content, validation and scoring of one puzzle type.
// Methods are called with the room lock held and must not call back into the session.
type Variant interface {
	Name() string
	Rules() Rules
	// BeginGame resets per-game state such as a secret word.
	BeginGame(ctx context.Context) error
	PickOptions() []PickOption
	// ParsePick validates a designated pick or a vote.
	ParsePick(raw string, options []PickOption) (string, error)
	GenerateRoundContent(ctx context.Context, number int, pick string) (*Round, error)
	ValidateSubmission(round *Round, raw string) (Answer, error)
	ScoreSubmission(round *Round, sub Submission, sc ScoreContext) int
}

// RoundFinisher lets a variant inspect scored results, attach extra recap data
// and end the game early.
type RoundFinisher interface {
	FinishRound(round *Round, results []Result) (extra any, endGame bool)
}

// Broadcaster fans events out to room members. Implementations must not block.
type Broadcaster interface {
	ToRoom(code, event string, data any)
	ToPlayer(code, playerID, event string, data any)
}

type ResultSink interface {
	GameFinished(rec GameRecord)
}

type nopBroadcaster struct{}

func (nopBroadcaster) ToRoom(string, string, any)           {}
func (nopBroadcaster) ToPlayer(string, string, string, any) {}

type nopSink struct{}

func (nopSink) GameFinished(GameRecord) {}

type fanOut []ResultSink

func (f fanOut) GameFinished(rec GameRecord) {
	for _, s := range f {
		s.GameFinished(rec)
	}
}

// FanOut delivers every record to each non-nil sink in order.
func FanOut(sinks ...ResultSink) ResultSink {
	out := make(fanOut, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
