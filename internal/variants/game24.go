package variants

import (
	"context"
	"errors"
	"time"

	"puzzle-party/internal/game"
	"puzzle-party/internal/solver"
)

const (
	game24Target   = 24
	game24Digits   = 4
	game24Attempts = 1000
)

var errNoSolvablePuzzle = errors.New("no solvable puzzle generated")

// Game24 deals four digits; the first player to make 24 with all of them wins the round.
type Game24 struct {
	d Deps
}

func NewGame24(d Deps) *Game24 { return &Game24{d: d.withDefaults()} }

func (g *Game24) Name() string { return KindGame24 }

func (g *Game24) Rules() game.Rules {
	return game.Rules{
		PickMode:         game.PickNone,
		FirstCorrectWins: true,
		Disconnect:       game.DisconnectImmediate,
		RecapDelay:       4200 * time.Millisecond,
		Rounds:           game.Range{Min: 3, Max: 10, Default: 5},
		Seconds:          game.Range{Min: 30, Max: 90, Default: 60},
		MaxPlayers:       8,
	}
}

func (g *Game24) BeginGame(context.Context) error { return nil }
func (g *Game24) PickOptions() []game.PickOption  { return nil }
func (g *Game24) ParsePick(string, []game.PickOption) (string, error) {
	return "", game.ErrInvalidPick
}

// GenerateRoundContent redraws until the digits have an all-integer solution.
func (g *Game24) GenerateRoundContent(ctx context.Context, _ int, _ string) (*game.Round, error) {
	for i := 0; i < game24Attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		digits := make([]int, game24Digits)
		for j := range digits {
			digits[j] = 1 + g.d.IntN(9)
		}
		if expr, ok := solver.Exact(digits, game24Target); ok {
			return &game.Round{Operands: digits, Target: game24Target, Canonical: expr}, nil
		}
	}
	return nil, errNoSolvablePuzzle
}

func (g *Game24) ValidateSubmission(r *game.Round, raw string) (game.Answer, error) {
	v, err := solver.Evaluate(raw, r.Operands, solver.Rules{MaxOperands: game24Digits, RequireAll: true})
	if err != nil {
		return game.Answer{}, invalid("%s", describe(err))
	}
	if v != game24Target {
		return game.Answer{}, invalid("that makes %d, not 24", v)
	}
	return game.Answer{Value: v, Exact: true}, nil
}

func (g *Game24) ScoreSubmission(_ *game.Round, sub game.Submission, sc game.ScoreContext) int {
	left := sc.Duration - sub.At.Sub(sc.RoundStart)
	return g.d.Scoring.Decay.Points(left, sc.Duration, false)
}
