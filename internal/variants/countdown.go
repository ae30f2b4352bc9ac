package variants

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"puzzle-party/internal/game"
	"puzzle-party/internal/solver"
)

const (
	countdownOperands = 6
	maxLarge          = 4
	defaultLarge      = 2
)

var (
	largePool = []int{25, 50, 75, 100}
	smallPool = []int{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10}
)

// Countdown is the numbers round: reach a three digit target from six operands.
type Countdown struct {
	d Deps
}

func NewCountdown(d Deps) *Countdown { return &Countdown{d: d.withDefaults()} }

func (c *Countdown) Name() string { return KindCountdown }

func (c *Countdown) Rules() game.Rules {
	return game.Rules{
		PickMode:    game.PickDesignated,
		DefaultPick: strconv.Itoa(defaultLarge),
		Disconnect:  game.DisconnectImmediate,
		RecapDelay:  5200 * time.Millisecond,
		Rounds:      game.Range{Min: 3, Max: 10, Default: 5},
		Seconds:     game.Range{Min: 20, Max: 60, Default: 30},
		MaxPlayers:  8,
	}
}

func (c *Countdown) BeginGame(context.Context) error { return nil }

func (c *Countdown) PickOptions() []game.PickOption {
	out := make([]game.PickOption, 0, maxLarge+1)
	for n := 0; n <= maxLarge; n++ {
		out = append(out, game.PickOption{ID: strconv.Itoa(n), Label: strconv.Itoa(n) + " large"})
	}
	return out
}

// ParsePick accepts any integer and clamps it to 0..4 large numbers.
func (c *Countdown) ParsePick(raw string, _ []game.PickOption) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return "", game.ErrInvalidPick
	}
	return strconv.Itoa(max(0, min(maxLarge, n))), nil
}

func (c *Countdown) GenerateRoundContent(_ context.Context, _ int, pick string) (*game.Round, error) {
	large, err := strconv.Atoi(pick)
	if err != nil {
		large = defaultLarge
	}
	large = max(0, min(maxLarge, large))
	ops := append(draw(largePool, large, c.d.IntN), draw(smallPool, countdownOperands-large, c.d.IntN)...)
	target := 100 + c.d.IntN(900)
	best := solver.Closest(ops, target)
	return &game.Round{Operands: ops, Target: target, Canonical: best}, nil
}

func (c *Countdown) ValidateSubmission(r *game.Round, raw string) (game.Answer, error) {
	v, err := solver.Evaluate(raw, r.Operands, solver.Rules{MaxOperands: countdownOperands})
	if err != nil {
		return game.Answer{}, invalid("%s", describe(err))
	}
	diff := abs(v - r.Target)
	return game.Answer{Value: v, Diff: diff, Exact: diff == 0}, nil
}

func (c *Countdown) ScoreSubmission(_ *game.Round, sub game.Submission, _ game.ScoreContext) int {
	return c.d.Scoring.Tiers.Points(sub.Diff)
}

// describe turns solver errors into player facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, solver.ErrInvalidCharacter):
		return "only numbers, + - * / and parentheses are allowed"
	case errors.Is(err, solver.ErrNoNumbers):
		return "use at least one number"
	case errors.Is(err, solver.ErrTooManyNumbers):
		return "too many numbers"
	case errors.Is(err, solver.ErrOperandNotAvailable):
		return "uses a number you were not dealt"
	case errors.Is(err, solver.ErrMustUseAll):
		return "use every number exactly once"
	case errors.Is(err, solver.ErrNotPositiveInteger):
		return "every step must be a positive whole number"
	case errors.Is(err, solver.ErrTooLong):
		return "expression too long"
	default:
		return "could not read expression"
	}
}
