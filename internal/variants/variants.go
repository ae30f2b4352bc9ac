// Package variants implements the puzzle types a room can host.
package variants

import (
	"fmt"
	"math/rand/v2"

	"puzzle-party/internal/content"
	"puzzle-party/internal/game"
	"puzzle-party/internal/scoring"
)

const (
	KindCountdown = "countdown"
	KindGame24    = "game24"
	KindTrivia    = "trivia"
	KindWordle    = "wordle"
)

// Kinds lists every variant a room can be created with.
var Kinds = []string{KindCountdown, KindGame24, KindTrivia, KindWordle}

type Deps struct {
	Scoring scoring.Table
	Content content.Sources
	// IntN defaults to math/rand/v2.
	IntN func(n int) int
}

// NewFactory returns a constructor building a fresh variant per room.
func NewFactory(d Deps) func(kind string) (game.Variant, error) {
	d = d.withDefaults()
	return func(kind string) (game.Variant, error) {
		switch kind {
		case KindCountdown:
			return NewCountdown(d), nil
		case KindGame24:
			return NewGame24(d), nil
		case KindTrivia:
			if d.Content.Questions == nil || len(d.Content.Categories) == 0 {
				return nil, fmt.Errorf("%w: trivia content not configured", game.ErrUnknownVariant)
			}
			return NewTrivia(d), nil
		case KindWordle:
			if d.Content.Words == nil {
				return nil, fmt.Errorf("%w: word list not configured", game.ErrUnknownVariant)
			}
			return NewWordle(d), nil
		}
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownVariant, kind)
	}
}

func (d Deps) withDefaults() Deps {
	if d.IntN == nil {
		d.IntN = rand.IntN
	}
	return d
}

// draw removes n random elements from pool.
func draw(pool []int, n int, intn func(int) int) []int {
	rest := append([]int(nil), pool...)
	out := make([]int, 0, n)
	for i := 0; i < n && len(rest) > 0; i++ {
		k := intn(len(rest))
		out = append(out, rest[k])
		rest[k] = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{game.ErrInvalidAnswer}, args...)...)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
