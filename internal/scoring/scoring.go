package scoring

import (
	"math"
	"time"

	"puzzle-party/internal/config"
)

// DeviationTiers awards points by distance from the target.
type DeviationTiers struct {
	Exact    int
	Near     int
	Far      int
	NearBand int
	FarBand  int
}

func (t DeviationTiers) Points(diff int) int {
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return t.Exact
	case diff <= t.NearBand:
		return t.Near
	case diff <= t.FarBand:
		return t.Far
	default:
		return 0
	}
}

// TimeDecay awards a base plus a bonus that shrinks as the clock runs down.
type TimeDecay struct {
	Base       int
	BonusScale int
	WinBonus   int
}

func (d TimeDecay) Points(remaining, total time.Duration, win bool) int {
	pts := d.Base + roundHalfUp(float64(d.BonusScale)*fraction(remaining, total))
	if win {
		pts += d.WinBonus
	}
	return pts
}

// TileAccuracy scores tile-comparison guesses.
type TileAccuracy struct {
	Base       int
	PerCorrect int
	PerPresent int
	SpeedBonus int
	WinBonus   int
}

func (a TileAccuracy) Points(correct, present int, speedRatio float64, won bool) int {
	pts := a.Base + correct*a.PerCorrect + present*a.PerPresent + roundHalfUp(float64(a.SpeedBonus)*clamp01(speedRatio))
	if won {
		pts += a.WinBonus
	}
	return pts
}

// SpeedRatio is 1 for the earliest submission of a round and 0 for the latest.
func SpeedRatio(at, earliest, latest time.Time) float64 {
	span := latest.Sub(earliest)
	if span <= 0 {
		return 1
	}
	return clamp01(1 - float64(at.Sub(earliest))/float64(span))
}

type Table struct {
	Tiers DeviationTiers
	Decay TimeDecay
	Tiles TileAccuracy
}

func FromConfig(cfg config.ScoringConfig) Table {
	return Table{
		Tiers: DeviationTiers{
			Exact:    cfg.Exact,
			Near:     cfg.Near,
			Far:      cfg.Far,
			NearBand: cfg.NearBand,
			FarBand:  cfg.FarBand,
		},
		Decay: TimeDecay{
			Base:       cfg.DecayBase,
			BonusScale: cfg.DecayScale,
			WinBonus:   cfg.DecayWinBonus,
		},
		Tiles: TileAccuracy{
			Base:       cfg.TileBase,
			PerCorrect: cfg.TileCorrect,
			PerPresent: cfg.TilePresent,
			SpeedBonus: cfg.TileSpeed,
			WinBonus:   cfg.TileWinBonus,
		},
	}
}

// Default mirrors the env defaults in config.ScoringConfig.
func Default() Table {
	return Table{
		Tiers: DeviationTiers{Exact: 10, Near: 7, Far: 5, NearBand: 5, FarBand: 10},
		Decay: TimeDecay{Base: 100, BonusScale: 50},
		Tiles: TileAccuracy{Base: 50, PerCorrect: 30, PerPresent: 10, SpeedBonus: 20, WinBonus: 500},
	}
}

func fraction(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return clamp01(float64(part) / float64(total))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}
