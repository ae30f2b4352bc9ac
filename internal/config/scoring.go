package config

import "github.com/caarlos0/env/v11"

// ScoringConfig holds the tuning values for every award rule.
type ScoringConfig struct {
	Exact    int `env:"SCORE_EXACT" envDefault:"10"`
	Near     int `env:"SCORE_NEAR" envDefault:"7"`
	Far      int `env:"SCORE_FAR" envDefault:"5"`
	NearBand int `env:"SCORE_NEAR_BAND" envDefault:"5"`
	FarBand  int `env:"SCORE_FAR_BAND" envDefault:"10"`

	DecayBase     int `env:"SCORE_DECAY_BASE" envDefault:"100"`
	DecayScale    int `env:"SCORE_DECAY_SCALE" envDefault:"50"`
	DecayWinBonus int `env:"SCORE_DECAY_WIN_BONUS" envDefault:"0"`

	TileBase     int `env:"SCORE_TILE_BASE" envDefault:"50"`
	TileCorrect  int `env:"SCORE_TILE_CORRECT" envDefault:"30"`
	TilePresent  int `env:"SCORE_TILE_PRESENT" envDefault:"10"`
	TileSpeed    int `env:"SCORE_TILE_SPEED" envDefault:"20"`
	TileWinBonus int `env:"SCORE_TILE_WIN_BONUS" envDefault:"500"`
}

func LoadScoring() (ScoringConfig, error) {
	var cfg ScoringConfig
	err := env.Parse(&cfg)
	return cfg, err
}
