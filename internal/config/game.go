package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type GameConfig struct {
	MaxPlayers        int `env:"MAX_PLAYERS" envDefault:"8"`
	MinPlayers        int `env:"MIN_PLAYERS" envDefault:"2"`
	NameMaxRunes      int `env:"NAME_MAX_RUNES" envDefault:"20"`
	DisconnectGraceMS int `env:"DISCONNECT_GRACE_MS" envDefault:"15000"`
	SafetyBufferMS    int `env:"SAFETY_BUFFER_MS" envDefault:"2000"`
	TickMS            int `env:"TICK_MS" envDefault:"1000"`
	AutoResetMS       int `env:"AUTO_RESET_MS" envDefault:"15000"`
	ContentTimeoutMS  int `env:"CONTENT_TIMEOUT_MS" envDefault:"3000"`
	PickTimeoutMS     int `env:"PICK_TIMEOUT_MS" envDefault:"10000"`
	VoteTimeoutMS     int `env:"VOTE_TIMEOUT_MS" envDefault:"10000"`
}

func LoadGame() (GameConfig, error) {
	var cfg GameConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c GameConfig) DisconnectGrace() time.Duration { return ms(c.DisconnectGraceMS) }
func (c GameConfig) SafetyBuffer() time.Duration    { return ms(c.SafetyBufferMS) }
func (c GameConfig) Tick() time.Duration            { return ms(c.TickMS) }
func (c GameConfig) AutoReset() time.Duration       { return ms(c.AutoResetMS) }
func (c GameConfig) ContentTimeout() time.Duration  { return ms(c.ContentTimeoutMS) }
func (c GameConfig) PickTimeout() time.Duration     { return ms(c.PickTimeoutMS) }
func (c GameConfig) VoteTimeout() time.Duration     { return ms(c.VoteTimeoutMS) }

func ms(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Millisecond
}
