package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ContentConfig struct {
	TriviaAPIURL     string  `env:"TRIVIA_API_URL" envDefault:"https://opentdb.com/api.php"`
	TriviaAPIEnabled bool    `env:"TRIVIA_API_ENABLED" envDefault:"true"`
	TriviaAPIRPS     float64 `env:"TRIVIA_API_RPS" envDefault:"0.2"`
	TriviaAPITimeout int     `env:"TRIVIA_API_TIMEOUT_MS" envDefault:"2500"`
	Dir              string  `env:"CONTENT_DIR"`
	DictionaryPath   string  `env:"WORDLE_DICTIONARY" envDefault:"/usr/share/dict/words"`
}

func LoadContent() (ContentConfig, error) {
	var cfg ContentConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c ContentConfig) TriviaTimeout() time.Duration { return ms(c.TriviaAPITimeout) }
