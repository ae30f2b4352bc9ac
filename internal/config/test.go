package config

import "github.com/caarlos0/env/v11"

type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

// LiveContentConfig opts tests into calling the real trivia API.
type LiveContentConfig struct {
	Enabled bool   `env:"TEST_CONTENT_LIVE" envDefault:"false"`
	URL     string `env:"TRIVIA_API_URL" envDefault:"https://opentdb.com/api.php"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func LoadLiveContent() (LiveContentConfig, error) {
	var cfg LiveContentConfig
	err := env.Parse(&cfg)
	return cfg, err
}
