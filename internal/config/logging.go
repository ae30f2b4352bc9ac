package config

import "github.com/caarlos0/env/v11"

// LogConfig drives three loggers: the application logger, the per-room
// session loggers and the HTTP request logger.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
	// RoomLevel can only raise the floor set by Level; rounds log at debug.
	RoomLevel string `env:"ROOM_LOG_LEVEL" envDefault:"info"`
	HTTPLevel string `env:"HTTP_LOG_LEVEL" envDefault:"info"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}
