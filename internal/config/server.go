package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	AllowedOrigins      []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	WSMessagesPerSecond float64  `env:"WS_MESSAGES_PER_SECOND" envDefault:"10"`
	WSBurst             int      `env:"WS_BURST" envDefault:"20"`
	JanitorIntervalMS   int      `env:"JANITOR_INTERVAL_MS" envDefault:"1000"`

	ArchiveWorkers     int `env:"ARCHIVE_WORKERS" envDefault:"2"`
	ArchiveRetryMax    int `env:"ARCHIVE_RETRY_MAX" envDefault:"3"`
	ArchiveRetryBaseMS int `env:"ARCHIVE_RETRY_BASE_MS" envDefault:"500"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	NotifyEnabled     bool   `env:"NOTIFY_ENABLED" envDefault:"false"`
	NotifyTargetsJSON string `env:"NOTIFY_TARGETS_JSON"`
	NotifyConfigPath  string `env:"NOTIFY_CONFIG_PATH"`
	NotifyWorkers     int    `env:"NOTIFY_WORKERS" envDefault:"2"`
	NotifyRetryMax    int    `env:"NOTIFY_RETRY_MAX" envDefault:"3"`
	NotifyRetryBaseMS int    `env:"NOTIFY_RETRY_BASE_MS" envDefault:"500"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
