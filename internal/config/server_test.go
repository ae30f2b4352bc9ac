package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("PostgresDSN = %q, want empty", cfg.PostgresDSN)
	}
	if cfg.WSMessagesPerSecond != 10 || cfg.WSBurst != 20 {
		t.Fatalf("ws limits = %v/%d, want 10/20", cfg.WSMessagesPerSecond, cfg.WSBurst)
	}
	if cfg.JanitorIntervalMS != 1000 {
		t.Fatalf("JanitorIntervalMS = %d, want 1000", cfg.JanitorIntervalMS)
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/party?sslmode=disable")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("WS_MESSAGES_PER_SECOND", "2.5")
	t.Setenv("ARCHIVE_RETRY_MAX", "5")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.WSMessagesPerSecond != 2.5 {
		t.Fatalf("WSMessagesPerSecond = %v, want 2.5", cfg.WSMessagesPerSecond)
	}
	if cfg.ArchiveRetryMax != 5 {
		t.Fatalf("ArchiveRetryMax = %d, want 5", cfg.ArchiveRetryMax)
	}
}

func TestLoadServerRejectsBadNumber(t *testing.T) {
	t.Setenv("WS_BURST", "many")

	if _, err := LoadServer(); err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerNotifyDefaults(t *testing.T) {
	t.Setenv("NOTIFY_ENABLED", "true")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if !cfg.NotifyEnabled {
		t.Fatal("NotifyEnabled = false, want true")
	}
	if cfg.NotifyWorkers != 2 || cfg.NotifyRetryMax != 3 || cfg.NotifyRetryBaseMS != 500 {
		t.Fatalf("notify tuning = %d/%d/%d, want 2/3/500", cfg.NotifyWorkers, cfg.NotifyRetryMax, cfg.NotifyRetryBaseMS)
	}
}
