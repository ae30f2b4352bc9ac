package notify

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"puzzle-party/internal/config"
)

func ConfigFromServer(cfg config.ServerConfig) (Config, error) {
	out := Config{
		Enabled:             cfg.NotifyEnabled,
		Workers:             cfg.NotifyWorkers,
		RetryMax:            cfg.NotifyRetryMax,
		RetryBase:           time.Duration(cfg.NotifyRetryBaseMS) * time.Millisecond,
		FailureThreshold:    3,
		CircuitOpenDuration: 30 * time.Second,
		RequestTimeout:      5 * time.Second,
		DispatchBuffer:      256,
	}
	if !out.Enabled {
		return out, nil
	}
	if out.Workers <= 0 {
		out.Workers = 2
	}
	if out.RetryMax < 0 {
		out.RetryMax = 0
	}
	if out.RetryBase <= 0 {
		out.RetryBase = 500 * time.Millisecond
	}

	raw, err := loadTargetsJSON(cfg)
	if err != nil {
		return Config{}, err
	}
	if raw == "" {
		return out, nil
	}
	targets, err := parseTargetsJSON(raw)
	if err != nil {
		return Config{}, err
	}
	out.Targets = targets
	return out, nil
}

func loadTargetsJSON(cfg config.ServerConfig) (string, error) {
	path := strings.TrimSpace(cfg.NotifyConfigPath)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read notify config path %q: %w", path, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return strings.TrimSpace(cfg.NotifyTargetsJSON), nil
}

// parseTargetsJSON drops disabled targets and targets without an endpoint.
func parseTargetsJSON(raw string) ([]Target, error) {
	var targets []Target
	if err := json.Unmarshal([]byte(raw), &targets); err != nil {
		return nil, fmt.Errorf("parse notify targets: %w", err)
	}
	filtered := make([]Target, 0, len(targets))
	for _, t := range targets {
		t.Platform = strings.ToLower(strings.TrimSpace(t.Platform))
		t.Endpoint = strings.TrimSpace(t.Endpoint)
		if t.Endpoint == "" || !t.Enabled {
			continue
		}
		for i := range t.Variants {
			t.Variants[i] = strings.ToLower(strings.TrimSpace(t.Variants[i]))
		}
		filtered = append(filtered, t)
	}
	return filtered, nil
}
