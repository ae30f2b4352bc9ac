package notify

import (
	"slices"
	"time"

	"puzzle-party/internal/game"
)

// Target is one webhook receiving game-over summaries. An empty Variants list
// accepts every variant.
type Target struct {
	Platform string   `json:"platform"`
	Endpoint string   `json:"endpoint"`
	Secret   string   `json:"secret"`
	Variants []string `json:"variants"`
	Enabled  bool     `json:"enabled"`
}

func (t Target) accepts(variant string) bool {
	return len(t.Variants) == 0 || slices.Contains(t.Variants, variant)
}

func (t Target) key() string {
	return t.Platform + "|" + t.Endpoint
}

type Config struct {
	Enabled             bool
	Targets             []Target
	Workers             int
	RetryMax            int
	RetryBase           time.Duration
	FailureThreshold    int
	CircuitOpenDuration time.Duration
	RequestTimeout      time.Duration
	DispatchBuffer      int
}

type pushJob struct {
	Target  Target
	Record  game.GameRecord
	Attempt int
}
