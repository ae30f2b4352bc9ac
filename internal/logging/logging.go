package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"puzzle-party/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	writerMu sync.RWMutex
	writer   io.Writer = os.Stdout
	pretty   bool
	httpLvl  = slog.LevelInfo
)

// Init configures the global zerolog logger. A log file, when set, receives the
// same lines as stdout and is truncated once it grows past MaxMB.
func Init(cfg config.LogConfig) {
	level := ParseLevel(cfg.Level, zerolog.InfoLevel)

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		if fw, err := newSizeLimitedWriter(cfg.File, cfg.MaxMB); err == nil {
			out = io.MultiWriter(os.Stdout, fw)
		} else {
			log.Warn().Err(err).Str("path", cfg.File).Msg("log_file_open_failed")
		}
	}
	setWriter(out, cfg.Pretty, parseSlogLevel(cfg.HTTPLevel))

	var console io.Writer = out
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: out}
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(console).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}

// Writer is the raw sink used by the HTTP request logger.
func Writer() io.Writer {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return writer
}

func Pretty() bool {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return pretty
}

// HTTPLevel is the minimum level of the request logger.
func HTTPLevel() slog.Level {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return httpLvl
}

func ParseLevel(raw string, fallback zerolog.Level) zerolog.Level {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return fallback
	}
	parsed, err := zerolog.ParseLevel(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseSlogLevel(raw string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func setWriter(w io.Writer, p bool, lvl slog.Level) {
	writerMu.Lock()
	defer writerMu.Unlock()
	writer = w
	pretty = p
	httpLvl = lvl
}
