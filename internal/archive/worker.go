package archive

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"puzzle-party/internal/config"
	"puzzle-party/internal/game"
)

var errCircuitOpen = errors.New("circuit_open")

// Inserter persists one finished game.
type Inserter interface {
	InsertGameResult(ctx context.Context, rec game.GameRecord) (string, error)
}

type Config struct {
	Workers          int
	Buffer           int
	RetryMax         int
	RetryBase        time.Duration
	InsertTimeout    time.Duration
	FailureThreshold int
	CircuitOpen      time.Duration
}

func ConfigFromServer(cfg config.ServerConfig) Config {
	return Config{
		Workers:   cfg.ArchiveWorkers,
		RetryMax:  cfg.ArchiveRetryMax,
		RetryBase: time.Duration(cfg.ArchiveRetryBaseMS) * time.Millisecond,
	}
}

type job struct {
	rec     game.GameRecord
	attempt int
}

// Worker writes finished games in the background. GameFinished never blocks
// the room that reports the result; records that cannot be queued or keep
// failing are dropped and counted.
type Worker struct {
	cfg  Config
	db   Inserter
	jobs chan job
	done chan struct{}
	log  zerolog.Logger

	mu                  sync.Mutex
	started             bool
	consecutiveFailures int
	openUntil           time.Time
}

var _ game.ResultSink = (*Worker)(nil)

func New(db Inserter, cfg Config) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.InsertTimeout <= 0 {
		cfg.InsertTimeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpen <= 0 {
		cfg.CircuitOpen = 10 * time.Second
	}
	return &Worker{
		cfg:  cfg,
		db:   db,
		jobs: make(chan job, cfg.Buffer),
		done: make(chan struct{}),
		log:  log.With().Str("component", "archive").Logger(),
	}
}

// Run starts the write loops and blocks until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	<-ctx.Done()
	close(w.done)
	wg.Wait()
	return nil
}

func (w *Worker) GameFinished(rec game.GameRecord) {
	w.enqueue(job{rec: rec})
}

func (w *Worker) enqueue(j job) bool {
	select {
	case <-w.done:
		metricDroppedTotal.Add(1)
		return false
	default:
	}
	select {
	case w.jobs <- j:
		metricQueuedTotal.Add(1)
		metricQueueLen.Set(int64(len(w.jobs)))
		return true
	default:
		metricDroppedTotal.Add(1)
		w.log.Warn().Str("room", j.rec.RoomCode).Msg("archive_queue_full")
		return false
	}
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-w.jobs:
			metricQueueLen.Set(int64(len(w.jobs)))
			w.process(ctx, j)
		}
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	if err := w.beforeWrite(time.Now()); err != nil {
		metricCircuitOpenTotal.Add(1)
		w.retryOrDrop(j, err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, w.cfg.InsertTimeout)
	id, err := w.db.InsertGameResult(writeCtx, j.rec)
	cancel()
	if err != nil {
		metricFailedTotal.Add(1)
		w.afterFailure(time.Now())
		w.retryOrDrop(j, err)
		return
	}
	metricWrittenTotal.Add(1)
	w.afterSuccess()
	w.log.Info().Str("id", id).Str("room", j.rec.RoomCode).Str("variant", j.rec.Variant).Msg("game_archived")
}

func (w *Worker) retryOrDrop(j job, err error) bool {
	if j.attempt >= w.cfg.RetryMax {
		metricRetryDroppedTotal.Add(1)
		w.log.Error().Err(err).Str("room", j.rec.RoomCode).Int("attempts", j.attempt+1).Msg("archive_dropped")
		return false
	}
	j.attempt++
	metricRetryTotal.Add(1)
	delay := w.cfg.RetryBase * time.Duration(1<<(j.attempt-1))
	time.AfterFunc(delay, func() {
		select {
		case <-w.done:
			metricRetryDroppedTotal.Add(1)
		case w.jobs <- j:
			metricQueueLen.Set(int64(len(w.jobs)))
		}
	})
	return true
}

func (w *Worker) beforeWrite(now time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.openUntil.IsZero() && now.Before(w.openUntil) {
		return errCircuitOpen
	}
	return nil
}

func (w *Worker) afterFailure(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consecutiveFailures++
	if w.consecutiveFailures >= w.cfg.FailureThreshold {
		w.openUntil = now.Add(w.cfg.CircuitOpen)
		w.consecutiveFailures = 0
	}
}

func (w *Worker) afterSuccess() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consecutiveFailures = 0
	w.openUntil = time.Time{}
}

// Discard is the sink used when no database is configured.
type Discard struct{}

func (Discard) GameFinished(rec game.GameRecord) {
	log.Debug().Str("room", rec.RoomCode).Str("variant", rec.Variant).Msg("archive_disabled")
}
