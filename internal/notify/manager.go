package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"puzzle-party/internal/game"
	"puzzle-party/internal/notify/platforms"
)

var errCircuitOpen = errors.New("circuit_open")

type breakerState struct {
	consecutiveFailures int
	openUntil           time.Time
}

// Manager posts game-over summaries to webhook targets. GameFinished never
// blocks the reporting room.
type Manager struct {
	cfg      Config
	adapters map[string]platforms.Adapter
	log      zerolog.Logger

	dispatchCh chan pushJob
	retryQ     *retryQueue
	done       chan struct{}

	mu           sync.Mutex
	started      bool
	breakerByKey map[string]breakerState
}

var _ game.ResultSink = (*Manager)(nil)

func NewManager(cfg Config) *Manager {
	client := platforms.NewHTTPClient(cfg.RequestTimeout)
	return newManager(cfg, platforms.NewDiscordAdapter(client), platforms.NewFeishuAdapter(client))
}

func newManager(cfg Config, adapters ...platforms.Adapter) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.DispatchBuffer <= 0 {
		cfg.DispatchBuffer = 256
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpenDuration <= 0 {
		cfg.CircuitOpenDuration = 30 * time.Second
	}
	m := &Manager{
		cfg:          cfg,
		adapters:     map[string]platforms.Adapter{},
		log:          log.With().Str("component", "notify").Logger(),
		dispatchCh:   make(chan pushJob, cfg.DispatchBuffer),
		done:         make(chan struct{}),
		breakerByKey: map[string]breakerState{},
	}
	for _, a := range adapters {
		m.adapters[a.Name()] = a
	}
	m.retryQ = newRetryQueue(m.dispatchCh, m.done)
	return m
}

// Run starts the delivery workers and blocks until ctx ends.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	if !m.cfg.Enabled || len(m.cfg.Targets) == 0 {
		<-ctx.Done()
		close(m.done)
		return nil
	}
	var wg sync.WaitGroup
	for i := 0; i < m.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.worker(ctx)
		}()
	}
	m.log.Info().Int("targets", len(m.cfg.Targets)).Int("workers", m.cfg.Workers).Msg("notify_started")
	<-ctx.Done()
	close(m.done)
	wg.Wait()
	return nil
}

func (m *Manager) GameFinished(rec game.GameRecord) {
	if !m.cfg.Enabled {
		return
	}
	for _, t := range m.cfg.Targets {
		if !t.accepts(rec.Variant) {
			continue
		}
		m.enqueue(pushJob{Target: t, Record: rec})
	}
}

func (m *Manager) enqueue(job pushJob) {
	select {
	case <-m.done:
		metricPushDroppedTotal.Add(1)
		return
	default:
	}
	select {
	case m.dispatchCh <- job:
		metricPushQueuedTotal.Add(1)
		metricPushQueueLen.Set(int64(len(m.dispatchCh)))
	default:
		metricPushDroppedTotal.Add(1)
		m.log.Warn().Str("room", job.Record.RoomCode).Str("platform", job.Target.Platform).Msg("notify_queue_full")
	}
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.dispatchCh:
			metricPushQueueLen.Set(int64(len(m.dispatchCh)))
			m.processJob(ctx, job)
		}
	}
}

func (m *Manager) processJob(ctx context.Context, job pushJob) {
	adapter := m.adapters[job.Target.Platform]
	if adapter == nil {
		metricPushDroppedTotal.Add(1)
		m.log.Warn().Str("platform", job.Target.Platform).Msg("notify_unknown_platform")
		return
	}
	key := job.Target.key()
	if err := m.beforeSend(key, time.Now()); err != nil {
		metricPushCircuitOpenTotal.Add(1)
		m.retryOrDrop(job, err)
		return
	}
	if err := adapter.Send(ctx, job.Target.Endpoint, job.Target.Secret, FormatGameOver(job.Record)); err != nil {
		metricPushFailedTotal.Add(1)
		m.afterFailure(key, time.Now())
		m.retryOrDrop(job, err)
		return
	}
	metricPushSentTotal.Add(1)
	m.afterSuccess(key)
}

func (m *Manager) retryOrDrop(job pushJob, err error) bool {
	if job.Attempt >= m.cfg.RetryMax {
		metricPushRetryDroppedTotal.Add(1)
		m.log.Error().Err(err).Str("room", job.Record.RoomCode).Str("platform", job.Target.Platform).Msg("notify_dropped")
		return false
	}
	job.Attempt++
	metricPushRetryTotal.Add(1)
	delay := m.cfg.RetryBase * time.Duration(1<<(job.Attempt-1))
	m.retryQ.Enqueue(job, delay)
	return true
}

func (m *Manager) beforeSend(key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	if !state.openUntil.IsZero() && now.Before(state.openUntil) {
		return errCircuitOpen
	}
	return nil
}

func (m *Manager) afterFailure(key string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	state.consecutiveFailures++
	if state.consecutiveFailures >= m.cfg.FailureThreshold {
		state.openUntil = now.Add(m.cfg.CircuitOpenDuration)
		state.consecutiveFailures = 0
	}
	m.breakerByKey[key] = state
}

func (m *Manager) afterSuccess(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakerByKey[key] = breakerState{}
}
