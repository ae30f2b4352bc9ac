package game

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"puzzle-party/internal/clock"
)

// Scheduler owns the single phase timer of a room. Every method must be called
// with lock held; callbacks acquire lock themselves. Arming a new timer
// invalidates all earlier ones, so a callback that lost the race to Stop
// observes a newer epoch and does nothing.
type Scheduler struct {
	clock clock.Clock
	lock  sync.Locker
	log   zerolog.Logger

	timer    clock.Timer
	epoch    uint64
	deadline time.Time
	safety   time.Time
	onExpire func()
	onPanic  func()
}

func NewScheduler(c clock.Clock, lock sync.Locker, log zerolog.Logger) *Scheduler {
	return &Scheduler{clock: c, lock: lock, log: log}
}

// Cancel stops the pending timer, if any.
func (s *Scheduler) Cancel() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.epoch++
	s.timer = nil
	s.deadline = time.Time{}
	s.safety = time.Time{}
	s.onExpire = nil
}

// Countdown runs onTick every tick with the whole seconds left and onExpire
// once total has elapsed. buffer extends the safety deadline checked by Overdue.
func (s *Scheduler) Countdown(total, tick, buffer time.Duration, onTick func(left int), onExpire func()) {
	s.Cancel()
	now := s.clock.Now()
	s.deadline = now.Add(total)
	s.safety = s.deadline.Add(buffer)
	s.onExpire = onExpire
	if tick <= 0 || tick >= total {
		s.arm(total, s.fire)
		return
	}
	var step func()
	step = func() {
		left := s.deadline.Sub(s.clock.Now())
		if left <= 0 {
			s.fire()
			return
		}
		if onTick != nil {
			onTick(ceilSeconds(left))
		}
		s.arm(min(tick, left), step)
	}
	s.arm(tick, step)
}

// After runs fn once after d.
func (s *Scheduler) After(d, buffer time.Duration, fn func()) {
	s.Cancel()
	s.deadline = s.clock.Now().Add(d)
	s.safety = s.deadline.Add(buffer)
	s.onExpire = fn
	s.arm(d, s.fire)
}

func (s *Scheduler) Pending() bool { return s.onExpire != nil }

// OnPanic sets fn to run, lock held, when a phase callback panics without
// arming a new timer. Without it nothing would ever move the room on.
func (s *Scheduler) OnPanic(fn func()) { s.onPanic = fn }

// Remaining returns whole seconds until the deadline, rounded up.
func (s *Scheduler) Remaining() int {
	if s.onExpire == nil {
		return 0
	}
	left := s.deadline.Sub(s.clock.Now())
	if left <= 0 {
		return 0
	}
	return ceilSeconds(left)
}

// Overdue reports whether the timer should have fired by now but has not.
func (s *Scheduler) Overdue(now time.Time) bool {
	return s.onExpire != nil && !s.safety.IsZero() && now.After(s.safety)
}

// ForceExpire runs the pending expiry immediately.
func (s *Scheduler) ForceExpire() {
	if s.onExpire == nil {
		return
	}
	s.fire()
}

func (s *Scheduler) fire() {
	fn := s.onExpire
	s.Cancel()
	if fn != nil {
		fn()
	}
}

func (s *Scheduler) arm(d time.Duration, fn func()) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.epoch++
	epoch := s.epoch
	s.timer = s.clock.AfterFunc(d, func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if s.epoch != epoch {
			metricStaleTimerNoopTotal.Add(1)
			s.log.Debug().Uint64("epoch", epoch).Uint64("current", s.epoch).Msg("stale_timer_ignored")
			return
		}
		defer s.recoverPhase("phase_timer")
		fn()
	})
}

// recoverPhase must be deferred directly. It hands a stalled room to onPanic.
func (s *Scheduler) recoverPhase(source string) {
	r := recover()
	if r == nil {
		return
	}
	metricTimerPanicsTotal.Add(1)
	s.log.Error().Str("source", source).Interface("panic", r).Msg("handler_panic")
	if s.onExpire == nil && s.onPanic != nil {
		defer recoverCallback(s.log, source+"_fallback")
		s.onPanic()
	}
}

func recoverCallback(log zerolog.Logger, source string) {
	if r := recover(); r != nil {
		metricTimerPanicsTotal.Add(1)
		log.Error().Str("source", source).Interface("panic", r).Msg("handler_panic")
	}
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
