package game

import "expvar"

var (
	metricRoundsResolvedTotal    = expvar.NewInt("rounds_resolved_total")
	metricEarlyResolutionsTotal  = expvar.NewInt("early_resolutions_total")
	metricStaleTimerNoopTotal    = expvar.NewInt("stale_timer_noop_total")
	metricDoubleResolutionNoop   = expvar.NewInt("double_resolution_noop_total")
	metricOverdueForcedTotal     = expvar.NewInt("overdue_phase_forced_total")
	metricGamesFinishedTotal     = expvar.NewInt("games_finished_total")
	metricContentFailuresTotal   = expvar.NewInt("round_content_failures_total")
	metricGraceExpiredTotal      = expvar.NewInt("disconnect_grace_expired_total")
	metricTimerPanicsTotal       = expvar.NewInt("timer_callback_panics_total")
	metricInvalidTransitionTotal = expvar.NewInt("invalid_phase_transition_total")
)
