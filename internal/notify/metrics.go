package notify

import "expvar"

var (
	metricPushQueuedTotal       = expvar.NewInt("notify_queued_total")
	metricPushDroppedTotal      = expvar.NewInt("notify_dropped_total")
	metricPushRetryTotal        = expvar.NewInt("notify_retry_total")
	metricPushRetryDroppedTotal = expvar.NewInt("notify_retry_dropped_total")
	metricPushSentTotal         = expvar.NewInt("notify_sent_total")
	metricPushFailedTotal       = expvar.NewInt("notify_failed_total")
	metricPushCircuitOpenTotal  = expvar.NewInt("notify_circuit_open_total")
	metricPushQueueLen          = expvar.NewInt("notify_queue_len")
)
