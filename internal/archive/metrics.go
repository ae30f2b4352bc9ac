package archive

import "expvar"

var (
	metricQueuedTotal       = expvar.NewInt("archive_queued_total")
	metricDroppedTotal      = expvar.NewInt("archive_dropped_total")
	metricRetryTotal        = expvar.NewInt("archive_retry_total")
	metricRetryDroppedTotal = expvar.NewInt("archive_retry_dropped_total")
	metricWrittenTotal      = expvar.NewInt("archive_written_total")
	metricFailedTotal       = expvar.NewInt("archive_failed_total")
	metricCircuitOpenTotal  = expvar.NewInt("archive_circuit_open_total")
	metricQueueLen          = expvar.NewInt("archive_queue_len")
)
