package httptransport

import "expvar"

var (
	resultsQueryTotal       = expvar.NewInt("results_query_total")
	resultsQueryErrorsTotal = expvar.NewInt("results_query_errors_total")
	roomListTotal           = expvar.NewInt("room_list_total")
)
