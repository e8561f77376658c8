package activities

import "github.com/prometheus/client_golang/prometheus"

var (
	stepOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addemo",
		Subsystem: "activity",
		Name:      "steps_total",
		Help:      "Total number of activity steps by outcome.",
	}, []string{"activity", "outcome"})

	stepErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addemo",
		Subsystem: "activity",
		Name:      "step_errors_total",
		Help:      "Total number of errors logged and swallowed by activity steps.",
	}, []string{"activity"})

	replayRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addemo",
		Subsystem: "replay",
		Name:      "records_total",
		Help:      "Total number of replay bridge payloads by kind; decoded records or the end of stream sentinel.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(
		stepOutcomes,
		stepErrors,
		replayRecords,
	)
}
