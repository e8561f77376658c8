package worker

import "github.com/prometheus/client_golang/prometheus"

var (
	stepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "addemo",
		Subsystem: "worker",
		Name:      "step_duration_seconds",
		Help:      "Duration of stepping all activities of a worker once in seconds.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"worker"})

	overruns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addemo",
		Subsystem: "worker",
		Name:      "step_overruns_total",
		Help:      "Total number of steps that took longer than the worker period.",
	}, []string{"worker"})
)

func init() {
	prometheus.MustRegister(
		stepDuration,
		overruns,
	)
}
