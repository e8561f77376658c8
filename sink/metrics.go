package sink

import "github.com/prometheus/client_golang/prometheus"

var sinkReceived = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "addemo",
	Subsystem: "sink",
	Name:      "payloads_received_total",
	Help:      "Total number of payloads received by the sink.",
})

func init() {
	prometheus.MustRegister(sinkReceived)
}
