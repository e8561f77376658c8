package activities

import "github.com/prometheus/client_golang/prometheus"

func SkippedCounter(activity string) prometheus.Counter {
	return stepOutcomes.WithLabelValues(activity, "skipped")
}

func ReplayCounter(kind string) prometheus.Counter {
	return replayRecords.WithLabelValues(kind)
}

var CompactJSON = compactJSON
