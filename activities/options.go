package activities

import (
	"context"
	"math/rand"
	"time"

	"github.com/corverroos/addemo/sink"
)

type options struct {
	rng         *rand.Rand
	metrics     func(activity string) Metrics
	dialTimeout time.Duration
	send        func(ctx context.Context, addr string, payload []byte, timeout time.Duration) error
}

type option func(*options)

// WithRand returns an option to define the random source of synthesized values.
// The source is owned by the activity and must not be shared.
func WithRand(rng *rand.Rand) option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithMetrics returns an option to define activity metrics.
// It overrides the default prometheus metrics.
func WithMetrics(m func(activity string) Metrics) option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDialTimeout returns an option to bound the replay bridge's forward to the sink.
// A zero timeout leaves the forward unbounded.
func WithDialTimeout(d time.Duration) option {
	return func(o *options) {
		o.dialTimeout = d
	}
}

// WithSender returns an option to override how the replay bridge forwards payloads.
func WithSender(fn func(ctx context.Context, addr string, payload []byte, timeout time.Duration) error) option {
	return func(o *options) {
		o.send = fn
	}
}

// Metrics are the per activity step outcome counters.
type Metrics struct {
	IncPublished func()
	IncSkipped   func()
	IncErrors    func()
}

func defaultOptions() options {
	return options{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		dialTimeout: time.Millisecond * 100,
		send:        sink.Send,
		metrics: func(activity string) Metrics {
			return Metrics{
				IncPublished: stepOutcomes.WithLabelValues(activity, "published").Inc,
				IncSkipped:   stepOutcomes.WithLabelValues(activity, "skipped").Inc,
				IncErrors:    stepErrors.WithLabelValues(activity).Inc,
			}
		},
	}
}

func resolve(opts []option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
