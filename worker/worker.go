// Package worker provides a minimal runtime stepping the activities of a worker at a fixed period.
package worker

import (
	"context"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/corverroos/addemo"
)

var ErrInvalidPeriod = errors.New("worker period must be positive", j.C("ERR_8e2f4a1c6b0d3e97"))

// Run starts up the activities in order, then steps them in order once per period until
// the context is done after which they are shut down in order. A step that overruns
// the period delays the next one; missed ticks are dropped, not caught up.
//
// Run always returns nil once the activities are shut down.
func Run(ctx context.Context, id addemo.WorkerID, acts []addemo.Activity, period time.Duration) error {
	if period <= 0 {
		return errors.Wrap(ErrInvalidPeriod, "", j.KV("worker", id), j.KV("period", period))
	}

	label := id.String()

	for _, a := range acts {
		a.Startup(ctx)
	}

	log.Info(ctx, "worker started", j.MKV{"worker": label, "activities": len(acts), "period": period})

	t := time.NewTicker(period)
	defer t.Stop()

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case <-t.C:
			t0 := time.Now()
			for _, a := range acts {
				a.Step(ctx)
			}
			d := time.Since(t0)
			stepDuration.WithLabelValues(label).Observe(d.Seconds())
			if d > period {
				overruns.WithLabelValues(label).Inc()
			}
		}
	}

	// Shutdown must complete even though ctx is done.
	sctx := context.WithoutCancel(ctx)
	for _, a := range acts {
		a.Shutdown(sctx)
	}

	log.Info(ctx, "worker stopped", j.MKV{"worker": label})

	return nil
}
