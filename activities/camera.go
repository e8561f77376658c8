// Package activities provides the activities of the perception demo: a synthetic camera
// source, a scene renderer transforming camera images into scenes and a bridge replaying
// a recorded MCAP log onto a TCP sink.
package activities

import (
	"context"
	"math"
	"math/rand"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/corverroos/addemo"
	"github.com/corverroos/addemo/com"
	"github.com/corverroos/addemo/messages"
)

var _ addemo.Activity = (*Camera)(nil)

// Camera emulates a camera publishing a CameraImage every step.
type Camera struct {
	id      addemo.ActivityID
	output  *com.Output[messages.CameraImage]
	rng     *rand.Rand
	metrics Metrics
}

// CameraBuilder returns a builder of cameras publishing on the image topic.
func CameraBuilder(imageTopic string, opts ...option) addemo.Builder {
	return func(id addemo.ActivityID, tr com.Transport) (addemo.Activity, error) {
		return NewCamera(id, tr, imageTopic, opts...)
	}
}

// NewCamera returns a camera publishing on the image topic.
func NewCamera(id addemo.ActivityID, tr com.Transport, imageTopic string, opts ...option) (*Camera, error) {
	o := resolve(opts)

	output, err := com.NewOutput[messages.CameraImage](tr, imageTopic)
	if err != nil {
		return nil, err
	}

	return &Camera{
		id:      id,
		output:  output,
		rng:     o.rng,
		metrics: o.metrics("camera"),
	}, nil
}

func (c *Camera) ID() addemo.ActivityID {
	return c.id
}

func (c *Camera) Kind() addemo.Kind {
	return addemo.KindSource
}

func (c *Camera) Startup(ctx context.Context) {
	log.Info(ctx, "camera startup", j.MKV{"activity": c.id, "topic": c.output.Topic()})
}

// Step publishes a synthesized image if an output slot is available. Otherwise the
// reading is dropped; a missed period is never caught up.
func (c *Camera) Step(ctx context.Context) {
	slot, ok := c.output.WriteUninit()
	if !ok {
		c.metrics.IncSkipped()
		return
	}

	if err := slot.WritePayload(c.image()).Send(); err != nil {
		// NoReturnErr: Log and drop the image.
		log.Error(ctx, errors.Wrap(err, "send image"), j.MKV{"activity": c.id})
		c.metrics.IncErrors()
		return
	}

	c.metrics.IncPublished()
}

func (c *Camera) Shutdown(ctx context.Context) {
	if err := c.output.Close(); err != nil {
		log.Error(ctx, errors.Wrap(err, "close camera output"))
	}
}

func (c *Camera) image() messages.CameraImage {
	return messages.CameraImage{
		NumPeople:        uint64(c.rng.Intn(20)),
		NumCars:          uint64(c.rng.Intn(7)),
		ObstacleDistance: uniform(c.rng, 20, 50),
	}
}

// uniform returns a uniformly distributed value in the half-open range [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	v := lo + rng.Float64()*(hi-lo)
	if v >= hi {
		// Rounding may land on the exclusive bound.
		v = math.Nextafter(hi, lo)
	}
	return v
}
