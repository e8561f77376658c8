package activities

import (
	"context"
	"math/rand"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/corverroos/addemo"
	"github.com/corverroos/addemo/com"
	"github.com/corverroos/addemo/messages"
)

var _ addemo.Activity = (*SceneRender)(nil)

// SceneRender emulates inferring a Scene from the latest CameraImage.
type SceneRender struct {
	id      addemo.ActivityID
	input   *com.Input[messages.CameraImage]
	output  *com.Output[messages.Scene]
	rng     *rand.Rand
	metrics Metrics
}

// SceneRenderBuilder returns a builder of scene renderers reading the image topic
// and publishing on the scene topic.
func SceneRenderBuilder(imageTopic, sceneTopic string, opts ...option) addemo.Builder {
	return func(id addemo.ActivityID, tr com.Transport) (addemo.Activity, error) {
		return NewSceneRender(id, tr, imageTopic, sceneTopic, opts...)
	}
}

// NewSceneRender returns a scene renderer reading the image topic and publishing on the scene topic.
func NewSceneRender(id addemo.ActivityID, tr com.Transport, imageTopic, sceneTopic string, opts ...option) (*SceneRender, error) {
	o := resolve(opts)

	input, err := com.NewInput[messages.CameraImage](tr, imageTopic)
	if err != nil {
		return nil, err
	}

	output, err := com.NewOutput[messages.Scene](tr, sceneTopic)
	if err != nil {
		return nil, err
	}

	return &SceneRender{
		id:      id,
		input:   input,
		output:  output,
		rng:     o.rng,
		metrics: o.metrics("scene_render"),
	}, nil
}

func (r *SceneRender) ID() addemo.ActivityID {
	return r.id
}

func (r *SceneRender) Kind() addemo.Kind {
	return addemo.KindTransformer
}

func (r *SceneRender) Startup(ctx context.Context) {
	log.Info(ctx, "scene render startup", j.MKV{
		"activity": r.id,
		"input":    r.input.Topic(),
		"output":   r.output.Topic(),
	})
}

// Step publishes a scene only if both an input image and an output slot are available.
// Otherwise nothing is published; an image read without a slot is dropped.
func (r *SceneRender) Step(ctx context.Context) {
	img, readOK := r.input.Read()
	slot, slotOK := r.output.WriteUninit()

	if !readOK || !slotOK {
		if slotOK {
			slot.Release()
		}
		r.metrics.IncSkipped()
		return
	}

	scene := messages.SceneFrom(img, uniform(r.rng, 10, 50), uniform(r.rng, 10, 50))

	if err := slot.WritePayload(scene).Send(); err != nil {
		// NoReturnErr: Log and drop the scene.
		log.Error(ctx, errors.Wrap(err, "send scene"), j.MKV{"activity": r.id})
		r.metrics.IncErrors()
		return
	}

	r.metrics.IncPublished()
}

func (r *SceneRender) Shutdown(ctx context.Context) {
	if err := r.input.Close(); err != nil {
		log.Error(ctx, errors.Wrap(err, "close scene render input"))
	}
	if err := r.output.Close(); err != nil {
		log.Error(ctx, errors.Wrap(err, "close scene render output"))
	}
}
