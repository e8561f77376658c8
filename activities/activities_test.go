package activities_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/corverroos/addemo"
	"github.com/corverroos/addemo/activities"
	"github.com/corverroos/addemo/com"
	"github.com/corverroos/addemo/com/mem"
	"github.com/corverroos/addemo/messages"
)

const (
	imageTopic = "test/camera"
	sceneTopic = "test/scene"
)

func setupBus(t *testing.T) *mem.Bus {
	bus := mem.New()
	jtest.RequireNil(t, bus.Declare(imageTopic, 2))
	jtest.RequireNil(t, bus.Declare(sceneTopic, 2))
	return bus
}

func TestCameraRanges(t *testing.T) {
	ctx := context.Background()
	bus := setupBus(t)

	cam, err := activities.NewCamera(0, bus, imageTopic, activities.WithRand(rand.New(rand.NewSource(42))))
	jtest.RequireNil(t, err)
	require.Equal(t, addemo.KindSource, cam.Kind())

	in, err := com.NewInput[messages.CameraImage](bus, imageTopic)
	jtest.RequireNil(t, err)

	cam.Startup(ctx)
	for i := 0; i < 1000; i++ {
		cam.Step(ctx)

		img, ok := in.Read()
		require.True(t, ok)
		require.Less(t, img.NumPeople, uint64(20))
		require.Less(t, img.NumCars, uint64(7))
		require.GreaterOrEqual(t, img.ObstacleDistance, 20.0)
		require.Less(t, img.ObstacleDistance, 50.0)
	}
	cam.Shutdown(ctx)
}

func TestCameraNoChannel(t *testing.T) {
	ctx := context.Background()
	bus := mem.New()

	var published, skipped int
	cam, err := activities.NewCamera(0, bus, imageTopic, activities.WithMetrics(func(string) activities.Metrics {
		return activities.Metrics{
			IncPublished: func() { published++ },
			IncSkipped:   func() { skipped++ },
			IncErrors:    func() {},
		}
	}))
	jtest.RequireNil(t, err)

	cam.Step(ctx)
	cam.Step(ctx)
	require.Equal(t, 0, published)
	require.Equal(t, 2, skipped)

	// Missed periods are not caught up once the channel exists.
	jtest.RequireNil(t, bus.Declare(imageTopic, 1))
	in, err := com.NewInput[messages.CameraImage](bus, imageTopic)
	jtest.RequireNil(t, err)

	cam.Step(ctx)
	require.Equal(t, 1, published)

	_, ok := in.Read()
	require.True(t, ok)
	_, ok = in.Read()
	require.False(t, ok)
}

// TestSourceToTransformer steps a camera then a scene render and checks the scene
// copies the image's detection fields.
func TestSourceToTransformer(t *testing.T) {
	ctx := context.Background()
	bus := setupBus(t)

	cam, err := activities.NewCamera(0, bus, imageTopic)
	jtest.RequireNil(t, err)
	render, err := activities.NewSceneRender(1, bus, imageTopic, sceneTopic)
	jtest.RequireNil(t, err)
	require.Equal(t, addemo.KindTransformer, render.Kind())

	images, err := com.NewInput[messages.CameraImage](bus, imageTopic)
	jtest.RequireNil(t, err)
	scenes, err := com.NewInput[messages.Scene](bus, sceneTopic)
	jtest.RequireNil(t, err)

	for i := 0; i < 100; i++ {
		cam.Step(ctx)
		render.Step(ctx)

		img, ok := images.Read()
		require.True(t, ok)
		scene, ok := scenes.Read()
		require.True(t, ok)

		require.Equal(t, img.NumPeople, scene.NumPeople)
		require.Equal(t, img.NumCars, scene.NumCars)
		require.Equal(t, img.ObstacleDistance, scene.ObstacleDistance)
		require.GreaterOrEqual(t, scene.DistanceLeftLane, 10.0)
		require.Less(t, scene.DistanceLeftLane, 50.0)
		require.GreaterOrEqual(t, scene.DistanceRightLane, 10.0)
		require.Less(t, scene.DistanceRightLane, 50.0)
	}
}

// TestTransformerWithoutInput steps a scene render before any image was published.
func TestTransformerWithoutInput(t *testing.T) {
	ctx := context.Background()
	bus := setupBus(t)

	render, err := activities.NewSceneRender(1, bus, imageTopic, sceneTopic)
	jtest.RequireNil(t, err)
	scenes, err := com.NewInput[messages.Scene](bus, sceneTopic)
	jtest.RequireNil(t, err)

	render.Startup(ctx)
	render.Step(ctx)
	render.Step(ctx)

	_, ok := scenes.Read()
	require.False(t, ok)

	// The output slot is released by the no-op step.
	out, err := com.NewOutput[messages.CameraImage](bus, imageTopic)
	jtest.RequireNil(t, err)
	slot, ok := out.WriteUninit()
	require.True(t, ok)
	jtest.RequireNil(t, slot.WritePayload(messages.CameraImage{NumPeople: 7}).Send())

	render.Step(ctx)
	scene, ok := scenes.Read()
	require.True(t, ok)
	require.Equal(t, uint64(7), scene.NumPeople)

	render.Shutdown(ctx)
}

// TestTransformerWithoutOutput drops the image if no output slot is available.
func TestTransformerWithoutOutput(t *testing.T) {
	ctx := context.Background()
	bus := mem.New()
	jtest.RequireNil(t, bus.Declare(imageTopic, 1))

	render, err := activities.NewSceneRender(1, bus, imageTopic, sceneTopic)
	jtest.RequireNil(t, err)

	out, err := com.NewOutput[messages.CameraImage](bus, imageTopic)
	jtest.RequireNil(t, err)
	slot, ok := out.WriteUninit()
	require.True(t, ok)
	jtest.RequireNil(t, slot.Send())

	before := testutil.ToFloat64(activities.SkippedCounter("scene_render"))
	render.Step(ctx)
	require.Equal(t, before+1, testutil.ToFloat64(activities.SkippedCounter("scene_render")))

	// Declaring the scene topic does not resurrect the dropped image.
	jtest.RequireNil(t, bus.Declare(sceneTopic, 1))
	scenes, err := com.NewInput[messages.Scene](bus, sceneTopic)
	jtest.RequireNil(t, err)

	render.Step(ctx)
	_, ok = scenes.Read()
	require.False(t, ok)
}
