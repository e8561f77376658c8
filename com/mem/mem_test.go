package mem_test

import (
	"testing"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/corverroos/addemo/com"
	"github.com/corverroos/addemo/com/mem"
	"github.com/corverroos/addemo/messages"
)

const topic = "test/topic"

func TestUndeclared(t *testing.T) {
	bus := mem.New()

	out, err := com.NewOutput[messages.CameraImage](bus, topic)
	jtest.RequireNil(t, err)

	_, ok := out.WriteUninit()
	require.False(t, ok)

	in, err := com.NewInput[messages.CameraImage](bus, topic)
	jtest.RequireNil(t, err)

	_, ok = in.Read()
	require.False(t, ok)

	// Declaring later attaches the subscriber lazily.
	jtest.RequireNil(t, bus.Declare(topic, 1))
	_, ok = in.Read()
	require.False(t, ok)

	slot, ok := out.WriteUninit()
	require.True(t, ok)
	jtest.RequireNil(t, slot.WritePayload(messages.CameraImage{NumCars: 3}).Send())

	img, ok := in.Read()
	require.True(t, ok)
	require.Equal(t, uint64(3), img.NumCars)
}

func TestLatestOnly(t *testing.T) {
	bus := mem.New()
	jtest.RequireNil(t, bus.Declare(topic, 1))

	out, err := com.NewOutput[messages.CameraImage](bus, topic)
	jtest.RequireNil(t, err)
	in, err := com.NewInput[messages.CameraImage](bus, topic)
	jtest.RequireNil(t, err)

	for i := 1; i <= 3; i++ {
		slot, ok := out.WriteUninit()
		require.True(t, ok)
		jtest.RequireNil(t, slot.WritePayload(messages.CameraImage{NumPeople: uint64(i)}).Send())
	}

	img, ok := in.Read()
	require.True(t, ok)
	require.Equal(t, uint64(3), img.NumPeople)

	_, ok = in.Read()
	require.False(t, ok)
}

func TestSingleLoan(t *testing.T) {
	bus := mem.New()
	jtest.RequireNil(t, bus.Declare(topic, 0))

	out, err := com.NewOutput[messages.Scene](bus, topic)
	jtest.RequireNil(t, err)

	slot, ok := out.WriteUninit()
	require.True(t, ok)

	_, ok = out.WriteUninit()
	require.False(t, ok, "saturated")

	slot.Release()

	slot, ok = out.WriteUninit()
	require.True(t, ok)
	jtest.RequireNil(t, slot.Send())

	err = slot.Send()
	require.Error(t, err)
}

func TestCapacity(t *testing.T) {
	bus := mem.New()
	jtest.RequireNil(t, bus.Declare(topic, 1))

	out, err := com.NewOutput[messages.CameraImage](bus, topic)
	jtest.RequireNil(t, err)
	in1, err := com.NewInput[messages.CameraImage](bus, topic)
	jtest.RequireNil(t, err)
	in2, err := com.NewInput[messages.CameraImage](bus, topic)
	jtest.RequireNil(t, err)

	slot, ok := out.WriteUninit()
	require.True(t, ok)
	jtest.RequireNil(t, slot.Send())

	_, ok = in1.Read()
	require.True(t, ok)
	_, ok = in2.Read()
	require.False(t, ok, "over capacity")

	// Closing the first subscriber frees capacity for the second.
	jtest.RequireNil(t, in1.Close())

	slot, ok = out.WriteUninit()
	require.True(t, ok)
	jtest.RequireNil(t, slot.Send())

	_, ok = in2.Read()
	require.False(t, ok, "attached after send")

	slot, ok = out.WriteUninit()
	require.True(t, ok)
	jtest.RequireNil(t, slot.Send())

	_, ok = in2.Read()
	require.True(t, ok)
}

func TestDeclare(t *testing.T) {
	bus := mem.New()
	jtest.RequireNil(t, bus.Declare(topic, 2))
	require.True(t, bus.Declared(topic))

	err := bus.Declare(topic, 2)
	require.True(t, errors.Is(err, mem.ErrDeclared))

	err = bus.Declare("other", -1)
	require.True(t, errors.Is(err, mem.ErrCapacity))
}

func TestClosedPublisher(t *testing.T) {
	bus := mem.New()
	jtest.RequireNil(t, bus.Declare(topic, 1))

	out, err := com.NewOutput[messages.CameraImage](bus, topic)
	jtest.RequireNil(t, err)

	slot, ok := out.WriteUninit()
	require.True(t, ok)
	jtest.RequireNil(t, out.Close())

	err = slot.Send()
	jtest.Require(t, com.ErrClosed, err)

	_, ok = out.WriteUninit()
	require.False(t, ok)
}

func TestDecodeFailure(t *testing.T) {
	bus := mem.New()
	jtest.RequireNil(t, bus.Declare(topic, 1))

	// Publish a Scene on a topic read as CameraImage.
	out, err := com.NewOutput[messages.Scene](bus, topic)
	jtest.RequireNil(t, err)
	in, err := com.NewInput[messages.CameraImage](bus, topic)
	jtest.RequireNil(t, err)

	slot, ok := out.WriteUninit()
	require.True(t, ok)
	jtest.RequireNil(t, slot.Send())

	_, ok = in.Read()
	require.False(t, ok)
}
