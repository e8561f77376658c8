package sink_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/corverroos/addemo/sink"
)

func TestSendReceive(t *testing.T) {
	ctx := context.Background()
	ch := make(chan string, 10)

	l, err := sink.Listen(ctx, "127.0.0.1:0", func(_ context.Context, payload []byte) {
		ch <- string(payload)
	})
	jtest.RequireNil(t, err)
	defer l.Close()

	for i := 0; i < 5; i++ {
		err := sink.Send(ctx, l.Addr(), []byte(fmt.Sprintf(`{"i":%d}`, i)), time.Second)
		jtest.RequireNil(t, err)
	}

	for i := 0; i < 5; i++ {
		select {
		case got := <-ch:
			require.Equal(t, fmt.Sprintf(`{"i":%d}`, i), got)
		case <-time.After(time.Second * 5):
			require.Fail(t, "timeout")
		}
	}
}

func TestSendNoListener(t *testing.T) {
	// Reserve a port and release it so nothing listens on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	jtest.RequireNil(t, err)
	addr := ln.Addr().String()
	jtest.RequireNil(t, ln.Close())

	err = sink.Send(context.Background(), addr, []byte("x"), time.Millisecond*100)
	require.Error(t, err)
}

func TestCloseIdempotent(t *testing.T) {
	l, err := sink.Listen(context.Background(), "127.0.0.1:0", func(context.Context, []byte) {})
	jtest.RequireNil(t, err)
	jtest.RequireNil(t, l.Close())
	jtest.RequireNil(t, l.Close())
}
