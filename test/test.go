// Package test provides shared helpers for tests.
package test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"

	"github.com/corverroos/addemo/mcaplog"
	"github.com/corverroos/addemo/sink"
)

// GPSTopic is the channel topic of fixture logs.
const GPSTopic = "/gps/fix"

// WriteMcap writes an unchunked MCAP file containing one JSON message per payload on a
// single channel and returns its path.
func WriteMcap(t testing.TB, payloads ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.mcap")
	f, err := os.Create(path)
	jtest.RequireNil(t, err)
	defer f.Close()

	jtest.RequireNil(t, WriteMessages(f, GPSTopic, payloads...))

	return path
}

// WriteMessages writes an MCAP stream to f containing one message per payload.
func WriteMessages(f *os.File, topic string, payloads ...string) error {
	t0 := uint64(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())

	var records []mcaplog.Record
	for i, p := range payloads {
		records = append(records, mcaplog.Record{
			Topic:   topic,
			LogTime: t0 + uint64(i)*uint64(time.Second),
			Data:    []byte(p),
		})
	}

	return mcaplog.Write(f, "foxglove.LocationFix", records...)
}

// Sink is a local sink capturing received payloads.
type Sink struct {
	*sink.Listener
	ch chan string
}

// StartSink starts a sink on an ephemeral port that is closed when the test completes.
func StartSink(t testing.TB) *Sink {
	t.Helper()

	s := &Sink{ch: make(chan string, 1024)}

	l, err := sink.Listen(context.Background(), "127.0.0.1:0", func(_ context.Context, payload []byte) {
		s.ch <- string(payload)
	})
	jtest.RequireNil(t, err)

	s.Listener = l
	t.Cleanup(func() {
		_ = l.Close()
	})

	return s
}

// Next returns the next received payload. It fails the test after a timeout.
func (s *Sink) Next(t testing.TB) string {
	t.Helper()

	select {
	case p := <-s.ch:
		return p
	case <-time.After(time.Second * 5):
		t.Fatalf("timeout waiting for sink payload")
		return ""
	}
}

// Recorder records received values in order. It is safe for concurrent use.
type Recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *Recorder[T]) Add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}
