// Package sink provides the plain TCP sink replayed records are forwarded to.
//
// Each payload is delivered over its own short-lived connection: the client dials,
// writes the full payload and closes. There is no framing beyond one payload per connection.
package sink

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

// Send delivers the payload to addr over a new connection. The dial and the write are
// each bounded by timeout if it is positive.
func Send(ctx context.Context, addr string, payload []byte, timeout time.Duration) error {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrap(err, "dial sink", j.KS("addr", addr))
	}
	defer conn.Close()

	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return errors.Wrap(err, "set deadline")
		}
	}

	if _, err := conn.Write(payload); err != nil {
		return errors.Wrap(err, "write sink", j.KS("addr", addr))
	}

	return nil
}

// Handler is called with each received payload.
type Handler func(ctx context.Context, payload []byte)

// Listener receives payloads. Connections are handled one at a time in accept order.
type Listener struct {
	ln      net.Listener
	handler Handler
	timeout time.Duration

	wg      sync.WaitGroup
	once    sync.Once
	closing atomic.Bool
}

// Listen starts a listener on addr calling handler for every received payload.
// Use "127.0.0.1:0" for an ephemeral port.
func Listen(ctx context.Context, addr string, handler Handler) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "listen", j.KS("addr", addr))
	}

	l := &Listener{
		ln:      ln,
		handler: handler,
		timeout: time.Second * 5,
	}

	l.wg.Add(1)
	go l.serve(ctx)

	return l, nil
}

// Addr returns the listening address.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Close stops accepting connections and waits for the serving goroutine to return.
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		l.closing.Store(true)
		err = l.ln.Close()
		l.wg.Wait()
	})
	return err
}

func (l *Listener) serve(ctx context.Context) {
	defer l.wg.Done()

	for {
		conn, err := l.ln.Accept()
		if l.closing.Load() || ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return
		} else if err != nil {
			log.Error(ctx, errors.Wrap(err, "accept"))
			time.Sleep(time.Millisecond * 100)
			continue
		}

		payload, err := l.read(conn)
		if err != nil {
			// NoReturnErr: Drop the payload and continue with the next connection.
			log.Error(ctx, errors.Wrap(err, "read payload"), j.MKV{"remote": conn.RemoteAddr().String()})
			continue
		}

		sinkReceived.Inc()
		l.handler(ctx, payload)
	}
}

func (l *Listener) read(conn net.Conn) ([]byte, error) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(l.timeout)); err != nil {
		return nil, err
	}

	return io.ReadAll(conn)
}
