// Package natscom provides a com.Transport over NATS core publish/subscribe.
//
// Publishing never waits for the server; the nats client buffers outgoing messages and
// reconnects in the background. Subscribers keep only the latest payload.
package natscom

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/nats-io/nats.go"

	"github.com/corverroos/addemo/com"
)

const prefix = "addemo"

var _ com.Transport = Transport{}

// Transport is a NATS backed transport.
type Transport struct {
	nc *nats.Conn
}

// New returns a transport using the provided connection.
func New(nc *nats.Conn) Transport {
	return Transport{nc: nc}
}

// Connect connects to the NATS server at url and returns a transport.
func Connect(url, name string) (Transport, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second))
	if err != nil {
		return Transport{}, errors.Wrap(err, "connect nats", j.KS("url", url))
	}

	return New(nc), nil
}

// NewForTesting returns a transport connected to a local NATS server. It skips the test
// if no server is available.
func NewForTesting(t *testing.T) Transport {
	nc, err := nats.Connect(nats.DefaultURL, nats.Timeout(time.Second))
	if err != nil {
		t.Skipf("nats not available: %v", err)
	}

	t.Cleanup(nc.Close)

	return New(nc)
}

// Close closes the underlying connection.
func (t Transport) Close() {
	t.nc.Close()
}

func (t Transport) Publisher(topic string) (com.Publisher, error) {
	return &publisher{nc: t.nc, subject: Subject(topic)}, nil
}

func (t Transport) Subscriber(topic string) (com.Subscriber, error) {
	s := new(subscriber)

	sub, err := t.nc.Subscribe(Subject(topic), func(msg *nats.Msg) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.latest = msg.Data
	})
	if err != nil {
		return nil, errors.Wrap(err, "subscribe", j.KS("topic", topic))
	}

	s.sub = sub
	return s, nil
}

// Subject returns the NATS subject of a topic.
func Subject(topic string) string {
	return joinsub(prefix, strings.ReplaceAll(strings.Trim(topic, "/"), "/", "."))
}

type publisher struct {
	mu      sync.Mutex
	nc      *nats.Conn
	subject string
	loaned  bool
	closed  bool
}

func (p *publisher) Loan() (com.Loan, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.loaned || !p.nc.IsConnected() {
		return nil, false
	}

	p.loaned = true
	return &loan{pub: p}, true
}

func (p *publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type loan struct {
	pub  *publisher
	done bool
}

func (l *loan) Send(payload []byte) error {
	l.pub.mu.Lock()
	defer l.pub.mu.Unlock()

	if l.done {
		return errors.New("loan already used")
	}
	l.done = true
	l.pub.loaned = false

	if l.pub.closed {
		return com.ErrClosed
	}

	return l.pub.nc.Publish(l.pub.subject, payload)
}

func (l *loan) Release() {
	l.pub.mu.Lock()
	defer l.pub.mu.Unlock()
	if l.done {
		return
	}
	l.done = true
	l.pub.loaned = false
}

type subscriber struct {
	mu     sync.Mutex
	sub    *nats.Subscription
	latest []byte
}

func (s *subscriber) Receive() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == nil {
		return nil, false
	}

	b := s.latest
	s.latest = nil
	return b, true
}

func (s *subscriber) Close() error {
	return s.sub.Unsubscribe()
}

func joinsub(strs ...string) string {
	for i := 0; i < len(strs); i++ {
		if strs[i] == "" {
			strs[i] = "_"
		}
	}
	return strings.Join(strs, ".")
}
