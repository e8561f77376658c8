// Package mem provides an in-process com.Transport.
//
// Topics must be declared with a subscriber capacity before publishers can loan slots.
// Each subscriber holds only the latest payload it has not yet received; older payloads
// are overwritten. Each publisher may have a single outstanding loan.
package mem

import (
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/corverroos/addemo/com"
)

var (
	ErrDeclared = errors.New("topic already declared", j.C("ERR_6a2e9f1c4d7b0e53"))
	ErrCapacity = errors.New("invalid topic capacity", j.C("ERR_8f1b3d6a0e9c2d47"))
)

var _ com.Transport = (*Bus)(nil)

// Bus is an in-process transport. It is safe for concurrent use.
type Bus struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	capacity int
	subs     []*subscriber
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{topics: make(map[string]*topic)}
}

// Declare creates the topic with the provided subscriber capacity.
func (b *Bus) Declare(name string, capacity int) error {
	if capacity < 0 {
		return errors.Wrap(ErrCapacity, "", j.KV("capacity", capacity))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.topics[name]; ok {
		return errors.Wrap(ErrDeclared, "", j.KS("topic", name))
	}

	b.topics[name] = &topic{capacity: capacity}
	return nil
}

// Declared returns true if the topic has been declared.
func (b *Bus) Declared(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.topics[name]
	return ok
}

// Publisher returns a write port for the topic. The topic need not be declared yet;
// loans fail until it is.
func (b *Bus) Publisher(name string) (com.Publisher, error) {
	return &publisher{bus: b, topic: name}, nil
}

// Subscriber returns a read port for the topic. It attaches immediately if the topic
// is declared and has capacity, otherwise on a later Receive.
func (b *Bus) Subscriber(name string) (com.Subscriber, error) {
	s := &subscriber{bus: b, topic: name}

	b.mu.Lock()
	b.attachLocked(s)
	b.mu.Unlock()

	return s, nil
}

func (b *Bus) attachLocked(s *subscriber) {
	if s.attached || s.closed {
		return
	}

	t, ok := b.topics[s.topic]
	if !ok || len(t.subs) >= t.capacity {
		return
	}

	t.subs = append(t.subs, s)
	s.attached = true
}

func (b *Bus) detachLocked(s *subscriber) {
	t, ok := b.topics[s.topic]
	if !ok {
		return
	}

	for i, other := range t.subs {
		if other == s {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

type publisher struct {
	bus    *Bus
	topic  string
	loaned bool
	closed bool
}

func (p *publisher) Loan() (com.Loan, bool) {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()

	if p.closed || p.loaned {
		return nil, false
	}

	if _, ok := p.bus.topics[p.topic]; !ok {
		return nil, false
	}

	p.loaned = true
	return &loan{pub: p}, true
}

func (p *publisher) Close() error {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()
	p.closed = true
	return nil
}

type loan struct {
	pub  *publisher
	done bool
}

func (l *loan) Send(payload []byte) error {
	b := l.pub.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	if l.done {
		return errors.New("loan already used")
	}
	l.done = true
	l.pub.loaned = false

	if l.pub.closed {
		return com.ErrClosed
	}

	t, ok := b.topics[l.pub.topic]
	if !ok {
		return errors.New("topic not declared", j.KS("topic", l.pub.topic))
	}

	for _, s := range t.subs {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		s.latest = cp
	}

	return nil
}

func (l *loan) Release() {
	l.pub.bus.mu.Lock()
	defer l.pub.bus.mu.Unlock()

	if l.done {
		return
	}
	l.done = true
	l.pub.loaned = false
}

type subscriber struct {
	bus      *Bus
	topic    string
	attached bool
	closed   bool
	latest   []byte
}

func (s *subscriber) Receive() ([]byte, bool) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	s.bus.attachLocked(s)

	if s.latest == nil {
		return nil, false
	}

	b := s.latest
	s.latest = nil
	return b, true
}

func (s *subscriber) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.attached {
		s.bus.detachLocked(s)
		s.attached = false
	}
	s.latest = nil
	return nil
}
