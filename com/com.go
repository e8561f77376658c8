// Package com provides the non-blocking ports activities use to exchange messages over
// named topics. A Transport carries encoded messages; Output and Input add typing on top.
//
// Absence of data or capacity is a normal outcome reported by a false return value,
// never an error.
package com

import (
	"encoding"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// ErrClosed is returned when sending on a closed port.
var ErrClosed = errors.New("port closed", j.C("ERR_3e9d1a7c5b0f2e84"))

// Transport creates byte level ports bound to topics.
type Transport interface {
	Publisher(topic string) (Publisher, error)
	Subscriber(topic string) (Subscriber, error)
}

// Publisher is the write end of a topic.
type Publisher interface {
	// Loan reserves a send slot. It returns false if the topic has no channel or
	// the channel is saturated.
	Loan() (Loan, bool)
	Close() error
}

// Loan is a reserved send slot. Exactly one of Send or Release must be called.
type Loan interface {
	Send(payload []byte) error
	Release()
}

// Subscriber is the read end of a topic.
type Subscriber interface {
	// Receive returns the most recent payload not yet received, or false if none.
	Receive() ([]byte, bool)
	Close() error
}

// Message constrains T to value messages with a binary encoding.
type Message[T any] interface {
	*T
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Output is a typed write port.
type Output[T any] struct {
	topic  string
	pub    Publisher
	encode func(*T) ([]byte, error)
}

// NewOutput returns a typed write port on the topic.
func NewOutput[T any, PT Message[T]](tr Transport, topic string) (*Output[T], error) {
	pub, err := tr.Publisher(topic)
	if err != nil {
		return nil, errors.Wrap(err, "publisher", j.KS("topic", topic))
	}

	return &Output[T]{
		topic: topic,
		pub:   pub,
		encode: func(v *T) ([]byte, error) {
			return PT(v).MarshalBinary()
		},
	}, nil
}

// Topic returns the topic of the port.
func (o *Output[T]) Topic() string {
	return o.topic
}

// WriteUninit tries to acquire a send slot. It returns false if none is available.
func (o *Output[T]) WriteUninit() (*Slot[T], bool) {
	loan, ok := o.pub.Loan()
	if !ok {
		return nil, false
	}
	return &Slot[T]{loan: loan, encode: o.encode}, true
}

// Close closes the port.
func (o *Output[T]) Close() error {
	return o.pub.Close()
}

// Slot is an acquired send slot.
type Slot[T any] struct {
	loan   Loan
	encode func(*T) ([]byte, error)
	value  T
	done   bool
}

// WritePayload fills the slot.
func (s *Slot[T]) WritePayload(v T) *Slot[T] {
	s.value = v
	return s
}

// Send encodes and sends the slot's payload. The slot may not be reused.
func (s *Slot[T]) Send() error {
	if s.done {
		return errors.New("slot already sent")
	}
	s.done = true

	b, err := s.encode(&s.value)
	if err != nil {
		s.loan.Release()
		return errors.Wrap(err, "encode")
	}

	return s.loan.Send(b)
}

// Release returns the slot without sending.
func (s *Slot[T]) Release() {
	if s.done {
		return
	}
	s.done = true
	s.loan.Release()
}

// Input is a typed read port.
type Input[T any] struct {
	topic  string
	sub    Subscriber
	decode func([]byte) (T, error)
}

// NewInput returns a typed read port on the topic.
func NewInput[T any, PT Message[T]](tr Transport, topic string) (*Input[T], error) {
	sub, err := tr.Subscriber(topic)
	if err != nil {
		return nil, errors.Wrap(err, "subscriber", j.KS("topic", topic))
	}

	return &Input[T]{
		topic: topic,
		sub:   sub,
		decode: func(b []byte) (T, error) {
			var v T
			err := PT(&v).UnmarshalBinary(b)
			return v, err
		},
	}, nil
}

// Topic returns the topic of the port.
func (i *Input[T]) Topic() string {
	return i.topic
}

// Read returns the latest available value. It returns false if no value is available
// or the available value cannot be decoded.
func (i *Input[T]) Read() (T, bool) {
	var zero T

	b, ok := i.sub.Receive()
	if !ok {
		return zero, false
	}

	v, err := i.decode(b)
	if err != nil {
		return zero, false
	}

	return v, true
}

// Close closes the port.
func (i *Input[T]) Close() error {
	return i.sub.Close()
}
