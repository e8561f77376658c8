// Package mcaplog provides sequential read access to a memory-mapped MCAP log.
//
// A Log owns the mapping. Cursors borrow the mapped bytes and may not be used after
// the Log is closed.
package mcaplog

import (
	"bytes"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/foxglove/mcap/go/mcap"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

var ErrClosed = errors.New("log closed", j.C("ERR_d1a4c7e0b3f69a25"))

// Log is a read-only memory-mapped MCAP file.
type Log struct {
	path string
	m    mmap.MMap
}

// Open maps the file at path.
func Open(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open mcap", j.KS("path", path))
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrap(err, "map mcap", j.KS("path", path))
	}

	return &Log{path: path, m: m}, nil
}

// Path returns the path of the mapped file.
func (l *Log) Path() string {
	return l.path
}

// Size returns the number of mapped bytes.
func (l *Log) Size() int {
	return len(l.m)
}

// Cursor returns a new cursor positioned before the first message of the log.
func (l *Log) Cursor() (*Cursor, error) {
	if l.m == nil {
		return nil, ErrClosed
	}

	r, err := mcap.NewReader(bytes.NewReader(l.m))
	if err != nil {
		return nil, errors.Wrap(err, "mcap reader", j.KS("path", l.path))
	}

	it, err := r.Messages(mcap.UsingIndex(false))
	if err != nil {
		return nil, errors.Wrap(err, "mcap messages", j.KS("path", l.path))
	}

	return &Cursor{it: it}, nil
}

// Close releases the mapping. It is safe to call more than once.
func (l *Log) Close() error {
	if l.m == nil {
		return nil
	}

	err := l.m.Unmap()
	l.m = nil
	if err != nil {
		return errors.Wrap(err, "unmap mcap", j.KS("path", l.path))
	}

	return nil
}

// Record is a single logged message.
type Record struct {
	Topic   string
	LogTime uint64
	Data    []byte
}

// Cursor iterates the messages of a log in file order.
type Cursor struct {
	it   mcap.MessageIterator
	done bool
}

// Next returns the next record. It returns io.EOF once the log is exhausted and on every
// call thereafter. Any other error applies to the current record only.
func (c *Cursor) Next() (Record, error) {
	if c.done {
		return Record{}, io.EOF
	}

	_, ch, msg, err := c.it.Next(nil)
	if errors.Is(err, io.EOF) {
		c.done = true
		return Record{}, io.EOF
	} else if err != nil {
		return Record{}, errors.Wrap(err, "next mcap message")
	}

	var topic string
	if ch != nil {
		topic = ch.Topic
	}

	data := make([]byte, len(msg.Data))
	copy(data, msg.Data)

	return Record{
		Topic:   topic,
		LogTime: msg.LogTime,
		Data:    data,
	}, nil
}
