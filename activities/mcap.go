package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"
	"unicode/utf8"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/corverroos/addemo"
	"github.com/corverroos/addemo/com"
	"github.com/corverroos/addemo/mcaplog"
)

// Sentinel is forwarded instead of a record once the log is exhausted
// or if the current record cannot be decoded.
const Sentinel = "no message left"

var _ addemo.Activity = (*McapBridge)(nil)

// McapBridge replays the JSON messages of an MCAP log, one per step, forwarding each
// as compact JSON to a TCP sink over a new connection.
//
// The bridge owns the mapped log for its lifetime; the cursor borrows from it and is
// dropped together with the mapping on Shutdown.
type McapBridge struct {
	id       addemo.ActivityID
	log      *mcaplog.Log
	cursor   *mcaplog.Cursor
	sinkAddr string
	timeout  time.Duration
	send     func(ctx context.Context, addr string, payload []byte, timeout time.Duration) error
	metrics  Metrics
}

// McapBridgeBuilder returns a builder of bridges replaying the log at path onto the sink.
// The bridge has no ports, the transport is ignored.
func McapBridgeBuilder(path, sinkAddr string, opts ...option) addemo.Builder {
	return func(id addemo.ActivityID, _ com.Transport) (addemo.Activity, error) {
		return NewMcapBridge(id, path, sinkAddr, opts...)
	}
}

// NewMcapBridge maps the log at path and returns a bridge forwarding to sinkAddr.
// An error is returned if the log cannot be opened, mapped or read as MCAP.
func NewMcapBridge(id addemo.ActivityID, path, sinkAddr string, opts ...option) (*McapBridge, error) {
	o := resolve(opts)

	l, err := mcaplog.Open(path)
	if err != nil {
		return nil, err
	}

	cursor, err := l.Cursor()
	if err != nil {
		_ = l.Close()
		return nil, err
	}

	return &McapBridge{
		id:       id,
		log:      l,
		cursor:   cursor,
		sinkAddr: sinkAddr,
		timeout:  o.dialTimeout,
		send:     o.send,
		metrics:  o.metrics("mcap"),
	}, nil
}

func (b *McapBridge) ID() addemo.ActivityID {
	return b.id
}

func (b *McapBridge) Kind() addemo.Kind {
	return addemo.KindReplayBridge
}

func (b *McapBridge) Startup(ctx context.Context) {
	log.Info(ctx, "mcap bridge startup", j.MKV{
		"activity": b.id,
		"path":     b.log.Path(),
		"sink":     b.sinkAddr,
	})
}

// Step forwards the next record, or the sentinel if there is none.
func (b *McapBridge) Step(ctx context.Context) {
	if b.cursor == nil {
		// Shut down.
		return
	}

	payload, ok := b.next(ctx)
	if ok {
		replayRecords.WithLabelValues("record").Inc()
	} else {
		payload = []byte(Sentinel)
		replayRecords.WithLabelValues("sentinel").Inc()
	}

	if err := b.send(ctx, b.sinkAddr, payload, b.timeout); err != nil {
		// NoReturnErr: Forwarding is best effort, the next step sends the next record.
		log.Error(ctx, errors.Wrap(err, "forward replay payload"), j.MKV{"activity": b.id})
		b.metrics.IncErrors()
		return
	}

	b.metrics.IncPublished()
}

// Shutdown releases the mapped log. Subsequent steps are no-ops.
func (b *McapBridge) Shutdown(ctx context.Context) {
	b.cursor = nil
	if err := b.log.Close(); err != nil {
		log.Error(ctx, errors.Wrap(err, "close mcap log"))
	}
	log.Info(ctx, "mcap bridge shutdown", j.MKV{"activity": b.id})
}

// next advances the cursor and returns the record as compact JSON. It returns false if the
// log is exhausted or the record cannot be decoded; the cursor advances regardless.
func (b *McapBridge) next(ctx context.Context) ([]byte, bool) {
	r, err := b.cursor.Next()
	if errors.Is(err, io.EOF) {
		return nil, false
	} else if err != nil {
		log.Error(ctx, errors.Wrap(err, "read mcap record"), j.MKV{"activity": b.id})
		return nil, false
	}

	payload, err := compactJSON(r.Data)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "decode mcap record"), j.MKV{
			"activity": b.id,
			"topic":    r.Topic,
			"log_time": r.LogTime,
		})
		return nil, false
	}

	return payload, true
}

// compactJSON decodes data as a single UTF-8 JSON document and re-encodes it without
// insignificant whitespace. Object keys are sorted and numbers kept verbatim.
func compactJSON(data []byte) ([]byte, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("invalid utf8 in json document")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "decode json")
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after json document")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "encode json")
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
