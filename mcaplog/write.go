package mcaplog

import (
	"io"

	"github.com/foxglove/mcap/go/mcap"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Write writes the records as an unchunked MCAP log of JSON messages. A channel is
// written for each distinct topic in order of first appearance.
func Write(w io.Writer, schema string, records ...Record) error {
	mw, err := mcap.NewWriter(w, &mcap.WriterOptions{})
	if err != nil {
		return errors.Wrap(err, "mcap writer")
	}

	if err := mw.WriteHeader(&mcap.Header{Library: "addemo"}); err != nil {
		return errors.Wrap(err, "write header")
	}

	if err := mw.WriteSchema(&mcap.Schema{
		ID:       1,
		Name:     schema,
		Encoding: "jsonschema",
		Data:     []byte(`{"type":"object"}`),
	}); err != nil {
		return errors.Wrap(err, "write schema")
	}

	channels := make(map[string]uint16)
	seqs := make(map[uint16]uint32)
	for _, r := range records {
		id, ok := channels[r.Topic]
		if !ok {
			id = uint16(len(channels))
			channels[r.Topic] = id

			if err := mw.WriteChannel(&mcap.Channel{
				ID:              id,
				SchemaID:        1,
				Topic:           r.Topic,
				MessageEncoding: "json",
			}); err != nil {
				return errors.Wrap(err, "write channel", j.KS("topic", r.Topic))
			}
		}

		if err := mw.WriteMessage(&mcap.Message{
			ChannelID:   id,
			Sequence:    seqs[id],
			LogTime:     r.LogTime,
			PublishTime: r.LogTime,
			Data:        r.Data,
		}); err != nil {
			return errors.Wrap(err, "write message", j.KS("topic", r.Topic))
		}
		seqs[id]++
	}

	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "close mcap writer")
	}

	return nil
}
