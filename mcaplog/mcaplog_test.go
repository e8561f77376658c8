package mcaplog_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/corverroos/addemo/mcaplog"
	"github.com/corverroos/addemo/test"
)

func TestCursor(t *testing.T) {
	path := test.WriteMcap(t, `{"a":1}`, `{"a":2}`, `{"a":3}`)

	l, err := mcaplog.Open(path)
	jtest.RequireNil(t, err)
	defer l.Close()
	require.Greater(t, l.Size(), 0)

	c, err := l.Cursor()
	jtest.RequireNil(t, err)

	var prev uint64
	for _, want := range []string{`{"a":1}`, `{"a":2}`, `{"a":3}`} {
		r, err := c.Next()
		jtest.RequireNil(t, err)
		require.Equal(t, want, string(r.Data))
		require.Equal(t, test.GPSTopic, r.Topic)
		require.Greater(t, r.LogTime, prev)
		prev = r.LogTime
	}

	for i := 0; i < 3; i++ {
		_, err := c.Next()
		require.True(t, errors.Is(err, io.EOF))
	}
}

func TestEmptyLog(t *testing.T) {
	l, err := mcaplog.Open(test.WriteMcap(t))
	jtest.RequireNil(t, err)
	defer l.Close()

	c, err := l.Cursor()
	jtest.RequireNil(t, err)

	_, err = c.Next()
	require.True(t, errors.Is(err, io.EOF))
}

func TestOpenMissing(t *testing.T) {
	_, err := mcaplog.Open(filepath.Join(t.TempDir(), "missing.mcap"))
	require.Error(t, err)
}

func TestNotMcap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.mcap")
	jtest.RequireNil(t, os.WriteFile(path, []byte("definitely not an mcap file"), 0644))

	l, err := mcaplog.Open(path)
	jtest.RequireNil(t, err)
	defer l.Close()

	_, err = l.Cursor()
	require.Error(t, err)
}

func TestClose(t *testing.T) {
	l, err := mcaplog.Open(test.WriteMcap(t, `{}`))
	jtest.RequireNil(t, err)

	jtest.RequireNil(t, l.Close())
	jtest.RequireNil(t, l.Close())

	_, err = l.Cursor()
	jtest.Require(t, mcaplog.ErrClosed, err)
}

func TestWriteTopics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.mcap")
	f, err := os.Create(path)
	jtest.RequireNil(t, err)

	err = mcaplog.Write(f, "test",
		mcaplog.Record{Topic: "/a", LogTime: 1, Data: []byte(`1`)},
		mcaplog.Record{Topic: "/b", LogTime: 2, Data: []byte(`2`)},
		mcaplog.Record{Topic: "/a", LogTime: 3, Data: []byte(`3`)})
	jtest.RequireNil(t, err)
	jtest.RequireNil(t, f.Close())

	l, err := mcaplog.Open(path)
	jtest.RequireNil(t, err)
	defer l.Close()

	c, err := l.Cursor()
	jtest.RequireNil(t, err)

	for _, want := range []mcaplog.Record{
		{Topic: "/a", LogTime: 1, Data: []byte(`1`)},
		{Topic: "/b", LogTime: 2, Data: []byte(`2`)},
		{Topic: "/a", LogTime: 3, Data: []byte(`3`)},
	} {
		r, err := c.Next()
		jtest.RequireNil(t, err)
		require.Equal(t, want, r)
	}
}
