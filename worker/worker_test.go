package worker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/corverroos/addemo"
	"github.com/corverroos/addemo/worker"
)

type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, s)
}

func (c *calls) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

type fake struct {
	id     addemo.ActivityID
	calls  *calls
	steps  int
	onStep func(n int)
}

func (f *fake) ID() addemo.ActivityID { return f.id }
func (f *fake) Kind() addemo.Kind     { return addemo.KindSource }

func (f *fake) Startup(context.Context) {
	f.calls.add(fmt.Sprintf("startup %d", f.id))
}

func (f *fake) Step(context.Context) {
	f.steps++
	f.calls.add(fmt.Sprintf("step %d", f.id))
	if f.onStep != nil {
		f.onStep(f.steps)
	}
}

func (f *fake) Shutdown(context.Context) {
	f.calls.add(fmt.Sprintf("shutdown %d", f.id))
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c calls
	a := &fake{id: 0, calls: &c}
	b := &fake{id: 1, calls: &c, onStep: func(n int) {
		if n == 3 {
			cancel()
		}
	}}

	err := worker.Run(ctx, 40, []addemo.Activity{a, b}, time.Millisecond)
	jtest.RequireNil(t, err)

	require.Equal(t, []string{
		"startup 0", "startup 1",
		"step 0", "step 1",
		"step 0", "step 1",
		"step 0", "step 1",
		"shutdown 0", "shutdown 1",
	}, c.get())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var c calls
	err := worker.Run(ctx, 40, []addemo.Activity{&fake{id: 5, calls: &c}}, time.Millisecond)
	jtest.RequireNil(t, err)
	require.Equal(t, []string{"startup 5", "shutdown 5"}, c.get())
}

func TestRunInvalidPeriod(t *testing.T) {
	err := worker.Run(context.Background(), 40, nil, 0)
	jtest.Require(t, worker.ErrInvalidPeriod, err)
}
