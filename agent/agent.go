// Package agent selects the role of the current process from the topology and runs its workers.
package agent

import (
	"context"
	"sort"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"golang.org/x/sync/errgroup"

	"github.com/corverroos/addemo"
	"github.com/corverroos/addemo/com"
	"github.com/corverroos/addemo/com/mem"
	"github.com/corverroos/addemo/config"
	"github.com/corverroos/addemo/worker"
)

var ErrUnknownAgent = errors.New("agent not in topology", j.C("ERR_3d7b1f9e2a4c8e06"))

// Agent is the slice of the topology executed by a single process.
type Agent struct {
	ID      addemo.AgentID
	Workers []addemo.WorkerAssignment

	// Local are the activities of the agent in ascending order.
	Local []addemo.ActivityID

	BindSenders     string
	BindReceivers   string
	ListenerSockets [2]string
}

// Select returns the agent with the provided id or ErrUnknownAgent.
func Select(c config.Config, id addemo.AgentID) (Agent, error) {
	workers, ok := c.AgentAssignments()[id]
	if !ok {
		return Agent{}, errors.Wrap(ErrUnknownAgent, "", j.KV("agent", id))
	}

	var local []addemo.ActivityID
	for _, w := range addemo.IDs(workers) {
		local = append(local, w.Activities...)
	}
	sort.Slice(local, func(i, j int) bool {
		return local[i] < local[j]
	})

	return Agent{
		ID:              id,
		Workers:         workers,
		Local:           local,
		BindSenders:     c.BindSenders,
		BindReceivers:   c.BindReceivers,
		ListenerSockets: c.ListenerSockets,
	}, nil
}

// Topics returns the topics any local activity participates in.
func (a Agent) Topics(topics []addemo.TopicSpec) []addemo.TopicSpec {
	var res []addemo.TopicSpec
	for _, t := range topics {
		if t.Involves(a.Local...) {
			res = append(res, t)
		}
	}
	return res
}

// DeclareTopics declares on the bus the topics a local activity participates in with
// the declared subscribers plus reserve as capacity. Topics already declared, for instance
// by another agent sharing the bus, are skipped.
func DeclareTopics(bus *mem.Bus, topics []addemo.TopicSpec, local []addemo.ActivityID, reserve int) error {
	for _, t := range topics {
		if !t.Involves(local...) || bus.Declared(t.Topic) {
			continue
		}

		err := bus.Declare(t.Topic, t.Capacity(reserve))
		if err != nil {
			return errors.Wrap(err, "declare topic", j.KS("topic", t.Topic))
		}
	}

	return nil
}

// Worker is a worker with its activities built.
type Worker struct {
	ID         addemo.WorkerID
	Activities []addemo.Activity
}

// Build instantiates the activities of each worker in declared order. Any error
// is fatal to the agent; activities built before the failure are shut down.
func Build(a Agent, tr com.Transport) ([]Worker, error) {
	var res []Worker
	for _, w := range a.Workers {
		built := Worker{ID: w.Worker}
		for _, ab := range w.Activities {
			act, err := ab.Build(ab.ID, tr)
			if err != nil {
				shutdown(append(res, built))
				return nil, errors.Wrap(err, "build activity",
					j.KV("agent", a.ID), j.KV("worker", w.Worker), j.KV("activity", ab.ID))
			}
			built.Activities = append(built.Activities, act)
		}
		res = append(res, built)
	}

	return res, nil
}

func shutdown(workers []Worker) {
	ctx := context.Background()
	for _, w := range workers {
		for _, act := range w.Activities {
			act.Shutdown(ctx)
		}
	}
}

// Run builds the agent's workers and runs each on its own goroutine until the context
// is done.
func Run(ctx context.Context, a Agent, tr com.Transport, period time.Duration) error {
	workers, err := Build(a, tr)
	if err != nil {
		return err
	}

	log.Info(ctx, "agent running", j.MKV{
		"agent":   a.ID.String(),
		"workers": len(workers),
		"local":   len(a.Local),
	})

	eg, ctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		eg.Go(func() error {
			return worker.Run(ctx, w.ID, w.Activities, period)
		})
	}

	return eg.Wait()
}
