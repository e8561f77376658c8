// Package addemo provides the activity contract and topology types of a periodic,
// graph-structured perception pipeline: activities are grouped onto workers, workers
// onto agents, and activities exchange messages over named topics.
package addemo

import (
	"context"
	"strconv"

	"github.com/corverroos/addemo/com"
)

// ActivityID identifies an activity. It is unique across the topology.
type ActivityID uint32

func (id ActivityID) String() string {
	return "A" + strconv.FormatUint(uint64(id), 10)
}

// WorkerID identifies a worker; an execution context stepping an ordered set of activities.
type WorkerID uint32

func (id WorkerID) String() string {
	return "W" + strconv.FormatUint(uint64(id), 10)
}

// AgentID identifies an agent; a process level grouping of workers.
type AgentID uint32

func (id AgentID) String() string {
	return "G" + strconv.FormatUint(uint64(id), 10)
}

// Kind is the tag of the closed set of activity variants.
type Kind int

const (
	KindUnknown      Kind = 0
	KindSource       Kind = 1
	KindTransformer  Kind = 2
	KindReplayBridge Kind = 3
	kindSentinel     Kind = 4
)

func (k Kind) Valid() bool {
	return k > KindUnknown && k < kindSentinel
}

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindTransformer:
		return "transformer"
	case KindReplayBridge:
		return "replay_bridge"
	default:
		return "unknown"
	}
}

// Activity is a schedulable unit driven by a runtime. The runtime calls Startup once,
// Step once per period and Shutdown once. None of the methods may wait for data;
// a step without input or output capacity is a no-op.
//
// An activity instance is owned by exactly one worker and is never stepped concurrently.
type Activity interface {
	ID() ActivityID
	Kind() Kind
	Startup(ctx context.Context)
	Step(ctx context.Context)
	Shutdown(ctx context.Context)
}

// Builder constructs an activity with the provided id binding its ports via the transport.
// Builders must be pure functions of their declared parameters (topic names, paths).
// An error is fatal to the process.
type Builder func(id ActivityID, tr com.Transport) (Activity, error)

// ActivityIDAndBuilder is a deferred activity.
type ActivityIDAndBuilder struct {
	ID    ActivityID
	Build Builder
}

// WorkerAssignment is the ordered sequence of activities stepped by a worker.
type WorkerAssignment struct {
	Worker     WorkerID
	Activities []ActivityIDAndBuilder
}

// WorkerActivities is the builder-erased view of a WorkerAssignment.
type WorkerActivities struct {
	Worker     WorkerID     `json:"worker"`
	Activities []ActivityID `json:"activities"`
}

// ActivityDependencies maps each activity to its prerequisites.
type ActivityDependencies map[ActivityID][]ActivityID

// IDs returns the builder-erased view of the worker assignments.
func IDs(workers []WorkerAssignment) []WorkerActivities {
	res := make([]WorkerActivities, 0, len(workers))
	for _, w := range workers {
		ids := make([]ActivityID, 0, len(w.Activities))
		for _, a := range w.Activities {
			ids = append(ids, a.ID)
		}
		res = append(res, WorkerActivities{Worker: w.Worker, Activities: ids})
	}
	return res
}
