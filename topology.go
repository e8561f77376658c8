package addemo

import (
	"sort"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

var (
	ErrDuplicateActivity = errors.New("activity assigned more than once", j.C("ERR_4c1d0e8a7f3b2a11"))
	ErrUnknownActivity   = errors.New("activity not in assignment", j.C("ERR_9a6f3e2b1c7d4e50"))
	ErrCyclicDependency  = errors.New("cyclic activity dependency", j.C("ERR_2e8b5d1f0a9c3b72"))
	ErrMissingDependency = errors.New("assigned activity without dependency entry", j.C("ERR_7d3a9c0e4b2f1a86"))
	ErrWorkerOrder       = errors.New("activity stepped before its prerequisite", j.C("ERR_5b0e7a2d9c1f3e64"))
	ErrDuplicateTopic    = errors.New("topic declared more than once", j.C("ERR_1f6c8b3e0d2a7c95"))
)

// Direction is the role of an activity on a topic.
type Direction int

const (
	Incoming Direction = 1
	Outgoing Direction = 2
)

func (d Direction) String() string {
	switch d {
	case Incoming:
		return "incoming"
	case Outgoing:
		return "outgoing"
	default:
		return "unknown"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	if d != Incoming && d != Outgoing {
		return nil, errors.New("invalid direction", j.KV("direction", int(d)))
	}
	return []byte(d.String()), nil
}

// MessageType tags the message carried by a topic.
type MessageType struct {
	Name    string `json:"name"`
	MaxSize int    `json:"max_size"`
}

// Typed is implemented by messages that may be carried over a topic.
type Typed interface {
	MessageType() MessageType
}

// Peer is an activity participating in a topic.
type Peer struct {
	Activity  ActivityID `json:"activity"`
	Direction Direction  `json:"direction"`
}

// TopicSpec declares a topic, its message type and its participants.
type TopicSpec struct {
	Topic   string      `json:"topic"`
	Message MessageType `json:"message"`
	Peers   []Peer      `json:"peers"`
}

// NewTopicSpec returns a topic specification carrying messages of type T.
func NewTopicSpec[T Typed](topic string, peers ...Peer) TopicSpec {
	var zero T
	return TopicSpec{
		Topic:   topic,
		Message: zero.MessageType(),
		Peers:   peers,
	}
}

// Subscribers returns the number of incoming peers.
func (s TopicSpec) Subscribers() int {
	var n int
	for _, p := range s.Peers {
		if p.Direction == Incoming {
			n++
		}
	}
	return n
}

// Capacity returns the effective subscriber capacity of the topic; the declared
// subscribers plus a reserve for observers not modelled in the topology.
func (s TopicSpec) Capacity(reserve int) int {
	return s.Subscribers() + reserve
}

// Involves returns true if any of the activities participates in the topic.
func (s TopicSpec) Involves(ids ...ActivityID) bool {
	for _, p := range s.Peers {
		for _, id := range ids {
			if p.Activity == id {
				return true
			}
		}
	}
	return false
}

// Validate returns an error if the topology is inconsistent:
//   - an activity is assigned to more than one worker,
//   - the dependency graph references unassigned activities or misses assigned ones,
//   - the dependency graph contains a cycle,
//   - a worker steps an activity before a prerequisite assigned to the same worker,
//   - a topic references an unassigned activity or is declared twice.
func Validate(agents map[AgentID][]WorkerActivities, deps ActivityDependencies, topics []TopicSpec) error {
	assigned := make(map[ActivityID]WorkerID)
	for _, workers := range agents {
		for _, w := range workers {
			for _, id := range w.Activities {
				if other, ok := assigned[id]; ok {
					return errors.Wrap(ErrDuplicateActivity, "",
						j.KV("activity", id), j.KV("worker", w.Worker), j.KV("other", other))
				}
				assigned[id] = w.Worker
			}
		}
	}

	for id, prereqs := range deps {
		if _, ok := assigned[id]; !ok {
			return errors.Wrap(ErrUnknownActivity, "dependency key", j.KV("activity", id))
		}
		for _, p := range prereqs {
			if _, ok := assigned[p]; !ok {
				return errors.Wrap(ErrUnknownActivity, "dependency value", j.KV("activity", p))
			}
		}
	}

	for id := range assigned {
		if _, ok := deps[id]; !ok {
			return errors.Wrap(ErrMissingDependency, "", j.KV("activity", id))
		}
	}

	if _, err := TopologicalOrder(deps); err != nil {
		return err
	}

	for _, workers := range agents {
		for _, w := range workers {
			if err := checkWorkerOrder(w, deps); err != nil {
				return err
			}
		}
	}

	seen := make(map[string]bool)
	for _, t := range topics {
		if seen[t.Topic] {
			return errors.Wrap(ErrDuplicateTopic, "", j.KS("topic", t.Topic))
		}
		seen[t.Topic] = true

		for _, p := range t.Peers {
			if _, ok := assigned[p.Activity]; !ok {
				return errors.Wrap(ErrUnknownActivity, "topic peer",
					j.KS("topic", t.Topic), j.KV("activity", p.Activity))
			}
		}
	}

	return nil
}

// TopologicalOrder returns the activities ordered such that every activity follows its
// prerequisites. Ties are broken by ascending id so the result is deterministic.
// It returns ErrCyclicDependency if the graph contains a cycle.
func TopologicalOrder(deps ActivityDependencies) ([]ActivityID, error) {
	indegree := make(map[ActivityID]int)
	dependents := make(map[ActivityID][]ActivityID)
	for id, prereqs := range deps {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, p := range prereqs {
			if _, ok := indegree[p]; !ok {
				indegree[p] = 0
			}
			indegree[id]++
			dependents[p] = append(dependents[p], id)
		}
	}

	var ready []ActivityID
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}

	var res []ActivityID
	for len(ready) > 0 {
		sortIDs(ready)
		id := ready[0]
		ready = ready[1:]
		res = append(res, id)

		for _, d := range dependents[id] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(res) != len(indegree) {
		return nil, errors.Wrap(ErrCyclicDependency, "",
			j.KV("ordered", len(res)), j.KV("total", len(indegree)))
	}

	return res, nil
}

func checkWorkerOrder(w WorkerActivities, deps ActivityDependencies) error {
	pos := make(map[ActivityID]int)
	for i, id := range w.Activities {
		pos[id] = i
	}

	for i, id := range w.Activities {
		for _, p := range deps[id] {
			if pi, ok := pos[p]; ok && pi > i {
				return errors.Wrap(ErrWorkerOrder, "",
					j.KV("worker", w.Worker), j.KV("activity", id), j.KV("prerequisite", p))
			}
		}
	}

	return nil
}

func sortIDs(ids []ActivityID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
}
