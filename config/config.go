// Package config provides the topology of the perception demo.
//
// The topology is derived from an immutable Config value. Every process evaluates the same
// functions on the same value and so agrees on the global wiring without negotiation.
// Nothing is cached; every call rebuilds the full structure.
package config

import (
	"time"

	"github.com/corverroos/addemo"
	"github.com/corverroos/addemo/activities"
	"github.com/corverroos/addemo/messages"
)

const (
	TopicCameraFront   = "feo/com/vehicle/camera/front"
	TopicInferredScene = "feo/com/vehicle/inferred/scene"

	AgentPrimary   addemo.AgentID = 100
	AgentSecondary addemo.AgentID = 101

	WorkerPerception addemo.WorkerID = 40
	WorkerReplay     addemo.WorkerID = 41

	ActivityCamera      addemo.ActivityID = 0
	ActivitySceneRender addemo.ActivityID = 1
	ActivityMcap        addemo.ActivityID = 2
)

// Config holds the values the topology is built from.
type Config struct {
	CameraTopic string
	SceneTopic  string

	// McapPath is the log replayed by the bridge.
	McapPath string

	// SinkAddr is the TCP endpoint replayed records are forwarded to.
	SinkAddr string

	// DialTimeout bounds each forward to the sink.
	DialTimeout time.Duration

	// BindSenders and BindReceivers are the inter-agent control channel endpoints.
	BindSenders   string
	BindReceivers string

	// ListenerSockets are the unix sockets of the control channel listeners.
	ListenerSockets [2]string

	// MaxAdditionalSubscribers is the per topic subscriber reserve for observers
	// not modelled in the topology, like recorders.
	MaxAdditionalSubscribers int
}

// Default returns the demo configuration.
func Default() Config {
	return Config{
		CameraTopic:              TopicCameraFront,
		SceneTopic:               TopicInferredScene,
		McapPath:                 "assets/gps_route.mcap",
		SinkAddr:                 "127.0.0.1:9001",
		DialTimeout:              time.Millisecond * 100,
		BindSenders:              "127.0.0.1:8081",
		BindReceivers:            "127.0.0.1:8082",
		ListenerSockets:          [2]string{"/tmp/feo_listener1.socket", "/tmp/feo_listener2.socket"},
		MaxAdditionalSubscribers: 2,
	}
}

// AgentAssignments returns the workers of each agent and the activities of each worker
// in step order.
func (c Config) AgentAssignments() map[addemo.AgentID][]addemo.WorkerAssignment {
	perception := addemo.WorkerAssignment{
		Worker: WorkerPerception,
		Activities: []addemo.ActivityIDAndBuilder{
			{
				ID:    ActivityCamera,
				Build: activities.CameraBuilder(c.CameraTopic),
			},
			{
				ID:    ActivitySceneRender,
				Build: activities.SceneRenderBuilder(c.CameraTopic, c.SceneTopic),
			},
		},
	}

	replay := addemo.WorkerAssignment{
		Worker: WorkerReplay,
		Activities: []addemo.ActivityIDAndBuilder{
			{
				ID: ActivityMcap,
				Build: activities.McapBridgeBuilder(c.McapPath, c.SinkAddr,
					activities.WithDialTimeout(c.DialTimeout)),
			},
		},
	}

	return map[addemo.AgentID][]addemo.WorkerAssignment{
		AgentPrimary:   {perception},
		AgentSecondary: {replay},
	}
}

// ActivityDependencies returns the prerequisites of each activity.
func (c Config) ActivityDependencies() addemo.ActivityDependencies {
	return addemo.ActivityDependencies{
		ActivityCamera:      {},
		ActivitySceneRender: {ActivityCamera},
		ActivityMcap:        {},
	}
}

// TopicDependencies returns the topics and their participants.
func (c Config) TopicDependencies() []addemo.TopicSpec {
	return []addemo.TopicSpec{
		addemo.NewTopicSpec[messages.CameraImage](c.CameraTopic,
			addemo.Peer{Activity: ActivityCamera, Direction: addemo.Outgoing},
			addemo.Peer{Activity: ActivitySceneRender, Direction: addemo.Incoming}),
		addemo.NewTopicSpec[messages.Scene](c.SceneTopic,
			addemo.Peer{Activity: ActivitySceneRender, Direction: addemo.Outgoing}),
	}
}

// WorkerAgentMap returns the agent of each worker.
func (c Config) WorkerAgentMap() map[addemo.WorkerID]addemo.AgentID {
	res := make(map[addemo.WorkerID]addemo.AgentID)
	for agent, workers := range c.AgentAssignments() {
		for _, w := range workers {
			res[w.Worker] = agent
		}
	}
	return res
}

// AgentAssignmentsIDs returns the builder-erased view of AgentAssignments.
func (c Config) AgentAssignmentsIDs() map[addemo.AgentID][]addemo.WorkerActivities {
	res := make(map[addemo.AgentID][]addemo.WorkerActivities)
	for agent, workers := range c.AgentAssignments() {
		res[agent] = addemo.IDs(workers)
	}
	return res
}

// Validate returns an error if the topology is inconsistent.
func (c Config) Validate() error {
	return addemo.Validate(c.AgentAssignmentsIDs(), c.ActivityDependencies(), c.TopicDependencies())
}
