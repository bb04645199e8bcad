package simctl

import (
	"context"
	"time"

	"github.com/kilianp07/platoon/core/model"
)

// Field names a telemetry variable that can be subscribed for a vehicle.
type Field string

const (
	FieldSpeed     Field = "speed"
	FieldEdge      Field = "edge"
	FieldLane      Field = "lane"
	FieldLaneIndex Field = "lane_index"
	FieldLeader    Field = "leader"
)

// DefaultFields are the variables the platoon manager needs every step.
var DefaultFields = []Field{FieldSpeed, FieldEdge, FieldLane, FieldLaneIndex, FieldLeader}

// Subscription describes which variables are delivered by BulkTelemetry for
// one vehicle. LeaderRange bounds the leader search in metres.
type Subscription struct {
	Fields      []Field `json:"fields" cbor:"fields"`
	LeaderRange float64 `json:"leader_range" cbor:"leader_range"`
}

// Client is the synchronous control channel to the motion simulator.
//
// Every method blocks until the simulator answered. Queries or commands for an
// agent that no longer exists fail with ErrUnknownAgent; infeasible commands
// fail with ErrCommandRejected.
type Client interface {
	// ActiveAgents lists every agent currently in the simulation.
	ActiveAgents(ctx context.Context) ([]string, error)

	// Departed lists agents that entered the simulation since the last call.
	Departed(ctx context.Context) ([]string, error)

	// Arrived lists agents that left the simulation since the last call.
	Arrived(ctx context.Context) ([]string, error)

	// AgentType returns the vehicle type name of the agent.
	AgentType(ctx context.Context, id string) (string, error)

	Subscribe(ctx context.Context, id string, sub Subscription) error
	Unsubscribe(ctx context.Context, id string) error

	// BulkTelemetry returns the latest subscribed values of every subscribed
	// agent in a single round-trip.
	BulkTelemetry(ctx context.Context) (map[string]model.Snapshot, error)

	// RequestLaneChange asks the agent to move to laneIndex and stay there
	// for horizon. Requesting the current lane keeps the agent in it.
	RequestLaneChange(ctx context.Context, id string, laneIndex int, horizon time.Duration) error

	// SetMode switches the agent to the mode-specific driving parameters.
	SetMode(ctx context.Context, id string, mode model.Mode) error

	// StepLength is the duration of one simulation step.
	StepLength() time.Duration
}

// Ticker is implemented by clients whose simulation clock is driven
// externally. Each value is the simulation time after a completed step.
type Ticker interface {
	Ticks() <-chan time.Duration
}
