package simctl

import (
	"github.com/kilianp07/platoon/core/model"
	coresim "github.com/kilianp07/platoon/core/simctl"
)

// Operations understood by the simulator bridge.
const (
	OpActiveAgents = "active_agents"
	OpDeparted     = "departed"
	OpArrived      = "arrived"
	OpAgentType    = "agent_type"
	OpSubscribe    = "subscribe"
	OpUnsubscribe  = "unsubscribe"
	OpTelemetry    = "telemetry"
	OpLaneChange   = "lane_change"
	OpSetMode      = "set_mode"
)

// Error codes carried in Response.ErrorCode.
const (
	CodeUnknownAgent    = "unknown_agent"
	CodeCommandRejected = "command_rejected"
)

// Request is published on <prefix>/request.
type Request struct {
	ID           string                `json:"id" cbor:"id"`
	ReplyTo      string                `json:"reply_to" cbor:"reply_to"`
	Op           string                `json:"op" cbor:"op"`
	AgentID      string                `json:"agent_id,omitempty" cbor:"agent_id,omitempty"`
	Mode         *model.Mode           `json:"mode,omitempty" cbor:"mode,omitempty"`
	LaneIndex    int                   `json:"lane_index,omitempty" cbor:"lane_index,omitempty"`
	HorizonMS    int64                 `json:"horizon_ms,omitempty" cbor:"horizon_ms,omitempty"`
	Subscription *coresim.Subscription `json:"subscription,omitempty" cbor:"subscription,omitempty"`
}

// Response is published by the bridge on the ReplyTo topic of the request.
type Response struct {
	ID        string                    `json:"id" cbor:"id"`
	ErrorCode string                    `json:"error_code,omitempty" cbor:"error_code,omitempty"`
	Error     string                    `json:"error,omitempty" cbor:"error,omitempty"`
	Agents    []string                  `json:"agents,omitempty" cbor:"agents,omitempty"`
	Type      string                    `json:"type,omitempty" cbor:"type,omitempty"`
	Telemetry map[string]model.Snapshot `json:"telemetry,omitempty" cbor:"telemetry,omitempty"`
}

// Tick is published on <prefix>/tick after every completed simulation step.
type Tick struct {
	TimeMS int64 `json:"time_ms" cbor:"time_ms"`
}
