package model

import "strings"

// Telemetry is the last kinematic snapshot reported for a vehicle.
type Telemetry struct {
	Speed     float64 `json:"speed" cbor:"speed"` // m/s
	EdgeID    string  `json:"edge_id" cbor:"edge_id"`
	LaneID    string  `json:"lane_id" cbor:"lane_id"`
	LaneIndex int     `json:"lane_index" cbor:"lane_index"`
}

// OnInternalLane reports whether the vehicle is on a junction-internal or
// unnamed road segment. Lane advice is meaningless there.
func (t Telemetry) OnInternalLane() bool {
	return t.EdgeID == "" || strings.HasPrefix(t.EdgeID, ":")
}

// LeaderInfo describes the vehicle immediately ahead on the road.
type LeaderInfo struct {
	LeaderID string  `json:"leader_id" cbor:"leader_id"`
	Gap      float64 `json:"gap" cbor:"gap"` // metres, bumper to bumper
}

// Snapshot is one entry of a bulk telemetry fetch. Leader is nil when no
// vehicle is ahead within the subscribed range.
type Snapshot struct {
	Telemetry
	Leader *LeaderInfo `json:"leader,omitempty" cbor:"leader,omitempty"`
}
