package events

import (
	"time"

	"github.com/kilianp07/platoon/core/metrics"
	"github.com/kilianp07/platoon/core/model"
)

// VehicleRegistered is published when an agent is taken under platoon control.
type VehicleRegistered struct {
	VehicleID string
	TypeName  string
	PlatoonID int
	SimTime   time.Duration
}

// VehicleRemoved is published when a registered agent left the simulation.
type VehicleRemoved struct {
	VehicleID string
	PlatoonID int
	SimTime   time.Duration
}

// PlatoonSplit is published when the tail of a platoon became a new platoon.
type PlatoonSplit struct {
	PlatoonID    int
	NewPlatoonID int
	Index        int
	VehicleIDs   []string
	SimTime      time.Duration
}

// PlatoonMerged is published when a platoon joined the platoon ahead of it.
type PlatoonMerged struct {
	PlatoonID  int
	AbsorbedID int
	VehicleIDs []string
	Gap        float64
	SimTime    time.Duration
}

// ModeChanged is published when a vehicle's mode command succeeded.
type ModeChanged struct {
	VehicleID string
	From      model.Mode
	To        model.Mode
	SimTime   time.Duration
}

// Operation names used in OperationRejected.
const (
	OpJoin       = "join"
	OpSplit      = "split"
	OpSetMode    = "set_mode"
	OpLaneChange = "lane_change"
	OpRegister   = "register"
)

// OperationRejected is published when a platoon operation could not be
// performed. The decision is re-evaluated next control cycle.
type OperationRejected struct {
	Op        string
	PlatoonID int
	VehicleID string
	Mode      model.Mode
	Err       error
	SimTime   time.Duration
}

// StepCompleted is published at the end of every control step.
type StepCompleted struct {
	Report metrics.StepReport
}
