package metrics

import "time"

// StepReport summarises one call to the platoon manager's Step.
type StepReport struct {
	SimTime time.Duration
	// Decided is true when the throttled decision phases ran this step.
	Decided bool

	Registered      int
	Removed         int
	Splits          int
	Merges          int
	CatchupRequests int
	Rejected        int
	LaneAdvisories  int
	LaneFailures    int
	OrderViolations int

	Vehicles int
	Platoons int
}

// MetricsSink records control loop observations.
type MetricsSink interface {
	RecordStep(r StepReport) error
}

// FleetStats describes the platoon size distribution after a decision cycle.
type FleetStats struct {
	SimTime        time.Duration
	Vehicles       int
	Platoons       int
	Platooned      int // vehicles in platoons of size > 1
	MeanSize       float64
	StdDevSize     float64
	MaxSize        int
	PlatoonedShare float64
}

// FleetStatsRecorder is implemented by sinks able to record fleet statistics.
type FleetStatsRecorder interface {
	RecordFleetStats(s FleetStats) error
}

// Decision kinds.
const (
	DecisionSplit    = "split"
	DecisionMerge    = "merge"
	DecisionCatchup  = "catchup"
	DecisionRejected = "rejected"
)

// DecisionEvent records a single structural or mode decision.
type DecisionEvent struct {
	Kind           string
	PlatoonID      int
	OtherPlatoonID int
	VehicleIDs     []string
	Mode           string
	Reason         string
	SimTime        time.Duration
	Time           time.Time
}

// DecisionRecorder is implemented by sinks able to record decisions.
type DecisionRecorder interface {
	RecordDecision(ev DecisionEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordStep(StepReport) error        { return nil }
func (NopSink) RecordFleetStats(FleetStats) error  { return nil }
func (NopSink) RecordDecision(DecisionEvent) error { return nil }
