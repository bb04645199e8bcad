package platoon

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	modeCommands        *prometheus.CounterVec
	modeCommandFailures *prometheus.CounterVec
	rejectedOps         *prometheus.CounterVec
	structuralChanges   *prometheus.CounterVec
	laneAdvisories      *prometheus.CounterVec
	stepDuration        prometheus.Histogram
	fleetGauge          *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Histogram, *prometheus.GaugeVec) {
	cmd := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platoon_mode_commands_total",
			Help: "Number of mode commands accepted by the simulator",
		},
		[]string{"mode"},
	)
	cmdFail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platoon_mode_command_failures_total",
			Help: "Number of mode commands that failed",
		},
		[]string{"mode"},
	)
	rej := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platoon_rejected_operations_total",
			Help: "Number of platoon operations rejected by safety or the simulator",
		},
		[]string{"op"},
	)
	chg := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platoon_structural_changes_total",
			Help: "Number of platoon splits and merges",
		},
		[]string{"kind"},
	)
	lane := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platoon_lane_advisories_total",
			Help: "Number of lane advisories sent to followers",
		},
		[]string{"result"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "platoon_step_duration_seconds",
			Help:    "Wall clock duration of one control step",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
	fleet := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "platoon_fleet",
			Help: "Fleet composition after the last decision cycle",
		},
		[]string{"measure"},
	)
	return cmd, cmdFail, rej, chg, lane, dur, fleet
}

func init() {
	modeCommands, modeCommandFailures, rejectedOps, structuralChanges, laneAdvisories, stepDuration, fleetGauge = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers platoon metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(modeCommands, modeCommandFailures, rejectedOps, structuralChanges, laneAdvisories, stepDuration, fleetGauge)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	modeCommands, modeCommandFailures, rejectedOps, structuralChanges, laneAdvisories, stepDuration, fleetGauge = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
