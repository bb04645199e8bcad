package metrics

import (
	coremetrics "github.com/kilianp07/platoon/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records step reports, fleet statistics and decisions in
// Prometheus metrics.
type PromSink struct {
	steps     *prometheus.CounterVec
	outcomes  *prometheus.CounterVec
	fleet     *prometheus.GaugeVec
	decisions *prometheus.CounterVec
}

// NewPromSink registers platoon metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "platoon_steps_total",
		Help: "Number of control steps, by whether the decision phases ran",
	}, []string{"decided"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "platoon_step_outcomes_total",
		Help: "Sum of step report counters",
	}, []string{"outcome"})
	fleet := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "platoon_fleet_stats",
		Help: "Platoon size distribution after the last decision cycle",
	}, []string{"stat"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "platoon_decisions_total",
		Help: "Number of platoon decisions by kind",
	}, []string{"kind"})

	var err error
	if steps, err = registerOrReuse(reg, steps); err != nil {
		return nil, err
	}
	if outcomes, err = registerOrReuse(reg, outcomes); err != nil {
		return nil, err
	}
	if fleet, err = registerOrReuse(reg, fleet); err != nil {
		return nil, err
	}
	if decisions, err = registerOrReuse(reg, decisions); err != nil {
		return nil, err
	}
	return &PromSink{steps: steps, outcomes: outcomes, fleet: fleet, decisions: decisions}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordStep increments the step and outcome counters.
func (s *PromSink) RecordStep(r coremetrics.StepReport) error {
	decided := "false"
	if r.Decided {
		decided = "true"
	}
	s.steps.WithLabelValues(decided).Inc()
	add := func(outcome string, n int) {
		if n > 0 {
			s.outcomes.WithLabelValues(outcome).Add(float64(n))
		}
	}
	add("registered", r.Registered)
	add("removed", r.Removed)
	add("split", r.Splits)
	add("merge", r.Merges)
	add("catchup", r.CatchupRequests)
	add("rejected", r.Rejected)
	add("lane_advisory", r.LaneAdvisories)
	add("lane_failure", r.LaneFailures)
	add("order_violation", r.OrderViolations)
	return nil
}

// RecordFleetStats sets the fleet gauges.
func (s *PromSink) RecordFleetStats(st coremetrics.FleetStats) error {
	s.fleet.WithLabelValues("vehicles").Set(float64(st.Vehicles))
	s.fleet.WithLabelValues("platoons").Set(float64(st.Platoons))
	s.fleet.WithLabelValues("platooned").Set(float64(st.Platooned))
	s.fleet.WithLabelValues("mean_size").Set(st.MeanSize)
	s.fleet.WithLabelValues("stddev_size").Set(st.StdDevSize)
	s.fleet.WithLabelValues("max_size").Set(float64(st.MaxSize))
	s.fleet.WithLabelValues("platooned_share").Set(st.PlatoonedShare)
	return nil
}

// RecordDecision counts the decision by kind.
func (s *PromSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	s.decisions.WithLabelValues(ev.Kind).Inc()
	return nil
}
