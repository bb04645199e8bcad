package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordStep forwards the report to all sinks, returning the first error encountered.
func (m *MultiSink) RecordStep(r StepReport) error {
	for _, s := range m.Sinks {
		if err := s.RecordStep(r); err != nil {
			return err
		}
	}
	return nil
}

// RecordFleetStats forwards statistics to the sinks that support them.
func (m *MultiSink) RecordFleetStats(st FleetStats) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FleetStatsRecorder); ok {
			if err := rec.RecordFleetStats(st); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordDecision forwards decisions to the sinks that support them.
func (m *MultiSink) RecordDecision(ev DecisionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(DecisionRecorder); ok {
			if err := rec.RecordDecision(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
