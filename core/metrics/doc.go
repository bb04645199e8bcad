// Package metrics defines the sinks that receive control loop observations:
// one StepReport per step, fleet statistics per decision cycle and individual
// platoon decisions. Implementations live in infra/metrics and are built from
// configuration through the sink factory; several configured sinks are
// combined with NewMultiSink.
package metrics
