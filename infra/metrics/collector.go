package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/platoon/core/events"
	coremetrics "github.com/kilianp07/platoon/core/metrics"
	"github.com/kilianp07/platoon/core/model"
	"github.com/kilianp07/platoon/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records structural
// decisions on sinks implementing DecisionRecorder. It stops when the
// context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.DecisionRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if d, ok := DecisionFromEvent(ev); ok {
					d.Time = time.Now()
					_ = rec.RecordDecision(d)
				}
			}
		}
	}()
}

// DecisionFromEvent maps split, merge, catch-up and rejection events to a
// DecisionEvent.
func DecisionFromEvent(ev eventbus.Event) (coremetrics.DecisionEvent, bool) {
	switch e := ev.(type) {
	case events.PlatoonSplit:
		return coremetrics.DecisionEvent{
			Kind:           coremetrics.DecisionSplit,
			PlatoonID:      e.PlatoonID,
			OtherPlatoonID: e.NewPlatoonID,
			VehicleIDs:     e.VehicleIDs,
			SimTime:        e.SimTime,
		}, true
	case events.PlatoonMerged:
		return coremetrics.DecisionEvent{
			Kind:           coremetrics.DecisionMerge,
			PlatoonID:      e.PlatoonID,
			OtherPlatoonID: e.AbsorbedID,
			VehicleIDs:     e.VehicleIDs,
			SimTime:        e.SimTime,
		}, true
	case events.ModeChanged:
		if e.To != model.ModeCatchup {
			return coremetrics.DecisionEvent{}, false
		}
		return coremetrics.DecisionEvent{
			Kind:       coremetrics.DecisionCatchup,
			VehicleIDs: []string{e.VehicleID},
			Mode:       e.To.String(),
			SimTime:    e.SimTime,
		}, true
	case events.OperationRejected:
		d := coremetrics.DecisionEvent{
			Kind:      coremetrics.DecisionRejected,
			PlatoonID: e.PlatoonID,
			Mode:      e.Mode.String(),
			Reason:    e.Op,
			SimTime:   e.SimTime,
		}
		if e.VehicleID != "" {
			d.VehicleIDs = []string{e.VehicleID}
		}
		if e.Err != nil {
			d.Reason += ": " + e.Err.Error()
		}
		return d, true
	default:
		return coremetrics.DecisionEvent{}, false
	}
}
