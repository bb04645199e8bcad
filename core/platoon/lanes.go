package platoon

import (
	"context"
	"errors"

	"github.com/kilianp07/platoon/core/events"
	"github.com/kilianp07/platoon/core/simctl"
)

// adviseLanes asks every follower to use its predecessor's lane for the
// next control interval when both are on the same road segment and to keep
// its lane otherwise. Followers on junction-internal lanes are skipped.
func (m *Manager) adviseLanes(ctx context.Context) {
	for _, p := range m.sortedPlatoons() {
		for i := 1; i < len(p.members); i++ {
			v, pred := p.members[i], p.members[i-1]
			if v.telemetry.OnInternalLane() {
				continue
			}
			target := v.telemetry.LaneIndex
			if pred.telemetry.EdgeID == v.telemetry.EdgeID {
				target = pred.telemetry.LaneIndex
			}
			m.adviseLane(ctx, p, v, target)
		}
	}
}

func (m *Manager) adviseLane(ctx context.Context, p *Platoon, v *Vehicle, lane int) {
	err := m.client.RequestLaneChange(ctx, v.id, lane, m.controlInterval)
	if err == nil {
		m.report.LaneAdvisories++
		laneAdvisories.WithLabelValues("ok").Inc()
		return
	}
	m.report.LaneFailures++
	laneAdvisories.WithLabelValues("failed").Inc()
	if errors.Is(err, simctl.ErrCommandRejected) {
		m.log.Debugf("lane %d for %s: %v", lane, v.id, err)
	} else {
		m.log.Warnf("lane %d for %s: %v", lane, v.id, err)
	}
	m.env.publish(events.OperationRejected{
		Op:        events.OpLaneChange,
		PlatoonID: p.id,
		VehicleID: v.id,
		Err:       err,
		SimTime:   m.env.now,
	})
}
