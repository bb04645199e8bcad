package platoon

import (
	"context"
	"time"

	"github.com/kilianp07/platoon/core/events"
)

// manageFollowers advances the split countdown of every follower whose real
// leader is not its predecessor and splits the platoon behind each follower
// whose countdown expired.
func (m *Manager) manageFollowers(ctx context.Context, dt time.Duration) {
	for _, p := range m.sortedPlatoons() {
		p.AdviseMemberModes(ctx)

		var splitAt []int
		for i := 1; i < len(p.members); i++ {
			v, pred := p.members[i], p.members[i-1]
			if !m.splitEligible(p, v, pred) {
				v.splitPending = false
				continue
			}
			v.splitPending = true
			v.splitCountdown -= dt
			if v.splitCountdown <= 0 {
				splitAt = append(splitAt, i)
			}
		}
		// Split from the back so earlier indices stay valid.
		for j := len(splitAt) - 1; j >= 0; j-- {
			m.split(ctx, p, splitAt[j])
		}
	}
}

func (m *Manager) splitEligible(p *Platoon, v, pred *Vehicle) bool {
	li := v.leaderInfo
	switch {
	case li == nil || li.Gap > m.cfg.MaxPlatoonGap:
		return true
	case v.leader == pred:
		v.resetSplitCountdown()
		return false
	case v.leader != nil && v.leader.platoon == p:
		m.report.OrderViolations++
		m.log.Warnf("platoon %d: %v: %s follows %s instead of %s", p.id, ErrOrderViolation, v.id, v.leader.id, pred.id)
		v.resetSplitCountdown()
		return false
	default:
		// The vehicle ahead is unregistered or belongs to another platoon.
		return true
	}
}

func (m *Manager) split(ctx context.Context, p *Platoon, index int) {
	tail := p.Split(ctx, index)
	if tail == nil {
		m.report.Rejected++
		return
	}
	m.platoons[tail.id] = tail
	m.shrunk[p.id] = true
	m.report.Splits++
	structuralChanges.WithLabelValues("split").Inc()
	ids := tail.MemberIDs()
	m.log.Debugw("platoon split", map[string]any{"platoon": p.id, "new_platoon": tail.id, "index": index, "vehicles": ids})
	m.env.publish(events.PlatoonSplit{
		PlatoonID:    p.id,
		NewPlatoonID: tail.id,
		Index:        index,
		VehicleIDs:   ids,
		SimTime:      m.env.now,
	})
}
