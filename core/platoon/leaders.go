package platoon

import (
	"context"

	"github.com/kilianp07/platoon/core/events"
	"github.com/kilianp07/platoon/core/model"
)

// manageLeaders decides, for every platoon, whether its leader merges into
// the platoon ahead, catches up with it or falls back to the idle mode.
func (m *Manager) manageLeaders(ctx context.Context) {
	for _, p := range m.sortedPlatoons() {
		if _, ok := m.platoons[p.id]; !ok || p.Size() == 0 {
			// Absorbed by a merge earlier in this cycle.
			continue
		}
		m.manageLeader(ctx, p)
	}
}

func (m *Manager) manageLeader(ctx context.Context, p *Platoon) {
	leader := p.Leader()
	idle := p.IdleMode()

	// The simulator or a driver model overrode the leader's mode.
	if leader.currentMode == model.ModeFollower && !m.shrunk[p.id] {
		if !p.SetMode(ctx, idle) {
			m.report.Rejected++
		}
	}

	li := leader.leaderInfo
	ahead := leader.leader
	if li == nil || ahead == nil || !ahead.connected || li.Gap > m.cfg.CatchupDist {
		m.resetIdle(ctx, p, idle)
		return
	}

	aheadP := ahead.platoon
	tryCatchup := aheadP != nil && aheadP != p && aheadP.Last() == ahead
	if tryCatchup && li.Gap <= m.cfg.MaxPlatoonGap {
		// A rejected join is re-evaluated next cycle.
		m.merge(ctx, aheadP, p, li.Gap)
		return
	}
	if tryCatchup {
		if p.mode != model.ModeCatchup {
			if p.SetMode(ctx, model.ModeCatchup) {
				m.report.CatchupRequests++
				m.log.Debugw("platoon catching up", map[string]any{"platoon": p.id, "ahead": aheadP.id, "gap": li.Gap})
			} else {
				m.report.Rejected++
			}
		}
		return
	}
	m.resetIdle(ctx, p, idle)
}

func (m *Manager) resetIdle(ctx context.Context, p *Platoon, idle model.Mode) {
	if p.mode == idle {
		return
	}
	if !p.SetMode(ctx, idle) {
		m.report.Rejected++
	}
}

func (m *Manager) merge(ctx context.Context, into, p *Platoon, gap float64) {
	ids := p.MemberIDs()
	if !into.Join(ctx, p) {
		m.report.Rejected++
		return
	}
	delete(m.platoons, p.id)
	delete(m.shrunk, p.id)
	m.report.Merges++
	structuralChanges.WithLabelValues("merge").Inc()
	m.log.Debugw("platoon merged", map[string]any{"platoon": into.id, "absorbed": p.id, "vehicles": ids, "gap": gap})
	m.env.publish(events.PlatoonMerged{
		PlatoonID:  into.id,
		AbsorbedID: p.id,
		VehicleIDs: ids,
		Gap:        gap,
		SimTime:    m.env.now,
	})
}
