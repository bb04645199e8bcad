package platoon

import (
	"context"
	"errors"
	"sort"

	"github.com/kilianp07/platoon/core/events"
	"github.com/kilianp07/platoon/core/model"
	"github.com/kilianp07/platoon/core/simctl"
)

// processArrivals registers every agent that entered the simulation.
func (m *Manager) processArrivals(ctx context.Context) {
	ids, err := m.client.Departed(ctx)
	if err != nil {
		m.log.Errorf("query entered agents: %v", err)
		return
	}
	for _, id := range ids {
		m.registerVehicle(ctx, id)
	}
}

func (m *Manager) registerVehicle(ctx context.Context, id string) {
	if _, ok := m.vehicles[id]; ok {
		return
	}
	typeName, err := m.client.AgentType(ctx, id)
	if err != nil {
		if errors.Is(err, simctl.ErrUnknownAgent) {
			m.log.Warnf("agent %s vanished before registration", id)
		} else {
			m.log.Errorf("query type of %s: %v", id, err)
		}
		return
	}
	if !m.selector.Select(typeName) {
		return
	}
	params, ok := m.catalog.Params(typeName)
	if !ok {
		if !m.warnedTypes[typeName] {
			m.warnedTypes[typeName] = true
			m.log.Warnf("%v: %s; vehicles of this type are not controlled", ErrUnrecognizedVehicleType, typeName)
		}
		return
	}
	sub := simctl.Subscription{Fields: simctl.DefaultFields, LeaderRange: m.cfg.CatchupDist}
	if err := m.client.Subscribe(ctx, id, sub); err != nil {
		m.log.Warnf("subscribe %s: %v", id, err)
		m.env.publish(events.OperationRejected{Op: events.OpRegister, VehicleID: id, Err: err, SimTime: m.env.now})
		return
	}
	v := newVehicle(id, typeName, params, m.env)
	p := newPlatoon(m.env, []*Vehicle{v}, model.ModeNone)
	m.vehicles[id] = v
	m.platoons[p.id] = p
	m.report.Registered++
	m.log.Debugw("vehicle registered", map[string]any{"vehicle": id, "type": typeName, "platoon": p.id})
	m.env.publish(events.VehicleRegistered{VehicleID: id, TypeName: typeName, PlatoonID: p.id, SimTime: m.env.now})
}

// processDepartures removes every agent that left the simulation from its
// platoon and drops platoons that became empty.
func (m *Manager) processDepartures(ctx context.Context) {
	ids, err := m.client.Arrived(ctx)
	if err != nil {
		m.log.Errorf("query left agents: %v", err)
		return
	}
	groups := make(map[*Platoon][]*Vehicle)
	for _, id := range ids {
		v, ok := m.vehicles[id]
		if !ok {
			continue
		}
		delete(m.vehicles, id)
		v.connected = false
		v.leader = nil
		m.report.Removed++
		m.env.publish(events.VehicleRemoved{VehicleID: id, PlatoonID: v.platoonID(), SimTime: m.env.now})
		if v.platoon != nil {
			groups[v.platoon] = append(groups[v.platoon], v)
		}
	}
	affected := make([]*Platoon, 0, len(groups))
	for p := range groups {
		affected = append(affected, p)
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i].id < affected[j].id })
	for _, p := range affected {
		p.RemoveVehicles(ctx, groups[p])
		if p.Size() == 0 {
			delete(m.platoons, p.id)
			delete(m.shrunk, p.id)
			continue
		}
		m.shrunk[p.id] = true
	}
	for _, v := range m.vehicles {
		if v.leader != nil && !v.leader.connected {
			v.leader = nil
		}
	}
}

// refreshTelemetry fetches the subscribed values of every agent in one call
// and resolves leader references to registered vehicles.
func (m *Manager) refreshTelemetry(ctx context.Context) {
	snaps, err := m.client.BulkTelemetry(ctx)
	if err != nil {
		m.log.Errorf("bulk telemetry: %v", err)
		return
	}
	for id, v := range m.vehicles {
		s, ok := snaps[id]
		if !ok {
			m.log.Debugf("no telemetry for %s; keeping previous values", id)
			continue
		}
		v.telemetry = s.Telemetry
		if s.Leader != nil {
			li := *s.Leader
			v.leaderInfo = &li
		} else {
			v.leaderInfo = nil
		}
	}
	for _, v := range m.vehicles {
		v.leader = nil
		if v.leaderInfo == nil {
			continue
		}
		if l, ok := m.vehicles[v.leaderInfo.LeaderID]; ok && l != v && l.connected {
			v.leader = l
		}
	}
}
