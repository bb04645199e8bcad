package platoon

import (
	"context"

	"github.com/kilianp07/platoon/core/events"
	"github.com/kilianp07/platoon/core/model"
)

// Platoon is an ordered group of vehicles. Members[0] is the leader; every
// other member drives as FOLLOWER behind its predecessor.
type Platoon struct {
	id      int
	members []*Vehicle
	mode    model.Mode
	env     *env
}

func newPlatoon(e *env, members []*Vehicle, mode model.Mode) *Platoon {
	p := &Platoon{id: e.nextPlatoonID(), members: members, mode: mode, env: e}
	for _, v := range members {
		v.platoon = p
	}
	return p
}

func (p *Platoon) ID() int          { return p.id }
func (p *Platoon) Mode() model.Mode { return p.mode }
func (p *Platoon) Size() int        { return len(p.members) }

// Members returns a copy of the ordered member list.
func (p *Platoon) Members() []*Vehicle {
	return append([]*Vehicle(nil), p.members...)
}

// MemberIDs returns the ordered member ids.
func (p *Platoon) MemberIDs() []string {
	ids := make([]string, len(p.members))
	for i, v := range p.members {
		ids[i] = v.id
	}
	return ids
}

// Leader returns the first member, or nil for an empty platoon.
func (p *Platoon) Leader() *Vehicle {
	if len(p.members) == 0 {
		return nil
	}
	return p.members[0]
}

// Last returns the last member, or nil for an empty platoon.
func (p *Platoon) Last() *Vehicle {
	if len(p.members) == 0 {
		return nil
	}
	return p.members[len(p.members)-1]
}

// IndexOf returns the position of v in the platoon, or -1.
func (p *Platoon) IndexOf(v *Vehicle) int {
	for i, m := range p.members {
		if m == v {
			return i
		}
	}
	return -1
}

// IdleMode is the mode of the platoon when it is not catching up.
func (p *Platoon) IdleMode() model.Mode {
	if len(p.members) > 1 {
		return model.ModeLeader
	}
	return model.ModeNone
}

// SetMode switches the platoon leader to mode and asks every follower to
// drive as FOLLOWER. It returns false, leaving the platoon unchanged, when
// the leader's switch is unsafe or rejected by the simulator.
func (p *Platoon) SetMode(ctx context.Context, mode model.Mode) bool {
	leader := p.Leader()
	if leader == nil {
		return false
	}
	if !leader.switchSafe(mode) {
		p.env.log.Debugf("platoon %d: switch of leader %s to %s is unsafe", p.id, leader.id, mode)
		p.reject(events.OpSetMode, leader.id, mode, ErrUnsafeSwitch)
		return false
	}
	if err := leader.applyMode(ctx, mode); err != nil {
		p.reject(events.OpSetMode, leader.id, mode, err)
		return false
	}
	leader.desiredMode = mode
	p.mode = mode
	for _, f := range p.members[1:] {
		if f.desiredMode != model.ModeFollower || f.currentMode != model.ModeFollower {
			f.setDesiredMode(ctx, model.ModeFollower)
		}
	}
	return true
}

// Join appends the members of other to p. The leader of other must switch
// to FOLLOWER; when that is unsafe or rejected nothing changes and Join
// returns false. On success other is left empty.
func (p *Platoon) Join(ctx context.Context, other *Platoon) bool {
	if other == nil || other == p || len(other.members) == 0 || len(p.members) == 0 {
		return false
	}
	ol := other.Leader()
	if !ol.switchSafe(model.ModeFollower) {
		p.env.log.Debugf("platoon %d: join of platoon %d unsafe for %s", p.id, other.id, ol.id)
		p.reject(events.OpJoin, ol.id, model.ModeFollower, ErrUnsafeSwitch)
		return false
	}
	if err := ol.applyMode(ctx, model.ModeFollower); err != nil {
		p.reject(events.OpJoin, ol.id, model.ModeFollower, err)
		return false
	}
	ol.desiredMode = model.ModeFollower
	for _, v := range other.members {
		v.platoon = p
		v.resetSplitCountdown()
	}
	p.members = append(p.members, other.members...)
	other.members = nil
	if p.mode == model.ModeNone {
		p.mode = model.ModeLeader
		p.Leader().setDesiredMode(ctx, model.ModeLeader)
	}
	return true
}

// Split detaches the members from index on into a new platoon and returns
// it. The new platoon is LEADER when it has several members and NONE
// otherwise. Split returns nil without changes when index is out of range
// or the new leader cannot switch.
func (p *Platoon) Split(ctx context.Context, index int) *Platoon {
	if index <= 0 || index >= len(p.members) {
		return nil
	}
	tail := append([]*Vehicle(nil), p.members[index:]...)
	mode := model.ModeNone
	if len(tail) > 1 {
		mode = model.ModeLeader
	}
	nl := tail[0]
	if !nl.switchSafe(mode) {
		p.env.log.Debugf("platoon %d: split at %d unsafe for %s", p.id, index, nl.id)
		p.reject(events.OpSplit, nl.id, mode, ErrUnsafeSwitch)
		return nil
	}
	if err := nl.applyMode(ctx, mode); err != nil {
		p.reject(events.OpSplit, nl.id, mode, err)
		return nil
	}
	nl.desiredMode = mode
	for _, v := range tail {
		v.resetSplitCountdown()
	}
	p.members = append([]*Vehicle(nil), p.members[:index]...)
	np := newPlatoon(p.env, tail, mode)
	if len(p.members) == 1 && p.mode == model.ModeLeader {
		p.mode = model.ModeNone
		p.Leader().setDesiredMode(ctx, model.ModeNone)
	}
	return np
}

// RemoveVehicles drops the given vehicles. A new leader is asked to take
// over the platoon mode and a platoon reduced to one member leaves LEADER.
func (p *Platoon) RemoveVehicles(ctx context.Context, vs []*Vehicle) {
	drop := make(map[*Vehicle]struct{}, len(vs))
	for _, v := range vs {
		drop[v] = struct{}{}
	}
	kept := p.members[:0]
	for _, v := range p.members {
		if _, ok := drop[v]; ok {
			v.platoon = nil
			continue
		}
		kept = append(kept, v)
	}
	p.members = kept
	if len(p.members) == 0 {
		return
	}
	if len(p.members) == 1 && p.mode == model.ModeLeader {
		p.mode = model.ModeNone
	}
	if leader := p.Leader(); leader.desiredMode != p.mode {
		leader.setDesiredMode(ctx, p.mode)
	}
}

// AdviseMemberModes retries pending mode switches of every member whose
// current mode differs from its desired mode.
func (p *Platoon) AdviseMemberModes(ctx context.Context) {
	for _, v := range p.members {
		if v.currentMode != v.desiredMode {
			v.setDesiredMode(ctx, v.desiredMode)
		}
	}
}

func (p *Platoon) reject(op, vehicleID string, mode model.Mode, err error) {
	rejectedOps.WithLabelValues(op).Inc()
	p.env.publish(events.OperationRejected{
		Op:        op,
		PlatoonID: p.id,
		VehicleID: vehicleID,
		Mode:      mode,
		Err:       err,
		SimTime:   p.env.now,
	})
}
