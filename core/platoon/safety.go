package platoon

import "github.com/kilianp07/platoon/core/model"

// SafetyChecker decides whether a vehicle may switch to another mode
// without creating a safety-critical situation.
type SafetyChecker interface {
	SwitchSafe(v *Vehicle, to model.Mode) bool
}

// SafetyFunc adapts a function to the SafetyChecker interface.
type SafetyFunc func(v *Vehicle, to model.Mode) bool

func (f SafetyFunc) SwitchSafe(v *Vehicle, to model.Mode) bool { return f(v, to) }

// AlwaysSafe accepts every switch.
var AlwaysSafe = SafetyFunc(func(*Vehicle, model.Mode) bool { return true })

// KinematicSafety accepts a switch when the vehicle keeps at least its
// current braking capability, when nothing is ahead, or when the gap to the
// vehicle ahead covers the braking distance required with the target mode's
// parameters. The speed of an uncontrolled vehicle ahead is assumed equal to
// the own speed.
type KinematicSafety struct{}

func (KinematicSafety) SwitchSafe(v *Vehicle, to model.Mode) bool {
	cur := v.params.For(v.currentMode)
	next := v.params.For(to)
	if next.Decel >= cur.Decel && next.Tau <= cur.Tau {
		return true
	}
	li := v.leaderInfo
	if li == nil {
		return true
	}
	speed := v.telemetry.Speed
	leaderSpeed, leaderDecel := speed, next.Decel
	if l := v.leader; l != nil {
		leaderSpeed = l.telemetry.Speed
		leaderDecel = l.params.For(l.currentMode).Decel
	}
	return li.Gap >= RequiredGap(speed, next, leaderSpeed, leaderDecel)
}

// RequiredGap is the gap needed to stop behind a braking leader while
// reacting after p.Tau seconds.
func RequiredGap(speed float64, p ModeParams, leaderSpeed, leaderDecel float64) float64 {
	gap := speed * p.Tau
	if p.Decel > 0 {
		gap += speed * speed / (2 * p.Decel)
	}
	if leaderDecel > 0 {
		gap -= leaderSpeed * leaderSpeed / (2 * leaderDecel)
	}
	if gap < 0 {
		return 0
	}
	return gap
}
