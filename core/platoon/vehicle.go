package platoon

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/platoon/core/events"
	"github.com/kilianp07/platoon/core/model"
	"github.com/kilianp07/platoon/core/simctl"
)

// Vehicle is one agent under platoon control.
type Vehicle struct {
	id       string
	typeName string
	params   TypeParams
	env      *env

	platoon    *Platoon
	telemetry  model.Telemetry
	leaderInfo *model.LeaderInfo
	// leader is the registered vehicle referenced by leaderInfo, if any.
	leader *Vehicle

	currentMode model.Mode
	desiredMode model.Mode

	splitPending   bool
	splitCountdown time.Duration
	connected      bool
}

func newVehicle(id, typeName string, params TypeParams, e *env) *Vehicle {
	return &Vehicle{
		id:             id,
		typeName:       typeName,
		params:         params,
		env:            e,
		splitCountdown: e.splitCountdown,
		connected:      true,
	}
}

func (v *Vehicle) ID() string                    { return v.id }
func (v *Vehicle) TypeName() string              { return v.typeName }
func (v *Vehicle) Params() TypeParams            { return v.params }
func (v *Vehicle) Platoon() *Platoon             { return v.platoon }
func (v *Vehicle) Telemetry() model.Telemetry    { return v.telemetry }
func (v *Vehicle) CurrentMode() model.Mode       { return v.currentMode }
func (v *Vehicle) DesiredMode() model.Mode       { return v.desiredMode }
func (v *Vehicle) Connected() bool               { return v.connected }
func (v *Vehicle) SplitCountdown() time.Duration { return v.splitCountdown }
func (v *Vehicle) SplitPending() bool            { return v.splitPending }

// LeaderInfo returns a copy of the last reported leader, or nil.
func (v *Vehicle) LeaderInfo() *model.LeaderInfo {
	if v.leaderInfo == nil {
		return nil
	}
	li := *v.leaderInfo
	return &li
}

// Leader returns the registered vehicle immediately ahead, or nil when the
// vehicle ahead is absent or not under platoon control.
func (v *Vehicle) Leader() *Vehicle { return v.leader }

func (v *Vehicle) resetSplitCountdown() {
	v.splitCountdown = v.env.splitCountdown
	v.splitPending = false
}

func (v *Vehicle) switchSafe(to model.Mode) bool {
	if to == v.currentMode || v.env.safety == nil {
		return true
	}
	return v.env.safety.SwitchSafe(v, to)
}

// applyMode issues the mode command. currentMode only changes when the
// simulator accepted it.
func (v *Vehicle) applyMode(ctx context.Context, mode model.Mode) error {
	if mode == v.currentMode {
		return nil
	}
	if err := v.env.client.SetMode(ctx, v.id, mode); err != nil {
		switch {
		case errors.Is(err, simctl.ErrUnknownAgent):
			v.env.log.Warnf("set mode %s for %s: %v", mode, v.id, err)
		case errors.Is(err, simctl.ErrCommandRejected):
			v.env.log.Debugf("set mode %s for %s: %v", mode, v.id, err)
		default:
			v.env.log.Errorf("set mode %s for %s: %v", mode, v.id, err)
		}
		modeCommandFailures.WithLabelValues(mode.String()).Inc()
		return err
	}
	from := v.currentMode
	v.currentMode = mode
	modeCommands.WithLabelValues(mode.String()).Inc()
	v.env.publish(events.ModeChanged{VehicleID: v.id, From: from, To: mode, SimTime: v.env.now})
	return nil
}

// setDesiredMode records mode as the target and switches to it when safe.
// An unsafe or rejected switch is retried by AdviseMemberModes.
func (v *Vehicle) setDesiredMode(ctx context.Context, mode model.Mode) bool {
	v.desiredMode = mode
	if !v.switchSafe(mode) {
		v.env.log.Debugf("switch of %s from %s to %s deferred: unsafe", v.id, v.currentMode, mode)
		return false
	}
	if err := v.applyMode(ctx, mode); err != nil {
		v.env.publish(events.OperationRejected{
			Op:        events.OpSetMode,
			PlatoonID: v.platoonID(),
			VehicleID: v.id,
			Mode:      mode,
			Err:       err,
			SimTime:   v.env.now,
		})
		return false
	}
	return true
}

func (v *Vehicle) platoonID() int {
	if v.platoon == nil {
		return 0
	}
	return v.platoon.id
}
