package platoon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/platoon/core/model"
)

func TestNewCatalog(t *testing.T) {
	cat, err := NewCatalog(nil)
	require.NoError(t, err)
	p, ok := cat.Params("whatever")
	require.True(t, ok)
	assert.Equal(t, DefaultModeParams[model.ModeFollower], p.For(model.ModeFollower))

	cat, err = NewCatalog(map[string]map[string]ModeParams{
		"truck": {"FOLLOWER": {Decel: 3, Tau: 0.5}},
	})
	require.NoError(t, err)
	p, ok = cat.Params("truck")
	require.True(t, ok)
	assert.Equal(t, ModeParams{Decel: 3, Tau: 0.5}, p.For(model.ModeFollower))
	assert.Equal(t, DefaultModeParams[model.ModeLeader], p.For(model.ModeLeader))
	_, ok = cat.Params("car")
	assert.False(t, ok)

	_, err = NewCatalog(map[string]map[string]ModeParams{"truck": {"hover": {}}})
	assert.Error(t, err)
}

func TestKinematicSafety(t *testing.T) {
	e := &env{}
	v := newVehicle("v", "car", TypeParams{}, e)
	v.telemetry.Speed = 20
	v.currentMode = model.ModeFollower
	k := KinematicSafety{}

	assert.True(t, k.SwitchSafe(v, model.ModeLeader), "nothing ahead")

	v.leaderInfo = &model.LeaderInfo{LeaderID: "x", Gap: 5}
	assert.False(t, k.SwitchSafe(v, model.ModeLeader), "gap below headway of 20m")
	v.leaderInfo.Gap = 25
	assert.True(t, k.SwitchSafe(v, model.ModeLeader))

	// Shorter headway with equal braking is always accepted.
	v.currentMode = model.ModeNone
	v.leaderInfo.Gap = 1
	assert.True(t, k.SwitchSafe(v, model.ModeFollower))

	// A slow registered leader raises the requirement.
	l := newVehicle("l", "car", TypeParams{}, e)
	l.telemetry.Speed = 0
	v.leader = l
	v.currentMode = model.ModeFollower
	v.leaderInfo.Gap = 25
	assert.False(t, k.SwitchSafe(v, model.ModeLeader))
}

func TestRequiredGap(t *testing.T) {
	p := ModeParams{Decel: 5, Tau: 1}
	assert.InDelta(t, 10+10, RequiredGap(10, p, 0, 5), 1e-9)
	assert.InDelta(t, 10, RequiredGap(10, p, 10, 5), 1e-9)
	assert.Zero(t, RequiredGap(0, p, 10, 5))
}
