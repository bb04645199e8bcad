package platoon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/platoon/core/events"
	"github.com/kilianp07/platoon/core/model"
	"github.com/kilianp07/platoon/internal/eventbus"
)

func testEnv(sim *fakeSim) *env {
	return &env{client: sim, safety: KinematicSafety{}, log: nopLogger{}, splitCountdown: 3e9}
}

func singleton(e *env, sim *fakeSim, id string) *Platoon {
	sim.agents[id] = &fakeAgent{typ: "car"}
	return newPlatoon(e, []*Vehicle{newVehicle(id, "car", TypeParams{}, e)}, model.ModeNone)
}

func TestPlatoonJoinAndSplit(t *testing.T) {
	sim := newFakeSim()
	e := testEnv(sim)
	ctx := context.Background()
	a := singleton(e, sim, "a")
	b := singleton(e, sim, "b")
	c := singleton(e, sim, "c")

	require.True(t, a.Join(ctx, b))
	require.True(t, a.Join(ctx, c))
	assert.Equal(t, []string{"a", "b", "c"}, a.MemberIDs())
	assert.Zero(t, b.Size())
	assert.Equal(t, model.ModeLeader, a.Mode())
	for _, v := range a.Members() {
		assert.Same(t, a, v.Platoon())
	}
	assert.Equal(t, 2, a.IndexOf(a.Last()))
	assert.Equal(t, -1, a.IndexOf(b.Leader()))
	assert.False(t, a.Join(ctx, a), "self join")
	assert.False(t, a.Join(ctx, b), "empty platoon")

	tail := a.Split(ctx, 1)
	require.NotNil(t, tail)
	assert.Equal(t, []string{"a"}, a.MemberIDs())
	assert.Equal(t, model.ModeNone, a.Mode())
	assert.Equal(t, []string{"b", "c"}, tail.MemberIDs())
	assert.Equal(t, model.ModeLeader, tail.Mode())
	assert.Equal(t, model.ModeLeader, tail.Leader().CurrentMode())
	assert.NotEqual(t, a.ID(), tail.ID())

	assert.Nil(t, tail.Split(ctx, 0))
	assert.Nil(t, tail.Split(ctx, 2))
}

func TestPlatoonSetModeRejectedLeavesStateUnchanged(t *testing.T) {
	sim := newFakeSim()
	e := testEnv(sim)
	ctx := context.Background()
	a := singleton(e, sim, "a")
	require.True(t, a.Join(ctx, singleton(e, sim, "b")))

	sim.rejectMode["a"] = true
	assert.False(t, a.SetMode(ctx, model.ModeCatchup))
	assert.Equal(t, model.ModeLeader, a.Mode())
	assert.Equal(t, model.ModeLeader, a.Leader().CurrentMode())

	sim.rejectMode["a"] = false
	assert.True(t, a.SetMode(ctx, model.ModeCatchup))
	assert.Equal(t, model.ModeCatchup, a.Mode())
	assert.Equal(t, model.ModeFollower, a.Last().CurrentMode())
}

func TestPlatoonRemoveVehicles(t *testing.T) {
	sim := newFakeSim()
	e := testEnv(sim)
	ctx := context.Background()
	a := singleton(e, sim, "a")
	require.True(t, a.Join(ctx, singleton(e, sim, "b")))
	require.True(t, a.Join(ctx, singleton(e, sim, "c")))
	first := a.Leader()

	a.RemoveVehicles(ctx, []*Vehicle{first})
	assert.Equal(t, []string{"b", "c"}, a.MemberIDs())
	assert.Nil(t, first.Platoon())
	assert.Equal(t, model.ModeLeader, a.Leader().DesiredMode())
	assert.Equal(t, model.ModeLeader, a.Leader().CurrentMode())

	a.RemoveVehicles(ctx, []*Vehicle{a.Last()})
	assert.Equal(t, model.ModeNone, a.Mode())
	assert.Equal(t, model.ModeNone, a.Leader().CurrentMode())
}

func TestAdviseMemberModesRetriesPendingSwitch(t *testing.T) {
	sim := newFakeSim()
	e := testEnv(sim)
	ctx := context.Background()
	a := singleton(e, sim, "a")
	b := singleton(e, sim, "b")
	sim.rejectMode["a"] = true
	require.True(t, a.Join(ctx, b))
	assert.Equal(t, model.ModeNone, a.Leader().CurrentMode())
	assert.Equal(t, model.ModeLeader, a.Leader().DesiredMode())

	sim.rejectMode["a"] = false
	a.AdviseMemberModes(ctx)
	assert.Equal(t, model.ModeLeader, a.Leader().CurrentMode())
}

func TestAdviseMemberModesReportsRejection(t *testing.T) {
	sim := newFakeSim()
	e := testEnv(sim)
	ctx := context.Background()
	a := singleton(e, sim, "a")
	b := singleton(e, sim, "b")
	sim.rejectMode["a"] = true
	require.True(t, a.Join(ctx, b))

	bus := eventbus.New()
	sub := bus.Subscribe()
	e.bus = bus
	a.AdviseMemberModes(ctx)

	var rejected []events.OperationRejected
	for len(sub) > 0 {
		if ev, ok := (<-sub).(events.OperationRejected); ok {
			rejected = append(rejected, ev)
		}
	}
	require.Len(t, rejected, 1)
	assert.Equal(t, events.OpSetMode, rejected[0].Op)
	assert.Equal(t, "a", rejected[0].VehicleID)
	assert.Equal(t, model.ModeLeader, rejected[0].Mode)
	assert.Equal(t, a.ID(), rejected[0].PlatoonID)
	assert.Error(t, rejected[0].Err)
	assert.Equal(t, model.ModeNone, a.Leader().CurrentMode())
}

func TestComputeFleetStats(t *testing.T) {
	sim := newFakeSim()
	e := testEnv(sim)
	ctx := context.Background()
	a := singleton(e, sim, "a")
	require.True(t, a.Join(ctx, singleton(e, sim, "b")))
	require.True(t, a.Join(ctx, singleton(e, sim, "c")))
	d := singleton(e, sim, "d")

	fs := ComputeFleetStats([]*Platoon{a, d}, 0)
	assert.Equal(t, 4, fs.Vehicles)
	assert.Equal(t, 2, fs.Platoons)
	assert.Equal(t, 3, fs.Platooned)
	assert.Equal(t, 3, fs.MaxSize)
	assert.InDelta(t, 2.0, fs.MeanSize, 1e-9)
	assert.InDelta(t, 1.0, fs.StdDevSize, 1e-9)
	assert.InDelta(t, 0.75, fs.PlatoonedShare, 1e-9)

	empty := ComputeFleetStats(nil, 0)
	assert.Zero(t, empty.Vehicles)
	assert.Zero(t, empty.MeanSize)
}
