package platoon

import (
	"context"
	"sort"
	"time"

	"github.com/kilianp07/platoon/core/model"
	"github.com/kilianp07/platoon/core/simctl"
)

type modeCmd struct {
	id   string
	mode model.Mode
}

type laneCmd struct {
	id      string
	lane    int
	horizon time.Duration
}

type fakeAgent struct {
	typ    string
	tel    model.Telemetry
	leader *model.LeaderInfo
}

// fakeSim is a scripted simulator: tests set telemetry and leaders directly.
type fakeSim struct {
	step       time.Duration
	agents     map[string]*fakeAgent
	departed   []string
	arrived    []string
	subs       map[string]simctl.Subscription
	modes      []modeCmd
	lanes      []laneCmd
	rejectMode map[string]bool
	rejectLane map[string]bool
	// vanish makes AgentType fail with ErrUnknownAgent for these ids.
	vanish map[string]bool
}

func newFakeSim() *fakeSim {
	return &fakeSim{
		step:       100 * time.Millisecond,
		agents:     make(map[string]*fakeAgent),
		subs:       make(map[string]simctl.Subscription),
		rejectMode: make(map[string]bool),
		rejectLane: make(map[string]bool),
		vanish:     make(map[string]bool),
	}
}

// enter adds an agent on edge e1 lane 0 and reports it as departed.
func (f *fakeSim) enter(id, typ string) {
	f.agents[id] = &fakeAgent{typ: typ, tel: model.Telemetry{Speed: 10, EdgeID: "e1", LaneID: "e1_0"}}
	f.departed = append(f.departed, id)
}

func (f *fakeSim) leave(id string) {
	delete(f.agents, id)
	delete(f.subs, id)
	f.arrived = append(f.arrived, id)
}

func (f *fakeSim) follow(id, leader string, gap float64) {
	if leader == "" {
		f.agents[id].leader = nil
		return
	}
	f.agents[id].leader = &model.LeaderInfo{LeaderID: leader, Gap: gap}
}

func (f *fakeSim) place(id, edge string, lane int) {
	a := f.agents[id]
	a.tel.EdgeID = edge
	a.tel.LaneIndex = lane
}

func (f *fakeSim) resetCommands() {
	f.modes = nil
	f.lanes = nil
}

func (f *fakeSim) modesFor(id string) []model.Mode {
	var out []model.Mode
	for _, c := range f.modes {
		if c.id == id {
			out = append(out, c.mode)
		}
	}
	return out
}

func (f *fakeSim) ActiveAgents(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.agents))
	for id := range f.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	f.departed = nil
	return ids, nil
}

func (f *fakeSim) Departed(context.Context) ([]string, error) {
	out := f.departed
	f.departed = nil
	return out, nil
}

func (f *fakeSim) Arrived(context.Context) ([]string, error) {
	out := f.arrived
	f.arrived = nil
	return out, nil
}

func (f *fakeSim) AgentType(_ context.Context, id string) (string, error) {
	a, ok := f.agents[id]
	if !ok || f.vanish[id] {
		return "", simctl.ErrUnknownAgent
	}
	return a.typ, nil
}

func (f *fakeSim) Subscribe(_ context.Context, id string, sub simctl.Subscription) error {
	if _, ok := f.agents[id]; !ok {
		return simctl.ErrUnknownAgent
	}
	f.subs[id] = sub
	return nil
}

func (f *fakeSim) Unsubscribe(_ context.Context, id string) error {
	if _, ok := f.subs[id]; !ok {
		return simctl.ErrUnknownAgent
	}
	delete(f.subs, id)
	return nil
}

func (f *fakeSim) BulkTelemetry(context.Context) (map[string]model.Snapshot, error) {
	out := make(map[string]model.Snapshot, len(f.subs))
	for id := range f.subs {
		a := f.agents[id]
		s := model.Snapshot{Telemetry: a.tel}
		if a.leader != nil {
			li := *a.leader
			s.Leader = &li
		}
		out[id] = s
	}
	return out, nil
}

func (f *fakeSim) RequestLaneChange(_ context.Context, id string, lane int, horizon time.Duration) error {
	if _, ok := f.agents[id]; !ok {
		return simctl.ErrUnknownAgent
	}
	if f.rejectLane[id] {
		return simctl.ErrCommandRejected
	}
	f.lanes = append(f.lanes, laneCmd{id: id, lane: lane, horizon: horizon})
	return nil
}

func (f *fakeSim) SetMode(_ context.Context, id string, mode model.Mode) error {
	if _, ok := f.agents[id]; !ok {
		return simctl.ErrUnknownAgent
	}
	if f.rejectMode[id] {
		return simctl.ErrCommandRejected
	}
	f.modes = append(f.modes, modeCmd{id: id, mode: mode})
	return nil
}

func (f *fakeSim) StepLength() time.Duration { return f.step }

// clock drives a manager one simulation step at a time.
type clock struct {
	now  time.Duration
	step time.Duration
}

func (c *clock) next() time.Duration {
	c.now += c.step
	return c.now
}
