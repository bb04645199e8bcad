package simctl

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/platoon/core/model"
	coresim "github.com/kilianp07/platoon/core/simctl"
)

// AgentSpec describes a vehicle injected into the in-memory simulator.
type AgentSpec struct {
	ID       string        `yaml:"id" json:"id"`
	Type     string        `yaml:"type" json:"type"`
	Edge     string        `yaml:"edge" json:"edge"`
	Lane     int           `yaml:"lane" json:"lane"`
	Position float64       `yaml:"position" json:"position"`
	Speed    float64       `yaml:"speed" json:"speed"`
	DepartAt time.Duration `yaml:"depart_at" json:"depart_at"`
}

// MemoryOptions configures the road model of the in-memory simulator.
type MemoryOptions struct {
	StepLength time.Duration
	// RoadLength is the position at which agents leave the simulation.
	// Zero keeps agents forever.
	RoadLength float64
	Lanes      int
	// CatchupFactor scales the cruising speed of agents in CATCHUP mode.
	CatchupFactor float64
	VehicleLength float64
	// MinGap is the standstill distance kept to the agent ahead.
	MinGap float64
}

func (o *MemoryOptions) setDefaults() {
	if o.StepLength <= 0 {
		o.StepLength = 100 * time.Millisecond
	}
	if o.Lanes <= 0 {
		o.Lanes = 3
	}
	if o.CatchupFactor <= 0 {
		o.CatchupFactor = 1.2
	}
	if o.VehicleLength <= 0 {
		o.VehicleLength = 5
	}
	if o.MinGap <= 0 {
		o.MinGap = 1
	}
}

// ModeCommand records an accepted SetMode call.
type ModeCommand struct {
	ID   string
	Mode model.Mode
	At   time.Duration
}

// LaneCommand records an accepted RequestLaneChange call.
type LaneCommand struct {
	ID      string
	Lane    int
	Horizon time.Duration
	At      time.Duration
}

type memAgent struct {
	spec  AgentSpec
	pos   float64
	lane  int
	speed float64
	mode  model.Mode
	sub   *coresim.Subscription
}

// MemoryClient is an in-process single-road simulator implementing the
// simulator client. Agents drive along their edge at a constant cruising
// speed; followers adopt the speed of the agent ahead and nobody overtakes
// inside a lane.
type MemoryClient struct {
	mu   sync.Mutex
	opts MemoryOptions
	now  time.Duration

	agents    map[string]*memAgent
	scheduled []AgentSpec
	departed  []string
	arrived   []string

	modeCmds   []ModeCommand
	laneCmds   []LaneCommand
	rejectMode map[string]bool
	rejectLane map[string]bool
}

var _ coresim.Client = (*MemoryClient)(nil)

// NewMemoryClient returns an empty simulator at time zero.
func NewMemoryClient(opts MemoryOptions) *MemoryClient {
	opts.setDefaults()
	return &MemoryClient{
		opts:       opts,
		agents:     make(map[string]*memAgent),
		rejectMode: make(map[string]bool),
		rejectLane: make(map[string]bool),
	}
}

// Spawn injects an agent. Agents with DepartAt in the future enter during
// the first Advance that reaches that time.
func (m *MemoryClient) Spawn(spec AgentSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if spec.ID == "" {
		return fmt.Errorf("simctl: agent id is required")
	}
	if _, ok := m.agents[spec.ID]; ok {
		return fmt.Errorf("simctl: agent %s already exists", spec.ID)
	}
	if spec.DepartAt > m.now {
		m.scheduled = append(m.scheduled, spec)
		sort.SliceStable(m.scheduled, func(i, j int) bool { return m.scheduled[i].DepartAt < m.scheduled[j].DepartAt })
		return nil
	}
	m.insert(spec)
	return nil
}

func (m *MemoryClient) insert(spec AgentSpec) {
	if spec.Edge == "" {
		spec.Edge = "e0"
	}
	m.agents[spec.ID] = &memAgent{spec: spec, pos: spec.Position, lane: spec.Lane, speed: spec.Speed}
	m.departed = append(m.departed, spec.ID)
}

// Remove takes an agent out of the simulation as if it reached its
// destination.
func (m *MemoryClient) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; ok {
		delete(m.agents, id)
		m.arrived = append(m.arrived, id)
	}
}

// Place moves an agent to an edge, lane and position.
func (m *MemoryClient) Place(id, edge string, lane int, pos float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return fmt.Errorf("place %s: %w", id, coresim.ErrUnknownAgent)
	}
	a.spec.Edge = edge
	a.lane = lane
	a.pos = pos
	return nil
}

// SetSpeed changes the cruising speed of an agent.
func (m *MemoryClient) SetSpeed(id string, speed float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return fmt.Errorf("set speed %s: %w", id, coresim.ErrUnknownAgent)
	}
	a.spec.Speed = speed
	a.speed = speed
	return nil
}

// RejectMode makes SetMode fail with ErrCommandRejected for id.
func (m *MemoryClient) RejectMode(id string, reject bool) {
	m.mu.Lock()
	m.rejectMode[id] = reject
	m.mu.Unlock()
}

// RejectLaneChange makes RequestLaneChange fail with ErrCommandRejected for id.
func (m *MemoryClient) RejectLaneChange(id string, reject bool) {
	m.mu.Lock()
	m.rejectLane[id] = reject
	m.mu.Unlock()
}

// Time returns the current simulation time.
func (m *MemoryClient) Time() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Mode returns the last mode accepted for id.
func (m *MemoryClient) Mode(id string) (model.Mode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return model.ModeNone, false
	}
	return a.mode, true
}

// Position returns the position of id on its edge.
func (m *MemoryClient) Position(id string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return 0, false
	}
	return a.pos, true
}

// ModeCommands returns every accepted mode command in order.
func (m *MemoryClient) ModeCommands() []ModeCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ModeCommand(nil), m.modeCmds...)
}

// LaneCommands returns every accepted lane change request in order.
func (m *MemoryClient) LaneCommands() []LaneCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LaneCommand(nil), m.laneCmds...)
}

// Advance performs one simulation step and returns the new time.
func (m *MemoryClient) Advance() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += m.opts.StepLength
	for len(m.scheduled) > 0 && m.scheduled[0].DepartAt <= m.now {
		spec := m.scheduled[0]
		m.scheduled = m.scheduled[1:]
		if _, ok := m.agents[spec.ID]; ok {
			continue
		}
		m.insert(spec)
	}

	dt := m.opts.StepLength.Seconds()
	// Front to back so every agent sees the already moved agent ahead.
	for _, a := range m.frontToBack() {
		v := a.spec.Speed
		if a.mode == model.ModeCatchup {
			v *= m.opts.CatchupFactor
		}
		ahead, _ := m.ahead(a, math.Inf(1))
		if ahead != nil && a.mode == model.ModeFollower {
			v = ahead.speed
		}
		next := a.pos + v*dt
		if ahead != nil {
			limit := ahead.pos - m.opts.VehicleLength - m.opts.MinGap
			if next > limit {
				next = math.Max(a.pos, limit)
				v = (next - a.pos) / dt
			}
		}
		a.pos = next
		a.speed = v
	}

	if m.opts.RoadLength > 0 {
		for _, id := range m.sortedIDs() {
			if m.agents[id].pos >= m.opts.RoadLength {
				delete(m.agents, id)
				m.arrived = append(m.arrived, id)
			}
		}
	}
	return m.now
}

func (m *MemoryClient) sortedIDs() []string {
	ids := make([]string, 0, len(m.agents))
	for id := range m.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *MemoryClient) frontToBack() []*memAgent {
	out := make([]*memAgent, 0, len(m.agents))
	for _, id := range m.sortedIDs() {
		out = append(out, m.agents[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].pos > out[j].pos })
	return out
}

// ahead returns the nearest agent in front of a on the same edge and lane
// within maxRange, with the bumper to bumper gap.
func (m *MemoryClient) ahead(a *memAgent, maxRange float64) (*memAgent, float64) {
	var best *memAgent
	bestGap := math.Inf(1)
	for _, id := range m.sortedIDs() {
		o := m.agents[id]
		if o == a || o.spec.Edge != a.spec.Edge || o.lane != a.lane || o.pos <= a.pos {
			continue
		}
		gap := o.pos - a.pos - m.opts.VehicleLength
		if gap < 0 {
			gap = 0
		}
		if gap <= maxRange && gap < bestGap {
			best, bestGap = o, gap
		}
	}
	return best, bestGap
}

func (m *MemoryClient) ActiveAgents(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedIDs(), nil
}

func (m *MemoryClient) Departed(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.departed
	m.departed = nil
	return out, nil
}

func (m *MemoryClient) Arrived(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.arrived
	m.arrived = nil
	return out, nil
}

func (m *MemoryClient) AgentType(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return "", fmt.Errorf("agent type %s: %w", id, coresim.ErrUnknownAgent)
	}
	return a.spec.Type, nil
}

func (m *MemoryClient) Subscribe(_ context.Context, id string, sub coresim.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return fmt.Errorf("subscribe %s: %w", id, coresim.ErrUnknownAgent)
	}
	a.sub = &sub
	return nil
}

// Unsubscribe is a no-op for agents that already left.
func (m *MemoryClient) Unsubscribe(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.agents[id]; ok {
		a.sub = nil
	}
	return nil
}

func (m *MemoryClient) BulkTelemetry(context.Context) (map[string]model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.Snapshot)
	for id, a := range m.agents {
		if a.sub == nil {
			continue
		}
		snap := model.Snapshot{Telemetry: model.Telemetry{
			Speed:     a.speed,
			EdgeID:    a.spec.Edge,
			LaneID:    fmt.Sprintf("%s_%d", a.spec.Edge, a.lane),
			LaneIndex: a.lane,
		}}
		if o, gap := m.ahead(a, a.sub.LeaderRange); o != nil {
			snap.Leader = &model.LeaderInfo{LeaderID: o.spec.ID, Gap: gap}
		}
		out[id] = snap
	}
	return out, nil
}

// RequestLaneChange moves the agent to laneIndex at once. Requesting the
// current lane keeps the agent in it and is recorded like any other command.
func (m *MemoryClient) RequestLaneChange(_ context.Context, id string, laneIndex int, horizon time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return fmt.Errorf("lane change %s: %w", id, coresim.ErrUnknownAgent)
	}
	if m.rejectLane[id] || laneIndex < 0 || laneIndex >= m.opts.Lanes {
		return fmt.Errorf("lane change %s to %d: %w", id, laneIndex, coresim.ErrCommandRejected)
	}
	a.lane = laneIndex
	m.laneCmds = append(m.laneCmds, LaneCommand{ID: id, Lane: laneIndex, Horizon: horizon, At: m.now})
	return nil
}

func (m *MemoryClient) SetMode(_ context.Context, id string, mode model.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return fmt.Errorf("set mode %s: %w", id, coresim.ErrUnknownAgent)
	}
	if m.rejectMode[id] {
		return fmt.Errorf("set mode %s to %s: %w", id, mode, coresim.ErrCommandRejected)
	}
	a.mode = mode
	m.modeCmds = append(m.modeCmds, ModeCommand{ID: id, Mode: mode, At: m.now})
	return nil
}

func (m *MemoryClient) StepLength() time.Duration { return m.opts.StepLength }
