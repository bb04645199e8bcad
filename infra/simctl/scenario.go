package simctl

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Road describes the simulated road of a scenario.
type Road struct {
	Length        float64       `yaml:"length"`
	Lanes         int           `yaml:"lanes"`
	CatchupFactor float64       `yaml:"catchup_factor"`
	VehicleLength float64       `yaml:"vehicle_length"`
	StepLength    time.Duration `yaml:"step_length"`
}

// Scripted scenario actions.
const (
	ActionRemove   = "remove"
	ActionSetSpeed = "set_speed"
	ActionPlace    = "place"
	ActionReject   = "reject_mode"
	ActionAccept   = "accept_mode"
)

// ScenarioEvent is applied once the simulation time reaches At.
type ScenarioEvent struct {
	At       time.Duration `yaml:"at"`
	Action   string        `yaml:"action"`
	Agent    string        `yaml:"agent"`
	Speed    float64       `yaml:"speed"`
	Edge     string        `yaml:"edge"`
	Lane     int           `yaml:"lane"`
	Position float64       `yaml:"position"`
}

// Scenario is a scripted traffic situation for the in-memory simulator.
type Scenario struct {
	Name     string          `yaml:"name"`
	Duration time.Duration   `yaml:"duration"`
	Road     Road            `yaml:"road"`
	Agents   []AgentSpec     `yaml:"agents"`
	Events   []ScenarioEvent `yaml:"events"`

	next int
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(b)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(b []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	seen := make(map[string]bool, len(s.Agents))
	for _, a := range s.Agents {
		if a.ID == "" {
			return nil, fmt.Errorf("scenario %q: agent without id", s.Name)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("scenario %q: duplicate agent %s", s.Name, a.ID)
		}
		seen[a.ID] = true
	}
	for _, ev := range s.Events {
		switch ev.Action {
		case ActionRemove, ActionSetSpeed, ActionPlace, ActionReject, ActionAccept:
		default:
			return nil, fmt.Errorf("scenario %q: unknown action %q", s.Name, ev.Action)
		}
	}
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].At < s.Events[j].At })
	return &s, nil
}

// Build creates a simulator populated with the scenario agents.
func (s *Scenario) Build() (*MemoryClient, error) {
	m := NewMemoryClient(MemoryOptions{
		StepLength:    s.Road.StepLength,
		RoadLength:    s.Road.Length,
		Lanes:         s.Road.Lanes,
		CatchupFactor: s.Road.CatchupFactor,
		VehicleLength: s.Road.VehicleLength,
	})
	for _, a := range s.Agents {
		if err := m.Spawn(a); err != nil {
			return nil, err
		}
	}
	s.next = 0
	return m, nil
}

// Apply runs every event due at or before now that was not applied yet.
func (s *Scenario) Apply(m *MemoryClient, now time.Duration) error {
	for s.next < len(s.Events) && s.Events[s.next].At <= now {
		ev := s.Events[s.next]
		s.next++
		var err error
		switch ev.Action {
		case ActionRemove:
			m.Remove(ev.Agent)
		case ActionSetSpeed:
			err = m.SetSpeed(ev.Agent, ev.Speed)
		case ActionPlace:
			err = m.Place(ev.Agent, ev.Edge, ev.Lane, ev.Position)
		case ActionReject:
			m.RejectMode(ev.Agent, true)
		case ActionAccept:
			m.RejectMode(ev.Agent, false)
		}
		if err != nil {
			return fmt.Errorf("scenario event %s at %s: %w", ev.Action, ev.At, err)
		}
	}
	return nil
}
