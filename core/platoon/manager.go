package platoon

import (
	"context"
	"sort"
	"time"

	"github.com/kilianp07/platoon/core/events"
	"github.com/kilianp07/platoon/core/logger"
	"github.com/kilianp07/platoon/core/metrics"
	"github.com/kilianp07/platoon/core/model"
	"github.com/kilianp07/platoon/core/simctl"
	"github.com/kilianp07/platoon/internal/eventbus"
)

// Options configures a Manager. Only Client is required.
type Options struct {
	Config Config
	Client simctl.Client
	// Catalog defaults to the catalog built from Config.VehicleTypes.
	Catalog TypeCatalog
	// Safety defaults to KinematicSafety.
	Safety SafetyChecker
	// Selector defaults to a SubstringSelector over
	// Config.VehicleTypeSelectors.
	Selector Selector
	Bus      eventbus.EventBus
	Logger   logger.Logger
	Metrics  metrics.MetricsSink
}

// Manager runs the platoon control loop. It is not safe for concurrent use;
// Step must be called from a single goroutine.
type Manager struct {
	cfg      Config
	client   simctl.Client
	catalog  TypeCatalog
	selector Selector
	log      logger.Logger
	sink     metrics.MetricsSink
	env      *env

	vehicles map[string]*Vehicle
	platoons map[int]*Platoon
	// shrunk holds platoons that lost members since the last decision cycle.
	shrunk map[int]bool

	controlInterval time.Duration
	sinceDecision   time.Duration
	lastStep        time.Duration
	started         bool
	stopped         bool

	warnedTypes map[string]bool
	report      metrics.StepReport
}

// NewManager validates the configuration and builds a Manager. Agents that
// are already in the simulation are registered immediately.
func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	if opts.Client == nil {
		return nil, ErrNilClient
	}
	cfg := opts.Config
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalog := opts.Catalog
	if catalog == nil {
		c, err := NewCatalog(cfg.VehicleTypes)
		if err != nil {
			return nil, err
		}
		catalog = c
	}
	safety := opts.Safety
	if safety == nil {
		safety = KinematicSafety{}
	}
	selector := opts.Selector
	if selector == nil {
		selector = SubstringSelector(append([]string(nil), cfg.VehicleTypeSelectors...))
	}
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}
	sink := opts.Metrics
	if sink == nil {
		sink = metrics.NopSink{}
	}
	m := &Manager{
		cfg:      cfg,
		client:   opts.Client,
		catalog:  catalog,
		selector: selector,
		log:      log,
		sink:     sink,
		env: &env{
			client:         opts.Client,
			safety:         safety,
			log:            log,
			bus:            opts.Bus,
			splitCountdown: cfg.SplitCountdownDuration(),
		},
		vehicles:        make(map[string]*Vehicle),
		platoons:        make(map[int]*Platoon),
		shrunk:          make(map[int]bool),
		controlInterval: cfg.ControlInterval(opts.Client.StepLength()),
		warnedTypes:     make(map[string]bool),
	}
	ids, err := opts.Client.ActiveAgents(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	for _, id := range ids {
		m.registerVehicle(ctx, id)
	}
	m.log.Infof("platoon manager started: %d vehicles, control interval %s", len(m.vehicles), m.controlInterval)
	return m, nil
}

// Step runs one control step at simulation time now. Arrivals, departures
// and telemetry are processed every call; the follower, leader and lane
// decisions run once the control interval has elapsed.
func (m *Manager) Step(ctx context.Context, now time.Duration) metrics.StepReport {
	if m.stopped {
		m.log.Warnf("step at %s after stop ignored", now)
		return metrics.StepReport{SimTime: now}
	}
	start := time.Now()
	defer func() { stepDuration.Observe(time.Since(start).Seconds()) }()

	m.report = metrics.StepReport{SimTime: now}
	m.env.now = now
	elapsed := m.client.StepLength()
	if m.started {
		elapsed = max(now-m.lastStep, 0)
	}
	m.started = true
	m.lastStep = now
	m.sinceDecision += elapsed

	m.processArrivals(ctx)
	m.processDepartures(ctx)
	m.refreshTelemetry(ctx)

	if m.sinceDecision >= m.controlInterval {
		dt := m.sinceDecision
		m.sinceDecision = 0
		m.report.Decided = true
		m.manageFollowers(ctx, dt)
		m.manageLeaders(ctx)
		m.adviseLanes(ctx)
		clear(m.shrunk)

		fs := ComputeFleetStats(m.sortedPlatoons(), now)
		observeFleet(fs)
		if r, ok := m.sink.(metrics.FleetStatsRecorder); ok {
			if err := r.RecordFleetStats(fs); err != nil {
				m.log.Warnf("record fleet stats: %v", err)
			}
		}
	}

	m.report.Vehicles = len(m.vehicles)
	m.report.Platoons = len(m.platoons)
	if err := m.sink.RecordStep(m.report); err != nil {
		m.log.Warnf("record step: %v", err)
	}
	m.env.publish(events.StepCompleted{Report: m.report})
	return m.report
}

// Stop returns every controlled vehicle to NONE, cancels its telemetry
// subscription and clears the registries. Later calls are no-ops.
func (m *Manager) Stop(ctx context.Context) {
	if m.stopped {
		return
	}
	m.stopped = true
	for _, id := range m.sortedVehicleIDs() {
		v := m.vehicles[id]
		if v.currentMode != model.ModeNone {
			if err := v.applyMode(ctx, model.ModeNone); err != nil {
				m.log.Warnf("reset %s on stop: %v", id, err)
			}
		}
		if err := m.client.Unsubscribe(ctx, id); err != nil {
			m.log.Debugf("unsubscribe %s: %v", id, err)
		}
		v.connected = false
		v.platoon = nil
		v.leader = nil
	}
	m.log.Infof("platoon manager stopped: released %d vehicles in %d platoons", len(m.vehicles), len(m.platoons))
	m.vehicles = make(map[string]*Vehicle)
	m.platoons = make(map[int]*Platoon)
	clear(m.shrunk)
}

// PlatoonLeaders returns the leaders of all platoons with more than one
// member, ordered by vehicle id.
func (m *Manager) PlatoonLeaders() []*Vehicle {
	out := make([]*Vehicle, 0, len(m.platoons))
	for _, p := range m.platoons {
		if p.Size() > 1 {
			out = append(out, p.Leader())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// SelectionSubstrings returns the configured vehicle type selectors.
func (m *Manager) SelectionSubstrings() []string {
	if s, ok := m.selector.(SubstringSelector); ok {
		return append([]string(nil), s...)
	}
	return append([]string(nil), m.cfg.VehicleTypeSelectors...)
}

// Vehicles returns the controlled vehicles ordered by id.
func (m *Manager) Vehicles() []*Vehicle {
	out := make([]*Vehicle, 0, len(m.vehicles))
	for _, id := range m.sortedVehicleIDs() {
		out = append(out, m.vehicles[id])
	}
	return out
}

// Vehicle returns the controlled vehicle with the given id.
func (m *Manager) Vehicle(id string) (*Vehicle, bool) {
	v, ok := m.vehicles[id]
	return v, ok
}

// Platoons returns all platoons ordered by id.
func (m *Manager) Platoons() []*Platoon { return m.sortedPlatoons() }

// ControlInterval returns the period of the decision phases.
func (m *Manager) ControlInterval() time.Duration { return m.controlInterval }

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

func (m *Manager) sortedVehicleIDs() []string {
	ids := make([]string, 0, len(m.vehicles))
	for id := range m.vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) sortedPlatoons() []*Platoon {
	out := make([]*Platoon, 0, len(m.platoons))
	for _, p := range m.platoons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
