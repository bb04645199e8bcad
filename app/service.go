package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/platoon/api"
	"github.com/kilianp07/platoon/config"
	"github.com/kilianp07/platoon/core/eventlog"
	coremetrics "github.com/kilianp07/platoon/core/metrics"
	"github.com/kilianp07/platoon/core/platoon"
	coresim "github.com/kilianp07/platoon/core/simctl"
	"github.com/kilianp07/platoon/core/vehiclestatus"
	"github.com/kilianp07/platoon/infra/logger"
	"github.com/kilianp07/platoon/infra/metrics"
	"github.com/kilianp07/platoon/infra/simctl"
	"github.com/kilianp07/platoon/internal/eventbus"
)

// busBuffer leaves room for the burst of registration events when the
// manager attaches to a crowded simulation.
const busBuffer = 1024

// ErrTickStreamClosed is returned by Run when the simulator stops sending
// step notifications.
var ErrTickStreamClosed = errors.New("simulator tick stream closed")

// Service wires the simulator transport, the platoon manager and the
// observability sinks.
type Service struct {
	cfg    *config.Config
	client coresim.Client
	ticker coresim.Ticker

	// memory transport only
	sim      *simctl.MemoryClient
	scenario *simctl.Scenario

	bus     *eventbus.Bus
	sink    coremetrics.MetricsSink
	store   eventlog.LogStore
	status  *vehiclestatus.MemoryStore
	log     logger.Logger
	manager *platoon.Manager
	closers []func()
}

// New creates a Service from the configuration. The platoon manager is
// created by Run once the event consumers are attached.
func New(cfg *config.Config) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		log:    logger.New("service"),
		bus:    eventbus.NewWithBuffer(busBuffer),
		status: vehiclestatus.NewMemoryStore(),
	}

	switch cfg.Simulator.Transport {
	case config.TransportMQTT:
		cli, err := simctl.NewMQTTClient(cfg.Simulator.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.client, s.ticker = cli, cli
		s.closers = append(s.closers, cli.Close)
	case config.TransportMemory:
		if err := s.setupMemory(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown simulator transport %q", cfg.Simulator.Transport)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	s.sink = sink

	store, err := eventlog.New(cfg.EventLog)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("event log: %w", err)
	}
	s.store = store
	return s, nil
}

func (s *Service) setupMemory() error {
	step := time.Duration(s.cfg.Simulator.StepLengthMS) * time.Millisecond
	if s.cfg.Simulator.Scenario == "" {
		s.sim = simctl.NewMemoryClient(simctl.MemoryOptions{StepLength: step})
		s.client = s.sim
		return nil
	}
	sc, err := simctl.LoadScenario(s.cfg.Simulator.Scenario)
	if err != nil {
		return err
	}
	if sc.Road.StepLength <= 0 {
		sc.Road.StepLength = step
	}
	sim, err := sc.Build()
	if err != nil {
		return fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	s.log.Infof("loaded scenario %q with %d agents", sc.Name, len(sc.Agents))
	s.sim, s.scenario, s.client = sim, sc, sim
	return nil
}

// Manager returns the platoon manager once Run has started it.
func (s *Service) Manager() *platoon.Manager { return s.manager }

// Status returns the per-step vehicle status snapshot served by the API.
func (s *Service) Status() vehiclestatus.Store { return s.status }

// Simulator returns the in-memory simulator, or nil for remote transports.
func (s *Service) Simulator() *simctl.MemoryClient { return s.sim }

// Run starts the control loop and blocks until the context is cancelled,
// the simulation ends or the tick stream closes. The manager is stopped on
// exit so that no vehicle is left in a platoon mode.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if addr := s.cfg.Service.APIAddr; addr != "" {
		mux := api.NewMux(s.status, s.store, s.cfg.Service.APIToken)
		go func() {
			if err := api.ListenAndServe(ctx, addr, mux); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	metrics.StartEventCollector(ctx, s.bus, s.sink)

	recDone := make(chan struct{})
	if s.store != nil {
		sub := s.bus.Subscribe()
		rec := eventlog.NewRecorder(s.store, logger.New("eventlog"))
		// Runs until the bus closes so that the final mode resets are logged.
		go func() {
			rec.Run(context.Background(), sub)
			close(recDone)
		}()
	} else {
		close(recDone)
	}

	m, err := platoon.NewManager(ctx, platoon.Options{
		Config:  s.cfg.Platoon,
		Client:  s.client,
		Bus:     s.bus,
		Logger:  logger.New("platoon"),
		Metrics: s.sink,
	})
	if err != nil {
		s.bus.Close()
		<-recDone
		return fmt.Errorf("platoon manager: %w", err)
	}
	s.manager = m

	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), s.cfg.Service.ShutdownTimeout())
		m.Stop(stopCtx)
		stopCancel()
		s.bus.Close()
		<-recDone
		if n := s.bus.Dropped(); n > 0 {
			s.log.Warnf("%d event deliveries dropped on full subscriber buffers", n)
		}
	}()

	if s.ticker != nil {
		return s.runTicks(ctx, m)
	}
	return s.runMemory(ctx, m)
}

func (s *Service) runTicks(ctx context.Context, m *platoon.Manager) error {
	ticks := s.ticker.Ticks()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now, ok := <-ticks:
			if !ok {
				return ErrTickStreamClosed
			}
			s.step(ctx, m, now)
		}
	}
}

func (s *Service) runMemory(ctx context.Context, m *platoon.Manager) error {
	var pace <-chan time.Time
	if s.cfg.Service.RealTime {
		t := time.NewTicker(s.sim.StepLength())
		defer t.Stop()
		pace = t.C
	}
	maxSteps := s.cfg.Service.MaxSteps
	var end time.Duration
	if s.scenario != nil {
		end = s.scenario.Duration
	}
	if maxSteps == 0 && end == 0 && pace == nil {
		s.log.Warnf("memory simulation without max_steps or scenario duration runs until interrupted")
	}
	for steps := 0; maxSteps == 0 || steps < maxSteps; steps++ {
		if ctx.Err() != nil {
			return nil
		}
		if end > 0 && s.sim.Time() >= end {
			break
		}
		now := s.sim.Advance()
		if s.scenario != nil {
			if err := s.scenario.Apply(s.sim, now); err != nil {
				s.log.Warnf("%v", err)
			}
		}
		s.step(ctx, m, now)
		if pace != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-pace:
			}
		}
	}
	s.log.Infof("simulation finished at %s", s.sim.Time())
	return nil
}

func (s *Service) step(ctx context.Context, m *platoon.Manager, now time.Duration) {
	r := m.Step(ctx, now)
	s.status.Replace(vehiclestatus.Snapshot(m, now))
	s.report(r)
}

func (s *Service) report(r coremetrics.StepReport) {
	if r.Splits+r.Merges+r.Registered+r.Removed == 0 {
		return
	}
	s.log.Infof("t=%s vehicles=%d platoons=%d registered=%d removed=%d splits=%d merges=%d rejected=%d",
		r.SimTime, r.Vehicles, r.Platoons, r.Registered, r.Removed, r.Splits, r.Merges, r.Rejected)
}

// Close releases the transport, the sinks and the event log.
func (s *Service) Close() error {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	closeSink(s.sink)
	s.sink = nil
	if s.store != nil {
		err := s.store.Close()
		s.store = nil
		return err
	}
	return nil
}

func closeSink(sink coremetrics.MetricsSink) {
	switch v := sink.(type) {
	case *coremetrics.MultiSink:
		for _, inner := range v.Sinks {
			closeSink(inner)
		}
	case interface{ Close() }:
		v.Close()
	}
}
