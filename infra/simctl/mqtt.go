package simctl

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/platoon/core/model"
	coresim "github.com/kilianp07/platoon/core/simctl"
	"github.com/kilianp07/platoon/infra/logger"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTClient talks to a simulator bridge over MQTT. Every call publishes one
// request and blocks until the correlated response arrives.
type MQTTClient struct {
	cli     pahoClient
	cfg     Config
	codec   Codec
	logger  logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan Response
	ticks   chan time.Duration
	closed  bool
}

var (
	_ coresim.Client = (*MQTTClient)(nil)
	_ coresim.Ticker = (*MQTTClient)(nil)
)

// NewMQTTClient connects to the broker and subscribes to the response and
// tick topics.
func NewMQTTClient(cfg Config) (*MQTTClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("simctl_mqtt")
	mc := &MQTTClient{
		cfg:     cfg,
		codec:   codec,
		logger:  log,
		timeout: cfg.RequestTimeout(),
		pending: make(map[string]chan Response),
		ticks:   make(chan time.Duration, 16),
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		if token := c.Subscribe(mc.responseTopic(), cfg.qos("response"), mc.onResponse); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
		if token := c.Subscribe(mc.tickTopic(), cfg.qos("tick"), mc.onTick); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	mc.cli = c
	return mc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS || cfg.AuthMethod == "mtls" {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

func (m *MQTTClient) requestTopic() string  { return m.cfg.TopicPrefix + "/request" }
func (m *MQTTClient) responseTopic() string { return m.cfg.TopicPrefix + "/response/" + m.cfg.ClientID }
func (m *MQTTClient) tickTopic() string     { return m.cfg.TopicPrefix + "/tick" }

func (m *MQTTClient) onResponse(_ paho.Client, msg paho.Message) {
	var resp Response
	if err := m.codec.Unmarshal(msg.Payload(), &resp); err != nil {
		m.logger.Errorf("failed to decode response: %v", err)
		return
	}
	m.mu.Lock()
	ch, ok := m.pending[resp.ID]
	m.mu.Unlock()
	if !ok {
		m.logger.Debugf("dropping response %s without pending request", resp.ID)
		return
	}
	select {
	case ch <- resp:
	default:
	}
}

func (m *MQTTClient) onTick(_ paho.Client, msg paho.Message) {
	var t Tick
	if err := m.codec.Unmarshal(msg.Payload(), &t); err != nil {
		m.logger.Errorf("failed to decode tick: %v", err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.ticks <- time.Duration(t.TimeMS) * time.Millisecond:
	default:
		m.logger.Warnf("tick %dms dropped, control loop is behind", t.TimeMS)
	}
}

// Ticks delivers the simulation time after every completed step.
func (m *MQTTClient) Ticks() <-chan time.Duration { return m.ticks }

// Close disconnects from the broker and closes the tick channel.
func (m *MQTTClient) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.ticks)
	m.mu.Unlock()
	if m.cli != nil {
		m.cli.Disconnect(250)
	}
}

func (m *MQTTClient) call(ctx context.Context, req Request) (Response, error) {
	req.ID = uuid.NewString()
	req.ReplyTo = m.responseTopic()
	payload, err := m.codec.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode %s request: %w", req.Op, err)
	}

	ch := make(chan Response, 1)
	m.mu.Lock()
	m.pending[req.ID] = ch
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.pending, req.ID)
		m.mu.Unlock()
	}()

	token := m.cli.Publish(m.requestTopic(), m.cfg.qos("request"), false, payload)
	if token.Wait() && token.Error() != nil {
		return Response{}, fmt.Errorf("publish %s request: %w", req.Op, token.Error())
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		return resp, resp.err(req)
	case <-timer.C:
		return Response{}, fmt.Errorf("%s %s: %w", req.Op, req.AgentID, coresim.ErrTimeout)
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func (r Response) err(req Request) error {
	switch r.ErrorCode {
	case "":
		return nil
	case CodeUnknownAgent:
		return fmt.Errorf("%s %s: %w", req.Op, req.AgentID, coresim.ErrUnknownAgent)
	case CodeCommandRejected:
		return fmt.Errorf("%s %s: %w: %s", req.Op, req.AgentID, coresim.ErrCommandRejected, r.Error)
	}
	return fmt.Errorf("%s %s: simulator error %s: %s", req.Op, req.AgentID, r.ErrorCode, r.Error)
}

func (m *MQTTClient) list(ctx context.Context, op string) ([]string, error) {
	resp, err := m.call(ctx, Request{Op: op})
	if err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

func (m *MQTTClient) ActiveAgents(ctx context.Context) ([]string, error) {
	return m.list(ctx, OpActiveAgents)
}

func (m *MQTTClient) Departed(ctx context.Context) ([]string, error) {
	return m.list(ctx, OpDeparted)
}

func (m *MQTTClient) Arrived(ctx context.Context) ([]string, error) {
	return m.list(ctx, OpArrived)
}

func (m *MQTTClient) AgentType(ctx context.Context, id string) (string, error) {
	resp, err := m.call(ctx, Request{Op: OpAgentType, AgentID: id})
	if err != nil {
		return "", err
	}
	return resp.Type, nil
}

func (m *MQTTClient) Subscribe(ctx context.Context, id string, sub coresim.Subscription) error {
	_, err := m.call(ctx, Request{Op: OpSubscribe, AgentID: id, Subscription: &sub})
	return err
}

func (m *MQTTClient) Unsubscribe(ctx context.Context, id string) error {
	_, err := m.call(ctx, Request{Op: OpUnsubscribe, AgentID: id})
	return err
}

func (m *MQTTClient) BulkTelemetry(ctx context.Context) (map[string]model.Snapshot, error) {
	resp, err := m.call(ctx, Request{Op: OpTelemetry})
	if err != nil {
		return nil, err
	}
	if resp.Telemetry == nil {
		return map[string]model.Snapshot{}, nil
	}
	return resp.Telemetry, nil
}

func (m *MQTTClient) RequestLaneChange(ctx context.Context, id string, laneIndex int, horizon time.Duration) error {
	_, err := m.call(ctx, Request{Op: OpLaneChange, AgentID: id, LaneIndex: laneIndex, HorizonMS: horizon.Milliseconds()})
	return err
}

func (m *MQTTClient) SetMode(ctx context.Context, id string, mode model.Mode) error {
	_, err := m.call(ctx, Request{Op: OpSetMode, AgentID: id, Mode: &mode})
	return err
}

func (m *MQTTClient) StepLength() time.Duration { return m.cfg.StepLength() }
