package simctl

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coresim "github.com/kilianp07/platoon/core/simctl"
	"github.com/kilianp07/platoon/infra/logger"
)

// Bridge exposes a simulator client over MQTT, answering the requests an
// MQTTClient publishes. It lets the in-memory simulator stand in for a
// remote one.
type Bridge struct {
	cli   pahoClient
	cfg   Config
	codec Codec
	sim   coresim.Client
	log   logger.Logger
}

// NewBridge connects to the broker and starts serving sim on
// <prefix>/request.
func NewBridge(cfg Config, sim coresim.Client) (*Bridge, error) {
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
	b := &Bridge{cfg: cfg, codec: codec, sim: sim, log: logger.New("simctl_bridge")}
	opts.OnConnect = func(c paho.Client) {
		if token := c.Subscribe(cfg.TopicPrefix+"/request", cfg.qos("request"), b.onRequest); token.Wait() && token.Error() != nil {
			b.log.Errorf("subscribe error: %v", token.Error())
		}
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	b.cli = c
	return b, nil
}

// PublishTick announces a completed simulation step.
func (b *Bridge) PublishTick(now time.Duration) error {
	payload, err := b.codec.Marshal(Tick{TimeMS: now.Milliseconds()})
	if err != nil {
		return err
	}
	token := b.cli.Publish(b.cfg.TopicPrefix+"/tick", b.cfg.qos("tick"), false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish tick: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	if b.cli != nil {
		b.cli.Disconnect(250)
	}
}

func (b *Bridge) onRequest(c paho.Client, msg paho.Message) {
	var req Request
	if err := b.codec.Unmarshal(msg.Payload(), &req); err != nil {
		b.log.Errorf("failed to decode request: %v", err)
		return
	}
	resp := b.Handle(req)
	payload, err := b.codec.Marshal(resp)
	if err != nil {
		b.log.Errorf("failed to encode response %s: %v", req.ID, err)
		return
	}
	if token := c.Publish(req.ReplyTo, b.cfg.qos("response"), false, payload); token.Wait() && token.Error() != nil {
		b.log.Errorf("publish response %s: %v", req.ID, token.Error())
	}
}

// Handle executes one request against the simulator.
func (b *Bridge) Handle(req Request) Response {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.RequestTimeout())
	defer cancel()
	resp := Response{ID: req.ID}
	var err error
	switch req.Op {
	case OpActiveAgents:
		resp.Agents, err = b.sim.ActiveAgents(ctx)
	case OpDeparted:
		resp.Agents, err = b.sim.Departed(ctx)
	case OpArrived:
		resp.Agents, err = b.sim.Arrived(ctx)
	case OpAgentType:
		resp.Type, err = b.sim.AgentType(ctx, req.AgentID)
	case OpSubscribe:
		if req.Subscription == nil {
			err = fmt.Errorf("subscribe %s: missing subscription", req.AgentID)
			break
		}
		err = b.sim.Subscribe(ctx, req.AgentID, *req.Subscription)
	case OpUnsubscribe:
		err = b.sim.Unsubscribe(ctx, req.AgentID)
	case OpTelemetry:
		resp.Telemetry, err = b.sim.BulkTelemetry(ctx)
	case OpLaneChange:
		err = b.sim.RequestLaneChange(ctx, req.AgentID, req.LaneIndex, time.Duration(req.HorizonMS)*time.Millisecond)
	case OpSetMode:
		if req.Mode == nil {
			err = fmt.Errorf("set mode %s: missing mode", req.AgentID)
			break
		}
		err = b.sim.SetMode(ctx, req.AgentID, *req.Mode)
	default:
		err = fmt.Errorf("unknown op %q", req.Op)
	}
	if err != nil {
		resp.Error = err.Error()
		switch {
		case errors.Is(err, coresim.ErrUnknownAgent):
			resp.ErrorCode = CodeUnknownAgent
		case errors.Is(err, coresim.ErrCommandRejected):
			resp.ErrorCode = CodeCommandRejected
		default:
			resp.ErrorCode = "internal"
		}
	}
	return resp
}
