package simctl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/platoon/core/model"
	coresim "github.com/kilianp07/platoon/core/simctl"
)

func TestBridgeServesMemoryClient(t *testing.T) {
	sim := NewMemoryClient(MemoryOptions{})
	require.NoError(t, sim.Spawn(AgentSpec{ID: "a", Type: "truck", Position: 30, Speed: 10}))
	require.NoError(t, sim.Spawn(AgentSpec{ID: "b", Type: "truck", Speed: 10}))
	sim.RejectMode("b", true)

	mc := withMock(t)
	cfg := Config{Broker: "tcp://localhost:1883", Codec: CodecCBOR}
	cfg.SetDefaults()
	br := &Bridge{cfg: cfg, codec: cborCodec{}, sim: sim}
	bridge(t, mc, cborCodec{}, br.Handle)

	cli, err := NewMQTTClient(cfg)
	require.NoError(t, err)
	defer cli.Close()
	ctx := context.Background()

	dep, err := cli.Departed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, dep)

	require.NoError(t, cli.Subscribe(ctx, "b", coresim.Subscription{LeaderRange: 50}))
	snaps, err := cli.BulkTelemetry(ctx)
	require.NoError(t, err)
	require.NotNil(t, snaps["b"].Leader)
	assert.Equal(t, "a", snaps["b"].Leader.LeaderID)

	require.NoError(t, cli.SetMode(ctx, "a", model.ModeLeader))
	assert.ErrorIs(t, cli.SetMode(ctx, "b", model.ModeFollower), coresim.ErrCommandRejected)
	_, err = cli.AgentType(ctx, "ghost")
	assert.ErrorIs(t, err, coresim.ErrUnknownAgent)

	mode, _ := sim.Mode("a")
	assert.Equal(t, model.ModeLeader, mode)
}

func TestBridgeHandleBadRequests(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	br := &Bridge{cfg: cfg, codec: jsonCodec{}, sim: NewMemoryClient(MemoryOptions{})}

	resp := br.Handle(Request{ID: "1", Op: "teleport"})
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, "internal", resp.ErrorCode)
	assert.Equal(t, "internal", br.Handle(Request{Op: OpSetMode, AgentID: "a"}).ErrorCode)
	assert.Equal(t, "internal", br.Handle(Request{Op: OpSubscribe, AgentID: "a"}).ErrorCode)
}

func TestBridgePublishTick(t *testing.T) {
	mc := withMock(t)
	br, err := NewBridge(Config{Broker: "tcp://localhost:1883", ClientID: "bridge"}, NewMemoryClient(MemoryOptions{}))
	require.NoError(t, err)
	defer br.Close()
	_, ok := mc.subscribed["sim/request"]
	assert.True(t, ok)

	require.NoError(t, br.PublishTick(1500*time.Millisecond))
	require.Len(t, mc.published, 1)
	assert.Equal(t, "sim/tick", mc.published[0].topic)
	assert.JSONEq(t, `{"time_ms":1500}`, string(mc.published[0].payload))
}
