//go:build e2e

package simctl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/platoon/core/model"
	coresim "github.com/kilianp07/platoon/core/simctl"
	"github.com/kilianp07/platoon/test/util"
)

func TestMQTTBridgeWithMosquitto(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer cleanup()

	sim := NewMemoryClient(MemoryOptions{})
	require.NoError(t, sim.Spawn(AgentSpec{ID: "t1", Type: "truck", Position: 20, Speed: 10}))
	require.NoError(t, sim.Spawn(AgentSpec{ID: "t2", Type: "truck", Speed: 10}))

	br, err := NewBridge(Config{Broker: broker, ClientID: "bridge", Codec: CodecCBOR}, sim)
	require.NoError(t, err)
	defer br.Close()

	cli, err := NewMQTTClient(Config{Broker: broker, ClientID: "manager", Codec: CodecCBOR, RequestTimeoutMS: 5000})
	require.NoError(t, err)
	defer cli.Close()
	// Give both subscriptions time to settle on the broker.
	time.Sleep(200 * time.Millisecond)

	ids, err := cli.ActiveAgents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, ids)

	require.NoError(t, cli.Subscribe(ctx, "t2", coresim.Subscription{Fields: coresim.DefaultFields, LeaderRange: 30}))
	snaps, err := cli.BulkTelemetry(ctx)
	require.NoError(t, err)
	require.NotNil(t, snaps["t2"].Leader)
	assert.Equal(t, "t1", snaps["t2"].Leader.LeaderID)

	require.NoError(t, cli.SetMode(ctx, "t2", model.ModeFollower))
	_, err = cli.AgentType(ctx, "ghost")
	assert.ErrorIs(t, err, coresim.ErrUnknownAgent)

	require.NoError(t, br.PublishTick(sim.Advance()))
	select {
	case now := <-cli.Ticks():
		assert.Equal(t, 100*time.Millisecond, now)
	case <-time.After(5 * time.Second):
		t.Fatal("tick not received")
	}
}
