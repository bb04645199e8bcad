//go:build e2e

package e2e

import (
	"context"
	"encoding/xml"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/platoon/app"
	"github.com/kilianp07/platoon/config"
	"github.com/kilianp07/platoon/core/eventlog"
	"github.com/kilianp07/platoon/core/factory"
	"github.com/kilianp07/platoon/core/model"
	"github.com/kilianp07/platoon/infra/simctl"
	"github.com/kilianp07/platoon/test/util"
)

// junitReport is a minimal JUnit XML report so CI systems can display the
// results of the suite.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// Test_E2E_ConvoyOverMQTT runs the whole service against the in-memory
// simulator exposed over Mosquitto and checks that the platoon decisions
// reach InfluxDB and the sqlite decision log.
func Test_E2E_ConvoyOverMQTT(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	in, stopInflux, err := util.StartInflux(ctx)
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	defer stopInflux()
	broker, stopBroker, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	defer stopBroker()
	t.Logf("InfluxDB started at %s", in.URL)
	t.Logf("Mosquitto started at %s", broker)

	influx := NewInfluxClient(in.URL, in.Org, in.Bucket, in.Token)
	defer influx.Close()
	require.NoError(t, influx.SetupBucket(ctx))

	sim := simctl.NewMemoryClient(simctl.MemoryOptions{})
	require.NoError(t, sim.Spawn(simctl.AgentSpec{ID: "t1", Type: "truck", Position: 40, Speed: 10}))
	require.NoError(t, sim.Spawn(simctl.AgentSpec{ID: "t2", Type: "truck", Position: 22, Speed: 10}))
	require.NoError(t, sim.Spawn(simctl.AgentSpec{ID: "t3", Type: "truck", Position: 5, Speed: 10}))
	br, err := simctl.NewBridge(simctl.Config{Broker: broker, ClientID: "e2e-bridge", Codec: simctl.CodecCBOR}, sim)
	require.NoError(t, err)
	defer br.Close()

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Simulator.Transport = config.TransportMQTT
	cfg.Simulator.MQTT = simctl.Config{Broker: broker, ClientID: "e2e-manager", Codec: simctl.CodecCBOR, RequestTimeoutMS: 5000}
	cfg.Metrics.Sinks = []factory.ModuleConfig{
		{Type: "prometheus"},
		{Type: "influx", Conf: map[string]any{"url": in.URL, "token": in.Token, "org": in.Org, "bucket": in.Bucket}},
	}
	cfg.Metrics.PrometheusAddr = "127.0.0.1:19108"
	cfg.Service.APIAddr = "127.0.0.1:19109"
	cfg.EventLog.Backend = eventlog.BackendSQLite
	cfg.EventLog.Path = filepath.Join(dir, "log.db")
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	svc, err := app.New(cfg)
	require.NoError(t, err)
	// Let the manager subscribe to its response topic before it is driven.
	time.Sleep(300 * time.Millisecond)

	runCtx, stopRun := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Run(runCtx) }()
	time.Sleep(300 * time.Millisecond)

	for i := 0; i < 40; i++ {
		require.NoError(t, br.PublishTick(sim.Advance()))
		time.Sleep(50 * time.Millisecond)
	}
	waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
	defer waitCancel()
	require.NoError(t, util.WaitForBody(waitCtx, "http://127.0.0.1:19108/metrics", `platoon_decisions_total{kind="merge"}`))
	require.NoError(t, util.WaitForBody(waitCtx, "http://127.0.0.1:19109/api/vehicles/status?mode=LEADER", `"vehicle_id":"t1"`))

	stopRun()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("service did not stop")
	}
	require.NoError(t, svc.Close())

	for _, id := range []string{"t1", "t2", "t3"} {
		mode, ok := sim.Mode(id)
		require.True(t, ok)
		assert.Equal(t, model.ModeNone, mode, "%s reset on shutdown", id)
	}

	merges, err := influx.SumField(ctx, "platoon_step", "merges")
	require.NoError(t, err)
	assert.Equal(t, int64(2), merges)

	store, err := eventlog.NewSQLiteStore(cfg.EventLog.Path)
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.Query(ctx, eventlog.LogQuery{Kind: eventlog.KindMerge})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{Name: t.Name(), Time: time.Since(start).Seconds()}}}
	if t.Failed() {
		rep.Failures = 1
		msg := "see test output"
		rep.Cases[0].Failure = &msg
	}
	if err := writeJUnit(filepath.Join(dir, "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
