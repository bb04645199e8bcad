package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/platoon/core/metrics"
	"github.com/kilianp07/platoon/infra/logger"
)

// InfluxSink writes control loop observations to an InfluxDB instance using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	now      func() time.Time
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
		now:      time.Now,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordStep writes one platoon_step point. Steps without decisions are
// skipped to keep the series small.
func (s *InfluxSink) RecordStep(r coremetrics.StepReport) error {
	if !r.Decided && r.Registered == 0 && r.Removed == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("platoon_step").
		AddTag("decided", strconv.FormatBool(r.Decided)).
		AddField("sim_time_s", round3(r.SimTime.Seconds())).
		AddField("registered", r.Registered).
		AddField("removed", r.Removed).
		AddField("splits", r.Splits).
		AddField("merges", r.Merges).
		AddField("catchup_requests", r.CatchupRequests).
		AddField("rejected", r.Rejected).
		AddField("lane_advisories", r.LaneAdvisories).
		AddField("lane_failures", r.LaneFailures).
		AddField("order_violations", r.OrderViolations).
		AddField("vehicles", r.Vehicles).
		AddField("platoons", r.Platoons).
		SetTime(s.now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFleetStats writes the platoon size distribution.
func (s *InfluxSink) RecordFleetStats(st coremetrics.FleetStats) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("platoon_fleet").
		AddField("sim_time_s", round3(st.SimTime.Seconds())).
		AddField("vehicles", st.Vehicles).
		AddField("platoons", st.Platoons).
		AddField("platooned", st.Platooned).
		AddField("mean_size", round3(st.MeanSize)).
		AddField("stddev_size", round3(st.StdDevSize)).
		AddField("max_size", st.MaxSize).
		AddField("platooned_share", round3(st.PlatoonedShare)).
		SetTime(s.now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDecision writes a single platoon decision.
func (s *InfluxSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts := ev.Time
	if ts.IsZero() {
		ts = s.now()
	}
	p := write.NewPointWithMeasurement("platoon_decision").
		AddTag("kind", ev.Kind).
		AddTag("platoon_id", strconv.Itoa(ev.PlatoonID))
	if ev.Mode != "" {
		p = p.AddTag("mode", ev.Mode)
	}
	p = p.AddField("other_platoon_id", ev.OtherPlatoonID).
		AddField("vehicles", strings.Join(ev.VehicleIDs, ",")).
		AddField("reason", ev.Reason).
		AddField("sim_time_s", round3(ev.SimTime.Seconds())).
		SetTime(ts)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
