package platoon

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/platoon/core/metrics"
)

// ComputeFleetStats summarises the platoon size distribution.
func ComputeFleetStats(platoons []*Platoon, now time.Duration) metrics.FleetStats {
	fs := metrics.FleetStats{SimTime: now, Platoons: len(platoons)}
	if len(platoons) == 0 {
		return fs
	}
	sizes := make([]float64, len(platoons))
	for i, p := range platoons {
		n := p.Size()
		sizes[i] = float64(n)
		fs.Vehicles += n
		if n > 1 {
			fs.Platooned += n
		}
		if n > fs.MaxSize {
			fs.MaxSize = n
		}
	}
	fs.MeanSize, fs.StdDevSize = stat.PopMeanStdDev(sizes, nil)
	if fs.Vehicles > 0 {
		fs.PlatoonedShare = float64(fs.Platooned) / float64(fs.Vehicles)
	}
	return fs
}

func observeFleet(fs metrics.FleetStats) {
	fleetGauge.WithLabelValues("vehicles").Set(float64(fs.Vehicles))
	fleetGauge.WithLabelValues("platoons").Set(float64(fs.Platoons))
	fleetGauge.WithLabelValues("platooned").Set(float64(fs.Platooned))
	fleetGauge.WithLabelValues("mean_size").Set(fs.MeanSize)
	fleetGauge.WithLabelValues("max_size").Set(float64(fs.MaxSize))
}
