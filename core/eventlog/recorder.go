package eventlog

import (
	"context"
	"time"

	"github.com/kilianp07/platoon/core/events"
	"github.com/kilianp07/platoon/core/logger"
	"github.com/kilianp07/platoon/internal/eventbus"
)

// FromEvent converts a platoon event into a log record. The second result
// is false for events that are not logged.
func FromEvent(ev eventbus.Event, now time.Time) (LogRecord, bool) {
	switch e := ev.(type) {
	case events.VehicleRegistered:
		return LogRecord{Timestamp: now, SimTime: e.SimTime, Kind: KindRegistered, PlatoonID: e.PlatoonID,
			VehicleIDs: []string{e.VehicleID}, Detail: e.TypeName}, true
	case events.VehicleRemoved:
		return LogRecord{Timestamp: now, SimTime: e.SimTime, Kind: KindRemoved, PlatoonID: e.PlatoonID,
			VehicleIDs: []string{e.VehicleID}}, true
	case events.PlatoonSplit:
		return LogRecord{Timestamp: now, SimTime: e.SimTime, Kind: KindSplit, PlatoonID: e.PlatoonID,
			OtherPlatoonID: e.NewPlatoonID, VehicleIDs: e.VehicleIDs}, true
	case events.PlatoonMerged:
		return LogRecord{Timestamp: now, SimTime: e.SimTime, Kind: KindMerge, PlatoonID: e.PlatoonID,
			OtherPlatoonID: e.AbsorbedID, VehicleIDs: e.VehicleIDs}, true
	case events.ModeChanged:
		return LogRecord{Timestamp: now, SimTime: e.SimTime, Kind: KindModeChange,
			VehicleIDs: []string{e.VehicleID}, Mode: e.To.String(), Detail: "from " + e.From.String()}, true
	case events.OperationRejected:
		rec := LogRecord{Timestamp: now, SimTime: e.SimTime, Kind: KindRejected, PlatoonID: e.PlatoonID,
			Mode: e.Mode.String(), Detail: e.Op}
		if e.VehicleID != "" {
			rec.VehicleIDs = []string{e.VehicleID}
		}
		if e.Err != nil {
			rec.Detail += ": " + e.Err.Error()
		}
		return rec, true
	default:
		return LogRecord{}, false
	}
}

// Recorder appends bus events to a LogStore.
type Recorder struct {
	store LogStore
	log   logger.Logger
	now   func() time.Time
}

func NewRecorder(store LogStore, log logger.Logger) *Recorder {
	return &Recorder{store: store, log: log, now: time.Now}
}

// Run consumes events until ch is closed or ctx is done.
func (r *Recorder) Run(ctx context.Context, ch <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			rec, keep := FromEvent(ev, r.now())
			if !keep {
				continue
			}
			if err := r.store.Append(ctx, rec); err != nil {
				r.log.Errorf("append %s record: %v", rec.Kind, err)
			}
		}
	}
}
