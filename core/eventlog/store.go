package eventlog

import (
	"context"
	"slices"
	"time"
)

// Record kinds.
const (
	KindRegistered = "registered"
	KindRemoved    = "removed"
	KindSplit      = "split"
	KindMerge      = "merge"
	KindModeChange = "mode_change"
	KindRejected   = "rejected"
)

// LogRecord captures one platoon decision or membership change.
type LogRecord struct {
	Timestamp      time.Time     `json:"timestamp"`
	SimTime        time.Duration `json:"sim_time"`
	Kind           string        `json:"kind"`
	PlatoonID      int           `json:"platoon_id,omitempty"`
	OtherPlatoonID int           `json:"other_platoon_id,omitempty"`
	VehicleIDs     []string      `json:"vehicle_ids,omitempty"`
	Mode           string        `json:"mode,omitempty"`
	Detail         string        `json:"detail,omitempty"`
}

// LogQuery defines filters for retrieving records.
type LogQuery struct {
	Start     time.Time
	End       time.Time
	Kind      string
	VehicleID string
}

// Match reports whether r passes every filter of q.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.VehicleID != "" && !slices.Contains(r.VehicleIDs, q.VehicleID) {
		return false
	}
	return true
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
