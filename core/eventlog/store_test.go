package eventlog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func sampleRecords(base time.Time) []LogRecord {
	return []LogRecord{
		{Timestamp: base, Kind: KindRegistered, PlatoonID: 1, VehicleIDs: []string{"a"}},
		{Timestamp: base.Add(time.Second), Kind: KindMerge, PlatoonID: 1, OtherPlatoonID: 2, VehicleIDs: []string{"b"}},
		{Timestamp: base.Add(2 * time.Second), Kind: KindSplit, PlatoonID: 1, OtherPlatoonID: 3, VehicleIDs: []string{"b"}},
	}
}

func exerciseStore(t *testing.T, store LogStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	for _, rec := range sampleRecords(base) {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	all, err := store.Query(ctx, LogQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records got %d", len(all))
	}
	byVehicle, err := store.Query(ctx, LogQuery{VehicleID: "b"})
	if err != nil {
		t.Fatalf("query vehicle: %v", err)
	}
	if len(byVehicle) != 2 {
		t.Fatalf("expected 2 records for b got %d", len(byVehicle))
	}
	byKind, err := store.Query(ctx, LogQuery{Kind: KindSplit, Start: base.Add(time.Second)})
	if err != nil {
		t.Fatalf("query kind: %v", err)
	}
	if len(byKind) != 1 || byKind[0].OtherPlatoonID != 3 {
		t.Fatalf("unexpected split query result %+v", byKind)
	}
	none, err := store.Query(ctx, LogQuery{End: base.Add(-time.Second)})
	if err != nil {
		t.Fatalf("query end: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no records before base, got %d", len(none))
	}
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "log.jsonl"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "log.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "logs", "log.jsonl"), 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 5, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	ids := make([]string, 2000)
	for i := range ids {
		ids[i] = "vehicle-with-a-long-identifier"
	}
	rec := LogRecord{Timestamp: time.Now(), Kind: KindMerge, VehicleIDs: ids}
	for i := 0; i < 30; i++ {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	files, _ := filepath.Glob(filepath.Join(dir, "log*.jsonl"))
	if len(files) < 2 {
		t.Fatalf("expected rotated files, got %v", files)
	}
	out, err := store.Query(context.Background(), LogQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 30 {
		t.Fatalf("expected 30 records across files, got %d", len(out))
	}
}

func TestLogRecord_JSON(t *testing.T) {
	rec := LogRecord{
		Timestamp:  time.Unix(0, 0),
		SimTime:    1500 * time.Millisecond,
		Kind:       KindMerge,
		PlatoonID:  1,
		VehicleIDs: []string{"v1"},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"timestamp", "sim_time", "kind", "platoon_id", "vehicle_ids"} {
		if _, ok := m[k]; !ok {
			t.Errorf("missing key %s", k)
		}
	}
	if _, ok := m["detail"]; ok {
		t.Error("empty detail should be omitted")
	}
}
