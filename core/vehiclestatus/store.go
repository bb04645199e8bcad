package vehiclestatus

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/platoon/core/platoon"
)

// Status captures the last known state of a managed vehicle.
type Status struct {
	VehicleID    string        `json:"vehicle_id"`
	TypeName     string        `json:"type"`
	PlatoonID    int           `json:"platoon_id"`
	PlatoonSize  int           `json:"platoon_size"`
	Index        int           `json:"index"`
	Mode         string        `json:"mode"`
	DesiredMode  string        `json:"desired_mode"`
	Speed        float64       `json:"speed"`
	EdgeID       string        `json:"edge_id"`
	LaneIndex    int           `json:"lane_index"`
	LeaderID     string        `json:"leader_id,omitempty"`
	Gap          float64       `json:"gap,omitempty"`
	SplitPending bool          `json:"split_pending"`
	SimTime      time.Duration `json:"sim_time"`
}

type Filter struct {
	PlatoonID int
	Mode      string
	TypeName  string
}

type Store interface {
	Replace([]Status)
	List(Filter) []Status
	Get(id string) (Status, bool)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

// Replace swaps the whole content for sts.
func (s *MemoryStore) Replace(sts []Status) {
	data := make(map[string]Status, len(sts))
	for _, st := range sts {
		data[st.VehicleID] = st
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

func (s *MemoryStore) Get(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[id]
	return st, ok
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.PlatoonID != 0 && st.PlatoonID != f.PlatoonID {
			continue
		}
		if f.Mode != "" && st.Mode != f.Mode {
			continue
		}
		if f.TypeName != "" && st.TypeName != f.TypeName {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].VehicleID < res[j].VehicleID })
	return res
}

// Snapshot converts the manager registries into status entries. It must be
// called from the goroutine driving the manager.
func Snapshot(m *platoon.Manager, now time.Duration) []Status {
	vs := m.Vehicles()
	out := make([]Status, 0, len(vs))
	for _, v := range vs {
		tel := v.Telemetry()
		st := Status{
			VehicleID:    v.ID(),
			TypeName:     v.TypeName(),
			Mode:         v.CurrentMode().String(),
			DesiredMode:  v.DesiredMode().String(),
			Speed:        tel.Speed,
			EdgeID:       tel.EdgeID,
			LaneIndex:    tel.LaneIndex,
			SplitPending: v.SplitPending(),
			SimTime:      now,
		}
		if p := v.Platoon(); p != nil {
			st.PlatoonID = p.ID()
			st.PlatoonSize = p.Size()
			st.Index = p.IndexOf(v)
		}
		if li := v.LeaderInfo(); li != nil {
			st.LeaderID = li.LeaderID
			st.Gap = li.Gap
		}
		out = append(out, st)
	}
	return out
}
