package vehicles

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/platoon/core/vehiclestatus"
)

func seeded() *vehiclestatus.MemoryStore {
	store := vehiclestatus.NewMemoryStore()
	store.Replace([]vehiclestatus.Status{
		{VehicleID: "t1", TypeName: "truck", PlatoonID: 1, PlatoonSize: 2, Mode: "LEADER"},
		{VehicleID: "t2", TypeName: "truck", PlatoonID: 1, PlatoonSize: 2, Index: 1, Mode: "FOLLOWER", LeaderID: "t1", Gap: 8},
		{VehicleID: "c1", TypeName: "car", PlatoonID: 2, PlatoonSize: 1, Mode: "NONE"},
	})
	return store
}

func list(t *testing.T, h http.Handler, target string) []vehiclestatus.Status {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var out []vehiclestatus.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func ids(sts []vehiclestatus.Status) []string {
	res := make([]string, len(sts))
	for i, st := range sts {
		res[i] = st.VehicleID
	}
	return res
}

func TestStatusHandler(t *testing.T) {
	h := NewStatusHandler(seeded())

	assert.Equal(t, []string{"c1", "t1", "t2"}, ids(list(t, h, "/api/vehicles/status")))
	assert.Equal(t, []string{"t1", "t2"}, ids(list(t, h, "/api/vehicles/status?platoon_id=1")))
	assert.Equal(t, []string{"t2"}, ids(list(t, h, "/api/vehicles/status?mode=FOLLOWER")))
	assert.Equal(t, []string{"c1"}, ids(list(t, h, "/api/vehicles/status?type=car")))
	assert.Empty(t, list(t, h, "/api/vehicles/status?type=bus"))

	out := list(t, h, "/api/vehicles/status?mode=FOLLOWER")
	assert.Equal(t, "t1", out[0].LeaderID)
	assert.InDelta(t, 8, out[0].Gap, 1e-9)
}

func TestStatusHandlerBadRequest(t *testing.T) {
	h := NewStatusHandler(seeded())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vehicles/status?platoon_id=x", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/vehicles/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
