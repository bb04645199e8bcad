package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/platoon/core/vehiclestatus"
)

func TestServeStatus(t *testing.T) {
	store := vehiclestatus.NewMemoryStore()
	store.Replace([]vehiclestatus.Status{{VehicleID: "a", Mode: "LEADER", PlatoonID: 1}})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, NewMux(store, nil, "")) }()

	url := fmt.Sprintf("http://%s/api/vehicles/status", ln.Addr())
	resp, err := http.Get(url)
	require.NoError(t, err)
	var out []vehiclestatus.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].VehicleID)

	resp, err = http.Get(fmt.Sprintf("http://%s/api/platoon/log", ln.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
