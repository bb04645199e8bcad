package vehicles

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kilianp07/platoon/core/vehiclestatus"
)

// NewStatusHandler returns an HTTP handler exposing vehicle status data via GET /api/vehicles/status.
func NewStatusHandler(store vehiclestatus.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f := vehiclestatus.Filter{
			Mode:     r.URL.Query().Get("mode"),
			TypeName: r.URL.Query().Get("type"),
		}
		if s := r.URL.Query().Get("platoon_id"); s != "" {
			id, err := strconv.Atoi(s)
			if err != nil {
				http.Error(w, "invalid platoon_id", http.StatusBadRequest)
				return
			}
			f.PlatoonID = id
		}
		entries := store.List(f)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
