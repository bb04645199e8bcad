package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/platoon/core/eventlog"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var csvHeader = []string{"timestamp", "sim_time_ms", "kind", "platoon_id", "other_platoon_id", "vehicle_ids", "mode", "detail"}

// Write encodes records in the named format.
func Write(w io.Writer, format string, records []eventlog.LogRecord) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteJSON writes the decision log to w as a JSON array.
func WriteJSON(w io.Writer, records []eventlog.LogRecord) error {
	if records == nil {
		records = []eventlog.LogRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteCSV writes the decision log to w in CSV format. Vehicle ids are
// joined with a semicolon.
func WriteCSV(w io.Writer, records []eventlog.LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.Timestamp.Format(time.RFC3339Nano),
			strconv.FormatInt(r.SimTime.Milliseconds(), 10),
			r.Kind,
			optionalInt(r.PlatoonID),
			optionalInt(r.OtherPlatoonID),
			strings.Join(r.VehicleIDs, ";"),
			r.Mode,
			r.Detail,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func optionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
