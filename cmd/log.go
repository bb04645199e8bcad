package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/platoon/core/eventlog"
	"github.com/kilianp07/platoon/pkg/export"
)

var (
	exportFormat  string
	exportKind    string
	exportVehicle string
	exportStart   string
	exportEnd     string
	exportOutput  string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect the platoon decision log",
}

var logExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export decision log records as json or csv",
	RunE:  exportLog,
}

func init() {
	f := logExportCmd.Flags()
	f.StringVar(&exportFormat, "format", export.FormatJSON, "output format (json|csv)")
	f.StringVar(&exportKind, "kind", "", "only records of this kind")
	f.StringVar(&exportVehicle, "vehicle", "", "only records involving this vehicle")
	f.StringVar(&exportStart, "start", "", "RFC3339 lower time bound")
	f.StringVar(&exportEnd, "end", "", "RFC3339 upper time bound")
	f.StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	logCmd.AddCommand(logExportCmd)
	rootCmd.AddCommand(logCmd)
}

func exportLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadOptional(cfgPath)
	if err != nil {
		return err
	}
	cfg.EventLog.SetDefaults()
	if cfg.EventLog.Backend == eventlog.BackendNone {
		return errors.New("no decision log configured (eventlog.backend is none)")
	}
	q, err := exportQuery()
	if err != nil {
		return err
	}
	store, err := eventlog.New(cfg.EventLog)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer store.Close()
	records, err := store.Query(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("query event log: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		file, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	return export.Write(w, exportFormat, records)
}

func exportQuery() (eventlog.LogQuery, error) {
	q := eventlog.LogQuery{Kind: exportKind, VehicleID: exportVehicle}
	if exportStart != "" {
		t, err := time.Parse(time.RFC3339, exportStart)
		if err != nil {
			return q, fmt.Errorf("invalid --start: %w", err)
		}
		q.Start = t
	}
	if exportEnd != "" {
		t, err := time.Parse(time.RFC3339, exportEnd)
		if err != nil {
			return q, fmt.Errorf("invalid --end: %w", err)
		}
		q.End = t
	}
	return q, nil
}
