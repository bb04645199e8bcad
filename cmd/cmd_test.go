package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/platoon/core/eventlog"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, Version+"\n", out.String())
}

func TestSimulateCommand(t *testing.T) {
	dir := t.TempDir()
	scenario := filepath.Join(dir, "pair.yaml")
	require.NoError(t, os.WriteFile(scenario, []byte(`
name: pair
agents:
  - {id: a, type: truck, position: 20, speed: 10}
  - {id: b, type: truck, position: 5, speed: 10}
`), 0o644))
	rootCmd.SetArgs([]string{"simulate", "-c", filepath.Join(dir, "absent.yaml"), "--scenario", scenario, "--steps", "15"})
	require.NoError(t, rootCmd.Execute())
}

func TestLoadOptional(t *testing.T) {
	cfg, err := loadOptional(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("platoon:\n  control_rate: -1\n"), 0o644))
	_, err = loadOptional(bad)
	assert.Error(t, err)
}

func TestLogExportCommand(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "log.jsonl")
	store, err := eventlog.NewJSONLStore(logPath)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, eventlog.LogRecord{Timestamp: time.Now(), Kind: eventlog.KindMerge, PlatoonID: 1, VehicleIDs: []string{"a", "b"}}))
	require.NoError(t, store.Append(ctx, eventlog.LogRecord{Timestamp: time.Now(), Kind: eventlog.KindRegistered, VehicleIDs: []string{"c"}}))
	require.NoError(t, store.Close())

	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("eventlog:\n  backend: jsonl\n  path: "+logPath+"\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"log", "export", "-c", cfgFile, "--format", "csv", "--kind", "merge", "--vehicle", "b"})
	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "merge")
	assert.Contains(t, lines[1], "a;b")
}
