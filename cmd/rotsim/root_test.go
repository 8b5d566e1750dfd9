package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Versifine/rotation/internal/trace"
)

const turnScenario = `
name: scout
ticks: 30
tick_rate: 20
rotation:
  turn_speed: 90
entities:
  - name: crate
    position: [3, 0, 3]
steps:
  - tick: 0
    action: look_direction
    vector: [1, 0, 0]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	t.Cleanup(a.close)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func testConfig(t *testing.T, dir string) string {
	return writeFile(t, dir, "config.yaml", "logging:\n  level: error\n")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "rotsim dev\n", out)
}

func TestRunCommandPrintsFinalPose(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "turn.yaml", turnScenario)

	out, err := execute(t, "--config", testConfig(t, dir), "run", scenario)
	require.NoError(t, err)
	assert.Contains(t, out, "scout: 30 ticks, mode direction, yaw 90.00")
	assert.Contains(t, out, "Entities(2)")
}

func TestRunCommandJSON(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "turn.yaml", turnScenario)

	out, err := execute(t, "--config", testConfig(t, dir), "run", "--json", scenario)
	require.NoError(t, err)

	var got runSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "scout", got.Scenario)
	assert.EqualValues(t, 30, got.Ticks)
	assert.Equal(t, "direction", got.Mode)
	assert.InDelta(t, 90, got.Yaw, 1e-6)
	require.Len(t, got.Entities, 2)
	assert.Equal(t, "crate", got.Entities[0].Name)
	assert.Equal(t, [3]float64{3, 0, 3}, got.Entities[0].Position)
}

func TestRunCommandWritesTrace(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "turn.yaml", turnScenario)
	traceRoot := filepath.Join(dir, "traces")

	_, err := execute(t, "--config", testConfig(t, dir), "--trace", traceRoot, "run", scenario)
	require.NoError(t, err)

	entries, err := os.ReadDir(traceRoot)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	bundle, err := trace.Open(filepath.Join(traceRoot, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "scout", bundle.Manifest.Actor)
	assert.Len(t, bundle.Frames, 30)
}

func TestRunCommandErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	_, err := execute(t, "--config", cfg, "run")
	assert.Error(t, err)

	_, err = execute(t, "--config", cfg, "run", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "ticks: 5\nsteps:\n  - action: spin\n")
	_, err = execute(t, "--config", cfg, "run", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spin")

	_, err = execute(t, "--config", filepath.Join(dir, "nope.yaml"), "run", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "direction", cfg.Rotation.Mode)
	assert.Equal(t, 60, cfg.Simulation.TickRate)
}

func TestFlagsEnableSinks(t *testing.T) {
	dir := t.TempDir()
	root, a := newRootCmd()
	t.Cleanup(a.close)
	root.SetArgs([]string{"--config", testConfig(t, dir), "--trace", dir, "--telemetry", "127.0.0.1:8799", "version"})
	root.SetOut(io.Discard)
	require.NoError(t, root.ExecuteContext(context.Background()))

	cmd, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	require.NoError(t, a.setup(cmd, nil))
	assert.True(t, a.cfg.Trace.Enabled)
	assert.Equal(t, dir, a.cfg.Trace.Dir)
	assert.True(t, a.cfg.Telemetry.Enabled)
	assert.Equal(t, "127.0.0.1:8799", a.cfg.Telemetry.Listen)
}
