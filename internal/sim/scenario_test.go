package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Versifine/rotation/internal/config"
	"github.com/Versifine/rotation/internal/orient"
	"github.com/Versifine/rotation/internal/rotation"
)

func baseRotation() config.RotationConfig {
	return config.Default().Rotation
}

const chaseScenario = `
name: hero
ticks: 40
tick_rate: 20
actor:
  position: [0, 0, 0]
rotation:
  turn_speed: 90
  auto_transition: true
entities:
  - name: zombie
    position: [10, 0, 0]
steps:
  - tick: 20
    action: remove_entity
    entity: zombie
  - tick: 0
    action: look_target
    entity: zombie
`

func TestChaseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(chaseScenario), baseRotation())
	require.NoError(t, err)
	assert.Equal(t, 90.0, sc.Rotation.TurnSpeed)
	assert.True(t, sc.Rotation.Enabled)

	run, err := sc.Build(60)
	require.NoError(t, err)
	assert.Equal(t, 0.05, run.Loop.DeltaTime())

	var changes []rotation.ModeChanged
	run.System.OnModeChanged(func(evt rotation.ModeChanged) {
		changes = append(changes, evt)
	})

	_, err = run.Loop.RunSteps(10)
	require.NoError(t, err)
	assert.InDelta(t, 45, run.Actor.Yaw(), 1e-6)
	assert.Equal(t, rotation.ModeTarget, run.System.Mode())

	result, err := run.Execute()
	require.NoError(t, err)
	assert.EqualValues(t, 40, result.Ticks)
	assert.InDelta(t, 90, result.Yaw, 1e-6)
	assert.Equal(t, rotation.ModeDirection, result.Mode)
	assert.True(t, result.Last.Frozen)
	require.Len(t, result.Snapshot.Entities, 1)
	assert.Equal(t, "hero", result.Snapshot.Entities[0].Name)

	assert.Equal(t, []rotation.ModeChanged{
		{Current: rotation.ModeTarget, Previous: rotation.ModeDirection},
		{Current: rotation.ModeDirection, Previous: rotation.ModeTarget},
	}, changes)
}

func TestMovingTargetIsTracked(t *testing.T) {
	sc, err := ParseScenario([]byte(`
ticks: 20
tick_rate: 10
rotation:
  mode: target
entities:
  - name: bird
    position: [0, 0, 5]
    velocity: [5, 0, 0]
steps:
  - tick: 0
    action: look_target
    entity: bird
`), baseRotation())
	require.NoError(t, err)
	run, err := sc.Build(0)
	require.NoError(t, err)

	result, err := run.Execute()
	require.NoError(t, err)
	bird, ok := run.World.Find("bird")
	require.True(t, ok)
	assert.InDelta(t, 10, bird.Position().X(), 1e-9)
	// (10, 0, 5) seen from the origin
	assert.InDelta(t, 63.434948822922, result.Yaw, 1e-6)
}

func TestCameraScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(`
ticks: 10
camera:
  position: [0, 5, 0]
  yaw: -90
  pitch: 30
rotation:
  mode: camera
`), baseRotation())
	require.NoError(t, err)
	run, err := sc.Build(60)
	require.NoError(t, err)

	result, err := run.Execute()
	require.NoError(t, err)
	assert.InDelta(t, -90, result.Yaw, 1e-6)
	assert.Equal(t, rotation.ModeCamera, result.Mode)
}

func TestCustomInputScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(`
ticks: 3
rotation:
  mode: custom
  turn_speed: 36000
steps:
  - tick: 1
    action: input_direction
    vector: [0, 0, -1]
`), baseRotation())
	require.NoError(t, err)
	run, err := sc.Build(60)
	require.NoError(t, err)

	result, err := run.Execute()
	require.NoError(t, err)
	assert.InDelta(t, 0, orient.DeltaAngle(180, result.Yaw), 1e-6)
}

func TestOverrideSteps(t *testing.T) {
	sc, err := ParseScenario([]byte(`
ticks: 4
actor:
  yaw: 10
rotation:
  turn_speed: 0
steps:
  - tick: 0
    action: set_rotation_yaw
    yaw: 40
  - tick: 1
    action: add_yaw
    yaw: 5
  - tick: 2
    action: snap_yaw
    yaw: -30
  - tick: 3
    action: enabled
    enabled: false
`), baseRotation())
	require.NoError(t, err)
	run, err := sc.Build(60)
	require.NoError(t, err)

	_, err = run.Loop.RunSteps(2)
	require.NoError(t, err)
	assert.InDelta(t, 45, run.Actor.Yaw(), 1e-9)

	result, err := run.Execute()
	require.NoError(t, err)
	assert.InDelta(t, -30, result.Yaw, 1e-9)
	assert.False(t, run.System.Enabled())
}

func TestModeSteps(t *testing.T) {
	sc, err := ParseScenario([]byte(`
ticks: 4
rotation:
  mode: camera
entities:
  - name: post
    position: [0, 0, 3]
steps:
  - tick: 0
    action: mode
    mode: target
  - tick: 1
    action: look_target
    entity: post
  - tick: 2
    action: target_or_direction
  - tick: 3
    action: default_mode
`), baseRotation())
	require.NoError(t, err)
	run, err := sc.Build(60)
	require.NoError(t, err)

	_, err = run.Loop.RunSteps(1)
	require.NoError(t, err)
	assert.Equal(t, rotation.ModeCamera, run.System.Mode())

	_, err = run.Loop.RunSteps(2)
	require.NoError(t, err)
	assert.Equal(t, rotation.ModeTarget, run.System.Mode())

	result, err := run.Execute()
	require.NoError(t, err)
	assert.Equal(t, rotation.ModeCamera, result.Mode)
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty", "", []string{"scenario is empty"}},
		{"unknown field", "ticks: 1\nspeed: 3\n", []string{"field speed not found"}},
		{"bad yaml", "ticks: [1\n", []string{"parse yaml scenario"}},
		{"no ticks", "name: x\n", []string{"Scenario.Ticks"}},
		{"bad rotation mode", "ticks: 1\nrotation:\n  mode: spin\n", []string{"Scenario.Rotation.Mode"}},
		{
			name: "bad steps",
			content: `
ticks: 5
entities:
  - name: a
  - name: a
steps:
  - tick: 0
    action: fly
  - tick: 1
    action: look_direction
  - tick: 1
    action: look_target
    entity: ghost
  - tick: 2
    action: mode
    mode: spin
  - tick: 9
    action: clear_look_target
`,
			want: []string{
				`entity "a" is declared twice`,
				`steps[0]: unknown action "fly"`,
				"steps[1]: look_direction needs a 3-component vector",
				`steps[2]: look_target references unknown entity "ghost"`,
				`steps[3]: unknown rotation mode "spin"`,
				"steps[4]: tick 9 is past the last tick 4",
			},
		},
		{"camera name reserved", "ticks: 1\nentities:\n  - name: camera\n", []string{`entities[0].name must not be "camera"`}},
		{"vector length", "ticks: 1\nactor:\n  position: [1, 2]\n", []string{"actor.position must have exactly 3 elements"}},
		{"step fields use yaml keys", "ticks: 2\nrotation:\n  turn_speed: -1\nsteps:\n  - tick: 0\n    action: look_direction\n    vector: [1, 0]\n", []string{
			"steps[0].vector must have exactly 3 elements",
			"rotation.turn_speed must be at least 0",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content), baseRotation())
			require.Error(t, err)
			for _, want := range tt.want {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chase.yaml")
	require.NoError(t, os.WriteFile(path, []byte(chaseScenario), 0o644))

	sc, err := LoadScenario(path, baseRotation())
	require.NoError(t, err)
	assert.Equal(t, "hero", sc.Name)
	assert.Len(t, sc.Steps, 2)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"), baseRotation())
	assert.True(t, os.IsNotExist(err))
}
