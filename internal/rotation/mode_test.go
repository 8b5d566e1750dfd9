package rotation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Versifine/rotation/internal/config"
)

func TestModeString(t *testing.T) {
	assert.Equal(t, "direction", ModeDirection.String())
	assert.Equal(t, "custom", ModeCustom.String())
	assert.Equal(t, "mode(7)", Mode(7).String())
	assert.False(t, Mode(-1).Valid())
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMode("  Target ")
	require.NoError(t, err)
	assert.Equal(t, ModeTarget, got)

	_, err = ParseMode("spin")
	assert.Error(t, err)
}

func TestWithConfig(t *testing.T) {
	s := newSystem(t, newFakeTransform(0), WithConfig(config.RotationConfig{
		Mode:           "position",
		TurnSpeed:      120,
		AutoTransition: true,
		Enabled:        false,
	}))
	assert.Equal(t, ModePosition, s.Mode())
	assert.Equal(t, ModePosition, s.DefaultMode())
	assert.Equal(t, 120.0, s.TurnSpeed())
	assert.True(t, s.AutoTransition())
	assert.False(t, s.Enabled())

	s = newSystem(t, newFakeTransform(0), WithConfig(config.RotationConfig{Mode: "spin", TurnSpeed: -1, Enabled: true}))
	assert.Equal(t, ModeDirection, s.Mode())
	assert.Equal(t, 0.0, s.TurnSpeed())
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	s := newSystem(t, newFakeTransform(0), WithMode(Mode(12)), WithBus(nil), WithLogger(nil), nil)
	assert.Equal(t, ModeDirection, s.Mode())
	assert.NotNil(t, s.Bus())
}

func TestRecordersFanOut(t *testing.T) {
	a, b := &recordingRecorder{}, &recordingRecorder{}
	Recorders{a, nil, b}.RecordTick(TickResult{Tick: 3})
	require.Len(t, a.results, 1)
	require.Len(t, b.results, 1)
	assert.EqualValues(t, 3, b.results[0].Tick)
}

func TestModeJSON(t *testing.T) {
	data, err := json.Marshal(ModeChanged{Current: ModeTarget, Previous: ModeDirection})
	require.NoError(t, err)
	assert.JSONEq(t, `{"current":"target","previous":"direction"}`, string(data))

	var got ModeChanged
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ModeTarget, got.Current)

	var m Mode
	assert.Error(t, m.UnmarshalText([]byte("sideways")))
}
