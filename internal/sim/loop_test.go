package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Versifine/rotation/internal/rotation"
)

type countingUpdater struct {
	mu  sync.Mutex
	dts []float64
}

func (c *countingUpdater) UpdateRotation(dt float64) rotation.TickResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dts = append(c.dts, dt)
	return rotation.TickResult{Tick: uint64(len(c.dts)), DeltaTime: dt}
}

func (c *countingUpdater) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.dts)
}

func TestNewLoopTickRate(t *testing.T) {
	l := NewLoop(&countingUpdater{}, 20)
	assert.Equal(t, 50*time.Millisecond, l.Interval())
	assert.Equal(t, 0.05, l.DeltaTime())

	l = NewLoop(&countingUpdater{}, 0)
	assert.Equal(t, time.Second/DefaultTickRate, l.Interval())
}

func TestRunStepsCallsUpdateOncePerTick(t *testing.T) {
	u := &countingUpdater{}
	l := NewLoop(u, 10)

	var seen []uint64
	l.OnTick(func(tick uint64, dt float64) error {
		seen = append(seen, tick)
		assert.Equal(t, 0.1, dt)
		return nil
	})
	l.OnTick(nil)

	last, err := l.RunSteps(3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, last.Tick)
	assert.Equal(t, []uint64{0, 1, 2}, seen)
	assert.Equal(t, []float64{0.1, 0.1, 0.1}, u.dts)
	assert.EqualValues(t, 3, l.Ticks())
	assert.Equal(t, last, l.Last())
}

func TestHookErrorSkipsUpdate(t *testing.T) {
	u := &countingUpdater{}
	l := NewLoop(u, 10)
	boom := errors.New("boom")
	l.OnTick(func(tick uint64, dt float64) error {
		if tick == 2 {
			return boom
		}
		return nil
	})

	last, err := l.RunSteps(5)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 2, last.Tick)
	assert.Equal(t, 2, u.calls())
}

func TestStartStopsOnCancel(t *testing.T) {
	u := &countingUpdater{}
	l := NewLoop(u, 200)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	require.Eventually(t, func() bool { return u.calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStartEndsWithScenario(t *testing.T) {
	u := &countingUpdater{}
	l := NewLoop(u, 500)
	l.OnTick(func(tick uint64, dt float64) error {
		if tick >= 4 {
			return ErrScenarioDone
		}
		return nil
	})

	require.NoError(t, l.Start(context.Background()))
	assert.Equal(t, 4, u.calls())
}
