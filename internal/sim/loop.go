// Package sim drives a rotation system at a fixed tick rate, either against
// the wall clock or headless, and replays YAML scenarios through it.
package sim

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Versifine/rotation/internal/rotation"
)

const DefaultTickRate = 60

// Updater is the per-tick entry point of a rotation system.
type Updater interface {
	UpdateRotation(deltaTime float64) rotation.TickResult
}

// TickFunc runs before each update. tick is the number of updates already
// completed.
type TickFunc func(tick uint64, dt float64) error

// Loop calls UpdateRotation exactly once per fixed tick.
type Loop struct {
	sys      Updater
	interval time.Duration
	dt       float64

	mu    sync.Mutex
	hooks []TickFunc
	ticks uint64
	last  rotation.TickResult
}

// NewLoop builds a loop at tickRate updates per second. A non-positive rate
// uses DefaultTickRate.
func NewLoop(sys Updater, tickRate int) *Loop {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	interval := time.Second / time.Duration(tickRate)
	return &Loop{
		sys:      sys,
		interval: interval,
		dt:       1 / float64(tickRate),
	}
}

// OnTick registers fn to run before every update, in registration order.
func (l *Loop) OnTick(fn TickFunc) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.hooks = append(l.hooks, fn)
	l.mu.Unlock()
}

func (l *Loop) Interval() time.Duration {
	return l.interval
}

// DeltaTime is the fixed step in seconds.
func (l *Loop) DeltaTime() float64 {
	return l.dt
}

func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Last is the result of the most recent update.
func (l *Loop) Last() rotation.TickResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Step runs the hooks and one update. A hook error skips the update.
func (l *Loop) Step() (rotation.TickResult, error) {
	l.mu.Lock()
	hooks := append([]TickFunc(nil), l.hooks...)
	tick := l.ticks
	l.mu.Unlock()

	for _, fn := range hooks {
		if err := fn(tick, l.dt); err != nil {
			return rotation.TickResult{}, err
		}
	}
	result := l.sys.UpdateRotation(l.dt)

	l.mu.Lock()
	l.ticks++
	l.last = result
	l.mu.Unlock()
	return result, nil
}

// RunSteps runs n ticks back to back without waiting on the clock.
func (l *Loop) RunSteps(n int) (rotation.TickResult, error) {
	var last rotation.TickResult
	for i := 0; i < n; i++ {
		result, err := l.Step()
		if err != nil {
			return last, err
		}
		last = result
	}
	return last, nil
}

// Start ticks in real time until ctx is done or a hook fails.
func (l *Loop) Start(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := l.Step(); err != nil {
				if errors.Is(err, ErrScenarioDone) {
					slog.Info("Scenario finished", "ticks", l.Ticks())
					return nil
				}
				return err
			}
		}
	}
}
