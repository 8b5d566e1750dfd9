package rotation

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/rotation/internal/orient"
)

// DirectionFunc supplies a world-space direction on demand, typically from
// an animation or ability.
type DirectionFunc func() mgl64.Vec3

// ReachTurn eases an actor toward a direction over a window of an action's
// normalized time, scheduling the eased orientation as an override each
// update.
type ReachTurn struct {
	Direction DirectionFunc
	// Start and End bound the window in normalized time [0, 1].
	Start float64
	End   float64
	// Updatable re-samples Direction every update instead of only on Enter.
	Updatable bool

	dir mgl64.Vec3
}

// Enter snapshots the turn direction.
func (t *ReachTurn) Enter() {
	if t.Direction != nil {
		t.dir = t.Direction()
	}
}

// Update schedules the eased orientation for normalizedTime. It reports
// whether an override was scheduled.
func (t *ReachTurn) Update(sys *System, normalizedTime float64) bool {
	if sys == nil || !orient.InRange(normalizedTime, t.Start, t.End) {
		return false
	}
	if t.Updatable && t.Direction != nil {
		t.dir = t.Direction()
	}
	goal, ok := orient.LookRotation(t.dir)
	if !ok {
		return false
	}
	amount := orient.InverseLerp(t.Start, t.End, normalizedTime)
	sys.SetRotation(mgl64.QuatSlerp(sys.Current(), goal, amount))
	return true
}

// SetRotationTask points the actor along a direction when an action starts,
// either instantly (as an override) or by handing the direction to the
// rate-limited solver.
type SetRotationTask struct {
	Direction   DirectionFunc
	Immediately bool
}

func (t SetRotationTask) Enter(sys *System) {
	if sys == nil || t.Direction == nil {
		return
	}
	dir := t.Direction()
	if !t.Immediately {
		sys.SetLookDirection(dir)
		return
	}
	if q, ok := orient.LookRotation(dir); ok {
		sys.SetRotation(q)
	}
}
