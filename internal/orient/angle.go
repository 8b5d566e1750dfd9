// Package orient holds the heading math shared by the rotation engine:
// angle wrapping, bounded angle steps and yaw/quaternion conversion.
//
// Conventions: y is up, an unrotated actor faces +Z, and yaw is measured in
// degrees from +Z toward +X (atan2(x, z)). Angles are wrapped to (-180, 180].
package orient

import "math"

// NormalizeAngle wraps deg into (-180, 180].
func NormalizeAngle(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r <= -180 {
		r += 360
	} else if r > 180 {
		r -= 360
	}
	return r
}

// DeltaAngle returns the signed shortest arc from -> to in (-180, 180].
// Two headings exactly opposite each other yield +180, so an ambiguous turn
// always proceeds toward increasing yaw.
func DeltaAngle(from, to float64) float64 {
	return NormalizeAngle(to - from)
}

// AngleDiff is the unsigned shortest arc between a and b.
func AngleDiff(a, b float64) float64 {
	return math.Abs(DeltaAngle(a, b))
}

// MoveTowardsAngle advances current toward target by at most maxDelta
// degrees along the shorter arc. When the target is within reach the wrapped
// target is returned exactly. A non-positive maxDelta leaves current as is.
func MoveTowardsAngle(current, target, maxDelta float64) float64 {
	if !(maxDelta > 0) {
		return current
	}
	delta := DeltaAngle(current, target)
	if math.Abs(delta) <= maxDelta {
		return NormalizeAngle(target)
	}
	return NormalizeAngle(current + math.Copysign(maxDelta, delta))
}

// InverseLerp maps v onto [0, 1] relative to the [a, b] window.
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		if v < a {
			return 0
		}
		return 1
	}
	t := (v - a) / (b - a)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// InRange reports whether v lies inside the closed window [lo, hi].
func InRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
