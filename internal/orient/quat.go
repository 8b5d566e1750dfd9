package orient

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// horizontalEpsilon is the smallest XZ length that still defines a heading.
const horizontalEpsilon = 1e-6

var (
	Up      = mgl64.Vec3{0, 1, 0}
	Forward = mgl64.Vec3{0, 0, 1}
	Right   = mgl64.Vec3{1, 0, 0}
)

// IsFinite reports whether every component of v is a real number.
func IsFinite(v mgl64.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}

// IsZero reports whether v carries no direction. Non-finite vectors count
// as zero so they can never leak NaN into an orientation.
func IsZero(v mgl64.Vec3) bool {
	if !IsFinite(v) {
		return true
	}
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// YawFromDirection converts a direction into a heading, ignoring its
// vertical component. ok is false when the direction has no usable
// horizontal part (zero vector, straight up/down, non-finite).
func YawFromDirection(dir mgl64.Vec3) (yaw float64, ok bool) {
	if !IsFinite(dir) {
		return 0, false
	}
	if math.Hypot(dir.X(), dir.Z()) < horizontalEpsilon {
		return 0, false
	}
	return headingDegrees(math.Atan2(dir.X(), dir.Z())), true
}

// headingDegrees converts an atan2 result to a wrapped yaw. atan2 stays in
// [-pi, pi], so the clamp only absorbs rounding that would otherwise wrap
// a half turn to the wrong side.
func headingDegrees(rad float64) float64 {
	return NormalizeAngle(math.Max(-180, math.Min(180, mgl64.RadToDeg(rad))))
}

// DirectionFromYaw is the unit horizontal forward vector for yaw.
func DirectionFromYaw(yaw float64) mgl64.Vec3 {
	rad := mgl64.DegToRad(yaw)
	return mgl64.Vec3{math.Sin(rad), 0, math.Cos(rad)}
}

// YawRotation is a pure rotation of yaw degrees about the world up axis.
func YawRotation(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(yaw), Up)
}

// YawOf extracts the heading of an orientation. A forward axis pointing
// straight up or down falls back to the right axis, which still carries
// the heading.
func YawOf(q mgl64.Quat) float64 {
	f := q.Rotate(Forward)
	if math.Hypot(f.X(), f.Z()) >= horizontalEpsilon {
		return headingDegrees(math.Atan2(f.X(), f.Z()))
	}
	r := q.Rotate(Right)
	return headingDegrees(math.Atan2(-r.Z(), r.X()))
}

// WithYaw turns q about world up until its heading equals yaw, keeping the
// pitch and roll it already had.
func WithYaw(q mgl64.Quat, yaw float64) mgl64.Quat {
	delta := DeltaAngle(YawOf(q), yaw)
	if delta == 0 {
		return q
	}
	return YawRotation(delta).Mul(q).Normalize()
}

// LookRotation builds the orientation whose forward axis points along dir
// with no roll. ok is false for zero or non-finite directions. Straight
// up/down directions keep a zero heading.
func LookRotation(dir mgl64.Vec3) (mgl64.Quat, bool) {
	if IsZero(dir) {
		return mgl64.QuatIdent(), false
	}
	horizontal := math.Hypot(dir.X(), dir.Z())
	yaw := 0.0
	if horizontal >= horizontalEpsilon {
		yaw = math.Atan2(dir.X(), dir.Z())
	}
	pitch := -math.Atan2(dir.Y(), horizontal)
	q := mgl64.QuatRotate(yaw, Up).Mul(mgl64.QuatRotate(pitch, Right))
	return q.Normalize(), true
}

// IsFiniteQuat reports whether every component of q is a real number.
func IsFiniteQuat(q mgl64.Quat) bool {
	return finite(q.W) && IsFinite(q.V)
}

// Sanitize normalizes q and replaces degenerate input with identity. Unit
// quaternions are returned bit-for-bit so a held orientation never drifts.
func Sanitize(q mgl64.Quat) mgl64.Quat {
	if !IsFiniteQuat(q) {
		return mgl64.QuatIdent()
	}
	l := q.Len()
	if l < 1e-9 {
		return mgl64.QuatIdent()
	}
	if math.Abs(l-1) <= 1e-12 {
		return q
	}
	return q.Normalize()
}
