package rotation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/rotation/internal/orient"
)

// SolveYaw advances currentYaw toward the heading of desired by at most
// turnSpeed*deltaTime degrees along the shorter arc, landing exactly on the
// target heading when it is within reach. Headings exactly 180 degrees
// apart turn toward increasing yaw.
//
// ok is false when desired defines no heading (absent, zero, vertical or
// non-finite); yaw is then currentYaw. A zero turnSpeed or a non-positive
// deltaTime also returns currentYaw, with the target heading still
// reported.
func SolveYaw(currentYaw float64, desired mgl64.Vec3, hasDesired bool, turnSpeed, deltaTime float64) (yaw, targetYaw float64, ok bool) {
	if !hasDesired {
		return currentYaw, currentYaw, false
	}
	targetYaw, ok = orient.YawFromDirection(desired)
	if !ok {
		return currentYaw, currentYaw, false
	}
	if math.IsNaN(currentYaw) || math.IsInf(currentYaw, 0) {
		return currentYaw, targetYaw, true
	}
	step := clampNonNegative(turnSpeed) * clampNonNegative(deltaTime)
	if !(step > 0) {
		return currentYaw, targetYaw, true
	}
	return orient.MoveTowardsAngle(currentYaw, targetYaw, step), targetYaw, true
}

func clampNonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
