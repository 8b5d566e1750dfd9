package rotation

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/rotation/internal/orient"
)

// Transform is the host object whose orientation the system drives.
type Transform interface {
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
	SetRotation(q mgl64.Quat)
}

// TargetRef is a weak reference to another object's position. ok is false
// once the referent no longer exists.
type TargetRef interface {
	Position() (pos mgl64.Vec3, ok bool)
}

// CameraProvider supplies the active camera's forward vector. ok is false
// while no camera is available.
type CameraProvider interface {
	Forward() (dir mgl64.Vec3, ok bool)
}

// View is the read-only state handed to a CustomSource.
type View struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	LookDirection   mgl64.Vec3
	InputDirection  mgl64.Vec3
	LookPosition    mgl64.Vec3
	HasLookPosition bool
}

// CustomSource resolves the desired direction for ModeCustom.
type CustomSource func(v View) (dir mgl64.Vec3, ok bool)

// InputDirection turns the actor toward its latest movement input.
func InputDirection(v View) (mgl64.Vec3, bool) {
	if orient.IsZero(v.InputDirection) {
		return mgl64.Vec3{}, false
	}
	return v.InputDirection, true
}

// observation is everything the selector and samplers need for one tick,
// gathered once so a weak reference is queried a single time.
type observation struct {
	view      View
	targetPos mgl64.Vec3
	hasTarget bool
	cameraDir mgl64.Vec3
	hasCamera bool
	custom    CustomSource
}

func (o observation) availability() availability {
	return availability{
		direction: !orient.IsZero(o.view.LookDirection),
		position:  o.view.HasLookPosition,
		target:    o.hasTarget,
		camera:    o.hasCamera,
		custom:    o.custom != nil,
	}
}

type sampler func(o observation) (mgl64.Vec3, bool)

var samplers = [...]sampler{
	ModeDirection: sampleDirection,
	ModePosition:  samplePosition,
	ModeTarget:    sampleTarget,
	ModeCamera:    sampleCamera,
	ModeCustom:    sampleCustom,
}

// desiredDirection runs the sampler registered for mode.
func (o observation) desiredDirection(mode Mode) (mgl64.Vec3, bool) {
	if !mode.Valid() {
		return mgl64.Vec3{}, false
	}
	return samplers[mode](o)
}

func sampleDirection(o observation) (mgl64.Vec3, bool) {
	if orient.IsZero(o.view.LookDirection) {
		return mgl64.Vec3{}, false
	}
	return o.view.LookDirection, true
}

func samplePosition(o observation) (mgl64.Vec3, bool) {
	if !o.view.HasLookPosition {
		return mgl64.Vec3{}, false
	}
	return o.view.LookPosition.Sub(o.view.Position), true
}

func sampleTarget(o observation) (mgl64.Vec3, bool) {
	if !o.hasTarget {
		return mgl64.Vec3{}, false
	}
	return o.targetPos.Sub(o.view.Position), true
}

func sampleCamera(o observation) (mgl64.Vec3, bool) {
	if !o.hasCamera {
		return mgl64.Vec3{}, false
	}
	return o.cameraDir, true
}

func sampleCustom(o observation) (mgl64.Vec3, bool) {
	if o.custom == nil {
		return mgl64.Vec3{}, false
	}
	dir, ok := o.custom(o.view)
	if !ok || orient.IsZero(dir) {
		return mgl64.Vec3{}, false
	}
	return dir, true
}

func resolveTarget(ref TargetRef) (mgl64.Vec3, bool) {
	if ref == nil {
		return mgl64.Vec3{}, false
	}
	pos, ok := ref.Position()
	if !ok || !orient.IsFinite(pos) {
		return mgl64.Vec3{}, false
	}
	return pos, true
}

func resolveCamera(cam CameraProvider) (mgl64.Vec3, bool) {
	if cam == nil {
		return mgl64.Vec3{}, false
	}
	dir, ok := cam.Forward()
	if !ok || orient.IsZero(dir) {
		return mgl64.Vec3{}, false
	}
	return dir, true
}
