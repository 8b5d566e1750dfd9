// Package rotation resolves, once per tick, the orientation an actor turns
// toward. A System picks a source (look direction, look position, look
// target, camera or a custom resolver), advances the actor's yaw toward it
// at a bounded turn rate and then applies one-shot override and additive
// rotations before writing the result to the host transform.
//
// All methods are safe for concurrent use; state changes are serialized
// behind a single mutex and change notifications are delivered after it is
// released.
package rotation

import (
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/rotation/internal/event"
	"github.com/Versifine/rotation/internal/orient"
)

// DefaultTurnSpeed is the yaw rate in degrees per second used when none is
// configured.
const DefaultTurnSpeed = 720.0

// yawEpsilon is the smallest heading change, in degrees, worth writing.
const yawEpsilon = 1e-9

// ErrNoTransform is returned by New when no host transform is wired.
var ErrNoTransform = errors.New("rotation: host transform is required")

type System struct {
	mu sync.Mutex

	host     Transform
	camera   CameraProvider
	custom   CustomSource
	bus      *event.Bus
	log      *slog.Logger
	recorder Recorder

	mode           Mode
	defaultMode    Mode
	autoTransition bool
	enabled        bool
	turnSpeed      float64

	lookDirection   mgl64.Vec3
	inputDirection  mgl64.Vec3
	lookTarget      TargetRef
	lookPosition    mgl64.Vec3
	hasLookPosition bool

	pending  pendingRotation
	resolved mgl64.Quat
	tick     uint64

	cameraWarned bool
}

// New wires a System to host. The initial resolved orientation is the
// host's current rotation.
func New(host Transform, opts ...Option) (*System, error) {
	if host == nil {
		return nil, ErrNoTransform
	}
	s := &System{
		host:        host,
		bus:         event.NewBus(),
		log:         slog.Default(),
		mode:        ModeDirection,
		defaultMode: ModeDirection,
		enabled:     true,
		turnSpeed:   DefaultTurnSpeed,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.resolved = orient.Sanitize(host.Rotation())

	if s.mode == ModeCamera && s.camera == nil {
		s.log.Warn("Rotation starts in camera mode without a camera provider; rotation stays frozen until one is set")
		s.cameraWarned = true
	}
	return s, nil
}

// Bus exposes the bus change notifications are published on.
func (s *System) Bus() *event.Bus {
	return s.bus
}

// SetCamera swaps the camera provider. nil leaves camera mode frozen.
func (s *System) SetCamera(cam CameraProvider) {
	s.mu.Lock()
	s.camera = cam
	s.cameraWarned = false
	s.mu.Unlock()
}

// SetCustomSource installs the resolver sampled in ModeCustom.
func (s *System) SetCustomSource(src CustomSource) {
	s.mu.Lock()
	s.custom = src
	s.mu.Unlock()
}

// SetRecorder installs the tick recorder. nil disables recording.
func (s *System) SetRecorder(r Recorder) {
	s.mu.Lock()
	s.recorder = r
	s.mu.Unlock()
}

func (s *System) SetLookDirection(dir mgl64.Vec3) {
	s.mu.Lock()
	s.lookDirection = normalizedOrZero(dir)
	s.mu.Unlock()
}

func (s *System) SetInputDirection(dir mgl64.Vec3) {
	s.mu.Lock()
	s.inputDirection = normalizedOrZero(dir)
	s.mu.Unlock()
}

// SetLookPosition stores a world-space point to face. With auto-transition
// on, an actor idling in ModeDirection switches to ModePosition.
func (s *System) SetLookPosition(pos mgl64.Vec3) {
	if !orient.IsFinite(pos) {
		return
	}
	s.mu.Lock()
	s.lookPosition = pos
	s.hasLookPosition = true
	var events []outgoing
	if s.autoTransition && s.mode == ModeDirection {
		events = s.changeModeLocked(ModePosition, events)
	}
	s.mu.Unlock()
	s.publish(events)
}

// ClearLookPosition invalidates the look position. With auto-transition on
// and ModePosition active, the system moves to ModeTarget when a target is
// present and to ModeDirection otherwise.
func (s *System) ClearLookPosition() {
	s.mu.Lock()
	s.lookPosition = mgl64.Vec3{}
	s.hasLookPosition = false
	var events []outgoing
	if s.autoTransition && s.mode == ModePosition {
		_, hasTarget := resolveTarget(s.lookTarget)
		next := fallbackAfterPositionCleared(availability{target: hasTarget})
		events = s.changeModeLocked(next, events)
	}
	s.mu.Unlock()
	s.publish(events)
}

// SetLookTarget replaces the look target. nil clears it. A change publishes
// LookTargetChanged; with auto-transition on, a present new target also
// switches the system to ModeTarget.
func (s *System) SetLookTarget(ref TargetRef) {
	s.mu.Lock()
	if sameTarget(s.lookTarget, ref) {
		s.mu.Unlock()
		return
	}
	prev := s.lookTarget
	s.lookTarget = ref
	s.log.Debug("Rotation look target changed", "current", ref, "previous", prev)
	events := []outgoing{{
		name:    event.EventLookTargetChanged,
		payload: LookTargetChanged{Current: ref, Previous: prev},
	}}
	if s.autoTransition && ref != nil {
		if _, ok := resolveTarget(ref); ok {
			events = s.changeModeLocked(ModeTarget, events)
		}
	}
	s.mu.Unlock()
	s.publish(events)
}

// ClearLookTarget drops the look target. Any mode fallback happens on the
// next UpdateRotation.
func (s *System) ClearLookTarget() {
	s.SetLookTarget(nil)
}

// SetTurnSpeed sets the yaw rate in degrees per second. Negative and NaN
// speeds clamp to zero, which freezes yaw.
func (s *System) SetTurnSpeed(speed float64) {
	s.mu.Lock()
	s.turnSpeed = clampNonNegative(speed)
	s.mu.Unlock()
}

func (s *System) SetAutoTransition(auto bool) {
	s.mu.Lock()
	s.autoTransition = auto
	s.mu.Unlock()
}

// SetEnabled toggles rate-limited turning. A disabled system holds its
// orientation but still consumes override and additive rotations.
func (s *System) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

// SetRotation schedules q to replace the solved orientation on the next
// tick, bypassing the turn rate. The last call before a tick wins.
func (s *System) SetRotation(q mgl64.Quat) {
	s.mu.Lock()
	s.pending.setOverride(q)
	s.mu.Unlock()
}

// SetRotationYaw schedules an override facing yaw degrees with no pitch.
func (s *System) SetRotationYaw(yaw float64) {
	if math.IsNaN(yaw) || math.IsInf(yaw, 0) {
		return
	}
	s.SetRotation(orient.YawRotation(yaw))
}

// AddRotation composes delta onto the additive rotation applied on the
// next tick. Calls accumulate in order: AddRotation(a); AddRotation(b)
// equals AddRotation(a.Mul(b)).
func (s *System) AddRotation(delta mgl64.Quat) {
	s.mu.Lock()
	s.pending.add(delta)
	s.mu.Unlock()
}

// SnapRotation writes q to the host immediately. Pending override and
// additive rotations are left for the next tick.
func (s *System) SnapRotation(q mgl64.Quat) {
	q = orient.Sanitize(q)
	s.mu.Lock()
	s.host.SetRotation(q)
	s.resolved = q
	s.mu.Unlock()
}

// UpdateRotation runs one tick: resolve the mode, sample its source, turn
// the yaw by at most turnSpeed*deltaTime degrees, apply pending override
// and additive rotations and write the result to the host transform.
// Negative deltaTime counts as zero.
func (s *System) UpdateRotation(deltaTime float64) TickResult {
	s.mu.Lock()

	current := orient.Sanitize(s.host.Rotation())
	obs := s.observeLocked(current)
	prevMode := s.mode
	next, hold := resolveMode(s.mode, s.autoTransition, obs.availability())

	var events []outgoing
	if next != s.mode {
		events = s.changeModeLocked(next, events)
	}
	if hold && next == ModeCamera && !obs.hasCamera && !s.cameraWarned {
		s.log.Warn("Rotation camera unavailable; camera mode frozen")
		s.cameraWarned = true
	}

	curYaw := orient.YawOf(current)
	result := TickResult{
		DeltaTime:    clampNonNegative(deltaTime),
		Mode:         next,
		ModeName:     next.String(),
		PreviousMode: prevMode,
		YawBefore:    curYaw,
		TargetYaw:    curYaw,
	}

	override, additive := s.pending.take()
	solved := current
	solvedYaw := curYaw
	switch {
	case override != nil:
		result.Overridden = true
	case !s.enabled || hold:
		result.Frozen = true
	default:
		dir, ok := obs.desiredDirection(next)
		yaw, targetYaw, hasHeading := SolveYaw(curYaw, dir, ok, s.turnSpeed, deltaTime)
		if hasHeading {
			result.TargetYaw = targetYaw
		}
		if orient.AngleDiff(yaw, curYaw) > yawEpsilon {
			solved = orient.WithYaw(current, yaw)
			solvedYaw = yaw
		}
		result.Frozen = !hasHeading || (solvedYaw == curYaw && orient.AngleDiff(curYaw, targetYaw) > yawEpsilon)
	}
	result.Additive = additive != nil

	final := compose(solved, override, additive)
	s.host.SetRotation(final)
	s.resolved = final
	s.tick++

	result.Tick = s.tick
	result.Rotation = final
	result.YawAfter = solvedYaw
	if override != nil || additive != nil {
		result.YawAfter = orient.YawOf(final)
	}
	rec := s.recorder
	s.mu.Unlock()

	if rec != nil {
		rec.RecordTick(result)
	}
	s.publish(events)
	return result
}

func (s *System) observeLocked(current mgl64.Quat) observation {
	obs := observation{
		view: View{
			Position:        s.host.Position(),
			Rotation:        current,
			LookDirection:   s.lookDirection,
			InputDirection:  s.inputDirection,
			LookPosition:    s.lookPosition,
			HasLookPosition: s.hasLookPosition,
		},
		custom: s.custom,
	}
	obs.targetPos, obs.hasTarget = resolveTarget(s.lookTarget)
	obs.cameraDir, obs.hasCamera = resolveCamera(s.camera)
	return obs
}

// changeModeLocked switches to next and queues the notification. It is a
// no-op when next is already active.
func (s *System) changeModeLocked(next Mode, events []outgoing) []outgoing {
	if next == s.mode || !next.Valid() {
		return events
	}
	prev := s.mode
	s.mode = next
	s.log.Debug("Rotation mode changed", "current", next, "previous", prev)
	return append(events, outgoing{
		name:    event.EventModeChanged,
		payload: ModeChanged{Current: next, Previous: prev},
	})
}

func normalizedOrZero(v mgl64.Vec3) mgl64.Vec3 {
	if orient.IsZero(v) {
		return mgl64.Vec3{}
	}
	l := v.Len()
	if !(l > 0) || math.IsInf(l, 0) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}
