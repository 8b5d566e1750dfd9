package rotation

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/rotation/internal/orient"
)

// CanEnter reports whether m has the data it needs right now.
func (s *System) CanEnter(m Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canEnterLocked(m)
}

func (s *System) canEnterLocked(m Mode) bool {
	obs := s.observeLocked(s.resolved)
	return obs.availability().has(m)
}

// TrySetMode enters m only if its data is available. It reports whether m
// is the active mode afterwards.
func (s *System) TrySetMode(m Mode) bool {
	if !m.Valid() {
		s.log.Warn("Ignoring unknown rotation mode", "mode", m)
		return false
	}
	s.mu.Lock()
	if s.mode == m {
		s.mu.Unlock()
		return true
	}
	if !s.canEnterLocked(m) {
		s.mu.Unlock()
		return false
	}
	events := s.changeModeLocked(m, nil)
	s.mu.Unlock()
	s.publish(events)
	return true
}

// ForceSetMode enters m regardless of whether its data is available.
func (s *System) ForceSetMode(m Mode) {
	if !m.Valid() {
		s.log.Warn("Ignoring unknown rotation mode", "mode", m)
		return
	}
	s.mu.Lock()
	events := s.changeModeLocked(m, nil)
	s.mu.Unlock()
	s.publish(events)
}

func (s *System) TrySetDefaultMode() bool {
	return s.TrySetMode(s.DefaultMode())
}

func (s *System) ForceSetDefaultMode() {
	s.ForceSetMode(s.DefaultMode())
}

// LookAtTargetOrDirection enters ModeTarget when the look target is present
// and otherwise forces ModeDirection. It reports whether the target won.
func (s *System) LookAtTargetOrDirection() bool {
	s.mu.Lock()
	next := ModeDirection
	if s.canEnterLocked(ModeTarget) {
		next = ModeTarget
	}
	events := s.changeModeLocked(next, nil)
	s.mu.Unlock()
	s.publish(events)
	return next == ModeTarget
}

func (s *System) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *System) DefaultMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultMode
}

func (s *System) AutoTransition() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoTransition
}

func (s *System) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *System) TurnSpeed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnSpeed
}

func (s *System) LookDirection() mgl64.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookDirection
}

func (s *System) InputDirection() mgl64.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputDirection
}

// LookTarget returns the stored reference, which may point at an object
// that no longer exists. Use HasLookTarget to test presence.
func (s *System) LookTarget() TargetRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookTarget
}

func (s *System) HasLookTarget() bool {
	s.mu.Lock()
	ref := s.lookTarget
	s.mu.Unlock()
	_, ok := resolveTarget(ref)
	return ok
}

func (s *System) LookPosition() (mgl64.Vec3, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookPosition, s.hasLookPosition
}

// Current is the host's orientation as the next tick will read it.
func (s *System) Current() mgl64.Quat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return orient.Sanitize(s.host.Rotation())
}

// Resolved is the orientation written to the host by the last tick or
// SnapRotation.
func (s *System) Resolved() mgl64.Quat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

// Yaw is the heading of Resolved in degrees.
func (s *System) Yaw() float64 {
	return orient.YawOf(s.Resolved())
}

// Tick counts completed UpdateRotation calls.
func (s *System) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// HasPendingRotation reports whether an override or additive rotation is
// waiting for the next tick.
func (s *System) HasPendingRotation() (override, additive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.hasOverride, s.pending.hasAdditive
}
