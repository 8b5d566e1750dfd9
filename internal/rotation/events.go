package rotation

import (
	"reflect"

	"github.com/Versifine/rotation/internal/event"
)

// ModeChanged is published on event.EventModeChanged after every actual
// mode transition.
type ModeChanged struct {
	Current  Mode `json:"current"`
	Previous Mode `json:"previous"`
}

// LookTargetChanged is published on event.EventLookTargetChanged whenever
// the look target reference changes. A nil side means "no target".
type LookTargetChanged struct {
	Current  TargetRef `json:"current"`
	Previous TargetRef `json:"previous"`
}

type outgoing struct {
	name    string
	payload any
}

// publish delivers queued notifications. Callers must not hold s.mu so
// handlers may call back into the system.
func (s *System) publish(events []outgoing) {
	for _, e := range events {
		s.bus.Publish(e.name, e.payload)
	}
}

// OnModeChanged subscribes fn to mode transitions and returns a function
// that removes the subscription.
func (s *System) OnModeChanged(fn func(ModeChanged)) (unsubscribe func()) {
	id := s.bus.Subscribe(event.EventModeChanged, func(raw any) {
		if evt, ok := raw.(ModeChanged); ok {
			fn(evt)
		}
	})
	return func() { s.bus.Unsubscribe(event.EventModeChanged, id) }
}

// OnLookTargetChanged subscribes fn to look target changes.
func (s *System) OnLookTargetChanged(fn func(LookTargetChanged)) (unsubscribe func()) {
	id := s.bus.Subscribe(event.EventLookTargetChanged, func(raw any) {
		if evt, ok := raw.(LookTargetChanged); ok {
			fn(evt)
		}
	})
	return func() { s.bus.Unsubscribe(event.EventLookTargetChanged, id) }
}

// sameTarget compares references by value when their dynamic type allows
// it. References of non-comparable types are never considered equal.
func sameTarget(a, b TargetRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
