package rotation

// availability records which mode data sources can be sampled this tick.
type availability struct {
	direction bool
	position  bool
	target    bool
	camera    bool
	custom    bool
}

func (a availability) has(m Mode) bool {
	switch m {
	case ModeDirection:
		return a.direction
	case ModePosition:
		return a.position
	case ModeTarget:
		return a.target
	case ModeCamera:
		return a.camera
	case ModeCustom:
		return a.custom
	default:
		return false
	}
}

// resolveMode decides which mode to sample this tick. next differs from
// mode only when auto-transition moved away from a mode whose data is gone;
// hold reports that the actor keeps its current orientation.
//
// Target falls back to Position, then Direction. Position falls back to
// Target, then Direction. Direction, Camera and Custom never transition:
// Direction is the terminal fallback, Camera and Custom stay frozen until
// their data returns.
func resolveMode(mode Mode, auto bool, av availability) (next Mode, hold bool) {
	if !mode.Valid() {
		return mode, true
	}
	if av.has(mode) {
		return mode, false
	}
	if !auto {
		return mode, true
	}

	next = mode
	switch mode {
	case ModeTarget:
		if av.position {
			next = ModePosition
		} else {
			next = ModeDirection
		}
	case ModePosition:
		if av.target {
			next = ModeTarget
		} else {
			next = ModeDirection
		}
	}
	return next, !av.has(next)
}

// fallbackAfterPositionCleared is the mode taken when the look position is
// cleared out from under ModePosition.
func fallbackAfterPositionCleared(av availability) Mode {
	if av.target {
		return ModeTarget
	}
	return ModeDirection
}
