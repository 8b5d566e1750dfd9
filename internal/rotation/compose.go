package rotation

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/rotation/internal/orient"
)

// pendingRotation buffers the one-shot override and additive rotations
// between ticks. Both are drained by take.
type pendingRotation struct {
	override    mgl64.Quat
	hasOverride bool
	additive    mgl64.Quat
	hasAdditive bool
}

// setOverride replaces any override already scheduled.
func (p *pendingRotation) setOverride(q mgl64.Quat) {
	p.override = orient.Sanitize(q)
	p.hasOverride = true
}

// add right-multiplies delta onto the accumulated additive rotation.
func (p *pendingRotation) add(delta mgl64.Quat) {
	delta = orient.Sanitize(delta)
	if !p.hasAdditive {
		p.additive = delta
		p.hasAdditive = true
		return
	}
	p.additive = p.additive.Mul(delta).Normalize()
}

func (p *pendingRotation) take() (override, additive *mgl64.Quat) {
	if p.hasOverride {
		q := p.override
		override = &q
	}
	if p.hasAdditive {
		q := p.additive
		additive = &q
	}
	*p = pendingRotation{}
	return override, additive
}

// compose applies a pending override and additive rotation on top of the
// solved orientation. With neither pending, solved is returned untouched.
func compose(solved mgl64.Quat, override, additive *mgl64.Quat) mgl64.Quat {
	out := solved
	if override != nil {
		out = *override
	}
	if additive != nil {
		out = out.Mul(*additive).Normalize()
	}
	return out
}
