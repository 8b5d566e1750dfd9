package rotation

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Versifine/rotation/internal/orient"
)

func TestComposeWithoutPending(t *testing.T) {
	solved := orient.YawRotation(33)
	assert.Equal(t, solved, compose(solved, nil, nil))
}

func TestComposeOverrideReplacesSolved(t *testing.T) {
	solved := orient.YawRotation(33)
	override := orient.YawRotation(-80)
	assert.Equal(t, override, compose(solved, &override, nil))
}

func TestComposeAdditiveRightMultiplies(t *testing.T) {
	solved := orient.YawRotation(90)
	add := mgl64.QuatRotate(mgl64.DegToRad(15), orient.Right)
	got := compose(solved, nil, &add)
	assertSameRotation(t, solved.Mul(add), got)
	assert.InDelta(t, 1, got.Len(), 1e-12)
}

func TestPendingRotationTake(t *testing.T) {
	var p pendingRotation
	override, additive := p.take()
	assert.Nil(t, override)
	assert.Nil(t, additive)

	p.setOverride(orient.YawRotation(10))
	p.setOverride(orient.YawRotation(20))
	p.add(orient.YawRotation(5))
	p.add(orient.YawRotation(7))

	override, additive = p.take()
	require.NotNil(t, override)
	require.NotNil(t, additive)
	assert.InDelta(t, 20, orient.YawOf(*override), 1e-9)
	assert.InDelta(t, 12, orient.YawOf(*additive), 1e-9)

	override, additive = p.take()
	assert.Nil(t, override)
	assert.Nil(t, additive)
}

func TestPendingRotationSanitizes(t *testing.T) {
	var p pendingRotation
	p.setOverride(mgl64.Quat{W: math.NaN()})
	p.add(mgl64.Quat{})
	override, additive := p.take()
	assert.Equal(t, mgl64.QuatIdent(), *override)
	assert.Equal(t, mgl64.QuatIdent(), *additive)

	p.setOverride(mgl64.Quat{W: 2})
	override, _ = p.take()
	assert.InDelta(t, 1, override.Len(), 1e-12)
}
