package world

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/Versifine/rotation/internal/orient"
)

var ErrNotFound = errors.New("entity not found")

// Ref is a weak handle to an entity, resolved on every call. Refs to the
// same entity of the same world compare equal.
type Ref struct {
	world *World
	id    uuid.UUID
}

func (r Ref) ID() uuid.UUID {
	return r.id
}

// Position reports the entity's current position, or false once it has
// been removed.
func (r Ref) Position() (mgl64.Vec3, bool) {
	if r.world == nil {
		return mgl64.Vec3{}, false
	}
	e, ok := r.world.Get(r.id)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return e.Position(), true
}

func (r Ref) String() string {
	return r.id.String()
}

func (r Ref) MarshalText() ([]byte, error) {
	return r.id.MarshalText()
}

// Camera exposes the world's camera entity as a forward vector.
type Camera struct {
	world *World
}

// Forward is the camera entity's forward axis. It is unavailable while no
// camera is set or the camera entity has been removed.
func (c Camera) Forward() (mgl64.Vec3, bool) {
	if c.world == nil {
		return mgl64.Vec3{}, false
	}
	e, ok := c.world.cameraEntity()
	if !ok {
		return mgl64.Vec3{}, false
	}
	return e.Rotation().Rotate(orient.Forward), true
}
