package world

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/Versifine/rotation/internal/orient"
)

// World is an in-memory scene of named entities. One entity may be marked
// as the camera.
type World struct {
	mu        sync.RWMutex
	entities  map[uuid.UUID]*Entity
	camera    uuid.UUID
	hasCamera bool
}

func New() *World {
	return &World{entities: make(map[uuid.UUID]*Entity)}
}

// Entity is a scene object with a pose. It satisfies rotation.Transform.
type Entity struct {
	ID   uuid.UUID
	Name string

	mu  sync.RWMutex
	pos mgl64.Vec3
	rot mgl64.Quat
}

func (e *Entity) Position() mgl64.Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pos
}

func (e *Entity) Rotation() mgl64.Quat {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rot
}

func (e *Entity) SetRotation(q mgl64.Quat) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rot = q
}

func (e *Entity) SetPosition(pos mgl64.Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = pos
}

// Move translates the entity by delta.
func (e *Entity) Move(delta mgl64.Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = e.pos.Add(delta)
}

// Yaw is the entity's heading in degrees.
func (e *Entity) Yaw() float64 {
	return orient.YawOf(e.Rotation())
}

// Spawn adds an entity and returns it. A degenerate rotation becomes identity.
func (w *World) Spawn(name string, pos mgl64.Vec3, rot mgl64.Quat) *Entity {
	e := &Entity{
		ID:   uuid.New(),
		Name: name,
		pos:  pos,
		rot:  orient.Sanitize(rot),
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.entities == nil {
		w.entities = make(map[uuid.UUID]*Entity)
	}
	w.entities[e.ID] = e
	return e
}

// Remove destroys an entity. Refs to it report absent from then on; if it
// was the camera, the camera becomes unavailable.
func (w *World) Remove(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return false
	}
	delete(w.entities, id)
	if w.hasCamera && w.camera == id {
		w.hasCamera = false
	}
	return true
}

func (w *World) Get(id uuid.UUID) (*Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	return e, ok
}

// Find returns the first entity named name, in ID order.
func (w *World) Find(name string) (*Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var found *Entity
	for _, e := range w.entities {
		if e.Name != name {
			continue
		}
		if found == nil || strings.Compare(e.ID.String(), found.ID.String()) < 0 {
			found = e
		}
	}
	return found, found != nil
}

func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// Ref returns a weak reference to id. It does not keep the entity alive
// and may be taken before the entity exists.
func (w *World) Ref(id uuid.UUID) Ref {
	return Ref{world: w, id: id}
}

// SetCamera marks id as the camera entity.
func (w *World) SetCamera(id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return fmt.Errorf("camera entity %s: %w", id, ErrNotFound)
	}
	w.camera = id
	w.hasCamera = true
	return nil
}

func (w *World) ClearCamera() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hasCamera = false
}

// Camera returns a provider that follows whichever entity is the camera at
// the time Forward is called.
func (w *World) Camera() Camera {
	return Camera{world: w}
}

func (w *World) cameraEntity() (*Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.hasCamera {
		return nil, false
	}
	e, ok := w.entities[w.camera]
	return e, ok
}

type EntityState struct {
	ID       uuid.UUID
	Name     string
	Position mgl64.Vec3
	Yaw      float64
	Camera   bool
}

type Snapshot struct {
	Entities []EntityState
}

func (s Snapshot) String() string {
	var infos []string
	for _, e := range s.Entities {
		tag := ""
		if e.Camera {
			tag = " camera"
		}
		infos = append(infos, fmt.Sprintf("%s%s (%.2f, %.2f, %.2f) yaw:%.1f",
			e.Name, tag, e.Position.X(), e.Position.Y(), e.Position.Z(), e.Yaw))
	}
	return fmt.Sprintf("Snapshot [Entities(%d): [%s]]", len(s.Entities), strings.Join(infos, ", "))
}

// Snapshot copies every entity's pose, sorted by name then ID.
func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	entities := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		entities = append(entities, e)
	}
	camera, hasCamera := w.camera, w.hasCamera
	w.mu.RUnlock()

	states := make([]EntityState, 0, len(entities))
	for _, e := range entities {
		states = append(states, EntityState{
			ID:       e.ID,
			Name:     e.Name,
			Position: e.Position(),
			Yaw:      e.Yaw(),
			Camera:   hasCamera && e.ID == camera,
		})
	}
	sort.Slice(states, func(i, j int) bool {
		if states[i].Name != states[j].Name {
			return states[i].Name < states[j].Name
		}
		return states[i].ID.String() < states[j].ID.String()
	})
	return Snapshot{Entities: states}
}
