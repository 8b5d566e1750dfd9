package rotation

import (
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/Versifine/rotation/internal/orient"
)

type fakeTransform struct {
	mu     sync.Mutex
	pos    mgl64.Vec3
	rot    mgl64.Quat
	writes int
}

func newFakeTransform(yaw float64) *fakeTransform {
	return &fakeTransform{rot: orient.YawRotation(yaw)}
}

func (f *fakeTransform) Position() mgl64.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeTransform) Rotation() mgl64.Quat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rot
}

func (f *fakeTransform) SetRotation(q mgl64.Quat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rot = q
	f.writes++
}

func (f *fakeTransform) yaw() float64 {
	return orient.YawOf(f.Rotation())
}

type fakeTarget struct {
	pos   mgl64.Vec3
	alive bool
}

func newFakeTarget(x, y, z float64) *fakeTarget {
	return &fakeTarget{pos: mgl64.Vec3{x, y, z}, alive: true}
}

func (f *fakeTarget) Position() (mgl64.Vec3, bool) {
	return f.pos, f.alive
}

type fakeCamera struct {
	forward mgl64.Vec3
	ok      bool
}

func (f *fakeCamera) Forward() (mgl64.Vec3, bool) {
	return f.forward, f.ok
}

type recordingRecorder struct {
	results []TickResult
}

func (r *recordingRecorder) RecordTick(result TickResult) {
	r.results = append(r.results, result)
}

func newSystem(t *testing.T, host Transform, opts ...Option) *System {
	t.Helper()
	s, err := New(host, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func collectModeChanges(s *System) *[]ModeChanged {
	var got []ModeChanged
	s.OnModeChanged(func(evt ModeChanged) {
		got = append(got, evt)
	})
	return &got
}

// assertSameRotation compares orientations up to quaternion sign.
func assertSameRotation(t *testing.T, want, got mgl64.Quat) {
	t.Helper()
	dot := want.Dot(got)
	assert.InDelta(t, 1, math.Abs(dot), 1e-9, "want %v got %v", want, got)
}
