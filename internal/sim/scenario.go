package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Versifine/rotation/internal/config"
	"github.com/Versifine/rotation/internal/orient"
	"github.com/Versifine/rotation/internal/rotation"
	"github.com/Versifine/rotation/internal/world"
)

// ErrScenarioDone is returned by the scenario tick hook once every scripted
// tick has run.
var ErrScenarioDone = errors.New("scenario finished")

const cameraName = "camera"

// Scenario is a scripted run: an actor, the scene around it and timed
// calls into the rotation system.
type Scenario struct {
	Name     string                `yaml:"name"`
	TickRate int                   `yaml:"tick_rate" validate:"omitempty,gt=0,lte=1000"`
	Ticks    int                   `yaml:"ticks" validate:"gt=0"`
	Actor    Pose                  `yaml:"actor"`
	Camera   *Pose                 `yaml:"camera"`
	Rotation config.RotationConfig `yaml:"rotation"`
	Entities []EntitySpec          `yaml:"entities" validate:"dive"`
	Steps    []Step                `yaml:"steps" validate:"dive"`
}

// Pose is a position plus heading. Positive pitch looks down.
type Pose struct {
	Position []float64 `yaml:"position" validate:"omitempty,len=3"`
	Yaw      float64   `yaml:"yaw"`
	Pitch    float64   `yaml:"pitch" validate:"gte=-90,lte=90"`
}

type EntitySpec struct {
	Name     string    `yaml:"name" validate:"required,ne=camera"`
	Position []float64 `yaml:"position" validate:"omitempty,len=3"`
	// Velocity moves the entity every tick, in units per second.
	Velocity []float64 `yaml:"velocity" validate:"omitempty,len=3"`
}

type Step struct {
	Tick    uint64    `yaml:"tick"`
	Action  string    `yaml:"action" validate:"required"`
	Vector  []float64 `yaml:"vector" validate:"omitempty,len=3"`
	Entity  string    `yaml:"entity"`
	Speed   float64   `yaml:"speed"`
	Yaw     float64   `yaml:"yaw"`
	Mode    string    `yaml:"mode"`
	Enabled bool      `yaml:"enabled"`
}

type actionSpec struct {
	needsVector bool
	needsEntity bool
	needsMode   bool
}

var actions = map[string]actionSpec{
	"look_direction":      {needsVector: true},
	"input_direction":     {needsVector: true},
	"look_position":       {needsVector: true},
	"clear_look_position": {},
	"look_target":         {needsEntity: true},
	"clear_look_target":   {},
	"turn_speed":          {},
	"auto_transition":     {},
	"enabled":             {},
	"mode":                {needsMode: true},
	"force_mode":          {needsMode: true},
	"default_mode":        {},
	"target_or_direction": {},
	"set_rotation_yaw":    {},
	"add_yaw":             {},
	"snap_yaw":            {},
	"move_entity":         {needsEntity: true, needsVector: true},
	"remove_entity":       {needsEntity: true},
}

var validate = config.NewValidator()

func LoadScenario(path string, base config.RotationConfig) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data, base)
}

// ParseScenario decodes and validates a scenario. The scenario's rotation
// section is decoded over base. Unknown keys are errors.
func ParseScenario(data []byte, base config.RotationConfig) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	sc := Scenario{Rotation: base}
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("scenario is empty")
		}
		return nil, fmt.Errorf("parse yaml scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks struct tags plus step references, listing every problem.
func (sc *Scenario) Validate() error {
	var problems []string
	if err := validate.Struct(sc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validation error: %w", err)
		}
		for _, e := range verrs {
			problems = append(problems, config.FieldError(e))
		}
	}

	names := map[string]bool{}
	for _, e := range sc.Entities {
		if names[e.Name] {
			problems = append(problems, fmt.Sprintf("entity %q is declared twice", e.Name))
		}
		names[e.Name] = true
	}
	if sc.Camera != nil {
		names[cameraName] = true
	}

	for i, st := range sc.Steps {
		spec, ok := actions[st.Action]
		if !ok {
			problems = append(problems, fmt.Sprintf("steps[%d]: unknown action %q", i, st.Action))
			continue
		}
		if spec.needsVector && len(st.Vector) != 3 {
			problems = append(problems, fmt.Sprintf("steps[%d]: %s needs a 3-component vector", i, st.Action))
		}
		if spec.needsEntity && !names[st.Entity] {
			problems = append(problems, fmt.Sprintf("steps[%d]: %s references unknown entity %q", i, st.Action, st.Entity))
		}
		if spec.needsMode {
			if _, err := rotation.ParseMode(st.Mode); err != nil {
				problems = append(problems, fmt.Sprintf("steps[%d]: %v", i, err))
			}
		}
		if sc.Ticks > 0 && st.Tick >= uint64(sc.Ticks) {
			problems = append(problems, fmt.Sprintf("steps[%d]: tick %d is past the last tick %d", i, st.Tick, sc.Ticks-1))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("scenario validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Run is a scenario wired to a world, an actor and a rotation system.
type Run struct {
	Scenario *Scenario
	World    *world.World
	Actor    *world.Entity
	System   *rotation.System
	Loop     *Loop

	entities   map[string]*world.Entity
	velocities map[*world.Entity]mgl64.Vec3
	steps      []Step
	next       int
}

// Result is the actor's pose after a run.
type Result struct {
	Ticks    uint64
	Mode     rotation.Mode
	Yaw      float64
	Rotation mgl64.Quat
	Last     rotation.TickResult
	Snapshot world.Snapshot
}

// Build spawns the scene and the rotation system. opts apply before the
// scenario's rotation section. tickRate is used when the scenario leaves
// its own unset.
func (sc *Scenario) Build(tickRate int, opts ...rotation.Option) (*Run, error) {
	w := world.New()
	actorName := sc.Name
	if actorName == "" {
		actorName = "actor"
	}
	actor := w.Spawn(actorName, vec(sc.Actor.Position), sc.Actor.quat())

	r := &Run{
		Scenario:   sc,
		World:      w,
		Actor:      actor,
		entities:   make(map[string]*world.Entity),
		velocities: make(map[*world.Entity]mgl64.Vec3),
	}
	for _, spec := range sc.Entities {
		e := w.Spawn(spec.Name, vec(spec.Position), mgl64.QuatIdent())
		r.entities[spec.Name] = e
		if v := vec(spec.Velocity); !orient.IsZero(v) {
			r.velocities[e] = v
		}
	}
	if sc.Camera != nil {
		cam := w.Spawn(cameraName, vec(sc.Camera.Position), sc.Camera.quat())
		r.entities[cameraName] = cam
		if err := w.SetCamera(cam.ID); err != nil {
			return nil, err
		}
	}

	all := []rotation.Option{
		rotation.WithCamera(w.Camera()),
		rotation.WithCustomSource(rotation.InputDirection),
	}
	all = append(all, opts...)
	all = append(all, rotation.WithConfig(sc.Rotation))
	sys, err := rotation.New(actor, all...)
	if err != nil {
		return nil, err
	}
	r.System = sys

	r.steps = append([]Step(nil), sc.Steps...)
	sort.SliceStable(r.steps, func(i, j int) bool { return r.steps[i].Tick < r.steps[j].Tick })

	if sc.TickRate > 0 {
		tickRate = sc.TickRate
	}
	r.Loop = NewLoop(sys, tickRate)
	r.Loop.OnTick(r.beforeTick)
	return r, nil
}

// Execute runs every scripted tick headless.
func (r *Run) Execute() (Result, error) {
	remaining := r.Scenario.Ticks - int(r.Loop.Ticks())
	if _, err := r.Loop.RunSteps(remaining); err != nil {
		return Result{}, err
	}
	return r.Result(), nil
}

func (r *Run) Result() Result {
	return Result{
		Ticks:    r.Loop.Ticks(),
		Mode:     r.System.Mode(),
		Yaw:      r.Actor.Yaw(),
		Rotation: r.Actor.Rotation(),
		Last:     r.Loop.Last(),
		Snapshot: r.World.Snapshot(),
	}
}

func (r *Run) beforeTick(tick uint64, dt float64) error {
	if tick >= uint64(r.Scenario.Ticks) {
		return ErrScenarioDone
	}
	for e, v := range r.velocities {
		e.Move(v.Mul(dt))
	}
	for r.next < len(r.steps) && r.steps[r.next].Tick <= tick {
		if err := r.Apply(r.steps[r.next]); err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		r.next++
	}
	return nil
}

// Apply dispatches one step to the rotation system or the world.
func (r *Run) Apply(st Step) error {
	sys := r.System
	switch st.Action {
	case "look_direction":
		sys.SetLookDirection(vec(st.Vector))
	case "input_direction":
		sys.SetInputDirection(vec(st.Vector))
	case "look_position":
		sys.SetLookPosition(vec(st.Vector))
	case "clear_look_position":
		sys.ClearLookPosition()
	case "look_target":
		e, err := r.entity(st.Entity)
		if err != nil {
			return err
		}
		sys.SetLookTarget(r.World.Ref(e.ID))
	case "clear_look_target":
		sys.ClearLookTarget()
	case "turn_speed":
		sys.SetTurnSpeed(st.Speed)
	case "auto_transition":
		sys.SetAutoTransition(st.Enabled)
	case "enabled":
		sys.SetEnabled(st.Enabled)
	case "mode", "force_mode":
		m, err := rotation.ParseMode(st.Mode)
		if err != nil {
			return err
		}
		if st.Action == "force_mode" {
			sys.ForceSetMode(m)
		} else {
			sys.TrySetMode(m)
		}
	case "default_mode":
		sys.ForceSetDefaultMode()
	case "target_or_direction":
		sys.LookAtTargetOrDirection()
	case "set_rotation_yaw":
		sys.SetRotationYaw(st.Yaw)
	case "add_yaw":
		sys.AddRotation(orient.YawRotation(st.Yaw))
	case "snap_yaw":
		sys.SnapRotation(orient.WithYaw(r.Actor.Rotation(), st.Yaw))
	case "move_entity":
		e, err := r.entity(st.Entity)
		if err != nil {
			return err
		}
		e.SetPosition(vec(st.Vector))
	case "remove_entity":
		e, err := r.entity(st.Entity)
		if err != nil {
			return err
		}
		r.World.Remove(e.ID)
		delete(r.velocities, e)
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}

func (r *Run) entity(name string) (*world.Entity, error) {
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("entity %q: %w", name, world.ErrNotFound)
	}
	return e, nil
}

func (p Pose) quat() mgl64.Quat {
	q := orient.YawRotation(p.Yaw)
	if p.Pitch != 0 {
		q = q.Mul(mgl64.QuatRotate(mgl64.DegToRad(p.Pitch), orient.Right)).Normalize()
	}
	return q
}

func vec(v []float64) mgl64.Vec3 {
	if len(v) != 3 {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{v[0], v[1], v[2]}
}
