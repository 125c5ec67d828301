// Package rig assembles the quarter-vehicle model: floor, wheel, axle and
// sprung body, three kinematic constraints and the suspension spring-damper.
package rig

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"

	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/dynamo"
)

// ErrStarted is returned by initialisers that are only legal before the
// first integration step.
var ErrStarted = eris.New("rig: integration already started")

// Defaults used when a section is absent from the document.
const (
	DefaultBodySize       = 1.0
	DefaultBodyDensity    = 100.0
	DefaultWheelRadius    = 1.0
	DefaultWheelHeight    = 1.0
	DefaultWheelDensity   = 1000.0
	DefaultFloorSize      = 10.0
	FloorThickness        = 0.1
	DefaultBase           = 3.0
	DefaultSpring         = 20000.0
	DefaultDamping        = 2000.0
	DefaultContactStiff   = 2e5
	DefaultContactDamping = 5e3
	AxleMass              = 1.0
	BaselineGravity       = 9.8
)

var DefaultCamera = dynamo.V3(0, 1.5, -5)

type Obstacle struct {
	Center dynamo.Vec3
	Size   dynamo.Vec3
}

// Contact are the wheel-ground penalty coefficients.
type Contact struct {
	Stiffness float64
	Damping   float64
}

type Rig struct {
	bodies      [numBodies]*Body
	constraints []Constraint
	actuator    SpringDamper
	wheelRadius float64
	camera      dynamo.Vec3
	contact     Contact
	obstacles   []Obstacle
	started     bool
}

type builder struct {
	doc *config.Document
	rig *Rig
}

// Build assembles a rig from a validated document. Sections are built in
// dependency order: floor, wheel with an axle placeholder, sprung body, axle,
// constraints, actuator.
func Build(doc *config.Document) (*Rig, error) {
	if doc == nil {
		return nil, eris.Wrap(config.ErrConfig, "nil document")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	b := &builder{doc: doc, rig: &Rig{}}
	for _, step := range []func() error{
		b.floor,
		b.wheel,
		b.body,
		b.axle,
		b.constraints,
		b.actuator,
		b.extras,
	} {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return b.rig, nil
}

func (b *builder) origin() dynamo.Vec3 {
	p := b.doc.Position
	return dynamo.V3(*p.X, *p.Y, *p.Z)
}

func (b *builder) floor() error {
	x, z := DefaultFloorSize, DefaultFloorSize
	if f := b.doc.Floor; f != nil {
		x, z = *f.X, *f.Z
	}
	o := b.origin()
	floor := newBody(Floor, dynamo.V3(o.X, -FloorThickness/2, o.Z), BoxShape(x, FloorThickness, z), 0)
	floor.Fixed = true
	b.rig.bodies[Floor] = floor
	return nil
}

func (b *builder) wheel() error {
	r, h, density, v := DefaultWheelRadius, DefaultWheelHeight, DefaultWheelDensity, 0.0
	if w := b.doc.Wheel; w != nil {
		r, h, density = *w.Radius, *w.Height, *w.Density
		v = config.Get(w.Velocity, 0)
	}
	wheel := newBody(Wheel, b.origin(), CylinderShape(r, h), density)
	wheel.Velocity = dynamo.V3(v, 0, 0)
	b.rig.bodies[Wheel] = wheel
	b.rig.wheelRadius = r

	// placeholder until the body exists; registered in axle()
	b.rig.bodies[Axle] = &Body{ID: Axle, Position: wheel.Position, Velocity: wheel.Velocity, Mass: AxleMass}
	return nil
}

func (b *builder) base() float64 {
	if sd := b.doc.SD; sd != nil {
		return *sd.Base
	}
	return DefaultBase
}

func (b *builder) body() error {
	x, y, z, density := DefaultBodySize, DefaultBodySize, DefaultBodySize, DefaultBodyDensity
	if s := b.doc.Body; s != nil {
		x, y, z, density = *s.XSize, *s.YSize, *s.ZSize, *s.Density
	}
	wheel := b.rig.bodies[Wheel]
	body := newBody(SprungBody, wheel.Position.Add(dynamo.V3(0, b.base(), 0)), BoxShape(x, y, z), density)
	body.Velocity = wheel.Velocity
	b.rig.bodies[SprungBody] = body
	return nil
}

func (b *builder) axle() error {
	axle := b.rig.bodies[Axle]
	if axle == nil || axle.Position != b.rig.bodies[Wheel].Position {
		return eris.New("rig: axle placeholder out of place")
	}
	return nil
}

func (b *builder) constraints() error {
	r := b.rig
	wheel, axle, body, floor := r.bodies[Wheel], r.bodies[Axle], r.bodies[SprungBody], r.bodies[Floor]
	r.constraints = []Constraint{
		newConstraint(WheelAxle, wheel, axle, wheel.Position, AllDOF&^RZ),
		newConstraint(BodyOrientation, body, floor, body.Position, Rotations),
		newConstraint(BodyTranslation, body, axle, axle.Position, AllDOF&^TY),
	}
	return nil
}

func (b *builder) actuator() error {
	sd := SpringDamper{
		Spring:     DefaultSpring,
		Damping:    DefaultDamping,
		RestLength: b.base(),
		Baseline:   BaselineGravity * b.rig.bodies[SprungBody].Mass,
	}
	if s := b.doc.SD; s != nil {
		sd.Spring, sd.Damping = *s.Spring, *s.Damping
	}
	sd.ApplyControl(0)
	b.rig.actuator = sd
	return nil
}

func (b *builder) extras() error {
	r := b.rig
	r.camera = DefaultCamera
	if c := b.doc.Camera; c != nil {
		r.camera = dynamo.V3(*c.X, *c.Y, *c.Z)
	}
	r.contact = Contact{Stiffness: DefaultContactStiff, Damping: DefaultContactDamping}
	if c := b.doc.Contact; c != nil {
		r.contact = Contact{Stiffness: *c.Stiffness, Damping: *c.Damping}
	}
	for _, o := range b.doc.Obstacles {
		r.obstacles = append(r.obstacles, Obstacle{
			Center: dynamo.V3(*o.X, *o.Y, *o.Z),
			Size:   dynamo.V3(*o.XSize, *o.YSize, *o.ZSize),
		})
	}
	return nil
}

func (r *Rig) Body(id BodyID) *Body {
	if id < 0 || id >= numBodies {
		return nil
	}
	return r.bodies[id]
}

func (r *Rig) BodyPosition(id BodyID) dynamo.Vec3 {
	if b := r.Body(id); b != nil {
		return b.Position
	}
	return dynamo.Vec3{}
}

func (r *Rig) SetInitialWheelVelocity(v float64) error {
	if r.started {
		return ErrStarted
	}
	vel := dynamo.V3(v, 0, 0)
	for _, id := range []BodyID{Wheel, Axle, SprungBody} {
		r.bodies[id].Velocity = vel
	}
	return nil
}

// ApplyControlForce sets the actuator command to baseline + signal.
func (r *Rig) ApplyControlForce(signal float64) {
	r.actuator.ApplyControl(signal)
}

// Start marks the rig as integrating. Called by the physics engine before
// its first step.
func (r *Rig) Start()        { r.started = true }
func (r *Rig) Started() bool { return r.started }

func (r *Rig) Actuator() *SpringDamper   { return &r.actuator }
func (r *Rig) Constraints() []Constraint { return r.constraints }
func (r *Rig) WheelRadius() float64      { return r.wheelRadius }
func (r *Rig) SuspensionBase() float64   { return r.actuator.RestLength }
func (r *Rig) Camera() dynamo.Vec3       { return r.camera }
func (r *Rig) Contact() Contact          { return r.contact }
func (r *Rig) Obstacles() []Obstacle     { return r.obstacles }

func (r *Rig) SuspensionLength() float64 {
	return r.bodies[SprungBody].Position.Y - r.bodies[Axle].Position.Y
}

// Describe writes a human readable summary of the assembled rig.
func (r *Rig) Describe(w io.Writer) {
	for _, id := range BodyIDs() {
		b := r.bodies[id]
		fixed := ""
		if b.Fixed {
			fixed = " fixed"
		}
		fmt.Fprintf(w, "%-6s %-26s pos=%s mass=%.3f%s\n", id, b.Shape, b.Position, b.Mass, fixed)
	}
	for _, c := range r.constraints {
		fmt.Fprintf(w, "%-16s %s-%s locked=%s\n", c.Kind, c.A, c.B, c.Locked)
	}
	sd := r.actuator
	fmt.Fprintf(w, "spring-damper    k=%g c=%g l0=%g baseline=%.3f\n", sd.Spring, sd.Damping, sd.RestLength, sd.Baseline)
	fmt.Fprintf(w, "contact          k=%g c=%g obstacles=%d\n", r.contact.Stiffness, r.contact.Damping, len(r.obstacles))
}
