package physics

import (
	"math"

	"github.com/san-kum/rigsim/internal/dynamo"
	"github.com/san-kum/rigsim/internal/rig"
)

const Gravity = 9.81

// State layout of the lumped quarter car. Positions come first so the
// symplectic integrators can split the vector in half.
const (
	IdxX = iota
	IdxWheelY
	IdxBodyY
	IdxVX
	IdxWheelVY
	IdxBodyVY
	QuarterCarDim
)

// Ground reports the surface height under x.
type Ground interface {
	HeightAt(x float64) (float64, bool)
}

// QuarterCar is the rig reduced to the degrees of freedom its constraints
// leave free: the common horizontal travel, the wheel centre height (the
// axle is locked to it) and the sprung body height. The control input is the
// actuator command.
type QuarterCar struct {
	WheelMass   float64
	AxleMass    float64
	BodyMass    float64
	WheelRadius float64
	Spring      float64
	Damping     float64
	RestLength  float64
	Contact     rig.Contact
	Ground      Ground

	dx dynamo.State
}

func NewQuarterCar(r *rig.Rig, ground Ground) *QuarterCar {
	sd := r.Actuator()
	return &QuarterCar{
		WheelMass:   r.Body(rig.Wheel).Mass,
		AxleMass:    r.Body(rig.Axle).Mass,
		BodyMass:    r.Body(rig.SprungBody).Mass,
		WheelRadius: r.WheelRadius(),
		Spring:      sd.Spring,
		Damping:     sd.Damping,
		RestLength:  sd.RestLength,
		Contact:     r.Contact(),
		Ground:      ground,
		dx:          make(dynamo.State, QuarterCarDim),
	}
}

func (q *QuarterCar) StateDim() int   { return QuarterCarDim }
func (q *QuarterCar) ControlDim() int { return 1 }

// Derive returns a buffer owned by q; callers copy it before the next call.
func (q *QuarterCar) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	command := 0.0
	if len(u) > 0 {
		command = u[0]
	}

	f := q.ActuatorForce(x, command)
	fc := q.ContactForce(x)
	unsprung := q.WheelMass + q.AxleMass

	dx := q.dx
	dx[IdxX] = x[IdxVX]
	dx[IdxWheelY] = x[IdxWheelVY]
	dx[IdxBodyY] = x[IdxBodyVY]
	dx[IdxVX] = 0
	dx[IdxWheelVY] = (fc-f)/unsprung - Gravity
	dx[IdxBodyVY] = f/q.BodyMass - Gravity
	return dx
}

// ActuatorForce is the spring-damper force pushing body and axle apart.
func (q *QuarterCar) ActuatorForce(x dynamo.State, command float64) float64 {
	l := x[IdxBodyY] - x[IdxWheelY]
	ldot := x[IdxBodyVY] - x[IdxWheelVY]
	return command - q.Spring*(l-q.RestLength) - q.Damping*ldot
}

// ContactForce is the one-sided normal force from the ground on the wheel.
func (q *QuarterCar) ContactForce(x dynamo.State) float64 {
	if q.Ground == nil {
		return 0
	}
	h, ok := q.Ground.HeightAt(x[IdxX])
	if !ok {
		return 0
	}
	p := h + q.WheelRadius - x[IdxWheelY]
	if p <= 0 {
		return 0
	}
	return math.Max(0, q.Contact.Stiffness*p-q.Contact.Damping*x[IdxWheelVY])
}

var (
	_ dynamo.System      = (*QuarterCar)(nil)
	_ dynamo.Hamiltonian = (*QuarterCar)(nil)
)

func (q *QuarterCar) Energy(x dynamo.State) float64 {
	unsprung := q.WheelMass + q.AxleMass
	kinetic := 0.5*unsprung*(x[IdxVX]*x[IdxVX]+x[IdxWheelVY]*x[IdxWheelVY]) +
		0.5*q.BodyMass*(x[IdxVX]*x[IdxVX]+x[IdxBodyVY]*x[IdxBodyVY])
	potential := Gravity * (unsprung*x[IdxWheelY] + q.BodyMass*x[IdxBodyY])
	stretch := x[IdxBodyY] - x[IdxWheelY] - q.RestLength
	return kinetic + potential + 0.5*q.Spring*stretch*stretch
}

// Equilibrium is the static rest state on flat ground at height h under a
// constant actuator command.
func (q *QuarterCar) Equilibrium(h, command float64) (wheelY, bodyY float64) {
	total := q.WheelMass + q.AxleMass + q.BodyMass
	wheelY = h + q.WheelRadius - total*Gravity/q.Contact.Stiffness
	bodyY = wheelY + q.RestLength + (command-q.BodyMass*Gravity)/q.Spring
	return wheelY, bodyY
}
