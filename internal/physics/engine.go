package physics

import (
	"github.com/rotisserie/eris"

	"github.com/san-kum/rigsim/internal/dynamo"
	"github.com/san-kum/rigsim/internal/rig"
)

// Engine advances a rig by fixed steps. It owns the generalised state and
// writes the resulting body positions and velocities back after every step.
type Engine struct {
	rig     *rig.Rig
	system  *QuarterCar
	integ   dynamo.Integrator
	terrain *Terrain

	state   dynamo.State
	control dynamo.Control
	time    float64
	steps   int
	synced  bool
	applied float64
}

func NewEngine(r *rig.Rig, integ dynamo.Integrator) *Engine {
	terrain := NewTerrain(r)
	return &Engine{
		rig:     r,
		system:  NewQuarterCar(r, terrain),
		integ:   integ,
		terrain: terrain,
		state:   make(dynamo.State, QuarterCarDim),
		control: make(dynamo.Control, 1),
	}
}

// Step integrates one interval of length dt. The actuator command is read
// once and held for the whole interval.
func (e *Engine) Step(dt float64) error {
	if dt <= 0 {
		return eris.Wrapf(dynamo.ErrParameterBounds, "dt must be positive, got %g", dt)
	}
	if !e.synced {
		e.sync()
	}

	e.applied = e.rig.Actuator().Command()
	e.control[0] = e.applied
	e.integ.Step(e.system, e.state, e.control, e.time, dt)
	e.time += dt
	e.steps++

	if !e.state.IsValid() {
		return &dynamo.SimulationError{
			Step:    e.steps,
			Time:    e.time,
			State:   e.state.Clone(),
			Wrapped: dynamo.ErrUnstable,
		}
	}
	e.writeBack()
	return nil
}

func (e *Engine) sync() {
	wheel := e.rig.Body(rig.Wheel)
	body := e.rig.Body(rig.SprungBody)
	e.state[IdxX] = wheel.Position.X
	e.state[IdxWheelY] = wheel.Position.Y
	e.state[IdxBodyY] = body.Position.Y
	e.state[IdxVX] = wheel.Velocity.X
	e.state[IdxWheelVY] = wheel.Velocity.Y
	e.state[IdxBodyVY] = body.Velocity.Y
	e.rig.Start()
	e.synced = true
}

func (e *Engine) writeBack() {
	x, vx := e.state[IdxX], e.state[IdxVX]
	wheel := e.rig.Body(rig.Wheel)
	wheel.Position = dynamo.V3(x, e.state[IdxWheelY], wheel.Position.Z)
	wheel.Velocity = dynamo.V3(vx, e.state[IdxWheelVY], 0)

	axle := e.rig.Body(rig.Axle)
	axle.Position = wheel.Position
	axle.Velocity = wheel.Velocity

	body := e.rig.Body(rig.SprungBody)
	body.Position = dynamo.V3(x, e.state[IdxBodyY], wheel.Position.Z)
	body.Velocity = dynamo.V3(vx, e.state[IdxBodyVY], 0)
}

// AppliedCommand is the actuator command used by the most recent step.
func (e *Engine) AppliedCommand() float64 { return e.applied }

func (e *Engine) State() dynamo.State { return e.state }
func (e *Engine) Time() float64       { return e.time }
func (e *Engine) Steps() int          { return e.steps }
func (e *Engine) System() *QuarterCar { return e.system }
func (e *Engine) Terrain() *Terrain   { return e.terrain }
func (e *Engine) Energy() float64     { return e.system.Energy(e.state) }
