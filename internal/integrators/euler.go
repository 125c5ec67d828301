package integrators

import "github.com/san-kum/rigsim/internal/dynamo"

// SemiImplicitEuler updates velocities first and then advances positions
// with the new velocities. Same positions/velocities layout as Verlet.
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (e *SemiImplicitEuler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) {
	half := len(x) / 2
	dx := dyn.Derive(x, u, t)
	for i := 0; i < half; i++ {
		x[half+i] += dt * dx[half+i]
		x[i] += dt * x[half+i]
	}
}
