package integrators

import "github.com/san-kum/rigsim/internal/dynamo"

// Verlet is velocity Verlet. It expects the state laid out as positions in
// the first half and the matching velocities in the second half.
type Verlet struct {
	acc     dynamo.State
	scratch dynamo.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) ensureScratch(n int) {
	if len(v.scratch) != n {
		v.scratch = make(dynamo.State, n)
		v.acc = make(dynamo.State, n/2)
	}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) {
	n := len(x)
	half := n / 2
	v.ensureScratch(n)

	dx := dyn.Derive(x, u, t)
	for i := 0; i < half; i++ {
		v.acc[i] = dx[half+i]
	}

	dt2 := dt * dt
	for i := 0; i < half; i++ {
		v.scratch[i] = x[i] + x[half+i]*dt + 0.5*v.acc[i]*dt2
		v.scratch[half+i] = x[half+i] + v.acc[i]*dt
	}

	dxNew := dyn.Derive(v.scratch, u, t+dt)

	halfDt := 0.5 * dt
	for i := 0; i < half; i++ {
		x[half+i] += (v.acc[i] + dxNew[half+i]) * halfDt
		x[i] = v.scratch[i]
	}
}
