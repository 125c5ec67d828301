package integrators

import "github.com/san-kum/rigsim/internal/dynamo"

// Classic fourth-order tableau: stage time offsets and output weights.
var (
	rk4Nodes   = [4]float64{0, 0.5, 0.5, 1}
	rk4Weights = [4]float64{1, 2, 2, 1}
)

// RK4 is the classic fourth-order Runge-Kutta scheme.
type RK4 struct {
	k     [4]dynamo.State
	stage dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.stage) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) {
	n := len(x)
	r.resize(n)

	for s := range r.k {
		if s == 0 {
			copy(r.stage, x)
		} else {
			h := dt * rk4Nodes[s]
			for i := 0; i < n; i++ {
				r.stage[i] = x[i] + h*r.k[s-1][i]
			}
		}
		// Derive may return a buffer it reuses.
		copy(r.k[s], dyn.Derive(r.stage, u, t+dt*rk4Nodes[s]))
	}

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		var sum float64
		for s, w := range rk4Weights {
			sum += w * r.k[s][i]
		}
		x[i] += dt6 * sum
	}
}
