package control

import "github.com/san-kum/rigsim/internal/dynamo"

// Feedback is a static linear state feedback over the harness signals.
type Feedback struct {
	K      [][]float64
	Target dynamo.State
}

func NewFeedback(k [][]float64, target dynamo.State) *Feedback {
	return &Feedback{K: k, Target: target}
}

func (f *Feedback) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, len(f.K))
	for i := range u {
		for j := range x {
			target := 0.0
			if j < len(f.Target) {
				target = f.Target[j]
			}
			if j < len(f.K[i]) {
				u[i] -= f.K[i][j] * (x[j] - target)
			}
		}
	}
	return u
}

// suspensionGains hold the body near its nominal height and lean lightly on
// wheel travel.
var suspensionGains = [][]float64{{-200.0, 2000.0}}

func NewSuspensionFeedback(bodyTarget float64) *Feedback {
	return NewFeedback(suspensionGains, dynamo.State{0, bodyTarget})
}
