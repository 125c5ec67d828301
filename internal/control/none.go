package control

import "github.com/san-kum/rigsim/internal/dynamo"

// None answers zero, leaving the actuator on its baseline command.
type None struct {
	out dynamo.Control
}

func NewNone(dim int) *None {
	if dim < 1 {
		dim = 1
	}
	return &None{out: make(dynamo.Control, dim)}
}

// Compute returns a shared zero vector; callers must not modify it.
func (n *None) Compute(x dynamo.State, t float64) dynamo.Control {
	clear(n.out)
	return n.out
}
