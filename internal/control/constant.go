package control

import "github.com/san-kum/rigsim/internal/dynamo"

// Constant replies with a fixed control signal.
type Constant struct {
	U dynamo.Control
}

func NewConstant(value float64) *Constant {
	return &Constant{U: dynamo.Control{value}}
}

// Set replaces the signal.
func (c *Constant) Set(value float64) {
	c.U[0] = value
}

func (c *Constant) Compute(state dynamo.State, t float64) dynamo.Control {
	return c.U
}
