package control

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/san-kum/rigsim/internal/cosim"
	"github.com/san-kum/rigsim/internal/dynamo"
)

var ErrUnknown = eris.New("control: unknown controller")

// Tunable controllers expose parameters for adjustment while running.
type Tunable interface {
	Params() map[string]float64
	SetParam(name string, value float64)
}

// Params configure a controller built by name. Unused fields are ignored.
type Params struct {
	Value  float64
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64
	Index  int
	Limit  float64
}

var registry = map[string]func(p Params) dynamo.Controller{
	"none":     func(Params) dynamo.Controller { return NewNone(1) },
	"constant": func(p Params) dynamo.Controller { return NewConstant(p.Value) },
	"pid": func(p Params) dynamo.Controller {
		pid := NewPID(p.Kp, p.Ki, p.Kd, p.Target)
		pid.Index = p.Index
		pid.Limit = p.Limit
		return pid
	},
	"feedback": func(p Params) dynamo.Controller { return NewSuspensionFeedback(p.Target) },
}

func New(name string, p Params) (dynamo.Controller, error) {
	build, ok := registry[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknown, "%q (have %v)", name, Names())
	}
	return build(p), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler adapts a controller to the peer side of the channel. Signals the
// controller does not produce are sent as zero.
func Handler(c dynamo.Controller) cosim.Handler {
	return cosim.HandlerFunc(func(t float64, in, out []float64) error {
		u := c.Compute(in, t)
		for i := range out {
			out[i] = 0
			if i < len(u) {
				out[i] = u[i]
			}
		}
		return nil
	})
}
