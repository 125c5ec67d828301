package sim

import (
	"github.com/san-kum/rigsim/internal/dynamo"
)

// Signal widths of the co-simulation exchange.
const (
	OutWidth = 2
	InWidth  = 1
)

// Stepper advances the rig by dt. Implementations write the new body state
// back into the rig before returning.
type Stepper interface {
	Step(dt float64) error
}

// Exchanger trades one outbound frame for one inbound frame.
type Exchanger interface {
	Exchange(out []float64, t float64, in []float64) (float64, error)
}

type Observer interface {
	OnStep(s *Sample)
}

type ObserverFunc func(s *Sample)

func (f ObserverFunc) OnStep(s *Sample) { f(s) }

// Closer is implemented by observers holding resources released at the end
// of a run.
type Closer interface {
	Close(res *Result) error
}

// Sample is the record of one completed iteration. Observers must copy it
// if they keep it past OnStep.
type Sample struct {
	Step     int
	Time     float64
	PeerTime float64
	Outbound [OutWidth]float64
	Inbound  [InWidth]float64
	Command  float64
	Wheel    dynamo.Vec3
	Axle     dynamo.Vec3
	Body     dynamo.Vec3
}

type Config struct {
	Dt       float64
	MaxSteps int
	Realtime bool
}

// Result summarises a run. Err is the failure that ended it, if any.
type Result struct {
	Steps    int
	SimTime  float64
	PeerTime float64
	Last     Sample
	Metrics  map[string]float64
	Err      error
}
