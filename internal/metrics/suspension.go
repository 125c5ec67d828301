package metrics

import (
	"math"

	"github.com/san-kum/rigsim/internal/dynamo"
)

// SuspensionTravel is the peak deviation of the suspension from its rest
// length, body signal minus wheel signal.
type SuspensionTravel struct {
	peak float64
}

func NewSuspensionTravel() *SuspensionTravel { return &SuspensionTravel{} }

func (s *SuspensionTravel) Name() string { return "suspension_travel" }

func (s *SuspensionTravel) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < 2 {
		return
	}
	s.peak = math.Max(s.peak, math.Abs(x[1]-x[0]))
}

func (s *SuspensionTravel) Value() float64 { return s.peak }
func (s *SuspensionTravel) Reset()         { s.peak = 0 }

// BodyRMS is the root mean square of the sprung body signal.
type BodyRMS struct {
	sumSq   float64
	samples int
}

func NewBodyRMS() *BodyRMS { return &BodyRMS{} }

func (b *BodyRMS) Name() string { return "body_rms" }

func (b *BodyRMS) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < 2 {
		return
	}
	b.sumSq += x[1] * x[1]
	b.samples++
}

func (b *BodyRMS) Value() float64 {
	if b.samples == 0 {
		return 0
	}
	return math.Sqrt(b.sumSq / float64(b.samples))
}

func (b *BodyRMS) Reset() {
	b.sumSq = 0
	b.samples = 0
}

// Default is the metric set attached to every run.
func Default() []dynamo.Metric {
	return []dynamo.Metric{
		NewControlEffort(),
		NewWheelContact(0.1),
		NewSuspensionTravel(),
		NewBodyRMS(),
	}
}
