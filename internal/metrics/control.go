package metrics

import (
	"math"

	"github.com/san-kum/rigsim/internal/dynamo"
)

// ControlEffort is the time-weighted mean magnitude of the received control
// signal. Each sample is held for the interval since the previous one.
type ControlEffort struct {
	integral float64
	elapsed  float64
	lastT    float64
	started  bool
	peak     float64
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(u) == 0 {
		return
	}
	mag := math.Abs(u[0])
	c.peak = math.Max(c.peak, mag)
	if !c.started {
		c.started = true
		c.lastT = t
		return
	}
	if dt := t - c.lastT; dt > 0 {
		c.integral += mag * dt
		c.elapsed += dt
	}
	c.lastT = t
}

func (c *ControlEffort) Value() float64 {
	if c.elapsed == 0 {
		return c.peak
	}
	return c.integral / c.elapsed
}

// Peak is the largest control magnitude seen.
func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() { *c = ControlEffort{} }

// WheelContact is the fraction of steps in which the wheel signal stayed
// below a hop threshold, i.e. the wheel stayed on or near the ground.
type WheelContact struct {
	threshold float64
	grounded  int
	samples   int
}

func NewWheelContact(threshold float64) *WheelContact {
	return &WheelContact{threshold: threshold}
}

func (w *WheelContact) Name() string { return "wheel_contact" }

func (w *WheelContact) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) == 0 {
		return
	}
	w.samples++
	if x[0] <= w.threshold {
		w.grounded++
	}
}

func (w *WheelContact) Value() float64 {
	if w.samples == 0 {
		return 1
	}
	return float64(w.grounded) / float64(w.samples)
}

func (w *WheelContact) Reset() {
	w.grounded = 0
	w.samples = 0
}
