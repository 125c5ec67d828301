package control

import (
	"math"

	"github.com/san-kum/rigsim/internal/dynamo"
)

// PID drives the observed signal x[Index] toward Target. The derivative acts
// on the measurement so that retargeting does not kick the output. Limit,
// when positive, clamps the output and holds the integral while saturated.
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64
	Index  int
	Limit  float64

	integral float64
	prevY    float64
	prevT    float64
	primed   bool
	out      dynamo.Control
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd, Target: target, Index: 1, out: make(dynamo.Control, 1)}
}

func (p *PID) Compute(x dynamo.State, t float64) dynamo.Control {
	if p.Index < 0 || p.Index >= len(x) {
		p.out[0] = 0
		return p.out
	}
	y := x[p.Index]
	err := p.Target - y

	dt := t - p.prevT
	if !p.primed || dt <= 0 {
		if !p.primed {
			p.prevY, p.prevT, p.primed = y, t, true
		}
		p.out[0] = p.clamp(p.Kp * err)
		return p.out
	}

	integral := p.integral + err*dt
	rate := -(y - p.prevY) / dt
	u := p.Kp*err + p.Ki*integral + p.Kd*rate
	if c := p.clamp(u); c != u {
		u = c
	} else {
		p.integral = integral
	}

	p.prevY, p.prevT = y, t
	p.out[0] = u
	return p.out
}

func (p *PID) clamp(u float64) float64 {
	if p.Limit <= 0 {
		return u
	}
	return math.Max(-p.Limit, math.Min(p.Limit, u))
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.primed = false
}

func (p *PID) Params() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
		"Limit":  p.Limit,
	}
}

func (p *PID) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	case "Limit":
		p.Limit = value
	}
}
