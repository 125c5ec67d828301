package sim

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/san-kum/rigsim/internal/dynamo"
	"github.com/san-kum/rigsim/internal/rig"
)

const progressEvery = 1000

// StepController runs the fixed-step loop: advance physics, publish the
// outbound signals, block on the peer, apply its reply for the next step.
type StepController struct {
	rig       *rig.Rig
	stepper   Stepper
	exchanger Exchanger
	cfg       Config
	log       zerolog.Logger
	pacer     *Pacer

	metrics   []dynamo.Metric
	observers []Observer

	t        float64
	step     int
	peerTime float64
	out      []float64
	in       []float64
	sample   Sample
}

// New builds a controller. A nil exchanger runs offline: the inbound signal
// stays zero and no peer is contacted.
func New(r *rig.Rig, stepper Stepper, exchanger Exchanger, cfg Config) *StepController {
	c := &StepController{
		rig:       r,
		stepper:   stepper,
		exchanger: exchanger,
		cfg:       cfg,
		log:       zerolog.Nop(),
		out:       make([]float64, OutWidth),
		in:        make([]float64, InWidth),
	}
	if cfg.Realtime {
		c.pacer = NewPacer()
	}
	return c
}

func (c *StepController) SetLogger(log zerolog.Logger) { c.log = log }
func (c *StepController) SetPacer(p *Pacer)            { c.pacer = p }
func (c *StepController) AddMetric(m dynamo.Metric)    { c.metrics = append(c.metrics, m) }
func (c *StepController) AddObserver(o Observer)       { c.observers = append(c.observers, o) }

func (c *StepController) Time() float64 { return c.t }
func (c *StepController) Steps() int    { return c.step }

// Outbound projects the rig onto the signals sent to the peer: wheel height
// above its rest contact and sprung body height above its nominal rest.
func Outbound(r *rig.Rig, dst []float64) {
	radius := r.WheelRadius()
	dst[0] = r.BodyPosition(rig.Wheel).Y - radius
	dst[1] = r.BodyPosition(rig.SprungBody).Y - radius - r.SuspensionBase()
}

// Step runs exactly one iteration.
func (c *StepController) Step() error {
	if err := c.stepper.Step(c.cfg.Dt); err != nil {
		return c.fail(err)
	}
	c.t += c.cfg.Dt

	Outbound(c.rig, c.out)

	if c.exchanger != nil {
		peerTime, err := c.exchanger.Exchange(c.out, c.t, c.in)
		if err != nil {
			return c.fail(err)
		}
		c.peerTime = peerTime
	}

	c.rig.ApplyControlForce(c.in[0])
	c.step++

	c.publish()
	return nil
}

func (c *StepController) fail(err error) error {
	var simErr *dynamo.SimulationError
	if errors.As(err, &simErr) {
		return err
	}
	return &dynamo.SimulationError{Step: c.step + 1, Time: c.t, Wrapped: err}
}

func (c *StepController) publish() {
	s := &c.sample
	s.Step = c.step
	s.Time = c.t
	s.PeerTime = c.peerTime
	copy(s.Outbound[:], c.out)
	copy(s.Inbound[:], c.in)
	s.Command = c.rig.Actuator().Command()
	s.Wheel = c.rig.BodyPosition(rig.Wheel)
	s.Axle = c.rig.BodyPosition(rig.Axle)
	s.Body = c.rig.BodyPosition(rig.SprungBody)

	for _, m := range c.metrics {
		m.Observe(c.out, c.in, c.t)
	}
	for _, o := range c.observers {
		o.OnStep(s)
	}
}

// Run loops until ctx is done, MaxSteps iterations have run, or a step
// fails. Cancellation is a normal stop and returns no error.
func (c *StepController) Run(ctx context.Context) (*Result, error) {
	if c.cfg.Dt <= 0 {
		return nil, eris.Wrapf(dynamo.ErrParameterBounds, "dt must be positive, got %g", c.cfg.Dt)
	}
	if c.cfg.MaxSteps < 0 {
		return nil, eris.Wrapf(dynamo.ErrParameterBounds, "max steps must not be negative, got %d", c.cfg.MaxSteps)
	}

	for _, m := range c.metrics {
		m.Reset()
	}
	if c.pacer != nil {
		c.pacer.Start()
	}

	c.log.Info().
		Float64("dt", c.cfg.Dt).
		Int("max_steps", c.cfg.MaxSteps).
		Bool("offline", c.exchanger == nil).
		Bool("realtime", c.pacer != nil).
		Msg("simulation started")

	var runErr error
loop:
	for c.cfg.MaxSteps == 0 || c.step < c.cfg.MaxSteps {
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		if err := c.Step(); err != nil {
			runErr = err
			break
		}
		if c.step%progressEvery == 0 {
			c.log.Debug().
				Int("step", c.step).
				Float64("t", c.t).
				Float64("wheel", c.out[0]).
				Float64("body", c.out[1]).
				Float64("control", c.in[0]).
				Msg("progress")
		}
		if c.pacer != nil {
			if err := c.pacer.Wait(ctx, c.t); err != nil {
				break
			}
		}
	}

	res := c.result()
	res.Err = runErr
	for _, o := range c.observers {
		if cl, ok := o.(Closer); ok {
			if err := cl.Close(res); err != nil && runErr == nil {
				runErr = err
				res.Err = err
			}
		}
	}

	if runErr != nil {
		c.log.Error().Err(runErr).Int("step", c.step).Float64("t", c.t).Msg("simulation failed")
		return res, runErr
	}
	c.log.Info().Int("steps", c.step).Float64("t", c.t).Msg("simulation finished")
	return res, nil
}

func (c *StepController) result() *Result {
	res := &Result{
		Steps:    c.step,
		SimTime:  c.t,
		PeerTime: c.peerTime,
		Last:     c.sample,
		Metrics:  make(map[string]float64, len(c.metrics)),
	}
	for _, m := range c.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res
}
