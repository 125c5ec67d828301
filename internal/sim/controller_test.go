package sim

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/cosim"
	"github.com/san-kum/rigsim/internal/dynamo"
	"github.com/san-kum/rigsim/internal/rig"
)

const dt = 0.001

var errStepper = errors.New("stepper exploded")

// recordingStepper raises the wheel and body by rise per step and records
// the actuator command in force when each step starts.
type recordingStepper struct {
	rig      *rig.Rig
	rise     float64
	failAt   int
	commands []float64
}

func (s *recordingStepper) Step(float64) error {
	s.commands = append(s.commands, s.rig.Actuator().Command())
	if s.failAt > 0 && len(s.commands) == s.failAt {
		return errStepper
	}
	s.rig.Body(rig.Wheel).Position.Y += s.rise
	s.rig.Body(rig.Axle).Position.Y += s.rise
	s.rig.Body(rig.SprungBody).Position.Y += s.rise
	return nil
}

type scriptedPeer struct {
	reply  float64
	failAt int
	err    error
	outs   [][]float64
	times  []float64
}

func (p *scriptedPeer) Exchange(out []float64, t float64, in []float64) (float64, error) {
	p.outs = append(p.outs, append([]float64(nil), out...))
	p.times = append(p.times, t)
	if p.failAt > 0 && len(p.outs) == p.failAt {
		return 0, p.err
	}
	in[0] = p.reply
	return t - dt/2, nil
}

type countMetric struct {
	n    int
	last float64
}

func (m *countMetric) Name() string { return "count" }
func (m *countMetric) Observe(x dynamo.State, u dynamo.Control, t float64) {
	m.n++
	m.last = u[0]
}
func (m *countMetric) Value() float64 { return float64(m.n) }
func (m *countMetric) Reset()         { m.n = 0 }

type closingObserver struct {
	samples []Sample
	closed  *Result
}

func (o *closingObserver) OnStep(s *Sample) { o.samples = append(o.samples, *s) }
func (o *closingObserver) Close(res *Result) error {
	o.closed = res
	return nil
}

func buildRig(t *testing.T) *rig.Rig {
	t.Helper()
	r, err := rig.Build(config.GetPreset("quarter-car"))
	require.NoError(t, err)
	return r
}

func TestOneStepActuationLag(t *testing.T) {
	r := buildRig(t)
	stepper := &recordingStepper{rig: r}
	peer := &scriptedPeer{reply: 7}

	res, err := New(r, stepper, peer, Config{Dt: dt, MaxSteps: 5}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Steps)

	baseline := r.Actuator().Baseline
	require.Len(t, stepper.commands, 5)
	assert.Equal(t, baseline, stepper.commands[0])
	for _, c := range stepper.commands[1:] {
		assert.Equal(t, baseline+7, c)
	}
}

func TestIterationOrder(t *testing.T) {
	r := buildRig(t)
	stepper := &recordingStepper{rig: r, rise: 0.1}
	peer := &scriptedPeer{}

	c := New(r, stepper, peer, Config{Dt: dt})
	require.NoError(t, c.Step())
	require.NoError(t, c.Step())

	// outbound reflects the state after the step of the same iteration
	require.Len(t, peer.outs, 2)
	assert.InDelta(t, 1.1-0.3, peer.outs[0][0], 1e-12)
	assert.InDelta(t, 1.6-0.3-0.5, peer.outs[0][1], 1e-12)
	assert.InDelta(t, 1.2-0.3, peer.outs[1][0], 1e-12)
	assert.InDelta(t, 2*dt, peer.times[1], 1e-15)
	assert.InDelta(t, dt, peer.times[0], 1e-15)
	assert.Equal(t, 2, c.Steps())
	assert.InDelta(t, 2*dt, c.Time(), 1e-15)
}

func TestFatalOnDisconnect(t *testing.T) {
	r := buildRig(t)
	stepper := &recordingStepper{rig: r}
	peer := &scriptedPeer{
		failAt: 3,
		err:    &cosim.Error{Kind: cosim.ErrCommunication, Op: "receive", Err: io.EOF},
	}
	obs := &closingObserver{}

	c := New(r, stepper, peer, Config{Dt: dt, MaxSteps: 10})
	c.AddObserver(obs)
	res, err := c.Run(context.Background())

	require.Error(t, err)
	assert.True(t, eris.Is(err, cosim.ErrCommunication))
	assert.ErrorIs(t, err, io.EOF)

	var simErr *dynamo.SimulationError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, 3, simErr.Step)

	assert.Equal(t, 2, res.Steps)
	assert.Len(t, stepper.commands, 3)
	assert.Len(t, peer.outs, 3)
	assert.Len(t, obs.samples, 2)
	require.NotNil(t, obs.closed)
	assert.Equal(t, 2, obs.closed.Steps)
}

func TestStepperFailureStopsBeforeExchange(t *testing.T) {
	r := buildRig(t)
	stepper := &recordingStepper{rig: r, failAt: 2}
	peer := &scriptedPeer{}

	res, err := New(r, stepper, peer, Config{Dt: dt}).Run(context.Background())
	assert.ErrorIs(t, err, errStepper)
	assert.Equal(t, 1, res.Steps)
	assert.Len(t, peer.outs, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	r := buildRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(r, &recordingStepper{rig: r}, &scriptedPeer{}, Config{Dt: dt})
	c.AddObserver(ObserverFunc(func(s *Sample) {
		if s.Step == 5 {
			cancel()
		}
	}))

	res, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Steps)
	assert.InDelta(t, 5*dt, res.SimTime, 1e-12)
}

func TestOfflineRun(t *testing.T) {
	r := buildRig(t)
	stepper := &recordingStepper{rig: r}
	obs := &closingObserver{}
	metric := &countMetric{}

	c := New(r, stepper, nil, Config{Dt: dt, MaxSteps: 3})
	c.AddObserver(obs)
	c.AddMetric(metric)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, 3.0, res.Metrics["count"])
	for _, cmd := range stepper.commands {
		assert.Equal(t, r.Actuator().Baseline, cmd)
	}
	require.Len(t, obs.samples, 3)
	assert.Equal(t, 0.0, obs.samples[2].Inbound[0])
	assert.Equal(t, 3, obs.samples[2].Step)
	assert.Equal(t, res, obs.closed)
}

func TestSampleContents(t *testing.T) {
	r := buildRig(t)
	obs := &closingObserver{}

	c := New(r, &recordingStepper{rig: r, rise: 0.1}, &scriptedPeer{reply: 3}, Config{Dt: dt, MaxSteps: 1})
	c.AddObserver(obs)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	s := obs.samples[0]
	assert.Equal(t, 1, s.Step)
	assert.InDelta(t, dt/2, s.PeerTime, 1e-15)
	assert.Equal(t, 3.0, s.Inbound[0])
	assert.Equal(t, r.Actuator().Baseline+3, s.Command)
	assert.Equal(t, r.BodyPosition(rig.Wheel), s.Wheel)
	assert.Equal(t, s.Wheel, s.Axle)
	assert.Equal(t, r.BodyPosition(rig.SprungBody), s.Body)
	assert.Equal(t, s, res.Last)
}

func TestRunValidatesConfig(t *testing.T) {
	r := buildRig(t)
	_, err := New(r, &recordingStepper{rig: r}, nil, Config{}).Run(context.Background())
	assert.True(t, eris.Is(err, dynamo.ErrParameterBounds))

	_, err = New(r, &recordingStepper{rig: r}, nil, Config{Dt: dt, MaxSteps: -1}).Run(context.Background())
	assert.True(t, eris.Is(err, dynamo.ErrParameterBounds))
}

func TestPacer(t *testing.T) {
	clock := time.Unix(0, 0)
	var slept []time.Duration
	p := &Pacer{
		now: func() time.Time { return clock },
		sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}
	p.Start()

	require.NoError(t, p.Wait(context.Background(), 0.010))
	clock = clock.Add(50 * time.Millisecond)
	require.NoError(t, p.Wait(context.Background(), 0.020))

	assert.Equal(t, []time.Duration{10 * time.Millisecond}, slept)
}

func TestPacerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPacer()
	p.Start()
	assert.ErrorIs(t, p.Wait(ctx, 10), context.Canceled)
}
