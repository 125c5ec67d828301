package control

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/rigsim/internal/dynamo"
)

func TestNone(t *testing.T) {
	assert.Equal(t, dynamo.Control{0}, NewNone(1).Compute(dynamo.State{1, 2}, 0))
}

func TestConstant(t *testing.T) {
	c := NewConstant(4)
	assert.Equal(t, dynamo.Control{4}, c.Compute(nil, 0))
	c.Set(-1)
	assert.Equal(t, dynamo.Control{-1}, c.Compute(nil, 1))
}

func TestPID(t *testing.T) {
	pid := NewPID(10, 1, 2, 0.5)

	// first call is proportional only
	u := pid.Compute(dynamo.State{0, 0.4}, 0)
	assert.InDelta(t, 1.0, u[0], 1e-12)

	// err 0.2, integral 0.2*0.1, rate -(0.3-0.4)/0.1
	u = pid.Compute(dynamo.State{0, 0.3}, 0.1)
	assert.InDelta(t, 10*0.2+1*0.02+2*1.0, u[0], 1e-9)

	// repeated timestamp falls back to proportional
	u = pid.Compute(dynamo.State{0, 0.3}, 0.1)
	assert.InDelta(t, 2.0, u[0], 1e-9)

	pid.Reset()
	u = pid.Compute(dynamo.State{0, 0.5}, 1)
	assert.Equal(t, 0.0, u[0])
}

func TestPIDIndexAndLimit(t *testing.T) {
	pid := NewPID(100, 10, 0, 1)
	pid.Index = 0
	pid.Limit = 5

	u := pid.Compute(dynamo.State{0, 99}, 0)
	assert.Equal(t, 5.0, u[0])

	for i := 1; i <= 100; i++ {
		pid.Compute(dynamo.State{0, 99}, float64(i)*0.01)
	}
	assert.Equal(t, 0.0, pid.integral, "integral must not wind up while saturated")

	pid.Index = 7
	assert.Equal(t, dynamo.Control{0}, pid.Compute(dynamo.State{0, 0}, 2))
}

func TestPIDTunable(t *testing.T) {
	var tun Tunable = NewPID(1, 2, 3, 4)
	tun.SetParam("Kd", 9)
	tun.SetParam("Limit", 50)
	tun.SetParam("Unknown", 1)

	params := tun.Params()
	assert.Equal(t, 9.0, params["Kd"])
	assert.Equal(t, 50.0, params["Limit"])
	assert.Len(t, params, 5)
}

func TestFeedback(t *testing.T) {
	f := NewFeedback([][]float64{{1, 2}}, dynamo.State{0, 0.5})
	u := f.Compute(dynamo.State{0.1, 0.7}, 0)
	assert.InDelta(t, -(0.1 + 2*0.2), u[0], 1e-12)

	s := NewSuspensionFeedback(0.5)
	assert.Less(t, s.Compute(dynamo.State{0, 0.6}, 0)[0], 0.0)
	assert.Greater(t, s.Compute(dynamo.State{0, 0.4}, 0)[0], 0.0)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"constant", "feedback", "none", "pid"}, Names())

	c, err := New("constant", Params{Value: 3})
	require.NoError(t, err)
	assert.Equal(t, dynamo.Control{3}, c.Compute(nil, 0))

	c, err = New("pid", Params{Kp: 1, Target: 2, Index: 0, Limit: 0.5})
	require.NoError(t, err)
	assert.Equal(t, dynamo.Control{0.5}, c.Compute(dynamo.State{0, 0}, 0))

	_, err = New("bang-bang", Params{})
	assert.True(t, eris.Is(err, ErrUnknown))
}

func TestHandler(t *testing.T) {
	h := Handler(NewConstant(2.5))
	out := []float64{9}
	require.NoError(t, h.Handle(0.1, []float64{0, 0}, out))
	assert.Equal(t, []float64{2.5}, out)

	out = []float64{9, 9}
	require.NoError(t, Handler(NewNone(1)).Handle(0, nil, out))
	assert.Equal(t, []float64{0, 0}, out)
}
