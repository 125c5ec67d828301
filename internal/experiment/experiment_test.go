package experiment

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/control"
	"github.com/san-kum/rigsim/internal/cosim"
	"github.com/san-kum/rigsim/internal/integrators"
	"github.com/san-kum/rigsim/internal/storage"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	st := config.DefaultSettings()
	st.Host = "127.0.0.1"
	st.Port = 0
	st.DataDir = t.TempDir()
	return Config{Name: "quarter-car", Settings: st, Log: zerolog.Nop()}
}

func TestNewRejectsBadInput(t *testing.T) {
	cfg := testConfig(t)

	_, err := New(&config.Document{}, cfg)
	assert.True(t, eris.Is(err, config.ErrConfig))

	cfg.Settings.Integrator = "leapfrog"
	_, err = New(config.GetPreset("quarter-car"), cfg)
	assert.True(t, eris.Is(err, integrators.ErrUnknown))

	cfg = testConfig(t)
	cfg.Settings.Dt = 0
	_, err = New(config.GetPreset("quarter-car"), cfg)
	assert.True(t, eris.Is(err, config.ErrConfig))
}

func TestOfflineRunRecords(t *testing.T) {
	cfg := testConfig(t)
	cfg.Offline = true
	cfg.Record = true
	cfg.Steps = 500

	e, err := New(config.GetPreset("quarter-car"), cfg)
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500, res.Steps)
	assert.InDelta(t, 0.5, res.SimTime, 1e-9)
	assert.Contains(t, res.Metrics, "suspension_travel")
	assert.Nil(t, e.Session())

	require.NotNil(t, e.Recorder())
	store := storage.New(cfg.Settings.DataDir)
	meta, err := store.Load(e.Recorder().ID())
	require.NoError(t, err)
	assert.Equal(t, "quarter-car", meta.Rig)
	assert.True(t, meta.Offline)
	assert.Equal(t, 500, meta.Steps)
	assert.Equal(t, "rk4", meta.Integrator)

	rows, err := store.LoadTrace(meta.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 500)
}

func TestRunWithPeer(t *testing.T) {
	tests := []struct {
		name   string
		params control.Params
		want   float64
	}{
		{"constant", control.Params{Value: 5}, 5},
		{"none", control.Params{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Steps = 200

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			type served struct {
				cycles int
				err    error
			}
			done := make(chan served, 1)
			cfg.Ready = func(addr net.Addr) {
				go func() {
					n, err := RunPeer(ctx, PeerConfig{
						Addr:       addr.String(),
						Controller: tt.name,
						Params:     tt.params,
						ByteOrder:  cfg.Settings.ByteOrder,
						Log:        zerolog.Nop(),
					})
					done <- served{n, err}
				}()
			}

			e, err := New(config.GetPreset("quarter-car"), cfg)
			require.NoError(t, err)

			res, err := e.Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, 200, res.Steps)
			assert.InDelta(t, res.SimTime, res.PeerTime, 1e-12)
			assert.Equal(t, tt.want, res.Last.Inbound[0])
			assert.InDelta(t, e.Rig().Actuator().Baseline+tt.want, res.Last.Command, 1e-12)
			assert.Equal(t, 200, e.Session().Frames())

			out := <-done
			require.NoError(t, out.err)
			assert.Equal(t, 200, out.cycles)
		})
	}
}

func TestDialPeerRejectsBadInput(t *testing.T) {
	ctx := context.Background()

	_, _, err := DialPeer(ctx, PeerConfig{Addr: "127.0.0.1:1", Controller: "bang-bang", ByteOrder: "little"})
	assert.True(t, eris.Is(err, control.ErrUnknown))

	_, _, err = DialPeer(ctx, PeerConfig{Addr: "127.0.0.1:1", Controller: "none", ByteOrder: "middle"})
	assert.Error(t, err)
}

func TestConnectCancelled(t *testing.T) {
	cfg := testConfig(t)
	e, err := New(config.GetPreset("quarter-car"), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = e.Run(ctx)
	assert.True(t, eris.Is(err, cosim.ErrConnection))
}

func TestSweep(t *testing.T) {
	cfg := testConfig(t)
	cfg.Steps = 8000

	values := []float64{4000, 5000, 8000}
	results, err := Sweep(context.Background(), config.GetPreset("quarter-car"), cfg, "spring", values, 2)
	require.NoError(t, err)
	require.Len(t, results, len(values))

	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, "spring", r.Param)
		assert.Equal(t, values[i], r.Value)
		assert.Equal(t, 8000, r.Result.Steps)

		doc := config.GetPreset("quarter-car")
		doc.SD.Spring = config.F(values[i])
		e, err := New(doc, cfg)
		require.NoError(t, err)
		wheelY, bodyY := e.Engine().System().Equilibrium(0, e.Rig().Actuator().Baseline)
		last := r.Result.Last.Outbound
		assert.InDelta(t, wheelY-e.Rig().WheelRadius(), last[0], 1e-3)
		assert.InDelta(t, bodyY-e.Rig().WheelRadius()-e.Rig().SuspensionBase(), last[1], 1e-3)
	}
}

func TestSweepErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Steps = 10

	_, err := Sweep(context.Background(), config.GetPreset("quarter-car"), cfg, "mass", []float64{1}, 1)
	assert.True(t, eris.Is(err, ErrUnknownParam))

	_, err = Sweep(context.Background(), config.GetPreset("quarter-car"), cfg, "spring", []float64{-1}, 1)
	assert.True(t, eris.Is(err, config.ErrConfig))

	cfg.Steps = 0
	_, err = Sweep(context.Background(), config.GetPreset("quarter-car"), cfg, "spring", []float64{1000}, 1)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	doc := config.GetPreset("quarter-car")
	out, err := Apply(doc, map[string]float64{"spring": 800, "velocity": 2})
	require.NoError(t, err)
	assert.Equal(t, 800.0, *out.SD.Spring)
	assert.Equal(t, 2.0, *out.Wheel.Velocity)
	assert.Equal(t, 5000.0, *doc.SD.Spring, "source document untouched")

	_, err = Apply(config.GetPreset("default"), map[string]float64{"damping": 10})
	assert.True(t, eris.Is(err, config.ErrConfig), "partial SD section fails validation")

	assert.Equal(t, "damping=3,spring=2", Label(map[string]float64{"spring": 2, "damping": 3}))
}

func TestParams(t *testing.T) {
	assert.Equal(t, []string{"base", "damping", "spring", "stiffness", "velocity"}, Params())
}
