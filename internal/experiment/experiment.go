package experiment

import (
	"context"
	"net"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/cosim"
	"github.com/san-kum/rigsim/internal/dynamo"
	"github.com/san-kum/rigsim/internal/integrators"
	"github.com/san-kum/rigsim/internal/metrics"
	"github.com/san-kum/rigsim/internal/physics"
	"github.com/san-kum/rigsim/internal/rig"
	"github.com/san-kum/rigsim/internal/sim"
	"github.com/san-kum/rigsim/internal/storage"
	"github.com/san-kum/rigsim/internal/telemetry"
)

// telemetryEvery thins the websocket stream to one frame per this many steps.
const telemetryEvery = 10

type Config struct {
	Name     string
	Settings config.Settings
	Steps    int
	Offline  bool
	Record   bool
	Log      zerolog.Logger
	// Ready, if set, is called with the co-simulation listen address once
	// it is bound.
	Ready func(net.Addr)
}

// Experiment is one assembled run: a rig, its physics backend and the
// observers attached to the step loop.
type Experiment struct {
	cfg       Config
	rig       *rig.Rig
	engine    *physics.Engine
	observers []sim.Observer
	session   *cosim.Session
	recorder  *storage.Recorder
	log       zerolog.Logger
}

// New builds the rig from doc and resolves the integrator. It does not
// touch the network.
func New(doc *config.Document, cfg Config) (*Experiment, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	r, err := rig.Build(doc)
	if err != nil {
		return nil, err
	}
	integ, err := integrators.New(cfg.Settings.Integrator)
	if err != nil {
		return nil, eris.Wrap(err, "experiment")
	}
	if cfg.Name == "" {
		cfg.Name = "rig"
	}
	return &Experiment{
		cfg:    cfg,
		rig:    r,
		engine: physics.NewEngine(r, integ),
		log:    cfg.Log.With().Str("component", "experiment").Str("rig", cfg.Name).Logger(),
	}, nil
}

func (e *Experiment) Rig() *rig.Rig               { return e.rig }
func (e *Experiment) Engine() *physics.Engine     { return e.engine }
func (e *Experiment) Recorder() *storage.Recorder { return e.recorder }
func (e *Experiment) AddObserver(o sim.Observer)  { e.observers = append(e.observers, o) }
func (e *Experiment) Session() *cosim.Session     { return e.session }

// Connect binds the co-simulation port and waits for the peer. It is a
// no-op for offline runs.
func (e *Experiment) Connect(ctx context.Context) error {
	if e.cfg.Offline || e.session != nil {
		return nil
	}
	order, err := cosim.ParseByteOrder(e.cfg.Settings.ByteOrder)
	if err != nil {
		return err
	}
	l, err := cosim.Listen(ctx, e.cfg.Settings.Addr(),
		cosim.WithByteOrder(order),
		cosim.WithTimeout(e.cfg.Settings.Timeout()),
		cosim.WithLogger(e.cfg.Log.With().Str("component", "cosim").Logger()),
	)
	if err != nil {
		return err
	}
	if e.cfg.Ready != nil {
		e.cfg.Ready(l.Addr())
	}
	s, err := l.Accept(ctx, sim.InWidth, sim.OutWidth)
	if err != nil {
		return err
	}
	e.session = s
	return nil
}

// Run connects if needed, attaches metrics, the recorder and the telemetry
// hub, and drives the step loop until ctx is done, the step limit is hit, or
// a step fails.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if err := e.Connect(ctx); err != nil {
		return nil, err
	}
	if e.session != nil {
		defer e.session.Close()
	}

	var exchanger sim.Exchanger
	peer := ""
	if e.session != nil {
		exchanger = e.session
		peer = e.session.RemoteAddr().String()
	}

	st := e.cfg.Settings
	sc := e.controller(exchanger)

	if e.cfg.Record {
		store := storage.New(st.DataDir)
		if err := store.Init(); err != nil {
			return nil, err
		}
		rec, err := store.NewRecorder(storage.RunMetadata{
			Rig:        e.cfg.Name,
			Dt:         st.Dt,
			Integrator: st.Integrator,
			Peer:       peer,
			Offline:    exchanger == nil,
		})
		if err != nil {
			return nil, err
		}
		e.recorder = rec
		sc.AddObserver(rec)
		e.log.Info().Str("run", rec.ID()).Str("dir", st.DataDir).Msg("recording")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if st.TelemetryAddr != "" {
		hub := telemetry.NewHub(e.rig.Camera(), telemetryEvery, e.cfg.Log.With().Str("component", "telemetry").Logger())
		served := make(chan error, 1)
		go func() { served <- hub.Serve(runCtx, st.TelemetryAddr, nil) }()
		defer func() {
			cancel()
			if err := <-served; err != nil {
				e.log.Warn().Err(err).Msg("telemetry stopped")
			}
		}()
		sc.AddObserver(hub)
	}

	for _, o := range e.observers {
		sc.AddObserver(o)
	}

	e.log.Info().
		Float64("dt", st.Dt).
		Str("integrator", st.Integrator).
		Str("peer", peer).
		Int("steps", e.cfg.Steps).
		Msg("starting run")

	return sc.Run(runCtx)
}

func (e *Experiment) controller(exchanger sim.Exchanger) *sim.StepController {
	st := e.cfg.Settings
	sc := sim.New(e.rig, e.engine, exchanger, sim.Config{
		Dt:       st.Dt,
		MaxSteps: e.cfg.Steps,
		Realtime: st.Realtime,
	})
	sc.SetLogger(e.cfg.Log.With().Str("component", "sim").Logger())
	for _, m := range metrics.Default() {
		sc.AddMetric(m)
	}
	return sc
}

// offlineController is a bare controller for batch runs: no peer, no
// recorder, no telemetry.
func (e *Experiment) offlineController() (*sim.StepController, error) {
	if e.cfg.Steps <= 0 {
		return nil, eris.Wrap(dynamo.ErrParameterBounds, "batch runs need a step limit")
	}
	sc := e.controller(nil)
	for _, o := range e.observers {
		sc.AddObserver(o)
	}
	return sc, nil
}
