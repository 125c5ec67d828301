package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigsim/internal/automation"
	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/control"
	"github.com/san-kum/rigsim/internal/experiment"
	"github.com/san-kum/rigsim/internal/optim"
	"github.com/san-kum/rigsim/internal/physics"
	"github.com/san-kum/rigsim/internal/rig"
	"github.com/san-kum/rigsim/internal/sim"
	"github.com/san-kum/rigsim/internal/viz"
)

var (
	dataDir  string
	envFile  string
	logLevel string

	// Harness settings overrides
	host       string
	port       int
	dt         float64
	integrator string
	timeoutMs  int
	byteOrder  string
	realtime   bool
	telemetry  string

	// Run
	steps        int
	offline      bool
	monitor      bool
	monitorEvery int
	record       bool
	preset       string
	configFile   string

	// Peer
	harnessAddr    string
	controllerName string
	value          float64
	kp             float64
	ki             float64
	kd             float64
	target         float64
	index          int
	limit          float64

	// Sweep and tune
	sweepParam   string
	sweepValues  []float64
	sweepRange   []float64
	sweepWorkers int
	tuneGrid     []string
	tuneMetric   string

	presetOut string
	svgOut    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rigsim",
		Short:         "quarter-vehicle co-simulation harness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "KEY=VALUE settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the rig against a co-simulation peer",
		Args:  cobra.NoArgs,
		RunE:  runCosim,
	}
	addSettingsFlags(runCmd)
	addRigFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", 0, "stop after n steps (0 runs until interrupted)")
	runCmd.Flags().BoolVar(&offline, "offline", false, "run without a peer")
	runCmd.Flags().BoolVar(&monitor, "monitor", false, "show the terminal monitor")
	runCmd.Flags().IntVar(&monitorEvery, "monitor-every", 20, "steps between monitor frames")
	runCmd.Flags().BoolVar(&record, "record", false, "record trace and metadata")

	peerCmd := &cobra.Command{
		Use:   "peer",
		Short: "run a reference controller peer",
		Args:  cobra.NoArgs,
		RunE:  runPeer,
	}
	peerCmd.Flags().StringVar(&harnessAddr, "addr", "127.0.0.1:50009", "harness address")
	peerCmd.Flags().StringVar(&byteOrder, "byte-order", "little", "frame byte order (little|big)")
	peerCmd.Flags().StringVar(&controllerName, "controller", "none", "controller ("+strings.Join(control.Names(), "|")+")")
	peerCmd.Flags().Float64Var(&value, "value", 0, "constant controller output")
	peerCmd.Flags().Float64Var(&kp, "kp", 200, "pid kp")
	peerCmd.Flags().Float64Var(&ki, "ki", 0, "pid ki")
	peerCmd.Flags().Float64Var(&kd, "kd", 50, "pid kd")
	peerCmd.Flags().Float64Var(&target, "target", 0.5, "pid/feedback target body height")
	peerCmd.Flags().IntVar(&index, "index", 1, "pid observed signal index")
	peerCmd.Flags().Float64Var(&limit, "limit", 0, "pid output clamp (0 disables)")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "load a rig document and print the assembled rig",
		Args:  cobra.NoArgs,
		RunE:  checkRig,
	}
	addRigFlags(checkCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}
	presetsCmd.Flags().StringVar(&presetOut, "out", "", "write the preset to a file")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run offline copies of a rig over a parameter range",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSettingsFlags(sweepCmd)
	addRigFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&steps, "steps", 8000, "steps per run")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "spring", "parameter ("+strings.Join(experiment.Params(), "|")+")")
	sweepCmd.Flags().Float64SliceVar(&sweepValues, "values", []float64{2500, 5000, 10000}, "parameter values")
	sweepCmd.Flags().Float64SliceVar(&sweepRange, "range", nil, "min,max,count; overrides --values")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 4, "concurrent runs")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search rig parameters for the lowest metric",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	addSettingsFlags(tuneCmd)
	addRigFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&steps, "steps", 8000, "steps per run")
	tuneCmd.Flags().StringArrayVar(&tuneGrid, "grid", []string{"damping=250,500,1000,2000"}, "param=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "minimize", "body_rms", "metric to minimise")
	tuneCmd.Flags().IntVar(&sweepWorkers, "workers", 4, "concurrent runs")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario of offline runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addSettingsFlags(scenarioCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trace to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export run trace as an SVG plot",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&svgOut, "out", "", "output file (default stdout)")

	rootCmd.AddCommand(runCmd, peerCmd, checkCmd, presetsCmd, sweepCmd, tuneCmd, scenarioCmd,
		listCmd, plotCmd, analyzeCmd, exportCmd, exportCSVCmd, exportSVGCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rigsim:", err)
		os.Exit(1)
	}
}

func addSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&host, "host", "", "listen host")
	cmd.Flags().IntVar(&port, "port", 50009, "listen port")
	cmd.Flags().Float64Var(&dt, "dt", 0.001, "fixed timestep")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (rk4|verlet|euler)")
	cmd.Flags().IntVar(&timeoutMs, "timeout-ms", 0, "exchange timeout in milliseconds (0 disables)")
	cmd.Flags().StringVar(&byteOrder, "byte-order", "little", "frame byte order (little|big)")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "pace simulated time to wall-clock time")
	cmd.Flags().StringVar(&telemetry, "telemetry", "", "serve websocket telemetry on this address")
}

func addRigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "quarter-car", "rig preset ("+strings.Join(config.ListPresets(), "|")+")")
	cmd.Flags().StringVar(&configFile, "config", "", "rig document (yaml or json); overrides --preset")
}

// loadSettings layers defaults, the env file, the environment and finally
// any flag the user set explicitly.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	s, err := config.LoadSettings(envFile)
	if err != nil {
		return s, err
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		s.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		s.LogLevel = logLevel
	}
	if flags.Changed("host") {
		s.Host = host
	}
	if flags.Changed("port") {
		s.Port = port
	}
	if flags.Changed("dt") {
		s.Dt = dt
	}
	if flags.Changed("integrator") {
		s.Integrator = integrator
	}
	if flags.Changed("timeout-ms") {
		s.TimeoutMillis = timeoutMs
	}
	if flags.Changed("byte-order") {
		s.ByteOrder = byteOrder
	}
	if flags.Changed("realtime") {
		s.Realtime = realtime
	}
	if flags.Changed("telemetry") {
		s.TelemetryAddr = telemetry
	}
	return s, s.Validate()
}

func newLogger(w io.Writer, s config.Settings) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(s.Level()).
		With().
		Timestamp().
		Logger()
}

func loadDocument() (*config.Document, string, error) {
	if configFile != "" {
		doc, err := config.Load(configFile)
		if err != nil {
			return nil, "", err
		}
		base := filepath.Base(configFile)
		return doc, strings.TrimSuffix(base, filepath.Ext(base)), nil
	}
	doc := config.GetPreset(preset)
	if doc == nil {
		return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	return doc, preset, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCosim(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	doc, name, err := loadDocument()
	if err != nil {
		return err
	}

	// The monitor owns the terminal; keep logs out of it.
	logOut := io.Writer(os.Stderr)
	if monitor {
		logOut = io.Discard
	}
	log := newLogger(logOut, settings)

	e, err := experiment.New(doc, experiment.Config{
		Name:     name,
		Settings: settings,
		Steps:    steps,
		Offline:  offline,
		Record:   record,
		Log:      log,
	})
	if err != nil {
		return err
	}
	if !monitor {
		e.Rig().Describe(os.Stderr)
	}

	ctx, stop := signalContext()
	defer stop()

	var res *sim.Result
	if monitor {
		res, err = runMonitored(ctx, e, name)
	} else {
		res, err = e.Run(ctx)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("cancelled before the peer connected")
			return nil
		}
		log.Error().Err(err).Msg("run failed")
		return err
	}
	if res == nil {
		fmt.Println("cancelled before the peer connected")
		return nil
	}

	printResult(os.Stdout, res)
	if rec := e.Recorder(); rec != nil {
		fmt.Printf("saved: %s\n", rec.ID())
	}
	return nil
}

func runMonitored(ctx context.Context, e *experiment.Experiment, name string) (*sim.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := viz.NewFeed(monitorEvery)
	e.AddObserver(feed)

	type outcome struct {
		res *sim.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := e.Run(runCtx)
		if res == nil {
			feed.Close(&sim.Result{Err: err})
		}
		done <- outcome{res, err}
	}()

	if err := viz.Run(runCtx, name, viz.SceneOf(e.Rig()), feed, cancel); err != nil {
		cancel()
		<-done
		return nil, err
	}
	cancel()
	out := <-done
	if out.err != nil && errors.Is(out.err, context.Canceled) {
		return out.res, nil
	}
	return out.res, out.err
}

func printResult(w io.Writer, res *sim.Result) {
	fmt.Fprintf(w, "steps: %d\n", res.Steps)
	fmt.Fprintf(w, "sim time: %.4fs\n", res.SimTime)
	fmt.Fprintf(w, "peer time: %.4fs\n", res.PeerTime)
	fmt.Fprintf(w, "wheel height: %.6f\n", res.Last.Outbound[0])
	fmt.Fprintf(w, "body height: %.6f\n", res.Last.Outbound[1])
	fmt.Fprintf(w, "command: %.4f\n", res.Last.Command)

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %.6f\n", name, res.Metrics[name])
	}
}

func runPeer(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log := newLogger(os.Stderr, settings)

	ctx, stop := signalContext()
	defer stop()

	cycles, err := experiment.RunPeer(ctx, experiment.PeerConfig{
		Addr:       harnessAddr,
		Controller: controllerName,
		Params: control.Params{
			Value:  value,
			Kp:     kp,
			Ki:     ki,
			Kd:     kd,
			Target: target,
			Index:  index,
			Limit:  limit,
		},
		ByteOrder: settings.ByteOrder,
		Timeout:   settings.Timeout(),
		Log:       log,
	})
	if err != nil {
		return err
	}
	fmt.Printf("cycles: %d\n", cycles)
	return nil
}

func checkRig(cmd *cobra.Command, args []string) error {
	doc, name, err := loadDocument()
	if err != nil {
		return err
	}
	r, err := rig.Build(doc)
	if err != nil {
		return err
	}

	fmt.Printf("rig: %s\n", name)
	r.Describe(os.Stdout)

	terrain := physics.NewTerrain(r)
	q := physics.NewQuarterCar(r, terrain)
	ground, ok := terrain.HeightAt(r.BodyPosition(rig.Wheel).X)
	if !ok {
		return fmt.Errorf("wheel is off the floor at x=%.3f", r.BodyPosition(rig.Wheel).X)
	}
	wheelY, bodyY := q.Equilibrium(ground, r.Actuator().Baseline)
	fmt.Printf("ground height at wheel: %.4f\n", ground)
	fmt.Printf("static rest: wheel=%.6f body=%.6f\n", wheelY, bodyY)
	fmt.Printf("rest outbound: [%.6f %.6f]\n", wheelY-r.WheelRadius(), bodyY-r.WheelRadius()-r.SuspensionBase())
	return nil
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println("presets:")
		for _, name := range config.ListPresets() {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	doc := config.GetPreset(args[0])
	if doc == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	if presetOut != "" {
		if err := config.Save(presetOut, doc); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", presetOut)
		return nil
	}
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(doc)
}

func runSweep(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	doc, name, err := loadDocument()
	if err != nil {
		return err
	}
	log := newLogger(os.Stderr, settings)

	ctx, stop := signalContext()
	defer stop()

	values := sweepValues
	if len(sweepRange) > 0 {
		if len(sweepRange) != 3 || sweepRange[2] < 1 {
			return fmt.Errorf("--range wants min,max,count")
		}
		values = automation.Linspace(sweepRange[0], sweepRange[1], int(sweepRange[2]))
	}

	start := time.Now()
	results, err := experiment.Sweep(ctx, doc, experiment.Config{
		Name:     name,
		Settings: settings,
		Steps:    steps,
		Log:      log.Level(zerolog.WarnLevel),
	}, sweepParam, values, sweepWorkers)
	if err != nil {
		return err
	}
	printSweep(os.Stdout, results)
	fmt.Printf("\n%d runs in %s\n", len(results), time.Since(start).Round(time.Millisecond))
	return nil
}

func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, entry := range entries {
		name, list, ok := strings.Cut(entry, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad grid %q, want param=v1,v2", entry)
		}
		var vals []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad grid value %q in %q", f, entry)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	doc, name, err := loadDocument()
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(tuneGrid)
	if err != nil {
		return err
	}
	log := newLogger(os.Stderr, settings)

	ctx, stop := signalContext()
	defer stop()

	g := optim.NewGridSearch(names, ranges)
	out, err := g.Search(ctx, doc, experiment.Config{
		Name:     name,
		Settings: settings,
		Steps:    steps,
		Log:      log.Level(zerolog.WarnLevel),
	}, tuneMetric, sweepWorkers)
	if err != nil {
		return err
	}

	for _, r := range out.All {
		status := ""
		if r.Err != nil {
			status = r.Err.Error()
		} else if r.Result != nil {
			status = fmt.Sprintf("%s=%.6f", tuneMetric, r.Result.Metrics[tuneMetric])
		}
		fmt.Printf("  %-32s %s\n", experiment.Label(r.Values), status)
	}
	fmt.Printf("best: %s (%s=%.6f)\n", experiment.Label(out.Best), tuneMetric, out.Value)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	log := newLogger(os.Stderr, settings)

	ctx, stop := signalContext()
	defer stop()

	if sc.Description != "" {
		fmt.Printf("%s: %s\n", sc.Name, sc.Description)
	}
	results, err := automation.RunScenario(ctx, sc, experiment.Config{Settings: settings, Log: log})
	for i, r := range results {
		fmt.Printf("\n[%d] %s\n", i+1, r.Name)
		printResult(os.Stdout, r.Result)
		if r.RunID != "" {
			fmt.Printf("saved: %s\n", r.RunID)
		}
	}
	return err
}
