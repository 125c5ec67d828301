package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/rigsim/internal/analysis"
	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/experiment"
	"github.com/san-kum/rigsim/internal/export"
	"github.com/san-kum/rigsim/internal/rig"
	"github.com/san-kum/rigsim/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRIG\tTIME\tSTEPS\tSIM\tDT\tINTEG\tPEER\tERROR")

	for _, run := range runs {
		peer := run.Peer
		if run.Offline {
			peer = "offline"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3fs\t%.4fs\t%s\t%s\t%s\n",
			run.ID,
			run.Rig,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.SimTime,
			run.Dt,
			run.Integrator,
			peer,
			run.Error,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	rows, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("rig: %s\n", meta.Rig)
	fmt.Printf("samples: %d\n\n", len(rows))

	series := []struct {
		caption string
		value   func(storage.TraceRow) float64
	}{
		{"wheel height", func(r storage.TraceRow) float64 { return r.WheelHeight }},
		{"body height", func(r storage.TraceRow) float64 { return r.BodyHeight }},
		{"control", func(r storage.TraceRow) float64 { return r.Control }},
	}
	for _, s := range series {
		data := make([]float64, len(rows))
		for i, r := range rows {
			data[i] = s.value(r)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(rows) < 2 {
		return fmt.Errorf("no data")
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("rig: %s\n\n", meta.Rig)

	data := make([]float64, len(rows))
	for i, r := range rows {
		data[i] = r.BodyHeight
	}

	ps := analysis.PowerSpectrum(data)
	plotData := ps[:len(ps)/4]
	if len(plotData) > 1 {
		graph := asciigraph.Plot(plotData,
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum (body height)"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	peak, err := analysis.Dominant(data, meta.Dt)
	if err != nil {
		return err
	}
	fmt.Printf("dominant frequency: %.3f hz\n", peak.Frequency)
	if peak.Frequency > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/peak.Frequency)
	}

	if doc := config.GetPreset(meta.Rig); doc != nil {
		if r, err := rig.Build(doc); err == nil {
			fn := analysis.NaturalFrequency(r.Actuator().Spring, r.Body(rig.SprungBody).Mass)
			fmt.Printf("sprung natural frequency: %.3f hz\n", fn)
		}
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	rows, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write(storage.TraceHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatFloat(r.Time, 'f', 6, 64),
			strconv.FormatFloat(r.WheelHeight, 'f', 6, 64),
			strconv.FormatFloat(r.BodyHeight, 'f', 6, 64),
			strconv.FormatFloat(r.Control, 'f', 6, 64),
			strconv.FormatFloat(r.PeerTime, 'f', 6, 64),
			strconv.FormatFloat(r.Command, 'f', 6, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	rows, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if svgOut != "" {
		f, err := os.Create(svgOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	times, series := export.TraceSeries(rows)
	if err := export.WriteTraceSVG(out, times, series, 800, 400); err != nil {
		return err
	}
	if svgOut != "" {
		fmt.Fprintf(os.Stderr, "wrote %s\n", svgOut)
	}
	return nil
}

func printSweep(out io.Writer, results []experiment.SweepResult) {
	var names []string
	for _, r := range results {
		if r.Result == nil {
			continue
		}
		for name := range r.Result.Metrics {
			names = append(names, name)
		}
		break
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "PARAM\tVALUE\tWHEEL\tBODY")
	for _, name := range names {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w, "\tERROR")

	for _, r := range results {
		fmt.Fprintf(w, "%s\t%g", r.Param, r.Value)
		if r.Result == nil {
			fmt.Fprint(w, "\t-\t-")
			for range names {
				fmt.Fprint(w, "\t-")
			}
		} else {
			fmt.Fprintf(w, "\t%.5f\t%.5f", r.Result.Last.Outbound[0], r.Result.Last.Outbound[1])
			for _, name := range names {
				fmt.Fprintf(w, "\t%.5f", r.Result.Metrics[name])
			}
		}
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(w, "\t%s\n", errText)
	}
	w.Flush()
}
