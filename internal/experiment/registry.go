package experiment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/sim"
)

var ErrUnknownParam = eris.New("experiment: unknown parameter")

// params maps settable document fields to their setters.
var params = map[string]func(doc *config.Document, v float64){
	"spring": func(doc *config.Document, v float64) {
		ensureSD(doc).Spring = config.F(v)
	},
	"damping": func(doc *config.Document, v float64) {
		ensureSD(doc).Damping = config.F(v)
	},
	"base": func(doc *config.Document, v float64) {
		ensureSD(doc).Base = config.F(v)
	},
	"velocity": func(doc *config.Document, v float64) {
		ensureWheel(doc).Velocity = config.F(v)
	},
	"stiffness": func(doc *config.Document, v float64) {
		if doc.Contact == nil {
			doc.Contact = &config.ContactSection{}
		}
		doc.Contact.Stiffness = config.F(v)
	},
}

func ensureSD(doc *config.Document) *config.SpringDamperSection {
	if doc.SD == nil {
		doc.SD = &config.SpringDamperSection{}
	}
	return doc.SD
}

func ensureWheel(doc *config.Document) *config.WheelSection {
	if doc.Wheel == nil {
		doc.Wheel = &config.WheelSection{}
	}
	return doc.Wheel
}

func Params() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply returns a validated copy of doc with the given fields overridden.
func Apply(doc *config.Document, values map[string]float64) (*config.Document, error) {
	out, err := doc.Clone()
	if err != nil {
		return nil, err
	}
	for name, v := range values {
		set, ok := params[name]
		if !ok {
			return nil, eris.Wrapf(ErrUnknownParam, "%q (available: %v)", name, Params())
		}
		set(out, v)
	}
	if err := out.Validate(); err != nil {
		return nil, eris.Wrapf(err, "%s", Label(values))
	}
	return out, nil
}

// Label renders parameter overrides as name=value pairs in name order.
func Label(values map[string]float64) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%g", name, values[name])
	}
	return strings.Join(parts, ",")
}

// VariantResult is the outcome of one offline run of a parameter variant.
type VariantResult struct {
	Values map[string]float64
	sim.BatchResult
}

// RunVariants runs one offline copy of doc per entry of variants,
// concurrently on up to workers goroutines. Results keep the input order.
func RunVariants(ctx context.Context, doc *config.Document, cfg Config, variants []map[string]float64, workers int) ([]VariantResult, error) {
	cfg.Offline = true
	cfg.Record = false
	cfg.Settings.Realtime = false
	cfg.Settings.TelemetryAddr = ""

	batch := sim.NewBatch(workers)
	for _, values := range variants {
		variant, err := Apply(doc, values)
		if err != nil {
			return nil, err
		}
		runCfg := cfg
		runCfg.Name = cfg.Name + "[" + Label(values) + "]"
		e, err := New(variant, runCfg)
		if err != nil {
			return nil, err
		}
		sc, err := e.offlineController()
		if err != nil {
			return nil, err
		}
		batch.Add(runCfg.Name, sc)
	}

	results := batch.Run(ctx)
	out := make([]VariantResult, len(results))
	for i, r := range results {
		out[i] = VariantResult{Values: variants[i], BatchResult: r}
	}
	return out, nil
}

type SweepResult struct {
	Param string
	Value float64
	sim.BatchResult
}

// Sweep varies a single parameter over values.
func Sweep(ctx context.Context, doc *config.Document, cfg Config, param string, values []float64, workers int) ([]SweepResult, error) {
	if _, ok := params[param]; !ok {
		return nil, eris.Wrapf(ErrUnknownParam, "%q (available: %v)", param, Params())
	}
	variants := make([]map[string]float64, len(values))
	for i, v := range values {
		variants[i] = map[string]float64{param: v}
	}
	results, err := RunVariants(ctx, doc, cfg, variants, workers)
	if err != nil {
		return nil, err
	}
	out := make([]SweepResult, len(results))
	for i, r := range results {
		out[i] = SweepResult{Param: param, Value: values[i], BatchResult: r.BatchResult}
	}
	return out, nil
}
