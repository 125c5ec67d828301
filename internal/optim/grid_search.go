package optim

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/experiment"
)

var ErrNoResult = eris.New("optim: no successful run")

// GridSearch evaluates every combination of parameter values and keeps the
// one that minimises a metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Grid expands the parameter ranges into their cartesian product.
func (g *GridSearch) Grid() []map[string]float64 {
	var out []map[string]float64
	g.expand(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) expand(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		point := make(map[string]float64, len(current))
		for k, v := range current {
			point[k] = v
		}
		*out = append(*out, point)
		return
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		g.expand(depth+1, current, out)
	}
	delete(current, name)
}

type Outcome struct {
	Best  map[string]float64
	Value float64
	All   []experiment.VariantResult
}

// Search runs the grid offline and returns the point with the lowest value
// of metricName. Failed runs are skipped.
func (g *GridSearch) Search(ctx context.Context, doc *config.Document, cfg experiment.Config, metricName string, workers int) (*Outcome, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, eris.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	results, err := experiment.RunVariants(ctx, doc, cfg, g.Grid(), workers)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Value: math.Inf(1), All: results}
	for _, r := range results {
		if r.Err != nil || r.Result == nil {
			continue
		}
		val, ok := r.Result.Metrics[metricName]
		if !ok {
			return nil, eris.Errorf("optim: unknown metric %q", metricName)
		}
		if val < out.Value {
			out.Value = val
			out.Best = r.Values
		}
	}
	if out.Best == nil {
		return out, ErrNoResult
	}
	return out, nil
}
