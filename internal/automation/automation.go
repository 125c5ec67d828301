package automation

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/experiment"
	"github.com/san-kum/rigsim/internal/sim"
)

var ErrScenario = eris.New("automation: invalid scenario")

// Scenario defines a scripted sequence of offline runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Exactly one of Preset and Config names the rig;
// Config is resolved relative to the scenario file.
type ScenarioStep struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Config     string             `yaml:"config"`
	Integrator string             `yaml:"integrator"`
	Dt         float64            `yaml:"dt"`
	Steps      int                `yaml:"steps"`
	Params     map[string]float64 `yaml:"params"`
	Record     bool               `yaml:"record"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrScenario, "read %s: %v", path, err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range sc.Steps {
		if c := sc.Steps[i].Config; c != "" && !filepath.IsAbs(c) {
			sc.Steps[i].Config = filepath.Join(dir, c)
		}
	}
	return sc, nil
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, eris.Wrapf(ErrScenario, "%v", err)
	}
	if len(sc.Steps) == 0 {
		return nil, eris.Wrap(ErrScenario, "no steps")
	}
	for i, step := range sc.Steps {
		if (step.Preset == "") == (step.Config == "") {
			return nil, eris.Wrapf(ErrScenario, "step %d: exactly one of preset and config is required", i+1)
		}
		if step.Steps <= 0 {
			return nil, eris.Wrapf(ErrScenario, "step %d: steps must be positive", i+1)
		}
		if step.Dt < 0 {
			return nil, eris.Wrapf(ErrScenario, "step %d: dt must not be negative", i+1)
		}
	}
	return &sc, nil
}

func (s ScenarioStep) document() (*config.Document, string, error) {
	if s.Config != "" {
		doc, err := config.Load(s.Config)
		base := filepath.Base(s.Config)
		return doc, base[:len(base)-len(filepath.Ext(base))], err
	}
	doc := config.GetPreset(s.Preset)
	if doc == nil {
		return nil, "", eris.Wrapf(ErrScenario, "unknown preset %q (available: %v)", s.Preset, config.ListPresets())
	}
	return doc, s.Preset, nil
}

type StepResult struct {
	Name   string
	RunID  string
	Result *sim.Result
}

// RunScenario executes all steps in order, offline. base supplies the
// settings and logger; each step may override dt and the integrator. The
// first failing step ends the scenario.
func RunScenario(ctx context.Context, scenario *Scenario, base experiment.Config) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))
	log := base.Log.With().Str("component", "scenario").Str("scenario", scenario.Name).Logger()

	for i, step := range scenario.Steps {
		doc, name, err := step.document()
		if err != nil {
			return results, eris.Wrapf(err, "step %d", i+1)
		}
		if len(step.Params) > 0 {
			if doc, err = experiment.Apply(doc, step.Params); err != nil {
				return results, eris.Wrapf(err, "step %d", i+1)
			}
		}
		if step.Name != "" {
			name = step.Name
		}

		cfg := base
		cfg.Name = name
		cfg.Steps = step.Steps
		cfg.Offline = true
		cfg.Record = step.Record
		cfg.Ready = nil
		if step.Dt > 0 {
			cfg.Settings.Dt = step.Dt
		}
		if step.Integrator != "" {
			cfg.Settings.Integrator = step.Integrator
		}

		log.Info().Int("step", i+1).Int("of", len(scenario.Steps)).Str("rig", name).Msg("running")

		e, err := experiment.New(doc, cfg)
		if err != nil {
			return results, eris.Wrapf(err, "step %d setup", i+1)
		}
		res, err := e.Run(ctx)
		if err != nil {
			return results, eris.Wrapf(err, "step %d run", i+1)
		}

		sr := StepResult{Name: name, Result: res}
		if rec := e.Recorder(); rec != nil {
			sr.RunID = rec.ID()
		}
		results = append(results, sr)

		if ctx.Err() != nil {
			break
		}
	}

	return results, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
