package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/experiment"
	"github.com/san-kum/rigsim/internal/storage"
)

const scenarioYAML = `
name: suspension-check
description: stock and soft springs
steps:
  - preset: quarter-car
    steps: 200
    record: true
  - name: soft
    config: rig.yaml
    steps: 100
    dt: 0.002
    integrator: verlet
    params:
      spring: 2500
`

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", "steps: ["},
		{"no steps", "name: x"},
		{"no rig", "steps:\n  - steps: 10"},
		{"two rigs", "steps:\n  - preset: bump\n    config: a.yaml\n    steps: 10"},
		{"zero steps", "steps:\n  - preset: bump"},
		{"negative dt", "steps:\n  - preset: bump\n    steps: 1\n    dt: -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.body))
			assert.True(t, eris.Is(err, ErrScenario), "got %v", err)
		})
	}
}

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.Save(filepath.Join(dir, "rig.yaml"), config.GetPreset("quarter-car")))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rig.yaml"), sc.Steps[1].Config)

	settings := config.DefaultSettings()
	settings.DataDir = filepath.Join(dir, "runs")
	results, err := RunScenario(context.Background(), sc, experiment.Config{Settings: settings, Log: zerolog.Nop()})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "quarter-car", results[0].Name)
	assert.Equal(t, 200, results[0].Result.Steps)
	assert.NotEmpty(t, results[0].RunID)

	assert.Equal(t, "soft", results[1].Name)
	assert.Equal(t, 100, results[1].Result.Steps)
	assert.InDelta(t, 0.2, results[1].Result.SimTime, 1e-9)
	assert.Empty(t, results[1].RunID)

	runs, err := storage.New(settings.DataDir).List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, results[0].RunID, runs[0].ID)
}

func TestRunScenarioStopsOnFailure(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{
		{Preset: "quarter-car", Steps: 10},
		{Preset: "missing", Steps: 10},
		{Preset: "bump", Steps: 10},
	}}
	results, err := RunScenario(context.Background(), sc, experiment.Config{Settings: config.DefaultSettings(), Log: zerolog.Nop()})
	assert.True(t, eris.Is(err, ErrScenario))
	assert.Len(t, results, 1)
}

func TestLinspace(t *testing.T) {
	assert.Nil(t, Linspace(0, 1, 0))
	assert.Equal(t, []float64{2}, Linspace(2, 5, 1))
	assert.Equal(t, []float64{0, 0.5, 1}, Linspace(0, 1, 3))
	assert.Equal(t, []float64{1000, 2000, 3000, 4000}, Linspace(1000, 4000, 4))
}
