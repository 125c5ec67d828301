package optim

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/experiment"
)

func TestGrid(t *testing.T) {
	g := NewGridSearch([]string{"spring", "damping"}, [][]float64{{1, 2}, {10, 20, 30}})
	grid := g.Grid()
	require.Len(t, grid, 6)
	assert.Equal(t, map[string]float64{"spring": 1, "damping": 10}, grid[0])
	assert.Equal(t, map[string]float64{"spring": 2, "damping": 30}, grid[5])

	assert.Len(t, NewGridSearch(nil, nil).Grid(), 1)
}

func TestSearchPrefersStifferDamping(t *testing.T) {
	cfg := experiment.Config{Name: "quarter-car", Settings: config.DefaultSettings(), Steps: 3000, Log: zerolog.Nop()}

	g := NewGridSearch([]string{"damping"}, [][]float64{{50, 2000}})
	out, err := g.Search(context.Background(), config.GetPreset("quarter-car"), cfg, "suspension_travel", 2)
	require.NoError(t, err)
	require.Len(t, out.All, 2)
	assert.Equal(t, 2000.0, out.Best["damping"])
	assert.Equal(t, out.All[1].Result.Metrics["suspension_travel"], out.Value)
}

func TestSearchErrors(t *testing.T) {
	cfg := experiment.Config{Name: "quarter-car", Settings: config.DefaultSettings(), Steps: 10, Log: zerolog.Nop()}
	doc := config.GetPreset("quarter-car")

	_, err := NewGridSearch([]string{"spring"}, nil).Search(context.Background(), doc, cfg, "body_rms", 1)
	assert.Error(t, err)

	_, err = NewGridSearch([]string{"spring"}, [][]float64{{1000}}).Search(context.Background(), doc, cfg, "nope", 1)
	assert.Error(t, err)

	_, err = NewGridSearch([]string{"mass"}, [][]float64{{1}}).Search(context.Background(), doc, cfg, "body_rms", 1)
	assert.True(t, eris.Is(err, experiment.ErrUnknownParam))
}
