package analysis

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFT(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want []complex128
	}{
		{"empty", nil, []complex128{}},
		{"single", []float64{3}, []complex128{3}},
		{"impulse", []float64{1, 0, 0, 0}, []complex128{1, 1, 1, 1}},
		{"constant", []float64{1, 1, 1, 1}, []complex128{4, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FFT(tt.data)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, real(tt.want[i]), real(got[i]), 1e-12)
				assert.InDelta(t, imag(tt.want[i]), imag(got[i]), 1e-12)
			}
		})
	}

	_, err := FFT([]float64{1, 2, 3})
	assert.True(t, eris.Is(err, ErrLength))
}

func TestDominant(t *testing.T) {
	const dt = 0.001
	data := make([]float64, 4096)
	for i := range data {
		data[i] = 0.7 + 0.1*math.Sin(2*math.Pi*12.5*float64(i)*dt)
	}

	peak, err := Dominant(data, dt)
	require.NoError(t, err)
	resolution := 1 / (4096 * dt)
	assert.InDelta(t, 12.5, peak.Frequency, resolution)
	assert.Greater(t, peak.Power, 0.0)

	_, err = Dominant(data, 0)
	assert.Error(t, err)
	_, err = Dominant([]float64{1}, dt)
	assert.Error(t, err)
}

func TestPowerSpectrumPads(t *testing.T) {
	ps := PowerSpectrum(make([]float64, 1000))
	assert.Len(t, ps, 512)
	assert.Nil(t, PowerSpectrum(nil))
}

func TestNaturalFrequency(t *testing.T) {
	assert.InDelta(t, 1.0, NaturalFrequency(4*math.Pi*math.Pi, 1), 1e-12)
	assert.Equal(t, 0.0, NaturalFrequency(0, 1))
}
