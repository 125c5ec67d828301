package analysis

import (
	"math"
	"math/cmplx"

	"github.com/rotisserie/eris"
)

var ErrLength = eris.New("analysis: fft requires power of 2 length")

func FFT(data []float64) ([]complex128, error) {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result, nil
	}

	if n&(n-1) != 0 {
		return nil, eris.Wrapf(ErrLength, "got %d samples", n)
	}
	return fft(data), nil
}

func fft(data []float64) []complex128 {
	n := len(data)
	if n == 1 {
		return []complex128{complex(data[0], 0)}
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := fft(even)
	fodd := fft(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}
	return result
}

// PowerSpectrum returns the magnitudes of the first half of the transform
// of data after removing its mean and zero-padding to a power of two.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	var mean float64
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	n := 1
	for n < len(data) {
		n *= 2
	}
	padded := make([]float64, n)
	for i, v := range data {
		padded[i] = v - mean
	}

	coeffs, _ := FFT(padded)
	ps := make([]float64, len(coeffs)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps
}

// Peak is a spectral line.
type Peak struct {
	Frequency float64
	Power     float64
}

// Dominant returns the strongest non-DC line of a signal sampled every dt
// seconds. The resolution is 1/(n*dt) for the padded length n.
func Dominant(data []float64, dt float64) (Peak, error) {
	if dt <= 0 {
		return Peak{}, eris.Errorf("analysis: sample interval must be positive, got %g", dt)
	}
	ps := PowerSpectrum(data)
	if len(ps) < 2 {
		return Peak{}, eris.New("analysis: not enough samples")
	}

	best := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	n := len(ps) * 2
	return Peak{Frequency: float64(best) / (float64(n) * dt), Power: ps[best]}, nil
}

// NaturalFrequency is sqrt(k/m)/2pi in hertz.
func NaturalFrequency(spring, mass float64) float64 {
	if spring <= 0 || mass <= 0 {
		return 0
	}
	return math.Sqrt(spring/mass) / (2 * math.Pi)
}
