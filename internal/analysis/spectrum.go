package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the magnitude of the first n/2+1 Fourier
// coefficients of data with its mean removed. Any length is accepted.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	centered := make([]float64, len(data))
	copy(centered, data)
	floats.AddConst(-stat.Mean(data, nil), centered)

	coeffs := fft.FFTReal(centered)
	ps := make([]float64, len(data)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps
}

// Frequencies returns the frequency of each PowerSpectrum bin for n samples
// taken every interval time units.
func Frequencies(n int, interval float64) []float64 {
	if n == 0 {
		return nil
	}
	freqs := make([]float64, n/2+1)
	for i := range freqs {
		freqs[i] = float64(i) / (float64(n) * interval)
	}
	return freqs
}

// DominantFrequency is the frequency of the strongest non-zero bin, or 0
// when the series is too short or flat.
func DominantFrequency(data []float64, interval float64) float64 {
	ps := PowerSpectrum(data)
	if len(ps) < 2 {
		return 0
	}
	idx := floats.MaxIdx(ps[1:]) + 1
	if ps[idx] == 0 {
		return 0
	}
	return Frequencies(len(data), interval)[idx]
}
