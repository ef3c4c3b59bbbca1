package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp
type FFT struct {
	// No state needed for now
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal.
// go-dsp handles all sizes, including non-power-of-2
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// ComputeInverseReal computes the (scaled) inverse FFT and returns the real part
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))
	for i, val := range result {
		realResult[i] = real(val)
	}
	return realResult
}

// LagCorrelation returns r[p] = sum_{i<len(a)} a[i]*b[i+p] for p in [0, lags).
//
// b must hold at least len(a)+lags-1 samples. Both inputs are zero padded to
// a power of two of at least len(a)+lags so the circular correlation never
// wraps into the requested lags.
func (f *FFT) LagCorrelation(a, b []float64, lags int) []float64 {
	if len(a) == 0 || lags <= 0 {
		return []float64{}
	}

	size := nextPowerOfTwo(len(a) + lags)
	pa := make([]float64, size)
	pb := make([]float64, size)
	copy(pa, a)
	copy(pb, b[:min(len(b), len(a)+lags-1)])

	spa := f.Compute(pa)
	spb := f.Compute(pb)
	for i := range spa {
		re, im := real(spa[i]), imag(spa[i])
		// conj(A) * B
		spb[i] = complex(re, -im) * spb[i]
	}

	full := f.ComputeInverseReal(spb)
	return full[:lags]
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
