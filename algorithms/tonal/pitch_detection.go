package tonal

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-recite/algorithms/spectral"
)

const (
	// DefaultMinFrequency is the lowest fundamental searched (Hz)
	DefaultMinFrequency = 60.0
	// DefaultMaxFrequency is the highest fundamental searched (Hz)
	DefaultMaxFrequency = 1200.0
	// DefaultMaxOffset caps the number of products summed per lag
	DefaultMaxOffset = 4096

	silencePeakThreshold = 0.0003
	silenceRMSThreshold  = 0.0001
	energyThreshold      = 0.00008
	minCorrelation       = 0.1
	normEpsilon          = 1e-10

	// A lag near bestPeriod/k replaces the best lag when its correlation is at
	// least this fraction of the best. Pure tones otherwise lock onto a whole
	// multiple of their period whose integer lag happens to land closer.
	subMultipleRatio = 0.9

	maxConfidence   = 0.95
	confidenceFloor = 0.1
)

// PitchEstimate is the result of analysing one frame.
// Unvoiced frames have Voiced=false, Frequency=0 and Confidence=0.
type PitchEstimate struct {
	Frequency   float64 `json:"frequency"`   // Hz
	Confidence  float64 `json:"confidence"`  // 0-1
	Voiced      bool    `json:"voiced"`      // periodic energy detected
	Period      int     `json:"period"`      // selected lag in samples
	Correlation float64 `json:"correlation"` // normalized correlation at Period
}

var unvoiced = PitchEstimate{}

// EstimatorOption configures an AutocorrelationEstimator
type EstimatorOption func(*AutocorrelationEstimator)

// WithFrequencyRange sets the searched fundamental range in Hz
func WithFrequencyRange(minHz, maxHz float64) EstimatorOption {
	return func(e *AutocorrelationEstimator) {
		if minHz > 0 && maxHz > minHz {
			e.minFreq, e.maxFreq = minHz, maxHz
		}
	}
}

// WithMaxOffset caps the number of products summed per lag
func WithMaxOffset(n int) EstimatorOption {
	return func(e *AutocorrelationEstimator) {
		if n > 0 {
			e.maxOffset = n
		}
	}
}

// WithFFT computes lag correlations through an FFT when every lag sums the
// same number of products. Period selection is unchanged.
func WithFFT(enabled bool) EstimatorOption {
	return func(e *AutocorrelationEstimator) {
		e.useFFT = enabled
	}
}

// AutocorrelationEstimator estimates the fundamental frequency of a frame
// with a normalized time-domain autocorrelation.
//
// References:
//   - Rabiner, L.R. (1977). "On the use of autocorrelation analysis for pitch detection"
//   - McLeod, P., Wyvill, G. (2005). "A smarter way to find pitch"
//
// Scratch buffers are reused between calls, so an estimator must not be
// shared between goroutines.
type AutocorrelationEstimator struct {
	minFreq   float64
	maxFreq   float64
	maxOffset int
	useFFT    bool

	fft *spectral.FFT

	centered     []float64
	prefixEnergy []float64 // prefixEnergy[k] = sum of centered[i]^2 for i < k
	correlations []float64 // indexed by lag
}

// NewAutocorrelationEstimator creates an estimator covering 60-1200 Hz
func NewAutocorrelationEstimator(opts ...EstimatorOption) *AutocorrelationEstimator {
	e := &AutocorrelationEstimator{
		minFreq:   DefaultMinFrequency,
		maxFreq:   DefaultMaxFrequency,
		maxOffset: DefaultMaxOffset,
		fft:       spectral.NewFFT(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate analyses one time-domain window.
//
// peak and rms describe the raw window and drive the cheap silence gate.
// The function is total: degenerate input (empty frames, silence, NaN,
// non-finite results) yields an unvoiced estimate rather than an error.
func (e *AutocorrelationEstimator) Estimate(samples []float64, sampleRate int, peak, rms float64) PitchEstimate {
	n := len(samples)
	if n == 0 || sampleRate <= 0 {
		return unvoiced
	}
	if !(peak >= silencePeakThreshold) || !(rms >= silenceRMSThreshold) {
		return unvoiced
	}

	x := e.center(samples)
	energy := floats.Dot(x, x) / float64(n)
	if !(energy >= energyThreshold) || math.IsInf(energy, 0) {
		return unvoiced
	}

	minPeriod := max(int(float64(sampleRate)/e.maxFreq), 1)
	maxPeriod := int(float64(sampleRate) / e.minFreq)
	end := min(maxPeriod, n/2)
	if end <= minPeriod {
		return unvoiced
	}

	corr := e.correlate(x, minPeriod, end, energy)
	period, best, second := selectPeriod(corr, minPeriod, end)
	if period < 0 || best < minCorrelation {
		return unvoiced
	}

	frequency := float64(sampleRate) / float64(period)
	if math.IsNaN(frequency) || math.IsInf(frequency, 0) ||
		frequency < e.minFreq || frequency > e.maxFreq {
		return unvoiced
	}

	return PitchEstimate{
		Frequency:   frequency,
		Confidence:  confidence(best, second),
		Voiced:      true,
		Period:      period,
		Correlation: best,
	}
}

// center copies samples into scratch with the mean removed and fills the
// prefix energy table.
func (e *AutocorrelationEstimator) center(samples []float64) []float64 {
	n := len(samples)
	if cap(e.centered) < n {
		e.centered = make([]float64, n)
		e.prefixEnergy = make([]float64, n+1)
	}
	x := e.centered[:n]
	mean := floats.Sum(samples) / float64(n)
	for i, v := range samples {
		x[i] = v - mean
	}

	pe := e.prefixEnergy[:n+1]
	pe[0] = 0
	for i, v := range x {
		pe[i+1] = pe[i] + v*v
	}
	return x
}

// correlate fills the normalized correlation for every lag in [minPeriod, end).
//
//	r[p] = sum(x[i]*x[i+p]) / (sqrt(sum(x[i+p]^2) * N * energy) + eps),  i < N
//	N    = min(maxOffset, len(x)-p)
func (e *AutocorrelationEstimator) correlate(x []float64, minPeriod, end int, energy float64) []float64 {
	if cap(e.correlations) < end {
		e.correlations = make([]float64, end)
	}
	corr := e.correlations[:end]
	n := len(x)

	// The FFT path needs N to be the same for every lag.
	fixedN := n-(end-1) >= e.maxOffset
	var raw []float64
	if e.useFFT && fixedN {
		raw = e.fft.LagCorrelation(x[:e.maxOffset], x, end)
	}

	for p := minPeriod; p < end; p++ {
		N := min(e.maxOffset, n-p)
		var c float64
		if raw != nil {
			c = raw[p]
		} else {
			c = floats.Dot(x[:N], x[p:p+N])
		}
		lagEnergy := e.prefixEnergy[p+N] - e.prefixEnergy[p]
		corr[p] = c / (math.Sqrt(math.Max(lagEnergy, 0)*float64(N)*energy) + normEpsilon)
	}
	return corr
}

// selectPeriod scans lags in increasing order, tracking the best and the
// runner-up correlation, then prefers the shortest sub-multiple of the best
// lag that correlates almost as well. Returns period -1 when nothing positive
// was found.
func selectPeriod(corr []float64, minPeriod, end int) (period int, best, second float64) {
	period = -1
	for p := minPeriod; p < end; p++ {
		c := corr[p]
		if math.IsNaN(c) {
			continue
		}
		if c > best {
			second = best
			best = c
			period = p
		} else if c > second {
			second = c
		}
	}
	if period < 0 {
		return period, best, second
	}

	chosen := period
	for k := 2; ; k++ {
		center := int(math.Round(float64(period) / float64(k)))
		if center < minPeriod {
			break
		}
		lag, c := localPeak(corr, max(center-1, minPeriod), min(center+1, end-1))
		if lag >= 0 && c >= subMultipleRatio*best {
			chosen = lag
		}
	}
	if chosen != period {
		best = corr[chosen]
	}
	return chosen, best, second
}

// localPeak returns the lag with the highest correlation in [lo, hi].
func localPeak(corr []float64, lo, hi int) (int, float64) {
	lag, peak := -1, math.Inf(-1)
	for p := lo; p <= hi; p++ {
		if corr[p] > peak {
			lag, peak = p, corr[p]
		}
	}
	return lag, peak
}

// confidence blends correlation strength with how clearly the best lag stands
// out from the runner-up.
func confidence(best, second float64) float64 {
	strength := math.Min(1, best*2)

	clarity := 1.0
	if second > 0 {
		clarity = math.Max(0, math.Min(1, (best-second)/best))
	}

	conf := math.Min(maxConfidence, strength*0.6+clarity*0.4)
	return math.Max(confidenceFloor, math.Min(1, conf))
}

// FrequencyToMIDI converts a frequency to a fractional MIDI note number
// (A4 = 440 Hz = 69).
func FrequencyToMIDI(frequency float64) float64 {
	return 69 + 12*math.Log2(frequency/440.0)
}

// MIDIToFrequency converts a MIDI note number back to Hz.
func MIDIToFrequency(midi float64) float64 {
	return 440.0 * math.Pow(2, (midi-69)/12)
}
