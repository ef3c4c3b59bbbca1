package filters

import (
	"fmt"
	"math"
)

// Butterworth is the Q of a maximally flat second-order section.
const Butterworth = 1 / math.Sqrt2

// BiquadType selects the cookbook response of a Biquad.
type BiquadType int

const (
	// Lowpass passes content below the cutoff
	Lowpass BiquadType = iota
	// Highpass passes content above the cutoff
	Highpass
	// Bandpass passes a band around the center frequency (0 dB peak gain)
	Bandpass
)

func (t BiquadType) String() string {
	switch t {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	case Bandpass:
		return "bandpass"
	default:
		return "unknown"
	}
}

// Biquad is a second-order IIR section.
//
// Coefficients follow Robert Bristow-Johnson's
// "Cookbook formulae for audio EQ biquad filter coefficients"
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
//
// Samples are processed in Direct Form II Transposed, which keeps two state
// variables and behaves well with float64 at audio rates.
type Biquad struct {
	kind       BiquadType
	sampleRate int
	frequency  float64 // cutoff or center frequency in Hz
	q          float64

	// Normalized coefficients (a0 == 1)
	b0, b1, b2 float64
	a1, a2     float64

	// DF2T state
	z1, z2 float64
}

// NewBiquad creates a section of the given type.
//
// Parameters:
//   - sampleRate: Sample rate in Hz
//   - frequency: Cutoff (low/high pass) or center (band pass) frequency in Hz
//   - q: Quality factor; Butterworth gives a flat passband
//
// The frequency must lie strictly between 0 and Nyquist.
func NewBiquad(kind BiquadType, sampleRate int, frequency, q float64) (*Biquad, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("filters: sample rate must be positive, got %d", sampleRate)
	}
	nyquist := float64(sampleRate) / 2
	if frequency <= 0 || frequency >= nyquist {
		return nil, fmt.Errorf("filters: %s frequency %.1f Hz must be between 0 and Nyquist (%.1f Hz)", kind, frequency, nyquist)
	}
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return nil, fmt.Errorf("filters: q must be positive and finite, got %v", q)
	}

	bq := &Biquad{
		kind:       kind,
		sampleRate: sampleRate,
		frequency:  frequency,
		q:          q,
	}
	if err := bq.computeCoefficients(); err != nil {
		return nil, err
	}
	return bq, nil
}

// NewHighpass creates a cookbook high-pass section
func NewHighpass(sampleRate int, cutoff, q float64) (*Biquad, error) {
	return NewBiquad(Highpass, sampleRate, cutoff, q)
}

// NewLowpass creates a cookbook low-pass section
func NewLowpass(sampleRate int, cutoff, q float64) (*Biquad, error) {
	return NewBiquad(Lowpass, sampleRate, cutoff, q)
}

// NewBandpass creates a cookbook band-pass section with Q = center/bandwidth
func NewBandpass(sampleRate int, center, bandwidth float64) (*Biquad, error) {
	if bandwidth <= 0 {
		return nil, fmt.Errorf("filters: bandwidth must be positive, got %v", bandwidth)
	}
	return NewBiquad(Bandpass, sampleRate, center, center/bandwidth)
}

func (bq *Biquad) computeCoefficients() error {
	// w0 = 2*pi*f0/Fs
	w0 := 2.0 * math.Pi * bq.frequency / float64(bq.sampleRate)
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2.0 * bq.q)

	var b0, b1, b2 float64
	switch bq.kind {
	case Lowpass:
		b0 = (1 - cosW0) / 2
		b1 = 1 - cosW0
		b2 = (1 - cosW0) / 2
	case Highpass:
		b0 = (1 + cosW0) / 2
		b1 = -(1 + cosW0)
		b2 = (1 + cosW0) / 2
	case Bandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	default:
		return fmt.Errorf("filters: unsupported biquad type %d", bq.kind)
	}

	a0 := 1 + alpha
	bq.b0 = b0 / a0
	bq.b1 = b1 / a0
	bq.b2 = b2 / a0
	bq.a1 = (-2 * cosW0) / a0
	bq.a2 = (1 - alpha) / a0
	return nil
}

// Process filters a single sample.
//
//	y[n]  = b0*x[n] + z1
//	z1    = b1*x[n] - a1*y[n] + z2
//	z2    = b2*x[n] - a2*y[n]
func (bq *Biquad) Process(x float64) float64 {
	y := bq.b0*x + bq.z1
	bq.z1 = bq.b1*x - bq.a1*y + bq.z2
	bq.z2 = bq.b2*x - bq.a2*y
	return y
}

// ProcessBuffer filters buf in place.
func (bq *Biquad) ProcessBuffer(buf []float64) {
	for i, x := range buf {
		buf[i] = bq.Process(x)
	}
}

// Reset clears the delay line.
// Call this when processing discontinuous audio segments.
func (bq *Biquad) Reset() {
	bq.z1, bq.z2 = 0, 0
}

// FrequencyResponse returns the magnitude (linear) and phase (radians) at
// frequency.
//
//	H(e^jw) = (b0 + b1*e^-jw + b2*e^-j2w) / (1 + a1*e^-jw + a2*e^-j2w)
func (bq *Biquad) FrequencyResponse(frequency float64) (magnitude, phase float64) {
	w := 2.0 * math.Pi * frequency / float64(bq.sampleRate)

	cosW, sinW := math.Cos(w), math.Sin(w)
	cos2W, sin2W := math.Cos(2*w), math.Sin(2*w)

	numReal := bq.b0 + bq.b1*cosW + bq.b2*cos2W
	numImag := -bq.b1*sinW - bq.b2*sin2W
	denReal := 1 + bq.a1*cosW + bq.a2*cos2W
	denImag := -bq.a1*sinW - bq.a2*sin2W

	denMagSq := denReal*denReal + denImag*denImag
	hReal := (numReal*denReal + numImag*denImag) / denMagSq
	hImag := (numImag*denReal - numReal*denImag) / denMagSq

	return math.Hypot(hReal, hImag), math.Atan2(hImag, hReal)
}

// Type returns the response type
func (bq *Biquad) Type() BiquadType { return bq.kind }

// Frequency returns the cutoff or center frequency in Hz
func (bq *Biquad) Frequency() float64 { return bq.frequency }

// Q returns the quality factor
func (bq *Biquad) Q() float64 { return bq.q }
