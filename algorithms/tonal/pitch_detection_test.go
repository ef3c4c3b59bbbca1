package tonal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 44100

// tone returns n samples of a sum of harmonics of f0; amps[k] scales
// harmonic k+1.
func tone(f0 float64, n int, amps ...float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / testRate
		for k, a := range amps {
			out[i] += a * math.Sin(2*math.Pi*f0*float64(k+1)*t)
		}
	}
	return out
}

func levels(x []float64) (peak, rms float64) {
	sum := 0.0
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
		sum += v * v
	}
	return peak, math.Sqrt(sum / float64(len(x)))
}

func estimate(e *AutocorrelationEstimator, x []float64) PitchEstimate {
	peak, rms := levels(x)
	return e.Estimate(x, testRate, peak, rms)
}

func TestEstimate_Silence(t *testing.T) {
	e := NewAutocorrelationEstimator()
	got := estimate(e, make([]float64, 8192))

	assert.False(t, got.Voiced)
	assert.Equal(t, 0.0, got.Frequency)
	assert.Equal(t, 0.0, got.Confidence)
}

func TestEstimate_PureTones(t *testing.T) {
	e := NewAutocorrelationEstimator()
	for _, f0 := range []float64{82.4, 110, 196, 220, 330, 440, 1000} {
		got := estimate(e, tone(f0, 8192, 0.5))
		require.True(t, got.Voiced, "%.1f Hz", f0)
		assert.InEpsilon(t, f0, got.Frequency, 0.02, "%.1f Hz", f0)
		assert.GreaterOrEqual(t, got.Confidence, 0.1)
		assert.LessOrEqual(t, got.Confidence, 0.95)
	}
}

func TestEstimate_220HzWithin2Percent(t *testing.T) {
	got := estimate(NewAutocorrelationEstimator(), tone(220, 8192, 0.3))
	require.True(t, got.Voiced)
	assert.InDelta(t, 220, got.Frequency, 220*0.02)
}

func TestEstimate_HarmonicVoice(t *testing.T) {
	// Strong second harmonic, as in a chest voice.
	got := estimate(NewAutocorrelationEstimator(), tone(150, 8192, 0.3, 0.25, 0.1))
	require.True(t, got.Voiced)
	assert.InEpsilon(t, 150, got.Frequency, 0.02)
}

func TestEstimate_Gates(t *testing.T) {
	e := NewAutocorrelationEstimator()
	x := tone(220, 8192, 0.5)

	tests := []struct {
		name      string
		samples   []float64
		rate      int
		peak, rms float64
	}{
		{"empty", nil, testRate, 1, 1},
		{"zero rate", x, 0, 1, 1},
		{"low peak", x, testRate, 0.0002, 0.3},
		{"low rms", x, testRate, 0.5, 0.00005},
		{"nan peak", x, testRate, math.NaN(), 0.3},
		{"dc only", constant(0.5, 8192), testRate, 0.5, 0.5},
		{"quiet", tone(220, 8192, 0.005), testRate, 0.005, 0.0035},
		{"short window", x[:40], testRate, 0.5, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Estimate(tt.samples, tt.rate, tt.peak, tt.rms)
			assert.Equal(t, PitchEstimate{}, got)
		})
	}
}

func TestEstimate_WhiteNoiseIsUnvoiced(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	x := make([]float64, 8192)
	for i := range x {
		x[i] = rng.NormFloat64() * 0.2
	}
	got := estimate(NewAutocorrelationEstimator(), x)
	assert.False(t, got.Voiced)
	assert.Equal(t, 0.0, got.Confidence)
}

func TestEstimate_OutOfRangeIsUnvoiced(t *testing.T) {
	// 40 Hz lies below the search range; no lag inside it correlates.
	got := estimate(NewAutocorrelationEstimator(), tone(40, 8192, 0.5))
	if got.Voiced {
		assert.GreaterOrEqual(t, got.Frequency, DefaultMinFrequency)
		assert.LessOrEqual(t, got.Frequency, DefaultMaxFrequency)
	}
}

func TestEstimate_FFTMatchesDirect(t *testing.T) {
	direct := NewAutocorrelationEstimator()
	viaFFT := NewAutocorrelationEstimator(WithFFT(true))

	signals := map[string][]float64{
		"220 sine":   tone(220, 8192, 0.5),
		"440 sine":   tone(440, 8192, 0.5),
		"150 voice":  tone(150, 8192, 0.3, 0.25, 0.1),
		"97.3 voice": tone(97.3, 8192, 0.2, 0.2, 0.15, 0.05),
	}
	for name, x := range signals {
		a := estimate(direct, x)
		b := estimate(viaFFT, x)
		assert.Equal(t, a.Period, b.Period, name)
		assert.Equal(t, a.Voiced, b.Voiced, name)
		assert.InDelta(t, a.Correlation, b.Correlation, 1e-6, name)
		assert.InDelta(t, a.Confidence, b.Confidence, 1e-6, name)
	}
}

func TestEstimate_FFTFallsBackOnShortWindows(t *testing.T) {
	// 2048 samples cannot give every lag 4096 products, so the direct path runs.
	x := tone(300, 2048, 0.5)
	a := estimate(NewAutocorrelationEstimator(), x)
	b := estimate(NewAutocorrelationEstimator(WithFFT(true)), x)
	assert.Equal(t, a, b)
	assert.InEpsilon(t, 300, a.Frequency, 0.02)
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 0.95, confidence(0.9, 0), 1e-12)
	assert.InDelta(t, 0.1, confidence(0.05, 0.05), 1e-12)
	assert.InDelta(t, 0.36+0.4*0.5, confidence(0.3, 0.15), 1e-12)
	assert.InDelta(t, 0.6, confidence(0.8, 0.9), 1e-12)
}

func TestSelectPeriod_PrefersShortestSubMultiple(t *testing.T) {
	corr := make([]float64, 20)
	corr[5] = 0.97
	corr[10] = 0.99
	corr[15] = 0.2
	period, best, second := selectPeriod(corr, 2, 20)
	assert.Equal(t, 5, period)
	assert.Equal(t, 0.97, best)
	assert.Equal(t, 0.97, second)

	none := make([]float64, 20)
	period, _, _ = selectPeriod(none, 2, 20)
	assert.Equal(t, -1, period)
}

func TestFrequencyToMIDI(t *testing.T) {
	assert.InDelta(t, 69, FrequencyToMIDI(440), 1e-12)
	assert.InDelta(t, 57, FrequencyToMIDI(220), 1e-12)
	assert.InDelta(t, 261.6256, MIDIToFrequency(60), 1e-4)
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
