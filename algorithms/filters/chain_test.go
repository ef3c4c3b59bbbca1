package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVoiceChain(t *testing.T) {
	fc, err := NewVoiceChain(44100)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.Len())

	tests := []struct {
		name    string
		freq    float64
		minGain float64
		maxGain float64
	}{
		{"rumble", 20, 0, 0.15},
		{"voice", 440, 0.95, 1.05},
		{"hiss", 10000, 0, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc.Reset()
			buf := sine(tt.freq, 44100, 44100)
			in := steadyRMS(buf)
			fc.ProcessInPlace(buf)
			gain := steadyRMS(buf) / in
			assert.GreaterOrEqual(t, gain, tt.minGain)
			assert.LessOrEqual(t, gain, tt.maxGain)
		})
	}
}

func TestNewVoiceChain_LowSampleRateFails(t *testing.T) {
	_, err := NewVoiceChain(8000)
	assert.Error(t, err)
}

func TestNewFilterChain_Validation(t *testing.T) {
	_, err := NewFilterChain()
	assert.Error(t, err)

	_, err = NewFilterChain(nil)
	assert.Error(t, err)
}

func TestFilterChain_OrderMatchesManualCascade(t *testing.T) {
	hp1, _ := NewHighpass(48000, 100, Butterworth)
	lp1, _ := NewLowpass(48000, 2000, Butterworth)
	hp2, _ := NewHighpass(48000, 100, Butterworth)
	lp2, _ := NewLowpass(48000, 2000, Butterworth)

	fc, err := NewFilterChain(hp1, lp1)
	require.NoError(t, err)

	for i, x := range sine(700, 48000, 512) {
		want := lp2.Process(hp2.Process(x))
		assert.InDelta(t, want, fc.Process(x), 1e-12, "sample %d", i)
	}
}
