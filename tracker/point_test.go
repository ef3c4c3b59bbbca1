package tracker

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-recite/algorithms/tonal"
)

func TestPitchPoint_JSON(t *testing.T) {
	voiced := PitchPoint{Time: 0.5, Confidence: 0.8}.WithFrequency(440)
	b, err := json.Marshal(voiced)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":0.5,"frequency":440,"midi":69,"confidence":0.8}`, string(b))

	silent := PitchPoint{Time: 1.25}
	b, err = json.Marshal(silent)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":1.25,"frequency":null,"midi":null,"confidence":0}`, string(b))

	var back PitchPoint
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, silent, back)

	require.NoError(t, json.Unmarshal([]byte(`{"time":2,"frequency":220,"midi":57,"confidence":0.5}`), &back))
	assert.Equal(t, Float(220), back.Frequency)
	assert.Equal(t, Float(57), back.MIDI)
}

func TestPitchPoint_WithFrequency(t *testing.T) {
	p := PitchPoint{Time: 3, Confidence: 0.7}.WithFrequency(220)
	assert.True(t, p.Voiced())
	assert.InDelta(t, 57, p.MIDI.Value, 1e-9)
	assert.Equal(t, 3.0, p.Time)
	assert.Equal(t, 0.7, p.Confidence)

	for _, bad := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		q := p.WithFrequency(bad)
		assert.False(t, q.Voiced(), "%v", bad)
		assert.False(t, q.MIDI.Valid, "%v", bad)
		assert.Equal(t, 0.7, q.Confidence)
	}
}

func TestPointFromEstimate(t *testing.T) {
	p := pointFromEstimate(1.5, tonal.PitchEstimate{})
	assert.Equal(t, PitchPoint{Time: 1.5}, p)

	p = pointFromEstimate(2, tonal.PitchEstimate{Frequency: 261.6256, Confidence: 0.9, Voiced: true})
	assert.InDelta(t, 60, p.MIDI.Value, 1e-4)
	assert.Equal(t, 0.9, p.Confidence)
}
