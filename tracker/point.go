package tracker

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/RyanBlaney/sonido-recite/algorithms/tonal"
)

// NullFloat64 is a float that may be absent. It marshals to JSON null when
// Valid is false.
type NullFloat64 struct {
	Value float64
	Valid bool
}

// Float returns a valid NullFloat64 holding v.
func Float(v float64) NullFloat64 {
	return NullFloat64{Value: v, Valid: true}
}

// MarshalJSON implements json.Marshaler.
func (n NullFloat64) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullFloat64) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = NullFloat64{}
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// PitchPoint is one observation emitted per tick.
//
// Time is seconds since the session started. Frequency and MIDI are null for
// silent or unvoiced frames; Time is always set.
type PitchPoint struct {
	Time       float64     `json:"time"`
	Frequency  NullFloat64 `json:"frequency"`
	MIDI       NullFloat64 `json:"midi"`
	Confidence float64     `json:"confidence"`
}

// Voiced reports whether the point carries a frequency.
func (p PitchPoint) Voiced() bool { return p.Frequency.Valid }

// WithFrequency returns a copy of p at frequency f with MIDI recomputed.
// Non-finite or non-positive f yields a null frequency.
func (p PitchPoint) WithFrequency(f float64) PitchPoint {
	if !(f > 0) || math.IsInf(f, 0) {
		return p.Silenced()
	}
	p.Frequency = Float(f)
	p.MIDI = Float(tonal.FrequencyToMIDI(f))
	return p
}

// Silenced returns a copy of p with Frequency and MIDI null. Time and
// Confidence are kept.
func (p PitchPoint) Silenced() PitchPoint {
	p.Frequency = NullFloat64{}
	p.MIDI = NullFloat64{}
	return p
}

// pointFromEstimate converts an estimator result to a point at time t.
func pointFromEstimate(t float64, est tonal.PitchEstimate) PitchPoint {
	p := PitchPoint{Time: t, Confidence: est.Confidence}
	if !est.Voiced {
		return p
	}
	return p.WithFrequency(est.Frequency)
}
