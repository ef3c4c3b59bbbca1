package filters

import "fmt"

const (
	// VoiceHighpassHz removes rumble below the lowest sung fundamental
	VoiceHighpassHz = 60.0
	// VoiceLowpassHz removes hiss above the range that carries pitch cues
	VoiceLowpassHz = 4000.0
)

// Stage is one step of a FilterChain.
type Stage interface {
	Process(x float64) float64
	Reset()
}

// FilterChain runs samples through a fixed, ordered list of stages.
// The stage list cannot change after construction.
type FilterChain struct {
	stages []Stage
}

// NewFilterChain builds a chain from stages in processing order.
func NewFilterChain(stages ...Stage) (*FilterChain, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("filters: chain needs at least one stage")
	}
	for i, s := range stages {
		if s == nil {
			return nil, fmt.Errorf("filters: chain stage %d is nil", i)
		}
	}
	return &FilterChain{stages: append([]Stage(nil), stages...)}, nil
}

// NewVoiceChain builds the conditioning chain used ahead of pitch analysis:
// a 60 Hz high-pass followed by a 4 kHz low-pass, both Butterworth.
//
// Sample rates at or below 8 kHz cannot host the low-pass and are rejected.
func NewVoiceChain(sampleRate int) (*FilterChain, error) {
	hp, err := NewHighpass(sampleRate, VoiceHighpassHz, Butterworth)
	if err != nil {
		return nil, fmt.Errorf("filters: voice chain high-pass: %w", err)
	}
	lp, err := NewLowpass(sampleRate, VoiceLowpassHz, Butterworth)
	if err != nil {
		return nil, fmt.Errorf("filters: voice chain low-pass: %w", err)
	}
	return NewFilterChain(hp, lp)
}

// Process runs one sample through every stage.
func (fc *FilterChain) Process(x float64) float64 {
	for _, s := range fc.stages {
		x = s.Process(x)
	}
	return x
}

// ProcessInPlace filters buf in place.
func (fc *FilterChain) ProcessInPlace(buf []float64) {
	for i, x := range buf {
		buf[i] = fc.Process(x)
	}
}

// Reset clears the state of every stage.
func (fc *FilterChain) Reset() {
	for _, s := range fc.stages {
		s.Reset()
	}
}

// Len returns the number of stages.
func (fc *FilterChain) Len() int { return len(fc.stages) }
