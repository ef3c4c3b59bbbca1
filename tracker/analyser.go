package tracker

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-recite/algorithms/common"
	"github.com/RyanBlaney/sonido-recite/algorithms/filters"
)

// Frame is one analysis window and its level diagnostics.
type Frame struct {
	Samples    []float64
	SampleRate int
	Peak       float64 // max |x|
	RMS        float64
}

// Conditioner is the analysis tap of a session: Write feeds captured audio
// in, Window snapshots the most recent conditioned block.
type Conditioner interface {
	Write(samples []float64)
	Window() Frame
}

// ConditionerFactory builds the conditioner for a session at start.
type ConditionerFactory func(sampleRate, windowSize int) (Conditioner, error)

// StreamAnalyser runs captured audio through the voice filter chain into a
// fixed-capacity sample ring. Write and Window may be called from different
// goroutines.
type StreamAnalyser struct {
	mu         sync.Mutex
	chain      *filters.FilterChain
	ring       *common.Ring[float64]
	window     []float64
	sampleRate int
}

// NewStreamAnalyser builds the high-pass/low-pass chain for sampleRate and a
// window of windowSize samples.
func NewStreamAnalyser(sampleRate, windowSize int) (*StreamAnalyser, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("tracker: window size must be positive, got %d", windowSize)
	}
	chain, err := filters.NewVoiceChain(sampleRate)
	if err != nil {
		return nil, err
	}
	return &StreamAnalyser{
		chain:      chain,
		ring:       common.NewRing[float64](windowSize),
		window:     make([]float64, windowSize),
		sampleRate: sampleRate,
	}, nil
}

// newDefaultConditioner adapts NewStreamAnalyser to ConditionerFactory.
func newDefaultConditioner(sampleRate, windowSize int) (Conditioner, error) {
	a, err := NewStreamAnalyser(sampleRate, windowSize)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Write filters samples into the ring. Non-finite samples are written as
// silence so one bad value cannot poison the filter state.
func (a *StreamAnalyser) Write(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, x := range samples {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = 0
		}
		a.ring.Push(a.chain.Process(x))
	}
}

// Window returns the latest windowSize conditioned samples without blocking.
// Before enough audio has arrived the front of the window is silence, and
// when no new audio arrived since the last call the same window is returned
// again.
//
// The returned Samples slice is reused by the next call.
func (a *StreamAnalyser) Window() Frame {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ring.CopyLatest(a.window)
	x := a.window
	return Frame{
		Samples:    x,
		SampleRate: a.sampleRate,
		Peak:       floats.Norm(x, math.Inf(1)),
		RMS:        floats.Norm(x, 2) / math.Sqrt(float64(len(x))),
	}
}

// Buffered returns the number of conditioned samples held, up to the window
// size.
func (a *StreamAnalyser) Buffered() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ring.Len()
}

// Reset clears the ring and the filter state.
func (a *StreamAnalyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring.Clear()
	a.chain.Reset()
}
