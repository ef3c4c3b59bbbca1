package tracker

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

const testRate = 44100

func sine(freq float64, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return out
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeStream hands the session's sink back to the test.
type fakeStream struct {
	rate      int
	attachErr error

	mu       sync.Mutex
	sink     func([]float64)
	detached int
}

func (s *fakeStream) SampleRate() int { return s.rate }

func (s *fakeStream) Attach(sink func([]float64)) error {
	if s.attachErr != nil {
		return s.attachErr
	}
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) Detach() {
	s.mu.Lock()
	s.sink = nil
	s.detached++
	s.mu.Unlock()
}

func (s *fakeStream) Push(samples []float64) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(samples)
	}
}

func (s *fakeStream) Detached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}

// scriptedConditioner returns prepared frames in order, repeating the last.
type scriptedConditioner struct {
	frames []Frame
	next   int
}

func (c *scriptedConditioner) Write([]float64) {}

func (c *scriptedConditioner) Window() Frame {
	f := c.frames[min(c.next, len(c.frames)-1)]
	c.next++
	return f
}

func frameOf(samples []float64) Frame {
	peak, sum := 0.0, 0.0
	for _, v := range samples {
		peak = math.Max(peak, math.Abs(v))
		sum += v * v
	}
	return Frame{Samples: samples, SampleRate: testRate, Peak: peak, RMS: math.Sqrt(sum / float64(len(samples)))}
}

// collector records emitted points.
type collector struct {
	mu     sync.Mutex
	points []PitchPoint
}

func (c *collector) add(p PitchPoint) {
	c.mu.Lock()
	c.points = append(c.points, p)
	c.mu.Unlock()
}

func (c *collector) all() []PitchPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PitchPoint(nil), c.points...)
}

// countingRecorder counts telemetry calls.
type countingRecorder struct {
	mu            sync.Mutex
	ticks         int
	voiced        int
	outliers      int
	octaves       int
	startFailures []string
	started       int
	ended         int
}

func (r *countingRecorder) RecordTick(_ context.Context, _ time.Duration, voiced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
	if voiced {
		r.voiced++
	}
}

func (r *countingRecorder) RecordAdjustments(_ context.Context, outlier, _, octave bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if outlier {
		r.outliers++
	}
	if octave {
		r.octaves++
	}
}

func (r *countingRecorder) RecordStartFailure(_ context.Context, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startFailures = append(r.startFailures, stage)
}

func (r *countingRecorder) SessionStarted(context.Context) {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()
}

func (r *countingRecorder) SessionStopped(context.Context) {
	r.mu.Lock()
	r.ended++
	r.mu.Unlock()
}

var errAttach = errors.New("device busy")
