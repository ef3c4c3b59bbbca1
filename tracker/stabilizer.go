package tracker

import (
	"github.com/RyanBlaney/sonido-recite/algorithms/common"
	"github.com/RyanBlaney/sonido-recite/algorithms/stats"
)

const (
	// OutlierDeviations is how many standard deviations from the recent mean
	// a frequency may stray before it is replaced by the recent median.
	OutlierDeviations = 2.5

	// MinOutlierHistory is the number of recent frequencies needed before
	// outlier detection runs.
	MinOutlierHistory = 3

	// MaxOutlierRun is the number of consecutive replacements after which the
	// next outlier is admitted and the recent history restarts from it.
	MaxOutlierRun = 3

	octaveUpLow    = 1.9
	octaveUpHigh   = 2.1
	octaveDownLow  = 0.48
	octaveDownHigh = 0.52
)

// Adjustments reports which corrections Stabilizer.Process applied.
type Adjustments struct {
	Outlier       bool // replaced by the recent median
	OutlierEscape bool // admitted after a run of replacements
	Octave        bool // halved or doubled against the previous value
	Smoothed      bool // replaced by the interquartile mean of recent points
}

// Stabilizer removes jitter and gross octave errors from a pitch track.
//
// Voiced points pass through outlier replacement, median smoothing over the
// recent-frequency ring and octave correction against the previous output.
// A null point clears the recent history so nothing carries over a silence
// gap. The point ring is kept across gaps and feeds the optional secondary
// interquartile smoothing.
//
// A Stabilizer is owned by one session and is not safe for concurrent use.
type Stabilizer struct {
	recent *common.Ring[float64]
	points *common.Ring[PitchPoint]

	previous    float64
	hasPrevious bool
	outlierRun  int

	values  []float64
	scratch []float64
}

// NewStabilizer creates a stabilizer with a recent-frequency ring of
// frequencyWindow entries and a point ring of pointHistory entries.
func NewStabilizer(frequencyWindow, pointHistory int) *Stabilizer {
	n := max(frequencyWindow, pointHistory)
	return &Stabilizer{
		recent:  common.NewRing[float64](frequencyWindow),
		points:  common.NewRing[PitchPoint](pointHistory),
		values:  make([]float64, n),
		scratch: make([]float64, n),
	}
}

// Process stabilizes p. smoothingWindow > 1 enables the secondary pass over
// that many most recent points.
func (s *Stabilizer) Process(p PitchPoint, smoothingWindow int) (PitchPoint, Adjustments) {
	var adj Adjustments

	if !p.Frequency.Valid {
		s.recent.Clear()
		s.hasPrevious = false
		s.outlierRun = 0
		s.points.Push(p)
		return p, adj
	}

	f := s.rejectOutlier(p.Frequency.Value, &adj)
	s.recent.Push(f)

	n := s.recent.CopyTo(s.values)
	smoothed := stats.Median(s.values[:n], s.scratch)

	if s.hasPrevious {
		ratio := smoothed / s.previous
		switch {
		case ratio > octaveUpLow && ratio < octaveUpHigh:
			smoothed /= 2
			adj.Octave = true
		case ratio > octaveDownLow && ratio < octaveDownHigh:
			smoothed *= 2
			adj.Octave = true
		}
	}
	s.previous = smoothed
	s.hasPrevious = true

	out := p.WithFrequency(smoothed)
	s.points.Push(out)

	if smoothingWindow > 1 {
		if v, ok := s.secondary(smoothingWindow); ok {
			out = out.WithFrequency(v)
			adj.Smoothed = true
		}
	}
	return out, adj
}

// rejectOutlier returns f, or the recent median when f is an outlier.
func (s *Stabilizer) rejectOutlier(f float64, adj *Adjustments) float64 {
	n := s.recent.CopyTo(s.values)
	recent := s.values[:n]
	if n < MinOutlierHistory || !stats.IsOutlier(f, recent, OutlierDeviations) {
		s.outlierRun = 0
		return f
	}

	if s.outlierRun >= MaxOutlierRun {
		// Sustained departure: treat it as a real pitch change.
		s.recent.Clear()
		s.hasPrevious = false
		s.outlierRun = 0
		adj.OutlierEscape = true
		return f
	}

	s.outlierRun++
	adj.Outlier = true
	return stats.Median(recent, s.scratch)
}

// secondary returns the interquartile mean of the voiced frequencies among
// the last window points.
func (s *Stabilizer) secondary(window int) (float64, bool) {
	total := s.points.Len()
	start := total - min(window, total)

	n := 0
	for i := start; i < total; i++ {
		if pt := s.points.At(i); pt.Frequency.Valid {
			s.values[n] = pt.Frequency.Value
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return stats.InterquartileMean(s.values[:n], s.scratch), true
}

// Reset drops all history.
func (s *Stabilizer) Reset() {
	s.recent.Clear()
	s.points.Clear()
	s.hasPrevious = false
	s.previous = 0
	s.outlierRun = 0
}
