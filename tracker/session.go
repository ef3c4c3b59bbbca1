package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-recite/algorithms/tonal"
	"github.com/RyanBlaney/sonido-recite/logging"
	"github.com/RyanBlaney/sonido-recite/tracker/config"
)

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stream is a live audio source. Attach starts delivering mono samples to
// sink, possibly from another goroutine, until Detach.
type Stream interface {
	SampleRate() int
	Attach(sink func(samples []float64)) error
	Detach()
}

// Recorder receives session telemetry.
type Recorder interface {
	RecordTick(ctx context.Context, elapsed time.Duration, voiced bool)
	RecordAdjustments(ctx context.Context, outlier, escape, octave bool)
	RecordStartFailure(ctx context.Context, stage string)
	SessionStarted(ctx context.Context)
	SessionStopped(ctx context.Context)
}

type nopRecorder struct{}

func (nopRecorder) RecordTick(context.Context, time.Duration, bool)     {}
func (nopRecorder) RecordAdjustments(context.Context, bool, bool, bool) {}
func (nopRecorder) RecordStartFailure(context.Context, string)          {}
func (nopRecorder) SessionStarted(context.Context)                      {}
func (nopRecorder) SessionStopped(context.Context)                      {}

// Option configures a Session.
type Option func(*Session)

// WithDriver sets the tick driver. Default: a TickerDriver at the configured
// tick interval.
func WithDriver(d Driver) Option {
	return func(s *Session) { s.driver = d }
}

// WithClock sets the time source. Default: the system clock.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the logger. Default: the global logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics sets the telemetry recorder.
func WithMetrics(r Recorder) Option {
	return func(s *Session) { s.metrics = r }
}

// WithConfig sets window size, cadence and ring capacities.
func WithConfig(cfg config.SessionConfig) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithConditionerFactory replaces the filter chain and sample ring with a
// custom analysis tap.
func WithConditionerFactory(f ConditionerFactory) Option {
	return func(s *Session) { s.newConditioner = f }
}

// Session tracks the pitch of one stream from Start to Stop.
//
// Lifecycle: Idle -> Running -> Stopped. A stopped session cannot be
// restarted. While Running, every driver tick emits exactly one PitchPoint,
// voiced or not, so consumers see an unbroken timeline.
type Session struct {
	cfg            config.SessionConfig
	driver         Driver
	clock          Clock
	logger         logging.Logger
	metrics        Recorder
	newConditioner ConditionerFactory

	mu    sync.Mutex
	state State

	// Owned while Running; released on Stop.
	stream      Stream
	conditioner Conditioner
	estimator   *tonal.AutocorrelationEstimator
	stabilizer  *Stabilizer
	filter      config.FilterOptions
	onUpdate    func(PitchPoint)
	origin      time.Time
	now         float64 // seconds since origin at the last tick
	ticks       uint64
}

// NewSession creates an Idle session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		cfg:            config.DefaultSessionConfig(),
		clock:          systemClock{},
		metrics:        nopRecorder{},
		newConditioner: newDefaultConditioner,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.GetGlobalLogger()
	}
	s.logger = s.logger.WithFields(logging.Fields{"component": "pitch_session"})
	return s
}

// Start builds the analysis graph for stream and begins ticking. onUpdate is
// called synchronously from the driver for every tick; it must not block.
// filter may be nil for the defaults, which leave filtering disabled.
//
// Setup failures are returned as *StartError and leave the session Idle.
func (s *Session) Start(stream Stream, onUpdate func(PitchPoint), filter *config.FilterOptions) error {
	ctx := context.Background()
	logger := s.logger.WithFields(logging.Fields{"function": "Start"})

	if onUpdate == nil {
		return ErrNilCallback
	}
	if stream == nil {
		return ErrNilStream
	}

	opts := config.DefaultFilterOptions()
	if filter != nil {
		opts = *filter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Running:
		return ErrAlreadyRunning
	case Stopped:
		return ErrSessionStopped
	}

	fail := func(stage string, err error) error {
		s.metrics.RecordStartFailure(ctx, stage)
		logger.Error(err, "Failed to start pitch session", logging.Fields{"stage": stage})
		return &StartError{Stage: stage, Err: err}
	}

	if err := errors.Join(s.cfg.Validate(), opts.Validate()); err != nil {
		return fail(StageConfig, err)
	}
	if opts.SmoothingWindow > s.cfg.PointHistory {
		return fail(StageConfig, fmt.Errorf("%w: smoothing window %d exceeds point history %d",
			config.ErrInvalidFilterOptions, opts.SmoothingWindow, s.cfg.PointHistory))
	}

	sampleRate := stream.SampleRate()
	if sampleRate <= 0 {
		return fail(StageSampleRate, fmt.Errorf("invalid sample rate %d", sampleRate))
	}

	conditioner, err := s.newConditioner(sampleRate, s.cfg.WindowSize)
	if err != nil {
		return fail(StageFilter, err)
	}

	if s.driver == nil {
		s.driver = NewTickerDriver(s.cfg.TickInterval)
	}

	s.stream = stream
	s.conditioner = conditioner
	s.estimator = tonal.NewAutocorrelationEstimator(tonal.WithFFT(s.cfg.UseFFT))
	s.stabilizer = NewStabilizer(s.cfg.FrequencyWindow, s.cfg.PointHistory)
	s.filter = opts
	s.onUpdate = onUpdate
	s.now = 0
	s.ticks = 0

	if err := stream.Attach(conditioner.Write); err != nil {
		s.release()
		return fail(StageAttach, err)
	}

	s.origin = s.clock.Now()
	if err := s.driver.Schedule(s.tick); err != nil {
		stream.Detach()
		s.release()
		return fail(StageSchedule, err)
	}

	s.state = Running
	s.metrics.SessionStarted(ctx)
	logger.Info("Pitch session started", logging.Fields{
		"sample_rate":    sampleRate,
		"window_size":    s.cfg.WindowSize,
		"filter_enabled": opts.Enabled,
		"use_fft":        s.cfg.UseFFT,
	})
	return nil
}

// tick runs one pass of the pipeline and emits the resulting point. The
// callback is invoked after the session lock is released so it may call Stop.
func (s *Session) tick() {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return
	}

	began := time.Now()
	point, adj := s.process()
	onUpdate := s.onUpdate
	s.mu.Unlock()

	ctx := context.Background()
	s.metrics.RecordTick(ctx, time.Since(began), point.Voiced())
	if adj.Outlier || adj.OutlierEscape || adj.Octave {
		s.metrics.RecordAdjustments(ctx, adj.Outlier, adj.OutlierEscape, adj.Octave)
	}

	onUpdate(point)
}

// process computes the point for the current tick. Caller holds s.mu.
func (s *Session) process() (PitchPoint, Adjustments) {
	t := s.clock.Now().Sub(s.origin).Seconds()
	if t < s.now || math.IsNaN(t) {
		t = s.now
	}
	s.now = t
	s.ticks++

	frame := s.conditioner.Window()
	est := s.estimator.Estimate(frame.Samples, frame.SampleRate, frame.Peak, frame.RMS)
	point := pointFromEstimate(t, est)

	if !s.filter.Enabled {
		return point, Adjustments{}
	}
	point = ApplyPolicy(point, s.filter)
	return s.stabilizer.Process(point, s.filter.SmoothingWindow)
}

// Stop cancels the driver, detaches the stream and releases all buffers.
// It is idempotent. A tick already in flight may still complete, but no new
// point is emitted once Stop returns. Stopping an Idle session moves it to
// Stopped and logs a warning.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.logger.WithFields(logging.Fields{"function": "Stop"})

	switch s.state {
	case Stopped:
		return
	case Idle:
		s.state = Stopped
		logger.Warn("Stop called on a session that was never started")
		return
	}

	s.state = Stopped
	s.driver.Cancel()
	s.stream.Detach()
	s.release()
	s.metrics.SessionStopped(context.Background())

	logger.Info("Pitch session stopped", logging.Fields{
		"ticks":    s.ticks,
		"duration": s.now,
	})
}

// release drops the per-run graph. Caller holds s.mu.
func (s *Session) release() {
	s.stream = nil
	s.conditioner = nil
	s.estimator = nil
	s.stabilizer = nil
	s.onUpdate = nil
}

// IsActive reports whether the session is Running.
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Running
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentTime returns the session time in seconds: the time of the last
// emitted tick. It is 0 before the first tick and frozen after Stop.
func (s *Session) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Ticks returns the number of ticks processed.
func (s *Session) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}
