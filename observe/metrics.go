// Package observe records pitch tracker telemetry through the OpenTelemetry
// metrics API. InitProvider bridges the instruments to a Prometheus exporter
// so they can be scraped from /metrics. Tests should build Metrics with
// NewMetrics and their own MeterProvider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all tracker metrics.
const meterName = "github.com/RyanBlaney/sonido-recite"

// Metrics holds the metric instruments of the pitch tracker.
// All fields are safe for concurrent use.
type Metrics struct {
	// TickDuration tracks the time spent computing one pitch point.
	TickDuration metric.Float64Histogram

	// Ticks counts emitted points. Use with attribute:
	//   attribute.Bool("voiced", ...)
	Ticks metric.Int64Counter

	// OutlierCorrections counts stabilizer outlier handling. Use with attribute:
	//   attribute.String("action", "replaced"|"admitted")
	OutlierCorrections metric.Int64Counter

	// OctaveCorrections counts halved or doubled frequencies.
	OctaveCorrections metric.Int64Counter

	// StartFailures counts failed session starts. Use with attribute:
	//   attribute.String("stage", ...)
	StartFailures metric.Int64Counter

	// ActiveSessions tracks the number of running sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// tickBuckets are histogram bounds in seconds. A tick has one frame
// (about 16.7 ms at 60 Hz) to finish.
var tickBuckets = []float64{
	0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.032, 0.064,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TickDuration, err = m.Float64Histogram("recite.tick.duration",
		metric.WithDescription("Time spent computing one pitch point."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(tickBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Ticks, err = m.Int64Counter("recite.ticks",
		metric.WithDescription("Pitch points emitted, by voicing."),
	); err != nil {
		return nil, err
	}
	if met.OutlierCorrections, err = m.Int64Counter("recite.stabilizer.outliers",
		metric.WithDescription("Outlier frequencies replaced by the recent median or admitted after a run."),
	); err != nil {
		return nil, err
	}
	if met.OctaveCorrections, err = m.Int64Counter("recite.stabilizer.octaves",
		metric.WithDescription("Frequencies halved or doubled against the previous value."),
	); err != nil {
		return nil, err
	}
	if met.StartFailures, err = m.Int64Counter("recite.session.start_failures",
		metric.WithDescription("Failed session starts by stage."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("recite.active_sessions",
		metric.WithDescription("Number of running pitch sessions."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics built on the global
// MeterProvider. Call it after InitProvider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordTick records one emitted point.
func (m *Metrics) RecordTick(ctx context.Context, elapsed time.Duration, voiced bool) {
	m.TickDuration.Record(ctx, elapsed.Seconds())
	m.Ticks.Add(ctx, 1, metric.WithAttributes(attribute.Bool("voiced", voiced)))
}

// RecordAdjustments records the corrections applied by the stabilizer.
func (m *Metrics) RecordAdjustments(ctx context.Context, outlier, escape, octave bool) {
	if outlier {
		m.OutlierCorrections.Add(ctx, 1, metric.WithAttributes(attribute.String("action", "replaced")))
	}
	if escape {
		m.OutlierCorrections.Add(ctx, 1, metric.WithAttributes(attribute.String("action", "admitted")))
	}
	if octave {
		m.OctaveCorrections.Add(ctx, 1)
	}
}

// RecordStartFailure records a failed session start.
func (m *Metrics) RecordStartFailure(ctx context.Context, stage string) {
	m.StartFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	m.ActiveSessions.Add(ctx, 1)
}

// SessionStopped decrements the active session gauge.
func (m *Metrics) SessionStopped(ctx context.Context) {
	m.ActiveSessions.Add(ctx, -1)
}
