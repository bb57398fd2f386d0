package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/abhisek/bloom"

// otelMetrics implements Recorder using OpenTelemetry instruments.
type otelMetrics struct {
	cacheLookups   metric.Int64Counter
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeContained  metric.Int64Counter
	turns          metric.Int64Counter
	turnIterations metric.Int64Histogram
	turnLatency    metric.Float64Histogram
}

func newOtelMetrics(mp metric.MeterProvider) (*otelMetrics, error) {
	meter := mp.Meter(instrumentationName)

	cacheLookups, err := meter.Int64Counter("bloom.exposition.cache.lookups",
		metric.WithDescription("Exposition cache lookups by result (hit or miss)"),
	)
	if err != nil {
		return nil, err
	}

	nodeExecutions, err := meter.Int64Counter("bloom.tutor.node.executions",
		metric.WithDescription("Number of tutor node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeLatency, err := meter.Float64Histogram("bloom.tutor.node.latency_ms",
		metric.WithDescription("Tutor node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeContained, err := meter.Int64Counter("bloom.tutor.node.contained",
		metric.WithDescription("Node executions that ended in a contained failure"),
	)
	if err != nil {
		return nil, err
	}

	turns, err := meter.Int64Counter("bloom.tutor.turns",
		metric.WithDescription("Number of completed tutor turns"),
	)
	if err != nil {
		return nil, err
	}

	turnIterations, err := meter.Int64Histogram("bloom.tutor.turn.iterations",
		metric.WithDescription("Node executions per turn"),
	)
	if err != nil {
		return nil, err
	}

	turnLatency, err := meter.Float64Histogram("bloom.tutor.turn.latency_ms",
		metric.WithDescription("Turn latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		cacheLookups:   cacheLookups,
		nodeExecutions: nodeExecutions,
		nodeLatency:    nodeLatency,
		nodeContained:  nodeContained,
		turns:          turns,
		turnIterations: turnIterations,
		turnLatency:    turnLatency,
	}, nil
}

// NewMetricsRecorder returns a Recorder backed by OpenTelemetry metrics
// from mp, or from the global meter provider when mp is nil. If the
// instruments cannot be created it logs and returns Noop.
func NewMetricsRecorder(mp metric.MeterProvider) Recorder {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m, err := newOtelMetrics(mp)
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return Noop{}
	}
	return m
}

func (m *otelMetrics) RecordCacheLookup(ctx context.Context, _ int64, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, node string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node", node))

	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.nodeContained.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordTurn(ctx context.Context, iterations int, capped bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("capped", capped))

	m.turns.Add(ctx, 1, attrs)
	m.turnIterations.Record(ctx, int64(iterations), attrs)
	m.turnLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}
