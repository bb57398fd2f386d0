// Package telemetry collects tutor observability: exposition cache
// hit/miss counts, node and turn metrics, and trace spans.
package telemetry

import (
	"context"
	"time"
)

// Recorder receives observability events from the tutor.
// Use NewMetricsRecorder for OTel metrics, NewCacheStats for in-process
// counters, Multi to fan out, or Noop when disabled.
type Recorder interface {
	// RecordCacheLookup records an exposition cache lookup.
	RecordCacheLookup(ctx context.Context, subtopicID int64, hit bool)

	// RecordNodeExecution records one node execution. err is the contained
	// failure, if any.
	RecordNodeExecution(ctx context.Context, node string, duration time.Duration, err error)

	// RecordTurn records a completed turn and how many nodes it executed.
	RecordTurn(ctx context.Context, iterations int, capped bool, duration time.Duration)
}

// Noop is a Recorder that does nothing.
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) RecordCacheLookup(_ context.Context, _ int64, _ bool) {}

func (Noop) RecordNodeExecution(_ context.Context, _ string, _ time.Duration, _ error) {}

func (Noop) RecordTurn(_ context.Context, _ int, _ bool, _ time.Duration) {}

// multi fans events out to several recorders.
type multi []Recorder

// Multi returns a Recorder that forwards every event to each of rs.
// Nil entries are skipped.
func Multi(rs ...Recorder) Recorder {
	var out multi
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) RecordCacheLookup(ctx context.Context, subtopicID int64, hit bool) {
	for _, r := range m {
		r.RecordCacheLookup(ctx, subtopicID, hit)
	}
}

func (m multi) RecordNodeExecution(ctx context.Context, node string, duration time.Duration, err error) {
	for _, r := range m {
		r.RecordNodeExecution(ctx, node, duration, err)
	}
}

func (m multi) RecordTurn(ctx context.Context, iterations int, capped bool, duration time.Duration) {
	for _, r := range m {
		r.RecordTurn(ctx, iterations, capped, duration)
	}
}
