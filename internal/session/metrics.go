package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type sessionMetrics struct {
	started   metric.Int64Counter
	completed metric.Int64Counter
	duration  metric.Float64Histogram
}

func newSessionMetrics() (*sessionMetrics, error) {
	meter := otel.Meter("github.com/dungle-scrubs/hisohiso-sub001/session")

	started, err := meter.Int64Counter("hisohiso.sessions.started",
		metric.WithDescription("Dictation sessions activated"))
	if err != nil {
		return nil, err
	}
	completed, err := meter.Int64Counter("hisohiso.sessions.completed",
		metric.WithDescription("Dictation sessions finished, by outcome"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("hisohiso.sessions.duration_seconds",
		metric.WithDescription("Wall-clock session duration"))
	if err != nil {
		return nil, err
	}
	return &sessionMetrics{started: started, completed: completed, duration: duration}, nil
}

func (m *sessionMetrics) recordStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.started.Add(ctx, 1)
}

func (m *sessionMetrics) recordFinish(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.completed.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
