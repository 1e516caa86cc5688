package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce             sync.Once
	metricsInitErr          error
	handlerExecutionCounter metric.Int64Counter
	handlerTerminateCounter metric.Int64Counter
	handlerFailureCounter   metric.Int64Counter
	handlerLatencyHistogram metric.Float64Histogram
)

// HandlerMetrics captures the fields needed to record one handler execution.
type HandlerMetrics struct {
	RunID     string
	HandlerID string
	Kind      string
	Outcome   Outcome
	Duration  time.Duration
}

// RecordHandlerExecution emits counters and histograms that describe handler
// execution behaviour.
func RecordHandlerExecution(ctx context.Context, metrics HandlerMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("run.id", metrics.RunID),
		attribute.String("handler.id", metrics.HandlerID),
		attribute.String("handler.kind", metrics.Kind),
		attribute.String("handler.outcome", string(metrics.Outcome)),
	}

	handlerExecutionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if metrics.Duration > 0 {
		handlerLatencyHistogram.Record(ctx, float64(metrics.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	switch metrics.Outcome {
	case OutcomeTerminate:
		handlerTerminateCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	case OutcomeFailure:
		handlerFailureCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("slime.pipeline")

		handlerExecutionCounter, metricsInitErr = meter.Int64Counter(
			"slime.handler.executions_total",
			metric.WithDescription("Handler executions partitioned by outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		handlerTerminateCounter, metricsInitErr = meter.Int64Counter(
			"slime.handler.terminations_total",
			metric.WithDescription("Terminate signals passing through handlers"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		handlerFailureCounter, metricsInitErr = meter.Int64Counter(
			"slime.handler.failures_total",
			metric.WithDescription("Handler failures surfacing from node boundaries"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		handlerLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"slime.handler.duration_ms",
			metric.WithDescription("Observed handler execution latency"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}
