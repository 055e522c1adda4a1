// Package metrics records OpenTelemetry metrics for authorization dances.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metricsManager struct {
	meter       metric.Meter
	outcomes    metric.Int64Counter
	legDuration metric.Float64Histogram
	legFailures metric.Int64Counter
}

var metrics = newMetricsManager(otel.GetMeterProvider())

func newMetricsManager(provider metric.MeterProvider) *metricsManager {
	meter := provider.Meter("github.com/getlantern/oauthdance")
	outcomes, err := meter.Int64Counter("oauth_dance.outcomes",
		metric.WithDescription("Terminated dances by outcome"))
	if err != nil {
		outcomes = noop.Int64Counter{}
	}
	legDuration, err := meter.Float64Histogram("oauth_dance.leg_duration",
		metric.WithDescription("Duration of provider calls"), metric.WithUnit("s"))
	if err != nil {
		legDuration = noop.Float64Histogram{}
	}
	legFailures, err := meter.Int64Counter("oauth_dance.leg_failures",
		metric.WithDescription("Failed provider calls"))
	if err != nil {
		legFailures = noop.Int64Counter{}
	}
	return &metricsManager{
		meter:       meter,
		outcomes:    outcomes,
		legDuration: legDuration,
		legFailures: legFailures,
	}
}

// RecordOutcome counts a terminated dance. outcome is "success" or the error kind.
func RecordOutcome(ctx context.Context, outcome string) {
	metrics.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordLeg records the duration of a provider call and whether it failed.
func RecordLeg(ctx context.Context, leg string, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("leg", leg))
	metrics.legDuration.Record(ctx, d.Seconds(), attrs)
	if err != nil {
		metrics.legFailures.Add(ctx, 1, attrs)
	}
}
