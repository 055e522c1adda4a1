// Package traces provides utilities for working with OpenTelemetry traces.
package traces

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/getlantern/oauthdance"

// Tracer returns the module's tracer from the global provider. Spans are dropped unless telemetry
// has been initialized.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// RecordError records err on the span in ctx and marks the span as failed. It returns err so it
// can be used inline.
func RecordError(ctx context.Context, err error, options ...trace.EventOption) error {
	if err == nil {
		return nil
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
	return err
}
