// Package telemetry exports traces and metrics over OTLP/gRPC when an endpoint is configured.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"google.golang.org/grpc/credentials"

	"github.com/getlantern/oauthdance/common"
)

const serviceName = "oauthdance"

var (
	initMutex    sync.Mutex
	shutdownOTEL func(context.Context) error
	stopHarvest  func()
)

// Config selects what is exported and where.
type Config struct {
	Endpoint string
	Headers  map[string]string
	DeviceID string
	// Insecure disables TLS towards the collector.
	Insecure        bool
	SampleRate      float64
	MetricsInterval time.Duration
	TracesEnabled   bool
	MetricsEnabled  bool
}

type Attributes struct {
	App        string
	DeviceID   string
	AppVersion string
	GoVersion  string
	Platform   string
	OSName     string
	OSArch     string
}

func defaultAttributes(deviceID string) Attributes {
	return Attributes{
		App:        common.Name,
		DeviceID:   deviceID,
		AppVersion: common.Version,
		GoVersion:  runtime.Version(),
		Platform:   common.Platform,
		OSName:     runtime.GOOS,
		OSArch:     runtime.GOARCH,
	}
}

// Init installs the global tracer and meter providers. It replaces any pipeline set up by a
// previous call and does nothing when no endpoint is configured.
func Init(ctx context.Context, cfg Config) error {
	initMutex.Lock()
	defer initMutex.Unlock()

	if cfg.Endpoint == "" {
		slog.Debug("No otel endpoint configured, skipping OpenTelemetry initialization")
		return nil
	}

	if shutdownOTEL != nil {
		slog.Info("Shutting down existing OpenTelemetry SDK")
		if err := shutdownOTEL(ctx); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry SDK", "error", err)
			return fmt.Errorf("failed to shutdown OpenTelemetry SDK: %w", err)
		}
		shutdownOTEL = nil
	}

	shutdown, err := setupOTelSDK(ctx, defaultAttributes(cfg.DeviceID), cfg)
	if err != nil {
		slog.Error("Failed to start OpenTelemetry SDK", "error", err)
		return fmt.Errorf("failed to start OpenTelemetry SDK: %w", err)
	}
	shutdownOTEL = shutdown
	return nil
}

// Close stops pool harvesting and flushes and shuts down the exporters.
func Close(ctx context.Context) error {
	initMutex.Lock()
	defer initMutex.Unlock()

	if stopHarvest != nil {
		stopHarvest()
		stopHarvest = nil
	}

	var errs error
	if shutdownOTEL != nil {
		slog.Info("Shutting down OpenTelemetry SDK")
		if err := shutdownOTEL(ctx); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry SDK", "error", err)
			errs = errors.Join(errs, fmt.Errorf("failed to shutdown OpenTelemetry SDK: %w", err))
		}
		shutdownOTEL = nil
	}
	return errs
}

func buildResources(a Attributes) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(a.AppVersion),
		attribute.String("app", a.App),
		attribute.String("device.id", a.DeviceID),
		attribute.String("library.language", "go"),
		attribute.String("library.language.version", a.GoVersion),
		attribute.String("platform", a.Platform),
		attribute.String("os.name", a.OSName),
		attribute.String("os.arch", a.OSArch),
	}
}

// setupOTelSDK bootstraps the OpenTelemetry pipeline.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func setupOTelSDK(ctx context.Context, attributes Attributes, cfg Config) (func(context.Context) error, error) {
	if !cfg.TracesEnabled && !cfg.MetricsEnabled {
		return func(context.Context) error { return nil }, nil
	}
	var shutdownFuncs []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}
	res, err := resource.New(ctx, resource.WithAttributes(buildResources(attributes)...))
	if err != nil {
		return shutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.TracesEnabled {
		shutdownFunc, err := initTracer(ctx, res, cfg)
		if err != nil {
			return shutdown, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		shutdownFuncs = append(shutdownFuncs, shutdownFunc)
		slog.Info("OpenTelemetry tracer initialized", "endpoint", cfg.Endpoint)
	}

	if cfg.MetricsEnabled {
		shutdownFunc, err := initMeterProvider(ctx, res, cfg)
		if err != nil {
			return shutdown, fmt.Errorf("failed to initialize meter provider: %w", err)
		}
		shutdownFuncs = append(shutdownFuncs, shutdownFunc)
		slog.Info("OpenTelemetry meter provider initialized", "endpoint", cfg.Endpoint)
	}

	return shutdown, nil
}

func initTracer(ctx context.Context, res *resource.Resource, cfg Config) (func(context.Context) error, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithHeaders(cfg.Headers),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	return func(ctx context.Context) error {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %w", err)
		}
		if err := exporter.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown exporter: %w", err)
		}
		return nil
	}, nil
}

// Initializes an OTLP exporter, and configures the corresponding meter provider.
func initMeterProvider(ctx context.Context, res *resource.Resource, cfg Config) (func(context.Context) error, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithHeaders(cfg.Headers),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	} else {
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	metricExporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricsInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricsInterval))
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, readerOpts...)),
	)
	otel.SetMeterProvider(meterProvider)

	return meterProvider.Shutdown, nil
}
