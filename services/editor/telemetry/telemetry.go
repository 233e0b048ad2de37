// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrNilContext indicates a nil context was passed to Init.
	ErrNilContext = errors.New("context must not be nil")

	// ErrUnknownExporter indicates an unrecognized exporter name.
	ErrUnknownExporter = errors.New("unknown exporter")
)

// Config controls telemetry behavior.
//
// All fields have sensible defaults via DefaultConfig().
type Config struct {
	// ServiceName identifies this service in traces and metrics.
	ServiceName string `json:"service_name"`

	// ServiceVersion is the version string for this service.
	ServiceVersion string `json:"service_version"`

	// Environment identifies the deployment environment (development, production).
	Environment string `json:"environment"`

	// TraceExporter selects the trace exporter: "otlp", "stdout", or "none".
	TraceExporter string `json:"trace_exporter"`

	// MetricExporter selects the metric exporter: "prometheus", "stdout", or "none".
	MetricExporter string `json:"metric_exporter"`

	// OTLPEndpoint is the OTLP receiver endpoint for traces.
	OTLPEndpoint string `json:"otlp_endpoint"`

	// OTLPInsecure disables TLS verification for OTLP connections.
	OTLPInsecure bool `json:"otlp_insecure"`
}

// DefaultConfig returns opinionated defaults for local development.
//
// Environment variables override defaults where applicable:
//   - DRIFTLOCK_ENV: environment name
//   - OTEL_TRACES_EXPORTER: trace exporter type
//   - OTEL_METRICS_EXPORTER: metric exporter type
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint
func DefaultConfig() Config {
	return Config{
		ServiceName:    "driftlock",
		ServiceVersion: "1.0.0",
		Environment:    getEnvOr("DRIFTLOCK_ENV", "development"),
		TraceExporter:  getEnvOr("OTEL_TRACES_EXPORTER", "none"),
		MetricExporter: getEnvOr("OTEL_METRICS_EXPORTER", "prometheus"),
		OTLPEndpoint:   getEnvOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   true,
	}
}

// Init initializes the telemetry stack with the given configuration.
//
// Description:
//
//	Sets up OpenTelemetry TracerProvider and MeterProvider based on the
//	configuration. After Init returns successfully, otel.Tracer() and
//	otel.Meter() can be used throughout the application.
//
// Inputs:
//
//	ctx - Context for initialization (used for exporter connections).
//	cfg - Telemetry configuration. Use DefaultConfig() for sensible defaults.
//
// Outputs:
//
//	shutdown - Function to call on application exit for cleanup. Must be called.
//	error - Non-nil if initialization fails.
//
// Thread Safety: Call once at application startup.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	var shutdownFuncs []func(context.Context) error

	shutdown = func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdownFuncs {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("shutdown errors: %v", errs)
		}
		return nil
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	if cfg.TraceExporter != "none" {
		tp, err := initTracer(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		otel.SetTracerProvider(tp)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	}

	if cfg.MetricExporter != "none" {
		mp, err := initMeter(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("init meter: %w", err)
		}
		otel.SetMeterProvider(mp)
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
	}

	return shutdown, nil
}

// initTracer creates and returns a configured TracerProvider.
func initTracer(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	var exporter trace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "otlp":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)

	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}

	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.AlwaysSample()),
	)

	return tp, nil
}

// initMeter creates and returns a configured MeterProvider.
func initMeter(_ context.Context, cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := promexporter.New()
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}

		// The OTel prometheus exporter registers with the default
		// prometheus registry, so promhttp.Handler() includes our metrics.
		prometheusHandlerMu.Lock()
		prometheusHandler = promhttp.Handler()
		prometheusHandlerMu.Unlock()

		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(exporter),
		), nil

	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}

		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(exporter)),
		), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.MetricExporter)
	}
}

// prometheusHandler stores the Prometheus exporter's HTTP handler.
// Access via MetricsHandler().
var (
	prometheusHandler   http.Handler
	prometheusHandlerMu sync.RWMutex
)

// MetricsHandler returns the HTTP handler for the /metrics endpoint.
//
// Returns nil if metrics are disabled or a different exporter is used.
//
// Thread Safety: Safe for concurrent use.
func MetricsHandler() http.Handler {
	prometheusHandlerMu.RLock()
	defer prometheusHandlerMu.RUnlock()
	return prometheusHandler
}

// getEnvOr returns the environment variable value or the fallback.
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
