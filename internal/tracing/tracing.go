// Package tracing configures an OpenTelemetry TracerProvider for the
// daemon, wrapping scheduler ticks, RPC round trips, and process
// spawns as spans.
package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Provider owns the process-wide TracerProvider and a named Tracer for
// gaveld spans.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer oteltrace.Tracer
	log    *zap.Logger
}

// New builds a Provider. It exports to stdout unless
// OTEL_EXPORTER_OTLP_ENDPOINT is set, in which case it uses OTLP/HTTP.
func New(log *zap.Logger) (*Provider, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var exporter sdktrace.SpanExporter
	var err error
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		exporter, err = otlptrace.New(context.Background(),
			otlptracehttp.NewClient(
				otlptracehttp.WithEndpoint(endpoint),
				otlptracehttp.WithInsecure(),
			))
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	if err != nil {
		return nil, err
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String("gaveld")),
	)
	if err != nil {
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp, tracer: tp.Tracer("gaveld"), log: log}, nil
}

// StartSpan starts a span named name with the given attributes.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	if p == nil {
		return ctx, oteltrace.SpanFromContext(ctx)
	}
	return p.tracer.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// End records err (if any) on span and closes it.
func End(span oteltrace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Shutdown flushes and stops the provider. Exporter failures are
// logged and never propagate — tracing must never block the daemon.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil || p.tp == nil {
		return
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		p.log.Warn("tracing shutdown failed", zap.Error(err))
	}
}
