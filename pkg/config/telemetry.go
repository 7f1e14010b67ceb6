package config

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/version"
)

// StdoutEndpoint as telemetry endpoint writes metrics and traces to stdout
const StdoutEndpoint = "stdout"

type Telemetry struct {
	ctx    context.Context
	meter  *metric.MeterProvider
	tracer *sdktrace.TracerProvider
	logger *log.Logger
}

func (t Telemetry) Shutdown() {
	t.logger.Info("Shutting down telemetry")
	if err := t.meter.Shutdown(t.ctx); err != nil {
		t.logger.Warn("Could not shutdown meter provider", log.ErrorField(err))
	}
	if err := t.tracer.Shutdown(t.ctx); err != nil {
		t.logger.Warn("Could not shutdown tracer provider", log.ErrorField(err))
	}
}

func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	l := log.Default().Named("telemetry")
	metricExp, traceExp, err := createExporters(ctx)
	if err != nil {
		return nil, err
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", "ccs"),
		attribute.String("service.version", version.Version),
	)
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExp,
			metric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(mp)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExp),
	)
	otel.SetTracerProvider(tp)
	l.Info("Telemetry enabled", log.String("endpoint", TelemetryEndpoint))
	return &Telemetry{ctx: ctx, meter: mp, tracer: tp, logger: l}, nil
}

//nolint:whitespace // can't make both editor and linter happy
func createExporters(ctx context.Context) (
	metric.Exporter, sdktrace.SpanExporter, error,
) {
	if TelemetryEndpoint == StdoutEndpoint {
		me, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, nil, err
		}
		te, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
		if err != nil {
			return nil, nil, err
		}
		return me, te, nil
	}
	me, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
		otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	te, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(TelemetryEndpoint),
		otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	return me, te, nil
}
