package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records per-operation counters and durations through an
// OpenTelemetry meter exported on the Prometheus registry.
type Observability struct {
	meterProvider     *metric.MeterProvider
	operationCounter  otelmetric.Int64Counter
	operationDuration otelmetric.Float64Histogram
}

// New wires the OpenTelemetry prometheus exporter. On failure it returns a
// no-op instance so metrics never block serving requests.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return newWithProvider(provider, serviceName), nil
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	counter, _ := meter.Int64Counter(
		"operations.processed",
		otelmetric.WithDescription("Number of core operations processed"),
	)

	duration, _ := meter.Float64Histogram(
		"operations.duration",
		otelmetric.WithDescription("Core operation duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:     provider,
		operationCounter:  counter,
		operationDuration: duration,
	}
}

// NewNoop returns an instance that records nothing.
func NewNoop() *Observability {
	return &Observability{}
}

// RecordOperation records one finished operation such as "lead.create".
func (o *Observability) RecordOperation(ctx context.Context, operation, status string, elapsed time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	if o.operationCounter != nil {
		o.operationCounter.Add(ctx, 1, attrs)
	}
	if o.operationDuration != nil {
		o.operationDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
