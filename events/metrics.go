package events

import (
	"context"
	"fmt"
	"time"

	"github.com/GolferGeek/predictor-pipeline/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// MetricsProvider implements core.MetricsRegistry on top of the
// OpenTelemetry SDK. It is the sole concrete metrics backend wired into
// the composition root; the console/stdout exporter is used because the
// pipeline has no bundled collector endpoint to target (the design's
// Non-goals exclude a concrete observability backend) — an operator who
// wants a different destination swaps the reader in NewMetricsProvider.
type MetricsProvider struct {
	meter          metric.Meter
	meterProvider  *sdkmetric.MeterProvider
	counters       counterCache
	histograms     histogramCache
	cardinality    *cardinalityLimiter
}

// NewMetricsProvider creates a provider exporting to stdout on a 30s
// periodic reader, matching the cadence the pack's OTel integrations
// use elsewhere.
func NewMetricsProvider(serviceName string) (*MetricsProvider, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithoutTimestamps())
	if err != nil {
		return nil, fmt.Errorf("create stdout metric exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)

	return &MetricsProvider{
		meter:         mp.Meter("predictor-pipeline"),
		meterProvider: mp,
		counters:      newCounterCache(),
		histograms:    newHistogramCache(),
		cardinality: newCardinalityLimiter(map[string]int{
			"target_symbol": 200,
			"analyst_id":    100,
			"source":        50,
			"error_kind":    20,
		}),
	}, nil
}

// Counter implements core.MetricsRegistry, incrementing name by one.
func (p *MetricsProvider) Counter(name string, labels ...string) {
	attrs := p.attrs(name, labels...)
	inst, err := p.counters.get(p.meter, name)
	if err != nil {
		return
	}
	inst.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// Gauge implements core.MetricsRegistry. The SDK models gauges via
// synchronous histograms recording a single observation; this matches
// the simplification the pack's own provider uses for ungrouped gauges.
func (p *MetricsProvider) Gauge(name string, value float64, labels ...string) {
	p.Histogram(name, value, labels...)
}

// Histogram implements core.MetricsRegistry.
func (p *MetricsProvider) Histogram(name string, value float64, labels ...string) {
	attrs := p.attrs(name, labels...)
	inst, err := p.histograms.get(p.meter, name)
	if err != nil {
		return
	}
	inst.Record(context.Background(), value, metric.WithAttributes(attrs...))
}

// EmitWithContext implements core.MetricsRegistry. Context carries no
// extra baggage today; it is accepted so callers can pass request-scoped
// context without a type assertion.
func (p *MetricsProvider) EmitWithContext(_ context.Context, name string, value float64, labels ...string) {
	p.Histogram(name, value, labels...)
}

func (p *MetricsProvider) attrs(name string, labels ...string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		key, val := labels[i], labels[i+1]
		attrs = append(attrs, attribute.String(key, p.cardinality.checkAndLimit(name, key, val)))
	}
	return attrs
}

// Shutdown flushes and stops the metric provider.
func (p *MetricsProvider) Shutdown(ctx context.Context) error {
	p.cardinality.Stop()
	return p.meterProvider.Shutdown(ctx)
}

var _ core.MetricsRegistry = (*MetricsProvider)(nil)
