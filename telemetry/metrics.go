package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	MetricRequests          = "corehttp.requests"
	MetricParseErrors       = "corehttp.parse_errors"
	MetricActiveConnections = "corehttp.connections.active"
	MetricRequestDuration   = "corehttp.request.duration"
)

// ServerMetrics groups the instruments recorded by the connection loop.
// A nil *ServerMetrics records nothing.
type ServerMetrics struct {
	requests    metric.Int64Counter
	parseErrors metric.Int64Counter
	active      metric.Int64UpDownCounter
	duration    metric.Float64Histogram
}

func NewServerMetrics(meter metric.Meter) (*ServerMetrics, error) {
	var (
		m   ServerMetrics
		err error
	)

	m.requests, err = meter.Int64Counter(MetricRequests,
		metric.WithDescription("The number of requests answered, by method and status code"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	m.parseErrors, err = meter.Int64Counter(MetricParseErrors,
		metric.WithDescription("The number of requests rejected while parsing, by kind"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	m.active, err = meter.Int64UpDownCounter(MetricActiveConnections,
		metric.WithDescription("The number of connections currently being served"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Time from first byte read to response written"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// DefaultServerMetrics registers the instruments on the global meter provider.
func DefaultServerMetrics() (*ServerMetrics, error) {
	return NewServerMetrics(otel.Meter(ScopeName))
}

func (m *ServerMetrics) ConnectionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1)
}

func (m *ServerMetrics) ConnectionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1)
}

func (m *ServerMetrics) RequestHandled(ctx context.Context, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.Int("http.response.status_code", status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *ServerMetrics) ParseFailed(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.parseErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.type", kind)))
}
