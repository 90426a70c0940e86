// Package metrics records connection and request counters through the
// OpenTelemetry metric API. With no MeterProvider configured every
// instrument is a no-op.
package metrics

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ScopeName is the instrumentation scope used for all instruments.
const ScopeName = "github.com/sagarc03/hearth"

// Recorder holds the server's instruments.
type Recorder struct {
	accepted metric.Int64Counter
	active   metric.Int64UpDownCounter
	requests metric.Int64Counter
	bytes    metric.Int64Counter
	timeouts metric.Int64Counter
}

// New creates the instruments on provider. A nil provider yields a no-op recorder.
func New(provider metric.MeterProvider) (*Recorder, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(ScopeName)

	var (
		r   Recorder
		err error
	)

	r.accepted, err = meter.Int64Counter("hearth.connections.accepted",
		metric.WithDescription("Connections accepted by the listener"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("create accepted counter: %w", err)
	}

	r.active, err = meter.Int64UpDownCounter("hearth.connections.active",
		metric.WithDescription("Connections currently open"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("create active counter: %w", err)
	}

	r.requests, err = meter.Int64Counter("hearth.requests",
		metric.WithDescription("Responses written, by method and status"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("create requests counter: %w", err)
	}

	r.bytes, err = meter.Int64Counter("hearth.response.bytes",
		metric.WithDescription("Bytes written to clients, head included"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("create bytes counter: %w", err)
	}

	r.timeouts, err = meter.Int64Counter("hearth.timeouts",
		metric.WithDescription("Connections closed by the idle timeout"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("create timeouts counter: %w", err)
	}

	return &r, nil
}

// Noop returns a recorder whose instruments discard everything.
func Noop() *Recorder {
	r, err := New(noop.NewMeterProvider())
	if err != nil {
		// noop instruments never fail to register
		panic(err)
	}
	return r
}

// ConnectionOpened records an accepted connection.
func (r *Recorder) ConnectionOpened(ctx context.Context) {
	r.accepted.Add(ctx, 1)
	r.active.Add(ctx, 1)
}

// ConnectionClosed records the end of a connection.
func (r *Recorder) ConnectionClosed(ctx context.Context) {
	r.active.Add(ctx, -1)
}

// RequestServed records one written response.
func (r *Recorder) RequestServed(ctx context.Context, method string, status int, written int64) {
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.response.status_code", strconv.Itoa(status)),
	)
	r.requests.Add(ctx, 1, attrs)
	r.bytes.Add(ctx, written)
}

// TimedOut records a connection closed by the idle timeout.
func (r *Recorder) TimedOut(ctx context.Context) {
	r.timeouts.Add(ctx, 1)
}
