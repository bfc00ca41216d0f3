// Package telemetry records probe and persistence metrics with OpenTelemetry.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hazz-dev/webcheck/internal/registry"
)

// ScopeName identifies this module's instruments.
const ScopeName = "github.com/hazz-dev/webcheck"

// Snapshot write triggers.
const (
	TriggerMutation = "mutation"
	TriggerCheck    = "check"
	TriggerShutdown = "shutdown"
)

// Instruments holds the metric instruments. A nil *Instruments records nothing.
type Instruments struct {
	probes  metric.Int64Counter
	latency metric.Float64Histogram
	writes  metric.Int64Counter
}

// New creates the instruments on meter.
func New(meter metric.Meter) (*Instruments, error) {
	probes, err := meter.Int64Counter("webcheck.probe.count",
		metric.WithDescription("Number of completed probes"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("webcheck.probe.latency",
		metric.WithDescription("Probe latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	writes, err := meter.Int64Counter("webcheck.snapshot.writes",
		metric.WithDescription("Number of snapshot write attempts"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{probes: probes, latency: latency, writes: writes}, nil
}

// NewGlobal creates the instruments on the global meter provider.
func NewGlobal() (*Instruments, error) {
	return New(otel.Meter(ScopeName))
}

// RecordProbe counts one probe and its latency.
func (i *Instruments) RecordProbe(ctx context.Context, status registry.Status, latencyMs int64) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", string(status)))
	i.probes.Add(ctx, 1, attrs)
	i.latency.Record(ctx, float64(latencyMs), attrs)
}

// RecordSnapshotWrite counts one write attempt for trigger.
func (i *Instruments) RecordSnapshotWrite(ctx context.Context, trigger string, err error) {
	if i == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	i.writes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("result", result),
	))
}
