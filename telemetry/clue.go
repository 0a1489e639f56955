package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"goa.design/clue/log"
)

type (
	// ClueLogger delegates to goa.design/clue/log. The logger reads
	// formatting and debug settings from the context (set via log.Context
	// and log.WithFormat/log.WithDebug).
	ClueLogger struct{}

	// OtelMetrics records transducer counters through the global OTEL
	// MeterProvider. Configure the provider before constructing the
	// transducer (typically via clue.ConfigureOpenTelemetry).
	OtelMetrics struct {
		consumed  metric.Int64Counter
		emitted   metric.Int64Counter
		dropped   metric.Int64Counter
		synthetic metric.Int64Counter
	}
)

// NewClueLogger constructs a Logger that delegates to goa.design/clue/log.
func NewClueLogger() Logger {
	return ClueLogger{}
}

// Debug emits a debug-level log message with structured key-value pairs.
func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, toFielders(msg, keyvals)...)
}

// Warn emits a warning-level log message with structured key-value pairs.
func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	log.Warn(ctx, toFielders(msg, keyvals)...)
}

func toFielders(msg string, keyvals []any) []log.Fielder {
	fielders := make([]log.Fielder, 0, len(keyvals)/2+1)
	fielders = append(fielders, log.KV{K: "msg", V: msg})
	for i := 0; i+1 < len(keyvals); i += 2 {
		fielders = append(fielders, log.KV{K: fmt.Sprint(keyvals[i]), V: keyvals[i+1]})
	}
	return fielders
}

// NewOtelMetrics constructs a Metrics recorder backed by the global OTEL
// MeterProvider. Counter creation failures degrade to missing instruments
// rather than errors; recording on a nil instrument is a no-op.
func NewOtelMetrics() Metrics {
	meter := otel.Meter("goa.design/uistream")
	m := &OtelMetrics{}
	m.consumed, _ = meter.Int64Counter("uistream.events.consumed",
		metric.WithDescription("Execution events consumed by the transducer"))
	m.emitted, _ = meter.Int64Counter("uistream.events.emitted",
		metric.WithDescription("UI events emitted by the transducer"))
	m.dropped, _ = meter.Int64Counter("uistream.events.dropped",
		metric.WithDescription("Execution events ignored as forward-compatible no-ops"))
	m.synthetic, _ = meter.Int64Counter("uistream.finish.synthesized",
		metric.WithDescription("Finish events synthesized by the finalization guard"))
	return m
}

// EventConsumed implements Metrics.
func (m *OtelMetrics) EventConsumed(ctx context.Context, kind string) {
	if m.consumed != nil {
		m.consumed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

// EventEmitted implements Metrics.
func (m *OtelMetrics) EventEmitted(ctx context.Context, eventType string) {
	if m.emitted != nil {
		m.emitted.Add(ctx, 1, metric.WithAttributes(attribute.String("type", eventType)))
	}
}

// EventDropped implements Metrics.
func (m *OtelMetrics) EventDropped(ctx context.Context, kind, reason string) {
	if m.dropped != nil {
		m.dropped.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("reason", reason),
		))
	}
}

// SyntheticFinish implements Metrics.
func (m *OtelMetrics) SyntheticFinish(ctx context.Context) {
	if m.synthetic != nil {
		m.synthetic.Add(ctx, 1)
	}
}
