// Package telemetry provides the logging and metrics facades used by the
// transducer. Logging delegates to goa.design/clue/log; metrics delegate to
// OpenTelemetry. Both have no-op implementations so the core pipeline carries
// no hard observability requirement.
package telemetry

import (
	"context"
)

type (
	// Logger records structured diagnostic messages. The transducer logs
	// locally recovered conditions (unknown event kinds, orphaned tool
	// results) at debug level; it never logs client-visible errors, which
	// are surfaced on the output stream instead.
	Logger interface {
		// Debug emits a debug-level message with key-value pairs.
		Debug(ctx context.Context, msg string, keyvals ...any)
		// Warn emits a warning-level message with key-value pairs.
		Warn(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records transducer throughput counters.
	Metrics interface {
		// EventConsumed counts one input execution event of the given kind.
		EventConsumed(ctx context.Context, kind string)
		// EventEmitted counts one output UI event of the given type.
		EventEmitted(ctx context.Context, eventType string)
		// EventDropped counts one locally recovered (ignored) input event.
		EventDropped(ctx context.Context, kind, reason string)
		// SyntheticFinish counts one finish event synthesized by the
		// finalization guard.
		SyntheticFinish(ctx context.Context)
	}

	// NopLogger is a Logger that discards all messages.
	NopLogger struct{}

	// NopMetrics is a Metrics recorder that discards all counts.
	NopMetrics struct{}
)

// Debug implements Logger.
func (NopLogger) Debug(context.Context, string, ...any) {}

// Warn implements Logger.
func (NopLogger) Warn(context.Context, string, ...any) {}

// EventConsumed implements Metrics.
func (NopMetrics) EventConsumed(context.Context, string) {}

// EventEmitted implements Metrics.
func (NopMetrics) EventEmitted(context.Context, string) {}

// EventDropped implements Metrics.
func (NopMetrics) EventDropped(context.Context, string, string) {}

// SyntheticFinish implements Metrics.
func (NopMetrics) SyntheticFinish(context.Context) {}
