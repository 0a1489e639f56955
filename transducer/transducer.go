package transducer

import (
	"context"
	"errors"
	"io"

	"goa.design/uistream/event"
	"goa.design/uistream/telemetry"
	"goa.design/uistream/ui"
)

type (
	// Source supplies execution events to a transducer. Next blocks until an
	// event is available, the source is exhausted (io.EOF), or ctx is done.
	// Events must be delivered in issuance order per run ID; events for
	// different runs may interleave arbitrarily.
	Source interface {
		Next(ctx context.Context) (event.Event, error)
	}

	// Transducer is the pull-based pipeline stage transforming execution
	// events into UI events. Each call to Next consumes just enough input to
	// produce one output, so production stays lazy and allocation stays
	// proportional to the event, not the stream.
	//
	// A Transducer serves exactly one logical stream and is not safe for
	// concurrent use.
	Transducer struct {
		src      Source
		d        *dispatcher
		guard    guard
		pending  []ui.Event
		done     bool
		released bool
	}

	// Option customizes a Transducer.
	Option func(*options)

	options struct {
		profile   Profile
		messageID string
		logger    telemetry.Logger
		metrics   telemetry.Metrics
	}

	// sliceSource replays a fixed event slice. It is the Source used by
	// tests and by callers that already hold the full sequence.
	sliceSource struct {
		events []event.Event
		next   int
	}
)

// WithProfile selects which UI event families are emitted. Defaults to
// DefaultProfile.
func WithProfile(p Profile) Option {
	return func(o *options) { o.profile = p }
}

// WithMessageID sets the identifier stamped on the opening start event.
// Continuations pass the trailing assistant message ID of the prior
// conversation here (see the conversation package); when unset the start
// event carries an empty ID and the assembler generates one.
func WithMessageID(id string) Option {
	return func(o *options) { o.messageID = id }
}

// WithLogger sets the diagnostic logger. Defaults to the no-op logger.
func WithLogger(l telemetry.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics recorder. Defaults to the no-op recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New constructs a Transducer reading from src. The buffer store is private
// to the returned transducer and is released when the stream ends, errors,
// or is canceled.
func New(src Source, opts ...Option) *Transducer {
	o := options{
		profile: DefaultProfile(),
		logger:  telemetry.NopLogger{},
		metrics: telemetry.NopMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Transducer{
		src: src,
		d: &dispatcher{
			store:     NewStore(),
			profile:   o.profile,
			messageID: o.messageID,
			logger:    o.logger,
			metrics:   o.metrics,
		},
	}
}

// Next returns the next UI event. It returns io.EOF when the stream is
// complete, ctx.Err() when canceled, and a fatal error (such as a
// *FormatError) when the input violates the caller data contract. After any
// error return the transducer has released its buffers and must not be used
// again.
func (t *Transducer) Next(ctx context.Context) (ui.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			t.release()
			return nil, err
		}
		if len(t.pending) > 0 {
			ev := t.pending[0]
			t.pending = t.pending[1:]
			t.guard.Observe(ev)
			return ev, nil
		}
		if t.done {
			if fin, ok := t.guard.Terminal(); ok {
				t.d.metrics.SyntheticFinish(ctx)
				t.d.metrics.EventEmitted(ctx, string(ui.EventFinish))
				return fin, nil
			}
			t.release()
			return nil, io.EOF
		}
		in, err := t.src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.done = true
				continue
			}
			t.release()
			return nil, err
		}
		t.d.metrics.EventConsumed(ctx, string(in.Kind()))
		out, err := t.d.Apply(ctx, in)
		if err != nil {
			t.release()
			return nil, err
		}
		t.pending = append(t.pending, out...)
	}
}

// Drain pulls the remaining events into a slice. It is a convenience for
// callers that want the whole output at once; streaming consumers should
// call Next directly.
func (t *Transducer) Drain(ctx context.Context) ([]ui.Event, error) {
	var out []ui.Event
	for {
		ev, err := t.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

// release disposes the buffer store. Idempotent.
func (t *Transducer) release() {
	if t.released {
		return
	}
	t.released = true
	t.pending = nil
	t.d.store.Reset()
}

// SliceSource returns a Source replaying the given events in order.
func SliceSource(events ...event.Event) Source {
	return &sliceSource{events: events}
}

// Next implements Source.
func (s *sliceSource) Next(ctx context.Context) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.next]
	s.next++
	return ev, nil
}
