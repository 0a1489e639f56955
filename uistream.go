// Package uistream converts flat execution event sequences produced by an
// agent executor into UI-facing event streams and immutable conversation
// snapshots. The transducer demultiplexes interleaved nested runs by run ID,
// drives per-part state machines, and guarantees a well-formed terminal
// event even when the upstream sequence ends abruptly.
//
// Two consumption modes are supported. Streaming mode pulls UI events one at
// a time for live delivery:
//
//	t := uistream.Stream(src)
//	for {
//		ev, err := t.Next(ctx)
//		if err == io.EOF {
//			break
//		}
//		...
//	}
//
// Accumulation mode folds the whole stream into a message list suitable for
// persistence, continuing the prior conversation's trailing assistant
// message when there is one:
//
//	msgs, err := uistream.Messages(ctx, src, prior)
package uistream

import (
	"context"
	"errors"
	"io"

	"goa.design/uistream/conversation"
	"goa.design/uistream/event"
	"goa.design/uistream/transducer"
	"goa.design/uistream/ui"
)

// Option configures a transduction run.
type Option = transducer.Option

// Source supplies execution events in order.
type Source = transducer.Source

// Re-exported options so callers rarely need the transducer package
// directly.
var (
	WithProfile   = transducer.WithProfile
	WithMessageID = transducer.WithMessageID
	WithLogger    = transducer.WithLogger
	WithMetrics   = transducer.WithMetrics
)

// Stream returns a pull transducer over src. The caller drives it with Next
// until io.EOF.
func Stream(src Source, opts ...Option) *transducer.Transducer {
	return transducer.New(src, opts...)
}

// FromSlice wraps a fixed event sequence as a Source.
func FromSlice(events ...event.Event) Source {
	return transducer.SliceSource(events...)
}

// Messages transduces src to completion and folds the resulting UI events
// into prior, returning the updated conversation. The response message ID is
// resolved from the trailing message of prior so a continuation extends
// rather than duplicates the client's last assistant message. The input
// slice is never mutated.
func Messages(ctx context.Context, src Source, prior []ui.Message, opts ...Option) ([]ui.Message, error) {
	id := conversation.ResolveMessageID(prior)
	t := transducer.New(src, append(opts, transducer.WithMessageID(id))...)
	msgs := prior
	for {
		ev, err := t.Next(ctx)
		if errors.Is(err, io.EOF) {
			return msgs, nil
		}
		if err != nil {
			return msgs, err
		}
		msgs = conversation.Apply(msgs, ev)
	}
}

// Pipe transduces src to completion, sending every UI event to sink. The
// sink is closed on return, including on error. The first error from the
// transducer or the sink aborts the run.
func Pipe(ctx context.Context, src Source, sink ui.Sink, opts ...Option) (err error) {
	defer func() {
		if cerr := sink.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	t := transducer.New(src, opts...)
	for {
		ev, nerr := t.Next(ctx)
		if errors.Is(nerr, io.EOF) {
			return nil
		}
		if nerr != nil {
			return nerr
		}
		if serr := sink.Send(ctx, ev); serr != nil {
			return serr
		}
	}
}
