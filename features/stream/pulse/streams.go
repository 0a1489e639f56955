package pulse

import (
	"context"
	"errors"

	clientspulse "goa.design/uistream/features/stream/pulse/clients/pulse"
	"goa.design/uistream/ui"
)

// Streams bundles per-response sink creation and subscription on a shared
// Pulse client so services manage a single Redis connection pool for both
// publishing and consumption.
type Streams struct {
	client clientspulse.Client
}

// StreamsOptions configures the helper returned by NewStreams.
type StreamsOptions struct {
	// Client is the Pulse client used for both publishing and subscribing.
	// Required, typically built via features/stream/pulse/clients/pulse.
	Client clientspulse.Client
}

// NewStreams constructs helpers for publishing UI events to Pulse and
// subscribing to the resulting streams. Callers create one sink per response
// stream and keep the helper around to spawn subscribers (e.g. SSE fan-out)
// later on.
func NewStreams(opts StreamsOptions) (*Streams, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	return &Streams{client: opts.Client}, nil
}

// Sink returns a ui.Sink publishing to the named stream, suitable for
// passing to Pipe.
func (s *Streams) Sink(streamName string) (ui.Sink, error) {
	return NewSink(Options{Client: s.client, StreamName: streamName})
}

// NewSubscriber constructs a subscriber that reuses the helper's client.
func (s *Streams) NewSubscriber(opts SubscriberOptions) (*Subscriber, error) {
	opts.Client = s.client
	return NewSubscriber(opts)
}

// Close releases the underlying Pulse client. Call during service shutdown
// after all subscribers have been canceled.
func (s *Streams) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
