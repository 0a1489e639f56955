// Package pulse exposes a ui.Sink implementation that publishes UI events to
// goa.design/pulse streams, and a subscriber that reads them back. Services
// build a Redis client, wrap it in a Pulse client, and hand the resulting
// sink to Pipe; a UI gateway subscribes to the same stream to relay events
// to connected clients.
package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	clientspulse "goa.design/uistream/features/stream/pulse/clients/pulse"
	"goa.design/uistream/ui"
)

type (
	// Options configures the Pulse sink.
	Options struct {
		// Client is the Pulse client used to publish events. Required.
		Client clientspulse.Client
		// StreamName is the Pulse stream the sink publishes to, typically
		// one per response. Required.
		StreamName string
		// MarshalEnvelope overrides the envelope serialization, primarily
		// for tests.
		MarshalEnvelope func(Envelope) ([]byte, error)
	}

	// Sink publishes UI events into a Pulse stream. Safe for concurrent
	// Send calls.
	Sink struct {
		stream  clientspulse.Stream
		client  clientspulse.Client
		marshal func(Envelope) ([]byte, error)
	}

	// Envelope wraps UI events for transmission over Pulse streams.
	Envelope struct {
		// Type identifies the event kind (e.g. "text-delta", "finish").
		Type string `json:"type"`
		// MessageID identifies the UI message the event addresses, when the
		// event carries one.
		MessageID string `json:"message_id,omitempty"`
		// Timestamp records when the event was published (UTC).
		Timestamp time.Time `json:"timestamp"`
		// Payload carries the event-specific data, if any.
		Payload any `json:"payload,omitempty"`
	}
)

// NewSink constructs a Pulse-backed UI event sink publishing to the named
// stream.
func NewSink(opts Options) (*Sink, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	if opts.StreamName == "" {
		return nil, errors.New("stream name is required")
	}
	stream, err := opts.Client.Stream(opts.StreamName)
	if err != nil {
		return nil, err
	}
	marshal := opts.MarshalEnvelope
	if marshal == nil {
		marshal = defaultMarshal
	}
	return &Sink{stream: stream, client: opts.Client, marshal: marshal}, nil
}

// Send wraps the event in an envelope and publishes it.
func (s *Sink) Send(ctx context.Context, event ui.Event) error {
	env := Envelope{
		Type:      string(event.Type()),
		MessageID: event.MessageID(),
		Timestamp: time.Now().UTC(),
		Payload:   event.Payload(),
	}
	payload, err := s.marshal(env)
	if err != nil {
		return err
	}
	_, err = s.stream.Add(ctx, env.Type, payload)
	return err
}

// Close releases resources owned by the sink. The underlying Redis
// connection belongs to the caller and stays open.
func (s *Sink) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func defaultMarshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
