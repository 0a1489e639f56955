package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	streamopts "goa.design/pulse/streaming/options"

	clientspulse "goa.design/uistream/features/stream/pulse/clients/pulse"
	"goa.design/uistream/ui"
)

type (
	// EnvelopeDecoder converts raw payloads read from Pulse into UI events.
	// Custom decoders handle non-standard envelope formats.
	EnvelopeDecoder func([]byte) (ui.Event, error)

	// SubscriberOptions configures a Pulse-backed subscriber.
	SubscriberOptions struct {
		// Client is the Pulse client used to consume events. Required.
		Client clientspulse.Client
		// SinkName identifies the Pulse consumer group. Defaults to
		// "uistream_subscriber".
		SinkName string
		// Buffer specifies the event channel capacity. Defaults to 64.
		Buffer int
		// Decoder deserializes event payloads. Defaults to the built-in
		// JSON envelope decoder.
		Decoder EnvelopeDecoder
	}

	// Subscriber consumes a Pulse stream and emits the UI events published
	// by a Sink.
	Subscriber struct {
		client clientspulse.Client
		buffer int
		name   string
		decode EnvelopeDecoder
	}

	// decodedEvent implements ui.Event for Pulse-decoded envelopes. Its
	// payload is the raw JSON body; consumers decode it per event type.
	decodedEvent struct {
		t ui.EventType
		m string
		b json.RawMessage
	}
)

func (e decodedEvent) Type() ui.EventType { return e.t }
func (e decodedEvent) MessageID() string  { return e.m }
func (e decodedEvent) Payload() any       { return e.b }

// NewSubscriber constructs a Pulse-backed subscriber. The Client field in
// opts is required; the remaining fields default per their documentation.
func NewSubscriber(opts SubscriberOptions) (*Subscriber, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	name := opts.SinkName
	if name == "" {
		name = "uistream_subscriber"
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	decoder := opts.Decoder
	if decoder == nil {
		decoder = decodeEnvelope
	}
	return &Subscriber{
		client: opts.Client,
		buffer: buffer,
		name:   name,
		decode: decoder,
	}, nil
}

// Subscribe opens a consumer group on the named stream and returns channels
// for events and errors. A goroutine consumes entries, decodes them, and
// acks each one after emission. The returned cancel function stops
// consumption, closes the Pulse sink, and closes both channels.
//
// Usage:
//
//	events, errs, cancel, err := sub.Subscribe(ctx, "response/abc123")
//	defer cancel()
//	for evt := range events {
//	    // relay event
//	}
func (s *Subscriber) Subscribe(
	ctx context.Context,
	streamName string,
	opts ...streamopts.Sink,
) (<-chan ui.Event, <-chan error, context.CancelFunc, error) {
	str, err := s.client.Stream(streamName)
	if err != nil {
		return nil, nil, nil, err
	}
	sink, err := str.NewSink(ctx, s.name, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	events := make(chan ui.Event, s.buffer)
	errs := make(chan error, 1)
	runCtx, cancel := context.WithCancel(ctx)
	go s.consume(runCtx, sink, events, errs)
	cancelFunc := func() {
		cancel()
		sink.Close(context.Background())
	}
	return events, errs, cancelFunc, nil
}

// consume reads entries from the Pulse sink channel, decodes them, and emits
// them on out. Each entry is acked after successful emission. Both channels
// close when ctx is canceled or the sink channel closes; decode and ack
// failures are reported on errs before returning.
func (s *Subscriber) consume(ctx context.Context, sink clientspulse.Sink, out chan<- ui.Event, errs chan<- error) {
	defer close(out)
	defer close(errs)
	ch := sink.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			decoded, err := s.decode(evt.Payload)
			if err != nil {
				errs <- fmt.Errorf("pulse decode payload: %w", err)
				return
			}
			select {
			case out <- decoded:
			case <-ctx.Done():
				return
			}
			if ackErr := sink.Ack(ctx, evt); ackErr != nil {
				errs <- fmt.Errorf("pulse ack: %w", ackErr)
				return
			}
		}
	}
}

// decodeEnvelope deserializes the default JSON envelope format.
func decodeEnvelope(payload []byte) (ui.Event, error) {
	var env struct {
		Type      string          `json:"type"`
		MessageID string          `json:"message_id"`
		Timestamp time.Time       `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	return decodedEvent{
		t: ui.EventType(env.Type),
		m: env.MessageID,
		b: env.Payload,
	}, nil
}
