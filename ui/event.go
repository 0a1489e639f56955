// Package ui defines the client-facing output vocabulary of the transducer:
// the UI event stream emitted in streaming mode and the UI message list
// produced in accumulation mode. UI events differ from execution events:
// execution events describe what the executor did, while UI events describe
// how a client should update its rendered conversation.
//
// All event types implement the Event interface and embed Base to provide the
// standard accessors. Sinks use the Event interface to marshal events
// generically; consumers type-assert to concrete types for structured field
// access.
package ui

import (
	"context"
	"encoding/json"
)

type (
	// Sink delivers UI events to clients over a transport (SSE, WebSocket,
	// Pulse). Implementations must be safe for concurrent Send calls and are
	// responsible for marshaling events into their wire format.
	Sink interface {
		// Send publishes an event to the sink's underlying transport. Send
		// returns an error when delivery fails; callers stop streaming on the
		// first Send error so failures surface immediately rather than
		// silently dropping events.
		Send(ctx context.Context, event Event) error

		// Close releases resources owned by the sink. Close is idempotent;
		// after Close returns, subsequent Send calls must return errors. The
		// context bounds graceful shutdown.
		Close(ctx context.Context) error
	}

	// Event describes a single UI stream event. Concrete event types embed
	// Base for the standard accessors and carry a typed Data payload.
	Event interface {
		// Type returns the event type constant (e.g., EventTextDelta). Data
		// events return the dynamic "data-<name>" form.
		Type() EventType
		// MessageID returns the identifier of the UI message this event
		// belongs to. Only Start events are required to carry it; other
		// events may return the empty string and attach to the message
		// opened by the most recent Start.
		MessageID() string
		// Payload returns the event-specific data in a JSON-serializable
		// form. Sinks use this for generic marshaling.
		Payload() any
	}

	// Start opens a new UI message. In continuation mode the message ID
	// equals the identifier of the trailing assistant message of the prior
	// conversation so clients extend rather than duplicate it.
	Start struct {
		Base
		Data StartPayload
	}

	// TextStart opens a streaming text part.
	TextStart struct {
		Base
		Data TextStartPayload
	}

	// TextDelta appends a text fragment to an open text part. Clients
	// concatenate Delta values in arrival order; the transducer applies no
	// normalization or trimming.
	TextDelta struct {
		Base
		Data TextDeltaPayload
	}

	// TextEnd closes a streaming text part.
	TextEnd struct {
		Base
		Data TextEndPayload
	}

	// ReasoningStart opens a streaming reasoning part.
	ReasoningStart struct {
		Base
		Data ReasoningStartPayload
	}

	// ReasoningDelta appends a reasoning fragment to an open reasoning part.
	ReasoningDelta struct {
		Base
		Data ReasoningDeltaPayload
	}

	// ReasoningEnd closes a streaming reasoning part.
	ReasoningEnd struct {
		Base
		Data ReasoningEndPayload
	}

	// ToolInputAvailable reports that a tool call's arguments are fully
	// materialized and the call is executing.
	ToolInputAvailable struct {
		Base
		Data ToolInputAvailablePayload
	}

	// ToolOutputAvailable reports a successful tool completion. It always
	// addresses a prior ToolInputAvailable by tool call ID.
	ToolOutputAvailable struct {
		Base
		Data ToolOutputAvailablePayload
	}

	// ToolOutputError reports a failed tool completion.
	ToolOutputError struct {
		Base
		Data ToolOutputErrorPayload
	}

	// SourceURL references a web URL the executor consulted.
	SourceURL struct {
		Base
		Data SourceURLPayload
	}

	// SourceDocument references a document the executor consulted.
	SourceDocument struct {
		Base
		Data SourceDocumentPayload
	}

	// File references a file produced by the executor.
	File struct {
		Base
		Data FilePayload
	}

	// Data carries an opaque, caller-defined payload under a "data-<name>"
	// type tag. The payload is required to be non-nil; the transducer
	// enforces this before emission.
	Data struct {
		Base
		// Name is the data tag; Type() returns "data-<Name>".
		Name string
		// Payload is the opaque JSON-serializable payload. Never nil.
		Data any
	}

	// Error surfaces an upstream execution error to the client. ErrorText is
	// the verbatim string cause, or the JSON serialization of an object
	// cause; it is never replaced by a generic placeholder.
	Error struct {
		Base
		Data ErrorPayload
	}

	// Finish is the terminal event of a UI message stream. Exactly one
	// Finish is delivered per stream: either the executor's own or one
	// synthesized by the finalization guard after an interruption.
	Finish struct {
		Base
		Data FinishPayload
	}

	// MessageMetadata carries caller-supplied metadata to merge into the
	// current UI message.
	MessageMetadata struct {
		Base
		Data MessageMetadataPayload
	}

	// StartPayload is the typed wire payload for Start events.
	StartPayload struct {
		// MessageID identifies the UI message being opened.
		MessageID string `json:"message_id"`
	}

	// TextStartPayload is the typed wire payload for TextStart events.
	TextStartPayload struct {
		// ID identifies the text part within the message.
		ID string `json:"id"`
	}

	// TextDeltaPayload is the typed wire payload for TextDelta events.
	TextDeltaPayload struct {
		// ID identifies the text part the fragment belongs to.
		ID string `json:"id"`
		// Delta is the raw text fragment.
		Delta string `json:"delta"`
	}

	// TextEndPayload is the typed wire payload for TextEnd events.
	TextEndPayload struct {
		// ID identifies the text part being closed.
		ID string `json:"id"`
	}

	// ReasoningStartPayload is the typed wire payload for ReasoningStart.
	ReasoningStartPayload struct {
		// ID identifies the reasoning part within the message.
		ID string `json:"id"`
	}

	// ReasoningDeltaPayload is the typed wire payload for ReasoningDelta.
	ReasoningDeltaPayload struct {
		// ID identifies the reasoning part the fragment belongs to.
		ID string `json:"id"`
		// Delta is the raw reasoning fragment.
		Delta string `json:"delta"`
	}

	// ReasoningEndPayload is the typed wire payload for ReasoningEnd.
	ReasoningEndPayload struct {
		// ID identifies the reasoning part being closed.
		ID string `json:"id"`
	}

	// ToolInputAvailablePayload is the typed wire payload for
	// ToolInputAvailable events.
	ToolInputAvailablePayload struct {
		// ToolCallID uniquely identifies the tool invocation.
		ToolCallID string `json:"tool_call_id"`
		// ToolName is the tool identifier as known to the executor.
		ToolName string `json:"tool_name"`
		// Input contains the canonical JSON tool arguments.
		Input json.RawMessage `json:"input,omitempty"`
	}

	// ToolOutputAvailablePayload is the typed wire payload for
	// ToolOutputAvailable events.
	ToolOutputAvailablePayload struct {
		// ToolCallID correlates with the prior ToolInputAvailable event.
		ToolCallID string `json:"tool_call_id"`
		// Output contains the canonical JSON tool output.
		Output json.RawMessage `json:"output,omitempty"`
	}

	// ToolOutputErrorPayload is the typed wire payload for ToolOutputError
	// events.
	ToolOutputErrorPayload struct {
		// ToolCallID correlates with the prior ToolInputAvailable event.
		ToolCallID string `json:"tool_call_id"`
		// ErrorText is the human-readable failure description.
		ErrorText string `json:"error_text"`
	}

	// SourceURLPayload is the typed wire payload for SourceURL events.
	SourceURLPayload struct {
		// SourceID uniquely identifies the source.
		SourceID string `json:"source_id"`
		// URL locates the source.
		URL string `json:"url"`
		// Title is an optional human-readable title.
		Title string `json:"title,omitempty"`
	}

	// SourceDocumentPayload is the typed wire payload for SourceDocument
	// events.
	SourceDocumentPayload struct {
		// SourceID uniquely identifies the source.
		SourceID string `json:"source_id"`
		// MediaType is the IANA media type of the document.
		MediaType string `json:"media_type"`
		// Title is an optional human-readable title.
		Title string `json:"title,omitempty"`
		// Filename is an optional document filename.
		Filename string `json:"filename,omitempty"`
	}

	// FilePayload is the typed wire payload for File events.
	FilePayload struct {
		// MediaType is the IANA media type of the file.
		MediaType string `json:"media_type"`
		// URL locates the file contents.
		URL string `json:"url"`
	}

	// ErrorPayload is the typed wire payload for Error events.
	ErrorPayload struct {
		// ErrorText is the verbatim string cause or the JSON serialization
		// of an object cause.
		ErrorText string `json:"error_text"`
	}

	// FinishPayload is the typed wire payload for Finish events.
	FinishPayload struct {
		// Reason is the finish reason (e.g., "stop", "tool-calls"). Streams
		// terminated by the finalization guard carry FinishReasonOther.
		Reason string `json:"finish_reason"`
		// Usage holds final token usage counters when reported.
		Usage *UsagePayload `json:"usage,omitempty"`
	}

	// UsagePayload reports token usage counters on the wire.
	UsagePayload struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	}

	// MessageMetadataPayload is the typed wire payload for MessageMetadata
	// events.
	MessageMetadataPayload struct {
		// Metadata is merged into the current message's metadata.
		Metadata map[string]any `json:"metadata"`
	}

	// TripwirePayload is the payload of "data-tripwire" events, which
	// surface policy-triggered interruptions of a run.
	TripwirePayload struct {
		// Reason is the human-readable interruption reason.
		Reason string `json:"reason"`
	}

	// Base provides a default implementation of Event. Embed it in concrete
	// event types to inherit the Type, MessageID, and Payload methods.
	Base struct {
		t EventType
		m string
		p any
	}
)

// EventType enumerates UI event flavors. Data events use the dynamic
// "data-<name>" form.
type EventType string

const (
	// EventStart opens a new UI message.
	EventStart EventType = "start"
	// EventTextStart opens a streaming text part.
	EventTextStart EventType = "text-start"
	// EventTextDelta appends a fragment to an open text part.
	EventTextDelta EventType = "text-delta"
	// EventTextEnd closes a streaming text part.
	EventTextEnd EventType = "text-end"
	// EventReasoningStart opens a streaming reasoning part.
	EventReasoningStart EventType = "reasoning-start"
	// EventReasoningDelta appends a fragment to an open reasoning part.
	EventReasoningDelta EventType = "reasoning-delta"
	// EventReasoningEnd closes a streaming reasoning part.
	EventReasoningEnd EventType = "reasoning-end"
	// EventToolInputAvailable reports materialized tool arguments.
	EventToolInputAvailable EventType = "tool-input-available"
	// EventToolOutputAvailable reports a successful tool completion.
	EventToolOutputAvailable EventType = "tool-output-available"
	// EventToolOutputError reports a failed tool completion.
	EventToolOutputError EventType = "tool-output-error"
	// EventSourceURL references a consulted web URL.
	EventSourceURL EventType = "source-url"
	// EventSourceDocument references a consulted document.
	EventSourceDocument EventType = "source-document"
	// EventFile references a produced file.
	EventFile EventType = "file"
	// EventError surfaces an upstream execution error.
	EventError EventType = "error"
	// EventFinish terminates a UI message stream.
	EventFinish EventType = "finish"
	// EventMessageMetadata merges metadata into the current message.
	EventMessageMetadata EventType = "message-metadata"
)

// FinishReasonOther marks a finish event synthesized by the finalization
// guard when the upstream sequence closed without its own terminal event.
const FinishReasonOther = "other"

// DataTripwire is the data tag under which policy interruptions surface on
// the UI stream.
const DataTripwire = "tripwire"

// DataEventType returns the dynamic event type for a data event with the
// given name.
func DataEventType(name string) EventType {
	return EventType("data-" + name)
}

// NewBase constructs a Base with the given type, message ID, and payload.
func NewBase(t EventType, messageID string, payload any) Base {
	return Base{t: t, m: messageID, p: payload}
}

// Type implements Event.Type.
func (e Base) Type() EventType { return e.t }

// MessageID implements Event.MessageID.
func (e Base) MessageID() string { return e.m }

// Payload implements Event.Payload.
func (e Base) Payload() any { return e.p }

// Type returns the dynamic "data-<name>" event type.
func (e Data) Type() EventType { return DataEventType(e.Name) }

// Payload returns the opaque data payload.
func (e Data) Payload() any { return e.Data }

// NewStart constructs a Start event opening the message with the given ID.
func NewStart(messageID string) Start {
	p := StartPayload{MessageID: messageID}
	return Start{Base: NewBase(EventStart, messageID, p), Data: p}
}

// NewTextStart constructs a TextStart event for the given part ID.
func NewTextStart(id string) TextStart {
	p := TextStartPayload{ID: id}
	return TextStart{Base: NewBase(EventTextStart, "", p), Data: p}
}

// NewTextDelta constructs a TextDelta event for the given part ID.
func NewTextDelta(id, delta string) TextDelta {
	p := TextDeltaPayload{ID: id, Delta: delta}
	return TextDelta{Base: NewBase(EventTextDelta, "", p), Data: p}
}

// NewTextEnd constructs a TextEnd event for the given part ID.
func NewTextEnd(id string) TextEnd {
	p := TextEndPayload{ID: id}
	return TextEnd{Base: NewBase(EventTextEnd, "", p), Data: p}
}

// NewReasoningStart constructs a ReasoningStart event for the given part ID.
func NewReasoningStart(id string) ReasoningStart {
	p := ReasoningStartPayload{ID: id}
	return ReasoningStart{Base: NewBase(EventReasoningStart, "", p), Data: p}
}

// NewReasoningDelta constructs a ReasoningDelta event for the given part ID.
func NewReasoningDelta(id, delta string) ReasoningDelta {
	p := ReasoningDeltaPayload{ID: id, Delta: delta}
	return ReasoningDelta{Base: NewBase(EventReasoningDelta, "", p), Data: p}
}

// NewReasoningEnd constructs a ReasoningEnd event for the given part ID.
func NewReasoningEnd(id string) ReasoningEnd {
	p := ReasoningEndPayload{ID: id}
	return ReasoningEnd{Base: NewBase(EventReasoningEnd, "", p), Data: p}
}

// NewToolInputAvailable constructs a ToolInputAvailable event.
func NewToolInputAvailable(toolCallID, toolName string, input json.RawMessage) ToolInputAvailable {
	p := ToolInputAvailablePayload{ToolCallID: toolCallID, ToolName: toolName, Input: input}
	return ToolInputAvailable{Base: NewBase(EventToolInputAvailable, "", p), Data: p}
}

// NewToolOutputAvailable constructs a ToolOutputAvailable event.
func NewToolOutputAvailable(toolCallID string, output json.RawMessage) ToolOutputAvailable {
	p := ToolOutputAvailablePayload{ToolCallID: toolCallID, Output: output}
	return ToolOutputAvailable{Base: NewBase(EventToolOutputAvailable, "", p), Data: p}
}

// NewToolOutputError constructs a ToolOutputError event.
func NewToolOutputError(toolCallID, errorText string) ToolOutputError {
	p := ToolOutputErrorPayload{ToolCallID: toolCallID, ErrorText: errorText}
	return ToolOutputError{Base: NewBase(EventToolOutputError, "", p), Data: p}
}

// NewSourceURL constructs a SourceURL event.
func NewSourceURL(sourceID, url, title string) SourceURL {
	p := SourceURLPayload{SourceID: sourceID, URL: url, Title: title}
	return SourceURL{Base: NewBase(EventSourceURL, "", p), Data: p}
}

// NewSourceDocument constructs a SourceDocument event.
func NewSourceDocument(sourceID, mediaType, title, filename string) SourceDocument {
	p := SourceDocumentPayload{SourceID: sourceID, MediaType: mediaType, Title: title, Filename: filename}
	return SourceDocument{Base: NewBase(EventSourceDocument, "", p), Data: p}
}

// NewFile constructs a File event.
func NewFile(mediaType, url string) File {
	p := FilePayload{MediaType: mediaType, URL: url}
	return File{Base: NewBase(EventFile, "", p), Data: p}
}

// NewData constructs a Data event tagged "data-<name>". The caller must
// guarantee data is non-nil.
func NewData(name string, data any) Data {
	return Data{Base: NewBase(DataEventType(name), "", data), Name: name, Data: data}
}

// NewError constructs an Error event carrying the verbatim error text.
func NewError(errorText string) Error {
	p := ErrorPayload{ErrorText: errorText}
	return Error{Base: NewBase(EventError, "", p), Data: p}
}

// NewFinish constructs a Finish event. usage may be nil.
func NewFinish(reason string, usage *UsagePayload) Finish {
	p := FinishPayload{Reason: reason, Usage: usage}
	return Finish{Base: NewBase(EventFinish, "", p), Data: p}
}

// NewMessageMetadata constructs a MessageMetadata event.
func NewMessageMetadata(metadata map[string]any) MessageMetadata {
	p := MessageMetadataPayload{Metadata: metadata}
	return MessageMetadata{Base: NewBase(EventMessageMetadata, "", p), Data: p}
}
