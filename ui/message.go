package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type (
	// Message is a complete, UI-renderable conversation message: an ordered
	// sequence of parts under a role plus optional metadata.
	//
	// Messages in an accumulated conversation are treated as immutable:
	// every logical mutation produces a new Message value with a fresh parts
	// slice (structural sharing of individual parts is fine, in-place
	// mutation is not). Downstream consumers rely on this for
	// reference-equality diffing.
	Message struct {
		// ID uniquely identifies the message. Continuations reuse the ID of
		// the trailing assistant message of the prior conversation.
		ID string `json:"id"`
		// Role is one of RoleUser, RoleAssistant, or RoleSystem.
		Role Role `json:"role"`
		// Parts is the ordered part sequence.
		Parts []Part `json:"parts"`
		// Metadata carries optional message-level metadata (e.g., a
		// "status" of "warning" or "error" on interruption messages).
		Metadata map[string]any `json:"metadata,omitempty"`
	}

	// Part is a discriminated content fragment of a Message. Implementations
	// are TextPart, ReasoningPart, ToolPart, SourceURLPart,
	// SourceDocumentPart, FilePart, and DataPart.
	Part interface {
		// PartType returns the wire discriminator for this part ("text",
		// "reasoning", "dynamic-tool", "source-url", "source-document",
		// "file", or "data-<name>").
		PartType() string
	}

	// TextPart holds assistant text. State is PartStreaming while deltas are
	// still arriving and PartDone once the part is frozen.
	TextPart struct {
		// Text is the concatenation of all received fragments.
		Text string `json:"text"`
		// State is the part lifecycle state.
		State PartState `json:"state"`
	}

	// ReasoningPart holds model reasoning text with the same lifecycle as
	// TextPart.
	ReasoningPart struct {
		// Text is the concatenation of all received fragments.
		Text string `json:"text"`
		// State is the part lifecycle state.
		State PartState `json:"state"`
	}

	// ToolPart tracks one tool invocation. A ToolPart is uniquely identified
	// by ToolCallID within its message and transitions monotonically through
	// ToolStateInputStreaming → ToolStateInputAvailable → ToolStateOutputAvailable
	// or ToolStateOutputError; it never regresses to an earlier state.
	ToolPart struct {
		// ToolName is the tool identifier.
		ToolName string `json:"tool_name"`
		// ToolCallID uniquely identifies the invocation within the message.
		ToolCallID string `json:"tool_call_id"`
		// State is the invocation lifecycle state.
		State ToolState `json:"state"`
		// Input contains the canonical JSON tool arguments.
		Input json.RawMessage `json:"input,omitempty"`
		// Output contains the canonical JSON tool output on success.
		Output json.RawMessage `json:"output,omitempty"`
		// ErrorText describes the failure when State is ToolStateOutputError.
		ErrorText string `json:"error_text,omitempty"`
	}

	// SourceURLPart references a consulted web URL.
	SourceURLPart struct {
		SourceID string `json:"source_id"`
		URL      string `json:"url"`
		Title    string `json:"title,omitempty"`
	}

	// SourceDocumentPart references a consulted document.
	SourceDocumentPart struct {
		SourceID  string `json:"source_id"`
		MediaType string `json:"media_type"`
		Title     string `json:"title,omitempty"`
		Filename  string `json:"filename,omitempty"`
	}

	// FilePart references a produced file.
	FilePart struct {
		MediaType string `json:"media_type"`
		URL       string `json:"url"`
	}

	// DataPart holds an opaque caller-defined payload under a "data-<name>"
	// discriminator. Data is required to be non-nil.
	DataPart struct {
		// Name is the data tag.
		Name string `json:"-"`
		// Data is the opaque payload. Never nil in a well-formed message.
		Data any `json:"data"`
	}
)

// Role names a message author.
type Role string

const (
	// RoleUser marks caller-authored messages.
	RoleUser Role = "user"
	// RoleAssistant marks executor-authored messages.
	RoleAssistant Role = "assistant"
	// RoleSystem marks system messages.
	RoleSystem Role = "system"
)

// PartState is the lifecycle state of a text or reasoning part.
type PartState string

const (
	// PartStreaming means fragments are still arriving.
	PartStreaming PartState = "streaming"
	// PartDone means the part is frozen.
	PartDone PartState = "done"
)

// ToolState is the lifecycle state of a tool part.
type ToolState string

const (
	// ToolStateInputStreaming means tool arguments are still being produced.
	ToolStateInputStreaming ToolState = "input-streaming"
	// ToolStateInputAvailable means arguments are materialized and the tool is
	// executing.
	ToolStateInputAvailable ToolState = "input-available"
	// ToolStateOutputAvailable means the tool completed successfully.
	ToolStateOutputAvailable ToolState = "output-available"
	// ToolStateOutputError means the tool completed with an error.
	ToolStateOutputError ToolState = "output-error"
)

// Terminal reports whether s is a terminal tool state. Tool parts never
// regress from a terminal state back to an input state.
func (s ToolState) Terminal() bool {
	return s == ToolStateOutputAvailable || s == ToolStateOutputError
}

// PartType implementations.

func (TextPart) PartType() string           { return "text" }
func (ReasoningPart) PartType() string      { return "reasoning" }
func (ToolPart) PartType() string           { return "dynamic-tool" }
func (SourceURLPart) PartType() string      { return "source-url" }
func (SourceDocumentPart) PartType() string { return "source-document" }
func (FilePart) PartType() string           { return "file" }
func (p DataPart) PartType() string         { return "data-" + p.Name }

// NewMessage constructs an empty message with the given ID and role.
func NewMessage(id string, role Role) Message {
	return Message{ID: id, Role: role}
}

// Clone returns a copy of m with a fresh parts slice and metadata map so the
// copy can be extended without mutating m.
func (m Message) Clone() Message {
	out := m
	out.Parts = append([]Part(nil), m.Parts...)
	if m.Metadata != nil {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// WithPart returns a copy of m with p appended.
func (m Message) WithPart(p Part) Message {
	out := m.Clone()
	out.Parts = append(out.Parts, p)
	return out
}

// WithPartAt returns a copy of m with the part at index i replaced by p.
// It panics if i is out of range, mirroring slice semantics.
func (m Message) WithPartAt(i int, p Part) Message {
	out := m.Clone()
	out.Parts[i] = p
	return out
}

// WithMetadata returns a copy of m with the given metadata merged in.
func (m Message) WithMetadata(meta map[string]any) Message {
	out := m.Clone()
	if out.Metadata == nil {
		out.Metadata = make(map[string]any, len(meta))
	}
	for k, v := range meta {
		out.Metadata[k] = v
	}
	return out
}

// ToolPartIndex returns the index of the tool part with the given call ID,
// or -1 when the message holds no such part.
func (m Message) ToolPartIndex(toolCallID string) int {
	for i, p := range m.Parts {
		if tp, ok := p.(ToolPart); ok && tp.ToolCallID == toolCallID {
			return i
		}
	}
	return -1
}

// jsonPart is the wire form of a Part: the part fields plus a "type"
// discriminator.
type jsonPart struct {
	Type string `json:"type"`
	json.RawMessage
}

// MarshalJSON encodes the message with a "type" discriminator on every part.
func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	parts := make([]json.RawMessage, 0, len(m.Parts))
	for i, p := range m.Parts {
		raw, err := encodePart(p)
		if err != nil {
			return nil, fmt.Errorf("encode parts[%d]: %w", i, err)
		}
		parts = append(parts, raw)
	}
	return json.Marshal(struct {
		alias
		Parts []json.RawMessage `json:"parts"`
	}{alias: alias(m), Parts: parts})
}

// UnmarshalJSON decodes the message, reconstructing the concrete part types
// from their "type" discriminators.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var tmp struct {
		alias
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*m = Message(tmp.alias)
	m.Parts = nil
	if len(tmp.Parts) == 0 {
		return nil
	}
	m.Parts = make([]Part, 0, len(tmp.Parts))
	for i, raw := range tmp.Parts {
		part, err := decodePart(raw)
		if err != nil {
			return fmt.Errorf("decode parts[%d]: %w", i, err)
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

func encodePart(p Part) (json.RawMessage, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["type"] = json.RawMessage(fmt.Sprintf("%q", p.PartType()))
	return json.Marshal(fields)
}

func decodePart(raw json.RawMessage) (Part, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch {
	case head.Type == "text":
		var p TextPart
		return p, json.Unmarshal(raw, &p)
	case head.Type == "reasoning":
		var p ReasoningPart
		return p, json.Unmarshal(raw, &p)
	case head.Type == "dynamic-tool":
		var p ToolPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		if p.ToolCallID == "" {
			return nil, errors.New("dynamic-tool part requires tool_call_id")
		}
		return p, nil
	case head.Type == "source-url":
		var p SourceURLPart
		return p, json.Unmarshal(raw, &p)
	case head.Type == "source-document":
		var p SourceDocumentPart
		return p, json.Unmarshal(raw, &p)
	case head.Type == "file":
		var p FilePart
		return p, json.Unmarshal(raw, &p)
	case strings.HasPrefix(head.Type, "data-") && len(head.Type) > len("data-"):
		var p DataPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		p.Name = strings.TrimPrefix(head.Type, "data-")
		if p.Data == nil {
			return nil, fmt.Errorf("part %q requires a data field", head.Type)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown part type %q", head.Type)
	}
}
