// Package event defines the execution event vocabulary consumed by the
// transducer. Execution events are the fine-grained updates emitted by a task
// executor while a run is in flight: text and reasoning fragments, tool call
// lifecycle events, nested workflow step updates, custom data passthrough,
// policy interruptions, errors, and terminal finish markers.
//
// Events for logically nested executions (a workflow step running inside an
// orchestrator running inside a top-level task) arrive interleaved in a single
// flat sequence. Each event therefore carries both a run identifier, which
// names the in-flight unit of work that produced it, and an origin, which
// names the execution tier. The transducer demultiplexes on the pair.
//
// All event types implement the Event interface and embed baseEvent for the
// standard accessors. Subscribers use type switches to access event-specific
// fields; unknown event implementations are ignored by consumers, which keeps
// the vocabulary forward-compatible.
package event

import (
	"encoding/json"
	"strings"
	"time"
)

type (
	// Event is the interface all execution events implement. The executor
	// publishes events in issuance order per run; events for different runs
	// may interleave arbitrarily.
	Event interface {
		// Kind returns the event kind constant (e.g., KindTextDelta).
		// Custom data events return a dynamic "data-<name>" kind.
		Kind() Kind
		// RunID returns the identifier of the in-flight unit of work that
		// produced this event. All events for one run share the same run ID.
		RunID() string
		// Origin returns the execution tier that emitted this event.
		Origin() Origin
		// Timestamp returns the Unix timestamp in milliseconds when the event
		// was created by the executor.
		Timestamp() int64
	}

	// StartEvent signals that the executor began producing a response for
	// the run. The transducer maps it to the opening UI message boundary.
	StartEvent struct {
		baseEvent
	}

	// TextDeltaEvent carries an incremental fragment of assistant text.
	// Fragments concatenate in arrival order; no normalization is applied.
	TextDeltaEvent struct {
		baseEvent
		// Delta is the raw text fragment. May be empty.
		Delta string
	}

	// ReasoningDeltaEvent carries an incremental fragment of model reasoning.
	ReasoningDeltaEvent struct {
		baseEvent
		// Delta is the raw reasoning fragment.
		Delta string
	}

	// ToolCallEvent signals that the executor issued a tool invocation with
	// fully materialized arguments.
	ToolCallEvent struct {
		baseEvent
		// ToolCallID uniquely identifies this invocation within the run.
		ToolCallID string
		// ToolName is the tool identifier as known to the executor.
		ToolName string
		// Input contains the canonical JSON tool arguments.
		Input json.RawMessage
	}

	// ToolResultEvent signals that a previously issued tool call completed
	// successfully. A result for an unknown ToolCallID is dropped by the
	// transducer; duplicate results for the same ToolCallID overwrite the
	// prior one (last write wins).
	ToolResultEvent struct {
		baseEvent
		// ToolCallID correlates with the originating ToolCallEvent.
		ToolCallID string
		// Output contains the canonical JSON tool output.
		Output json.RawMessage
	}

	// ToolErrorEvent signals that a previously issued tool call failed.
	ToolErrorEvent struct {
		baseEvent
		// ToolCallID correlates with the originating ToolCallEvent.
		ToolCallID string
		// ErrorText is the human-readable failure description.
		ErrorText string
	}

	// SourceEvent references a document or URL the executor consulted while
	// producing the response.
	SourceEvent struct {
		baseEvent
		// SourceType is either SourceTypeURL or SourceTypeDocument.
		SourceType SourceType
		// SourceID uniquely identifies the source.
		SourceID string
		// URL locates the source when SourceType is SourceTypeURL.
		URL string
		// MediaType is the IANA media type for document sources.
		MediaType string
		// Title is an optional human-readable source title.
		Title string
		// Filename is an optional document filename.
		Filename string
	}

	// FileEvent references a file produced by the executor.
	FileEvent struct {
		baseEvent
		// MediaType is the IANA media type of the file.
		MediaType string
		// URL locates the file contents.
		URL string
	}

	// WorkflowStartEvent signals that a nested workflow (sub-task) or
	// orchestrator run began. The run ID of this event names the nested run,
	// not the parent.
	WorkflowStartEvent struct {
		baseEvent
		// Name is the human-readable workflow or orchestrator name.
		Name string
	}

	// StepStartEvent signals that a step within a nested run started. Steps
	// are keyed by StepID; repeated starts for the same StepID upsert the
	// existing entry rather than appending a duplicate.
	StepStartEvent struct {
		baseEvent
		// StepID uniquely identifies the step within its run.
		StepID string
		// StepName is the human-readable step name.
		StepName string
		// Input contains the JSON arguments passed to the step.
		Input json.RawMessage
	}

	// StepResultEvent signals that a step within a nested run reached a
	// (possibly non-terminal) status.
	StepResultEvent struct {
		baseEvent
		// StepID correlates with the originating StepStartEvent.
		StepID string
		// Status is the step outcome (StatusSuccess, StatusFailed, ...).
		Status Status
		// Output contains the step's JSON output, if any.
		Output json.RawMessage
		// ErrorText describes the failure when Status is StatusFailed.
		ErrorText string
	}

	// WorkflowSuspendedEvent signals that a nested run suspended awaiting
	// out-of-band input (approval, human answer, external tool result).
	WorkflowSuspendedEvent struct {
		baseEvent
		// StepID identifies the step that suspended, when known.
		StepID string
		// Payload carries the suspension details (prompt, schema, ...).
		Payload json.RawMessage
	}

	// WorkflowFinishEvent signals that a nested run reached a terminal
	// status.
	WorkflowFinishEvent struct {
		baseEvent
		// Status is the terminal run status.
		Status Status
	}

	// CustomDataEvent carries an opaque, caller-defined structured payload
	// through the stream under a "data-<name>" kind. Data must be non-nil;
	// the transducer treats a nil Data as a fatal format error rather than
	// silently dropping the event.
	CustomDataEvent struct {
		baseEvent
		// Name is the data tag; the event kind is "data-<Name>".
		Name string
		// Data is the opaque JSON-serializable payload. Required.
		Data any
	}

	// TripwireEvent signals a policy-triggered interruption of the run,
	// distinct from an execution error. The executor may close the stream
	// abruptly after a tripwire; the transducer guarantees a terminal finish
	// event regardless.
	TripwireEvent struct {
		baseEvent
		// Reason is the human-readable interruption reason.
		Reason string
	}

	// ErrorEvent surfaces an upstream execution error. String causes pass
	// through to clients unchanged; any other cause is JSON-serialized.
	ErrorEvent struct {
		baseEvent
		// Cause is the error value: a string or a JSON-serializable object.
		Cause any
	}

	// FinishEvent signals that the run completed and carries final usage
	// counters when the executor reports them.
	FinishEvent struct {
		baseEvent
		// Reason is the executor-reported finish reason (e.g., "stop",
		// "tool-calls"). Empty defaults to "unknown" on the wire.
		Reason string
		// Usage holds the final token usage counters. Nil when unreported.
		Usage *Usage
	}

	// Usage reports token usage counters for a run.
	Usage struct {
		// InputTokens is the number of prompt tokens consumed.
		InputTokens int `json:"input_tokens"`
		// OutputTokens is the number of completion tokens produced.
		OutputTokens int `json:"output_tokens"`
		// TotalTokens is InputTokens + OutputTokens.
		TotalTokens int `json:"total_tokens"`
	}

	// baseEvent holds the fields shared by all event types. It is embedded
	// anonymously in each concrete event struct and provides the RunID,
	// Origin, and Timestamp accessors.
	baseEvent struct {
		runID     string
		origin    Origin
		timestamp int64
	}
)

// Kind names an execution event kind. Custom data events use the dynamic
// "data-<name>" form; IsData reports whether a kind follows that convention.
type Kind string

const (
	// KindStart marks the beginning of a response for a run.
	KindStart Kind = "start"
	// KindTextDelta carries an incremental assistant text fragment.
	KindTextDelta Kind = "text-delta"
	// KindReasoningDelta carries an incremental reasoning fragment.
	KindReasoningDelta Kind = "reasoning-delta"
	// KindToolCall declares a tool invocation with materialized arguments.
	KindToolCall Kind = "tool-call"
	// KindToolResult reports a successful tool completion.
	KindToolResult Kind = "tool-result"
	// KindToolError reports a failed tool completion.
	KindToolError Kind = "tool-error"
	// KindSource references a consulted URL or document.
	KindSource Kind = "source"
	// KindFile references a produced file.
	KindFile Kind = "file"
	// KindWorkflowStart marks the beginning of a nested run.
	KindWorkflowStart Kind = "workflow-start"
	// KindStepStart marks the beginning of a step within a nested run.
	KindStepStart Kind = "step-start"
	// KindStepResult reports a step status change within a nested run.
	KindStepResult Kind = "step-result"
	// KindWorkflowSuspended marks a nested run suspension.
	KindWorkflowSuspended Kind = "workflow-suspended"
	// KindWorkflowFinish marks a nested run terminal status.
	KindWorkflowFinish Kind = "workflow-finish"
	// KindTripwire marks a policy-triggered interruption.
	KindTripwire Kind = "tripwire"
	// KindError surfaces an upstream execution error.
	KindError Kind = "error"
	// KindFinish marks the terminal event of a run.
	KindFinish Kind = "finish"
)

// Origin names the execution tier that emitted an event.
type Origin string

const (
	// OriginTask is the top-level task executor.
	OriginTask Origin = "task"
	// OriginWorkflow is a nested sub-task (workflow) execution.
	OriginWorkflow Origin = "workflow"
	// OriginOrchestrator is a nested multi-agent orchestrator execution.
	OriginOrchestrator Origin = "orchestrator"
	// OriginTool is a pass-through tool that forwards its own events.
	OriginTool Origin = "tool"
)

// Status names a run or step status. Nested runs transition
// pending → running → one of the terminal or waiting states.
type Status string

const (
	// StatusPending means the unit of work has been created but not started.
	StatusPending Status = "pending"
	// StatusRunning means the unit of work is executing.
	StatusRunning Status = "running"
	// StatusSuccess means the unit of work completed successfully.
	StatusSuccess Status = "success"
	// StatusFailed means the unit of work terminated with an error.
	StatusFailed Status = "failed"
	// StatusSuspended means the unit of work paused awaiting input.
	StatusSuspended Status = "suspended"
	// StatusWaiting means the unit of work is blocked on a dependency.
	StatusWaiting Status = "waiting"
	// StatusCanceled means the unit of work was canceled before completion.
	StatusCanceled Status = "canceled"
)

// SourceType distinguishes URL sources from document sources.
type SourceType string

const (
	// SourceTypeURL marks a web URL source.
	SourceTypeURL SourceType = "url"
	// SourceTypeDocument marks a document source.
	SourceTypeDocument SourceType = "document"
)

// DataKindPrefix is the prefix shared by all custom data event kinds.
const DataKindPrefix = "data-"

// IsData reports whether k follows the "data-<name>" custom data convention.
func IsData(k Kind) bool {
	return strings.HasPrefix(string(k), DataKindPrefix) && len(k) > len(DataKindPrefix)
}

// DataName extracts the <name> portion of a "data-<name>" kind. It returns
// the empty string when k is not a data kind.
func DataName(k Kind) string {
	if !IsData(k) {
		return ""
	}
	return strings.TrimPrefix(string(k), DataKindPrefix)
}

// NewStartEvent constructs a StartEvent for the given run and origin.
func NewStartEvent(runID string, origin Origin) *StartEvent {
	return &StartEvent{baseEvent: newBaseEvent(runID, origin)}
}

// NewTextDeltaEvent constructs a TextDeltaEvent carrying the given fragment.
func NewTextDeltaEvent(runID string, origin Origin, delta string) *TextDeltaEvent {
	return &TextDeltaEvent{baseEvent: newBaseEvent(runID, origin), Delta: delta}
}

// NewReasoningDeltaEvent constructs a ReasoningDeltaEvent carrying the given
// fragment.
func NewReasoningDeltaEvent(runID string, origin Origin, delta string) *ReasoningDeltaEvent {
	return &ReasoningDeltaEvent{baseEvent: newBaseEvent(runID, origin), Delta: delta}
}

// NewToolCallEvent constructs a ToolCallEvent. Input is the canonical JSON
// arguments for the call.
func NewToolCallEvent(runID string, origin Origin, toolCallID, toolName string, input json.RawMessage) *ToolCallEvent {
	return &ToolCallEvent{
		baseEvent:  newBaseEvent(runID, origin),
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Input:      input,
	}
}

// NewToolResultEvent constructs a ToolResultEvent for the given call.
func NewToolResultEvent(runID string, origin Origin, toolCallID string, output json.RawMessage) *ToolResultEvent {
	return &ToolResultEvent{
		baseEvent:  newBaseEvent(runID, origin),
		ToolCallID: toolCallID,
		Output:     output,
	}
}

// NewToolErrorEvent constructs a ToolErrorEvent for the given call.
func NewToolErrorEvent(runID string, origin Origin, toolCallID, errorText string) *ToolErrorEvent {
	return &ToolErrorEvent{
		baseEvent:  newBaseEvent(runID, origin),
		ToolCallID: toolCallID,
		ErrorText:  errorText,
	}
}

// NewSourceEvent constructs a SourceEvent of the given type.
func NewSourceEvent(runID string, origin Origin, sourceType SourceType, sourceID, url, mediaType, title, filename string) *SourceEvent {
	return &SourceEvent{
		baseEvent:  newBaseEvent(runID, origin),
		SourceType: sourceType,
		SourceID:   sourceID,
		URL:        url,
		MediaType:  mediaType,
		Title:      title,
		Filename:   filename,
	}
}

// NewFileEvent constructs a FileEvent.
func NewFileEvent(runID string, origin Origin, mediaType, url string) *FileEvent {
	return &FileEvent{baseEvent: newBaseEvent(runID, origin), MediaType: mediaType, URL: url}
}

// NewWorkflowStartEvent constructs a WorkflowStartEvent for a nested run.
func NewWorkflowStartEvent(runID string, origin Origin, name string) *WorkflowStartEvent {
	return &WorkflowStartEvent{baseEvent: newBaseEvent(runID, origin), Name: name}
}

// NewStepStartEvent constructs a StepStartEvent for a step of a nested run.
func NewStepStartEvent(runID string, origin Origin, stepID, stepName string, input json.RawMessage) *StepStartEvent {
	return &StepStartEvent{
		baseEvent: newBaseEvent(runID, origin),
		StepID:    stepID,
		StepName:  stepName,
		Input:     input,
	}
}

// NewStepResultEvent constructs a StepResultEvent for a step of a nested run.
func NewStepResultEvent(runID string, origin Origin, stepID string, status Status, output json.RawMessage, errorText string) *StepResultEvent {
	return &StepResultEvent{
		baseEvent: newBaseEvent(runID, origin),
		StepID:    stepID,
		Status:    status,
		Output:    output,
		ErrorText: errorText,
	}
}

// NewWorkflowSuspendedEvent constructs a WorkflowSuspendedEvent.
func NewWorkflowSuspendedEvent(runID string, origin Origin, stepID string, payload json.RawMessage) *WorkflowSuspendedEvent {
	return &WorkflowSuspendedEvent{
		baseEvent: newBaseEvent(runID, origin),
		StepID:    stepID,
		Payload:   payload,
	}
}

// NewWorkflowFinishEvent constructs a WorkflowFinishEvent carrying the
// terminal status of a nested run.
func NewWorkflowFinishEvent(runID string, origin Origin, status Status) *WorkflowFinishEvent {
	return &WorkflowFinishEvent{baseEvent: newBaseEvent(runID, origin), Status: status}
}

// NewCustomDataEvent constructs a CustomDataEvent tagged "data-<name>".
// Data must be non-nil; the transducer rejects nil payloads as a fatal
// format error when the event is dispatched.
func NewCustomDataEvent(runID string, origin Origin, name string, data any) *CustomDataEvent {
	return &CustomDataEvent{baseEvent: newBaseEvent(runID, origin), Name: name, Data: data}
}

// NewTripwireEvent constructs a TripwireEvent with the given reason.
func NewTripwireEvent(runID string, origin Origin, reason string) *TripwireEvent {
	return &TripwireEvent{baseEvent: newBaseEvent(runID, origin), Reason: reason}
}

// NewErrorEvent constructs an ErrorEvent. cause may be a string, which passes
// through to clients unchanged, or any JSON-serializable value.
func NewErrorEvent(runID string, origin Origin, cause any) *ErrorEvent {
	return &ErrorEvent{baseEvent: newBaseEvent(runID, origin), Cause: cause}
}

// NewFinishEvent constructs a FinishEvent. usage may be nil.
func NewFinishEvent(runID string, origin Origin, reason string, usage *Usage) *FinishEvent {
	return &FinishEvent{baseEvent: newBaseEvent(runID, origin), Reason: reason, Usage: usage}
}

// newBaseEvent constructs a baseEvent with the current timestamp.
func newBaseEvent(runID string, origin Origin) baseEvent {
	return baseEvent{
		runID:     runID,
		origin:    origin,
		timestamp: time.Now().UnixMilli(),
	}
}

// RunID returns the run identifier.
func (e baseEvent) RunID() string { return e.runID }

// Origin returns the execution tier that emitted the event.
func (e baseEvent) Origin() Origin { return e.origin }

// Timestamp returns the Unix timestamp in milliseconds of event creation.
func (e baseEvent) Timestamp() int64 { return e.timestamp }

// Kind method implementations

func (e *StartEvent) Kind() Kind             { return KindStart }
func (e *TextDeltaEvent) Kind() Kind         { return KindTextDelta }
func (e *ReasoningDeltaEvent) Kind() Kind    { return KindReasoningDelta }
func (e *ToolCallEvent) Kind() Kind          { return KindToolCall }
func (e *ToolResultEvent) Kind() Kind        { return KindToolResult }
func (e *ToolErrorEvent) Kind() Kind         { return KindToolError }
func (e *SourceEvent) Kind() Kind            { return KindSource }
func (e *FileEvent) Kind() Kind              { return KindFile }
func (e *WorkflowStartEvent) Kind() Kind     { return KindWorkflowStart }
func (e *StepStartEvent) Kind() Kind         { return KindStepStart }
func (e *StepResultEvent) Kind() Kind        { return KindStepResult }
func (e *WorkflowSuspendedEvent) Kind() Kind { return KindWorkflowSuspended }
func (e *WorkflowFinishEvent) Kind() Kind    { return KindWorkflowFinish }
func (e *CustomDataEvent) Kind() Kind        { return Kind(DataKindPrefix + e.Name) }
func (e *TripwireEvent) Kind() Kind          { return KindTripwire }
func (e *ErrorEvent) Kind() Kind             { return KindError }
func (e *FinishEvent) Kind() Kind            { return KindFinish }
