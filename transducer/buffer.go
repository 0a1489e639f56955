// Package transducer implements the one-pass pipeline stage that turns the
// flat execution event sequence of a task executor into the client-facing UI
// event stream. It demultiplexes interleaved events by run identifier,
// reduces them into per-run buffers, and guarantees a well-formed terminal
// event even when the upstream sequence ends abruptly.
//
// The pipeline is pull-based and single-threaded: each output event is
// produced only when the consumer requests the next one, and all state lives
// in a Store private to one transduction invocation. Nothing in this package
// is safe for concurrent use; run one transducer per logical stream.
package transducer

import (
	"encoding/json"

	"goa.design/uistream/event"
	"goa.design/uistream/ui"
)

type (
	// Store is the arena of per-run buffers for one transduction invocation.
	// Buffers are created on the first event referencing a run ID and
	// discarded when the invocation ends; nothing is shared across
	// unrelated transductions.
	Store struct {
		buffers map[string]*RunBuffer
	}

	// RunBuffer accumulates the mutable state of one in-flight unit of work:
	// text and reasoning so far, tool call states, step summaries, usage
	// counters, and terminal status. Buffers are mutated in place by the
	// reducers; snapshots taken for emission are value copies.
	RunBuffer struct {
		// RunID identifies the owning run.
		RunID string
		// Origin is the execution tier of the first event seen for the run.
		Origin event.Origin
		// Name is the workflow or orchestrator name for nested runs.
		Name string
		// Text is the concatenation of all task text fragments so far.
		Text string
		// Reasoning is the concatenation of all reasoning fragments so far.
		Reasoning string
		// Status is the latest known run status.
		Status event.Status
		// Result is the derived run result for finished nested runs.
		Result json.RawMessage
		// ErrorText is the derived run error for failed nested runs.
		ErrorText string
		// Usage holds the latest reported usage counters.
		Usage *event.Usage

		// Tool call states keyed by tool call ID.
		tools map[string]ui.ToolState

		// Step summaries in insertion order, keyed by step ID.
		steps     map[string]*StepSummary
		stepOrder []string

		// Open text/reasoning part bookkeeping for the fine-grained
		// protocol. Part IDs are derived from the run ID and a sequence
		// number so successive parts within one run stay distinct.
		textID        string
		textOpen      bool
		textSeq       int
		reasoningID   string
		reasoningOpen bool
		reasoningSeq  int
	}

	// StepSummary records the accumulated state of one step of a nested run.
	// Entries are upserted by step ID: a repeated step-start updates the
	// existing entry rather than appending a duplicate.
	StepSummary struct {
		// StepID uniquely identifies the step within its run.
		StepID string `json:"step_id"`
		// Name is the human-readable step name.
		Name string `json:"name,omitempty"`
		// Status is the latest known step status.
		Status event.Status `json:"status"`
		// Input contains the JSON arguments passed to the step.
		Input json.RawMessage `json:"input,omitempty"`
		// Output contains the step's JSON output, if any.
		Output json.RawMessage `json:"output,omitempty"`
		// ErrorText describes the failure when Status is failed.
		ErrorText string `json:"error_text,omitempty"`
		// SuspendPayload carries the suspension details for suspended steps.
		SuspendPayload json.RawMessage `json:"suspend_payload,omitempty"`
	}

	// RunSnapshot is the full, immutable view of a nested run emitted as the
	// payload of composite "data-workflow" / "data-network" UI events. Each
	// snapshot reflects the complete current state, not a delta.
	RunSnapshot struct {
		// RunID identifies the nested run.
		RunID string `json:"run_id"`
		// Name is the workflow or orchestrator name.
		Name string `json:"name,omitempty"`
		// Status is the run status at snapshot time.
		Status event.Status `json:"status"`
		// Text is the accumulated nested run text, if any.
		Text string `json:"text,omitempty"`
		// Steps lists the step summaries in insertion order.
		Steps []StepSummary `json:"steps,omitempty"`
		// Result is the derived run result once finished successfully.
		Result json.RawMessage `json:"result,omitempty"`
		// ErrorText is the derived run error once failed.
		ErrorText string `json:"error_text,omitempty"`
		// Usage holds the latest reported usage counters.
		Usage *event.Usage `json:"usage,omitempty"`
	}
)

// NewStore constructs an empty buffer store for one transduction invocation.
func NewStore() *Store {
	return &Store{buffers: make(map[string]*RunBuffer)}
}

// Get returns the buffer for the given run ID, or nil when none exists.
func (s *Store) Get(runID string) *RunBuffer {
	return s.buffers[runID]
}

// Upsert returns the buffer for the given run ID, creating it when absent.
// The origin of the first event seen for the run is recorded on creation.
func (s *Store) Upsert(runID string, origin event.Origin) *RunBuffer {
	if buf, ok := s.buffers[runID]; ok {
		return buf
	}
	buf := &RunBuffer{
		RunID:  runID,
		Origin: origin,
		Status: event.StatusPending,
		tools:  make(map[string]ui.ToolState),
		steps:  make(map[string]*StepSummary),
	}
	s.buffers[runID] = buf
	return buf
}

// Reset discards every buffer. Called when the transduction ends or is
// canceled so no state leaks across invocations.
func (s *Store) Reset() {
	s.buffers = make(map[string]*RunBuffer)
}

// Len returns the number of live buffers.
func (s *Store) Len() int { return len(s.buffers) }

// UpsertStep inserts or updates the step with the given ID and returns it.
// New steps are appended to the insertion order; existing entries keep their
// position.
func (b *RunBuffer) UpsertStep(stepID string) *StepSummary {
	if step, ok := b.steps[stepID]; ok {
		return step
	}
	step := &StepSummary{StepID: stepID, Status: event.StatusPending}
	b.steps[stepID] = step
	b.stepOrder = append(b.stepOrder, stepID)
	return step
}

// Step returns the step with the given ID, or nil when absent.
func (b *RunBuffer) Step(stepID string) *StepSummary {
	return b.steps[stepID]
}

// LastStep returns the most recently inserted step, or nil when the run has
// no steps.
func (b *RunBuffer) LastStep() *StepSummary {
	if len(b.stepOrder) == 0 {
		return nil
	}
	return b.steps[b.stepOrder[len(b.stepOrder)-1]]
}

// ToolState returns the recorded state for the given tool call and whether
// the call is known to this run.
func (b *RunBuffer) ToolState(toolCallID string) (ui.ToolState, bool) {
	st, ok := b.tools[toolCallID]
	return st, ok
}

// SetToolState records the state for the given tool call, overwriting any
// prior value (last write wins).
func (b *RunBuffer) SetToolState(toolCallID string, state ui.ToolState) {
	b.tools[toolCallID] = state
}

// Snapshot returns a value copy of the nested run state suitable for
// emission. Mutating the buffer after the call does not alter the snapshot.
func (b *RunBuffer) Snapshot() RunSnapshot {
	snap := RunSnapshot{
		RunID:     b.RunID,
		Name:      b.Name,
		Status:    b.Status,
		Text:      b.Text,
		Result:    b.Result,
		ErrorText: b.ErrorText,
	}
	if b.Usage != nil {
		usage := *b.Usage
		snap.Usage = &usage
	}
	if len(b.stepOrder) > 0 {
		snap.Steps = make([]StepSummary, 0, len(b.stepOrder))
		for _, id := range b.stepOrder {
			snap.Steps = append(snap.Steps, *b.steps[id])
		}
	}
	return snap
}
