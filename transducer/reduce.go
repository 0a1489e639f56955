package transducer

import (
	"encoding/json"
	"fmt"

	"goa.design/uistream/event"
	"goa.design/uistream/ui"
)

// The part reducers map (buffer state, event payload) to (new buffer state,
// emitted UI events). Text and numeric accumulation is plain append in
// arrival order; no normalization, trimming, or encoding transforms are
// applied anywhere in this file.

// reduceTextDelta appends the fragment to the run's text, opening a new text
// part when none is streaming. The first fragment of a part yields a
// text-start followed by the delta.
func reduceTextDelta(buf *RunBuffer, delta string) []ui.Event {
	var out []ui.Event
	if !buf.textOpen {
		buf.textSeq++
		buf.textID = fmt.Sprintf("%s-text-%d", buf.RunID, buf.textSeq)
		buf.textOpen = true
		out = append(out, ui.NewTextStart(buf.textID))
	}
	buf.Text += delta
	return append(out, ui.NewTextDelta(buf.textID, delta))
}

// reduceReasoningDelta appends the fragment to the run's reasoning, opening
// a new reasoning part when none is streaming.
func reduceReasoningDelta(buf *RunBuffer, delta string) []ui.Event {
	var out []ui.Event
	if !buf.reasoningOpen {
		buf.reasoningSeq++
		buf.reasoningID = fmt.Sprintf("%s-reasoning-%d", buf.RunID, buf.reasoningSeq)
		buf.reasoningOpen = true
		out = append(out, ui.NewReasoningStart(buf.reasoningID))
	}
	buf.Reasoning += delta
	return append(out, ui.NewReasoningDelta(buf.reasoningID, delta))
}

// reduceToolCall records a materialized tool invocation. A call whose ID is
// already in a terminal state is rejected so tool parts never regress from
// output-available/output-error back to input-available.
func reduceToolCall(buf *RunBuffer, e *event.ToolCallEvent) (ui.Event, bool) {
	if st, ok := buf.ToolState(e.ToolCallID); ok && st.Terminal() {
		return nil, false
	}
	buf.SetToolState(e.ToolCallID, ui.ToolStateInputAvailable)
	return ui.NewToolInputAvailable(e.ToolCallID, e.ToolName, e.Input), true
}

// reduceToolResult transitions a known tool call to output-available. The
// transition always overwrites the prior state, even for duplicate results
// (last write wins); a result for an unknown call is dropped, never creating
// a part.
func reduceToolResult(buf *RunBuffer, e *event.ToolResultEvent) (ui.Event, bool) {
	if _, ok := buf.ToolState(e.ToolCallID); !ok {
		return nil, false
	}
	buf.SetToolState(e.ToolCallID, ui.ToolStateOutputAvailable)
	return ui.NewToolOutputAvailable(e.ToolCallID, e.Output), true
}

// reduceToolError transitions a known tool call to output-error with the
// same last-write-wins and orphan-drop semantics as reduceToolResult.
func reduceToolError(buf *RunBuffer, e *event.ToolErrorEvent) (ui.Event, bool) {
	if _, ok := buf.ToolState(e.ToolCallID); !ok {
		return nil, false
	}
	buf.SetToolState(e.ToolCallID, ui.ToolStateOutputError)
	return ui.NewToolOutputError(e.ToolCallID, e.ErrorText), true
}

// reduceSource maps a source reference to the matching UI event flavor.
func reduceSource(e *event.SourceEvent) ui.Event {
	if e.SourceType == event.SourceTypeDocument {
		return ui.NewSourceDocument(e.SourceID, e.MediaType, e.Title, e.Filename)
	}
	return ui.NewSourceURL(e.SourceID, e.URL, e.Title)
}

// reduceCustomData validates the caller data contract and passes the payload
// through. A nil payload is a fatal format error: silently dropping it would
// hide a producer bug from both the client and the operator.
func reduceCustomData(e *event.CustomDataEvent) (ui.Event, error) {
	if e.Data == nil {
		return nil, &FormatError{Kind: e.Kind(), RunID: e.RunID(), Origin: e.Origin()}
	}
	return ui.NewData(e.Name, e.Data), nil
}

// reduceFinish closes any still-streaming text and reasoning parts, records
// final usage, and emits the terminal finish event.
func reduceFinish(buf *RunBuffer, e *event.FinishEvent) []ui.Event {
	var out []ui.Event
	if buf.textOpen {
		buf.textOpen = false
		out = append(out, ui.NewTextEnd(buf.textID))
	}
	if buf.reasoningOpen {
		buf.reasoningOpen = false
		out = append(out, ui.NewReasoningEnd(buf.reasoningID))
	}
	buf.Status = event.StatusSuccess
	reason := e.Reason
	if reason == "" {
		reason = "unknown"
	}
	var usage *ui.UsagePayload
	if e.Usage != nil {
		u := *e.Usage
		buf.Usage = &u
		usage = &ui.UsagePayload{
			InputTokens:  u.InputTokens,
			OutputTokens: u.OutputTokens,
			TotalTokens:  u.TotalTokens,
		}
	}
	return append(out, ui.NewFinish(reason, usage))
}

// reduceNested folds a nested run event into its buffer and reports whether
// anything changed (false means the kind is unknown at this tier and is
// ignored). The caller emits the resulting full snapshot.
func reduceNested(buf *RunBuffer, ev event.Event) bool {
	switch e := ev.(type) {
	case *event.WorkflowStartEvent:
		buf.Name = e.Name
		buf.Status = event.StatusRunning
	case *event.StepStartEvent:
		step := buf.UpsertStep(e.StepID)
		step.Name = e.StepName
		step.Status = event.StatusRunning
		if len(e.Input) > 0 {
			step.Input = e.Input
		}
	case *event.StepResultEvent:
		step := buf.UpsertStep(e.StepID)
		step.Status = e.Status
		step.Output = e.Output
		step.ErrorText = e.ErrorText
	case *event.WorkflowSuspendedEvent:
		buf.Status = event.StatusSuspended
		if e.StepID != "" {
			step := buf.UpsertStep(e.StepID)
			step.Status = event.StatusSuspended
			step.SuspendPayload = e.Payload
		}
	case *event.WorkflowFinishEvent:
		finishNested(buf, e.Status)
	case *event.TextDeltaEvent:
		buf.Text += e.Delta
	case *event.ErrorEvent:
		buf.Status = event.StatusFailed
		buf.ErrorText = errorText(e.Cause)
	default:
		return false
	}
	return true
}

// finishNested records the terminal status of a nested run and derives its
// result or error from the last step.
//
// The derivation is deliberately asymmetric: a run finishing "success"
// surfaces a result only when its last step itself succeeded, and a run
// finishing "failed" surfaces an error only when its last step itself
// failed. A workflow can legitimately finish "success" with a suspended
// last step, in which case neither field is set.
func finishNested(buf *RunBuffer, status event.Status) {
	buf.Status = status
	last := buf.LastStep()
	if last == nil {
		return
	}
	switch {
	case status == event.StatusSuccess && last.Status == event.StatusSuccess:
		buf.Result = last.Output
	case status == event.StatusFailed && last.Status == event.StatusFailed:
		buf.ErrorText = last.ErrorText
	}
}

// errorText renders an upstream error cause for the client: string causes
// pass through verbatim, anything else is JSON-serialized. The cause is
// never replaced by a generic placeholder.
func errorText(cause any) string {
	switch c := cause.(type) {
	case string:
		return c
	case error:
		return c.Error()
	default:
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprintf("%v", c)
		}
		return string(raw)
	}
}
