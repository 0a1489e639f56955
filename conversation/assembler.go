// Package conversation folds UI events into persisted conversation state.
// The assembler applies one event at a time to an ordered message list,
// enforcing the message and part lifecycle rules; the continuation resolver
// computes the message identity to use when a response extends a prior
// conversation across two client requests.
package conversation

import (
	"github.com/google/uuid"

	"goa.design/uistream/ui"
)

// Apply folds one UI event into the conversation and returns the updated
// message list. The input slice is never mutated: Apply always returns a new
// top-level slice, and any touched message is rebuilt through the ui package
// copy-on-write helpers so consumers can diff by reference equality.
//
// Lifecycle rules:
//   - start appends a new empty assistant message.
//   - Text events attach to the trailing assistant message and are dropped
//     when none is open; reasoning events create one instead. The asymmetry
//     is deliberate and preserved for compatibility with existing executor
//     behavior (see the package tests).
//   - tool-input-available appends or updates the part keyed by tool call
//     ID; tool output events transition a known part and are no-ops for
//     unknown IDs. Tool parts never regress from a terminal state.
//   - finish freezes still-streaming text and reasoning parts; it leaves
//     tool, source, file, and data parts untouched.
//   - tripwire data and error events always open a fresh assistant message
//     tagged with a warning or error status, never attaching to in-progress
//     content.
func Apply(msgs []ui.Message, ev ui.Event) []ui.Message {
	out := append([]ui.Message(nil), msgs...)
	switch e := ev.(type) {
	case ui.Start:
		id := e.Data.MessageID
		if id == "" {
			id = uuid.NewString()
		}
		return append(out, ui.NewMessage(id, ui.RoleAssistant))
	case ui.TextStart:
		i := trailingAssistant(out)
		if i < 0 {
			return out
		}
		out[i] = out[i].WithPart(ui.TextPart{State: ui.PartStreaming})
		return out
	case ui.TextDelta:
		i := trailingAssistant(out)
		if i < 0 {
			// Orphaned text deltas never create a message on their own.
			return out
		}
		return appendText(out, i, e.Data.Delta)
	case ui.TextEnd:
		i := trailingAssistant(out)
		if i < 0 {
			return out
		}
		return freezeOpen(out, i, false)
	case ui.ReasoningStart:
		i := ensureAssistant(&out)
		out[i] = out[i].WithPart(ui.ReasoningPart{State: ui.PartStreaming})
		return out
	case ui.ReasoningDelta:
		// Unlike text deltas, orphaned reasoning deltas open a new
		// assistant message.
		i := ensureAssistant(&out)
		return appendReasoning(out, i, e.Data.Delta)
	case ui.ReasoningEnd:
		i := trailingAssistant(out)
		if i < 0 {
			return out
		}
		return freezeOpen(out, i, true)
	case ui.ToolInputAvailable:
		i := ensureAssistant(&out)
		msg := out[i]
		if j := msg.ToolPartIndex(e.Data.ToolCallID); j >= 0 {
			part := msg.Parts[j].(ui.ToolPart)
			if part.State.Terminal() {
				return out
			}
			part.ToolName = e.Data.ToolName
			part.Input = e.Data.Input
			part.State = ui.ToolStateInputAvailable
			out[i] = msg.WithPartAt(j, part)
			return out
		}
		out[i] = msg.WithPart(ui.ToolPart{
			ToolName:   e.Data.ToolName,
			ToolCallID: e.Data.ToolCallID,
			State:      ui.ToolStateInputAvailable,
			Input:      e.Data.Input,
		})
		return out
	case ui.ToolOutputAvailable:
		return transitionTool(out, e.Data.ToolCallID, func(part ui.ToolPart) ui.ToolPart {
			part.State = ui.ToolStateOutputAvailable
			part.Output = e.Data.Output
			part.ErrorText = ""
			return part
		})
	case ui.ToolOutputError:
		return transitionTool(out, e.Data.ToolCallID, func(part ui.ToolPart) ui.ToolPart {
			part.State = ui.ToolStateOutputError
			part.Output = nil
			part.ErrorText = e.Data.ErrorText
			return part
		})
	case ui.SourceURL:
		i := ensureAssistant(&out)
		out[i] = out[i].WithPart(ui.SourceURLPart{
			SourceID: e.Data.SourceID,
			URL:      e.Data.URL,
			Title:    e.Data.Title,
		})
		return out
	case ui.SourceDocument:
		i := ensureAssistant(&out)
		out[i] = out[i].WithPart(ui.SourceDocumentPart{
			SourceID:  e.Data.SourceID,
			MediaType: e.Data.MediaType,
			Title:     e.Data.Title,
			Filename:  e.Data.Filename,
		})
		return out
	case ui.File:
		i := ensureAssistant(&out)
		out[i] = out[i].WithPart(ui.FilePart{MediaType: e.Data.MediaType, URL: e.Data.URL})
		return out
	case ui.Data:
		if e.Name == ui.DataTripwire {
			return append(out, interruptionMessage(tripwireReason(e.Data), "warning"))
		}
		i := ensureAssistant(&out)
		out[i] = out[i].WithPart(ui.DataPart{Name: e.Name, Data: e.Data})
		return out
	case ui.Error:
		return append(out, interruptionMessage(e.Data.ErrorText, "error"))
	case ui.Finish:
		i := trailingAssistant(out)
		if i < 0 {
			return out
		}
		out[i] = freezeAll(out[i])
		return out
	case ui.MessageMetadata:
		if len(out) == 0 || len(e.Data.Metadata) == 0 {
			return out
		}
		out[len(out)-1] = out[len(out)-1].WithMetadata(e.Data.Metadata)
		return out
	default:
		return out
	}
}

// Reduce folds a sequence of UI events into the conversation.
func Reduce(msgs []ui.Message, events ...ui.Event) []ui.Message {
	out := msgs
	for _, ev := range events {
		out = Apply(out, ev)
	}
	return out
}

// trailingAssistant returns the index of the last message when it is an
// assistant message, -1 otherwise. Events never attach to earlier messages:
// once a later message exists, prior ones are logically immutable.
func trailingAssistant(msgs []ui.Message) int {
	if len(msgs) == 0 {
		return -1
	}
	i := len(msgs) - 1
	if msgs[i].Role != ui.RoleAssistant {
		return -1
	}
	return i
}

// ensureAssistant returns the index of the trailing assistant message,
// appending a fresh one when none is open.
func ensureAssistant(msgs *[]ui.Message) int {
	if i := trailingAssistant(*msgs); i >= 0 {
		return i
	}
	*msgs = append(*msgs, ui.NewMessage(uuid.NewString(), ui.RoleAssistant))
	return len(*msgs) - 1
}

// appendText concatenates a fragment onto the open text part of message i,
// opening one when none is streaming.
func appendText(msgs []ui.Message, i int, delta string) []ui.Message {
	msg := msgs[i]
	for j := len(msg.Parts) - 1; j >= 0; j-- {
		if part, ok := msg.Parts[j].(ui.TextPart); ok && part.State == ui.PartStreaming {
			part.Text += delta
			msgs[i] = msg.WithPartAt(j, part)
			return msgs
		}
	}
	msgs[i] = msg.WithPart(ui.TextPart{Text: delta, State: ui.PartStreaming})
	return msgs
}

// appendReasoning concatenates a fragment onto the open reasoning part of
// message i, opening one when none is streaming.
func appendReasoning(msgs []ui.Message, i int, delta string) []ui.Message {
	msg := msgs[i]
	for j := len(msg.Parts) - 1; j >= 0; j-- {
		if part, ok := msg.Parts[j].(ui.ReasoningPart); ok && part.State == ui.PartStreaming {
			part.Text += delta
			msgs[i] = msg.WithPartAt(j, part)
			return msgs
		}
	}
	msgs[i] = msg.WithPart(ui.ReasoningPart{Text: delta, State: ui.PartStreaming})
	return msgs
}

// freezeOpen marks the open text (or reasoning) part of message i done.
func freezeOpen(msgs []ui.Message, i int, reasoning bool) []ui.Message {
	msg := msgs[i]
	for j := len(msg.Parts) - 1; j >= 0; j-- {
		switch part := msg.Parts[j].(type) {
		case ui.TextPart:
			if !reasoning && part.State == ui.PartStreaming {
				part.State = ui.PartDone
				msgs[i] = msg.WithPartAt(j, part)
				return msgs
			}
		case ui.ReasoningPart:
			if reasoning && part.State == ui.PartStreaming {
				part.State = ui.PartDone
				msgs[i] = msg.WithPartAt(j, part)
				return msgs
			}
		}
	}
	return msgs
}

// freezeAll marks every still-streaming text and reasoning part of the
// message done. Tool, source, file, and data parts are untouched.
func freezeAll(msg ui.Message) ui.Message {
	out := msg.Clone()
	for j, p := range out.Parts {
		switch part := p.(type) {
		case ui.TextPart:
			if part.State == ui.PartStreaming {
				part.State = ui.PartDone
				out.Parts[j] = part
			}
		case ui.ReasoningPart:
			if part.State == ui.PartStreaming {
				part.State = ui.PartDone
				out.Parts[j] = part
			}
		}
	}
	return out
}

// transitionTool applies fn to the tool part with the given call ID on the
// trailing assistant message. Unknown call IDs are no-ops: an output event
// never creates a part.
func transitionTool(msgs []ui.Message, toolCallID string, fn func(ui.ToolPart) ui.ToolPart) []ui.Message {
	i := trailingAssistant(msgs)
	if i < 0 {
		return msgs
	}
	msg := msgs[i]
	j := msg.ToolPartIndex(toolCallID)
	if j < 0 {
		return msgs
	}
	msgs[i] = msg.WithPartAt(j, fn(msg.Parts[j].(ui.ToolPart)))
	return msgs
}

// interruptionMessage builds the standalone assistant message appended for
// tripwire and error events.
func interruptionMessage(text, status string) ui.Message {
	msg := ui.NewMessage(uuid.NewString(), ui.RoleAssistant)
	msg = msg.WithPart(ui.TextPart{Text: text, State: ui.PartDone})
	return msg.WithMetadata(map[string]any{"status": status})
}

// tripwireReason extracts the human-readable reason from a tripwire data
// payload regardless of whether it arrives typed or as decoded JSON.
func tripwireReason(data any) string {
	switch p := data.(type) {
	case ui.TripwirePayload:
		return p.Reason
	case *ui.TripwirePayload:
		return p.Reason
	case map[string]any:
		if reason, ok := p["reason"].(string); ok {
			return reason
		}
	}
	return "run interrupted"
}
