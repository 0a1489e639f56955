package transducer

import (
	"context"
	"encoding/json"
	"fmt"

	"goa.design/uistream/event"
	"goa.design/uistream/telemetry"
	"goa.design/uistream/ui"
)

type (
	// dispatcher routes each execution event, by kind and origin tier, to
	// the owning run buffer and the matching part reducer. Side effects are
	// confined to buffer mutation; everything else about a dispatch is a
	// pure function of the buffer and the event.
	dispatcher struct {
		store     *Store
		profile   Profile
		messageID string
		logger    telemetry.Logger
		metrics   telemetry.Metrics
	}

	// FormatError is the fatal, stream-terminating error raised when a
	// custom data event violates the caller contract (nil data payload).
	// The message includes the offending event's serialized form so the
	// violation can be traced back to the producer.
	FormatError struct {
		// Kind is the offending event kind (e.g., "data-foo").
		Kind event.Kind
		// RunID is the run the event belonged to.
		RunID string
		// Origin is the tier that emitted the event.
		Origin event.Origin
	}
)

// Error implements error. The serialized event form is embedded verbatim.
func (e *FormatError) Error() string {
	serialized, _ := json.Marshal(struct {
		Kind   event.Kind   `json:"kind"`
		RunID  string       `json:"run_id"`
		Origin event.Origin `json:"origin"`
	}{Kind: e.Kind, RunID: e.RunID, Origin: e.Origin})
	return fmt.Sprintf("custom data event missing required data field: %s", serialized)
}

// DataWorkflow and DataNetwork are the data tags of the composite snapshot
// events emitted for nested sub-task and orchestrator runs. DataTripwire is
// the tag of policy interruption events, re-exported from ui for
// convenience.
const (
	DataWorkflow = "workflow"
	DataNetwork  = "network"
	DataTripwire = ui.DataTripwire
)

// Apply routes one execution event. It returns the UI events the input maps
// to (zero, one, or a short burst such as text-start plus the first delta)
// and a non-nil error only for fatal format violations. Unknown kind/origin
// combinations are ignored for forward compatibility.
func (d *dispatcher) Apply(ctx context.Context, ev event.Event) ([]ui.Event, error) {
	switch ev.Origin() {
	case event.OriginTool:
		return d.applyPassthrough(ctx, ev)
	case event.OriginWorkflow:
		return d.applyNested(ctx, ev, DataWorkflow)
	case event.OriginOrchestrator:
		return d.applyNested(ctx, ev, DataNetwork)
	default:
		return d.applyTask(ctx, ev)
	}
}

// applyTask handles events from the top-level task tier, which drive the
// fine-grained UI protocol (per-part start/delta/end events).
func (d *dispatcher) applyTask(ctx context.Context, ev event.Event) ([]ui.Event, error) {
	buf := d.store.Upsert(ev.RunID(), ev.Origin())
	switch e := ev.(type) {
	case *event.StartEvent:
		buf.Status = event.StatusRunning
		return d.emit(ctx, ui.NewStart(d.messageID)), nil
	case *event.TextDeltaEvent:
		if !d.profile.Text {
			reduceTextDelta(buf, e.Delta)
			return nil, nil
		}
		return d.emit(ctx, reduceTextDelta(buf, e.Delta)...), nil
	case *event.ReasoningDeltaEvent:
		if !d.profile.Reasoning {
			reduceReasoningDelta(buf, e.Delta)
			return nil, nil
		}
		return d.emit(ctx, reduceReasoningDelta(buf, e.Delta)...), nil
	case *event.ToolCallEvent:
		out, ok := reduceToolCall(buf, e)
		if !ok {
			d.drop(ctx, ev, "tool call regression")
			return nil, nil
		}
		if !d.profile.Tools {
			return nil, nil
		}
		return d.emit(ctx, out), nil
	case *event.ToolResultEvent:
		out, ok := reduceToolResult(buf, e)
		if !ok {
			d.drop(ctx, ev, "orphaned tool result")
			return nil, nil
		}
		if !d.profile.Tools {
			return nil, nil
		}
		return d.emit(ctx, out), nil
	case *event.ToolErrorEvent:
		out, ok := reduceToolError(buf, e)
		if !ok {
			d.drop(ctx, ev, "orphaned tool error")
			return nil, nil
		}
		if !d.profile.Tools {
			return nil, nil
		}
		return d.emit(ctx, out), nil
	case *event.SourceEvent:
		if !d.profile.Sources {
			return nil, nil
		}
		return d.emit(ctx, reduceSource(e)), nil
	case *event.FileEvent:
		if !d.profile.Files {
			return nil, nil
		}
		return d.emit(ctx, ui.NewFile(e.MediaType, e.URL)), nil
	case *event.CustomDataEvent:
		out, err := reduceCustomData(e)
		if err != nil {
			return nil, err
		}
		if !d.profile.Data {
			return nil, nil
		}
		return d.emit(ctx, out), nil
	case *event.TripwireEvent:
		buf.Status = event.StatusCanceled
		return d.emit(ctx, ui.NewData(DataTripwire, ui.TripwirePayload{Reason: e.Reason})), nil
	case *event.ErrorEvent:
		buf.Status = event.StatusFailed
		return d.emit(ctx, ui.NewError(errorText(e.Cause))), nil
	case *event.FinishEvent:
		return d.emit(ctx, reduceFinish(buf, e)...), nil
	default:
		d.drop(ctx, ev, "unknown kind")
		return nil, nil
	}
}

// applyNested handles events from nested sub-task and orchestrator tiers.
// Each relevant input folds into the nested run's buffer and surfaces as a
// composite data event carrying the full current snapshot under the given
// data tag.
func (d *dispatcher) applyNested(ctx context.Context, ev event.Event, tag string) ([]ui.Event, error) {
	buf := d.store.Upsert(ev.RunID(), ev.Origin())
	changed := reduceNested(buf, ev)
	if !changed {
		d.drop(ctx, ev, "unknown kind")
		return nil, nil
	}
	if !d.profile.Workflows {
		return nil, nil
	}
	return d.emit(ctx, ui.NewData(tag, buf.Snapshot())), nil
}

// applyPassthrough handles events forwarded by pass-through tools. Only
// custom data events pass; a nil data payload is a fatal format error and
// every other kind is ignored.
func (d *dispatcher) applyPassthrough(ctx context.Context, ev event.Event) ([]ui.Event, error) {
	e, ok := ev.(*event.CustomDataEvent)
	if !ok {
		d.drop(ctx, ev, "non-data passthrough")
		return nil, nil
	}
	out, err := reduceCustomData(e)
	if err != nil {
		return nil, err
	}
	if !d.profile.Data {
		return nil, nil
	}
	return d.emit(ctx, out), nil
}

// emit counts the outgoing events and returns them unchanged.
func (d *dispatcher) emit(ctx context.Context, evs ...ui.Event) []ui.Event {
	for _, ev := range evs {
		d.metrics.EventEmitted(ctx, string(ev.Type()))
	}
	return evs
}

// drop records a locally recovered event. Dropped events are never surfaced
// to the output stream.
func (d *dispatcher) drop(ctx context.Context, ev event.Event, reason string) {
	d.metrics.EventDropped(ctx, string(ev.Kind()), reason)
	d.logger.Debug(ctx, "event ignored",
		"kind", string(ev.Kind()),
		"run_id", ev.RunID(),
		"origin", string(ev.Origin()),
		"reason", reason,
	)
}
