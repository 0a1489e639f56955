package transducer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/uistream/event"
	"goa.design/uistream/telemetry"
	"goa.design/uistream/ui"
)

func newTestDispatcher(p Profile) *dispatcher {
	return &dispatcher{
		store:   NewStore(),
		profile: p,
		logger:  telemetry.NopLogger{},
		metrics: telemetry.NopMetrics{},
	}
}

func TestDispatcherBuffersCreatedOnFirstEvent(t *testing.T) {
	d := newTestDispatcher(DefaultProfile())
	ctx := context.Background()

	require.Nil(t, d.store.Get("r1"))
	_, err := d.Apply(ctx, event.NewTextDeltaEvent("r1", event.OriginTask, "x"))
	require.NoError(t, err)
	require.NotNil(t, d.store.Get("r1"))
	require.Equal(t, 1, d.store.Len())
}

func TestDispatcherTextStartEmittedOncePerPart(t *testing.T) {
	d := newTestDispatcher(DefaultProfile())
	ctx := context.Background()

	out, err := d.Apply(ctx, event.NewTextDeltaEvent("r1", event.OriginTask, "a"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, ui.EventTextStart, out[0].Type())

	out, err = d.Apply(ctx, event.NewTextDeltaEvent("r1", event.OriginTask, "b"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, ui.EventTextDelta, out[0].Type())
}

func TestDispatcherFinishStartsFreshPart(t *testing.T) {
	d := newTestDispatcher(DefaultProfile())
	ctx := context.Background()

	_, err := d.Apply(ctx, event.NewTextDeltaEvent("r1", event.OriginTask, "a"))
	require.NoError(t, err)
	out, err := d.Apply(ctx, event.NewFinishEvent("r1", event.OriginTask, "stop", nil))
	require.NoError(t, err)
	require.Equal(t, ui.EventTextEnd, out[0].Type())

	// A delta after finish opens a new part with a distinct ID.
	out, err = d.Apply(ctx, event.NewTextDeltaEvent("r1", event.OriginTask, "b"))
	require.NoError(t, err)
	require.Equal(t, ui.EventTextStart, out[0].Type())
	first := d.store.Get("r1")
	require.Equal(t, 2, first.textSeq)
}

func TestDispatcherStepUpsertIsIdempotent(t *testing.T) {
	d := newTestDispatcher(DefaultProfile())
	ctx := context.Background()

	_, err := d.Apply(ctx, event.NewStepStartEvent("w1", event.OriginWorkflow, "s1", "fetch", nil))
	require.NoError(t, err)
	_, err = d.Apply(ctx, event.NewStepStartEvent("w1", event.OriginWorkflow, "s1", "fetch", json.RawMessage(`{"retry":1}`)))
	require.NoError(t, err)

	snap := d.store.Get("w1").Snapshot()
	require.Len(t, snap.Steps, 1)
	require.JSONEq(t, `{"retry":1}`, string(snap.Steps[0].Input))
}

func TestDispatcherNestedFailureDerivesError(t *testing.T) {
	d := newTestDispatcher(DefaultProfile())
	ctx := context.Background()

	_, err := d.Apply(ctx, event.NewStepStartEvent("w1", event.OriginWorkflow, "s1", "fetch", nil))
	require.NoError(t, err)
	_, err = d.Apply(ctx, event.NewStepResultEvent("w1", event.OriginWorkflow, "s1", event.StatusFailed, nil, "connection refused"))
	require.NoError(t, err)
	out, err := d.Apply(ctx, event.NewWorkflowFinishEvent("w1", event.OriginWorkflow, event.StatusFailed))
	require.NoError(t, err)

	snap := out[0].(ui.Data).Data.(RunSnapshot)
	require.Equal(t, event.StatusFailed, snap.Status)
	require.Equal(t, "connection refused", snap.ErrorText)
}

func TestDispatcherSnapshotIsolatedFromBuffer(t *testing.T) {
	d := newTestDispatcher(DefaultProfile())
	ctx := context.Background()

	out, err := d.Apply(ctx, event.NewStepStartEvent("w1", event.OriginWorkflow, "s1", "fetch", nil))
	require.NoError(t, err)
	snap := out[0].(ui.Data).Data.(RunSnapshot)

	// Later mutation of the buffer must not leak into the emitted snapshot.
	_, err = d.Apply(ctx, event.NewStepResultEvent("w1", event.OriginWorkflow, "s1", event.StatusSuccess, json.RawMessage(`1`), ""))
	require.NoError(t, err)
	require.Equal(t, event.StatusRunning, snap.Steps[0].Status)
}

func TestDispatcherSourceFlavors(t *testing.T) {
	d := newTestDispatcher(DefaultProfile())
	ctx := context.Background()

	out, err := d.Apply(ctx, event.NewSourceEvent("r1", event.OriginTask, event.SourceTypeURL, "s1", "https://example.com", "", "Example", ""))
	require.NoError(t, err)
	require.Equal(t, ui.EventSourceURL, out[0].Type())

	out, err = d.Apply(ctx, event.NewSourceEvent("r1", event.OriginTask, event.SourceTypeDocument, "s2", "", "application/pdf", "Paper", "paper.pdf"))
	require.NoError(t, err)
	doc := out[0].(ui.SourceDocument)
	require.Equal(t, "application/pdf", doc.Data.MediaType)
	require.Equal(t, "paper.pdf", doc.Data.Filename)
}

func TestFormatErrorMessageEmbedsSerializedEvent(t *testing.T) {
	err := &FormatError{Kind: "data-chart", RunID: "r9", Origin: event.OriginTool}
	msg := err.Error()
	require.Contains(t, msg, "missing required data field")
	require.Contains(t, msg, `"kind":"data-chart"`)
	require.Contains(t, msg, `"run_id":"r9"`)
}
