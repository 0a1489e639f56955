package transducer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/uistream/event"
	"goa.design/uistream/ui"
)

func TestTextRun(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewTextDeltaEvent("r1", event.OriginTask, "Hello"),
		event.NewTextDeltaEvent("r1", event.OriginTask, ", world"),
		event.NewFinishEvent("r1", event.OriginTask, "stop", nil),
	)
	out, err := New(src, WithMessageID("m1")).Drain(context.Background())
	require.NoError(t, err)

	types := make([]ui.EventType, len(out))
	for i, ev := range out {
		types[i] = ev.Type()
	}
	require.Equal(t, []ui.EventType{
		ui.EventStart,
		ui.EventTextStart,
		ui.EventTextDelta,
		ui.EventTextDelta,
		ui.EventTextEnd,
		ui.EventFinish,
	}, types)

	start, ok := out[0].(ui.Start)
	require.True(t, ok)
	require.Equal(t, "m1", start.Data.MessageID)

	first := out[2].(ui.TextDelta)
	second := out[3].(ui.TextDelta)
	require.Equal(t, "Hello", first.Data.Delta)
	require.Equal(t, ", world", second.Data.Delta)
	require.Equal(t, first.Data.ID, second.Data.ID)

	fin := out[5].(ui.Finish)
	require.Equal(t, "stop", fin.Data.Reason)
}

func TestFinishReasonDefaultsToUnknown(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewFinishEvent("r1", event.OriginTask, "", nil),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	fin := out[len(out)-1].(ui.Finish)
	require.Equal(t, "unknown", fin.Data.Reason)
}

func TestFinishCarriesUsage(t *testing.T) {
	usage := &event.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewFinishEvent("r1", event.OriginTask, "stop", usage),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	fin := out[len(out)-1].(ui.Finish)
	require.NotNil(t, fin.Data.Usage)
	require.Equal(t, 10, fin.Data.Usage.InputTokens)
	require.Equal(t, 15, fin.Data.Usage.TotalTokens)
}

func TestToolLifecycle(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewToolCallEvent("r1", event.OriginTask, "c1", "get_clipboard", json.RawMessage(`{}`)),
		event.NewToolResultEvent("r1", event.OriginTask, "c1", json.RawMessage(`"notes"`)),
		event.NewFinishEvent("r1", event.OriginTask, "tool-calls", nil),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)

	call, ok := out[1].(ui.ToolInputAvailable)
	require.True(t, ok)
	require.Equal(t, "c1", call.Data.ToolCallID)
	require.Equal(t, "get_clipboard", call.Data.ToolName)

	res, ok := out[2].(ui.ToolOutputAvailable)
	require.True(t, ok)
	require.Equal(t, "c1", res.Data.ToolCallID)
	require.JSONEq(t, `"notes"`, string(res.Data.Output))
}

func TestOrphanedToolResultDropped(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewToolResultEvent("r1", event.OriginTask, "never-called", json.RawMessage(`1`)),
		event.NewFinishEvent("r1", event.OriginTask, "stop", nil),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	for _, ev := range out {
		require.NotEqual(t, ui.EventToolOutputAvailable, ev.Type())
	}
}

func TestToolCallNeverRegressesFromTerminal(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewToolCallEvent("r1", event.OriginTask, "c1", "search", json.RawMessage(`{}`)),
		event.NewToolErrorEvent("r1", event.OriginTask, "c1", "boom"),
		event.NewToolCallEvent("r1", event.OriginTask, "c1", "search", json.RawMessage(`{}`)),
		event.NewFinishEvent("r1", event.OriginTask, "stop", nil),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	var calls int
	for _, ev := range out {
		if ev.Type() == ui.EventToolInputAvailable {
			calls++
		}
	}
	require.Equal(t, 1, calls)
}

func TestDuplicateToolResultLastWriteWins(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewToolCallEvent("r1", event.OriginTask, "c1", "search", json.RawMessage(`{}`)),
		event.NewToolResultEvent("r1", event.OriginTask, "c1", json.RawMessage(`"first"`)),
		event.NewToolErrorEvent("r1", event.OriginTask, "c1", "late failure"),
		event.NewFinishEvent("r1", event.OriginTask, "stop", nil),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)

	var last ui.Event
	for _, ev := range out {
		switch ev.Type() {
		case ui.EventToolOutputAvailable, ui.EventToolOutputError:
			last = ev
		}
	}
	fail, ok := last.(ui.ToolOutputError)
	require.True(t, ok)
	require.Equal(t, "late failure", fail.Data.ErrorText)
}

func TestUnknownKindIgnored(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		unknownEvent{},
		event.NewFinishEvent("r1", event.OriginTask, "stop", nil),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2) // start, finish
}

func TestCustomDataMissingPayloadFatal(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewCustomDataEvent("r1", event.OriginTool, "foo", nil),
	)
	tr := New(src)
	_, err := tr.Next(context.Background()) // start
	require.NoError(t, err)
	_, err = tr.Next(context.Background())
	require.Error(t, err)
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	require.Contains(t, err.Error(), "data-foo")
	require.Contains(t, err.Error(), "r1")
}

func TestCustomDataPassthrough(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewCustomDataEvent("r1", event.OriginTool, "progress", map[string]any{"pct": 40}),
		event.NewFinishEvent("r1", event.OriginTask, "stop", nil),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	data, ok := out[1].(ui.Data)
	require.True(t, ok)
	require.Equal(t, ui.EventType("data-progress"), data.Type())
	require.Equal(t, map[string]any{"pct": 40}, data.Data)
}

func TestNonDataPassthroughIgnored(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewTextDeltaEvent("r1", event.OriginTool, "smuggled"),
		event.NewFinishEvent("r1", event.OriginTask, "stop", nil),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestErrorEventStringCausePassedVerbatim(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewErrorEvent("r1", event.OriginTask, "rate limited"),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	uerr := out[1].(ui.Error)
	require.Equal(t, "rate limited", uerr.Data.ErrorText)
}

func TestErrorEventObjectCauseSerialized(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewErrorEvent("r1", event.OriginTask, map[string]any{"code": 429}),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	uerr := out[1].(ui.Error)
	require.JSONEq(t, `{"code":429}`, uerr.Data.ErrorText)
}

func TestNestedWorkflowSnapshots(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewWorkflowStartEvent("w1", event.OriginWorkflow, "enrich"),
		event.NewStepStartEvent("w1", event.OriginWorkflow, "s1", "fetch", json.RawMessage(`{"q":"x"}`)),
		event.NewStepResultEvent("w1", event.OriginWorkflow, "s1", event.StatusSuccess, json.RawMessage(`"ok"`), ""),
		event.NewWorkflowFinishEvent("w1", event.OriginWorkflow, event.StatusSuccess),
		event.NewFinishEvent("r1", event.OriginTask, "stop", nil),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)

	var snaps []RunSnapshot
	for _, ev := range out {
		if ev.Type() == ui.EventType("data-workflow") {
			snaps = append(snaps, ev.(ui.Data).Data.(RunSnapshot))
		}
	}
	require.Len(t, snaps, 4)

	final := snaps[len(snaps)-1]
	require.Equal(t, "w1", final.RunID)
	require.Equal(t, "enrich", final.Name)
	require.Equal(t, event.StatusSuccess, final.Status)
	require.JSONEq(t, `"ok"`, string(final.Result))
	require.Len(t, final.Steps, 1)
	require.Equal(t, "fetch", final.Steps[0].Name)
}

func TestNestedSuccessWithSuspendedLastStepHasNoResult(t *testing.T) {
	src := SliceSource(
		event.NewWorkflowStartEvent("w1", event.OriginWorkflow, "approval"),
		event.NewStepStartEvent("w1", event.OriginWorkflow, "s1", "wait", nil),
		event.NewWorkflowSuspendedEvent("w1", event.OriginWorkflow, "s1", json.RawMessage(`{"until":"approved"}`)),
		event.NewWorkflowFinishEvent("w1", event.OriginWorkflow, event.StatusSuccess),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)

	final := out[len(out)-1].(ui.Data).Data.(RunSnapshot)
	require.Equal(t, event.StatusSuccess, final.Status)
	require.Nil(t, final.Result)
	require.Empty(t, final.ErrorText)
}

func TestOrchestratorEventsTaggedNetwork(t *testing.T) {
	src := SliceSource(
		event.NewWorkflowStartEvent("n1", event.OriginOrchestrator, "router"),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, ui.EventType("data-network"), out[0].Type())
}

func TestInterleavedRunsNoCrossTalk(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewTextDeltaEvent("r1", event.OriginTask, "top "),
		event.NewTextDeltaEvent("w1", event.OriginWorkflow, "nested "),
		event.NewTextDeltaEvent("r1", event.OriginTask, "level"),
		event.NewTextDeltaEvent("w1", event.OriginWorkflow, "text"),
		event.NewFinishEvent("r1", event.OriginTask, "stop", nil),
	)
	tr := New(src)
	out, err := tr.Drain(context.Background())
	require.NoError(t, err)

	var text string
	var lastSnap RunSnapshot
	for _, ev := range out {
		switch e := ev.(type) {
		case ui.TextDelta:
			text += e.Data.Delta
		case ui.Data:
			lastSnap = e.Data.(RunSnapshot)
		}
	}
	require.Equal(t, "top level", text)
	require.Equal(t, "nested text", lastSnap.Text)
}

func TestTripwireSynthesizesFinishAtEOF(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewTripwireEvent("r1", event.OriginTask, "policy violation"),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)

	trip := out[1].(ui.Data)
	require.Equal(t, ui.DataEventType(ui.DataTripwire), trip.Type())
	require.Equal(t, "policy violation", trip.Data.(ui.TripwirePayload).Reason)

	fin, ok := out[len(out)-1].(ui.Finish)
	require.True(t, ok)
	require.Equal(t, ui.FinishReasonOther, fin.Data.Reason)

	var finishes int
	for _, ev := range out {
		if ev.Type() == ui.EventFinish {
			finishes++
		}
	}
	require.Equal(t, 1, finishes)
}

func TestRealFinishSuppressesSyntheticOne(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewTripwireEvent("r1", event.OriginTask, "flagged"),
		event.NewFinishEvent("r1", event.OriginTask, "content-filter", nil),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)

	var finishes []ui.Finish
	for _, ev := range out {
		if fin, ok := ev.(ui.Finish); ok {
			finishes = append(finishes, fin)
		}
	}
	require.Len(t, finishes, 1)
	require.Equal(t, "content-filter", finishes[0].Data.Reason)
}

func TestNoSyntheticFinishWithoutTripwire(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewTextDeltaEvent("r1", event.OriginTask, "partial"),
	)
	out, err := New(src).Drain(context.Background())
	require.NoError(t, err)
	for _, ev := range out {
		require.NotEqual(t, ui.EventFinish, ev.Type())
	}
}

func TestCancellationStopsOutput(t *testing.T) {
	src := SliceSource(
		event.NewStartEvent("r1", event.OriginTask),
		event.NewTextDeltaEvent("r1", event.OriginTask, "never seen"),
	)
	ctx, cancel := context.WithCancel(context.Background())
	tr := New(src)

	_, err := tr.Next(ctx)
	require.NoError(t, err)

	cancel()
	_, err = tr.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSourceErrorPropagates(t *testing.T) {
	boom := errors.New("transport down")
	tr := New(failingSource{err: boom})
	_, err := tr.Next(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestEmptyStream(t *testing.T) {
	out, err := New(SliceSource()).Drain(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)

	tr := New(SliceSource())
	_, err = tr.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

// unknownEvent exercises forward compatibility for kinds this package does
// not know about.
type unknownEvent struct{}

func (unknownEvent) Kind() event.Kind     { return "shiny-new-kind" }
func (unknownEvent) RunID() string        { return "r1" }
func (unknownEvent) Origin() event.Origin { return event.OriginTask }
func (unknownEvent) Timestamp() int64     { return 0 }

type failingSource struct {
	err error
}

func (s failingSource) Next(ctx context.Context) (event.Event, error) {
	return nil, s.err
}
