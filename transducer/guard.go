package transducer

import (
	"goa.design/uistream/ui"
)

// guard tracks the terminal state of one output stream. It arms when a
// policy interruption (data-tripwire) passes through and, if the upstream
// sequence then closes without a finish event, synthesizes exactly one
// finish carrying ui.FinishReasonOther. A real finish suppresses the
// synthetic one.
type guard struct {
	armed       bool
	finished    bool
	synthesized bool
}

// Observe records the terminal-relevance of an emitted event. Call it for
// every event handed to the consumer.
func (g *guard) Observe(ev ui.Event) {
	switch ev.Type() {
	case ui.EventFinish:
		g.finished = true
	case ui.DataEventType(DataTripwire):
		g.armed = true
	}
}

// Terminal returns the synthetic finish event to append at end of input, if
// one is owed. The second return is false when the stream already terminated
// properly or was never interrupted. Terminal returns true at most once.
func (g *guard) Terminal() (ui.Finish, bool) {
	if !g.armed || g.finished || g.synthesized {
		return ui.Finish{}, false
	}
	g.synthesized = true
	return ui.NewFinish(ui.FinishReasonOther, nil), true
}
