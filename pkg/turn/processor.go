// Package turn runs the per-turn pipeline: split the raw narrator
// output into narration and events, segment the narration, decode the
// events, apply the batch to the session, and project the next
// snapshot.
package turn

import (
	"log/slog"
	"strings"

	"github.com/jwebster45206/narrative-engine/pkg/event"
	"github.com/jwebster45206/narrative-engine/pkg/narrative"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

// eventsMarker separates the narration section from the serialized
// event array in the narrator model's output.
const eventsMarker = "EVENTS:"

// narrativeMarker optionally opens the narration section; it is
// stripped when present.
const narrativeMarker = "NARRATIVE:"

// Result is everything one turn produces. Lines are always populated
// from whatever narration was received. When DecodeErr is set the
// events payload was malformed at the top level: no outcomes exist and
// the snapshot reflects the unmodified pre-turn state, per the
// payload-level failure contract.
type Result struct {
	Lines     []narrative.SpeakerLine
	Events    []event.Event
	Report    *event.Report
	Snapshot  state.Snapshot
	DecodeErr error
}

// Processor drives turns against sessions. It holds no per-session
// state and may be shared.
type Processor struct {
	logger *slog.Logger
}

func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger}
}

// ProcessTurn consumes one raw narrator response for the session.
func (p *Processor) ProcessTurn(sess *state.Session, raw string) *Result {
	narration, eventsPayload := Split(raw)
	res := &Result{
		Lines: narrative.Segment(narration),
	}

	events, err := event.Decode([]byte(eventsPayload))
	if err != nil {
		p.logger.Warn("events payload did not decode",
			"session_id", sess.ID.String(),
			"error", err)
		res.DecodeErr = err
		res.Snapshot = sess.Snapshot()
		return res
	}

	res.Events = events
	res.Report = sess.ApplyBatch(events)
	res.Snapshot = sess.Snapshot()
	return res
}

// Split separates a raw narrator response into its narration text and
// events payload. A missing EVENTS section yields an empty array so a
// narration-only response still succeeds.
func Split(raw string) (narration, events string) {
	narration, events, found := strings.Cut(raw, eventsMarker)
	if !found {
		events = "[]"
	}
	narration = strings.TrimSpace(narration)
	if rest, ok := strings.CutPrefix(narration, narrativeMarker); ok {
		narration = strings.TrimSpace(rest)
	}
	return narration, strings.TrimSpace(events)
}
