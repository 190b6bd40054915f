// Package audit emits structured audit events for workflow-critical actions
// (visit finalization, billing-gate overrides). Persistence is owned by an
// external audit-log collaborator; this package only shapes and hands off
// the event payload.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a single audit record.
type Event struct {
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	VisitID   uuid.UUID `json:"visit_id"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder receives audit events. Implementations must not block request
// handling on downstream failures.
type Recorder interface {
	Record(event Event)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(event Event)

func (f RecorderFunc) Record(event Event) { f(event) }

// LogRecorder writes audit events to the structured log. Used when no
// external audit sink is configured.
type LogRecorder struct {
	logger zerolog.Logger
}

func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(event Event) {
	r.logger.Info().
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("visit_id", event.VisitID.String()).
		Str("detail", event.Detail).
		Time("timestamp", event.Timestamp).
		Msg("audit")
}
