package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// New creates an event for the given task with a fresh ID and timestamp.
// The event type is taken from the payload, so a constructed event can
// never carry a mismatched payload.
func New(taskID string, mode types.Mode, stage types.Stage, payload Payload) *Event {
	return &Event{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Type:      payload.EventType(),
		Mode:      mode,
		Stage:     stage,
		Payload:   payload,
	}
}

// WithParent links the event to the event that caused it and returns the
// receiver for chaining.
func (e *Event) WithParent(parentID string) *Event {
	e.ParentEventID = parentID
	return e
}

// WithEvidence attaches evidence references and returns the receiver.
func (e *Event) WithEvidence(ids ...string) *Event {
	e.EvidenceIDs = append(e.EvidenceIDs, ids...)
	return e
}

// NewStageChanged creates the transition event emitted on every move
// through the state machine.
func NewStageChanged(taskID, missionID string, mode types.Mode, from, to types.Stage, transition string) *Event {
	return New(taskID, mode, to, &StageChangedPayload{
		MissionID:  missionID,
		From:       from,
		To:         to,
		Transition: transition,
	})
}

// NewError creates an error event from a classified descriptor.
func NewError(taskID, missionID string, mode types.Mode, stage types.Stage, desc types.ErrorDescriptor) *Event {
	return New(taskID, mode, stage, &ErrorPayload{
		MissionID:  missionID,
		Descriptor: desc,
	})
}
