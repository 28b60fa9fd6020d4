// Package events defines the domain event model: a closed enumeration of
// event types, one typed payload per type, and the Event envelope that the
// append-only log persists. The log is the single source of truth for all
// orchestrator state; every other component either appends events or is
// reconstructed by replaying them.
package events

import (
	"fmt"
	"time"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// EventType identifies the kind of a domain event. The enumeration is
// closed: the log rejects unknown types at append time, which is the single
// schema gate that keeps the log legible years later.
type EventType string

const (
	// Mission lifecycle
	// EventTypeMissionStarted indicates a mission began executing
	EventTypeMissionStarted EventType = "mission_started"
	// EventTypeMissionCompleted indicates a mission reached its success terminal
	EventTypeMissionCompleted EventType = "mission_completed"
	// EventTypeMissionPaused indicates a mission stopped at the safe rendezvous point
	EventTypeMissionPaused EventType = "mission_paused"
	// EventTypeMissionCancelled indicates a mission was cancelled cooperatively
	EventTypeMissionCancelled EventType = "mission_cancelled"
	// EventTypeMissionResumed indicates a paused mission was resumed by a human
	EventTypeMissionResumed EventType = "mission_resumed"

	// Stage machinery
	// EventTypeStageChanged indicates the state machine entered a new stage
	EventTypeStageChanged EventType = "stage_changed"
	// EventTypeStageTimeout indicates a stage exceeded its timeout budget
	EventTypeStageTimeout EventType = "stage_timeout"

	// Context and scope
	// EventTypeContextRetrieved indicates file context was captured with a staleness snapshot
	EventTypeContextRetrieved EventType = "context_retrieved"
	// EventTypeScopeViolation indicates a proposed file was blocked by a scope fence
	EventTypeScopeViolation EventType = "scope_violation"

	// Proposals
	// EventTypePlanProposed indicates the generation service proposed a patch plan
	EventTypePlanProposed EventType = "plan_proposed"
	// EventTypeDiffProposed indicates the generation service proposed a diff
	EventTypeDiffProposed EventType = "diff_proposed"

	// Approvals
	// EventTypeApprovalRequested indicates a human approval gate was opened
	EventTypeApprovalRequested EventType = "approval_requested"
	// EventTypeApprovalResolved indicates a human answered an approval gate
	EventTypeApprovalResolved EventType = "approval_resolved"
	// EventTypeTestCommandApproved indicates a test command joined the session allowlist
	EventTypeTestCommandApproved EventType = "test_command_approved"

	// Mutations
	// EventTypeCheckpointCreated indicates pre-change file state was backed up
	EventTypeCheckpointCreated EventType = "checkpoint_created"
	// EventTypeDiffApplied indicates a diff was written to the workspace
	EventTypeDiffApplied EventType = "diff_applied"
	// EventTypeDiffRejected indicates a proposed diff was denied or discarded
	EventTypeDiffRejected EventType = "diff_rejected"
	// EventTypeStalenessDetected indicates on-disk content drifted from the context snapshot
	EventTypeStalenessDetected EventType = "staleness_detected"
	// EventTypeRollbackPerformed indicates a checkpoint was restored
	EventTypeRollbackPerformed EventType = "rollback_performed"

	// Verification
	// EventTypeTestRunStarted indicates approved test commands began executing
	EventTypeTestRunStarted EventType = "test_run_started"
	// EventTypeTestRunCompleted indicates test execution finished
	EventTypeTestRunCompleted EventType = "test_run_completed"
	// EventTypeFailureClassified indicates raw failure output was classified
	EventTypeFailureClassified EventType = "failure_classified"

	// Self-correction
	// EventTypeRepairAttemptStarted indicates a recovery-ladder attempt began
	EventTypeRepairAttemptStarted EventType = "repair_attempt_started"
	// EventTypeRepairAttemptCompleted indicates a recovery-ladder attempt finished
	EventTypeRepairAttemptCompleted EventType = "repair_attempt_completed"
	// EventTypeDecisionPointCreated indicates automatic recovery was exhausted
	EventTypeDecisionPointCreated EventType = "decision_point_created"
	// EventTypeDecisionPointResolved indicates a human chose a decision option
	EventTypeDecisionPointResolved EventType = "decision_point_resolved"

	// EventTypeError indicates a classified error outside any narrower event
	EventTypeError EventType = "error"
)

// IsValid reports whether the type is part of the closed enumeration.
func (t EventType) IsValid() bool {
	_, ok := payloadFactories[t]
	return ok
}

// Event is the immutable envelope persisted in the log. Once appended an
// event never changes; readers receive copies so no consumer can mutate
// history.
type Event struct {
	// ID is unique, random, and collision-resistant.
	ID string `json:"id"`
	// TaskID groups events belonging to one task/session.
	TaskID    string      `json:"task_id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	Mode      types.Mode  `json:"mode,omitempty"`
	Stage     types.Stage `json:"stage,omitempty"`
	// Payload is the typed data for this event kind; exactly one payload
	// shape exists per type.
	Payload Payload `json:"payload,omitempty"`
	// EvidenceIDs reference supporting artifacts in order.
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
	// ParentEventID is a back-reference for causality, never ownership.
	ParentEventID string `json:"parent_event_id,omitempty"`
}

// Validate checks the envelope is well formed and the type is known.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if e.TaskID == "" {
		return fmt.Errorf("event task_id is required")
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.Payload != nil && e.Payload.EventType() != e.Type {
		return fmt.Errorf("payload type %q does not match event type %q",
			e.Payload.EventType(), e.Type)
	}
	return nil
}

// Clone returns a deep copy of the event. The log hands clones to readers
// so replay is safe to run concurrently with new appends.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	out.EvidenceIDs = append([]string(nil), e.EvidenceIDs...)
	if e.Payload != nil {
		out.Payload = clonePayload(e.Payload)
	}
	return &out
}
