package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// Payload is the tagged union of per-event-type data. Exactly one concrete
// struct exists per event type, so every consumer (reducer, decision-point
// builder, display) can switch on the concrete type and get exhaustiveness
// from the compiler, while storage serializes the union generically.
type Payload interface {
	EventType() EventType
}

// MissionStartedPayload records the mission's identity, declared scope, and
// repair budget at start. The reducer reads the budget back from here.
type MissionStartedPayload struct {
	MissionID    string   `json:"mission_id"`
	Title        string   `json:"title"`
	LikelyFiles  []string `json:"likely_files,omitempty"`
	OutOfScope   []string `json:"out_of_scope,omitempty"`
	RepairBudget int      `json:"repair_budget"`
}

func (MissionStartedPayload) EventType() EventType { return EventTypeMissionStarted }

// MissionCompletedPayload marks the success terminal.
type MissionCompletedPayload struct {
	MissionID string `json:"mission_id"`
	Summary   string `json:"summary,omitempty"`
}

func (MissionCompletedPayload) EventType() EventType { return EventTypeMissionCompleted }

// MissionPausedPayload carries the human-readable pause reason and, when
// recovery was exhausted, the decision point awaiting resolution.
type MissionPausedPayload struct {
	MissionID     string               `json:"mission_id"`
	Reason        string               `json:"reason"`
	Options       []string             `json:"options,omitempty"`
	DecisionPoint *types.DecisionPoint `json:"decision_point,omitempty"`
}

func (MissionPausedPayload) EventType() EventType { return EventTypeMissionPaused }

// MissionCancelledPayload marks cooperative cancellation.
type MissionCancelledPayload struct {
	MissionID string `json:"mission_id"`
	Reason    string `json:"reason,omitempty"`
}

func (MissionCancelledPayload) EventType() EventType { return EventTypeMissionCancelled }

// MissionResumedPayload records a human resuming a paused mission.
type MissionResumedPayload struct {
	MissionID string      `json:"mission_id"`
	FromStage types.Stage `json:"from_stage"`
	OptionID  string      `json:"option_id,omitempty"`
}

func (MissionResumedPayload) EventType() EventType { return EventTypeMissionResumed }

// StageChangedPayload records one state-machine transition.
type StageChangedPayload struct {
	MissionID  string      `json:"mission_id"`
	From       types.Stage `json:"from,omitempty"`
	To         types.Stage `json:"to"`
	Transition string      `json:"transition,omitempty"`
}

func (StageChangedPayload) EventType() EventType { return EventTypeStageChanged }

// StageTimeoutPayload records a stage losing the race against its timer.
type StageTimeoutPayload struct {
	MissionID      string      `json:"mission_id"`
	Stage          types.Stage `json:"stage"`
	TimeoutSeconds int         `json:"timeout_seconds"`
}

func (StageTimeoutPayload) EventType() EventType { return EventTypeStageTimeout }

// ContextRetrievedPayload records which files entered context and the
// content-hash snapshot used later for the staleness re-check.
type ContextRetrievedPayload struct {
	MissionID string `json:"mission_id"`
	Files     []string `json:"files"`
	// Snapshot maps path to content hash at capture time.
	Snapshot map[string]string `json:"snapshot,omitempty"`
}

func (ContextRetrievedPayload) EventType() EventType { return EventTypeContextRetrieved }

// ScopeViolationPayload records a file blocked by a scope fence before it
// could enter context or be written.
type ScopeViolationPayload struct {
	MissionID string `json:"mission_id"`
	Path      string `json:"path"`
	Pattern   string `json:"pattern"`
}

func (ScopeViolationPayload) EventType() EventType { return EventTypeScopeViolation }

// PlanProposedPayload records a proposed patch plan.
type PlanProposedPayload struct {
	MissionID string   `json:"mission_id"`
	Summary   string   `json:"summary"`
	Steps     []string `json:"steps,omitempty"`
}

func (PlanProposedPayload) EventType() EventType { return EventTypePlanProposed }

// DiffProposedPayload records a proposed diff. Repair marks diffs generated
// by the self-correction engine rather than the initial plan.
type DiffProposedPayload struct {
	MissionID     string   `json:"mission_id"`
	DiffID        string   `json:"diff_id"`
	FilesAffected []string `json:"files_affected,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Repair        bool     `json:"repair,omitempty"`
}

func (DiffProposedPayload) EventType() EventType { return EventTypeDiffProposed }

// ApprovalRequestedPayload records an approval gate opening.
type ApprovalRequestedPayload struct {
	MissionID string `json:"mission_id"`
	// Kind distinguishes the gate: "apply_diff" or "run_tests".
	Kind    string `json:"kind"`
	Action  string `json:"action"`
	Summary string `json:"summary,omitempty"`
}

func (ApprovalRequestedPayload) EventType() EventType { return EventTypeApprovalRequested }

// ApprovalResolvedPayload records the human's answer to a gate.
type ApprovalResolvedPayload struct {
	MissionID string `json:"mission_id"`
	Kind      string `json:"kind"`
	Approved  bool   `json:"approved"`
	DecidedBy string `json:"decided_by,omitempty"`
}

func (ApprovalResolvedPayload) EventType() EventType { return EventTypeApprovalResolved }

// TestCommandApprovedPayload records a command joining the session
// allowlist; it will not be re-prompted this session.
type TestCommandApprovedPayload struct {
	MissionID string `json:"mission_id"`
	Command   string `json:"command"`
}

func (TestCommandApprovedPayload) EventType() EventType { return EventTypeTestCommandApproved }

// CheckpointCreatedPayload records a pre-change backup. A checkpoint event
// always precedes the diff_applied event it protects.
type CheckpointCreatedPayload struct {
	MissionID    string   `json:"mission_id"`
	CheckpointID string   `json:"checkpoint_id"`
	Files        []string `json:"files,omitempty"`
}

func (CheckpointCreatedPayload) EventType() EventType { return EventTypeCheckpointCreated }

// DiffAppliedPayload records a diff reaching the workspace. This is the
// only event that decrements the repair budget during the repair loop.
type DiffAppliedPayload struct {
	MissionID    string   `json:"mission_id"`
	DiffID       string   `json:"diff_id"`
	CheckpointID string   `json:"checkpoint_id"`
	Files        []string `json:"files,omitempty"`
	Repair       bool     `json:"repair,omitempty"`
}

func (DiffAppliedPayload) EventType() EventType { return EventTypeDiffApplied }

// DiffRejectedPayload records a proposed diff that was denied or discarded.
type DiffRejectedPayload struct {
	MissionID string `json:"mission_id"`
	DiffID    string `json:"diff_id"`
	Reason    string `json:"reason,omitempty"`
}

func (DiffRejectedPayload) EventType() EventType { return EventTypeDiffRejected }

// StalenessDetectedPayload records drifted files found by the pre-apply
// staleness re-check.
type StalenessDetectedPayload struct {
	MissionID  string   `json:"mission_id"`
	StaleFiles []string `json:"stale_files"`
}

func (StalenessDetectedPayload) EventType() EventType { return EventTypeStalenessDetected }

// RollbackPerformedPayload records a checkpoint restore.
type RollbackPerformedPayload struct {
	MissionID    string `json:"mission_id"`
	CheckpointID string `json:"checkpoint_id"`
	Reason       string `json:"reason,omitempty"`
}

func (RollbackPerformedPayload) EventType() EventType { return EventTypeRollbackPerformed }

// TestRunStartedPayload records approved commands beginning execution.
type TestRunStartedPayload struct {
	MissionID string   `json:"mission_id"`
	Commands  []string `json:"commands"`
}

func (TestRunStartedPayload) EventType() EventType { return EventTypeTestRunStarted }

// TestRunCompletedPayload records a finished test run with whatever counts
// could be parsed from the output.
type TestRunCompletedPayload struct {
	MissionID string           `json:"mission_id"`
	Passed    bool             `json:"passed"`
	Counts    types.TestCounts `json:"counts"`
	// Signature is the failure signature when the run failed, else empty.
	Signature string `json:"signature,omitempty"`
}

func (TestRunCompletedPayload) EventType() EventType { return EventTypeTestRunCompleted }

// FailureClassifiedPayload records a deterministic output classification.
type FailureClassifiedPayload struct {
	MissionID      string                      `json:"mission_id"`
	Classification types.FailureClassification `json:"classification"`
}

func (FailureClassifiedPayload) EventType() EventType { return EventTypeFailureClassified }

// RepairAttemptStartedPayload records a recovery-ladder attempt beginning.
type RepairAttemptStartedPayload struct {
	MissionID  string                 `json:"mission_id"`
	Attempt    int                    `json:"attempt"`
	Phase      string                 `json:"phase"`
	Descriptor *types.ErrorDescriptor `json:"descriptor,omitempty"`
}

func (RepairAttemptStartedPayload) EventType() EventType { return EventTypeRepairAttemptStarted }

// RepairAttemptCompletedPayload records an attempt's outcome.
type RepairAttemptCompletedPayload struct {
	MissionID string `json:"mission_id"`
	Attempt   int    `json:"attempt"`
	Success   bool   `json:"success"`
	Signature string `json:"signature,omitempty"`
}

func (RepairAttemptCompletedPayload) EventType() EventType { return EventTypeRepairAttemptCompleted }

// DecisionPointCreatedPayload records automatic recovery exhausting itself
// and handing the question to a human.
type DecisionPointCreatedPayload struct {
	MissionID     string              `json:"mission_id"`
	DecisionPoint types.DecisionPoint `json:"decision_point"`
}

func (DecisionPointCreatedPayload) EventType() EventType { return EventTypeDecisionPointCreated }

// DecisionPointResolvedPayload records the human's chosen option.
type DecisionPointResolvedPayload struct {
	MissionID  string                   `json:"mission_id"`
	Resolution types.DecisionResolution `json:"resolution"`
}

func (DecisionPointResolvedPayload) EventType() EventType { return EventTypeDecisionPointResolved }

// ErrorPayload records a classified error outside any narrower event kind.
type ErrorPayload struct {
	MissionID  string                `json:"mission_id,omitempty"`
	Descriptor types.ErrorDescriptor `json:"descriptor"`
}

func (ErrorPayload) EventType() EventType { return EventTypeError }

// payloadFactories is the decode registry: one factory per event type.
// Membership in this map is what makes the enumeration closed.
var payloadFactories = map[EventType]func() Payload{
	EventTypeMissionStarted:         func() Payload { return &MissionStartedPayload{} },
	EventTypeMissionCompleted:       func() Payload { return &MissionCompletedPayload{} },
	EventTypeMissionPaused:          func() Payload { return &MissionPausedPayload{} },
	EventTypeMissionCancelled:       func() Payload { return &MissionCancelledPayload{} },
	EventTypeMissionResumed:         func() Payload { return &MissionResumedPayload{} },
	EventTypeStageChanged:           func() Payload { return &StageChangedPayload{} },
	EventTypeStageTimeout:           func() Payload { return &StageTimeoutPayload{} },
	EventTypeContextRetrieved:       func() Payload { return &ContextRetrievedPayload{} },
	EventTypeScopeViolation:         func() Payload { return &ScopeViolationPayload{} },
	EventTypePlanProposed:           func() Payload { return &PlanProposedPayload{} },
	EventTypeDiffProposed:           func() Payload { return &DiffProposedPayload{} },
	EventTypeApprovalRequested:      func() Payload { return &ApprovalRequestedPayload{} },
	EventTypeApprovalResolved:       func() Payload { return &ApprovalResolvedPayload{} },
	EventTypeTestCommandApproved:    func() Payload { return &TestCommandApprovedPayload{} },
	EventTypeCheckpointCreated:      func() Payload { return &CheckpointCreatedPayload{} },
	EventTypeDiffApplied:            func() Payload { return &DiffAppliedPayload{} },
	EventTypeDiffRejected:           func() Payload { return &DiffRejectedPayload{} },
	EventTypeStalenessDetected:      func() Payload { return &StalenessDetectedPayload{} },
	EventTypeRollbackPerformed:      func() Payload { return &RollbackPerformedPayload{} },
	EventTypeTestRunStarted:         func() Payload { return &TestRunStartedPayload{} },
	EventTypeTestRunCompleted:       func() Payload { return &TestRunCompletedPayload{} },
	EventTypeFailureClassified:      func() Payload { return &FailureClassifiedPayload{} },
	EventTypeRepairAttemptStarted:   func() Payload { return &RepairAttemptStartedPayload{} },
	EventTypeRepairAttemptCompleted: func() Payload { return &RepairAttemptCompletedPayload{} },
	EventTypeDecisionPointCreated:   func() Payload { return &DecisionPointCreatedPayload{} },
	EventTypeDecisionPointResolved:  func() Payload { return &DecisionPointResolvedPayload{} },
	EventTypeError:                  func() Payload { return &ErrorPayload{} },
}

// envelope is the wire form of an Event: identical to Event except the
// payload travels as raw JSON so the union can be decoded by type.
type envelope struct {
	ID            string          `json:"id"`
	TaskID        string          `json:"task_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Type          EventType       `json:"type"`
	Mode          types.Mode      `json:"mode,omitempty"`
	Stage         types.Stage     `json:"stage,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	EvidenceIDs   []string        `json:"evidence_ids,omitempty"`
	ParentEventID string          `json:"parent_event_id,omitempty"`
}

// MarshalJSON serializes the event with its payload inline.
func (e *Event) MarshalJSON() ([]byte, error) {
	env := envelope{
		ID:            e.ID,
		TaskID:        e.TaskID,
		Timestamp:     e.Timestamp,
		Type:          e.Type,
		Mode:          e.Mode,
		Stage:         e.Stage,
		EvidenceIDs:   e.EvidenceIDs,
		ParentEventID: e.ParentEventID,
	}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the envelope and dispatches the payload to the
// concrete type registered for the event type. Unknown types fail here,
// which protects replay from records a newer (or corrupted) writer left.
func (e *Event) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	factory, ok := payloadFactories[env.Type]
	if !ok {
		return fmt.Errorf("unknown event type %q", env.Type)
	}
	e.ID = env.ID
	e.TaskID = env.TaskID
	e.Timestamp = env.Timestamp
	e.Type = env.Type
	e.Mode = env.Mode
	e.Stage = env.Stage
	e.EvidenceIDs = env.EvidenceIDs
	e.ParentEventID = env.ParentEventID
	e.Payload = nil
	if len(env.Payload) > 0 {
		payload := factory()
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		e.Payload = payload
	}
	return nil
}

// clonePayload deep-copies a payload through its JSON form. Payloads are
// plain data, so the round trip is lossless.
func clonePayload(p Payload) Payload {
	raw, err := json.Marshal(p)
	if err != nil {
		return p
	}
	factory, ok := payloadFactories[p.EventType()]
	if !ok {
		return p
	}
	out := factory()
	if err := json.Unmarshal(raw, out); err != nil {
		return p
	}
	return out
}
