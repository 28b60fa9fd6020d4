package types

import (
	"time"
)

// Stage is one named step of mission execution. Each stage has its own
// timeout and transition rules in the mission state machine's table.
type Stage string

const (
	StageRetrieveContext   Stage = "retrieve_context"
	StageProposePatchPlan  Stage = "propose_patch_plan"
	StageProposeDiff       Stage = "propose_diff"
	StageAwaitApplyApproval Stage = "await_apply_approval"
	StageApplyDiff         Stage = "apply_diff"
	StageAwaitTestApproval Stage = "await_test_approval"
	StageRunTests          Stage = "run_tests"
	StageRepairLoop        Stage = "repair_loop"

	// Terminal stages. mission_paused is the unique safe rendezvous point
	// after any failure mode, including process death.
	StageMissionCompleted Stage = "mission_completed"
	StageMissionPaused    Stage = "mission_paused"
	StageMissionCancelled Stage = "mission_cancelled"
)

// IsTerminal reports whether the stage ends mission execution.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageMissionCompleted, StageMissionPaused, StageMissionCancelled:
		return true
	}
	return false
}

// IsApprovalWait reports whether the stage blocks on a human decision.
// Approval-wait stages are the only stages allowed to block indefinitely.
func (s Stage) IsApprovalWait() bool {
	return s == StageAwaitApplyApproval || s == StageAwaitTestApproval
}

// IsValid reports whether the stage is part of the machine's state set.
func (s Stage) IsValid() bool {
	switch s {
	case StageRetrieveContext, StageProposePatchPlan, StageProposeDiff,
		StageAwaitApplyApproval, StageApplyDiff, StageAwaitTestApproval,
		StageRunTests, StageRepairLoop,
		StageMissionCompleted, StageMissionPaused, StageMissionCancelled:
		return true
	}
	return false
}

// MissionRunState is the state machine's working state for one mission.
// It is owned exclusively by the running machine instance, mutated only by
// the transition function, and fully reconstructable from the event log, so
// no durable store beyond the log is required.
type MissionRunState struct {
	MissionID string `json:"mission_id"`
	TaskID    string `json:"task_id"`
	Mode      Mode   `json:"mode"`

	CurrentStage  Stage `json:"current_stage"`
	PreviousStage Stage `json:"previous_stage,omitempty"`

	// RepairRemaining is the remaining repair budget. It decrements only
	// when a repair diff has actually been applied, never on proposal or
	// classification alone, and never goes negative.
	RepairRemaining int `json:"repair_remaining"`

	// ApprovedTestCommands is the session allowlist: commands the human has
	// already approved and that may re-run without another prompt.
	ApprovedTestCommands map[string]bool `json:"approved_test_commands,omitempty"`

	// FailureSignatures is the ordered history of prior failure signatures,
	// consumed by loop detection and by the repeat-signature pause rule.
	FailureSignatures []string `json:"failure_signatures,omitempty"`

	CheckpointIDs []string `json:"checkpoint_ids,omitempty"`

	// InFlightDiffID is the diff currently proposed or being applied.
	InFlightDiffID string `json:"in_flight_diff_id,omitempty"`

	TouchedFiles map[string]bool `json:"touched_files,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// PauseReason and PauseOptions are set only when CurrentStage is
	// mission_paused.
	PauseReason  string   `json:"pause_reason,omitempty"`
	PauseOptions []string `json:"pause_options,omitempty"`
}

// NewMissionRunState creates the working state for a mission that is about
// to start.
func NewMissionRunState(taskID, missionID string, mode Mode, repairBudget int) *MissionRunState {
	now := time.Now().UTC()
	return &MissionRunState{
		MissionID:            missionID,
		TaskID:               taskID,
		Mode:                 mode,
		CurrentStage:         StageRetrieveContext,
		RepairRemaining:      repairBudget,
		ApprovedTestCommands: make(map[string]bool),
		TouchedFiles:         make(map[string]bool),
		StartedAt:            now,
		UpdatedAt:            now,
	}
}

// Clone returns a deep copy of the run state. The reducer uses this so
// replay never aliases live state.
func (s *MissionRunState) Clone() *MissionRunState {
	if s == nil {
		return nil
	}
	out := *s
	out.ApprovedTestCommands = make(map[string]bool, len(s.ApprovedTestCommands))
	for k, v := range s.ApprovedTestCommands {
		out.ApprovedTestCommands[k] = v
	}
	out.TouchedFiles = make(map[string]bool, len(s.TouchedFiles))
	for k, v := range s.TouchedFiles {
		out.TouchedFiles[k] = v
	}
	out.FailureSignatures = append([]string(nil), s.FailureSignatures...)
	out.CheckpointIDs = append([]string(nil), s.CheckpointIDs...)
	out.PauseOptions = append([]string(nil), s.PauseOptions...)
	return &out
}

// LastSignature returns the most recent failure signature, or "".
func (s *MissionRunState) LastSignature() string {
	if len(s.FailureSignatures) == 0 {
		return ""
	}
	return s.FailureSignatures[len(s.FailureSignatures)-1]
}

// ConsecutiveSignatureRepeats counts how many times the most recent failure
// signature occurs at the tail of the history (minimum 1 when non-empty).
func (s *MissionRunState) ConsecutiveSignatureRepeats() int {
	n := len(s.FailureSignatures)
	if n == 0 {
		return 0
	}
	last := s.FailureSignatures[n-1]
	count := 0
	for i := n - 1; i >= 0 && s.FailureSignatures[i] == last; i-- {
		count++
	}
	return count
}
