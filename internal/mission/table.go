// Package mission owns mission execution: the manifest, the staged
// state machine, scope fences, and the pure reducer that reconstructs
// run state from the event log.
package mission

import (
	"errors"
	"fmt"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// ErrNoTransition marks a trigger with no edge out of the current stage.
// The dispatch boundary drops such triggers instead of failing the run;
// guard rejections and terminal stages are real errors.
var ErrNoTransition = errors.New("no transition for trigger")

// Transition triggers. Every stage change is named by exactly one of
// these, and the name is recorded on the stage_changed event.
const (
	TriggerContextReady        = "context_ready"
	TriggerPlanReady           = "plan_ready"
	TriggerDiffGenerated       = "diff_generated"
	TriggerApprovalGranted     = "approval_granted"
	TriggerApprovalDenied      = "approval_denied"
	TriggerDiffApplied         = "diff_applied"
	TriggerStaleContext        = "stale_context"
	TriggerTestsPassed         = "tests_passed"
	TriggerTestsFailed         = "tests_failed"
	TriggerRepairDiffGenerated = "repair_diff_generated"
	TriggerRepairExhausted     = "repair_exhausted"
	TriggerStageTimeout        = "stage_timeout"
	TriggerCancelRequested     = "cancel_requested"
	TriggerPauseRequested      = "pause_requested"
)

// transition is one legal edge of the stage graph.
type transition struct {
	from    types.Stage
	trigger string
	to      types.Stage
	// guard, when set, must pass for the transition to fire.
	guard func(*types.MissionRunState) error
}

// transitions is the complete stage graph. Everything not listed here
// (plus the universal timeout/cancel/pause edges) is illegal.
var transitions = []transition{
	{from: types.StageRetrieveContext, trigger: TriggerContextReady, to: types.StageProposePatchPlan},
	{from: types.StageProposePatchPlan, trigger: TriggerPlanReady, to: types.StageProposeDiff},
	{from: types.StageProposeDiff, trigger: TriggerDiffGenerated, to: types.StageAwaitApplyApproval},
	{from: types.StageAwaitApplyApproval, trigger: TriggerApprovalGranted, to: types.StageApplyDiff},
	{from: types.StageAwaitApplyApproval, trigger: TriggerApprovalDenied, to: types.StageMissionPaused},
	{from: types.StageApplyDiff, trigger: TriggerDiffApplied, to: types.StageAwaitTestApproval},
	{from: types.StageApplyDiff, trigger: TriggerStaleContext, to: types.StageRetrieveContext},
	{from: types.StageAwaitTestApproval, trigger: TriggerApprovalGranted, to: types.StageRunTests},
	{from: types.StageAwaitTestApproval, trigger: TriggerApprovalDenied, to: types.StageMissionPaused},
	{from: types.StageRunTests, trigger: TriggerTestsPassed, to: types.StageMissionCompleted},
	{from: types.StageRunTests, trigger: TriggerTestsFailed, to: types.StageRepairLoop},
	{
		from: types.StageRepairLoop, trigger: TriggerRepairDiffGenerated, to: types.StageProposeDiff,
		guard: func(st *types.MissionRunState) error {
			if st.RepairRemaining <= 0 {
				return fmt.Errorf("repair budget exhausted")
			}
			return nil
		},
	},
	{from: types.StageRepairLoop, trigger: TriggerRepairExhausted, to: types.StageMissionPaused},
}

// NextStage resolves a trigger against the stage graph, checking the
// guard. The universal edges (timeout, cancel, pause) apply to every
// non-terminal stage.
func NextStage(st *types.MissionRunState, trigger string) (types.Stage, error) {
	from := st.CurrentStage
	if from.IsTerminal() {
		return "", fmt.Errorf("no transitions out of terminal stage %s", from)
	}

	switch trigger {
	case TriggerCancelRequested:
		return types.StageMissionCancelled, nil
	case TriggerStageTimeout, TriggerPauseRequested:
		return types.StageMissionPaused, nil
	}

	for _, tr := range transitions {
		if tr.from != from || tr.trigger != trigger {
			continue
		}
		if tr.guard != nil {
			if err := tr.guard(st); err != nil {
				return "", fmt.Errorf("transition %s from %s blocked: %w", trigger, from, err)
			}
		}
		return tr.to, nil
	}
	return "", fmt.Errorf("%w: %s in stage %s", ErrNoTransition, trigger, from)
}

// stageTimeoutExempt reports stages that wait on humans and therefore
// carry no timeout.
func stageTimeoutExempt(stage types.Stage) bool {
	return stage.IsApprovalWait()
}
